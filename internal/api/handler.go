// Package api provides the hand-written HTTP handlers of the isdb REST API.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"isdb/internal/domain"
	"isdb/internal/engine"
)

// Version identifiers reported by /v1/system/info.
const (
	ServerVersion    = "0.1.0"
	InterfaceVersion = "1.0.0"
	Author           = "isdb"
)

// Handler serves the REST API on top of the query engine.
type Handler struct {
	engine *engine.Engine
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(eng *engine.Engine, logger *slog.Logger) *Handler {
	return &Handler{engine: eng, logger: logger}
}

// Routes mounts all API routes on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/system/info", h.systemInfo)
	r.Route("/tables", func(r chi.Router) {
		r.Post("/", h.createTable)
		r.Get("/", h.listTables)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", h.getTable)
			r.Delete("/", h.dropTable)
			r.Post("/rows", h.insertRow)
			r.Post("/query", h.query)
			r.Post("/copy", h.copyTable)
		})
	})
}

func (h *Handler) createTable(w http.ResponseWriter, r *http.Request) {
	var req CreateTableRequest
	if !h.decode(w, r, &req) {
		return
	}
	schema, err := req.ToSchema()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.engine.CreateTable(r.Context(), schema); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, TableResponse{
		Name:    schema.Name,
		Columns: columnsPayload(schema),
	})
}

func (h *Handler) listTables(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.engine.ListTables(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	payload := make([]TableSummaryPayload, len(summaries))
	for i, s := range summaries {
		payload[i] = TableSummaryPayload{Name: s.Name, RowCount: s.Rows}
	}
	h.writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) getTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	schema, rows, err := h.engine.GetSchema(r.Context(), name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, TableResponse{
		Name:     schema.Name,
		Columns:  columnsPayload(schema),
		RowCount: rows,
	})
}

func (h *Handler) dropTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.engine.DropTable(r.Context(), name); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) insertRow(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req InsertRequest
	if !h.decode(w, r, &req) {
		return
	}
	row, err := req.ToRow()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.engine.Insert(r.Context(), name, row); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) query(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req QueryRequest
	if !h.decode(w, r, &req) {
		return
	}

	var predicate domain.ColumnExpression
	if req.Predicate != nil {
		expr, err := req.Predicate.ToExpression()
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Code:    http.StatusBadRequest,
				Message: "invalid predicate: " + err.Error(),
			})
			return
		}
		predicate = expr
	}

	result, err := h.engine.Select(r.Context(), name, predicate, req.Limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	rows := make([][]interface{}, len(result.Rows))
	for i, row := range result.Rows {
		native := make([]interface{}, len(row))
		for c, v := range row {
			native[c] = v.Native()
		}
		rows[i] = native
	}
	h.writeJSON(w, http.StatusOK, QueryResponse{
		Columns:  columnsPayload(result.Schema),
		Rows:     rows,
		RowCount: len(rows),
	})
}

func (h *Handler) copyTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req CopyRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.SourceFilepath == "" {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "source_filepath is required",
		})
		return
	}
	loaded, err := h.engine.CopyFromCSV(r.Context(), name, req.SourceFilepath, req.Columns, req.Header)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, CopyResponse{RowsLoaded: loaded})
}

func (h *Handler) systemInfo(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, SystemInfoResponse{
		ServerVersion:    ServerVersion,
		InterfaceVersion: InterfaceVersion,
		Author:           Author,
	})
}

// --- helpers ---

// decode parses the JSON request body into v, preserving integer precision
// via json.Number. On failure it writes a 400 and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid request body: " + err.Error(),
		})
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFromDomainError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	h.writeJSON(w, status, ErrorResponse{Code: status, Message: err.Error()})
}
