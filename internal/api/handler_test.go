package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"

	"isdb/internal/api"
	"isdb/internal/db"
	"isdb/internal/engine"
	"isdb/internal/metastore"
	"isdb/internal/tablestore"
)

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	writeDB, readDB := db.OpenTestCatalog(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	meta := metastore.New(writeDB, readDB)
	tables, err := tablestore.Open(t.TempDir(), tablestore.NewSerializer(), nil, logger)
	require.NoError(t, err)
	eng := engine.New(meta, tables, logger)

	r := chi.NewRouter()
	r.Route("/v1", api.NewHandler(eng, logger).Routes)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func createUsers(t *testing.T, srv *httptest.Server) {
	t.Helper()
	resp := doJSON(t, srv, http.MethodPost, "/v1/tables",
		`{"name":"users","columns":[{"name":"id","type":"int64"},{"name":"name","type":"text"}]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func insertUser(t *testing.T, srv *httptest.Server, body string) {
	t.Helper()
	resp := doJSON(t, srv, http.MethodPost, "/v1/tables/users/rows", body)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestAPI_TableLifecycle(t *testing.T) {
	srv := setupServer(t)
	createUsers(t, srv)

	t.Run("create response echoes schema", func(t *testing.T) {
		resp := doJSON(t, srv, http.MethodPost, "/v1/tables",
			`{"name":"events","columns":[{"name":"ts","type":"int64"}]}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var table api.TableResponse
		decodeBody(t, resp, &table)
		assert.Equal(t, "events", table.Name)
		assert.Equal(t, []api.ColumnPayload{{Name: "ts", Type: "int64"}}, table.Columns)
	})

	t.Run("get table", func(t *testing.T) {
		resp := doJSON(t, srv, http.MethodGet, "/v1/tables/users", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var table api.TableResponse
		decodeBody(t, resp, &table)
		assert.Equal(t, "users", table.Name)
		assert.Equal(t, 0, table.RowCount)
		assert.Equal(t, []api.ColumnPayload{
			{Name: "id", Type: "int64"},
			{Name: "name", Type: "text"},
		}, table.Columns)
	})

	t.Run("list tables", func(t *testing.T) {
		resp := doJSON(t, srv, http.MethodGet, "/v1/tables", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var tables []api.TableSummaryPayload
		decodeBody(t, resp, &tables)
		assert.Equal(t, []api.TableSummaryPayload{
			{Name: "events", RowCount: 0},
			{Name: "users", RowCount: 0},
		}, tables)
	})

	t.Run("duplicate create conflicts", func(t *testing.T) {
		resp := doJSON(t, srv, http.MethodPost, "/v1/tables",
			`{"name":"users","columns":[{"name":"id","type":"int64"}]}`)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("invalid column type rejected", func(t *testing.T) {
		resp := doJSON(t, srv, http.MethodPost, "/v1/tables",
			`{"name":"bad","columns":[{"name":"x","type":"float32"}]}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("drop then get 404", func(t *testing.T) {
		resp := doJSON(t, srv, http.MethodDelete, "/v1/tables/events", "")
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = doJSON(t, srv, http.MethodGet, "/v1/tables/events", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestAPI_InsertAndQuery(t *testing.T) {
	srv := setupServer(t)
	createUsers(t, srv)
	insertUser(t, srv, `{"values":[1,"ann"]}`)
	insertUser(t, srv, `{"values":[2,"bob"]}`)

	t.Run("full scan", func(t *testing.T) {
		resp := doJSON(t, srv, http.MethodPost, "/v1/tables/users/query", `{}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result api.QueryResponse
		decodeBody(t, resp, &result)
		assert.Equal(t, 2, result.RowCount)
		require.Len(t, result.Rows, 2)
		assert.Equal(t, []interface{}{float64(1), "ann"}, result.Rows[0])
		assert.Equal(t, []interface{}{float64(2), "bob"}, result.Rows[1])
	})

	t.Run("comparison predicate", func(t *testing.T) {
		resp := doJSON(t, srv, http.MethodPost, "/v1/tables/users/query", `{
			"predicate": {
				"kind": "comparison", "op": ">",
				"left":  {"kind": "column", "name": "id"},
				"right": {"kind": "literal", "value": 1}
			}
		}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result api.QueryResponse
		decodeBody(t, resp, &result)
		require.Equal(t, 1, result.RowCount)
		assert.Equal(t, []interface{}{float64(2), "bob"}, result.Rows[0])
	})

	t.Run("logical predicate with limit", func(t *testing.T) {
		resp := doJSON(t, srv, http.MethodPost, "/v1/tables/users/query", `{
			"predicate": {
				"kind": "logical", "op": "or",
				"left": {
					"kind": "comparison", "op": "=",
					"left":  {"kind": "column", "name": "name"},
					"right": {"kind": "literal", "value": "ann"}
				},
				"right": {
					"kind": "comparison", "op": "=",
					"left":  {"kind": "column", "name": "id"},
					"right": {"kind": "literal", "value": 2}
				}
			},
			"limit": 1
		}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result api.QueryResponse
		decodeBody(t, resp, &result)
		require.Equal(t, 1, result.RowCount)
		assert.Equal(t, []interface{}{float64(1), "ann"}, result.Rows[0])
	})

	t.Run("unknown column in predicate is 400", func(t *testing.T) {
		resp := doJSON(t, srv, http.MethodPost, "/v1/tables/users/query", `{
			"predicate": {
				"kind": "comparison", "op": "=",
				"left":  {"kind": "column", "name": "age"},
				"right": {"kind": "literal", "value": 1}
			}
		}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("malformed predicate is 400", func(t *testing.T) {
		resp := doJSON(t, srv, http.MethodPost, "/v1/tables/users/query",
			`{"predicate": {"kind": "comparison", "op": "=~"}}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var body api.ErrorResponse
		decodeBody(t, resp, &body)
		assert.Contains(t, body.Message, "invalid predicate")
	})

	t.Run("type mismatch row is 400", func(t *testing.T) {
		resp := doJSON(t, srv, http.MethodPost, "/v1/tables/users/rows", `{"values":["one","ann"]}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("fractional number rejected", func(t *testing.T) {
		resp := doJSON(t, srv, http.MethodPost, "/v1/tables/users/rows", `{"values":[1.5,"ann"]}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("insert into missing table is 404", func(t *testing.T) {
		resp := doJSON(t, srv, http.MethodPost, "/v1/tables/ghost/rows", `{"values":[1]}`)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("query missing table is 404", func(t *testing.T) {
		resp := doJSON(t, srv, http.MethodPost, "/v1/tables/ghost/query", `{}`)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("invalid body is 400", func(t *testing.T) {
		resp := doJSON(t, srv, http.MethodPost, "/v1/tables/users/query", `{not json`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestAPI_Copy(t *testing.T) {
	srv := setupServer(t)
	createUsers(t, srv)

	t.Run("missing source_filepath is 400", func(t *testing.T) {
		resp := doJSON(t, srv, http.MethodPost, "/v1/tables/users/copy", `{}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing file is 404", func(t *testing.T) {
		resp := doJSON(t, srv, http.MethodPost, "/v1/tables/users/copy",
			`{"source_filepath":"/nonexistent/rows.csv"}`)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestAPI_SystemInfo(t *testing.T) {
	srv := setupServer(t)

	resp := doJSON(t, srv, http.MethodGet, "/v1/system/info", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var info api.SystemInfoResponse
	decodeBody(t, resp, &info)
	assert.Equal(t, api.ServerVersion, info.ServerVersion)
	assert.Equal(t, api.InterfaceVersion, info.InterfaceVersion)
	assert.NotEmpty(t, info.Author)
}
