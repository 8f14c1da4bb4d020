package engine

import (
	"context"
	"log/slog"
	"sync"

	"isdb/internal/domain"
	"isdb/internal/metastore"
	"isdb/internal/tablestore"
)

// Engine is the query executor: it consults the metastore for schema
// validation, performs mutations and scans against the table store, and
// applies predicate evaluation during scans.
//
// A single reader/writer lock serializes schema changes: CreateTable and
// DropTable hold it exclusively across both the metastore and table store
// steps, so no observer ever sees a schema without storage or storage
// without a schema. Inserts and selects take it shared and rely on the
// table store's per-table locks for row-level exclusion.
type Engine struct {
	meta   *metastore.Store
	tables *tablestore.Store
	logger *slog.Logger

	mu sync.RWMutex
}

// New creates an Engine over an already-loaded metastore and table store.
func New(meta *metastore.Store, tables *tablestore.Store, logger *slog.Logger) *Engine {
	return &Engine{meta: meta, tables: tables, logger: logger}
}

// TableSummary describes one table for listings.
type TableSummary struct {
	Name string
	Rows int
}

// Result is the outcome of a Select: the table's schema and the matching
// rows in insertion order.
type Result struct {
	Schema domain.TableSchema
	Rows   [][]domain.Value
}

// CreateTable registers the schema and allocates empty storage atomically
// with respect to concurrent operations. If allocation fails the schema
// registration is rolled back, preserving the no-orphaned-schema invariant.
func (e *Engine) CreateTable(ctx context.Context, schema domain.TableSchema) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, err := e.meta.CreateTable(ctx, schema)
	if err != nil {
		return err
	}
	if err := e.tables.Allocate(id, schema); err != nil {
		if _, rbErr := e.meta.DropTable(ctx, schema.Name); rbErr != nil {
			e.logger.Error("rollback of schema registration failed",
				"table", schema.Name, "error", rbErr)
		}
		return err
	}
	e.logger.Info("table created", "table", schema.Name, "columns", len(schema.Columns))
	return nil
}

// DropTable removes the schema entry first, making the table invisible to
// new operations, and then destroys its storage.
func (e *Engine) DropTable(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, err := e.meta.DropTable(ctx, name)
	if err != nil {
		return err
	}
	if err := e.tables.Delete(name); err != nil {
		e.logger.Warn("schema dropped but storage deletion failed", "table", name, "error", err)
	}
	e.logger.Info("table dropped", "table", name, "file_id", id)
	return nil
}

// Insert validates the row against the current schema and durably appends
// it. The table store acknowledges only after the data file is persisted.
func (e *Engine) Insert(ctx context.Context, name string, row []domain.Value) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tables.InsertRow(name, row)
}

// Select scans the table and, when a predicate is supplied, returns only the
// rows for which it evaluates to true. A predicate error on any row aborts
// the whole query. limit <= 0 means no limit.
func (e *Engine) Select(ctx context.Context, name string, predicate domain.ColumnExpression, limit int) (*Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap, err := e.tables.Scan(name)
	if err != nil {
		return nil, err
	}

	result := &Result{Schema: snap.Schema, Rows: [][]domain.Value{}}
	for i := 0; i < snap.NumRows(); i++ {
		if limit > 0 && len(result.Rows) == limit {
			break
		}
		row := snap.Row(i)
		if predicate != nil {
			keep, err := Evaluate(predicate, snap.Schema, row)
			if err != nil {
				return nil, err
			}
			if !keep {
				continue
			}
		}
		result.Rows = append(result.Rows, row)
	}
	return result, nil
}

// GetSchema returns the named table's schema and current row count.
func (e *Engine) GetSchema(ctx context.Context, name string) (domain.TableSchema, int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	schema, err := e.meta.GetSchema(ctx, name)
	if err != nil {
		return domain.TableSchema{}, 0, err
	}
	rows, err := e.tables.RowCount(name)
	if err != nil {
		return domain.TableSchema{}, 0, err
	}
	return schema, rows, nil
}

// ListTables returns a stable snapshot of all tables with their row counts.
func (e *Engine) ListTables(ctx context.Context) ([]TableSummary, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names, err := e.meta.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]TableSummary, 0, len(names))
	for _, name := range names {
		rows, err := e.tables.RowCount(name)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, TableSummary{Name: name, Rows: rows})
	}
	return summaries, nil
}
