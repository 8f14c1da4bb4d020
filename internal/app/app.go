// Package app wires the metastore, table store, and engine together from
// externally provided dependencies.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"

	"isdb/internal/config"
	"isdb/internal/engine"
	"isdb/internal/metastore"
	"isdb/internal/tablestore"
)

// Deps holds the external dependencies that main() must provide: config,
// catalog database handles, and the logger.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger
}

// App is the fully wired application.
type App struct {
	Meta   *metastore.Store
	Tables *tablestore.Store
	Engine *engine.Engine
}

// New loads the metastore, reloads every table's data file, and wires the
// engine. Unreadable persisted state is returned as a CorruptError and must
// be treated as fatal by the caller.
func New(ctx context.Context, deps Deps) (*App, error) {
	meta := metastore.New(deps.WriteDB, deps.ReadDB)

	records, err := meta.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load metastore: %w", err)
	}

	storeRecords := make([]tablestore.Record, len(records))
	for i, rec := range records {
		storeRecords[i] = tablestore.Record{ID: rec.ID, Schema: rec.Schema}
	}

	tables, err := tablestore.Open(
		filepath.Join(deps.Cfg.DataDir, "tables"),
		tablestore.NewSerializer(),
		storeRecords,
		deps.Logger.With("component", "tablestore"),
	)
	if err != nil {
		return nil, fmt.Errorf("load table store: %w", err)
	}

	deps.Logger.Info("engine loaded", "tables", len(records))
	return &App{
		Meta:   meta,
		Tables: tables,
		Engine: engine.New(meta, tables, deps.Logger.With("component", "engine")),
	}, nil
}
