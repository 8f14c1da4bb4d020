// Package db provides SQLite connectivity and migration support for the
// isdb catalog.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"
)

// Hardened DSN parameters for the catalog file.
const (
	busyTimeoutMillis = "5000"
	synchronousLevel  = "NORMAL"
	journalMode       = "WAL"
)

// OpenCatalog opens a *sql.DB pool for the SQLite catalog at path.
//
// mode controls write-safety and pool sizing:
//   - "write": MaxOpenConns=1, _txlock=immediate
//   - "read":  MaxOpenConns=maxOpen (0 defaults to 4)
//
// Both modes enable WAL journaling, a 5s busy timeout, synchronous=NORMAL,
// and foreign keys.
func OpenCatalog(path string, mode string, maxOpen int) (*sql.DB, error) {
	if mode != "read" && mode != "write" {
		return nil, fmt.Errorf("invalid catalog mode %q: must be \"read\" or \"write\"", mode)
	}

	db, err := sql.Open("sqlite3", catalogDSN(path, mode))
	if err != nil {
		return nil, fmt.Errorf("open catalog (%s): %w", mode, err)
	}

	switch mode {
	case "write":
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	case "read":
		if maxOpen <= 0 {
			maxOpen = 4
		}
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen)
	}
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping catalog (%s): %w", mode, err)
	}

	return db, nil
}

// OpenCatalogPair opens a write pool (single connection) and a read pool for
// the same catalog file. This is the recommended SQLite configuration for
// concurrent access from a Go HTTP server.
func OpenCatalogPair(path string, readMaxOpen int) (writeDB, readDB *sql.DB, err error) {
	writeDB, err = OpenCatalog(path, "write", 0)
	if err != nil {
		return nil, nil, err
	}

	readDB, err = OpenCatalog(path, "read", readMaxOpen)
	if err != nil {
		_ = writeDB.Close()
		return nil, nil, err
	}

	return writeDB, readDB, nil
}

func catalogDSN(path string, mode string) string {
	params := url.Values{}
	params.Set("_journal_mode", journalMode)
	params.Set("_busy_timeout", busyTimeoutMillis)
	params.Set("_synchronous", synchronousLevel)
	params.Set("_foreign_keys", "on")

	if mode == "write" {
		params.Set("_txlock", "immediate")
	}

	return path + "?" + params.Encode()
}
