package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// OpenTestCatalog opens a hardened write/read pool pair on a catalog file in
// t.TempDir(), runs all pending migrations on the write pool, and registers
// cleanup.
//
// Tests that don't need the read/write split can use writeDB for everything.
func OpenTestCatalog(t *testing.T) (writeDB, readDB *sql.DB) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "catalog.sqlite")

	writeDB, readDB, err := OpenCatalogPair(path, 4)
	if err != nil {
		t.Fatalf("open test catalog: %v", err)
	}
	t.Cleanup(func() {
		_ = readDB.Close()
		_ = writeDB.Close()
	})

	if err := RunMigrations(writeDB); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	return writeDB, readDB
}
