// Package metastore implements the durable registry of table schemas,
// backed by the SQLite catalog. It is the sole owner of schema records and
// the source of truth for interpreting stored column data.
package metastore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"isdb/internal/domain"
)

// TableRecord pairs a table's storage ID with its schema. The ID names the
// table's data file in the table store; clients never see it.
type TableRecord struct {
	ID     string
	Schema domain.TableSchema
}

// Store persists table schemas in the SQLite catalog. Mutations go through
// the write pool; lookups use the read pool.
type Store struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

// New creates a Store on an already-migrated catalog pair.
func New(writeDB, readDB *sql.DB) *Store {
	return &Store{writeDB: writeDB, readDB: readDB}
}

// CreateTable registers a new table schema and returns its storage ID.
// It fails with AlreadyExistsError when the name is taken and with
// InvalidSchemaError when the schema is empty or has duplicate columns.
func (s *Store) CreateTable(ctx context.Context, schema domain.TableSchema) (string, error) {
	if err := schema.Validate(); err != nil {
		return "", err
	}

	var exists int
	err := s.writeDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM isdb_table WHERE name = ?`, schema.Name).Scan(&exists)
	if err != nil {
		return "", fmt.Errorf("check table %q: %w", schema.Name, err)
	}
	if exists > 0 {
		return "", domain.ErrAlreadyExists("table %q already exists", schema.Name)
	}

	tx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin create table: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO isdb_table (id, name) VALUES (?, ?)`, id, schema.Name); err != nil {
		return "", fmt.Errorf("insert table %q: %w", schema.Name, err)
	}
	for i, col := range schema.Columns {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO isdb_column (table_id, name, col_type, position) VALUES (?, ?, ?, ?)`,
			id, col.Name, col.Type.String(), i); err != nil {
			return "", fmt.Errorf("insert column %q of table %q: %w", col.Name, schema.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit create table %q: %w", schema.Name, err)
	}
	return id, nil
}

// DropTable removes the schema entry for the named table and returns the
// storage ID it occupied, failing with NotFoundError when absent.
func (s *Store) DropTable(ctx context.Context, name string) (string, error) {
	var id string
	err := s.writeDB.QueryRowContext(ctx,
		`SELECT id FROM isdb_table WHERE name = ?`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return "", domain.ErrNotFound("table %q not found", name)
	}
	if err != nil {
		return "", fmt.Errorf("lookup table %q: %w", name, err)
	}

	// Columns cascade via the foreign key.
	if _, err := s.writeDB.ExecContext(ctx,
		`DELETE FROM isdb_table WHERE id = ?`, id); err != nil {
		return "", fmt.Errorf("delete table %q: %w", name, err)
	}
	return id, nil
}

// GetSchema returns the schema of the named table, failing with
// NotFoundError when absent. Read-only.
func (s *Store) GetSchema(ctx context.Context, name string) (domain.TableSchema, error) {
	rec, err := s.Lookup(ctx, name)
	if err != nil {
		return domain.TableSchema{}, err
	}
	return rec.Schema, nil
}

// Lookup returns the full record (storage ID + schema) of the named table.
func (s *Store) Lookup(ctx context.Context, name string) (TableRecord, error) {
	var id string
	err := s.readDB.QueryRowContext(ctx,
		`SELECT id FROM isdb_table WHERE name = ?`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return TableRecord{}, domain.ErrNotFound("table %q not found", name)
	}
	if err != nil {
		return TableRecord{}, fmt.Errorf("lookup table %q: %w", name, err)
	}

	columns, err := s.readColumns(ctx, id, name)
	if err != nil {
		return TableRecord{}, err
	}
	return TableRecord{
		ID:     id,
		Schema: domain.TableSchema{Name: name, Columns: columns},
	}, nil
}

// ListTables returns a snapshot of all table names in name order.
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT name FROM isdb_table ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// All returns every registered table record. Used once at startup to key the
// table store's reload; an unreadable record is a CorruptError because all
// subsequent operations depend on an accurate registry.
func (s *Store) All(ctx context.Context) ([]TableRecord, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT id, name FROM isdb_table ORDER BY name`)
	if err != nil {
		return nil, domain.ErrCorrupt("read catalog: %v", err)
	}
	defer func() { _ = rows.Close() }()

	var records []TableRecord
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, domain.ErrCorrupt("scan catalog row: %v", err)
		}
		records = append(records, TableRecord{ID: id, Schema: domain.TableSchema{Name: name}})
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrCorrupt("iterate catalog: %v", err)
	}

	for i := range records {
		columns, err := s.readColumns(ctx, records[i].ID, records[i].Schema.Name)
		if err != nil {
			return nil, domain.ErrCorrupt("load table %q: %v", records[i].Schema.Name, err)
		}
		records[i].Schema.Columns = columns
	}
	return records, nil
}

func (s *Store) readColumns(ctx context.Context, tableID, tableName string) ([]domain.ColumnSchema, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT name, col_type FROM isdb_column WHERE table_id = ? ORDER BY position`,
		tableID)
	if err != nil {
		return nil, fmt.Errorf("read columns of %q: %w", tableName, err)
	}
	defer func() { _ = rows.Close() }()

	var columns []domain.ColumnSchema
	for rows.Next() {
		var name, typeName string
		if err := rows.Scan(&name, &typeName); err != nil {
			return nil, err
		}
		colType, err := domain.ParseColumnType(typeName)
		if err != nil {
			return nil, domain.ErrCorrupt("table %q column %q: %v", tableName, name, err)
		}
		columns = append(columns, domain.ColumnSchema{Name: name, Type: colType})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, domain.ErrCorrupt("table %q has no columns in the catalog", tableName)
	}
	return columns, nil
}
