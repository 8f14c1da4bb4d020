package tablestore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"isdb/internal/domain"
)

const fileExtension = "isdb"

// Store holds the row data of every table, mirrored to one ISDB file per
// table under dir. A table's data file is rewritten and fsynced before any
// mutation is acknowledged, so acknowledged writes survive a crash.
//
// Store guards its table map with one lock and each table's data with a
// per-table reader/writer lock: scans of the same table run in parallel,
// inserts exclude scans on that table, and unrelated tables never contend.
type Store struct {
	dir    string
	codec  *Serializer
	logger *slog.Logger

	mu     sync.RWMutex
	tables map[string]*tableState
}

type tableState struct {
	mu     sync.RWMutex
	id     string
	schema domain.TableSchema
	data   *Table
}

// Open loads the store from dir, reloading one data file per metastore
// record. A missing or unreadable file, or a file whose columns disagree
// with the registered schema, is a CorruptError: the metastore is the source
// of truth and data must exist in lock-step with it.
func Open(dir string, codec *Serializer, records []Record, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create table directory: %w", err)
	}

	s := &Store{
		dir:    dir,
		codec:  codec,
		logger: logger,
		tables: make(map[string]*tableState, len(records)),
	}

	for _, rec := range records {
		raw, err := os.ReadFile(s.filePath(rec.ID))
		if err != nil {
			return nil, domain.ErrCorrupt("table %q: read data file: %v", rec.Schema.Name, err)
		}
		data, err := codec.Decode(raw)
		if err != nil {
			return nil, domain.ErrCorrupt("table %q: %v", rec.Schema.Name, err)
		}
		if err := checkShape(rec.Schema, data); err != nil {
			return nil, err
		}
		s.tables[rec.Schema.Name] = &tableState{id: rec.ID, schema: rec.Schema, data: data}
		logger.Info("table loaded", "table", rec.Schema.Name, "rows", data.NumRows)
	}
	return s, nil
}

// Record keys a table's data file to its registered schema.
type Record struct {
	ID     string
	Schema domain.TableSchema
}

// checkShape verifies that a reloaded data file matches the schema the
// metastore registered for it. The file's embedded names and type bytes are
// a consistency check only; the metastore stays authoritative.
func checkShape(schema domain.TableSchema, data *Table) error {
	if len(data.Columns) != len(schema.Columns) {
		return domain.ErrCorrupt("table %q: data file has %d columns, catalog declares %d",
			schema.Name, len(data.Columns), len(schema.Columns))
	}
	for i, col := range schema.Columns {
		if data.Columns[i].Name != col.Name || data.Columns[i].Type != col.Type {
			return domain.ErrCorrupt("table %q: data file column %d is %s %q, catalog declares %s %q",
				schema.Name, i, data.Columns[i].Type, data.Columns[i].Name, col.Type, col.Name)
		}
	}
	return nil
}

// Allocate creates empty schema-shaped storage for a new table and persists
// its (empty) data file. The caller sequences this strictly after the
// metastore has confirmed non-existence.
func (s *Store) Allocate(id string, schema domain.TableSchema) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[schema.Name]; ok {
		return fmt.Errorf("storage for table %q already allocated", schema.Name)
	}

	st := &tableState{id: id, schema: schema, data: NewTable(schema)}
	if err := s.persist(st); err != nil {
		return err
	}
	s.tables[schema.Name] = st
	return nil
}

// Delete removes all storage for the table. Irreversible.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	st, ok := s.tables[name]
	if ok {
		delete(s.tables, name)
	}
	s.mu.Unlock()
	if !ok {
		return domain.ErrNotFound("table %q not found", name)
	}

	// Wait out in-flight readers before destroying the file.
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := os.Remove(s.filePath(st.id)); err != nil {
		s.logger.Warn("failed to delete table data file", "table", name, "error", err)
	}
	return nil
}

// InsertRow durably appends one row. See InsertRows.
func (s *Store) InsertRow(name string, row []domain.Value) error {
	return s.InsertRows(name, [][]domain.Value{row})
}

// InsertRows durably appends rows in order. Every row is validated against
// the registered schema before any is applied; on a failed persist the
// in-memory arrays are rolled back, so no acknowledged-but-lost or
// half-applied writes exist.
func (s *Store) InsertRows(name string, rows [][]domain.Value) error {
	st, err := s.lookup(name)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	for _, row := range rows {
		if err := st.schema.CheckRow(row); err != nil {
			return err
		}
	}

	before := st.data.NumRows
	for _, row := range rows {
		st.data.appendRow(row)
	}
	if err := s.persist(st); err != nil {
		st.data.truncateRows(before)
		return err
	}
	return nil
}

// Snapshot is an immutable view of a table taken atomically at scan start.
// Re-reading it always yields the same rows; concurrent inserts are not
// observed.
type Snapshot struct {
	Schema  domain.TableSchema
	columns []Column
	numRows int
}

// NumRows returns the number of rows in the snapshot.
func (sn *Snapshot) NumRows() int { return sn.numRows }

// Row materializes the row at index i in column order.
func (sn *Snapshot) Row(i int) []domain.Value {
	row := make([]domain.Value, len(sn.columns))
	for c := range sn.columns {
		row[c] = sn.columns[c].Value(i)
	}
	return row
}

// Scan returns a snapshot of the table's rows in insertion order.
func (s *Store) Scan(name string) (*Snapshot, error) {
	st, err := s.lookup(name)
	if err != nil {
		return nil, err
	}

	st.mu.RLock()
	defer st.mu.RUnlock()

	n := st.data.NumRows
	columns := make([]Column, len(st.data.Columns))
	for i := range st.data.Columns {
		col := &st.data.Columns[i]
		columns[i] = Column{Name: col.Name, Type: col.Type}
		// Full-capacity slicing keeps later appends out of the snapshot.
		if col.Type == domain.TypeText {
			columns[i].Texts = col.Texts[:n:n]
		} else {
			columns[i].Ints = col.Ints[:n:n]
		}
	}
	return &Snapshot{Schema: st.schema, columns: columns, numRows: n}, nil
}

// RowCount returns the current number of rows in the table.
func (s *Store) RowCount(name string) (int, error) {
	st, err := s.lookup(name)
	if err != nil {
		return 0, err
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.data.NumRows, nil
}

func (s *Store) lookup(name string) (*tableState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.tables[name]
	if !ok {
		return nil, domain.ErrNotFound("table %q not found", name)
	}
	return st, nil
}

func (s *Store) filePath(id string) string {
	return filepath.Join(s.dir, id+"."+fileExtension)
}

// persist writes the table's data file via temp-file-and-rename with an
// fsync in between. The caller holds the table's write lock (or, for
// Allocate, the store lock while the table is still unpublished).
func (s *Store) persist(st *tableState) error {
	encoded, err := s.codec.Encode(st.data)
	if err != nil {
		return fmt.Errorf("encode table %q: %w", st.schema.Name, err)
	}

	path := s.filePath(st.id)
	tmp, err := os.CreateTemp(s.dir, st.id+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for table %q: %w", st.schema.Name, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(encoded); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write table %q: %w", st.schema.Name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync table %q: %w", st.schema.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close table %q: %w", st.schema.Name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace data file of table %q: %w", st.schema.Name, err)
	}
	return nil
}
