package domain

// ColumnSchema declares a single column: a name unique within its table and
// a fixed scalar type.
type ColumnSchema struct {
	Name string
	Type ColumnType
}

// TableSchema is the ordered column definition of a table. Column order is
// significant: it defines row tuple positions for storage and for predicate
// evaluation.
type TableSchema struct {
	Name    string
	Columns []ColumnSchema
}

// Validate checks the structural invariants required at table creation:
// a non-empty table name, at least one column, and unique column names.
func (s TableSchema) Validate() error {
	if s.Name == "" {
		return ErrInvalidSchema("table name must not be empty")
	}
	if len(s.Columns) == 0 {
		return ErrInvalidSchema("table %q must have at least one column", s.Name)
	}
	seen := make(map[string]bool, len(s.Columns))
	for _, col := range s.Columns {
		if col.Name == "" {
			return ErrInvalidSchema("table %q has a column with an empty name", s.Name)
		}
		if seen[col.Name] {
			return ErrInvalidSchema("table %q declares column %q twice", s.Name, col.Name)
		}
		seen[col.Name] = true
	}
	return nil
}

// ColumnIndex returns the position of the named column, or false when the
// schema has no such column.
func (s TableSchema) ColumnIndex(name string) (int, bool) {
	for i, col := range s.Columns {
		if col.Name == name {
			return i, true
		}
	}
	return 0, false
}

// CheckRow verifies that row matches the schema positionally: same arity and,
// at every position, a value of the declared column type.
func (s TableSchema) CheckRow(row []Value) error {
	if len(row) != len(s.Columns) {
		return ErrSchemaMismatch("table %q expects %d values, got %d",
			s.Name, len(s.Columns), len(row))
	}
	for i, col := range s.Columns {
		if row[i].Type != col.Type {
			return ErrSchemaMismatch("table %q column %q expects %s, got %s",
				s.Name, col.Name, col.Type, row[i].Type)
		}
	}
	return nil
}
