// Package tablestore implements durable columnar row storage. Each table is
// held fully in memory as one typed array per column and mirrored to a
// single data file that is rewritten on every acknowledged mutation.
package tablestore

import "isdb/internal/domain"

// Column holds the values of one table column. Exactly one of the value
// slices is in use, matching Type.
type Column struct {
	Name  string
	Type  domain.ColumnType
	Ints  []int64
	Texts []string
}

// Len returns the number of stored values.
func (c *Column) Len() int {
	if c.Type == domain.TypeText {
		return len(c.Texts)
	}
	return len(c.Ints)
}

// Value returns the value at row index i.
func (c *Column) Value(i int) domain.Value {
	if c.Type == domain.TypeText {
		return domain.Text(c.Texts[i])
	}
	return domain.Int64(c.Ints[i])
}

func (c *Column) append(v domain.Value) {
	if c.Type == domain.TypeText {
		c.Texts = append(c.Texts, v.Text)
	} else {
		c.Ints = append(c.Ints, v.Int)
	}
}

func (c *Column) truncate(n int) {
	if c.Type == domain.TypeText {
		c.Texts = c.Texts[:n]
	} else {
		c.Ints = c.Ints[:n]
	}
}

// Table is the columnar representation of one table's rows. All column
// arrays have equal length at all times.
type Table struct {
	NumRows int
	Columns []Column
}

// NewTable creates an empty table shaped by schema.
func NewTable(schema domain.TableSchema) *Table {
	columns := make([]Column, len(schema.Columns))
	for i, col := range schema.Columns {
		columns[i] = Column{Name: col.Name, Type: col.Type}
	}
	return &Table{Columns: columns}
}

// Row materializes the row at index i in column order.
func (t *Table) Row(i int) []domain.Value {
	row := make([]domain.Value, len(t.Columns))
	for c := range t.Columns {
		row[c] = t.Columns[c].Value(i)
	}
	return row
}

// appendRow extends every column by one value. The caller has already
// validated the row against the schema.
func (t *Table) appendRow(row []domain.Value) {
	for c := range t.Columns {
		t.Columns[c].append(row[c])
	}
	t.NumRows++
}

// truncateRows drops rows beyond index n, restoring the equal-length
// invariant after a failed persist.
func (t *Table) truncateRows(n int) {
	for c := range t.Columns {
		t.Columns[c].truncate(n)
	}
	t.NumRows = n
}
