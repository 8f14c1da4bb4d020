package engine

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"isdb/internal/domain"
)

// CopyFromCSV bulk-loads a server-local CSV file into the table through the
// same validated insert path as single-row inserts; all parsed rows are
// appended and persisted as one durable batch.
//
// columns optionally maps CSV fields to table columns by name, in field
// order. When it is empty and hasHeader is true, the header row supplies
// the mapping; otherwise fields are taken positionally. Returns the number
// of rows loaded.
func (e *Engine) CopyFromCSV(ctx context.Context, name, sourcePath string, columns []string, hasHeader bool) (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	schema, err := e.meta.GetSchema(ctx, name)
	if err != nil {
		return 0, err
	}

	f, err := os.Open(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, domain.ErrNotFound("source file %q not found", sourcePath)
		}
		return 0, fmt.Errorf("open source file %q: %w", sourcePath, err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	if hasHeader {
		header, err := reader.Read()
		if err == io.EOF {
			header = nil
		} else if err != nil {
			return 0, domain.ErrSchemaMismatch("read CSV header of %q: %v", sourcePath, err)
		}
		if len(columns) == 0 {
			columns = header
		}
	}

	// fieldFor[c] locates the CSV field feeding schema column c.
	fieldFor := make([]int, len(schema.Columns))
	if len(columns) == 0 {
		for i := range fieldFor {
			fieldFor[i] = i
		}
	} else {
		for i := range fieldFor {
			fieldFor[i] = -1
		}
		for fieldIdx, colName := range columns {
			idx, ok := schema.ColumnIndex(colName)
			if !ok {
				return 0, domain.ErrUnknownColumn(colName)
			}
			fieldFor[idx] = fieldIdx
		}
		for i, col := range schema.Columns {
			if fieldFor[i] < 0 {
				return 0, domain.ErrSchemaMismatch("CSV mapping does not cover column %q", col.Name)
			}
		}
	}

	var rows [][]domain.Value
	line := 1
	if hasHeader {
		line++
	}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, domain.ErrSchemaMismatch("read CSV line %d of %q: %v", line, sourcePath, err)
		}
		row := make([]domain.Value, len(schema.Columns))
		for c, col := range schema.Columns {
			fieldIdx := fieldFor[c]
			if fieldIdx >= len(record) {
				return 0, domain.ErrSchemaMismatch("CSV line %d has %d fields, column %q needs field %d",
					line, len(record), col.Name, fieldIdx+1)
			}
			field := record[fieldIdx]
			switch col.Type {
			case domain.TypeInt64:
				v, err := strconv.ParseInt(field, 10, 64)
				if err != nil {
					return 0, domain.ErrSchemaMismatch("CSV line %d: column %q expects int64, got %q",
						line, col.Name, field)
				}
				row[c] = domain.Int64(v)
			case domain.TypeText:
				row[c] = domain.Text(field)
			}
		}
		rows = append(rows, row)
		line++
	}

	if len(rows) == 0 {
		return 0, nil
	}
	if err := e.tables.InsertRows(name, rows); err != nil {
		return 0, err
	}
	e.logger.Info("csv copy complete", "table", name, "source", sourcePath, "rows", len(rows))
	return len(rows), nil
}
