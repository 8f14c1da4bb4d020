package api

import (
	"encoding/json"
	"fmt"

	"isdb/internal/domain"
)

// ColumnPayload is the wire form of a column definition.
type ColumnPayload struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// CreateTableRequest is the body of POST /v1/tables.
type CreateTableRequest struct {
	Name    string          `json:"name"`
	Columns []ColumnPayload `json:"columns"`
}

// ToSchema converts the request into a domain schema.
func (r CreateTableRequest) ToSchema() (domain.TableSchema, error) {
	columns := make([]domain.ColumnSchema, 0, len(r.Columns))
	for _, col := range r.Columns {
		colType, err := domain.ParseColumnType(col.Type)
		if err != nil {
			return domain.TableSchema{}, domain.ErrInvalidSchema("column %q: %v", col.Name, err)
		}
		columns = append(columns, domain.ColumnSchema{Name: col.Name, Type: colType})
	}
	return domain.TableSchema{Name: r.Name, Columns: columns}, nil
}

// TableSummaryPayload is one entry of GET /v1/tables.
type TableSummaryPayload struct {
	Name     string `json:"name"`
	RowCount int    `json:"row_count"`
}

// TableResponse is the body of GET /v1/tables/{name}.
type TableResponse struct {
	Name     string          `json:"name"`
	Columns  []ColumnPayload `json:"columns"`
	RowCount int             `json:"row_count"`
}

func columnsPayload(schema domain.TableSchema) []ColumnPayload {
	columns := make([]ColumnPayload, len(schema.Columns))
	for i, col := range schema.Columns {
		columns[i] = ColumnPayload{Name: col.Name, Type: col.Type.String()}
	}
	return columns
}

// InsertRequest is the body of POST /v1/tables/{name}/rows.
type InsertRequest struct {
	Values []interface{} `json:"values"`
}

// ToRow converts wire values into domain values by JSON type. Type
// agreement with the schema is enforced by the table store, not here.
func (r InsertRequest) ToRow() ([]domain.Value, error) {
	row := make([]domain.Value, len(r.Values))
	for i, raw := range r.Values {
		v, err := valueFromJSON(raw)
		if err != nil {
			return nil, domain.ErrSchemaMismatch("value %d: %v", i, err)
		}
		row[i] = v
	}
	return row, nil
}

func valueFromJSON(raw interface{}) (domain.Value, error) {
	switch v := raw.(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return domain.Value{}, fmt.Errorf("%q is not an int64", v.String())
		}
		return domain.Int64(n), nil
	case string:
		return domain.Text(v), nil
	default:
		return domain.Value{}, fmt.Errorf("unsupported value %v (%T)", raw, raw)
	}
}

// ExpressionPayload is the wire form of a predicate tree node, tagged by
// kind: "literal", "column", "comparison", or "logical".
type ExpressionPayload struct {
	Kind string `json:"kind"`

	// literal
	Value interface{} `json:"value,omitempty"`

	// column
	Name string `json:"name,omitempty"`

	// comparison: op in {=, !=, <, <=, >, >=}
	// logical: op in {and, or, not}; "not" uses only Left
	Op    string             `json:"op,omitempty"`
	Left  *ExpressionPayload `json:"left,omitempty"`
	Right *ExpressionPayload `json:"right,omitempty"`
}

// ToExpression converts the payload into a domain predicate tree,
// validating node kinds, operators, and operand presence.
func (p *ExpressionPayload) ToExpression() (domain.ColumnExpression, error) {
	switch p.Kind {
	case "literal":
		v, err := valueFromJSON(p.Value)
		if err != nil {
			return nil, fmt.Errorf("literal: %v", err)
		}
		return &domain.Literal{Value: v}, nil

	case "column":
		if p.Name == "" {
			return nil, fmt.Errorf("column node requires a name")
		}
		return &domain.ColumnRef{Name: p.Name}, nil

	case "comparison":
		op, ok := domain.ParseCompareOp(p.Op)
		if !ok {
			return nil, fmt.Errorf("unknown comparison operator %q", p.Op)
		}
		if p.Left == nil || p.Right == nil {
			return nil, fmt.Errorf("comparison %s requires left and right operands", op)
		}
		left, err := p.Left.ToExpression()
		if err != nil {
			return nil, err
		}
		right, err := p.Right.ToExpression()
		if err != nil {
			return nil, err
		}
		return &domain.Comparison{Op: op, Left: left, Right: right}, nil

	case "logical":
		op, ok := domain.ParseLogicalOp(p.Op)
		if !ok {
			return nil, fmt.Errorf("unknown logical operator %q", p.Op)
		}
		if p.Left == nil {
			return nil, fmt.Errorf("logical %s requires an operand", op)
		}
		left, err := p.Left.ToExpression()
		if err != nil {
			return nil, err
		}
		if op == domain.LogicalNot {
			if p.Right != nil {
				return nil, fmt.Errorf("logical not takes a single operand")
			}
			return &domain.Logical{Op: op, Left: left}, nil
		}
		if p.Right == nil {
			return nil, fmt.Errorf("logical %s requires two operands", op)
		}
		right, err := p.Right.ToExpression()
		if err != nil {
			return nil, err
		}
		return &domain.Logical{Op: op, Left: left, Right: right}, nil

	default:
		return nil, fmt.Errorf("unknown expression kind %q", p.Kind)
	}
}

// QueryRequest is the body of POST /v1/tables/{name}/query.
type QueryRequest struct {
	Predicate *ExpressionPayload `json:"predicate,omitempty"`
	Limit     int                `json:"limit,omitempty"`
}

// QueryResponse is the result of a select: columns in schema order and
// matching rows in insertion order.
type QueryResponse struct {
	Columns  []ColumnPayload `json:"columns"`
	Rows     [][]interface{} `json:"rows"`
	RowCount int             `json:"row_count"`
}

// CopyRequest is the body of POST /v1/tables/{name}/copy.
type CopyRequest struct {
	SourceFilepath string   `json:"source_filepath"`
	Columns        []string `json:"columns,omitempty"`
	Header         bool     `json:"header,omitempty"`
}

// CopyResponse reports the number of CSV rows loaded.
type CopyResponse struct {
	RowsLoaded int `json:"rows_loaded"`
}

// SystemInfoResponse is the body of GET /v1/system/info.
type SystemInfoResponse struct {
	ServerVersion    string `json:"server_version"`
	InterfaceVersion string `json:"interface_version"`
	Author           string `json:"author"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
