package domain

import "fmt"

// ColumnType enumerates the scalar kinds a column can hold. The type of a
// column is fixed for the lifetime of its table.
type ColumnType int

const (
	TypeInt64 ColumnType = iota
	TypeText
)

// String returns the canonical wire name of the type.
func (t ColumnType) String() string {
	switch t {
	case TypeInt64:
		return "int64"
	case TypeText:
		return "text"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

// ParseColumnType parses a canonical type name back into a ColumnType.
func ParseColumnType(s string) (ColumnType, error) {
	switch s {
	case "int64":
		return TypeInt64, nil
	case "text":
		return TypeText, nil
	default:
		return 0, fmt.Errorf("unknown column type %q", s)
	}
}

// Value is a single scalar cell. Exactly the fields implied by Type are
// meaningful; the zero Value is an int64 zero.
type Value struct {
	Type ColumnType
	Int  int64
	Text string
}

// Int64 creates an int64 Value.
func Int64(v int64) Value { return Value{Type: TypeInt64, Int: v} }

// Text creates a text Value.
func Text(s string) Value { return Value{Type: TypeText, Text: s} }

// Native returns the value as a plain Go scalar for serialization.
func (v Value) Native() interface{} {
	if v.Type == TypeText {
		return v.Text
	}
	return v.Int
}

func (v Value) String() string {
	if v.Type == TypeText {
		return v.Text
	}
	return fmt.Sprintf("%d", v.Int)
}
