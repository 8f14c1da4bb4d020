package domain

// ColumnExpression is a node in a predicate tree. Trees are finite and
// acyclic; children are held behind pointers so that nesting depth is
// bounded only by memory.
type ColumnExpression interface {
	exprNode()
}

// Literal is a constant scalar leaf.
type Literal struct {
	Value Value
}

func (*Literal) exprNode() {}

// ColumnRef references a column by name; it resolves to the row value at the
// schema position of that column.
type ColumnRef struct {
	Name string
}

func (*ColumnRef) exprNode() {}

// CompareOp enumerates the comparison operators.
type CompareOp int

const (
	CompareEq CompareOp = iota
	CompareNe
	CompareLt
	CompareLe
	CompareGt
	CompareGe
)

// String returns the operator's wire spelling.
func (op CompareOp) String() string {
	switch op {
	case CompareEq:
		return "="
	case CompareNe:
		return "!="
	case CompareLt:
		return "<"
	case CompareLe:
		return "<="
	case CompareGt:
		return ">"
	case CompareGe:
		return ">="
	default:
		return "?"
	}
}

// ParseCompareOp parses a comparison operator's wire spelling.
func ParseCompareOp(s string) (CompareOp, bool) {
	switch s {
	case "=", "==":
		return CompareEq, true
	case "!=", "<>":
		return CompareNe, true
	case "<":
		return CompareLt, true
	case "<=":
		return CompareLe, true
	case ">":
		return CompareGt, true
	case ">=":
		return CompareGe, true
	default:
		return 0, false
	}
}

// Comparison applies a comparison operator to two sub-expressions.
type Comparison struct {
	Op    CompareOp
	Left  ColumnExpression
	Right ColumnExpression
}

func (*Comparison) exprNode() {}

// LogicalOp enumerates the boolean connectives.
type LogicalOp int

const (
	LogicalAnd LogicalOp = iota
	LogicalOr
	LogicalNot
)

// String returns the operator's wire spelling.
func (op LogicalOp) String() string {
	switch op {
	case LogicalAnd:
		return "and"
	case LogicalOr:
		return "or"
	case LogicalNot:
		return "not"
	default:
		return "?"
	}
}

// ParseLogicalOp parses a logical operator's wire spelling.
func ParseLogicalOp(s string) (LogicalOp, bool) {
	switch s {
	case "and", "AND":
		return LogicalAnd, true
	case "or", "OR":
		return LogicalOr, true
	case "not", "NOT":
		return LogicalNot, true
	default:
		return 0, false
	}
}

// Logical combines boolean sub-expressions. Right is nil for the unary NOT.
type Logical struct {
	Op    LogicalOp
	Left  ColumnExpression
	Right ColumnExpression
}

func (*Logical) exprNode() {}
