// Package engine evaluates predicate trees and orchestrates the metastore
// and table store into the engine's query operations.
package engine

import (
	"fmt"
	"strings"

	"isdb/internal/domain"
)

type operandKind int

const (
	operandInt operandKind = iota
	operandText
	operandBool
)

func (k operandKind) String() string {
	switch k {
	case operandInt:
		return "int64"
	case operandText:
		return "text"
	default:
		return "bool"
	}
}

// operand is an intermediate evaluation result: a column value or the
// boolean output of a comparison or logical node.
type operand struct {
	kind operandKind
	i    int64
	s    string
	b    bool
}

func operandFromValue(v domain.Value) operand {
	if v.Type == domain.TypeText {
		return operand{kind: operandText, s: v.Text}
	}
	return operand{kind: operandInt, i: v.Int}
}

type evalFrame struct {
	expr    domain.ColumnExpression
	visited bool
}

// Evaluate reduces a predicate tree against a single row and returns its
// boolean result. Evaluation is iterative over an explicit stack, so
// dynamically built trees of arbitrary depth cannot overflow the goroutine
// stack. AND and OR evaluate both operands without short-circuiting, so an
// operand error surfaces regardless of the other side's value. Evaluation
// is deterministic: same expression, schema, and row always yield the same
// result.
func Evaluate(expr domain.ColumnExpression, schema domain.TableSchema, row []domain.Value) (bool, error) {
	if expr == nil {
		return false, fmt.Errorf("empty predicate expression")
	}

	stack := []evalFrame{{expr: expr}}
	var values []operand

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch node := f.expr.(type) {
		case *domain.Literal:
			values = append(values, operandFromValue(node.Value))

		case *domain.ColumnRef:
			idx, ok := schema.ColumnIndex(node.Name)
			if !ok {
				return false, domain.ErrUnknownColumn(node.Name)
			}
			values = append(values, operandFromValue(row[idx]))

		case *domain.Comparison:
			if !f.visited {
				if node.Left == nil || node.Right == nil {
					return false, fmt.Errorf("comparison %s is missing an operand", node.Op)
				}
				stack = append(stack,
					evalFrame{expr: f.expr, visited: true},
					evalFrame{expr: node.Right},
					evalFrame{expr: node.Left})
				continue
			}
			right := values[len(values)-1]
			left := values[len(values)-2]
			values = values[:len(values)-2]
			result, err := compare(node.Op, left, right)
			if err != nil {
				return false, err
			}
			values = append(values, operand{kind: operandBool, b: result})

		case *domain.Logical:
			if !f.visited {
				if node.Left == nil {
					return false, fmt.Errorf("logical %s is missing an operand", node.Op)
				}
				if node.Op == domain.LogicalNot {
					stack = append(stack,
						evalFrame{expr: f.expr, visited: true},
						evalFrame{expr: node.Left})
					continue
				}
				if node.Right == nil {
					return false, fmt.Errorf("logical %s is missing an operand", node.Op)
				}
				stack = append(stack,
					evalFrame{expr: f.expr, visited: true},
					evalFrame{expr: node.Right},
					evalFrame{expr: node.Left})
				continue
			}
			if node.Op == domain.LogicalNot {
				v := values[len(values)-1]
				values = values[:len(values)-1]
				if v.kind != operandBool {
					return false, domain.ErrTypeMismatch("not requires a boolean operand, got %s", v.kind)
				}
				values = append(values, operand{kind: operandBool, b: !v.b})
				continue
			}
			right := values[len(values)-1]
			left := values[len(values)-2]
			values = values[:len(values)-2]
			if left.kind != operandBool || right.kind != operandBool {
				return false, domain.ErrTypeMismatch("%s requires boolean operands, got %s and %s",
					node.Op, left.kind, right.kind)
			}
			var result bool
			if node.Op == domain.LogicalAnd {
				result = left.b && right.b
			} else {
				result = left.b || right.b
			}
			values = append(values, operand{kind: operandBool, b: result})

		default:
			return false, fmt.Errorf("unsupported expression node %T", f.expr)
		}
	}

	if len(values) != 1 {
		return false, fmt.Errorf("predicate evaluation left %d values on the stack", len(values))
	}
	if values[0].kind != operandBool {
		return false, domain.ErrTypeMismatch("predicate must evaluate to a boolean, got %s", values[0].kind)
	}
	return values[0].b, nil
}

func compare(op domain.CompareOp, left, right operand) (bool, error) {
	if left.kind != right.kind {
		return false, domain.ErrTypeMismatch("cannot compare %s with %s", left.kind, right.kind)
	}

	var ord int
	switch left.kind {
	case operandInt:
		switch {
		case left.i < right.i:
			ord = -1
		case left.i > right.i:
			ord = 1
		}
	case operandText:
		ord = strings.Compare(left.s, right.s)
	default:
		return false, domain.ErrTypeMismatch("comparison %s does not apply to boolean operands", op)
	}

	switch op {
	case domain.CompareEq:
		return ord == 0, nil
	case domain.CompareNe:
		return ord != 0, nil
	case domain.CompareLt:
		return ord < 0, nil
	case domain.CompareLe:
		return ord <= 0, nil
	case domain.CompareGt:
		return ord > 0, nil
	case domain.CompareGe:
		return ord >= 0, nil
	default:
		return false, fmt.Errorf("unknown comparison operator %d", int(op))
	}
}
