package engine

import (
	"github.com/roach88/dish/internal/ir"
)

// Eval runs a postfix expression against the value arena.
//
// Operands push values[Index]; constants push their literal. "!" maps 0 to 1
// and anything else to 0, "*" is the product and "+" saturates at 1.
// Returns UNKNOWN_ELEMENT for an operand outside the arena and
// CORRUPT_EXPRESSION if the stack underflows or ends with depth other than 1.
func Eval(expr []ir.Token, values []uint8) (uint8, error) {
	var buf [16]uint8
	stack := buf[:0]

	for _, tok := range expr {
		switch tok.Kind {
		case ir.TokOperand:
			if tok.Index < 0 || tok.Index >= len(values) {
				return 0, newRuntimeError(ErrCodeUnknownElement, "element %s doesn't exist", tok.Text)
			}
			stack = append(stack, values[tok.Index])

		case ir.TokConst:
			stack = append(stack, tok.Value)

		case ir.TokNot:
			if len(stack) < 1 {
				return 0, newRuntimeError(ErrCodeCorruptExpression, "operator ! has no operand")
			}
			top := len(stack) - 1
			if stack[top] == 0 {
				stack[top] = 1
			} else {
				stack[top] = 0
			}

		case ir.TokAnd, ir.TokOr:
			if len(stack) < 2 {
				return 0, newRuntimeError(ErrCodeCorruptExpression, "operator %s needs two operands", tok.Text)
			}
			b := stack[len(stack)-1]
			a := stack[len(stack)-2]
			stack = stack[:len(stack)-2]
			stack = append(stack, combine(tok.Kind, a, b))

		default:
			return 0, newRuntimeError(ErrCodeCorruptExpression, "unknown token %q", tok.Text)
		}
	}

	if len(stack) != 1 {
		return 0, newRuntimeError(ErrCodeCorruptExpression, "expression left %d values on the stack", len(stack))
	}
	return stack[0], nil
}

func combine(kind ir.TokenKind, a, b uint8) uint8 {
	if kind == ir.TokAnd {
		return a * b
	}
	if a+b > 0 {
		return 1
	}
	return 0
}
