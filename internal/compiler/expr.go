package compiler

import (
	"strings"
	"unicode"

	"github.com/roach88/dish/internal/ir"
)

// Operator characters of the expression language.
const (
	opNot    = "!"
	opAnd    = "*"
	opOr     = "+"
	opLParen = "("
	opRParen = ")"
)

// Literal operands.
const (
	litTrue  = "true"
	litFalse = "false"
)

// precedence of stacked operators. "(" is a barrier and never popped by an
// operator, only by a matching ")".
var precedence = map[string]int{
	opLParen: 0,
	opOr:     1,
	opAnd:    2,
	opNot:    3,
}

func isOperatorRune(r rune) bool {
	return r == '!' || r == '*' || r == '+' || r == '(' || r == ')'
}

// tokenize splits infix on the operator characters and whitespace.
// Operators become single-character tokens; whitespace is dropped.
func tokenize(infix string) []string {
	var tokens []string
	var operand strings.Builder

	flush := func() {
		if operand.Len() > 0 {
			tokens = append(tokens, operand.String())
			operand.Reset()
		}
	}

	for _, r := range infix {
		switch {
		case isOperatorRune(r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsSpace(r):
			flush()
		default:
			operand.WriteRune(r)
		}
	}
	flush()
	return tokens
}

// CompileExpression translates an infix expression into postfix order.
//
// Precedence is ! > * > +. Binary operators are left associative; the
// prefix ! is right associative, so "!!a" compiles to "a ! !". Any token
// that is not an operator is an operand and is emitted verbatim.
//
// Returns a MALFORMED_EXPRESSION LoadError for unbalanced parentheses, an
// empty expression, or operators missing operands.
func CompileExpression(infix string) ([]string, error) {
	var (
		out   []string
		stack []string
	)

	for _, tok := range tokenize(infix) {
		switch tok {
		case opLParen, opNot:
			stack = append(stack, tok)

		case opAnd, opOr:
			for len(stack) > 0 {
				top := stack[len(stack)-1]
				if top == opLParen || precedence[top] < precedence[tok] {
					break
				}
				out = append(out, top)
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, tok)

		case opRParen:
			for {
				if len(stack) == 0 {
					return nil, newLoadError(ErrCodeMalformedExpression, 0,
						"parentheses mismatched in %q: unmatched ')'", infix)
				}
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if top == opLParen {
					break
				}
				out = append(out, top)
			}

		default:
			out = append(out, tok)
		}
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top == opLParen {
			return nil, newLoadError(ErrCodeMalformedExpression, 0,
				"parentheses mismatched in %q: unmatched '('", infix)
		}
		out = append(out, top)
	}

	if err := checkArity(infix, out); err != nil {
		return nil, err
	}
	return out, nil
}

// checkArity simulates stack depth over postfix to reject expressions the
// evaluator could not reduce to exactly one value.
func checkArity(infix string, postfix []string) error {
	depth := 0
	for _, tok := range postfix {
		switch tok {
		case opNot:
			if depth < 1 {
				return newLoadError(ErrCodeMalformedExpression, 0, "operator '!' missing operand in %q", infix)
			}
		case opAnd, opOr:
			if depth < 2 {
				return newLoadError(ErrCodeMalformedExpression, 0, "operator '%s' missing operand in %q", tok, infix)
			}
			depth--
		default:
			depth++
		}
	}
	if depth != 1 {
		if depth == 0 {
			return newLoadError(ErrCodeMalformedExpression, 0, "empty expression")
		}
		return newLoadError(ErrCodeMalformedExpression, 0, "expression %q leaves %d operands without operators", infix, depth)
	}
	return nil
}

// compileTokens compiles infix into unresolved postfix tokens.
// Operand indices are -1 until the resolution pass runs.
func compileTokens(infix string) ([]ir.Token, error) {
	postfix, err := CompileExpression(infix)
	if err != nil {
		return nil, err
	}

	tokens := make([]ir.Token, len(postfix))
	for i, text := range postfix {
		tok := ir.Token{Text: text, Index: -1}
		switch {
		case text == opNot:
			tok.Kind = ir.TokNot
		case text == opAnd:
			tok.Kind = ir.TokAnd
		case text == opOr:
			tok.Kind = ir.TokOr
		case strings.EqualFold(text, litTrue):
			tok.Kind = ir.TokConst
			tok.Value = 1
		case strings.EqualFold(text, litFalse):
			tok.Kind = ir.TokConst
		default:
			tok.Kind = ir.TokOperand
		}
		tokens[i] = tok
	}
	return tokens, nil
}
