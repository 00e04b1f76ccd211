package compiler

import (
	"github.com/roach88/dish/internal/ir"
)

// resolve replaces element names in every rule with arena indices.
// Runs once after parsing; unknown names are load errors.
func resolve(m *ir.Model) error {
	for gi := range m.Groups {
		rules := m.Groups[gi].Rules
		for ri := range rules {
			r := &rules[ri]

			idx, ok := m.Lookup(r.TargetName)
			if !ok {
				return &LoadError{
					Code:    ErrCodeUnknownElement,
					Line:    r.Line,
					Element: r.TargetName,
					Message: "element does not exist: " + r.TargetName,
				}
			}
			r.Target = idx

			if err := resolveTokens(r.Expr, m, r.Line); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveTokens sets the arena index of every operand in expr.
func resolveTokens(expr []ir.Token, m *ir.Model, line int) error {
	for ti := range expr {
		tok := &expr[ti]
		if tok.Kind != ir.TokOperand {
			continue
		}
		idx, ok := m.Lookup(tok.Text)
		if !ok {
			return &LoadError{
				Code:    ErrCodeUnknownElement,
				Line:    line,
				Element: tok.Text,
				Message: "element " + tok.Text + " doesn't exist",
			}
		}
		tok.Index = idx
	}
	return nil
}

// CompileResolved compiles infix and resolves its operands against the
// elements of m, ready for evaluation.
func CompileResolved(infix string, m *ir.Model) ([]ir.Token, error) {
	expr, err := compileTokens(infix)
	if err != nil {
		return nil, err
	}
	if err := resolveTokens(expr, m, 0); err != nil {
		return nil, err
	}
	return expr, nil
}
