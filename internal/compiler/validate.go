package compiler

import (
	"fmt"

	"github.com/roach88/dish/internal/ir"
)

// Warning codes (W100-W199)
const (
	// Element warnings (W101-W109)
	WarnConstantElement = "W101" // element is never the target of a rule
	WarnUnusedElement   = "W102" // element is neither a target nor an operand

	// Schedule warnings (W110-W119)
	WarnUnrankedIgnored = "W110" // unranked groups never run under ranked scheduling
	WarnDuplicateTarget = "W111" // sync group writes the same element twice
	WarnEmptyGroup      = "W112" // group contains no rules
	WarnConstantRule    = "W113" // rule expression reads no element
)

// Warning is a static finding about a loaded model. Warnings never prevent
// a model from being simulated.
type Warning struct {
	Code    string `json:"code"`
	Element string `json:"element,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// String formats the warning for terminal output.
func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s", w.Code, w.Line, w.Message)
	}
	return fmt.Sprintf("[%s] %s", w.Code, w.Message)
}

// Validate checks a loaded model for constructs that are legal but likely
// unintended. Returns all findings (does not fail-fast).
func Validate(m *ir.Model) []Warning {
	var warns []Warning

	targeted := make([]bool, len(m.Elements))
	read := make([]bool, len(m.Elements))
	ranked, unranked := 0, 0

	for _, g := range m.Groups {
		if g.Ranked {
			ranked++
		} else {
			unranked++
		}

		if len(g.Rules) == 0 {
			warns = append(warns, Warning{
				Code:    WarnEmptyGroup,
				Message: "group contains no rules",
				Line:    g.Line,
			})
		}

		written := make(map[int]bool)
		for _, r := range g.Rules {
			if r.Target >= 0 {
				targeted[r.Target] = true
			}

			// W111: later write silently wins in a sync group
			if g.Mode == ir.CommitSync && written[r.Target] {
				warns = append(warns, Warning{
					Code:    WarnDuplicateTarget,
					Element: r.TargetName,
					Message: fmt.Sprintf("sync group assigns %s more than once; the last assignment wins", r.TargetName),
					Line:    r.Line,
				})
			}
			written[r.Target] = true

			operands := 0
			for _, tok := range r.Expr {
				if tok.Kind == ir.TokOperand && tok.Index >= 0 {
					read[tok.Index] = true
					operands++
				}
			}
			if operands == 0 {
				warns = append(warns, Warning{
					Code:    WarnConstantRule,
					Element: r.TargetName,
					Message: fmt.Sprintf("rule for %s reads no element: %s", r.TargetName, r.Source),
					Line:    r.Line,
				})
			}
		}
	}

	// W110: ranked scheduling runs only the schedule table
	if ranked > 0 && unranked > 0 {
		warns = append(warns, Warning{
			Code:    WarnUnrankedIgnored,
			Message: fmt.Sprintf("%d unranked group(s) will not run when ranked scheduling is enabled", unranked),
		})
	}

	for i, e := range m.Elements {
		switch {
		case !targeted[i] && !read[i]:
			warns = append(warns, Warning{
				Code:    WarnUnusedElement,
				Element: e.Name,
				Message: fmt.Sprintf("element %s is never assigned or read", e.Name),
				Line:    e.Line,
			})
		case !targeted[i] && !e.HasToggle:
			warns = append(warns, Warning{
				Code:    WarnConstantElement,
				Element: e.Name,
				Message: fmt.Sprintf("element %s is never assigned and keeps its initial value", e.Name),
				Line:    e.Line,
			})
		}
	}

	return warns
}
