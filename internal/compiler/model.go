package compiler

import (
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/dish/internal/ir"
)

// RulesMarker terminates the element section.
const RulesMarker = "Rules:"

// ParseOptions controls optional grammar features.
type ParseOptions struct {
	// Weighted requires every top-level rule entry to carry a selection
	// weight and builds the model's ProbabilityTable.
	Weighted bool
}

var (
	// "{" or "*{", optionally followed by a weight
	groupOpenRE = regexp.MustCompile(`^(\*?)\{\s*(.*)$`)

	// "N:{" or "N*:{", optionally followed by a weight
	rankedGroupRE = regexp.MustCompile(`^(\d+)\s*(\*?)\s*:\s*\{\s*(.*)$`)

	// "N: <assignment>"
	rankedRuleRE = regexp.MustCompile(`^(\d+)\s*:\s*(.*)$`)

	// "lvalue = expr ;" plus anything trailing the semicolon
	assignmentRE = regexp.MustCompile(`^([^=;]+)=([^;]*);(.*)$`)

	// "}" plus anything trailing the brace
	groupCloseRE = regexp.MustCompile(`^\}\s*(.*)$`)
)

// ParseModelString parses model text held in a string.
func ParseModelString(text string, opts ParseOptions) (*ir.Model, error) {
	return ParseModel(strings.NewReader(text), opts)
}

// ParseModel reads a model description and returns the resolved model.
//
// The first error aborts the load; no partial model is returned.
func ParseModel(r io.Reader, opts ParseOptions) (*ir.Model, error) {
	cur, err := newLineCursor(r)
	if err != nil {
		return nil, err
	}

	m := ir.NewModel()
	if err := parseElements(cur, m); err != nil {
		return nil, err
	}
	if err := parseRules(cur, m, opts); err != nil {
		return nil, err
	}
	if err := resolve(m); err != nil {
		return nil, err
	}

	slog.Debug("model loaded",
		"elements", len(m.Elements),
		"groups", len(m.Groups),
		"rules", m.RuleCount(),
		"ranked_groups", m.Schedule.Len(),
		"weighted", m.Weighted(),
	)
	return m, nil
}

// parseElements consumes element declarations up to the Rules: marker.
func parseElements(cur *lineCursor, m *ir.Model) error {
	for {
		l, ok := cur.next()
		if !ok {
			return nil
		}
		if strings.Contains(l.text, RulesMarker) {
			return nil
		}

		e, err := parseElement(l)
		if err != nil {
			return err
		}
		if _, ok := m.AddElement(e); !ok {
			return &LoadError{
				Code:    ErrCodeDuplicateElement,
				Line:    l.num,
				Element: e.Name,
				Message: "repeating element: " + e.Name,
			}
		}
	}
}

// parseElement parses "name = true|false|random [toggleCycle]".
func parseElement(l sourceLine) (ir.Element, error) {
	name, value, found := strings.Cut(l.text, "=")
	if !found {
		return ir.Element{}, newLoadError(ErrCodeInvalidElementSyntax, l.num, "expected 'name = value', got %q", l.text)
	}

	e := ir.Element{Name: strings.TrimSpace(name), Line: l.num}
	if err := checkName(e.Name, l.num, ErrCodeInvalidElementSyntax); err != nil {
		return ir.Element{}, err
	}

	fields := strings.Fields(value)
	if len(fields) < 1 || len(fields) > 2 {
		return ir.Element{}, newLoadError(ErrCodeInvalidElementSyntax, l.num,
			"element %s: expected 'value [toggleCycle]', got %q", e.Name, strings.TrimSpace(value))
	}

	switch strings.ToLower(fields[0]) {
	case litTrue:
		e.Init = 1
	case litFalse:
		e.Init = 0
	case "random":
		e.Random = true
	default:
		return ir.Element{}, newLoadError(ErrCodeInvalidElementSyntax, l.num,
			"element %s: wrong initial value %q", e.Name, fields[0])
	}

	if len(fields) == 2 {
		at, err := strconv.Atoi(fields[1])
		if err != nil || at < 0 {
			return ir.Element{}, newLoadError(ErrCodeInvalidElementSyntax, l.num,
				"element %s: invalid toggle cycle %q", e.Name, fields[1])
		}
		e.HasToggle = true
		e.ToggleAt = at
	}
	return e, nil
}

// checkName rejects names that could not appear as an expression operand.
func checkName(name string, line int, code ErrorCode) error {
	if name == "" {
		return newLoadError(code, line, "missing element name")
	}
	if strings.ContainsFunc(name, func(r rune) bool {
		return isOperatorRune(r) || r == ' ' || r == '\t' || r == '{' || r == '}' || r == ':' || r == ';'
	}) {
		return newLoadError(code, line, "invalid element name %q", name)
	}
	if strings.EqualFold(name, litTrue) || strings.EqualFold(name, litFalse) {
		return newLoadError(code, line, "element name %q is reserved", name)
	}
	return nil
}

// entry is one recognized top-level rule entry.
type entry struct {
	group     ir.ExecGroup
	weight    float64
	hasWeight bool
}

// parseRules consumes the rule section and fills m's groups, schedule
// table and, when weighted, probability table.
func parseRules(cur *lineCursor, m *ir.Model, opts ParseOptions) error {
	fold := &probabilityFold{}

	for {
		l, ok := cur.next()
		if !ok {
			break
		}

		e, err := recognizeEntry(cur, l, opts)
		if err != nil {
			return err
		}

		gi := len(m.Groups)
		if opts.Weighted {
			if !e.hasWeight {
				return newLoadError(ErrCodeProbabilityMass, l.num, "no probability given for rule entry")
			}
			e.group.Weight = e.weight
			if err := fold.add(e.weight, gi, l.num); err != nil {
				return err
			}
		}
		m.Groups = append(m.Groups, e.group)
		if e.group.Ranked {
			m.Schedule.Add(e.group.Rank, gi)
		}
	}

	if opts.Weighted {
		table, err := fold.finish()
		if err != nil {
			return err
		}
		m.Probability = table
	}
	return nil
}

// recognizeEntry classifies l into one of the six grammar forms and
// consumes the group body from cur when l opens a group.
func recognizeEntry(cur *lineCursor, l sourceLine, opts ParseOptions) (entry, error) {
	if sub := rankedGroupRE.FindStringSubmatch(l.text); sub != nil {
		rank, err := strconv.Atoi(sub[1])
		if err != nil {
			return entry{}, newLoadError(ErrCodeInvalidRuleSyntax, l.num, "invalid rank %q", sub[1])
		}
		e, err := parseGroup(cur, l, sub[2] == "*", sub[3], opts)
		if err != nil {
			return entry{}, err
		}
		e.group.Ranked = true
		e.group.Rank = rank
		return e, nil
	}

	if sub := groupOpenRE.FindStringSubmatch(l.text); sub != nil {
		return parseGroup(cur, l, sub[1] == "*", sub[2], opts)
	}

	if sub := rankedRuleRE.FindStringSubmatch(l.text); sub != nil {
		rank, err := strconv.Atoi(sub[1])
		if err != nil {
			return entry{}, newLoadError(ErrCodeInvalidRuleSyntax, l.num, "invalid rank %q", sub[1])
		}
		e, err := parseSingle(sourceLine{text: sub[2], num: l.num}, opts)
		if err != nil {
			return entry{}, err
		}
		e.group.Ranked = true
		e.group.Rank = rank
		return e, nil
	}

	if assignmentRE.MatchString(l.text) {
		return parseSingle(l, opts)
	}

	return entry{}, newLoadError(ErrCodeInvalidRuleSyntax, l.num, "invalid rule: %s", l.text)
}

// parseSingle parses a one-rule asynchronous entry.
func parseSingle(l sourceLine, opts ParseOptions) (entry, error) {
	rule, trailing, err := parseAssignment(l)
	if err != nil {
		return entry{}, err
	}

	e := entry{group: ir.ExecGroup{
		Rules: []ir.Rule{rule},
		Mode:  ir.CommitAsync,
		Line:  l.num,
	}}
	if opts.Weighted {
		w, err := parseWeight(trailing, l.num)
		if err != nil {
			return entry{}, err
		}
		e.weight, e.hasWeight = w, true
	}
	return e, nil
}

// parseGroup consumes a group body up to the closing brace. The weight of a
// weighted group may follow either the opening or the closing brace.
func parseGroup(cur *lineCursor, open sourceLine, async bool, headerTail string, opts ParseOptions) (entry, error) {
	e := entry{group: ir.ExecGroup{Mode: ir.CommitSync, Line: open.num}}
	if async {
		e.group.Mode = ir.CommitAsync
	}

	if headerTail != "" {
		if !opts.Weighted {
			return entry{}, newLoadError(ErrCodeInvalidRuleSyntax, open.num, "unexpected text after '{': %q", headerTail)
		}
		w, err := parseWeight(headerTail, open.num)
		if err != nil {
			return entry{}, err
		}
		e.weight, e.hasWeight = w, true
	}

	for {
		l, ok := cur.next()
		if !ok {
			return entry{}, newLoadError(ErrCodeInvalidRuleSyntax, open.num, "group opened here is never closed")
		}

		if sub := groupCloseRE.FindStringSubmatch(l.text); sub != nil {
			tail := sub[1]
			if tail == "" {
				return e, nil
			}
			if !opts.Weighted || e.hasWeight {
				return entry{}, newLoadError(ErrCodeInvalidRuleSyntax, l.num, "unexpected text after '}': %q", tail)
			}
			w, err := parseWeight(tail, l.num)
			if err != nil {
				return entry{}, err
			}
			e.weight, e.hasWeight = w, true
			return e, nil
		}

		if !assignmentRE.MatchString(l.text) {
			return entry{}, newLoadError(ErrCodeInvalidRuleSyntax, l.num, "invalid rule in group: %s", l.text)
		}
		rule, trailing, err := parseAssignment(l)
		if err != nil {
			return entry{}, err
		}
		if strings.TrimSpace(trailing) != "" {
			return entry{}, newLoadError(ErrCodeInvalidRuleSyntax, l.num, "unexpected text after ';' in group: %q", trailing)
		}
		e.group.Rules = append(e.group.Rules, rule)
	}
}

// parseAssignment parses "lvalue = expr ;" and returns the compiled rule and
// whatever follows the semicolon.
func parseAssignment(l sourceLine) (ir.Rule, string, error) {
	sub := assignmentRE.FindStringSubmatch(l.text)
	if sub == nil {
		return ir.Rule{}, "", newLoadError(ErrCodeInvalidRuleSyntax, l.num, "invalid rule: %s", l.text)
	}

	target := strings.TrimSpace(sub[1])
	if err := checkName(target, l.num, ErrCodeInvalidRuleSyntax); err != nil {
		return ir.Rule{}, "", err
	}

	source := strings.TrimSpace(sub[2])
	tokens, err := compileTokens(source)
	if err != nil {
		return ir.Rule{}, "", atLine(err, l.num)
	}

	return ir.Rule{
		Target:     -1,
		TargetName: target,
		Source:     source,
		Expr:       tokens,
		Line:       l.num,
	}, sub[3], nil
}
