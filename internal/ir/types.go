package ir

import (
	"fmt"
	"slices"
)

// CommitMode is the write discipline of an ExecGroup.
type CommitMode int

const (
	// CommitAsync writes each rule's result immediately; later rules in the
	// group observe earlier writes.
	CommitAsync CommitMode = iota
	// CommitSync evaluates every rule against the pre-group values and
	// writes all results once the whole group has been evaluated.
	CommitSync
)

// String returns "async" or "sync".
func (m CommitMode) String() string {
	if m == CommitSync {
		return "sync"
	}
	return "async"
}

// Element is a named two-valued state variable.
// The current value lives in the simulator's value arena, not here.
type Element struct {
	Name string `json:"name"`
	Init uint8  `json:"init"`

	// Random elements are re-sampled with a coin flip on every run reset.
	Random bool `json:"random,omitempty"`

	// HasToggle marks a one-shot toggle event at cycle ToggleAt.
	HasToggle bool `json:"has_toggle,omitempty"`
	ToggleAt  int  `json:"toggle_at,omitempty"`

	Line int `json:"line"` // 1-based source line
}

// TokenKind identifies a postfix token.
type TokenKind int

const (
	TokOperand TokenKind = iota + 1 // element reference
	TokConst                        // literal true/false
	TokNot                          // unary !
	TokAnd                          // binary *
	TokOr                           // binary +
)

// Token is one entry of a compiled postfix expression.
type Token struct {
	Kind TokenKind `json:"kind"`
	Text string    `json:"text"`

	// Index is the element arena index for TokOperand; -1 until resolved.
	Index int `json:"index"`

	// Value holds the literal for TokConst.
	Value uint8 `json:"value,omitempty"`
}

// Rule assigns the value of Expr to element Target.
type Rule struct {
	Target     int     `json:"target"`
	TargetName string  `json:"target_name"`
	Source     string  `json:"source"` // right-hand side as written
	Expr       []Token `json:"expr"`
	Line       int     `json:"line"`
}

// Postfix returns the compiled expression as space separated tokens.
func (r Rule) Postfix() string {
	buf := make([]byte, 0, len(r.Expr)*4)
	for i, tok := range r.Expr {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, tok.Text...)
	}
	return string(buf)
}

// ExecGroup is a set of rules sharing a commit discipline.
type ExecGroup struct {
	Rules []Rule     `json:"rules"`
	Mode  CommitMode `json:"mode"`

	// Ranked groups are scheduled by rank in ranked choice-asynchronous mode.
	Ranked bool `json:"ranked,omitempty"`
	Rank   int  `json:"rank,omitempty"`

	// Weight is the selection weight when probability weighting is enabled.
	Weight float64 `json:"weight,omitempty"`

	Line int `json:"line"` // line of the entry header
}

// ScheduleTable maps a rank to the groups declared at that rank, in
// declaration order.
type ScheduleTable struct {
	ranks  []int
	groups map[int][]int
}

// NewScheduleTable creates an empty table.
func NewScheduleTable() *ScheduleTable {
	return &ScheduleTable{groups: make(map[int][]int)}
}

// Add appends group index g to rank.
func (s *ScheduleTable) Add(rank, g int) {
	if _, ok := s.groups[rank]; !ok {
		idx, _ := slices.BinarySearch(s.ranks, rank)
		s.ranks = slices.Insert(s.ranks, idx, rank)
	}
	s.groups[rank] = append(s.groups[rank], g)
}

// Ranks returns the declared ranks in ascending order.
func (s *ScheduleTable) Ranks() []int {
	return s.ranks
}

// Groups returns the group indices declared at rank.
func (s *ScheduleTable) Groups(rank int) []int {
	return s.groups[rank]
}

// Len returns the number of ranked groups.
func (s *ScheduleTable) Len() int {
	n := 0
	for _, g := range s.groups {
		n += len(g)
	}
	return n
}

// ProbabilityTable is a strictly increasing cumulative weight sequence
// index-aligned with the groups it selects.
type ProbabilityTable struct {
	Cumulative []float64 `json:"cumulative"`
	Groups     []int     `json:"groups"`
}

// Locate returns the position in the table selected by draw, a value in [0,1).
//
// An exact tie with a cumulative bound returns that position; otherwise the
// smallest position whose bound exceeds draw. A draw above the final bound
// (possible within the final-sum tolerance) selects the last entry.
func (p *ProbabilityTable) Locate(draw float64) int {
	lo, hi := 0, len(p.Cumulative)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch {
		case draw < p.Cumulative[mid]:
			hi = mid - 1
		case draw > p.Cumulative[mid]:
			lo = mid + 1
		default:
			return mid
		}
	}
	if lo >= len(p.Cumulative) {
		return len(p.Cumulative) - 1
	}
	return lo
}

// Model is a loaded and resolved network model.
type Model struct {
	Elements    []Element         `json:"elements"`
	Groups      []ExecGroup       `json:"groups"`
	Schedule    *ScheduleTable    `json:"-"`
	Probability *ProbabilityTable `json:"probability,omitempty"`

	index map[string]int
}

// NewModel creates an empty model.
func NewModel() *Model {
	return &Model{
		Schedule: NewScheduleTable(),
		index:    make(map[string]int),
	}
}

// AddElement appends e to the arena and returns its index.
// Returns false if an element with the same name already exists.
func (m *Model) AddElement(e Element) (int, bool) {
	if _, exists := m.index[e.Name]; exists {
		return 0, false
	}
	idx := len(m.Elements)
	m.Elements = append(m.Elements, e)
	m.index[e.Name] = idx
	return idx, true
}

// Lookup returns the arena index of the named element.
func (m *Model) Lookup(name string) (int, bool) {
	idx, ok := m.index[name]
	return idx, ok
}

// Names returns element names in declaration order.
func (m *Model) Names() []string {
	names := make([]string, len(m.Elements))
	for i, e := range m.Elements {
		names[i] = e.Name
	}
	return names
}

// Weighted reports whether the model was loaded with probability weights.
func (m *Model) Weighted() bool {
	return m.Probability != nil
}

// RuleCount returns the total number of rules across all groups.
func (m *Model) RuleCount() int {
	n := 0
	for _, g := range m.Groups {
		n += len(g.Rules)
	}
	return n
}

// String returns a short description for logs.
func (m *Model) String() string {
	return fmt.Sprintf("model{elements=%d groups=%d ranked=%d weighted=%v}",
		len(m.Elements), len(m.Groups), m.Schedule.Len(), m.Weighted())
}
