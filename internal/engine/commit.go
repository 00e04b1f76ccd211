package engine

import (
	"github.com/roach88/dish/internal/ir"
)

// write is a buffered (target, value) pair of a synchronous commit.
type write struct {
	target int
	value  uint8
}

// commitGroup executes one group under its own discipline.
//
// Asynchronous groups write each result immediately, so later rules see it.
// Synchronous groups evaluate every rule against the pre-group values and
// then write in rule order; for a repeated target the last write wins.
func (s *Simulator) commitGroup(g *ir.ExecGroup) error {
	if g.Mode == ir.CommitAsync {
		for i := range g.Rules {
			r := &g.Rules[i]
			v, err := s.evalRule(r)
			if err != nil {
				return err
			}
			s.values[r.Target] = v
		}
		return nil
	}

	s.pending = s.pending[:0]
	if err := s.buffer(g); err != nil {
		return err
	}
	s.flush()
	return nil
}

// commitAll executes groups as one synchronous step: every rule of every
// group reads the cycle-start values and all writes land together.
func (s *Simulator) commitAll(groups []int) error {
	s.pending = s.pending[:0]
	for _, gi := range groups {
		if err := s.buffer(&s.model.Groups[gi]); err != nil {
			return err
		}
	}
	s.flush()
	return nil
}

func (s *Simulator) buffer(g *ir.ExecGroup) error {
	for i := range g.Rules {
		r := &g.Rules[i]
		v, err := s.evalRule(r)
		if err != nil {
			return err
		}
		s.pending = append(s.pending, write{target: r.Target, value: v})
	}
	return nil
}

func (s *Simulator) flush() {
	for _, w := range s.pending {
		s.values[w.target] = w.value
	}
	s.pending = s.pending[:0]
}

func (s *Simulator) evalRule(r *ir.Rule) (uint8, error) {
	if r.Target < 0 || r.Target >= len(s.values) {
		return 0, s.annotate(newRuntimeError(ErrCodeUnknownElement,
			"rule target %s doesn't exist", r.TargetName), r.TargetName)
	}
	v, err := Eval(r.Expr, s.values)
	if err != nil {
		return 0, s.annotate(err, r.TargetName)
	}
	return v, nil
}
