package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/dish/internal/ir"
)

// Simulator executes one run at a time over a loaded model.
//
// The model is shared and read-only; the Simulator owns the value arena,
// the cycle counter, the per-element trace and the event trace of the
// current run. A Simulator is not safe for concurrent use. Run several
// Simulators over the same model instead.
//
// Each Step executes one cycle in three phases:
//  1. toggle: elements whose toggle cycle equals the counter flip
//  2. select and commit: the mode picks groups, each commits per its discipline
//  3. trace: every element's value is appended to its trace
type Simulator struct {
	model *ir.Model
	opts  Options
	rng   Rand

	values []uint8
	cycle  int

	// trace[e][0] is the initial value, trace[e][c+1] the value after cycle c
	trace [][]uint8

	// events[c] lists the groups committed in cycle c, in execution order
	events [][]int

	order   []int
	pending []write
}

// New creates a Simulator and resets it for its first run.
//
// Returns an INVALID_MODE RuntimeError for an unsupported option
// combination, or when weighted selection is requested for a model loaded
// without probabilities. Random-asynchronous mode over a model with no
// groups is a NO_GROUPS error.
func New(m *ir.Model, opts Options, rng Rand) (*Simulator, error) {
	if err := opts.Validate(); err != nil {
		return nil, modeError(opts, err)
	}
	if err := opts.checkModel(len(m.Groups), m.Weighted()); err != nil {
		return nil, modeError(opts, err)
	}

	s := &Simulator{
		model:  m,
		opts:   opts,
		rng:    rng,
		values: make([]uint8, len(m.Elements)),
		trace:  make([][]uint8, len(m.Elements)),
	}
	s.Reset()
	return s, nil
}

// Reset restores every element to its initial value, drawing a fresh coin
// flip for random elements, and clears the cycle counter and traces.
func (s *Simulator) Reset() {
	for i, e := range s.model.Elements {
		if e.Random {
			s.values[i] = coin(s.rng)
		} else {
			s.values[i] = e.Init
		}
	}
	s.begin()
}

// ResetTo starts a run from explicit initial values, one per element in
// arena order. Used to replay a recorded run whose random elements were
// already sampled.
func (s *Simulator) ResetTo(initial []uint8) error {
	if len(initial) != len(s.values) {
		return newRuntimeError(ErrCodeReplayMismatch,
			"got initial values for %d elements, model has %d", len(initial), len(s.values))
	}
	for i, v := range initial {
		if v > 1 {
			return newRuntimeError(ErrCodeReplayMismatch,
				"initial value %d for element %s is not 0 or 1", v, s.model.Elements[i].Name)
		}
	}
	copy(s.values, initial)
	s.begin()
	return nil
}

func (s *Simulator) begin() {
	s.cycle = 0
	s.events = nil
	for i, v := range s.values {
		s.trace[i] = []uint8{v}
	}
}

// Run executes cycles Steps.
func (s *Simulator) Run(cycles int) error {
	for range cycles {
		if err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step executes one cycle.
func (s *Simulator) Step() error {
	for i, e := range s.model.Elements {
		if e.HasToggle && e.ToggleAt == s.cycle {
			s.values[i] ^= 1
		}
	}

	groups, err := s.selectGroups()
	if err != nil {
		return s.annotate(err, "")
	}

	if s.opts.Mode == ModeSync {
		err = s.commitAll(groups)
	} else {
		for _, gi := range groups {
			if err = s.commitGroup(&s.model.Groups[gi]); err != nil {
				break
			}
		}
	}
	if err != nil {
		return err
	}

	committed := make([]int, len(groups))
	copy(committed, groups)
	s.events = append(s.events, committed)
	for i, v := range s.values {
		s.trace[i] = append(s.trace[i], v)
	}
	s.cycle++
	return nil
}

// selectGroups returns the group indices to run this cycle, in order.
// The returned slice is reused by the next call.
func (s *Simulator) selectGroups() ([]int, error) {
	s.order = s.order[:0]
	groups := s.model.Groups

	switch s.opts.Mode {
	case ModeRA:
		if s.opts.Weighted {
			p := s.model.Probability
			s.order = append(s.order, p.Groups[p.Locate(s.rng.Float64())])
		} else {
			s.order = append(s.order, s.rng.IntN(len(groups)))
		}

	case ModeCA:
		if s.opts.Ranked {
			for _, rank := range s.model.Schedule.Ranks() {
				start := len(s.order)
				s.order = append(s.order, s.model.Schedule.Groups(rank)...)
				s.shuffle(s.order[start:])
			}
		} else {
			for gi := range groups {
				s.order = append(s.order, gi)
			}
			s.shuffle(s.order)
		}

	case ModeSync:
		for gi := range groups {
			s.order = append(s.order, gi)
		}

	case ModeReplay:
		if s.cycle >= len(s.opts.Schedule) {
			return nil, newRuntimeError(ErrCodeReplayMismatch,
				"recording has %d cycles", len(s.opts.Schedule))
		}
		for _, gi := range s.opts.Schedule[s.cycle] {
			if gi < 0 || gi >= len(groups) {
				return nil, newRuntimeError(ErrCodeReplayMismatch,
					"recorded group %d does not exist in a model with %d groups", gi, len(groups))
			}
			s.order = append(s.order, gi)
		}
	}
	return s.order, nil
}

func (s *Simulator) shuffle(xs []int) {
	s.rng.Shuffle(len(xs), func(i, j int) {
		xs[i], xs[j] = xs[j], xs[i]
	})
}

// annotate stamps a RuntimeError with the current cycle and element.
func (s *Simulator) annotate(err error, element string) error {
	var re *RuntimeError
	if !errors.As(err, &re) {
		return fmt.Errorf("cycle %d: %w", s.cycle, err)
	}
	cp := *re
	cp.Cycle = s.cycle
	if element != "" {
		cp.Element = element
	}
	return &cp
}

// Cycle returns the number of cycles executed in the current run.
func (s *Simulator) Cycle() int {
	return s.cycle
}

// Values returns a copy of the current element values in arena order.
func (s *Simulator) Values() []uint8 {
	return slices.Clone(s.values)
}

// Value returns the current value of the named element.
func (s *Simulator) Value(name string) (uint8, bool) {
	idx, ok := s.model.Lookup(name)
	if !ok {
		return 0, false
	}
	return s.values[idx], true
}

// Trace returns the per-element value history of the current run.
// trace[e] has Cycle()+1 entries. The slices are owned by the run and
// replaced on reset; callers must not modify them.
func (s *Simulator) Trace() [][]uint8 {
	return slices.Clone(s.trace)
}

// Events returns the groups committed in each cycle of the current run.
func (s *Simulator) Events() [][]int {
	return s.events
}

// Model returns the model being simulated.
func (s *Simulator) Model() *ir.Model {
	return s.model
}

// Options returns the scheduling options.
func (s *Simulator) Options() Options {
	return s.opts
}
