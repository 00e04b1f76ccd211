package engine

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/dish/internal/ir"
)

// Recording is a stored run: the mode it ran under, its element traces and
// its event trace.
type Recording struct {
	Mode   Mode
	Trace  [][]uint8
	Events []Event
}

// Cycles returns the number of cycles the recording covers.
func (r Recording) Cycles() int {
	if len(r.Trace) == 0 || len(r.Trace[0]) == 0 {
		if len(r.Events) == 0 {
			return 0
		}
		return r.Events[len(r.Events)-1].Cycle + 1
	}
	return len(r.Trace[0]) - 1
}

// Replay re-executes a recorded run.
//
// The run starts from the recorded initial values, so random elements take
// the values they were sampled with. Random-asynchronous and
// choice-asynchronous recordings run the recorded groups cycle by cycle.
// Synchronous recordings are deterministic from their initial values and
// are simply re-run.
//
// The replayed run must reproduce the recorded traces exactly; Replay does
// not compare them. Use Verify for that.
func Replay(m *ir.Model, rec Recording) (*RunResult, error) {
	cycles := rec.Cycles()
	if len(rec.Trace) != len(m.Elements) {
		return nil, newRuntimeError(ErrCodeReplayMismatch,
			"recording traces %d elements, model has %d", len(rec.Trace), len(m.Elements))
	}
	initial := make([]uint8, len(rec.Trace))
	for i, t := range rec.Trace {
		if len(t) != cycles+1 {
			return nil, newRuntimeError(ErrCodeReplayMismatch,
				"trace of %s has %d entries, want %d", m.Elements[i].Name, len(t), cycles+1)
		}
		initial[i] = t[0]
	}

	opts := Options{Mode: ModeReplay, Schedule: ScheduleFromEvents(rec.Events, cycles)}
	if rec.Mode == ModeSync {
		opts = Options{Mode: ModeSync}
	}

	// The source only feeds the reset inside New; ResetTo overrides it.
	sim, err := New(m, opts, NewRand(0))
	if err != nil {
		return nil, err
	}
	if err := sim.ResetTo(initial); err != nil {
		return nil, err
	}

	if err := sim.Run(cycles); err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	out := &RunResult{Trace: sim.Trace()}
	for c, groups := range sim.Events() {
		for _, g := range groups {
			out.Events = append(out.Events, Event{Cycle: c, Group: g})
		}
	}
	return out, nil
}

// Verify replays rec and reports the first divergence as a REPLAY_MISMATCH
// RuntimeError carrying the cycle and element.
func Verify(m *ir.Model, rec Recording) error {
	got, err := Replay(m, rec)
	if err != nil {
		return err
	}

	for e, want := range rec.Trace {
		if slices.Equal(want, got.Trace[e]) {
			continue
		}
		k := 0
		for k < len(want) && k < len(got.Trace[e]) && want[k] == got.Trace[e][k] {
			k++
		}
		name := m.Elements[e].Name
		slog.Debug("replay diverged", "element", name, "trace_index", k)
		return &RuntimeError{
			Code:    ErrCodeReplayMismatch,
			Message: fmt.Sprintf("replayed trace of %s diverges at index %d", name, k),
			Cycle:   k - 1,
			Element: name,
		}
	}
	return nil
}
