package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/dish/internal/ir"
)

// Event records one group committed during a run.
type Event struct {
	Seq   int64 `json:"seq"`   // batch-wide logical clock value
	Run   int   `json:"run"`   // 0-based run index
	Cycle int   `json:"cycle"` // 0-based cycle index
	Group int   `json:"group"` // index into Model.Groups
}

// RunResult is a completed run.
type RunResult struct {
	Index int `json:"index"`

	// Trace holds one value history per element; Trace[e] has Cycles+1
	// entries, the first being the initial value.
	Trace [][]uint8 `json:"trace"`

	// Events lists committed groups in execution order.
	Events []Event `json:"events"`
}

// Initial returns the values the run started from.
func (r *RunResult) Initial() []uint8 {
	init := make([]uint8, len(r.Trace))
	for i, t := range r.Trace {
		init[i] = t[0]
	}
	return init
}

// BatchResult describes a batch of runs and its frequency summary.
type BatchResult struct {
	ID        string   `json:"id"`
	ModelHash string   `json:"model_hash"`
	Options   Options  `json:"options"`
	Runs      int      `json:"runs"`
	Cycles    int      `json:"cycles"`
	Names     []string `json:"names"`

	// Sums[e][k] counts the runs in which element e was 1 at trace index k.
	// Observers see partial sums while the batch is running.
	Sums [][]int `json:"sums"`

	// Completed counts finished runs.
	Completed int `json:"completed"`

	StartedAt time.Time `json:"started_at"`
}

// Observer receives batch progress. Report writers and the run store
// implement it.
type Observer interface {
	BeginBatch(ctx context.Context, b *BatchResult) error
	ObserveRun(ctx context.Context, b *BatchResult, run *RunResult) error
	EndBatch(ctx context.Context, b *BatchResult) error
}

// Batch runs a model repeatedly and accumulates per-cycle frequencies.
type Batch struct {
	model     *ir.Model
	opts      Options
	rng       Rand
	ids       IDGenerator
	clock     *Clock
	observers []Observer
	now       func() time.Time
}

// BatchOption configures a Batch.
type BatchOption func(*Batch)

// WithObserver adds an observer. Observers are called in the order added.
func WithObserver(o Observer) BatchOption {
	return func(b *Batch) {
		b.observers = append(b.observers, o)
	}
}

// WithIDGenerator replaces the default UUIDv7 batch ID generator.
func WithIDGenerator(g IDGenerator) BatchOption {
	return func(b *Batch) {
		b.ids = g
	}
}

// WithClock sets the logical clock used to stamp events.
func WithClock(c *Clock) BatchOption {
	return func(b *Batch) {
		b.clock = c
	}
}

// WithNow sets the wall clock used for StartedAt. Tests pin it.
func WithNow(now func() time.Time) BatchOption {
	return func(b *Batch) {
		b.now = now
	}
}

// NewBatch creates a Batch for m.
func NewBatch(m *ir.Model, opts Options, rng Rand, bopts ...BatchOption) *Batch {
	b := &Batch{
		model: m,
		opts:  opts,
		rng:   rng,
		ids:   UUIDv7Generator{},
		clock: NewClock(),
		now:   time.Now,
	}
	for _, opt := range bopts {
		opt(b)
	}
	return b
}

// Run executes runs runs of cycles cycles each.
//
// Runs are sequential and share one Simulator; the first run starts from
// the state New prepared and later runs reset first. The context is
// checked between runs. Any error from the simulator or an observer stops
// the batch.
func (b *Batch) Run(ctx context.Context, runs, cycles int) (*BatchResult, error) {
	if runs < 1 {
		return nil, fmt.Errorf("runs must be at least 1, got %d", runs)
	}
	if cycles < 0 {
		return nil, fmt.Errorf("cycles must not be negative, got %d", cycles)
	}

	hash, err := ir.ModelHash(b.model)
	if err != nil {
		return nil, fmt.Errorf("hash model: %w", err)
	}

	sim, err := New(b.model, b.opts, b.rng)
	if err != nil {
		return nil, err
	}

	res := &BatchResult{
		ID:        b.ids.Generate(),
		ModelHash: hash,
		Options:   b.opts,
		Runs:      runs,
		Cycles:    cycles,
		Names:     b.model.Names(),
		Sums:      make([][]int, len(b.model.Elements)),
		StartedAt: b.now().UTC(),
	}
	for i := range res.Sums {
		res.Sums[i] = make([]int, cycles+1)
	}

	slog.Info("batch starting",
		"batch", res.ID,
		"mode", b.opts.String(),
		"runs", runs,
		"cycles", cycles,
	)

	for _, o := range b.observers {
		if err := o.BeginBatch(ctx, res); err != nil {
			return nil, fmt.Errorf("begin batch: %w", err)
		}
	}

	for run := range runs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("batch %s cancelled after %d runs: %w", res.ID, run, err)
		}
		if run > 0 {
			sim.Reset()
		}
		if err := sim.Run(cycles); err != nil {
			return nil, fmt.Errorf("run %d: %w", run, err)
		}

		rr := &RunResult{
			Index:  run,
			Trace:  sim.Trace(),
			Events: b.stamp(run, sim.Events()),
		}
		for e, t := range rr.Trace {
			for k, v := range t {
				res.Sums[e][k] += int(v)
			}
		}
		res.Completed++

		slog.Debug("run complete", "batch", res.ID, "run", run, "events", len(rr.Events))

		for _, o := range b.observers {
			if err := o.ObserveRun(ctx, res, rr); err != nil {
				return nil, fmt.Errorf("observe run %d: %w", run, err)
			}
		}
	}

	for _, o := range b.observers {
		if err := o.EndBatch(ctx, res); err != nil {
			return nil, fmt.Errorf("end batch: %w", err)
		}
	}

	slog.Info("batch finished", "batch", res.ID, "runs", res.Completed)
	return res, nil
}

// stamp flattens per-cycle group lists into clock-stamped events.
func (b *Batch) stamp(run int, cycles [][]int) []Event {
	var events []Event
	for c, groups := range cycles {
		for _, g := range groups {
			events = append(events, Event{
				Seq:   b.clock.Next(),
				Run:   run,
				Cycle: c,
				Group: g,
			})
		}
	}
	return events
}

// ScheduleFromEvents rebuilds the per-cycle group lists of one run from its
// events. Events must belong to a single run and be in seq order; cycles
// without events yield empty lists.
func ScheduleFromEvents(events []Event, cycles int) [][]int {
	schedule := make([][]int, cycles)
	for _, ev := range events {
		if ev.Cycle >= 0 && ev.Cycle < cycles {
			schedule[ev.Cycle] = append(schedule[ev.Cycle], ev.Group)
		}
	}
	return schedule
}
