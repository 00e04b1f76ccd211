package harness

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/roach88/dish/internal/compiler"
	"github.com/roach88/dish/internal/engine"
	"github.com/roach88/dish/internal/ir"
	"github.com/roach88/dish/internal/store"
	"github.com/roach88/dish/internal/testutil"
)

// Harness executes one scenario against the engine and a run store.
type Harness struct {
	scenario *Scenario
	store    *store.Store
	model    *ir.Model
}

// Run executes a scenario and returns the result.
//
// Each scenario records into a fresh in-memory store and reads its runs
// back from there, so assertions see exactly what was persisted. Batch ID
// and timestamps are fixed for reproducible golden snapshots.
//
// A load or runtime error carrying a code is captured in
// Result.ErrorCode when the scenario asserts error_code; otherwise it is
// returned. Errors without a code are always returned.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{scenario: scenario, store: st}
	result := NewResult()
	ctx := context.Background()

	if err := h.execute(ctx, result); err != nil {
		code := errorCode(err)
		if code == "" || !scenario.expectsError() {
			return nil, err
		}
		result.ErrorCode = code
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// execute loads the model, runs the batch, then reads it back and replays
// every stored run.
func (h *Harness) execute(ctx context.Context, result *Result) error {
	text := h.scenario.Model
	if h.scenario.ModelFile != "" {
		data, err := os.ReadFile(h.scenario.ModelFile)
		if err != nil {
			return fmt.Errorf("failed to read model: %w", err)
		}
		text = string(data)
	}

	m, err := compiler.ParseModelString(text, compiler.ParseOptions{Weighted: h.scenario.Prob})
	if err != nil {
		return err
	}
	h.model = m

	opts, err := h.scenario.Options()
	if err != nil {
		return err
	}

	batchID := "scenario-" + h.scenario.Name
	b := engine.NewBatch(m, opts, engine.NewRand(h.scenario.Seed),
		engine.WithObserver(store.NewRecorder(h.store, h.scenario.Name)),
		engine.WithIDGenerator(testutil.NewFixedIDGenerator(batchID)),
		engine.WithNow(testutil.NowFunc()),
	)
	if _, err := b.Run(ctx, h.scenario.Runs, h.scenario.Cycles); err != nil {
		return err
	}

	return h.collect(ctx, batchID, result)
}

// collect reads the batch back from the store into result.
func (h *Harness) collect(ctx context.Context, batchID string, result *Result) error {
	names := h.model.Names()
	result.Names = names

	sums, err := h.store.ReadSummary(ctx, batchID)
	if err != nil {
		return fmt.Errorf("read summary: %w", err)
	}
	for e, row := range sums {
		result.Sums[names[e]] = row
	}

	indices, err := h.store.ReadRunIndices(ctx, batchID)
	if err != nil {
		return fmt.Errorf("read runs: %w", err)
	}
	for _, i := range indices {
		rec, err := h.store.ReadRun(ctx, batchID, i)
		if err != nil {
			return fmt.Errorf("read run %d: %w", i, err)
		}

		rt := RunTrace{Index: i, Trace: make(map[string]string, len(names)), Events: rec.Events}
		for e, values := range rec.Trace {
			rt.Trace[names[e]] = traceString(values)
		}
		result.Runs = append(result.Runs, rt)

		if err := engine.Verify(h.model, rec); err != nil {
			result.ReplayErrors = append(result.ReplayErrors, fmt.Sprintf("run %d: %v", i, err))
		}
	}
	return nil
}

func (s *Scenario) expectsError() bool {
	for _, a := range s.Assertions {
		if a.Type == AssertErrorCode {
			return true
		}
	}
	return false
}

// errorCode returns the code of a typed load or runtime error, or "".
func errorCode(err error) string {
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		return string(loadErr.Code)
	}
	var rtErr *engine.RuntimeError
	if errors.As(err, &rtErr) {
		return string(rtErr.Code)
	}
	return ""
}
