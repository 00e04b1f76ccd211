package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/dish/internal/engine"
	"github.com/roach88/dish/internal/testutil"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// runRecordedBatch runs text under opts and records it into s.
func runRecordedBatch(t *testing.T, s *Store, id, text string, opts engine.Options, runs, cycles int) *engine.BatchResult {
	t.Helper()
	m := testutil.MustParse(t, text, testutil.ParseDefaults)
	b := engine.NewBatch(m, opts, engine.NewRand(42),
		engine.WithObserver(NewRecorder(s, "test.model")),
		engine.WithIDGenerator(testutil.NewFixedIDGenerator(id)),
		engine.WithNow(testutil.NowFunc()),
	)
	res, err := b.Run(context.Background(), runs, cycles)
	if err != nil {
		t.Fatalf("Batch.Run() failed: %v", err)
	}
	return res
}

// createTestBatch returns a batch header with minimal required fields.
func createTestBatch(id string) *engine.BatchResult {
	return &engine.BatchResult{
		ID:        id,
		ModelHash: "test-hash",
		Options:   engine.Options{Mode: engine.ModeRA},
		Runs:      2,
		Cycles:    3,
		Names:     []string{"x", "y"},
		Sums:      [][]int{{0, 1, 2, 1}, {2, 1, 0, 1}},
		StartedAt: testutil.FixedTime,
	}
}
