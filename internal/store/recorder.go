package store

import (
	"context"

	"github.com/roach88/dish/internal/engine"
)

// Recorder persists a running batch. It implements engine.Observer.
type Recorder struct {
	store     *Store
	modelName string
}

var _ engine.Observer = (*Recorder)(nil)

// NewRecorder returns an observer that writes batches of the named model
// to s.
func NewRecorder(s *Store, modelName string) *Recorder {
	return &Recorder{store: s, modelName: modelName}
}

// BeginBatch writes the batch header.
func (r *Recorder) BeginBatch(ctx context.Context, b *engine.BatchResult) error {
	return r.store.WriteBatch(ctx, b, r.modelName)
}

// ObserveRun writes the run's traces and events.
func (r *Recorder) ObserveRun(ctx context.Context, b *engine.BatchResult, run *engine.RunResult) error {
	return r.store.WriteRun(ctx, b.ID, run)
}

// EndBatch writes the frequency summary.
func (r *Recorder) EndBatch(ctx context.Context, b *engine.BatchResult) error {
	return r.store.WriteSummary(ctx, b)
}
