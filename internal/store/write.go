package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/dish/internal/engine"
	"github.com/roach88/dish/internal/ir"
)

// WriteBatch inserts the batch header. Uses ON CONFLICT(id) DO NOTHING so
// writing the same batch twice is a no-op.
func (s *Store) WriteBatch(ctx context.Context, b *engine.BatchResult, modelName string) error {
	names, err := marshalNames(b.Names)
	if err != nil {
		return fmt.Errorf("write batch: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO batches
		(id, model_name, model_hash, mode, ranked, weighted, runs, cycles, elements,
		 completed, started_at, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		b.ID,
		modelName,
		b.ModelHash,
		string(b.Options.Mode),
		boolToInt(b.Options.Ranked),
		boolToInt(b.Options.Weighted),
		b.Runs,
		b.Cycles,
		names,
		b.Completed,
		b.StartedAt.UTC().Format(time.RFC3339),
		ir.EngineVersion,
		ir.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write batch: %w", err)
	}
	return nil
}

// WriteRun stores a run's traces and events atomically.
//
// The batch must exist (foreign key constraint). Rewriting a stored run
// is a no-op.
func (s *Store) WriteRun(ctx context.Context, batchID string, run *engine.RunResult) error {
	trace, err := marshalTrace(run.Trace)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (batch_id, run, trace)
		VALUES (?, ?, ?)
		ON CONFLICT(batch_id, run) DO NOTHING
	`, batchID, run.Index, trace)
	if err != nil {
		return fmt.Errorf("write run %d: %w", run.Index, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("write run %d: %w", run.Index, err)
	} else if n == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (batch_id, seq, run, cycle, group_index)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write run %d: prepare events: %w", run.Index, err)
	}
	defer stmt.Close()

	for _, ev := range run.Events {
		if _, err := stmt.ExecContext(ctx, batchID, ev.Seq, ev.Run, ev.Cycle, ev.Group); err != nil {
			return fmt.Errorf("write run %d: event seq %d: %w", run.Index, ev.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run %d: commit: %w", run.Index, err)
	}
	return nil
}

// WriteSummary stores the frequency sums and the completed run count.
// Rewriting replaces the previous summary.
func (s *Store) WriteSummary(ctx context.Context, b *engine.BatchResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write summary: begin transaction: %w", err)
	}
	defer tx.Rollback()

	for e, name := range b.Names {
		sums, err := marshalSums(b.Sums[e])
		if err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO summaries (batch_id, position, element, sums)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(batch_id, position) DO UPDATE SET sums = excluded.sums
		`, b.ID, e, name, sums)
		if err != nil {
			return fmt.Errorf("write summary for %s: %w", name, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE batches SET completed = ? WHERE id = ?
	`, b.Completed, b.ID); err != nil {
		return fmt.Errorf("write summary: update batch: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write summary: commit: %w", err)
	}
	return nil
}
