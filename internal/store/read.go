package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/dish/internal/engine"
)

// BatchRecord is a stored batch header.
type BatchRecord struct {
	ID            string         `json:"id"`
	ModelName     string         `json:"model_name"`
	ModelHash     string         `json:"model_hash"`
	Options       engine.Options `json:"options"`
	Runs          int            `json:"runs"`
	Cycles        int            `json:"cycles"`
	Names         []string       `json:"names"`
	Completed     int            `json:"completed"`
	StartedAt     time.Time      `json:"started_at"`
	EngineVersion string         `json:"engine_version"`
	IRVersion     string         `json:"ir_version"`
}

const batchColumns = `id, model_name, model_hash, mode, ranked, weighted, runs, cycles,
	elements, completed, started_at, engine_version, ir_version`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(row scanner) (BatchRecord, error) {
	var b BatchRecord
	var mode, names, startedAt string
	var ranked, weighted int

	if err := row.Scan(
		&b.ID, &b.ModelName, &b.ModelHash, &mode, &ranked, &weighted, &b.Runs, &b.Cycles,
		&names, &b.Completed, &startedAt, &b.EngineVersion, &b.IRVersion,
	); err != nil {
		return BatchRecord{}, err
	}

	b.Options = engine.Options{
		Mode:     engine.Mode(mode),
		Ranked:   ranked != 0,
		Weighted: weighted != 0,
	}

	var err error
	if b.Names, err = unmarshalNames(names); err != nil {
		return BatchRecord{}, fmt.Errorf("batch %s: %w", b.ID, err)
	}
	if b.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
		return BatchRecord{}, fmt.Errorf("batch %s: parse started_at: %w", b.ID, err)
	}
	return b, nil
}

// ReadBatch retrieves a batch header by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadBatch(ctx context.Context, id string) (BatchRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+batchColumns+`
		FROM batches
		WHERE id = ?
	`, id)
	return scanBatch(row)
}

// ListBatches returns every stored batch ordered by ID. UUIDv7 IDs sort in
// creation order.
//
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ListBatches(ctx context.Context) ([]BatchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+batchColumns+`
		FROM batches
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	batches := []BatchRecord{}
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	return batches, nil
}

// ReadRunIndices returns the stored run indices of a batch in ascending order.
func (s *Store) ReadRunIndices(ctx context.Context, batchID string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run FROM runs
		WHERE batch_id = ?
		ORDER BY run ASC
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []int{}
	for rows.Next() {
		var run int
		if err := rows.Scan(&run); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun loads one run as a replayable recording. Events are ordered by
// seq. Returns sql.ErrNoRows if the batch or run is not stored.
func (s *Store) ReadRun(ctx context.Context, batchID string, run int) (engine.Recording, error) {
	var mode, trace string
	err := s.db.QueryRowContext(ctx, `
		SELECT b.mode, r.trace
		FROM runs r
		JOIN batches b ON b.id = r.batch_id
		WHERE r.batch_id = ? AND r.run = ?
	`, batchID, run).Scan(&mode, &trace)
	if err != nil {
		return engine.Recording{}, err
	}

	rec := engine.Recording{Mode: engine.Mode(mode)}
	if rec.Trace, err = unmarshalTrace(trace); err != nil {
		return engine.Recording{}, fmt.Errorf("run %d: %w", run, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, run, cycle, group_index
		FROM events
		WHERE batch_id = ? AND run = ?
		ORDER BY seq ASC
	`, batchID, run)
	if err != nil {
		return engine.Recording{}, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	rec.Events = []engine.Event{}
	for rows.Next() {
		var ev engine.Event
		if err := rows.Scan(&ev.Seq, &ev.Run, &ev.Cycle, &ev.Group); err != nil {
			return engine.Recording{}, fmt.Errorf("scan event: %w", err)
		}
		rec.Events = append(rec.Events, ev)
	}
	if err := rows.Err(); err != nil {
		return engine.Recording{}, fmt.Errorf("iterate events: %w", err)
	}
	return rec, nil
}

// ReadSummary returns the stored frequency sums of a batch, indexed by
// element position. Returns an empty slice if no summary was written.
func (s *Store) ReadSummary(ctx context.Context, batchID string) ([][]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, sums FROM summaries
		WHERE batch_id = ?
		ORDER BY position ASC
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	sums := [][]int{}
	for rows.Next() {
		var pos int
		var data string
		if err := rows.Scan(&pos, &data); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		if pos != len(sums) {
			return nil, fmt.Errorf("summary for batch %s missing position %d", batchID, len(sums))
		}
		row, err := unmarshalSums(data)
		if err != nil {
			return nil, fmt.Errorf("summary position %d: %w", pos, err)
		}
		sums = append(sums, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summaries: %w", err)
	}
	return sums, nil
}

// LastSeq returns the highest event seq in the store, or 0 when no events
// are stored. New batches continue the logical clock from here.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return seq.Int64, nil
}
