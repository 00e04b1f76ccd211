package report

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/roach88/dish/internal/engine"
)

// EventRecord is one line of an event trace file.
type EventRecord struct {
	Batch string `json:"batch"`
	Seq   int64  `json:"seq"`
	Run   int    `json:"run"`
	Cycle int    `json:"cycle"`
	Group int    `json:"group"`
}

// EventTraceWriter writes every committed group as a JSON line.
type EventTraceWriter struct {
	w   *bufio.Writer
	enc *json.Encoder
}

// NewEventTraceWriter creates an event trace writer.
func NewEventTraceWriter(w io.Writer) *EventTraceWriter {
	bw := bufio.NewWriter(w)
	return &EventTraceWriter{w: bw, enc: json.NewEncoder(bw)}
}

func (e *EventTraceWriter) BeginBatch(context.Context, *engine.BatchResult) error { return nil }

func (e *EventTraceWriter) ObserveRun(_ context.Context, b *engine.BatchResult, run *engine.RunResult) error {
	for _, ev := range run.Events {
		rec := EventRecord{Batch: b.ID, Seq: ev.Seq, Run: ev.Run, Cycle: ev.Cycle, Group: ev.Group}
		if err := e.enc.Encode(rec); err != nil {
			return fmt.Errorf("write event trace: %w", err)
		}
	}
	return e.w.Flush()
}

func (e *EventTraceWriter) EndBatch(context.Context, *engine.BatchResult) error {
	return e.w.Flush()
}

// ReadEventTrace reads an event trace file and returns the events of each
// run, keyed by run index, in file order.
func ReadEventTrace(r io.Reader) (map[int][]engine.Event, error) {
	runs := make(map[int][]engine.Event)
	dec := json.NewDecoder(r)
	for line := 1; dec.More(); line++ {
		var rec EventRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("event trace record %d: %w", line, err)
		}
		runs[rec.Run] = append(runs[rec.Run], engine.Event{
			Seq:   rec.Seq,
			Run:   rec.Run,
			Cycle: rec.Cycle,
			Group: rec.Group,
		})
	}
	return runs, nil
}
