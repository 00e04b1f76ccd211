package report

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/roach88/dish/internal/engine"
)

// DumpWriter writes every run followed by the frequency summary.
//
//	<name> succeeded with <runs> runs of <cycles> Cycles each.
//
//	Run #0
//	a 1 0 1
//	Frequency Summary:
//	a 1 0 1
type DumpWriter struct {
	w    *bufio.Writer
	name string
}

// NewDumpWriter creates a dump writer. name is quoted in the header.
func NewDumpWriter(w io.Writer, name string) *DumpWriter {
	return &DumpWriter{w: bufio.NewWriter(w), name: name}
}

func (d *DumpWriter) BeginBatch(_ context.Context, b *engine.BatchResult) error {
	fmt.Fprintf(d.w, "%s succeeded with %d runs of %d Cycles each.\n\n", d.name, b.Runs, b.Cycles)
	return d.w.Flush()
}

func (d *DumpWriter) ObserveRun(_ context.Context, b *engine.BatchResult, run *engine.RunResult) error {
	fmt.Fprintf(d.w, "Run #%d\n", run.Index)
	for e, name := range b.Names {
		writeRow(d.w, name, run.Trace[e])
	}
	return d.w.Flush()
}

func (d *DumpWriter) EndBatch(_ context.Context, b *engine.BatchResult) error {
	writeSummary(d.w, b)
	return d.w.Flush()
}

// SummaryWriter writes only the frequency summary.
type SummaryWriter struct {
	w *bufio.Writer
}

// NewSummaryWriter creates a summary writer.
func NewSummaryWriter(w io.Writer) *SummaryWriter {
	return &SummaryWriter{w: bufio.NewWriter(w)}
}

func (s *SummaryWriter) BeginBatch(context.Context, *engine.BatchResult) error { return nil }

func (s *SummaryWriter) ObserveRun(context.Context, *engine.BatchResult, *engine.RunResult) error {
	return nil
}

func (s *SummaryWriter) EndBatch(_ context.Context, b *engine.BatchResult) error {
	writeSummary(s.w, b)
	return s.w.Flush()
}

// BLTLWriter writes traces in model-checker layout: a "# time" header
// naming the elements, then for each cycle i of each run a row
// "i  v1 v2 ... i". The value after the final cycle is not written.
type BLTLWriter struct {
	w *bufio.Writer
}

// NewBLTLWriter creates a model-checker trace writer.
func NewBLTLWriter(w io.Writer) *BLTLWriter {
	return &BLTLWriter{w: bufio.NewWriter(w)}
}

func (t *BLTLWriter) BeginBatch(_ context.Context, b *engine.BatchResult) error {
	t.w.WriteString("# time ")
	for _, name := range b.Names {
		t.w.WriteString(name)
		t.w.WriteByte(' ')
	}
	t.w.WriteString("step\n")
	return t.w.Flush()
}

func (t *BLTLWriter) ObserveRun(_ context.Context, b *engine.BatchResult, run *engine.RunResult) error {
	for i := range b.Cycles {
		t.w.WriteString(strconv.Itoa(i))
		t.w.WriteString("  ")
		for e := range b.Names {
			t.w.WriteByte('0' + run.Trace[e][i])
			t.w.WriteByte(' ')
		}
		t.w.WriteString(strconv.Itoa(i))
		t.w.WriteByte('\n')
	}
	return t.w.Flush()
}

func (t *BLTLWriter) EndBatch(context.Context, *engine.BatchResult) error { return nil }

func writeRow(w *bufio.Writer, name string, values []uint8) {
	w.WriteString(name)
	for _, v := range values {
		w.WriteByte(' ')
		w.WriteByte('0' + v)
	}
	w.WriteByte('\n')
}

func writeSummary(w *bufio.Writer, b *engine.BatchResult) {
	w.WriteString("Frequency Summary:\n")
	for e, name := range b.Names {
		w.WriteString(name)
		for _, n := range b.Sums[e] {
			w.WriteByte(' ')
			w.WriteString(strconv.Itoa(n))
		}
		w.WriteByte('\n')
	}
}
