package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dish/internal/engine"
	"github.com/roach88/dish/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Batch    string
	Run      int // only used when the --run flag is set
}

// TraceRun is one stored run: element histories and its event timeline.
type TraceRun struct {
	Run      int               `json:"run"`
	Trace    map[string]string `json:"trace"`
	Timeline []engine.Event    `json:"timeline"`
}

// TraceResult holds a batch header, its frequency summary and optionally
// one run.
type TraceResult struct {
	Batch store.BatchRecord `json:"batch"`
	Sums  map[string][]int  `json:"sums"`
	Runs  []int             `json:"runs"`
	Run   *TraceRun         `json:"run,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded batches",
		Long: `Inspect batches recorded by "dish run --db".

Without --batch every stored batch is listed. With --batch the batch
header and frequency summary are printed; --run adds one run's element
traces and the timeline of groups it committed.

Examples:
  dish trace --db runs.db
  dish trace --db runs.db --batch 0192f0c4-...
  dish trace --db runs.db --batch 0192f0c4-... --run 0
  dish trace --db runs.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Batch, "batch", "", "batch ID to show")
	cmd.Flags().IntVar(&opts.Run, "run", 0, "also show this run (with --batch)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.Batch == "" {
		if cmd.Flags().Changed("run") {
			return NewExitError(ExitCommandError, "--run requires --batch")
		}
		batches, err := st.ListBatches(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list batches", err)
		}
		if opts.Format == "json" {
			return outputTraceJSON(cmd, batches)
		}
		return outputBatchList(cmd.OutOrStdout(), batches)
	}

	batch, err := st.ReadBatch(ctx, opts.Batch)
	if errors.Is(err, sql.ErrNoRows) {
		return NewExitError(ExitCommandError, fmt.Sprintf("batch not found: %s", opts.Batch))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read batch", err)
	}

	sums, err := st.ReadSummary(ctx, batch.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read summary", err)
	}
	runs, err := st.ReadRunIndices(ctx, batch.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	result := TraceResult{
		Batch: batch,
		Sums:  make(map[string][]int, len(batch.Names)),
		Runs:  runs,
	}
	for i, name := range batch.Names {
		if i < len(sums) {
			result.Sums[name] = sums[i]
		}
	}

	if cmd.Flags().Changed("run") {
		rec, err := st.ReadRun(ctx, batch.ID, opts.Run)
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitCommandError, fmt.Sprintf("run %d not found in batch %s", opts.Run, batch.ID))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		result.Run = buildTraceRun(opts.Run, batch.Names, rec)
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
}

// buildTraceRun renders a recording with element names.
func buildTraceRun(run int, names []string, rec engine.Recording) *TraceRun {
	tr := &TraceRun{
		Run:      run,
		Trace:    make(map[string]string, len(names)),
		Timeline: rec.Events,
	}
	if tr.Timeline == nil {
		tr.Timeline = []engine.Event{}
	}
	for i, name := range names {
		if i < len(rec.Trace) {
			tr.Trace[name] = digits(rec.Trace[i])
		}
	}
	return tr
}

// digits renders values as a string of 0s and 1s.
func digits(values []uint8) string {
	var b strings.Builder
	for _, v := range values {
		b.WriteByte('0' + v)
	}
	return b.String()
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, data any) error {
	response := CLIResponse{
		Status: "ok",
		Data:   data,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputBatchList prints one line per stored batch.
func outputBatchList(w io.Writer, batches []store.BatchRecord) error {
	if len(batches) == 0 {
		fmt.Fprintln(w, "No batches found in database.")
		return nil
	}
	for _, b := range batches {
		fmt.Fprintf(w, "%s  %-10s %-9s %d/%d runs x %d cycles  %s\n",
			b.ID, b.Options.String(), b.StartedAt.Format("2006-01-02 15:04:05"),
			b.Completed, b.Runs, b.Cycles, b.ModelName)
	}
	return nil
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	b := result.Batch

	fmt.Fprintf(w, "Batch: %s\n", b.ID)
	fmt.Fprintf(w, "Model: %s\n", b.ModelName)
	fmt.Fprintf(w, "Mode: %s\n", b.Options.String())
	fmt.Fprintf(w, "Runs: %d of %d completed, %d cycles each\n", b.Completed, b.Runs, b.Cycles)
	if verbose {
		fmt.Fprintf(w, "Model hash: %s\n", b.ModelHash)
		fmt.Fprintf(w, "Started: %s\n", b.StartedAt.Format("2006-01-02T15:04:05Z07:00"))
		fmt.Fprintf(w, "Versions: engine %s, ir %s\n", b.EngineVersion, b.IRVersion)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Frequency Summary ===")
	for _, name := range b.Names {
		fmt.Fprintf(w, "  %s", name)
		for _, s := range result.Sums[name] {
			fmt.Fprintf(w, " %d", s)
		}
		fmt.Fprintln(w)
	}

	if result.Run == nil {
		return nil
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "=== Run #%d ===\n", result.Run.Run)
	for _, name := range b.Names {
		fmt.Fprintf(w, "  %s %s\n", name, result.Run.Trace[name])
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Run.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
		return nil
	}
	for _, ev := range result.Run.Timeline {
		fmt.Fprintf(w, "  [%d] cycle %d group %d\n", ev.Seq, ev.Cycle, ev.Group)
	}
	return nil
}
