package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dish/internal/engine"
	"github.com/roach88/dish/internal/ir"
	"github.com/roach88/dish/internal/store"
)

// ErrCodeModelMismatch reports a model file whose hash differs from the one
// a batch was recorded with.
const ErrCodeModelMismatch = "E010"

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Batch    string
	Run      int // only used when the --run flag is set
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	Run           int    `json:"run"`
	Cycles        int    `json:"cycles"`
	Events        int    `json:"events"`
	Deterministic bool   `json:"deterministic"`
	Error         string `json:"error,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Batch            string            `json:"batch"`
	Mode             string            `json:"mode"`
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <model>",
		Short: "Replay recorded runs and verify determinism",
		Long: `Re-execute the runs of a recorded batch and verify that every replayed
element trace is identical to the stored one.

Each run restarts from its recorded initial values and executes the groups
its event trace lists, cycle by cycle. The model file must be the one the
batch was recorded with; its hash is checked first.

Exit codes:
  0 - All runs replay identically
  1 - A replayed trace diverged (REPLAY_MISMATCH)
  2 - Command error (database or batch not found, model changed, etc.)

Examples:
  dish replay cell.model --db runs.db --batch 0192f0c4-...
  dish replay cell.model --db runs.db --batch 0192f0c4-... --run 3
  dish replay cell.model --db runs.db --batch 0192f0c4-... --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Batch, "batch", "", "batch ID to replay (required)")
	_ = cmd.MarkFlagRequired("batch")
	cmd.Flags().IntVar(&opts.Run, "run", 0, "replay a single run only")

	return cmd
}

func runReplay(opts *ReplayOptions, modelPath string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := NewOutputFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, fmt.Sprintf("failed to open database: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	batch, err := st.ReadBatch(ctx, opts.Batch)
	if errors.Is(err, sql.ErrNoRows) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("batch not found: %s", opts.Batch), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("batch not found: %s", opts.Batch))
	}
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read batch", err)
	}

	m, err := LoadModel(modelPath, batch.Options.Weighted)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to load model", err)
	}
	hash, err := ir.ModelHash(m)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to hash model", err)
	}
	if hash != batch.ModelHash {
		msg := fmt.Sprintf("model %s does not match batch %s (hash %s, recorded %s)",
			modelPath, batch.ID, hash, batch.ModelHash)
		_ = formatter.Error(ErrCodeModelMismatch, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	var runs []int
	if cmd.Flags().Changed("run") {
		runs = []int{opts.Run}
	} else {
		runs, err = st.ReadRunIndices(ctx, batch.ID)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
	}

	result := ReplayResult{
		Batch:            batch.ID,
		Mode:             batch.Options.String(),
		Runs:             make([]ReplayRunResult, 0, len(runs)),
		TotalRuns:        len(runs),
		AllDeterministic: true,
	}

	for _, run := range runs {
		runResult, err := replayAndVerifyRun(ctx, st, m, batch.ID, run)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %d", run), err)
		}
		result.Runs = append(result.Runs, runResult)
		if !runResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

// replayAndVerifyRun reads one stored run and replays it against m. Only
// store failures are returned as errors; a divergence is reported in the
// result.
func replayAndVerifyRun(ctx context.Context, st *store.Store, m *ir.Model, batchID string, run int) (ReplayRunResult, error) {
	rec, err := st.ReadRun(ctx, batchID, run)
	if errors.Is(err, sql.ErrNoRows) {
		return ReplayRunResult{}, fmt.Errorf("run %d not found in batch %s", run, batchID)
	}
	if err != nil {
		return ReplayRunResult{}, err
	}

	res := ReplayRunResult{
		Run:           run,
		Cycles:        rec.Cycles(),
		Events:        len(rec.Events),
		Deterministic: true,
	}
	if err := engine.Verify(m, rec); err != nil {
		res.Deterministic = false
		res.Error = err.Error()
	}
	return res, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    string(engine.ErrCodeReplayMismatch),
			Message: "determinism verification failed",
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: batch %s (%s), %d run(s)\n", result.Batch, result.Mode, result.TotalRuns)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		status := "✓"
		if !run.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Run #%d\n", status, run.Run)
		if verbose {
			fmt.Fprintf(w, "  Cycles: %d\n", run.Cycles)
			fmt.Fprintf(w, "  Events: %d\n", run.Events)
		}
		if run.Error != "" {
			fmt.Fprintf(w, "  %s\n", run.Error)
		}
	}
	fmt.Fprintln(w)

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All runs verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
