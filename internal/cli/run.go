package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/dish/internal/config"
	"github.com/roach88/dish/internal/engine"
	"github.com/roach88/dish/internal/report"
	"github.com/roach88/dish/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ConfigPath string
	Mode       string
	Runs       int
	Cycles     int
	Rank       bool
	Prob       bool
	Seed       uint64
	Output     string
	Out        string
	Database   string
	EventTrace string

	// IDGenerator allows overriding the batch ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator engine.IDGenerator

	// Now allows pinning the batch start time (for testing).
	Now func() time.Time
}

// RunSummary is the JSON result of a run.
type RunSummary struct {
	Batch     string         `json:"batch"`
	Model     string         `json:"model"`
	ModelHash string         `json:"model_hash"`
	Options   engine.Options `json:"options"`
	Seed      uint64         `json:"seed"`
	Runs      int            `json:"runs"`
	Cycles    int            `json:"cycles"`
	Names     []string       `json:"names"`
	Sums      [][]int        `json:"sums"`
	Database  string         `json:"database,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

// newRunCommand binds the run flags to opts.
func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <model>",
		Short: "Simulate a model",
		Long: `Simulate a model for a number of runs of a number of cycles each and
write the run dump, model-checker trace or frequency summary.

Modes:
  ra    one group per cycle, chosen uniformly (or by weight with --prob)
  ca    every group once per cycle in random order (rank order with --rank)
  sync  every rule reads the cycle-start values

Settings may come from a CUE file (--config); explicit flags override it.
With --db every run is recorded for later replay.

Example:
  dish run cell.model --mode ca --runs 100 --cycles 50 --output summary
  dish run cell.model --mode ra --prob --seed 42 --db runs.db
  dish run cell.model --config sim.cue --out cell.out`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(opts, args[0], cmd)
		},
	}

	defaults := config.Default()
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "CUE config file")
	cmd.Flags().StringVar(&opts.Mode, "mode", defaults.Mode, "scheduling mode (ra|ca|sync)")
	cmd.Flags().IntVar(&opts.Runs, "runs", defaults.Runs, "number of runs")
	cmd.Flags().IntVar(&opts.Cycles, "cycles", defaults.Cycles, "cycles per run")
	cmd.Flags().BoolVar(&opts.Rank, "rank", false, "run ranked groups in rank order (ca only)")
	cmd.Flags().BoolVar(&opts.Prob, "prob", false, "select groups by probability weight (ra only)")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed (default: time based)")
	cmd.Flags().StringVar(&opts.Output, "output", defaults.Output, "output layout (dump|bltl|summary)")
	cmd.Flags().StringVar(&opts.Out, "out", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record runs in this SQLite database")
	cmd.Flags().StringVar(&opts.EventTrace, "event-trace", "", "write committed groups as JSON lines to this file")

	return cmd
}

// resolveConfig merges the config file with explicitly set flags.
func resolveConfig(opts *RunOptions, cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.Mode = opts.Mode
	}
	if flags.Changed("runs") {
		cfg.Runs = opts.Runs
	}
	if flags.Changed("cycles") {
		cfg.Cycles = opts.Cycles
	}
	if flags.Changed("rank") {
		cfg.Rank = opts.Rank
	}
	if flags.Changed("prob") {
		cfg.Prob = opts.Prob
	}
	if flags.Changed("seed") {
		seed := opts.Seed
		cfg.Seed = &seed
	}
	if flags.Changed("output") {
		cfg.Output = opts.Output
	}
	if flags.Changed("out") {
		cfg.Out = opts.Out
	}
	if flags.Changed("db") {
		cfg.DB = opts.Database
	}
	if flags.Changed("event-trace") {
		cfg.EventTrace = opts.EventTrace
	}
	return cfg, nil
}

func runSimulation(opts *RunOptions, modelPath string, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions, cmd.ErrOrStderr())
	formatter := NewOutputFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := resolveConfig(opts, cmd)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	simOpts, err := cfg.Options()
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid mode", err)
	}
	format, err := report.ParseFormat(cfg.Output)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid output", err)
	}
	if cfg.Runs < 1 || cfg.Cycles < 0 {
		err := fmt.Errorf("runs must be at least 1 and cycles not negative (runs=%d cycles=%d)", cfg.Runs, cfg.Cycles)
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid batch size", err)
	}

	m, err := LoadModel(modelPath, cfg.Prob)
	if err != nil {
		return formatter.Fail(exitCodeForLoad(err), "failed to load model", err)
	}

	seed := uint64(time.Now().UnixNano())
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}
	slog.Info("simulation configured", "model", modelPath, "mode", simOpts.String(), "seed", seed)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping after current run", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	var bopts []engine.BatchOption
	if opts.IDGenerator != nil {
		bopts = append(bopts, engine.WithIDGenerator(opts.IDGenerator))
	}
	if opts.Now != nil {
		bopts = append(bopts, engine.WithNow(opts.Now))
	}

	// Report output: the --out file, or stdout unless stdout carries JSON.
	name := modelPath
	var reportW io.Writer
	switch {
	case cfg.Out != "":
		f, err := os.Create(cfg.Out)
		if err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("failed to create output file: %v", err), nil)
			return WrapExitError(ExitCommandError, "failed to create output file", err)
		}
		defer f.Close()
		reportW = f
		name = cfg.Out
	case opts.Format != "json":
		reportW = cmd.OutOrStdout()
	}
	if reportW != nil {
		obs, err := report.New(format, reportW, name)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid output", err)
		}
		bopts = append(bopts, engine.WithObserver(obs))
	}

	if cfg.EventTrace != "" {
		f, err := os.Create(cfg.EventTrace)
		if err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("failed to create event trace: %v", err), nil)
			return WrapExitError(ExitCommandError, "failed to create event trace", err)
		}
		defer f.Close()
		bopts = append(bopts, engine.WithObserver(report.NewEventTraceWriter(f)))
	}

	if cfg.DB != "" {
		st, err := store.Open(cfg.DB)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, fmt.Sprintf("failed to open database: %v", err), nil)
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()

		// Continue the logical clock past events already stored.
		last, err := st.LastSeq(ctx)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read database", err)
		}
		bopts = append(bopts,
			engine.WithClock(engine.NewClockAt(last)),
			engine.WithObserver(store.NewRecorder(st, modelPath)),
		)
	}

	batch := engine.NewBatch(m, simOpts, engine.NewRand(seed), bopts...)
	res, err := batch.Run(ctx, cfg.Runs, cfg.Cycles)
	if err != nil {
		return formatter.Fail(ExitFailure, "simulation failed", err)
	}

	if opts.Format == "json" {
		return formatter.JSON(RunSummary{
			Batch:     res.ID,
			Model:     modelPath,
			ModelHash: res.ModelHash,
			Options:   res.Options,
			Seed:      seed,
			Runs:      res.Runs,
			Cycles:    res.Cycles,
			Names:     res.Names,
			Sums:      res.Sums,
			Database:  cfg.DB,
		})
	}
	formatter.VerboseLog("batch %s finished: %d runs", res.ID, res.Completed)
	return nil
}
