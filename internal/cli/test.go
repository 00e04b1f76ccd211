package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dish/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // rewrite golden snapshots
	Filter string // glob over scenario file names
}

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`

	note string
}

// TestResult aggregates a scenario directory.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

func (r *TestResult) add(s ScenarioResult) {
	r.Scenarios = append(r.Scenarios, s)
	r.Total++
	if s.Pass {
		r.Passed++
	} else {
		r.Failed++
	}
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenario files",
		Long: `Run YAML scenarios against the simulator.

Each scenario names a model, a mode and a seed, runs the batch through an
in-memory run store, replays every stored run and checks its assertions.
A scenario with a golden file (golden/<name>.golden next to it) must also
reproduce the recorded snapshot.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  dish test ./scenarios
  dish test ./scenarios --filter "swap-*"
  dish test ./scenarios --update
  dish test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := &suite{opts: opts, w: cmd.OutOrStdout()}
			return s.run(args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite golden snapshots from the current results")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenario files matching this glob")

	return cmd
}

// suite runs a scenario directory and reports as it goes.
type suite struct {
	opts *TestOptions
	w    io.Writer
}

func (s *suite) text() bool { return s.opts.Format != "json" }

func (s *suite) run(dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}

	files, err := harness.FindScenarios(dir, s.opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	result := TestResult{Scenarios: []ScenarioResult{}}
	if len(files) == 0 && s.text() {
		fmt.Fprintln(s.w, "No scenarios found.")
		return nil
	}
	for _, f := range files {
		result.add(s.report(s.check(f)))
	}

	if err := s.summarize(result); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// check runs one scenario file against its assertions and golden snapshot.
func (s *suite) check(path string) ScenarioResult {
	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return failed(filepath.Base(path), fmt.Sprintf("failed to load scenario: %v", err))
	}

	result, err := harness.Run(scenario)
	if err != nil {
		return failed(scenario.Name, fmt.Sprintf("execution failed: %v", err))
	}

	snapshot, err := harness.MarshalSnapshot(scenario.Name, result)
	if err != nil {
		return failed(scenario.Name, fmt.Sprintf("snapshot: %v", err))
	}
	g := goldenFile(goldenFilePath(path))

	if s.opts.Update {
		if err := g.write(snapshot); err != nil {
			return failed(scenario.Name, fmt.Sprintf("failed to update golden file: %v", err))
		}
		return ScenarioResult{Name: scenario.Name, Pass: true, note: " (golden updated)"}
	}

	var problems []string
	switch ok, err := g.matches(snapshot); {
	case errors.Is(err, fs.ErrNotExist):
		// assertions alone decide
	case err != nil:
		problems = append(problems, fmt.Sprintf("golden comparison failed: %v", err))
	case !ok:
		problems = append(problems, "trace does not match golden file (run with --update to regenerate)")
	}
	if !result.Pass {
		problems = append(problems, result.Errors...)
	}
	if len(problems) > 0 {
		return failed(scenario.Name, problems...)
	}
	return ScenarioResult{Name: scenario.Name, Pass: true}
}

func failed(name string, errs ...string) ScenarioResult {
	return ScenarioResult{Name: name, Errors: errs}
}

func (s *suite) report(r ScenarioResult) ScenarioResult {
	if s.text() {
		mark := "✓"
		if !r.Pass {
			mark = "✗"
		}
		fmt.Fprintf(s.w, "%s %s%s\n", mark, r.Name, r.note)
		for _, e := range r.Errors {
			fmt.Fprintf(s.w, "  %s\n", e)
		}
	}
	return r
}

func (s *suite) summarize(result TestResult) error {
	if s.text() {
		fmt.Fprintf(s.w, "\nTest Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
		if result.Failed == 0 {
			fmt.Fprintln(s.w, "✓ All scenarios passed")
		}
		return nil
	}

	resp := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}
	enc := json.NewEncoder(s.w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// goldenFilePath maps scenarios/x.yaml to scenarios/golden/x.golden.
func goldenFilePath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

type goldenFile string

func (g goldenFile) write(snapshot []byte) error {
	if err := os.MkdirAll(filepath.Dir(string(g)), 0755); err != nil {
		return fmt.Errorf("create golden directory: %w", err)
	}
	return os.WriteFile(string(g), snapshot, 0644)
}

func (g goldenFile) matches(snapshot []byte) (bool, error) {
	want, err := os.ReadFile(string(g))
	if err != nil {
		return false, err
	}
	return bytes.Equal(bytes.TrimSpace(want), bytes.TrimSpace(snapshot)), nil
}
