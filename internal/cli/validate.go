package cli

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/roach88/dish/internal/compiler"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Weighted bool
	Strict   bool // warnings fail validation
}

// ModelReport is the validation outcome of one model file.
type ModelReport struct {
	Path          string                  `json:"path"`
	Valid         bool                    `json:"valid"`
	Error         *CLIError               `json:"error,omitempty"`
	Elements      int                     `json:"elements,omitempty"`
	Groups        int                     `json:"groups,omitempty"`
	Warnings      []compiler.Warning      `json:"warnings,omitempty"`
	FeedbackLoops []compiler.FeedbackLoop `json:"feedback_loops,omitempty"`
}

// ValidationResult holds validation results for every file.
type ValidationResult struct {
	Valid  bool          `json:"valid"`
	Models []ModelReport `json:"models"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <model>...",
		Short: "Validate model files without simulating",
		Long: `Load every model file and report all load errors, static warnings
and feedback loops. Every file is checked even when an earlier one fails.

Exit codes:
  0 - All models load (warnings allowed unless --strict)
  1 - One or more models failed to load
  2 - Command error

Examples:
  dish validate cell.model
  dish validate --prob a.model b.model --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Weighted, "prob", false, "parse probability weights")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "treat warnings as failures")

	return cmd
}

func runValidate(opts *ValidateOptions, paths []string, cmd *cobra.Command) error {
	formatter := NewOutputFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	models, loadErr := LoadModels(paths, opts.Weighted)

	result := ValidationResult{Valid: true, Models: make([]ModelReport, 0, len(paths))}
	loaded := make(map[string]int, len(models))
	for i, lm := range models {
		loaded[lm.Path] = i
	}

	var failures []error
	var merr *multierror.Error
	if errors.As(loadErr, &merr) {
		failures = merr.Errors
	}

	next := 0
	for _, path := range paths {
		if i, ok := loaded[path]; ok {
			lm := models[i]
			report := ModelReport{
				Path:          path,
				Valid:         true,
				Elements:      len(lm.Model.Elements),
				Groups:        len(lm.Model.Groups),
				Warnings:      compiler.Validate(lm.Model),
				FeedbackLoops: compiler.AnalyzeFeedbackLoops(lm.Model),
			}
			formatter.VerboseLog("Validated %s: %s", path, lm.Model)
			if opts.Strict && len(report.Warnings) > 0 {
				report.Valid = false
				result.Valid = false
			}
			result.Models = append(result.Models, report)
			continue
		}

		// Failures are appended in path order.
		var err error
		if next < len(failures) {
			err = failures[next]
			next++
		}
		result.Valid = false
		result.Models = append(result.Models, ModelReport{
			Path:  path,
			Valid: false,
			Error: &CLIError{Code: ErrorCodeOf(err), Message: errorMessage(err)},
		})
	}

	if opts.Format == "json" {
		if err := formatter.JSON(result); err != nil {
			return err
		}
	} else {
		writeValidationText(cmd, result)
	}

	if !result.Valid {
		if loadErr != nil {
			return WrapExitError(ExitFailure, "validation failed", loadErr)
		}
		return NewExitError(ExitFailure, "validation failed: warnings in strict mode")
	}
	return nil
}

func errorMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func writeValidationText(cmd *cobra.Command, result ValidationResult) {
	w := cmd.OutOrStdout()
	for _, m := range result.Models {
		if m.Error != nil {
			fmt.Fprintf(w, "✗ %s\n", m.Path)
			fmt.Fprintf(w, "  Error [%s]: %s\n", m.Error.Code, m.Error.Message)
			continue
		}

		mark := "✓"
		if !m.Valid {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s (%d elements, %d groups)\n", mark, m.Path, m.Elements, m.Groups)
		for _, warn := range m.Warnings {
			fmt.Fprintf(w, "  warning %s\n", warn)
		}
		for _, loop := range m.FeedbackLoops {
			fmt.Fprintf(w, "  info %s\n", loop.Message)
		}
	}
}
