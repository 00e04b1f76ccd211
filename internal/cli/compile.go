package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dish/internal/compiler"
	"github.com/roach88/dish/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Model    bool   // treat the argument as a model file
	Weighted bool   // parse probability weights
	Output   string // output file path
}

// CompiledExpression is the JSON form of a compiled expression.
type CompiledExpression struct {
	Infix   string   `json:"infix"`
	Postfix []string `json:"postfix"`
}

// CompiledRule is one rule of a compiled model.
type CompiledRule struct {
	Target  string `json:"target"`
	Source  string `json:"source"`
	Postfix string `json:"postfix"`
	Line    int    `json:"line"`
}

// CompiledGroup is one rule group of a compiled model.
type CompiledGroup struct {
	Index  int            `json:"index"`
	Mode   string         `json:"mode"`
	Rank   *int           `json:"rank,omitempty"`
	Weight float64        `json:"weight,omitempty"`
	Line   int            `json:"line"`
	Rules  []CompiledRule `json:"rules"`
}

// CompiledModel is the JSON form of a compiled model.
type CompiledModel struct {
	Elements []string        `json:"elements"`
	Groups   []CompiledGroup `json:"groups"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <expression>",
		Short: "Compile an expression or model to postfix form",
		Long: `Compile a boolean rule expression to postfix form.

Operators: ! (not), * (and), + (or); precedence ! > * > +.
With --model the argument is a model file and every rule is printed
with its group, commit mode, rank and weight.

Examples:
  dish compile "a * !(b + c)"
  dish compile --model cell.model
  dish compile --model --prob cell.model --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Model, "model", false, "argument is a model file")
	cmd.Flags().BoolVar(&opts.Weighted, "prob", false, "parse probability weights (with --model)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, arg string, cmd *cobra.Command) error {
	w := cmd.OutOrStdout()
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			formatter := NewOutputFormatter(opts.RootOptions, w, cmd.ErrOrStderr())
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("failed to create output file: %v", err), nil)
			return WrapExitError(ExitCommandError, "failed to create output file", err)
		}
		defer f.Close()
		w = f
	}
	formatter := NewOutputFormatter(opts.RootOptions, w, cmd.ErrOrStderr())

	if !opts.Model {
		postfix, err := compiler.CompileExpression(arg)
		if err != nil {
			return formatter.Fail(ExitFailure, "compile failed", err)
		}
		if opts.Format == "json" {
			return formatter.JSON(CompiledExpression{Infix: arg, Postfix: postfix})
		}
		fmt.Fprintln(w, strings.Join(postfix, " "))
		return nil
	}

	m, err := LoadModel(arg, opts.Weighted)
	if err != nil {
		return formatter.Fail(exitCodeForLoad(err), "compile failed", err)
	}
	formatter.VerboseLog("Loaded %s", m)

	compiled := compileModel(m)
	if opts.Format == "json" {
		return formatter.JSON(compiled)
	}
	writeCompiledModel(w, compiled)
	return nil
}

// exitCodeForLoad distinguishes unreadable files from bad model text.
func exitCodeForLoad(err error) int {
	if code := ErrorCodeOf(err); code == ErrCodeNotFound || code == ErrCodeReadFailed {
		return ExitCommandError
	}
	return ExitFailure
}

func compileModel(m *ir.Model) CompiledModel {
	out := CompiledModel{Elements: m.Names(), Groups: make([]CompiledGroup, 0, len(m.Groups))}
	for gi, g := range m.Groups {
		cg := CompiledGroup{
			Index:  gi,
			Mode:   g.Mode.String(),
			Weight: g.Weight,
			Line:   g.Line,
			Rules:  make([]CompiledRule, 0, len(g.Rules)),
		}
		if g.Ranked {
			rank := g.Rank
			cg.Rank = &rank
		}
		for _, r := range g.Rules {
			cg.Rules = append(cg.Rules, CompiledRule{
				Target:  r.TargetName,
				Source:  r.Source,
				Postfix: r.Postfix(),
				Line:    r.Line,
			})
		}
		out.Groups = append(out.Groups, cg)
	}
	return out
}

func writeCompiledModel(w io.Writer, m CompiledModel) {
	fmt.Fprintf(w, "Elements: %s\n", strings.Join(m.Elements, " "))
	for _, g := range m.Groups {
		fmt.Fprintf(w, "\nGroup %d (%s", g.Index, g.Mode)
		if g.Rank != nil {
			fmt.Fprintf(w, ", rank %d", *g.Rank)
		}
		if g.Weight > 0 {
			fmt.Fprintf(w, ", weight %g", g.Weight)
		}
		fmt.Fprintf(w, ") line %d\n", g.Line)
		for _, r := range g.Rules {
			fmt.Fprintf(w, "  %s = %s\n", r.Target, r.Postfix)
		}
	}
}
