package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dish/internal/compiler"
	"github.com/roach88/dish/internal/engine"
	"github.com/roach88/dish/internal/ir"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	Set []string // name=value assignments
}

// EvalResult is the JSON form of an evaluation.
type EvalResult struct {
	Expression string           `json:"expression"`
	Postfix    string           `json:"postfix"`
	Values     map[string]uint8 `json:"values"`
	Result     uint8            `json:"result"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate an expression against element values",
		Long: `Compile an expression and evaluate it with the given element values.

Every operand must be assigned with --set; values are 0/1 or true/false.

Example:
  dish eval "a * !b" --set a=1 --set b=0
  dish eval "a + b" --set a=false,b=true --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return evalExpression(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Set, "set", nil, "element assignment name=value (repeatable)")

	return cmd
}

func evalExpression(opts *EvalOptions, infix string, cmd *cobra.Command) error {
	formatter := NewOutputFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	assigned, err := parseAssignments(opts.Set)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --set", err)
	}

	names := make([]string, 0, len(assigned))
	for name := range assigned {
		names = append(names, name)
	}
	sort.Strings(names)

	m := ir.NewModel()
	values := make([]uint8, 0, len(names))
	for _, name := range names {
		m.AddElement(ir.Element{Name: name, Init: assigned[name]})
		values = append(values, assigned[name])
	}

	expr, err := compiler.CompileResolved(infix, m)
	if err != nil {
		return formatter.Fail(ExitFailure, "eval failed", err)
	}
	v, err := engine.Eval(expr, values)
	if err != nil {
		return formatter.Fail(ExitFailure, "eval failed", err)
	}
	postfix := ir.Rule{Expr: expr}.Postfix()

	if opts.Format == "json" {
		return formatter.JSON(EvalResult{
			Expression: infix,
			Postfix:    postfix,
			Values:     assigned,
			Result:     v,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %d\n", postfix, v)
	return nil
}

// parseAssignments parses name=value pairs.
func parseAssignments(pairs []string) (map[string]uint8, error) {
	values := make(map[string]uint8, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("assignment %q: want name=value", pair)
		}
		v, err := parseBoolValue(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("assignment %q: %w", pair, err)
		}
		values[name] = v
	}
	return values, nil
}

func parseBoolValue(s string) (uint8, error) {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return 0, fmt.Errorf("value %q is not boolean", s)
	}
	if b {
		return 1, nil
	}
	return 0, nil
}
