package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes the run's traces to help debug the failure.
type AssertionError struct {
	Type     string            // Assertion type for categorization
	Expected string            // Human-readable expected outcome
	Actual   string            // Human-readable actual outcome
	Trace    map[string]string // Traces of the run under test, if any
	Names    []string          // Element order for Trace
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nRun trace:\n")
		for _, name := range e.Names {
			fmt.Fprintf(&buf, "  %s %s\n", name, e.Trace[name])
		}
	}

	return buf.String()
}

// runTrace looks up the run and element an assertion targets.
func runTrace(result *Result, a Assertion) (*RunTrace, string, error) {
	run := result.run(a.Run)
	if run == nil {
		return nil, "", &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("run %d", a.Run),
			Actual:   fmt.Sprintf("%d runs recorded", len(result.Runs)),
		}
	}
	trace, ok := run.Trace[a.Element]
	if !ok {
		return nil, "", &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("element %s", a.Element),
			Actual:   "no such element",
			Trace:    run.Trace,
			Names:    result.Names,
		}
	}
	return run, trace, nil
}

// assertFinalValue checks the element value after the last cycle.
func assertFinalValue(result *Result, a Assertion) error {
	run, trace, err := runTrace(result, a)
	if err != nil {
		return err
	}
	got := int(trace[len(trace)-1] - '0')
	if got == *a.Value {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalValue,
		Expected: fmt.Sprintf("%s = %d at end of run %d", a.Element, *a.Value, a.Run),
		Actual:   fmt.Sprintf("%s = %d", a.Element, got),
		Trace:    run.Trace,
		Names:    result.Names,
	}
}

// assertTrace checks the full value history of an element.
func assertTrace(result *Result, a Assertion) error {
	run, trace, err := runTrace(result, a)
	if err != nil {
		return err
	}
	if trace == a.Values {
		return nil
	}
	return &AssertionError{
		Type:     AssertTrace,
		Expected: fmt.Sprintf("%s %s in run %d", a.Element, a.Values, a.Run),
		Actual:   fmt.Sprintf("%s %s", a.Element, trace),
		Trace:    run.Trace,
		Names:    result.Names,
	}
}

// assertFlips counts value changes between consecutive trace entries.
func assertFlips(result *Result, a Assertion) error {
	run, trace, err := runTrace(result, a)
	if err != nil {
		return err
	}
	flips := 0
	for k := 1; k < len(trace); k++ {
		if trace[k] != trace[k-1] {
			flips++
		}
	}
	if flips == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertFlips,
		Expected: fmt.Sprintf("%s flips %d times in run %d", a.Element, *a.Count, a.Run),
		Actual:   fmt.Sprintf("%d flips", flips),
		Trace:    run.Trace,
		Names:    result.Names,
	}
}

// assertFrequency checks the frequency summary at one trace index.
func assertFrequency(result *Result, a Assertion) error {
	sums, ok := result.Sums[a.Element]
	if !ok || a.Index >= len(sums) {
		return &AssertionError{
			Type:     AssertFrequency,
			Expected: fmt.Sprintf("summary for %s at index %d", a.Element, a.Index),
			Actual:   "not recorded",
		}
	}
	if sums[a.Index] == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertFrequency,
		Expected: fmt.Sprintf("%s at index %d in %d runs", a.Element, a.Index, *a.Count),
		Actual:   fmt.Sprintf("%d runs", sums[a.Index]),
	}
}

// assertErrorCode checks the code of the error that stopped the scenario.
func assertErrorCode(result *Result, a Assertion) error {
	if result.ErrorCode == a.Code {
		return nil
	}
	actual := result.ErrorCode
	if actual == "" {
		actual = "no error"
	}
	return &AssertionError{
		Type:     AssertErrorCode,
		Expected: a.Code,
		Actual:   actual,
	}
}

// assertReplay checks that every stored run replayed to identical traces.
func assertReplay(result *Result) error {
	if len(result.ReplayErrors) == 0 && len(result.Runs) > 0 {
		return nil
	}
	actual := strings.Join(result.ReplayErrors, "; ")
	if len(result.Runs) == 0 {
		actual = "no runs recorded"
	}
	return &AssertionError{
		Type:     AssertReplay,
		Expected: "every run replays to identical traces",
		Actual:   actual,
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFinalValue:
			err = assertFinalValue(result, assertion)
		case AssertTrace:
			err = assertTrace(result, assertion)
		case AssertFlips:
			err = assertFlips(result, assertion)
		case AssertFrequency:
			err = assertFrequency(result, assertion)
		case AssertErrorCode:
			err = assertErrorCode(result, assertion)
		case AssertReplay:
			err = assertReplay(result)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
