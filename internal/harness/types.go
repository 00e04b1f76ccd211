package harness

import (
	"github.com/roach88/dish/internal/engine"
)

// RunTrace is one stored run as the harness saw it, read back from the
// run store.
type RunTrace struct {
	Index int `json:"index"`

	// Trace maps element name to its value history, e.g. "01010".
	Trace map[string]string `json:"trace"`

	Events []engine.Event `json:"events"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions hold.
	Pass bool `json:"pass"`

	// Names lists elements in model order.
	Names []string `json:"names,omitempty"`

	// Runs holds every run in index order.
	Runs []RunTrace `json:"runs"`

	// Sums[name][k] counts runs with the element at 1 at trace index k.
	Sums map[string][]int `json:"sums,omitempty"`

	// ErrorCode is the code of the load or runtime error that stopped the
	// scenario, if any.
	ErrorCode string `json:"error_code,omitempty"`

	// ReplayErrors lists runs whose stored events did not reproduce the
	// stored traces.
	ReplayErrors []string `json:"replay_errors,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Runs:   []RunTrace{},
		Sums:   make(map[string][]int),
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// run returns the run with index i, or nil.
func (r *Result) run(i int) *RunTrace {
	if i < 0 || i >= len(r.Runs) {
		return nil
	}
	return &r.Runs[i]
}

// traceString renders one element history as digits.
func traceString(values []uint8) string {
	b := make([]byte, len(values))
	for i, v := range values {
		b[i] = '0' + v
	}
	return string(b)
}
