package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func sampleResult() *Result {
	r := NewResult()
	r.Names = []string{"a", "b"}
	r.Runs = []RunTrace{
		{Index: 0, Trace: map[string]string{"a": "0110", "b": "1111"}},
		{Index: 1, Trace: map[string]string{"a": "0101", "b": "1000"}},
	}
	r.Sums = map[string][]int{"a": {0, 2, 1, 1}, "b": {2, 1, 1, 1}}
	return r
}

func TestAssertFinalValue(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertFinalValue(r, Assertion{Type: AssertFinalValue, Run: 1, Element: "a", Value: intPtr(1)}))
	assert.NoError(t, assertFinalValue(r, Assertion{Type: AssertFinalValue, Run: 0, Element: "a", Value: intPtr(0)}))

	err := assertFinalValue(r, Assertion{Type: AssertFinalValue, Run: 1, Element: "b", Value: intPtr(1)})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "b = 0", ae.Actual)
}

func TestAssertFinalValue_UnknownRunOrElement(t *testing.T) {
	r := sampleResult()

	err := assertFinalValue(r, Assertion{Type: AssertFinalValue, Run: 5, Element: "a", Value: intPtr(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 runs recorded")

	err = assertFinalValue(r, Assertion{Type: AssertFinalValue, Element: "zz", Value: intPtr(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such element")
}

func TestAssertTrace(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertTrace(r, Assertion{Type: AssertTrace, Element: "a", Values: "0110"}))
	assert.Error(t, assertTrace(r, Assertion{Type: AssertTrace, Element: "a", Values: "011"}))
}

func TestAssertFlips(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertFlips(r, Assertion{Type: AssertFlips, Element: "a", Count: intPtr(2)}))
	assert.NoError(t, assertFlips(r, Assertion{Type: AssertFlips, Run: 1, Element: "a", Count: intPtr(3)}))
	assert.NoError(t, assertFlips(r, Assertion{Type: AssertFlips, Element: "b", Count: intPtr(0)}))
	assert.Error(t, assertFlips(r, Assertion{Type: AssertFlips, Run: 1, Element: "b", Count: intPtr(0)}))
}

func TestAssertFrequency(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertFrequency(r, Assertion{Type: AssertFrequency, Element: "a", Index: 1, Count: intPtr(2)}))
	assert.Error(t, assertFrequency(r, Assertion{Type: AssertFrequency, Element: "a", Index: 1, Count: intPtr(1)}))
	assert.Error(t, assertFrequency(r, Assertion{Type: AssertFrequency, Element: "a", Index: 9, Count: intPtr(0)}))
	assert.Error(t, assertFrequency(r, Assertion{Type: AssertFrequency, Element: "zz", Count: intPtr(0)}))
}

func TestAssertReplay(t *testing.T) {
	r := sampleResult()
	assert.NoError(t, assertReplay(r))

	r.ReplayErrors = []string{"run 1: diverged"}
	err := assertReplay(r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run 1: diverged")

	assert.Error(t, assertReplay(NewResult()))
}

func TestEvaluateAssertions(t *testing.T) {
	r := sampleResult()

	errs := EvaluateAssertions(r, []Assertion{
		{Type: AssertTrace, Element: "b", Values: "1111"},
		{Type: AssertTrace, Element: "b", Values: "0000"},
		{Type: AssertErrorCode, Code: "UNKNOWN_ELEMENT"},
		{Type: "bogus"},
	})
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "Assertion failed: trace")
	assert.Contains(t, errs[1], "Assertion failed: error_code")
	assert.Contains(t, errs[2], `unknown assertion type "bogus"`)
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTrace,
		Expected: "a 0000 in run 0",
		Actual:   "a 0110",
		Trace:    map[string]string{"a": "0110", "b": "1111"},
		Names:    []string{"a", "b"},
	}

	want := "Assertion failed: trace\n" +
		"  Expected: a 0000 in run 0\n" +
		"  Actual: a 0110\n" +
		"\nRun trace:\n" +
		"  a 0110\n" +
		"  b 1111\n"
	assert.Equal(t, want, err.Error())
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
