package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeFeedbackLoops_Empty(t *testing.T) {
	m, err := ParseModelString("Rules:\n", ParseOptions{})
	require.NoError(t, err)
	assert.Empty(t, AnalyzeFeedbackLoops(m))
}

func TestAnalyzeFeedbackLoops_Chain(t *testing.T) {
	m, err := ParseModelString("a = true\nb = false\nc = false\nRules:\nb = a;\nc = b;\n", ParseOptions{})
	require.NoError(t, err)
	assert.Empty(t, AnalyzeFeedbackLoops(m), "a chain has no feedback")
}

func TestAnalyzeFeedbackLoops_SelfLoop(t *testing.T) {
	m, err := ParseModelString("osc = true\nRules:\nosc = !osc;\n", ParseOptions{})
	require.NoError(t, err)

	loops := AnalyzeFeedbackLoops(m)
	require.Len(t, loops, 1)
	assert.Equal(t, []string{"osc", "osc"}, loops[0].Path)
	assert.Equal(t, "info", loops[0].Level)
	assert.Contains(t, loops[0].Message, "Self-regulating")
}

func TestAnalyzeFeedbackLoops_TwoNodeLoop(t *testing.T) {
	m, err := ParseModelString("x = false\ny = true\nz = false\nRules:\n{\nx = y;\ny = x;\n}\nz = x;\n", ParseOptions{})
	require.NoError(t, err)

	loops := AnalyzeFeedbackLoops(m)
	require.Len(t, loops, 1)
	assert.Equal(t, []string{"x", "y", "x"}, loops[0].Path)
	assert.Equal(t, "Feedback loop: x → y → x", loops[0].Message)
}

func TestAnalyzeFeedbackLoops_Deterministic(t *testing.T) {
	model := `
a = true
b = false
c = false
d = false
e = false
Rules:
b = a;
c = b;
a = c;
e = d;
d = e;
`
	m, err := ParseModelString(model, ParseOptions{})
	require.NoError(t, err)

	first := AnalyzeFeedbackLoops(m)
	require.Len(t, first, 2)
	assert.Equal(t, []string{"a", "b", "c", "a"}, first[0].Path)
	assert.Equal(t, []string{"d", "e", "d"}, first[1].Path)

	for range 10 {
		assert.Equal(t, first, AnalyzeFeedbackLoops(m))
	}
}
