package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalScenario = `name: minimal
description: "one oscillator"
model: |
  osc = false
  Rules:
  osc = !osc;
mode: ra
seed: 1
runs: 1
cycles: 2
assertions:
  - type: trace
    element: osc
    values: "010"
`

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, t.TempDir(), minimalScenario)

	s, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	assert.Equal(t, "ra", s.Mode)
	assert.Equal(t, uint64(1), s.Seed)
	assert.Equal(t, 1, s.Runs)
	assert.Equal(t, 2, s.Cycles)
	require.Len(t, s.Assertions, 1)
	assert.Equal(t, AssertTrace, s.Assertions[0].Type)
	assert.Equal(t, "010", s.Assertions[0].Values)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadScenario_ModelFileRelative(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "chain_ca.yaml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "models", "chain.model"), s.ModelFile)
}

func TestParseScenario_UnknownFieldsRejected(t *testing.T) {
	_, err := ParseScenario([]byte(minimalScenario+"assertion: []\n"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	base := func(mutate string) string {
		return `name: s
description: d
` + mutate
	}

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\nmodel: x\nmode: ra\nruns: 1\nassertions: [{type: replay}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing model",
			content: base("mode: ra\nruns: 1\nassertions: [{type: replay}]\n"),
			wantErr: "one of model or model_file",
		},
		{
			name:    "both models",
			content: base("model: x\nmodel_file: y\nmode: ra\nruns: 1\nassertions: [{type: replay}]\n"),
			wantErr: "mutually exclusive",
		},
		{
			name:    "missing model file",
			content: base("model_file: /nonexistent/m.model\nmode: ra\nruns: 1\nassertions: [{type: replay}]\n"),
			wantErr: "model file not found",
		},
		{
			name:    "bad mode",
			content: base("model: x\nmode: fast\nruns: 1\nassertions: [{type: replay}]\n"),
			wantErr: "unknown mode",
		},
		{
			name:    "rank under ra",
			content: base("model: x\nmode: ra\nrank: true\nruns: 1\nassertions: [{type: replay}]\n"),
			wantErr: "rank",
		},
		{
			name:    "zero runs",
			content: base("model: x\nmode: ra\nruns: 0\nassertions: [{type: replay}]\n"),
			wantErr: "runs must be at least 1",
		},
		{
			name:    "no assertions",
			content: base("model: x\nmode: ra\nruns: 1\n"),
			wantErr: "assertions list is required",
		},
		{
			name:    "unknown assertion",
			content: base("model: x\nmode: ra\nruns: 1\nassertions: [{type: eventually}]\n"),
			wantErr: "unknown assertion type",
		},
		{
			name:    "trace without element",
			content: base("model: x\nmode: ra\nruns: 1\nassertions: [{type: trace, values: \"01\"}]\n"),
			wantErr: "element is required",
		},
		{
			name:    "trace with bad digits",
			content: base("model: x\nmode: ra\nruns: 1\nassertions: [{type: trace, element: a, values: \"012\"}]\n"),
			wantErr: "string of 0 and 1",
		},
		{
			name:    "run out of range",
			content: base("model: x\nmode: ra\nruns: 1\nassertions: [{type: final_value, run: 1, element: a, value: 1}]\n"),
			wantErr: "out of range",
		},
		{
			name:    "final value not boolean",
			content: base("model: x\nmode: ra\nruns: 1\nassertions: [{type: final_value, element: a, value: 2}]\n"),
			wantErr: "value must be 0 or 1",
		},
		{
			name:    "flips without count",
			content: base("model: x\nmode: ra\nruns: 1\nassertions: [{type: flips, element: a}]\n"),
			wantErr: "count must be non-negative",
		},
		{
			name:    "frequency index past cycles",
			content: base("model: x\nmode: ra\nruns: 1\ncycles: 2\nassertions: [{type: frequency, element: a, index: 3, count: 0}]\n"),
			wantErr: "out of range",
		},
		{
			name:    "error code without code",
			content: base("model: x\nmode: ra\nruns: 1\nassertions: [{type: error_code}]\n"),
			wantErr: "code is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content), "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScenario_ZeroCountAllowed(t *testing.T) {
	content := `name: s
description: d
model: x
mode: ra
runs: 1
assertions:
  - type: flips
    element: a
    count: 0
`
	s, err := ParseScenario([]byte(content), "")
	require.NoError(t, err)
	require.NotNil(t, s.Assertions[0].Count)
	assert.Equal(t, 0, *s.Assertions[0].Count)
}

func TestFindScenarios(t *testing.T) {
	files, err := FindScenarios(filepath.Join("testdata", "scenarios"), "")
	require.NoError(t, err)
	assert.Len(t, files, 4)

	files, err = FindScenarios(filepath.Join("testdata", "scenarios"), "swap_*")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("testdata", "scenarios", "swap_sync.yaml")}, files)

	_, err = FindScenarios(filepath.Join("testdata", "scenarios"), "[")
	assert.Error(t, err)
}
