package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_SwapSync(t *testing.T) {
	result, err := RunWithGolden(t, mustLoad(t, "swap_sync.yaml"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestMarshalSnapshot_Canonical(t *testing.T) {
	r := NewResult()
	r.Names = []string{"b", "a"}
	r.Runs = []RunTrace{{Index: 0, Trace: map[string]string{"b": "01", "a": "10"}}}
	r.Sums = map[string][]int{"b": {0, 1}, "a": {1, 0}}

	data, err := MarshalSnapshot("s", r)
	require.NoError(t, err)

	// keys sorted, names keep model order, no whitespace
	want := `{"names":["b","a"],"runs":[{"events":[],"index":0,"trace":{"a":"10","b":"01"}}],"scenario_name":"s","sums":{"a":[1,0],"b":[0,1]}}`
	assert.Equal(t, want, string(data))
}
