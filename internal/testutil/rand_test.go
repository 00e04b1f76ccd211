package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScriptedRand_WrapsAround(t *testing.T) {
	r := NewScriptedRand([]float64{0.1, 0.9}, []int{3, 7}, ShuffleIdentity)

	assert.Equal(t, 0.1, r.Float64())
	assert.Equal(t, 0.9, r.Float64())
	assert.Equal(t, 0.1, r.Float64())

	assert.Equal(t, 1, r.IntN(2))
	assert.Equal(t, 2, r.IntN(5))
	assert.Equal(t, 3, r.IntN(10))

	floats, ints := r.Draws()
	assert.Equal(t, 3, floats)
	assert.Equal(t, 3, ints)
}

func TestScriptedRand_EmptyScript(t *testing.T) {
	r := NewScriptedRand(nil, nil, ShuffleIdentity)
	assert.Equal(t, 0.0, r.Float64())
	assert.Equal(t, 0, r.IntN(4))
}

func TestScriptedRand_Shuffle(t *testing.T) {
	xs := []int{1, 2, 3, 4, 5}
	swap := func(i, j int) { xs[i], xs[j] = xs[j], xs[i] }

	NewScriptedRand(nil, nil, ShuffleIdentity).Shuffle(len(xs), swap)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, xs)

	NewScriptedRand(nil, nil, ShuffleReverse).Shuffle(len(xs), swap)
	assert.Equal(t, []int{5, 4, 3, 2, 1}, xs)
}

func TestFixedIDGenerator(t *testing.T) {
	assert.Equal(t, "b-1", NewFixedIDGenerator("b-1").Generate())
	assert.Equal(t, "test-batch-default", NewFixedIDGenerator("").Generate())
}

func TestMustParse(t *testing.T) {
	m := MustParse(t, SwapSyncModel, ParseDefaults)
	assert.Equal(t, []string{"x", "y"}, m.Names())
}
