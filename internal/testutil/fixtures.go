package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/dish/internal/compiler"
	"github.com/roach88/dish/internal/ir"
)

// Model texts shared across package tests.
const (
	// OscillatorModel flips a single element every cycle.
	OscillatorModel = `osc = false
Rules:
osc = !osc;
`

	// SwapSyncModel exchanges x and y in one synchronous group.
	SwapSyncModel = `x = false
y = true
Rules:
{
x = y;
y = x;
}
`

	// SwapAsyncModel runs the same rules in one asynchronous group.
	SwapAsyncModel = `x = false
y = true
Rules:
*{
x = y;
y = x;
}
`

	// ToggleModel holds a constant element toggled at cycle 5.
	ToggleModel = `sw = false 5
Rules:
`

	// ChainModel propagates a signal a -> b -> c as three single rules.
	ChainModel = `a = true
b = false
c = false
Rules:
b = a;
c = b;
a = !c;
`

	// RankedModel has two ranks and one unranked rule.
	RankedModel = `a = false
b = false
c = false
Rules:
2: b = a;
1: a = true;
1: c = !c;
c = true;
`

	// WeightedModel selects among three groups with weights 0.5, 0.3, 0.2.
	WeightedModel = `a = false
b = false
c = false
Rules:
a = !a; 0.5
b = !b; 0.3
*{ 0.2
c = !c;
}
`
)

// FixedTime is the instant stamped by NowFunc.
var FixedTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// NowFunc returns a clock frozen at FixedTime.
func NowFunc() func() time.Time {
	return func() time.Time { return FixedTime }
}

// MustParse loads a model or fails the test.
func MustParse(t testing.TB, text string, opts compiler.ParseOptions) *ir.Model {
	t.Helper()
	m, err := compiler.ParseModelString(text, opts)
	require.NoError(t, err)
	return m
}

// FixedIDGenerator returns the same batch ID every time.
// Implements engine.IDGenerator.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a generator for id. An empty id yields
// "test-batch-default".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-batch-default"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed ID.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}

// ParseDefaults parses without probability weights.
var ParseDefaults = compiler.ParseOptions{}

// ParseWeighted parses with probability weights.
var ParseWeighted = compiler.ParseOptions{Weighted: true}
