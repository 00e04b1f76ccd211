package testutil

import "sync"

// ShuffleOrder selects how ScriptedRand permutes.
type ShuffleOrder int

const (
	// ShuffleIdentity leaves every slice in its original order.
	ShuffleIdentity ShuffleOrder = iota
	// ShuffleReverse reverses every slice.
	ShuffleReverse
)

// ScriptedRand is a random source whose draws are fixed in advance.
//
// Float64 and IntN return their scripted values in order and wrap around
// when exhausted, so a short script can drive a long run. An empty script
// always yields 0. IntN reduces the scripted value modulo n.
//
// Implements engine.Rand. Safe for concurrent use via internal mutex.
type ScriptedRand struct {
	mu     sync.Mutex
	floats []float64
	ints   []int
	fi, ii int
	order  ShuffleOrder
}

// NewScriptedRand creates a source with the given draws.
func NewScriptedRand(floats []float64, ints []int, order ShuffleOrder) *ScriptedRand {
	return &ScriptedRand{floats: floats, ints: ints, order: order}
}

// Float64 returns the next scripted float.
func (r *ScriptedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.floats) == 0 {
		return 0
	}
	f := r.floats[r.fi%len(r.floats)]
	r.fi++
	return f
}

// IntN returns the next scripted int modulo n.
func (r *ScriptedRand) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[r.ii%len(r.ints)]
	r.ii++
	return ((v % n) + n) % n
}

// Shuffle applies the configured order.
func (r *ScriptedRand) Shuffle(n int, swap func(i, j int)) {
	if r.order != ShuffleReverse {
		return
	}
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		swap(i, j)
	}
}

// Draws returns how many floats and ints have been consumed.
func (r *ScriptedRand) Draws() (floats, ints int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fi, r.ii
}
