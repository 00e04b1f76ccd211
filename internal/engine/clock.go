package engine

import "sync/atomic"

// Clock is a monotonic logical clock stamping committed group events.
//
// Every event of a batch gets a strictly increasing seq from one clock, so
// events from all runs can be stored in a single table and read back in
// execution order without wall-clock timestamps.
//
// Clock is safe for concurrent use, although a batch advances it from a
// single goroutine.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
// Used to continue numbering after events already stored.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
