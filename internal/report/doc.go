// Package report renders simulation batches.
//
// Three text formats are supported, each implemented as an engine.Observer
// so a batch streams its output run by run:
//
//   - dump: a header line, then every run's element traces, then the
//     frequency summary
//   - bltl: one row per cycle with the element values, in the trace layout
//     read by Bayesian bounded LTL model checkers
//   - summary: the frequency summary only
//
// The event trace writer records every committed group as a JSON line so a
// batch can be inspected or replayed outside the store.
package report
