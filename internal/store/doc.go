// Package store provides SQLite-backed storage for simulation batches.
//
// A batch is stored as:
//   - Batches: model hash, mode, run and cycle counts, element names
//   - Runs: every element's value trace, one row per run
//   - Events: committed groups stamped with the batch clock's seq
//   - Summaries: per-element frequency sums, written when the batch ends
//
// Events are the input of replay: reading a run's events ORDER BY seq
// reproduces the exact group schedule the engine executed.
//
// Traces, names and sums are stored as canonical JSON produced by
// ir.MarshalCanonical, so identical batches serialize byte-identically.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
