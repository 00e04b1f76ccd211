// Package engine simulates loaded boolean network models.
//
// A Simulator owns the value arena of one run and advances it a cycle at a
// time. The Model is read-only and may be shared by many Simulators.
//
// SCHEDULING MODES:
//
//   - RA: one group per cycle, chosen uniformly, or by probability weight
//     through the model's cumulative table
//   - CA: every group once per cycle in a fresh random order; when ranked,
//     only ranked groups run, in ascending rank order, shuffled within a rank
//   - SYNC: every rule reads the cycle-start values, all writes land at the
//     end of the cycle
//   - REPLAY: the groups recorded for each cycle of an earlier run
//
// COMMIT DISCIPLINE:
//
// An asynchronous group writes each rule's result immediately. A synchronous
// group evaluates all of its rules against the pre-group values and then
// writes them, the last write winning for a repeated target.
//
// DETERMINISM:
//
// All randomness comes from an injected Rand. A batch run with NewRand(seed)
// is reproducible, and every committed group is recorded as an Event stamped
// by a logical Clock so runs can be replayed and verified.
package engine
