// Package harness runs simulation scenarios described in YAML.
//
// A scenario names a model, the mode to run it under, a seed and the batch
// size, then asserts on the recorded runs:
//
//	name: swap_sync
//	description: "x and y swap every cycle under sync"
//	model: |
//	  x = false
//	  y = true
//	  Rules:
//	  {
//	  x = y;
//	  y = x;
//	  }
//	mode: sync
//	seed: 1
//	runs: 2
//	cycles: 4
//	assertions:
//	  - type: trace
//	    element: x
//	    values: "01010"
//	  - type: frequency
//	    element: y
//	    index: 4
//	    count: 2
//	  - type: replay
//
// # Assertion Types
//
//   - final_value: element value after the last cycle of a run
//   - trace: full value history of an element in a run
//   - flips: number of value changes of an element in a run
//   - frequency: summary count of an element at a trace index
//   - error_code: loading or running fails with the given code
//   - replay: every stored run replays to identical traces
//
// # Deterministic Testing
//
// Every scenario records into a fresh in-memory run store with a fixed batch
// ID and start time, and reads its runs back from the store before asserting.
// The same seed yields byte-identical snapshots, which RunWithGolden
// compares against testdata/golden.
package harness
