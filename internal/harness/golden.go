package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/dish/internal/ir"
)

// Snapshot captures a scenario's runs for golden comparison.
type Snapshot struct {
	ScenarioName string           `json:"scenario_name"`
	Names        []string         `json:"names"`
	Runs         []RunTrace       `json:"runs"`
	Sums         map[string][]int `json:"sums"`
}

// NewSnapshot builds the snapshot of a result.
func NewSnapshot(name string, result *Result) Snapshot {
	return Snapshot{
		ScenarioName: name,
		Names:        result.Names,
		Runs:         result.Runs,
		Sums:         result.Sums,
	}
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON
// serialization, which only handles maps, slices and primitives.
func (s *Snapshot) toCanonicalMap() map[string]any {
	names := make([]any, len(s.Names))
	for i, n := range s.Names {
		names[i] = n
	}

	runs := make([]any, len(s.Runs))
	for i, run := range s.Runs {
		trace := make(map[string]any, len(run.Trace))
		for name, values := range run.Trace {
			trace[name] = values
		}
		events := make([]any, len(run.Events))
		for j, ev := range run.Events {
			events[j] = map[string]any{
				"seq":   ev.Seq,
				"cycle": ev.Cycle,
				"group": ev.Group,
			}
		}
		runs[i] = map[string]any{
			"index":  run.Index,
			"trace":  trace,
			"events": events,
		}
	}

	sums := make(map[string]any, len(s.Sums))
	for name, row := range s.Sums {
		counts := make([]any, len(row))
		for k, n := range row {
			counts[k] = n
		}
		sums[name] = counts
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"names":         names,
		"runs":          runs,
		"sums":          sums,
	}
}

// MarshalSnapshot renders a result as canonical JSON.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	snapshot := NewSnapshot(name, result)
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
