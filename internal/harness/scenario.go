package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dish/internal/engine"
)

// Scenario defines a simulation test: a model, how to run it, and what the
// resulting traces must show.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Model is the model text, inline.
	Model string `yaml:"model,omitempty"`

	// ModelFile is a model path, relative to the scenario file. Exactly one
	// of Model and ModelFile is set.
	ModelFile string `yaml:"model_file,omitempty"`

	// Mode is ra, ca or sync.
	Mode string `yaml:"mode"`

	Rank bool `yaml:"rank,omitempty"`
	Prob bool `yaml:"prob,omitempty"`

	// Seed feeds the random source. Scenarios are deterministic for a
	// given seed.
	Seed uint64 `yaml:"seed"`

	Runs   int `yaml:"runs"`
	Cycles int `yaml:"cycles"`

	// Assertions validate the recorded runs.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates the outcome of a scenario.
type Assertion struct {
	// Type specifies the assertion type:
	// - "final_value": element value after the last cycle of a run
	// - "trace": full value history of an element in a run
	// - "flips": number of value changes of an element in a run
	// - "frequency": summary count for an element at a trace index
	// - "error_code": loading or running fails with this code
	// - "replay": every stored run replays to identical traces
	Type string `yaml:"type"`

	// Run is the 0-based run index (final_value, trace, flips).
	Run int `yaml:"run,omitempty"`

	// Element names the element under test.
	Element string `yaml:"element,omitempty"`

	// Value is the expected final value (final_value).
	Value *int `yaml:"value,omitempty"`

	// Values is the expected trace as a digit string, e.g. "01010" (trace).
	Values string `yaml:"values,omitempty"`

	// Index is the trace index; 0 is the initial value (frequency).
	Index int `yaml:"index,omitempty"`

	// Count is the expected count (flips, frequency).
	Count *int `yaml:"count,omitempty"`

	// Code is the expected error code (error_code).
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalValue = "final_value"
	AssertTrace      = "trace"
	AssertFlips      = "flips"
	AssertFrequency  = "frequency"
	AssertErrorCode  = "error_code"
	AssertReplay     = "replay"
)

// LoadScenario reads and parses a scenario YAML file. A relative
// model_file is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML. Unknown fields are rejected.
func ParseScenario(data []byte, baseDir string) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos like "assertion:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.ModelFile != "" && !filepath.IsAbs(scenario.ModelFile) && baseDir != "" {
		scenario.ModelFile = filepath.Join(baseDir, scenario.ModelFile)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios returns the .yaml and .yml files under dir. A non-empty
// filter is a glob matched against the file name without extension.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Model == "" && s.ModelFile == "":
		return fmt.Errorf("one of model or model_file is required")
	case s.Model != "" && s.ModelFile != "":
		return fmt.Errorf("model and model_file are mutually exclusive")
	}

	if s.ModelFile != "" {
		if _, err := os.Stat(s.ModelFile); os.IsNotExist(err) {
			return fmt.Errorf("model file not found: %s", s.ModelFile)
		}
	}

	if _, err := s.Options(); err != nil {
		return err
	}

	if s.Runs < 1 {
		return fmt.Errorf("runs must be at least 1")
	}
	if s.Cycles < 0 {
		return fmt.Errorf("cycles must not be negative")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, s); err != nil {
			return err
		}
	}

	return nil
}

// Options returns the engine options the scenario runs under.
func (s *Scenario) Options() (engine.Options, error) {
	mode, err := engine.ParseMode(s.Mode)
	if err != nil {
		return engine.Options{}, err
	}
	if mode == engine.ModeReplay {
		return engine.Options{}, fmt.Errorf("mode %q is not a scenario mode", mode)
	}
	opts := engine.Options{Mode: mode, Ranked: s.Rank, Weighted: s.Prob}
	if err := opts.Validate(); err != nil {
		return engine.Options{}, err
	}
	return opts, nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, s *Scenario) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	needsElement := func() error {
		if a.Element == "" {
			return fmt.Errorf("assertions[%d]: element is required for %s", index, a.Type)
		}
		return nil
	}
	needsRun := func() error {
		if a.Run < 0 || a.Run >= s.Runs {
			return fmt.Errorf("assertions[%d]: run %d out of range [0,%d)", index, a.Run, s.Runs)
		}
		return nil
	}

	switch a.Type {
	case AssertFinalValue:
		if err := needsElement(); err != nil {
			return err
		}
		if err := needsRun(); err != nil {
			return err
		}
		if a.Value == nil || (*a.Value != 0 && *a.Value != 1) {
			return fmt.Errorf("assertions[%d]: value must be 0 or 1 for final_value", index)
		}
	case AssertTrace:
		if err := needsElement(); err != nil {
			return err
		}
		if err := needsRun(); err != nil {
			return err
		}
		if strings.Trim(a.Values, "01") != "" || a.Values == "" {
			return fmt.Errorf("assertions[%d]: values must be a non-empty string of 0 and 1 for trace", index)
		}
	case AssertFlips:
		if err := needsElement(); err != nil {
			return err
		}
		if err := needsRun(); err != nil {
			return err
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for flips", index)
		}
	case AssertFrequency:
		if err := needsElement(); err != nil {
			return err
		}
		if a.Index < 0 || a.Index > s.Cycles {
			return fmt.Errorf("assertions[%d]: index %d out of range [0,%d]", index, a.Index, s.Cycles)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for frequency", index)
		}
	case AssertErrorCode:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error_code", index)
		}
	case AssertReplay:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
