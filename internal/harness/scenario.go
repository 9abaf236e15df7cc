package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dit/internal/modea"
)

// Scenario is a scripted run over a fresh mode A log.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Seed seeds the key search.
	Seed uint64 `yaml:"seed"`

	// HP overrides the starting hp through a header line.
	HP *int64 `yaml:"hp,omitempty"`

	// MaxAttempts bounds every search. Zero is unbounded.
	MaxAttempts uint64 `yaml:"max_attempts,omitempty"`

	// Steps are applied in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one action and the outcome expected of it.
type Step struct {
	// Action is the action in its log wire shape, e.g.
	// {type: marker, content: hi}.
	Action map[string]any `yaml:"action"`

	// Expect is committed, rejected or error.
	Expect string `yaml:"expect"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Action is the action type (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Outcome is the expected outcome (trace_contains).
	Outcome string `yaml:"outcome,omitempty"`

	// Count is the expected number (trace_count, link_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// State holds the expected fields (final_state).
	State *StateExpect `yaml:"state,omitempty"`
}

// StateExpect lists final state fields to check. Nil fields are ignored.
type StateExpect struct {
	Version *uint64 `yaml:"version,omitempty"`
	HP      *int64  `yaml:"hp,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertLinkCount     = "link_count"
)

// ToAction decodes the step's action with the log's strict rules.
func (s Step) ToAction() (modea.ActionA, error) {
	data, err := json.Marshal(s.Action)
	if err != nil {
		return modea.ActionA{}, fmt.Errorf("encode action: %w", err)
	}
	var a modea.ActionA
	if err := json.Unmarshal(data, &a); err != nil {
		return modea.ActionA{}, err
	}
	return a, nil
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml scenario in dir, ordered by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	names := map[string]string{}
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		if other, ok := names[s.Name]; ok {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", p, s.Name, other)
		}
		names[s.Name] = p
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Action == nil {
			return fmt.Errorf("steps[%d]: action is required", i)
		}
		if _, err := step.ToAction(); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		switch step.Expect {
		case OutcomeCommitted, OutcomeRejected, OutcomeError:
		case "":
			return fmt.Errorf("steps[%d]: expect is required", i)
		default:
			return fmt.Errorf("steps[%d]: unknown outcome %q", i, step.Expect)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertLinkCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for link_count", index)
		}
	case AssertFinalState:
		if a.State == nil || (a.State.Version == nil && a.State.HP == nil) {
			return fmt.Errorf("assertions[%d]: state is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
