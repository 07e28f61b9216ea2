package harness

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a pacing scenario: a scheduler configuration, a simulated
// clock with per-hook costs, and a list of steps followed by assertions.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	UpdatesPerSecond int64 `yaml:"updates_per_second"`
	BailThreshold    int64 `yaml:"bail_threshold,omitempty"`

	// StartAt is the clock reading when the scenario begins.
	StartAt float64 `yaml:"start_at,omitempty"`

	// InitAt, if later than StartAt, moves the clock before Init.
	InitAt float64 `yaml:"init_at,omitempty"`

	// Seconds each hook call advances the clock by.
	UpdateCost float64 `yaml:"update_cost,omitempty"`
	DrawCost   float64 `yaml:"draw_cost,omitempty"`
	IdleCost   float64 `yaml:"idle_cost,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// Step is exactly one of advance, run_once or pending.
type Step struct {
	// Advance moves the clock forward by this many seconds.
	Advance *float64 `yaml:"advance,omitempty"`

	// RunOnce runs one scheduler iteration.
	RunOnce bool `yaml:"run_once,omitempty"`

	// Pending reads the pending count, optionally checking it.
	Pending *PendingStep `yaml:"pending,omitempty"`
}

// PendingStep checks the pending tick count.
type PendingStep struct {
	Expect *int64 `yaml:"expect,omitempty"`
}

// Assertion validates the finished run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Hook names the hook for call_count: update, draw or idle.
	Hook string `yaml:"hook,omitempty"`

	Min   *int `yaml:"min,omitempty"`
	Max   *int `yaml:"max,omitempty"`
	Exact *int `yaml:"exact,omitempty"`

	// Expect is the tick counter for updated.
	Expect *int64 `yaml:"expect,omitempty"`

	// Bailed is the expected outcome for bailed.
	Bailed *bool `yaml:"bailed,omitempty"`
}

// Assertion type constants.
const (
	AssertCallCount        = "call_count"
	AssertUpdated          = "updated"
	AssertDrawAfterUpdates = "draw_after_updates"
	AssertBailed           = "bailed"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields, or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(bytes.NewReader(data))
}

// ParseScenario decodes and validates a scenario.
func ParseScenario(r io.Reader) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.UpdatesPerSecond <= 0 {
		return fmt.Errorf("updates_per_second must be positive")
	}
	if s.BailThreshold < 0 {
		return fmt.Errorf("bail_threshold must not be negative")
	}
	if s.UpdateCost < 0 || s.DrawCost < 0 || s.IdleCost < 0 {
		return fmt.Errorf("hook costs must not be negative")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		n := 0
		if step.Advance != nil {
			n++
			if *step.Advance < 0 {
				return fmt.Errorf("steps[%d]: advance must not be negative", i)
			}
		}
		if step.RunOnce {
			n++
		}
		if step.Pending != nil {
			n++
		}
		if n != 1 {
			return fmt.Errorf("steps[%d]: exactly one of advance, run_once, pending is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertCallCount:
		switch a.Hook {
		case EventUpdate, EventDraw, EventIdle, EventSleep:
		default:
			return fmt.Errorf("assertions[%d]: hook must be update, draw, idle or sleep, got %q", index, a.Hook)
		}
		if a.Min == nil && a.Max == nil && a.Exact == nil {
			return fmt.Errorf("assertions[%d]: call_count needs min, max or exact", index)
		}
	case AssertUpdated:
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for updated", index)
		}
	case AssertBailed:
		if a.Bailed == nil {
			return fmt.Errorf("assertions[%d]: bailed is required for bailed", index)
		}
	case AssertDrawAfterUpdates:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
