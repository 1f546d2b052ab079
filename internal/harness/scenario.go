package harness

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Step operations.
const (
	OpCreate        = "create"
	OpPersist       = "persist"
	OpRemove        = "remove"
	OpRemoveByID    = "remove_by_id"
	OpGetByID       = "get_by_id"
	OpGetByPosition = "get_by_position"
	OpListForBook   = "list_for_book"
	OpListAll       = "list_all"
	OpDedupe        = "dedupe"
)

var knownOps = map[string]bool{
	OpCreate: true, OpPersist: true, OpRemove: true, OpRemoveByID: true,
	OpGetByID: true, OpGetByPosition: true, OpListForBook: true,
	OpListAll: true, OpDedupe: true,
}

// Scenario is a scripted sequence of façade calls.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// ClockStep is how far the clock advances per created bookmark, as a
	// Go duration string. Empty means one minute.
	ClockStep string `yaml:"clock_step,omitempty"`

	// IDPrefix prefixes generated bookmark ids. Empty means "bm".
	IDPrefix string `yaml:"id_prefix,omitempty"`

	Steps []Step `yaml:"steps"`

	// Assertions are checked against the store after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one façade call.
type Step struct {
	Op     string   `yaml:"op"`
	Args   StepArgs `yaml:"args,omitempty"`
	Expect *Expect  `yaml:"expect,omitempty"`
}

// StepArgs carries the inputs every operation draws from.
type StepArgs struct {
	ID     string  `yaml:"id,omitempty"`
	BookID string  `yaml:"book_id,omitempty"`
	Page   *int    `yaml:"page,omitempty"`
	X      int     `yaml:"x,omitempty"`
	Y      int     `yaml:"y,omitempty"`
	Name   *string `yaml:"name,omitempty"`
}

// Expect is checked against a step's outcome. Unset fields are not
// checked.
type Expect struct {
	// Error, when set, must be a substring of the step's error. When empty
	// the step must succeed.
	Error string `yaml:"error,omitempty"`

	// Found applies to lookups.
	Found *bool `yaml:"found,omitempty"`

	// ID and Name apply to the bookmark a create, persist or lookup
	// returned.
	ID   string  `yaml:"id,omitempty"`
	Name *string `yaml:"name,omitempty"`

	// IDs is the exact id order of a listing.
	IDs []string `yaml:"ids,omitempty"`

	// Count is the length of a listing or the number dedupe removed.
	Count *int `yaml:"count,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(bytes.NewReader(data))
}

// ParseScenario decodes a scenario with strict field checking.
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

// clockStep returns the parsed clock step.
func (s *Scenario) clockStep() (time.Duration, error) {
	if s.ClockStep == "" {
		return time.Minute, nil
	}
	d, err := time.ParseDuration(s.ClockStep)
	if err != nil {
		return 0, fmt.Errorf("clock_step: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("clock_step must not be negative, got %s", s.ClockStep)
	}
	return d, nil
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
	if _, err := s.clockStep(); err != nil {
		return err
	}

	for i, step := range s.Steps {
		if !knownOps[step.Op] {
			return fmt.Errorf("step %d: unknown op %q", i, step.Op)
		}
		switch step.Op {
		case OpCreate, OpGetByPosition, OpListForBook:
			if step.Args.BookID == "" {
				return fmt.Errorf("step %d (%s): book_id is required", i, step.Op)
			}
		case OpPersist, OpRemove, OpRemoveByID, OpGetByID:
			if step.Args.ID == "" {
				return fmt.Errorf("step %d (%s): id is required", i, step.Op)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertion %d: %w", i, err)
		}
	}
	return nil
}
