package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/augr/internal/patch"
	"github.com/roach88/augr/internal/repository"
)

// Scenario defines a conformance test scenario: a stored patch history and
// the outcome replaying it must produce.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Now closes the last segment. Defaults to the latest start in the
	// scenario plus one hour.
	Now time.Time `yaml:"now,omitempty"`

	// MaxIterations bounds the replay loop. Zero leaves the repository
	// default.
	MaxIterations int `yaml:"max_iterations,omitempty"`

	// Devices maps each device id to the frontier it saved.
	Devices map[string][]string `yaml:"devices"`

	// Patches are the patches present in the store.
	Patches []PatchSpec `yaml:"patches"`

	// Assertions validate the replayed outcome.
	Assertions []Assertion `yaml:"assertions"`
}

// PatchSpec is one stored patch.
type PatchSpec struct {
	ID           string            `yaml:"id"`
	CreateEvents []CreateEventSpec `yaml:"create_event,omitempty"`
	AddStarts    []AddStartSpec    `yaml:"add_start,omitempty"`
	RemoveStarts []RemoveStartSpec `yaml:"remove_start,omitempty"`
	AddTags      []AddTagSpec      `yaml:"add_tag,omitempty"`
	RemoveTags   []RemoveTagSpec   `yaml:"remove_tag,omitempty"`
}

// CreateEventSpec creates an event.
type CreateEventSpec struct {
	Event string    `yaml:"event"`
	Start time.Time `yaml:"start"`
	Tags  []string  `yaml:"tags,omitempty"`
}

// AddStartSpec adds a start time to an event.
type AddStartSpec struct {
	Event   string    `yaml:"event"`
	Time    time.Time `yaml:"time"`
	Parents []string  `yaml:"parents,omitempty"`
}

// RemoveStartSpec removes a start time added by Patch.
type RemoveStartSpec struct {
	Patch   string    `yaml:"patch"`
	Event   string    `yaml:"event"`
	Time    time.Time `yaml:"time"`
	Parents []string  `yaml:"parents,omitempty"`
}

// AddTagSpec adds a tag to an event.
type AddTagSpec struct {
	Event   string   `yaml:"event"`
	Tag     string   `yaml:"tag"`
	Parents []string `yaml:"parents,omitempty"`
}

// RemoveTagSpec removes a tag added by Patch.
type RemoveTagSpec struct {
	Patch   string   `yaml:"patch"`
	Event   string   `yaml:"event"`
	Tag     string   `yaml:"tag"`
	Parents []string `yaml:"parents,omitempty"`
}

// Assertion validates the replayed outcome.
type Assertion struct {
	// Type specifies the assertion type:
	// - "applied": exactly Patches were applied
	// - "event": Event flattened to Start (if set) and Tags (if set)
	// - "segment": Event's segment lasts Duration
	// - "event_count": the timesheet has Count events
	// - "problem": an error with Code was reported, matching Patch, Event
	//   and OtherEvent when set
	// - "no_problems": no error was reported
	// - "converges": a different causal replay order gives the same events
	Type string `yaml:"type"`

	Patches    []string      `yaml:"patches,omitempty"`
	Event      string        `yaml:"event,omitempty"`
	OtherEvent string        `yaml:"other_event,omitempty"`
	Patch      string        `yaml:"patch,omitempty"`
	Start      time.Time     `yaml:"start,omitempty"`
	Tags       []string      `yaml:"tags,omitempty"`
	Duration   time.Duration `yaml:"duration,omitempty"`
	Count      int           `yaml:"count,omitempty"`
	Code       string        `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertApplied    = "applied"
	AssertEvent      = "event"
	AssertSegment    = "segment"
	AssertEventCount = "event_count"
	AssertProblem    = "problem"
	AssertNoProblems = "no_problems"
	AssertConverges  = "converges"
)

var knownCodes = map[repository.ErrorCode]bool{
	repository.ErrCodePatchNotFound:      true,
	repository.ErrCodeUnknownEvent:       true,
	repository.ErrCodeDuplicateEventID:   true,
	repository.ErrCodeDependencyFailed:   true,
	repository.ErrCodeCycleDetected:      true,
	repository.ErrCodeIterationLimit:     true,
	repository.ErrCodeFlattenEvent:       true,
	repository.ErrCodeDuplicateEventTime: true,
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

// ParseScenario parses a scenario from YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
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

	if len(s.Devices) == 0 {
		return fmt.Errorf("devices map is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must be non-negative")
	}

	for device, refs := range s.Devices {
		if device == "" {
			return fmt.Errorf("devices: empty device id")
		}
		for _, ref := range refs {
			if err := patch.ValidateRef(ref); err != nil {
				return fmt.Errorf("devices[%s]: %w", device, err)
			}
		}
	}

	seen := make(map[string]bool, len(s.Patches))
	for i, p := range s.Patches {
		if err := patch.ValidateRef(p.ID); err != nil {
			return fmt.Errorf("patches[%d]: %w", i, err)
		}
		if seen[p.ID] {
			return fmt.Errorf("patches[%d]: duplicate id %q", i, p.ID)
		}
		seen[p.ID] = true

		if err := validatePatch(p); err != nil {
			return fmt.Errorf("patches[%d] (%s): %w", i, p.ID, err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validatePatch checks every operation names an event, and every removal
// names the patch that added what it removes.
func validatePatch(p PatchSpec) error {
	for j, op := range p.CreateEvents {
		if op.Event == "" {
			return fmt.Errorf("create_event[%d]: event is required", j)
		}
		if op.Start.IsZero() {
			return fmt.Errorf("create_event[%d]: start is required", j)
		}
	}
	for j, op := range p.AddStarts {
		if op.Event == "" || op.Time.IsZero() {
			return fmt.Errorf("add_start[%d]: event and time are required", j)
		}
	}
	for j, op := range p.RemoveStarts {
		if op.Patch == "" || op.Event == "" || op.Time.IsZero() {
			return fmt.Errorf("remove_start[%d]: patch, event and time are required", j)
		}
	}
	for j, op := range p.AddTags {
		if op.Event == "" || op.Tag == "" {
			return fmt.Errorf("add_tag[%d]: event and tag are required", j)
		}
	}
	for j, op := range p.RemoveTags {
		if op.Patch == "" || op.Event == "" || op.Tag == "" {
			return fmt.Errorf("remove_tag[%d]: patch, event and tag are required", j)
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
	case AssertApplied:
		if a.Patches == nil {
			return fmt.Errorf("assertions[%d]: patches list is required for applied (use [] for none)", index)
		}
	case AssertEvent:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event", index)
		}
	case AssertSegment:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for segment", index)
		}
		if a.Duration <= 0 {
			return fmt.Errorf("assertions[%d]: a positive duration is required for segment", index)
		}
	case AssertEventCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertProblem:
		if !knownCodes[repository.ErrorCode(a.Code)] {
			return fmt.Errorf("assertions[%d]: unknown problem code %q", index, a.Code)
		}
	case AssertNoProblems, AssertConverges:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// build turns the spec into a patch.
func (p PatchSpec) build() *patch.Patch {
	out := patch.NewWithRef(patch.PatchRef(p.ID))
	for _, op := range p.CreateEvents {
		out.CreateEvent(patch.EventRef(op.Event), op.Start, patch.NormalizeTags(op.Tags)...)
	}
	for _, op := range p.AddStarts {
		out.AddStart(patch.EventRef(op.Event), op.Time, refs(op.Parents)...)
	}
	for _, op := range p.RemoveStarts {
		out.RemoveStart(patch.PatchRef(op.Patch), patch.EventRef(op.Event), op.Time, refs(op.Parents)...)
	}
	for _, op := range p.AddTags {
		out.AddTag(patch.EventRef(op.Event), patch.NormalizeTag(op.Tag), refs(op.Parents)...)
	}
	for _, op := range p.RemoveTags {
		out.RemoveTag(patch.PatchRef(op.Patch), patch.EventRef(op.Event), patch.NormalizeTag(op.Tag), refs(op.Parents)...)
	}
	return out
}

func refs(in []string) []patch.PatchRef {
	out := make([]patch.PatchRef, len(in))
	for i, s := range in {
		out[i] = patch.PatchRef(s)
	}
	return out
}
