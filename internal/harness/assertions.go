package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/augr/internal/patch"
	"github.com/roach88/augr/internal/repository"
	"github.com/roach88/augr/internal/timesheet"
)

// AssertionError is returned when an assertion fails.
// It includes the outcome summary to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Problems []ProblemSnapshot
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Problems) > 0 {
		fmt.Fprintf(&buf, "\nReported problems:\n")
		for i, p := range e.Problems {
			fmt.Fprintf(&buf, "  [%d] %s patch=%s event=%s\n", i+1, p.Code, p.Patch, p.Event)
		}
	}

	return buf.String()
}

// assertApplied checks exactly the listed patches were applied.
func assertApplied(result *Result, a Assertion) error {
	want := refs(a.Patches)
	slices.Sort(want)
	if slices.Equal(want, result.Applied) {
		return nil
	}
	return &AssertionError{
		Type:     AssertApplied,
		Expected: fmt.Sprintf("%v", want),
		Actual:   fmt.Sprintf("%v", result.Applied),
		Problems: result.Problems,
	}
}

// assertEvent checks an event's flattened start and tags. Unset fields are
// not checked.
func assertEvent(result *Result, a Assertion) error {
	e, ok := result.Event(patch.EventRef(a.Event))
	if !ok {
		return &AssertionError{
			Type:     AssertEvent,
			Expected: fmt.Sprintf("event %s in the timesheet", a.Event),
			Actual:   "not found",
			Problems: result.Problems,
		}
	}
	if !a.Start.IsZero() && !a.Start.Equal(e.Start) {
		return &AssertionError{
			Type:     AssertEvent,
			Expected: fmt.Sprintf("event %s starts at %s", a.Event, a.Start.UTC().Format("2006-01-02T15:04:05Z")),
			Actual:   e.Start.Format("2006-01-02T15:04:05Z"),
		}
	}
	if a.Tags != nil {
		want := patch.NormalizeTags(a.Tags)
		if !slices.Equal(want, e.Tags) && !(len(want) == 0 && len(e.Tags) == 0) {
			return &AssertionError{
				Type:     AssertEvent,
				Expected: fmt.Sprintf("event %s tagged %v", a.Event, want),
				Actual:   fmt.Sprintf("%v", e.Tags),
			}
		}
	}
	return nil
}

// assertSegment checks how long an event's segment lasts.
func assertSegment(result *Result, a Assertion) error {
	e, ok := result.Event(patch.EventRef(a.Event))
	want := timesheet.FormatDuration(a.Duration)
	if ok && e.Duration == want {
		return nil
	}
	actual := "not found"
	if ok {
		actual = e.Duration
	}
	return &AssertionError{
		Type:     AssertSegment,
		Expected: fmt.Sprintf("segment of %s lasting %s", a.Event, want),
		Actual:   actual,
	}
}

// assertEventCount checks the number of flattened events.
func assertEventCount(result *Result, a Assertion) error {
	if len(result.Events) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertEventCount,
		Expected: fmt.Sprintf("%d event(s)", a.Count),
		Actual:   fmt.Sprintf("%d event(s)", len(result.Events)),
		Problems: result.Problems,
	}
}

// assertProblem checks a problem with the given code, and the given patch,
// event and other event when set, was reported.
func assertProblem(result *Result, a Assertion) error {
	for _, p := range result.Problems {
		if p.Code != repository.ErrorCode(a.Code) {
			continue
		}
		if a.Patch != "" && string(p.Patch) != a.Patch {
			continue
		}
		if a.Event != "" && string(p.Event) != a.Event {
			continue
		}
		if a.OtherEvent != "" && string(p.OtherEvent) != a.OtherEvent {
			continue
		}
		return nil
	}

	expected := a.Code
	if a.Patch != "" {
		expected += " patch=" + a.Patch
	}
	if a.Event != "" {
		expected += " event=" + a.Event
	}
	if a.OtherEvent != "" {
		expected += " other_event=" + a.OtherEvent
	}
	return &AssertionError{
		Type:     AssertProblem,
		Expected: expected,
		Actual:   fmt.Sprintf("%d problem(s) reported, none matching", len(result.Problems)),
		Problems: result.Problems,
	}
}

// assertNoProblems checks replay and flatten were clean.
func assertNoProblems(result *Result) error {
	if len(result.Problems) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertNoProblems,
		Expected: "no problems",
		Actual:   fmt.Sprintf("%d problem(s)", len(result.Problems)),
		Problems: result.Problems,
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertApplied:
			err = assertApplied(result, assertion)
		case AssertEvent:
			err = assertEvent(result, assertion)
		case AssertSegment:
			err = assertSegment(result, assertion)
		case AssertEventCount:
			err = assertEventCount(result, assertion)
		case AssertProblem:
			err = assertProblem(result, assertion)
		case AssertNoProblems:
			err = assertNoProblems(result)
		case AssertConverges:
			err = CheckConvergence(result)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
