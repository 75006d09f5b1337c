package harness

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/augr/internal/patch"
	"github.com/roach88/augr/internal/repository"
)

// =============================================================================
// Scenario files
// =============================================================================

func TestRun_ScenarioFiles(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			s, err := LoadScenario(file)
			require.NoError(t, err)

			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "assertion failures:\n%v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_MissingParentReportsBothPatches(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/missing_parent.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)

	require.Len(t, result.Problems, 2)
	assert.Equal(t, repository.ErrCodePatchNotFound, result.Problems[0].Code)
	assert.Equal(t, repository.ErrCodeDependencyFailed, result.Problems[1].Code)
	assert.Equal(t, patch.PatchRef("p1"), result.Problems[1].Parent)
}

// =============================================================================
// Assertion failures
// =============================================================================

func scenarioA() *Scenario {
	return &Scenario{
		Name:        "inline_a",
		Description: "one event",
		Now:         time.Date(2019, 7, 23, 13, 0, 0, 0, time.UTC),
		Devices:     map[string][]string{"laptop": {"p1"}},
		Patches: []PatchSpec{{
			ID: "p1",
			CreateEvents: []CreateEventSpec{{
				Event: "a",
				Start: time.Date(2019, 7, 23, 12, 0, 0, 0, time.UTC),
				Tags:  []string{"lunch"},
			}},
		}},
	}
}

func TestRun_FailingAssertions(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		want      string
	}{
		{
			name:      "applied",
			assertion: Assertion{Type: AssertApplied, Patches: []string{"p1", "p2"}},
			want:      "Expected: [p1 p2]",
		},
		{
			name:      "event missing",
			assertion: Assertion{Type: AssertEvent, Event: "zzz"},
			want:      "event zzz in the timesheet",
		},
		{
			name:      "event start",
			assertion: Assertion{Type: AssertEvent, Event: "a", Start: time.Date(2019, 7, 23, 9, 0, 0, 0, time.UTC)},
			want:      "Actual: 2019-07-23T12:00:00Z",
		},
		{
			name:      "event tags",
			assertion: Assertion{Type: AssertEvent, Event: "a", Tags: []string{"work"}},
			want:      "Actual: [lunch]",
		},
		{
			name:      "segment",
			assertion: Assertion{Type: AssertSegment, Event: "a", Duration: 2 * time.Hour},
			want:      "Actual: 1h 0m",
		},
		{
			name:      "event count",
			assertion: Assertion{Type: AssertEventCount, Count: 4},
			want:      "Expected: 4 event(s)",
		},
		{
			name:      "problem",
			assertion: Assertion{Type: AssertProblem, Code: string(repository.ErrCodeUnknownEvent), Event: "b"},
			want:      "UNKNOWN_EVENT event=b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := scenarioA()
			s.Assertions = []Assertion{tt.assertion}

			result, err := Run(s)
			require.NoError(t, err)

			assert.False(t, result.Pass)
			require.Len(t, result.Errors, 1)
			assert.Contains(t, result.Errors[0], "Assertion failed: "+tt.assertion.Type)
			assert.Contains(t, result.Errors[0], tt.want)
		})
	}
}

func TestRun_NoProblemsFailsWithProblemList(t *testing.T) {
	s := scenarioA()
	s.Patches = append(s.Patches, PatchSpec{
		ID:      "p2",
		AddTags: []AddTagSpec{{Event: "ghost", Tag: "x"}},
	})
	s.Devices["phone"] = []string{"p2"}
	s.Assertions = []Assertion{{Type: AssertNoProblems}}

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "[1] UNKNOWN_EVENT patch=p2 event=ghost")
}

func TestRun_ReturnsEveryAssertionFailure(t *testing.T) {
	s := scenarioA()
	s.Assertions = []Assertion{
		{Type: AssertEventCount, Count: 2},
		{Type: AssertNoProblems},
		{Type: AssertApplied, Patches: []string{}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.Len(t, result.Errors, 2)
}

func TestRun_IterationLimit(t *testing.T) {
	s := scenarioA()
	s.MaxIterations = 1
	s.Patches = append(s.Patches, PatchSpec{
		ID:      "p2",
		AddTags: []AddTagSpec{{Event: "a", Tag: "x", Parents: []string{"p1"}}},
	})
	s.Devices = map[string][]string{"laptop": {"p2"}}
	s.Assertions = []Assertion{{Type: AssertProblem, Code: string(repository.ErrCodeIterationLimit)}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "%v", result.Errors)
}

// =============================================================================
// Helpers
// =============================================================================

func TestScenarioNow(t *testing.T) {
	s := scenarioA()
	assert.Equal(t, s.Now, scenarioNow(s))

	s.Now = time.Time{}
	assert.Equal(t, time.Date(2019, 7, 23, 13, 0, 0, 0, time.UTC), scenarioNow(s),
		"one hour after the latest start")

	s.Patches = nil
	assert.Equal(t, time.Unix(0, 0).UTC(), scenarioNow(s))
}

func TestCheckConvergence_RequiresReplay(t *testing.T) {
	err := CheckConvergence(NewResult())
	require.Error(t, err)
}

func TestConvergenceError(t *testing.T) {
	err := &ConvergenceError{Stage: "reordered", Expected: "x", Actual: "y"}
	assert.Equal(t, "replay did not converge (reordered): expected x, got y", err.Error())
}
