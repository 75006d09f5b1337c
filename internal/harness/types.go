package harness

import (
	"time"

	"github.com/roach88/augr/internal/patch"
	"github.com/roach88/augr/internal/repository"
	"github.com/roach88/augr/internal/timesheet"
)

// EventSnapshot is one flattened event together with its segment.
type EventSnapshot struct {
	Event    patch.EventRef `json:"event"`
	Start    time.Time      `json:"start"`
	End      time.Time      `json:"end"`
	Duration string         `json:"duration"`
	Tags     []patch.Tag    `json:"tags"`
	Open     bool           `json:"open,omitempty"`
}

// ProblemSnapshot is one replay or flatten error.
type ProblemSnapshot struct {
	Code       repository.ErrorCode `json:"code"`
	Patch      patch.PatchRef       `json:"patch,omitempty"`
	Event      patch.EventRef       `json:"event,omitempty"`
	OtherEvent patch.EventRef       `json:"other_event,omitempty"`
	Parent     patch.PatchRef       `json:"parent,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Applied lists the patches the replay applied, sorted.
	Applied []patch.PatchRef `json:"applied"`

	// Events is the flattened timesheet in chronological order.
	Events []EventSnapshot `json:"events"`

	// Problems holds replay errors followed by flatten errors.
	Problems []ProblemSnapshot `json:"problems"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	aggregate *repository.PatchedTimesheet
	patches   map[patch.PatchRef]*patch.Patch
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Applied:  []patch.PatchRef{},
		Events:   []EventSnapshot{},
		Problems: []ProblemSnapshot{},
		Errors:   []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Event returns the snapshot of ref.
func (r *Result) Event(ref patch.EventRef) (EventSnapshot, bool) {
	for _, e := range r.Events {
		if e.Event == ref {
			return e, true
		}
	}
	return EventSnapshot{}, false
}

func (r *Result) addProblems(errs repository.Errors) {
	for _, e := range errs {
		r.Problems = append(r.Problems, ProblemSnapshot{
			Code:       e.Code,
			Patch:      e.Patch,
			Event:      e.Event,
			OtherEvent: e.OtherEvent,
			Parent:     e.Parent,
		})
	}
}

func (r *Result) addSegments(segments []timesheet.Segment) {
	for _, s := range segments {
		r.Events = append(r.Events, EventSnapshot{
			Event:    s.Event,
			Start:    s.Start,
			End:      s.End,
			Duration: timesheet.FormatDuration(s.Duration),
			Tags:     s.Tags,
			Open:     s.Open,
		})
	}
}
