// Package timesheet holds the single-valued view of tracked time: each event
// has exactly one start and one tag set, and no two events share a start.
//
// A Timesheet is derived by flattening the replicated state and is never
// persisted. Everything here is a pure transform over it.
package timesheet

import (
	"maps"
	"slices"
	"time"

	"github.com/roach88/augr/internal/patch"
)

// Event is a flattened event.
type Event struct {
	Ref   patch.EventRef `json:"ref"`
	Start time.Time      `json:"start"`
	Tags  []patch.Tag    `json:"tags"`
}

// NewEvent returns an event with its start normalized and its tags sorted
// and de-duplicated.
func NewEvent(ref patch.EventRef, start time.Time, tags []patch.Tag) Event {
	return Event{Ref: ref, Start: patch.Instant(start), Tags: patch.NormalizeTags(tags)}
}

// HasTags reports whether every tag in want is on the event.
func (e Event) HasTags(want ...patch.Tag) bool {
	return containsAll(e.Tags, want)
}

// Timesheet maps start instants to events.
type Timesheet struct {
	events map[time.Time]Event
}

// New returns an empty timesheet.
func New() *Timesheet {
	return &Timesheet{events: make(map[time.Time]Event)}
}

// Insert adds e keyed by its start. If another event already starts at the
// same instant, nothing is inserted and the existing event is returned with
// ok == false.
func (ts *Timesheet) Insert(e Event) (existing Event, ok bool) {
	key := patch.Instant(e.Start)
	if prev, taken := ts.events[key]; taken {
		return prev, false
	}
	e.Start = key
	ts.events[key] = e
	return Event{}, true
}

// Len returns the number of events.
func (ts *Timesheet) Len() int {
	return len(ts.events)
}

// Events returns every event in chronological order.
func (ts *Timesheet) Events() []Event {
	out := make([]Event, 0, len(ts.events))
	for _, start := range ts.starts() {
		out = append(out, ts.events[start])
	}
	return out
}

// Event returns the event with the given ref.
func (ts *Timesheet) Event(ref patch.EventRef) (Event, bool) {
	for _, e := range ts.events {
		if e.Ref == ref {
			return e, true
		}
	}
	return Event{}, false
}

// TagsAt returns the tags of the last event that started strictly before t,
// or nil if no event had started yet.
func (ts *Timesheet) TagsAt(t time.Time) []patch.Tag {
	starts := ts.starts()
	i, _ := slices.BinarySearchFunc(starts, t, func(s, target time.Time) int {
		return s.Compare(target)
	})
	if i == 0 {
		return nil
	}
	return ts.events[starts[i-1]].Tags
}

// ActiveAt returns the tags of the event whose segment contains t: the last
// event that started at or before t. It returns nil before the first event.
func (ts *Timesheet) ActiveAt(t time.Time) []patch.Tag {
	starts := ts.starts()
	i, found := slices.BinarySearchFunc(starts, t, func(s, target time.Time) int {
		return s.Compare(target)
	})
	if found {
		return ts.events[starts[i]].Tags
	}
	if i == 0 {
		return nil
	}
	return ts.events[starts[i-1]].Tags
}

// Tags returns every distinct tag used by any event, sorted.
func (ts *Timesheet) Tags() []patch.Tag {
	var all []patch.Tag
	for _, e := range ts.events {
		all = append(all, e.Tags...)
	}
	slices.Sort(all)
	return slices.Compact(all)
}

func (ts *Timesheet) starts() []time.Time {
	return slices.SortedFunc(maps.Keys(ts.events), func(a, b time.Time) int {
		return a.Compare(b)
	})
}

func containsAll(have, want []patch.Tag) bool {
	for _, w := range want {
		if !slices.Contains(have, w) {
			return false
		}
	}
	return true
}
