package repository

import (
	"maps"
	"slices"
	"time"

	"github.com/roach88/augr/internal/patch"
	"github.com/roach88/augr/internal/timesheet"
)

// PatchedTimesheet is the multi-valued aggregate built by replaying patches:
// one PatchedEvent per event ref, plus the set of patches applied so far.
type PatchedTimesheet struct {
	events  map[patch.EventRef]*PatchedEvent
	applied map[patch.PatchRef]struct{}
}

// NewPatchedTimesheet returns an empty aggregate.
func NewPatchedTimesheet() *PatchedTimesheet {
	return &PatchedTimesheet{
		events:  make(map[patch.EventRef]*PatchedEvent),
		applied: make(map[patch.PatchRef]struct{}),
	}
}

// Event returns the merged state of ref.
func (ts *PatchedTimesheet) Event(ref patch.EventRef) (*PatchedEvent, bool) {
	e, ok := ts.events[ref]
	return e, ok
}

// EventRefs returns every event ref, sorted.
func (ts *PatchedTimesheet) EventRefs() []patch.EventRef {
	return slices.Sorted(maps.Keys(ts.events))
}

// Len returns the number of events.
func (ts *PatchedTimesheet) Len() int {
	return len(ts.events)
}

// Applied reports whether the patch ref has been applied.
func (ts *PatchedTimesheet) Applied(ref patch.PatchRef) bool {
	_, ok := ts.applied[ref]
	return ok
}

// Patches returns the refs of every applied patch, sorted.
func (ts *PatchedTimesheet) Patches() []patch.PatchRef {
	return slices.Sorted(maps.Keys(ts.applied))
}

// Validate checks p against the current state without changing it and
// returns every violation:
//   - UNKNOWN_EVENT for each non-create operation on an event that neither
//     exists nor is created by p
//   - DUPLICATE_EVENT_ID for each create of an id that exists or that p
//     creates more than once
func (ts *PatchedTimesheet) Validate(p *patch.Patch) Errors {
	var errs Errors

	created := make(map[patch.EventRef]struct{}, len(p.CreateEvents))
	for _, op := range p.CreateEvents {
		_, exists := ts.events[op.Event]
		_, twice := created[op.Event]
		if exists || twice {
			errs = append(errs, &Error{Code: ErrCodeDuplicateEventID, Patch: p.Ref, Event: op.Event})
		}
		created[op.Event] = struct{}{}
	}

	known := func(ref patch.EventRef) bool {
		if _, ok := ts.events[ref]; ok {
			return true
		}
		_, ok := created[ref]
		return ok
	}
	unknown := func(ref patch.EventRef) {
		errs = append(errs, &Error{Code: ErrCodeUnknownEvent, Patch: p.Ref, Event: ref})
	}

	for _, op := range p.AddStarts {
		if !known(op.Event) {
			unknown(op.Event)
		}
	}
	for _, op := range p.RemoveStarts {
		if !known(op.Event) {
			unknown(op.Event)
		}
	}
	for _, op := range p.AddTags {
		if !known(op.Event) {
			unknown(op.Event)
		}
	}
	for _, op := range p.RemoveTags {
		if !known(op.Event) {
			unknown(op.Event)
		}
	}
	return errs
}

// Apply validates p and, only if it is valid, applies every operation.
// Applying a patch ref a second time is a no-op. Returns Errors from
// Validate, in which case the aggregate is unchanged.
func (ts *PatchedTimesheet) Apply(p *patch.Patch) error {
	if ts.Applied(p.Ref) {
		return nil
	}
	if errs := ts.Validate(p); len(errs) > 0 {
		return errs
	}

	ref := p.Ref
	for _, op := range p.CreateEvents {
		e := NewPatchedEvent()
		e.AddStart(ref, op.Start)
		for _, tag := range op.Tags {
			e.AddTag(ref, tag)
		}
		e.Touch(ref)
		ts.events[op.Event] = e
	}
	for _, op := range p.AddStarts {
		e := ts.events[op.Event]
		e.AddStart(ref, op.Time)
		e.Touch(ref, op.Parents...)
	}
	for _, op := range p.RemoveStarts {
		e := ts.events[op.Event]
		e.RemoveStart(op.Patch, op.Time)
		e.Touch(ref, append([]patch.PatchRef{op.Patch}, op.Parents...)...)
	}
	for _, op := range p.AddTags {
		e := ts.events[op.Event]
		e.AddTag(ref, op.Tag)
		e.Touch(ref, op.Parents...)
	}
	for _, op := range p.RemoveTags {
		e := ts.events[op.Event]
		e.RemoveTag(op.Patch, op.Tag)
		e.Touch(ref, append([]patch.PatchRef{op.Patch}, op.Parents...)...)
	}

	ts.applied[ref] = struct{}{}
	return nil
}

// Flatten collapses every event to its single start and tag set, visiting
// events in ref order. All conflicts are collected:
//   - FLATTEN_EVENT wrapping ErrNoStartTimes or ErrMultipleStartTimes
//   - DUPLICATE_EVENT_TIME naming the event that kept the start and the
//     one that was dropped
//
// The returned Timesheet always holds every event that flattened cleanly.
// The error is nil or Errors.
func (ts *PatchedTimesheet) Flatten() (*timesheet.Timesheet, error) {
	out := timesheet.New()
	var errs Errors

	for _, ref := range ts.EventRefs() {
		ev, err := ts.events[ref].Flatten(ref)
		if err != nil {
			errs = append(errs, &Error{Code: ErrCodeFlattenEvent, Event: ref, Err: err})
			continue
		}
		if existing, ok := out.Insert(ev); !ok {
			errs = append(errs, &Error{Code: ErrCodeDuplicateEventTime, Event: existing.Ref, OtherEvent: ref})
		}
	}
	return out, errs.orNil()
}

// StartsAt returns the refs of every event with a surviving start at t,
// sorted. Used to explain DUPLICATE_EVENT_TIME conflicts.
func (ts *PatchedTimesheet) StartsAt(t time.Time) []patch.EventRef {
	t = patch.Instant(t)
	var out []patch.EventRef
	for _, ref := range ts.EventRefs() {
		for _, s := range ts.events[ref].Starts() {
			if s.Time.Equal(t) {
				out = append(out, ref)
				break
			}
		}
	}
	return out
}
