package repository

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/roach88/augr/internal/patch"
	"github.com/roach88/augr/internal/timesheet"
)

// StartPair is a start time together with the patch that added it.
type StartPair struct {
	Patch patch.PatchRef `json:"patch"`
	Time  time.Time      `json:"time"`
}

// TagPair is a tag together with the patch that added it.
type TagPair struct {
	Patch patch.PatchRef `json:"patch"`
	Tag   patch.Tag      `json:"tag"`
}

// PatchedEvent is the merged state of one event: two-phase sets of start
// and tag pairs. A pair survives if it was added and never removed. Removal
// is permanent and commutes with the add.
type PatchedEvent struct {
	startsAdded   map[StartPair]struct{}
	startsRemoved map[StartPair]struct{}
	tagsAdded     map[TagPair]struct{}
	tagsRemoved   map[TagPair]struct{}

	// latest holds the patches that touched this event and have not been
	// named as a parent by a later patch touching it.
	latest patch.Meta
}

// NewPatchedEvent returns an event with empty sets.
func NewPatchedEvent() *PatchedEvent {
	return &PatchedEvent{
		startsAdded:   make(map[StartPair]struct{}),
		startsRemoved: make(map[StartPair]struct{}),
		tagsAdded:     make(map[TagPair]struct{}),
		tagsRemoved:   make(map[TagPair]struct{}),
	}
}

// AddStart records that ref added start t.
func (e *PatchedEvent) AddStart(ref patch.PatchRef, t time.Time) {
	e.startsAdded[StartPair{Patch: ref, Time: patch.Instant(t)}] = struct{}{}
}

// RemoveStart records that the start t added by ref was removed.
func (e *PatchedEvent) RemoveStart(ref patch.PatchRef, t time.Time) {
	e.startsRemoved[StartPair{Patch: ref, Time: patch.Instant(t)}] = struct{}{}
}

// AddTag records that ref added tag.
func (e *PatchedEvent) AddTag(ref patch.PatchRef, tag patch.Tag) {
	e.tagsAdded[TagPair{Patch: ref, Tag: tag}] = struct{}{}
}

// RemoveTag records that the tag added by ref was removed.
func (e *PatchedEvent) RemoveTag(ref patch.PatchRef, tag patch.Tag) {
	e.tagsRemoved[TagPair{Patch: ref, Tag: tag}] = struct{}{}
}

// Starts returns the surviving start pairs, sorted by patch then time.
func (e *PatchedEvent) Starts() []StartPair {
	return survivors(e.startsAdded, e.startsRemoved, func(a, b StartPair) int {
		return cmp.Or(strings.Compare(string(a.Patch), string(b.Patch)), a.Time.Compare(b.Time))
	})
}

// Tags returns the surviving tag pairs, sorted by patch then tag.
func (e *PatchedEvent) Tags() []TagPair {
	return survivors(e.tagsAdded, e.tagsRemoved, func(a, b TagPair) int {
		return cmp.Or(strings.Compare(string(a.Patch), string(b.Patch)), strings.Compare(string(a.Tag), string(b.Tag)))
	})
}

// TagValues returns the distinct surviving tags, sorted.
func (e *PatchedEvent) TagValues() []patch.Tag {
	var out []patch.Tag
	for _, p := range e.Tags() {
		out = append(out, p.Tag)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Touch marks ref as the newest patch on this event and drops the patches
// it supersedes from Latest.
func (e *PatchedEvent) Touch(ref patch.PatchRef, superseded ...patch.PatchRef) {
	for _, s := range superseded {
		e.latest.Remove(s)
	}
	e.latest.Add(ref)
}

// Latest returns the patches new edits to this event should name as
// parents, sorted.
func (e *PatchedEvent) Latest() []patch.PatchRef {
	return e.latest.Refs()
}

// Flatten resolves the event to its single start and surviving tags.
// Returns ErrNoStartTimes or ErrMultipleStartTimes if that is impossible.
func (e *PatchedEvent) Flatten(ref patch.EventRef) (timesheet.Event, error) {
	starts := e.Starts()
	switch {
	case len(starts) > 1:
		return timesheet.Event{}, ErrMultipleStartTimes
	case len(starts) == 0:
		return timesheet.Event{}, ErrNoStartTimes
	}
	return timesheet.NewEvent(ref, starts[0].Time, e.TagValues()), nil
}

func survivors[T comparable](added, removed map[T]struct{}, compare func(a, b T) int) []T {
	out := make([]T, 0, len(added))
	for pair := range added {
		if _, gone := removed[pair]; !gone {
			out = append(out, pair)
		}
	}
	slices.SortFunc(out, compare)
	return out
}
