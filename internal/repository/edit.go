package repository

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/roach88/augr/internal/patch"
)

// StartPatch returns a patch creating a new event that starts at start.
func StartPatch(gen patch.RefGenerator, start time.Time, tags ...patch.Tag) *patch.Patch {
	p := patch.New(gen)
	return p.CreateEvent(patch.NewEventRef(gen), start, tags...)
}

// TagPatch returns a patch adding tags to event. Each addition names the
// event's latest patches as parents.
func (ts *PatchedTimesheet) TagPatch(gen patch.RefGenerator, event patch.EventRef, tags ...patch.Tag) (*patch.Patch, error) {
	e, err := ts.mustEvent(event)
	if err != nil {
		return nil, err
	}
	parents := e.Latest()
	p := patch.New(gen)
	for _, tag := range tags {
		p.AddTag(event, tag, parents...)
	}
	return p, nil
}

// UntagPatch returns a patch removing every surviving (patch, tag) pair of
// event whose tag is in tags. Each removal names the event's latest patches,
// minus the one that added the pair, as parents.
//
// Returns an error wrapping ErrUnknownTags if the event does not carry every
// requested tag; no patch is built in that case.
func (ts *PatchedTimesheet) UntagPatch(gen patch.RefGenerator, event patch.EventRef, tags ...patch.Tag) (*patch.Patch, error) {
	e, err := ts.mustEvent(event)
	if err != nil {
		return nil, err
	}

	wanted := patch.NormalizeTags(tags)
	remaining := make(map[patch.Tag]struct{}, len(wanted))
	for _, tag := range wanted {
		remaining[tag] = struct{}{}
	}

	latest := e.Latest()
	p := patch.New(gen)
	for _, pair := range e.Tags() {
		if !slices.Contains(wanted, pair.Tag) {
			continue
		}
		delete(remaining, pair.Tag)
		parents := slices.DeleteFunc(slices.Clone(latest), func(r patch.PatchRef) bool {
			return r == pair.Patch
		})
		p.RemoveTag(pair.Patch, event, pair.Tag, parents...)
	}

	if len(remaining) > 0 {
		missing := make([]string, 0, len(remaining))
		for tag := range remaining {
			missing = append(missing, string(tag))
		}
		slices.Sort(missing)
		return nil, fmt.Errorf("event %s: %w: %s", event, ErrUnknownTags, strings.Join(missing, ", "))
	}
	return p, nil
}

// SetStartPatch returns a patch removing every surviving start of event and
// adding start t.
func (ts *PatchedTimesheet) SetStartPatch(gen patch.RefGenerator, event patch.EventRef, t time.Time) (*patch.Patch, error) {
	e, err := ts.mustEvent(event)
	if err != nil {
		return nil, err
	}
	parents := e.Latest()
	p := patch.New(gen)
	for _, s := range e.Starts() {
		p.RemoveStart(s.Patch, event, s.Time, parents...)
	}
	p.AddStart(event, t, parents...)
	return p, nil
}

func (ts *PatchedTimesheet) mustEvent(ref patch.EventRef) (*PatchedEvent, error) {
	e, ok := ts.events[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, ref)
	}
	return e, nil
}
