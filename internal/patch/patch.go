package patch

import (
	"slices"
	"time"
)

// CreateEvent introduces a new event with its initial start time and tags.
// The creating patch is the origin of the initial (patch, start) and
// (patch, tag) pairs.
type CreateEvent struct {
	Event EventRef
	Start time.Time
	Tags  []Tag
}

// AddStart adds a start time to an existing event.
type AddStart struct {
	Parents []PatchRef
	Event   EventRef
	Time    time.Time
}

// RemoveStart removes the (Patch, Time) start pair from an event. Patch is
// the ref of the patch that added the pair.
type RemoveStart struct {
	Patch   PatchRef
	Parents []PatchRef
	Event   EventRef
	Time    time.Time
}

// AddTag adds a tag to an existing event.
type AddTag struct {
	Parents []PatchRef
	Event   EventRef
	Tag     Tag
}

// RemoveTag removes the (Patch, Tag) pair from an event. Patch is the ref of
// the patch that added the pair.
type RemoveTag struct {
	Patch   PatchRef
	Parents []PatchRef
	Event   EventRef
	Tag     Tag
}

// Patch is an immutable, identified bundle of operations.
//
// A Patch is built up with its chaining mutators and then written to a store
// exactly once. After that it is never changed; amendments are new patches.
type Patch struct {
	Ref          PatchRef
	CreateEvents []CreateEvent
	AddStarts    []AddStart
	RemoveStarts []RemoveStart
	AddTags      []AddTag
	RemoveTags   []RemoveTag
}

// New returns an empty patch with a fresh ref from gen.
func New(gen RefGenerator) *Patch {
	return NewWithRef(NewPatchRef(gen))
}

// NewWithRef returns an empty patch with the given ref.
func NewWithRef(ref PatchRef) *Patch {
	return &Patch{Ref: ref}
}

// CreateEvent records the creation of event at start with tags.
func (p *Patch) CreateEvent(event EventRef, start time.Time, tags ...Tag) *Patch {
	return p.InsertCreateEvent(CreateEvent{Event: event, Start: start, Tags: tags})
}

// AddStart records a new start time for event.
func (p *Patch) AddStart(event EventRef, t time.Time, parents ...PatchRef) *Patch {
	return p.InsertAddStart(AddStart{Parents: parents, Event: event, Time: t})
}

// RemoveStart records the removal of the start pair (addedBy, t) from event.
func (p *Patch) RemoveStart(addedBy PatchRef, event EventRef, t time.Time, parents ...PatchRef) *Patch {
	return p.InsertRemoveStart(RemoveStart{Patch: addedBy, Parents: parents, Event: event, Time: t})
}

// AddTag records a new tag for event.
func (p *Patch) AddTag(event EventRef, tag Tag, parents ...PatchRef) *Patch {
	return p.InsertAddTag(AddTag{Parents: parents, Event: event, Tag: tag})
}

// RemoveTag records the removal of the tag pair (addedBy, tag) from event.
func (p *Patch) RemoveTag(addedBy PatchRef, event EventRef, tag Tag, parents ...PatchRef) *Patch {
	return p.InsertRemoveTag(RemoveTag{Patch: addedBy, Parents: parents, Event: event, Tag: tag})
}

// InsertCreateEvent adds op unless an identical op is already present.
func (p *Patch) InsertCreateEvent(op CreateEvent) *Patch {
	op.Start = Instant(op.Start)
	op.Tags = NormalizeTags(op.Tags)
	if !slices.ContainsFunc(p.CreateEvents, op.equal) {
		p.CreateEvents = append(p.CreateEvents, op)
	}
	return p
}

// InsertAddStart adds op unless an identical op is already present.
func (p *Patch) InsertAddStart(op AddStart) *Patch {
	op.Time = Instant(op.Time)
	op.Parents = normalizeRefs(op.Parents)
	if !slices.ContainsFunc(p.AddStarts, op.equal) {
		p.AddStarts = append(p.AddStarts, op)
	}
	return p
}

// InsertRemoveStart adds op unless an identical op is already present.
func (p *Patch) InsertRemoveStart(op RemoveStart) *Patch {
	op.Time = Instant(op.Time)
	op.Parents = normalizeRefs(op.Parents)
	if !slices.ContainsFunc(p.RemoveStarts, op.equal) {
		p.RemoveStarts = append(p.RemoveStarts, op)
	}
	return p
}

// InsertAddTag adds op unless an identical op is already present.
func (p *Patch) InsertAddTag(op AddTag) *Patch {
	op.Tag = NormalizeTag(string(op.Tag))
	op.Parents = normalizeRefs(op.Parents)
	if !slices.ContainsFunc(p.AddTags, op.equal) {
		p.AddTags = append(p.AddTags, op)
	}
	return p
}

// InsertRemoveTag adds op unless an identical op is already present.
func (p *Patch) InsertRemoveTag(op RemoveTag) *Patch {
	op.Tag = NormalizeTag(string(op.Tag))
	op.Parents = normalizeRefs(op.Parents)
	if !slices.ContainsFunc(p.RemoveTags, op.equal) {
		p.RemoveTags = append(p.RemoveTags, op)
	}
	return p
}

// Parents returns the sorted union of every patch this patch depends on:
// the declared parents of each operation plus the origin patch named by
// each removal.
func (p *Patch) Parents() []PatchRef {
	var refs []PatchRef
	for _, op := range p.AddStarts {
		refs = append(refs, op.Parents...)
	}
	for _, op := range p.RemoveStarts {
		refs = append(refs, op.Patch)
		refs = append(refs, op.Parents...)
	}
	for _, op := range p.AddTags {
		refs = append(refs, op.Parents...)
	}
	for _, op := range p.RemoveTags {
		refs = append(refs, op.Patch)
		refs = append(refs, op.Parents...)
	}
	refs = normalizeRefs(refs)
	return slices.DeleteFunc(refs, func(r PatchRef) bool { return r == p.Ref })
}

// Events returns the sorted set of event refs touched by any operation.
func (p *Patch) Events() []EventRef {
	var events []EventRef
	for _, op := range p.CreateEvents {
		events = append(events, op.Event)
	}
	for _, op := range p.AddStarts {
		events = append(events, op.Event)
	}
	for _, op := range p.RemoveStarts {
		events = append(events, op.Event)
	}
	for _, op := range p.AddTags {
		events = append(events, op.Event)
	}
	for _, op := range p.RemoveTags {
		events = append(events, op.Event)
	}
	slices.Sort(events)
	return slices.Compact(events)
}

// Len returns the total number of operations in the patch.
func (p *Patch) Len() int {
	return len(p.CreateEvents) + len(p.AddStarts) + len(p.RemoveStarts) +
		len(p.AddTags) + len(p.RemoveTags)
}

// IsEmpty reports whether the patch carries no operations.
func (p *Patch) IsEmpty() bool {
	return p.Len() == 0
}

func normalizeRefs(refs []PatchRef) []PatchRef {
	if len(refs) == 0 {
		return nil
	}
	out := slices.Clone(refs)
	slices.Sort(out)
	out = slices.Compact(out)
	return slices.DeleteFunc(out, func(r PatchRef) bool { return r == "" })
}

func (a CreateEvent) equal(b CreateEvent) bool {
	return a.Event == b.Event && a.Start.Equal(b.Start) && slices.Equal(a.Tags, b.Tags)
}

func (a AddStart) equal(b AddStart) bool {
	return a.Event == b.Event && a.Time.Equal(b.Time) && slices.Equal(a.Parents, b.Parents)
}

func (a RemoveStart) equal(b RemoveStart) bool {
	return a.Patch == b.Patch && a.Event == b.Event && a.Time.Equal(b.Time) &&
		slices.Equal(a.Parents, b.Parents)
}

func (a AddTag) equal(b AddTag) bool {
	return a.Event == b.Event && a.Tag == b.Tag && slices.Equal(a.Parents, b.Parents)
}

func (a RemoveTag) equal(b RemoveTag) bool {
	return a.Patch == b.Patch && a.Event == b.Event && a.Tag == b.Tag &&
		slices.Equal(a.Parents, b.Parents)
}
