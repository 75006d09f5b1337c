package patch

import (
	"maps"
	"slices"
)

// Meta is a device's replication frontier: the patch refs its local state
// currently depends on. Ancestors reachable through parent links are implied
// and are not listed.
//
// The zero value is an empty frontier ready to use.
type Meta struct {
	patches map[PatchRef]struct{}
}

// NewMeta returns a frontier containing refs.
func NewMeta(refs ...PatchRef) Meta {
	m := Meta{}
	for _, r := range refs {
		m.Add(r)
	}
	return m
}

// Add inserts ref into the frontier.
func (m *Meta) Add(ref PatchRef) {
	if m.patches == nil {
		m.patches = make(map[PatchRef]struct{})
	}
	m.patches[ref] = struct{}{}
}

// Remove deletes ref from the frontier. Removing an absent ref is a no-op.
func (m *Meta) Remove(ref PatchRef) {
	delete(m.patches, ref)
}

// Contains reports whether ref is on the frontier.
func (m Meta) Contains(ref PatchRef) bool {
	_, ok := m.patches[ref]
	return ok
}

// Len returns the number of refs on the frontier.
func (m Meta) Len() int {
	return len(m.patches)
}

// Refs returns the frontier in sorted order.
func (m Meta) Refs() []PatchRef {
	return slices.Sorted(maps.Keys(m.patches))
}

// Union returns a new frontier holding the refs of m and every other.
func (m Meta) Union(others ...Meta) Meta {
	out := NewMeta(m.Refs()...)
	for _, o := range others {
		for r := range o.patches {
			out.Add(r)
		}
	}
	return out
}

// Advance moves the frontier past p: p's parents are superseded by p.
func (m *Meta) Advance(p *Patch) {
	for _, parent := range p.Parents() {
		m.Remove(parent)
	}
	m.Add(p.Ref)
}

// Equal reports whether both frontiers hold exactly the same refs.
func (m Meta) Equal(o Meta) bool {
	return slices.Equal(m.Refs(), o.Refs())
}
