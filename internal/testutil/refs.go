package testutil

import (
	"fmt"
	"sync"
)

// SequentialRefs generates "<prefix>-1", "<prefix>-2", ... for patch and
// event refs, so stored files and golden output have stable names.
//
// Implements patch.RefGenerator.
//
// Thread-safety: SequentialRefs is safe for concurrent use via internal mutex.
type SequentialRefs struct {
	mu     sync.Mutex
	prefix string
	seq    int
}

// NewSequentialRefs creates a generator. An empty prefix defaults to "ref".
func NewSequentialRefs(prefix string) *SequentialRefs {
	if prefix == "" {
		prefix = "ref"
	}
	return &SequentialRefs{prefix: prefix}
}

// Generate returns the next ref in the sequence.
func (g *SequentialRefs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", g.prefix, g.seq)
}

// FixedRefs returns predetermined refs in order.
//
// Example:
//
//	gen := NewFixedRefs("patch-1", "event-a")
//	gen.Generate() // "patch-1"
//	gen.Generate() // "event-a"
//	gen.Generate() // panic: all refs exhausted
type FixedRefs struct {
	mu   sync.Mutex
	refs []string
	idx  int
}

// NewFixedRefs creates a generator that returns refs in order.
func NewFixedRefs(refs ...string) *FixedRefs {
	return &FixedRefs{refs: refs}
}

// Generate returns the next predetermined ref.
//
// Panics if all refs have been consumed, so a test that builds more patches
// than it expects fails loudly.
func (g *FixedRefs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.refs) {
		panic("FixedRefs: all refs exhausted")
	}
	ref := g.refs[g.idx]
	g.idx++
	return ref
}
