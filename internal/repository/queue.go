package repository

import "github.com/roach88/augr/internal/patch"

// worklist is the FIFO of patch refs waiting to be replayed.
//
// A ref is held at most once. Pushing a ref that is already queued is a
// no-op, so a patch deferred behind many children is still fetched and
// examined once per pass.
//
// Not safe for concurrent use; replay is single-threaded.
type worklist struct {
	refs   []patch.PatchRef
	queued map[patch.PatchRef]struct{}
}

func newWorklist(refs ...patch.PatchRef) *worklist {
	w := &worklist{
		refs:   make([]patch.PatchRef, 0, max(len(refs), 16)),
		queued: make(map[patch.PatchRef]struct{}, len(refs)),
	}
	for _, r := range refs {
		w.push(r)
	}
	return w
}

// push adds ref to the back. Returns false if it was already queued.
func (w *worklist) push(ref patch.PatchRef) bool {
	if _, ok := w.queued[ref]; ok {
		return false
	}
	w.queued[ref] = struct{}{}
	w.refs = append(w.refs, ref)
	return true
}

// pop removes and returns the front ref.
func (w *worklist) pop() (patch.PatchRef, bool) {
	if len(w.refs) == 0 {
		return "", false
	}
	ref := w.refs[0]
	w.refs[0] = ""
	if len(w.refs) == 1 {
		w.refs = w.refs[:0]
	} else {
		w.refs = w.refs[1:]
	}
	delete(w.queued, ref)
	return ref, true
}

// drain empties the queue and returns what it held, front first.
func (w *worklist) drain() []patch.PatchRef {
	out := append([]patch.PatchRef(nil), w.refs...)
	w.refs = w.refs[:0]
	clear(w.queued)
	return out
}

func (w *worklist) len() int {
	return len(w.refs)
}

// stallGuard detects a replay that can no longer make progress.
//
// Every pop that neither loads a patch, records an error nor queues a newly
// discovered parent counts as a stall. Once the number of consecutive stalls
// reaches the queue length, every queued ref has been examined since the
// last progress and all of them wait on parents that can only arrive
// through each other: a cycle in the parent graph, or patches stuck behind
// one.
type stallGuard struct {
	stalls int
}

func (g *stallGuard) progress() {
	g.stalls = 0
}

// stall records an unproductive pop and reports whether the queue is stuck.
func (g *stallGuard) stall(queued int) bool {
	g.stalls++
	return g.stalls >= queued
}
