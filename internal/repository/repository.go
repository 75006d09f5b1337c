package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/augr/internal/patch"
	"github.com/roach88/augr/internal/store"
)

// Repository replays the patches of a Store and records new ones.
//
// The frontier is read once by Open and rewritten once per Commit. A
// Repository is not safe for concurrent use.
type Repository struct {
	store         store.Store
	meta          patch.Meta
	logger        *slog.Logger
	maxIterations int
}

// Option configures a Repository.
type Option func(*Repository)

// WithMaxIterations bounds the number of queue pops in Load. Refs still
// queued when the bound is hit are reported as ITERATION_LIMIT.
//
// Default: 0 (unbounded; the stall guard still guarantees termination).
func WithMaxIterations(n int) Option {
	return func(r *Repository) {
		r.maxIterations = n
	}
}

// WithLogger sets the logger used for replay diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		r.logger = logger
	}
}

// Open reads the frontier of s and returns a Repository over it.
func Open(ctx context.Context, s store.Store, opts ...Option) (*Repository, error) {
	r := &Repository{
		store:  s,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	meta, err := s.GetMeta(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read frontier: %w", err)
	}
	r.meta = meta
	return r, nil
}

// Meta returns a copy of the current frontier.
func (r *Repository) Meta() patch.Meta {
	return patch.NewMeta(r.meta.Refs()...)
}

// Store returns the underlying record store.
func (r *Repository) Store() store.Store {
	return r.store
}

type replay struct {
	repo    *Repository
	ts      *PatchedTimesheet
	queue   *worklist
	fetched map[patch.PatchRef]*patch.Patch
	errored map[patch.PatchRef]struct{}
	errs    Errors
	guard   stallGuard
}

// Load replays every patch reachable from the frontier and returns the
// merged aggregate.
//
// The aggregate is always returned, holding every patch that could be
// applied. The error is nil when every patch applied cleanly, Errors when
// some could not, or a wrapped context error if ctx ended first.
func (r *Repository) Load(ctx context.Context) (*PatchedTimesheet, error) {
	rp := &replay{
		repo:    r,
		ts:      NewPatchedTimesheet(),
		queue:   newWorklist(r.meta.Refs()...),
		fetched: make(map[patch.PatchRef]*patch.Patch),
		errored: make(map[patch.PatchRef]struct{}),
	}

	for iterations := 0; rp.queue.len() > 0; iterations++ {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("replay interrupted", "applied", len(rp.ts.applied), "queued", rp.queue.len())
			return rp.ts, fmt.Errorf("replay interrupted: %w", err)
		}
		if r.maxIterations > 0 && iterations >= r.maxIterations {
			for _, ref := range rp.queue.drain() {
				rp.fail(&Error{Code: ErrCodeIterationLimit, Patch: ref})
			}
			break
		}

		ref, _ := rp.queue.pop()
		if stuck := rp.step(ctx, ref); stuck {
			rp.failCycle()
			break
		}
	}

	r.logger.Info("replay complete",
		"patches", len(rp.ts.applied),
		"events", rp.ts.Len(),
		"errors", len(rp.errs),
	)
	return rp.ts, rp.errs.orNil()
}

// step processes one popped ref. Returns true when the queue is stuck.
func (rp *replay) step(ctx context.Context, ref patch.PatchRef) bool {
	log := rp.repo.logger
	if _, bad := rp.errored[ref]; bad || rp.ts.Applied(ref) {
		rp.guard.progress()
		return false
	}

	p, err := rp.fetch(ctx, ref)
	if err != nil {
		rp.fail(&Error{Code: ErrCodePatchNotFound, Patch: ref, Err: err})
		return false
	}

	var missing []patch.PatchRef
	for _, parent := range p.Parents() {
		if !rp.ts.Applied(parent) {
			missing = append(missing, parent)
		}
	}
	if len(missing) > 0 {
		for _, parent := range missing {
			if _, bad := rp.errored[parent]; bad {
				rp.fail(&Error{Code: ErrCodeDependencyFailed, Patch: ref, Parent: parent})
				return false
			}
		}

		discovered := false
		for _, parent := range missing {
			if rp.queue.push(parent) {
				discovered = true
			}
		}
		rp.queue.push(ref)
		log.Debug("patch deferred", "patch", ref, "missing", missing)

		if discovered {
			rp.guard.progress()
			return false
		}
		return rp.guard.stall(rp.queue.len())
	}

	if err := rp.ts.Apply(p); err != nil {
		errs := AsErrors(err)
		rp.errored[ref] = struct{}{}
		rp.errs = append(rp.errs, errs...)
		rp.guard.progress()
		log.Debug("patch rejected", "patch", ref, "errors", len(errs))
		return false
	}

	rp.guard.progress()
	log.Debug("patch applied", "patch", ref, "ops", p.Len())
	return false
}

func (rp *replay) fetch(ctx context.Context, ref patch.PatchRef) (*patch.Patch, error) {
	if p, ok := rp.fetched[ref]; ok {
		return p, nil
	}
	p, err := rp.repo.store.GetPatch(ctx, ref)
	if err != nil {
		return nil, err
	}
	rp.fetched[ref] = p
	return p, nil
}

func (rp *replay) fail(e *Error) {
	rp.errored[e.Patch] = struct{}{}
	rp.errs = append(rp.errs, e)
	rp.guard.progress()
	rp.repo.logger.Debug("patch failed", "patch", e.Patch, "code", e.Code)
}

// failCycle reports every ref left in the queue as waiting on a parent that
// can never load.
func (rp *replay) failCycle() {
	stuck := rp.queue.drain()
	for _, ref := range stuck {
		parent := rp.firstMissingParent(ref)
		rp.fail(&Error{Code: ErrCodeCycleDetected, Patch: ref, Parent: parent})
	}
	rp.repo.logger.Warn("replay stuck on parent cycle", "patches", len(stuck))
}

func (rp *replay) firstMissingParent(ref patch.PatchRef) patch.PatchRef {
	p, ok := rp.fetched[ref]
	if !ok {
		return ""
	}
	for _, parent := range p.Parents() {
		if !rp.ts.Applied(parent) {
			return parent
		}
	}
	return ""
}

// Commit stores each patch, advances the frontier past it and saves the
// frontier once. Patches stored before a failure stay in the store but are
// not on the frontier.
func (r *Repository) Commit(ctx context.Context, patches ...*patch.Patch) error {
	if len(patches) == 0 {
		return nil
	}

	next := r.Meta()
	for _, p := range patches {
		if p == nil || p.IsEmpty() {
			return errors.New("refusing to commit an empty patch")
		}
		if err := r.store.AddPatch(ctx, p); err != nil {
			return fmt.Errorf("failed to store patch %s: %w", p.Ref, err)
		}
		next.Advance(p)
		r.logger.Debug("patch stored", "patch", p.Ref, "parents", p.Parents())
	}

	if err := r.store.SaveMeta(ctx, next); err != nil {
		return fmt.Errorf("failed to save frontier: %w", err)
	}
	r.meta = next
	return nil
}
