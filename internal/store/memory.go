package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/roach88/augr/internal/patch"
)

// MemStore is an in-memory Store used by tests and conformance scenarios.
//
// It records the order of GetPatch calls so tests can assert on fetch order,
// and can be told to fail fetches for specific refs.
//
// Thread-safety: all methods are safe for concurrent use.
type MemStore struct {
	mu       sync.Mutex
	deviceID string
	metas    map[string]patch.Meta
	patches  map[patch.PatchRef]*patch.Patch
	failing  map[patch.PatchRef]error
	fetches  []patch.PatchRef
}

// NewMemStore returns an empty store whose SaveMeta writes deviceID's frontier.
func NewMemStore(deviceID string) *MemStore {
	return &MemStore{
		deviceID: deviceID,
		metas:    make(map[string]patch.Meta),
		patches:  make(map[patch.PatchRef]*patch.Patch),
		failing:  make(map[patch.PatchRef]error),
	}
}

// WithMeta sets the frontier of deviceID. Returns the store for chaining.
func (s *MemStore) WithMeta(deviceID string, refs ...patch.PatchRef) *MemStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metas[deviceID] = patch.NewMeta(refs...)
	return s
}

// WithPatches stores patches, replacing any with the same ref. Returns the
// store for chaining.
func (s *MemStore) WithPatches(ps ...*patch.Patch) *MemStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range ps {
		s.patches[p.Ref] = p
	}
	return s
}

// FailFetch makes GetPatch(ref) return err.
func (s *MemStore) FailFetch(ref patch.PatchRef, err error) *MemStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[ref] = err
	return s
}

// GetMeta returns the union of every device frontier.
func (s *MemStore) GetMeta(ctx context.Context) (patch.Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := patch.NewMeta()
	for _, device := range slices.Sorted(maps.Keys(s.metas)) {
		all = all.Union(s.metas[device])
	}
	return all, nil
}

// DeviceMeta returns the frontier of one device.
func (s *MemStore) DeviceMeta(deviceID string) patch.Meta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return patch.NewMeta(s.metas[deviceID].Refs()...)
}

// SaveMeta replaces this store's device frontier.
func (s *MemStore) SaveMeta(ctx context.Context, meta patch.Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metas[s.deviceID] = patch.NewMeta(meta.Refs()...)
	return nil
}

// GetPatch returns the stored patch for ref.
func (s *MemStore) GetPatch(ctx context.Context, ref patch.PatchRef) (*patch.Patch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fetches = append(s.fetches, ref)
	if err, ok := s.failing[ref]; ok {
		return nil, fmt.Errorf("get patch %s: %w", ref, err)
	}
	p, ok := s.patches[ref]
	if !ok {
		return nil, fmt.Errorf("get patch %s: %w", ref, ErrNotFound)
	}
	return p, nil
}

// AddPatch stores a new patch.
func (s *MemStore) AddPatch(ctx context.Context, p *patch.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.patches[p.Ref]; ok {
		return fmt.Errorf("add patch %s: %w", p.Ref, ErrPatchExists)
	}
	s.patches[p.Ref] = p
	return nil
}

// PatchRefs returns every stored ref, sorted.
func (s *MemStore) PatchRefs(ctx context.Context) ([]patch.PatchRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.patches)), nil
}

// Fetches returns the refs passed to GetPatch, in call order.
func (s *MemStore) Fetches() []patch.PatchRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.fetches)
}
