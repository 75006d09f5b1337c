package store

import (
	"context"
	"errors"

	"github.com/roach88/augr/internal/patch"
)

var (
	// ErrNotFound is returned by GetPatch when no patch has the requested ref.
	ErrNotFound = errors.New("patch not found")

	// ErrPatchExists is returned by AddPatch when a patch with the same ref
	// is already stored. Patches are immutable, so this is never an upsert.
	ErrPatchExists = errors.New("patch already exists")
)

// Store is the record store contract consumed by the replication engine.
type Store interface {
	// GetMeta returns the replication frontier to replay. Backends that hold
	// several device frontiers return their union.
	GetMeta(ctx context.Context) (patch.Meta, error)

	// SaveMeta replaces the local device's frontier.
	SaveMeta(ctx context.Context, meta patch.Meta) error

	// GetPatch returns the patch stored under ref, or an error wrapping
	// ErrNotFound.
	GetPatch(ctx context.Context, ref patch.PatchRef) (*patch.Patch, error)

	// AddPatch stores a new patch. Returns an error wrapping ErrPatchExists
	// if the ref is taken.
	AddPatch(ctx context.Context, p *patch.Patch) error
}

// Lister is implemented by stores that can enumerate every patch they hold,
// including patches no frontier reaches.
type Lister interface {
	PatchRefs(ctx context.Context) ([]patch.PatchRef, error)
}

// Compile-time interface checks.
var (
	_ Store  = (*FolderStore)(nil)
	_ Store  = (*SQLiteStore)(nil)
	_ Store  = (*MemStore)(nil)
	_ Lister = (*FolderStore)(nil)
	_ Lister = (*SQLiteStore)(nil)
	_ Lister = (*MemStore)(nil)
)

// IsNotFound reports whether err means the requested patch does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
