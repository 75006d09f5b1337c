package patch

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// PatchRef identifies a patch. It doubles as the patch's file name in a
// sync folder, so it must be a valid single path element.
type PatchRef string

// EventRef identifies a logical event. Assigned once by CreateEvent.
type EventRef string

// Tag is a free-form label attached to an event.
type Tag string

// RefGenerator produces new, globally unique refs.
//
// Production code uses UUIDv7Generator; tests inject a deterministic
// generator so patches and golden output are reproducible.
type RefGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 refs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewPatchRef returns a fresh patch ref from gen.
func NewPatchRef(gen RefGenerator) PatchRef {
	return PatchRef(gen.Generate())
}

// NewEventRef returns a fresh event ref from gen.
func NewEventRef(gen RefGenerator) EventRef {
	return EventRef(gen.Generate())
}

// ValidateRef reports whether ref can be used as a file name inside a
// patches or meta directory.
func ValidateRef(ref string) error {
	switch {
	case ref == "":
		return fmt.Errorf("ref is empty")
	case ref == "." || ref == "..":
		return fmt.Errorf("ref %q is a relative path", ref)
	case strings.ContainsAny(ref, `/\`):
		return fmt.Errorf("ref %q contains a path separator", ref)
	case strings.ContainsRune(ref, 0):
		return fmt.Errorf("ref %q contains a NUL byte", ref)
	}
	return nil
}
