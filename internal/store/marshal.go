package store

import (
	"bytes"
	"fmt"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/roach88/augr/internal/patch"
)

// The wire structs mirror the kebab-case TOML layout shared by every device.
// Older clients wrote a single "parent" key on add operations; it is still
// accepted on read and folded into parents.

type patchFile struct {
	ID          string            `toml:"id"`
	CreateEvent []createEventFile `toml:"create-event,omitempty"`
	AddStart    []addStartFile    `toml:"add-start,omitempty"`
	RemoveStart []removeStartFile `toml:"remove-start,omitempty"`
	AddTag      []addTagFile      `toml:"add-tag,omitempty"`
	RemoveTag   []removeTagFile   `toml:"remove-tag,omitempty"`
}

type createEventFile struct {
	Event string    `toml:"event"`
	Start timestamp `toml:"start"`
	Tags  []string  `toml:"tags"`
}

type addStartFile struct {
	Parent  string    `toml:"parent,omitempty"`
	Parents []string  `toml:"parents,omitempty"`
	Event   string    `toml:"event"`
	Time    timestamp `toml:"time"`
}

type removeStartFile struct {
	Patch   string    `toml:"patch"`
	Parents []string  `toml:"parents,omitempty"`
	Event   string    `toml:"event"`
	Time    timestamp `toml:"time"`
}

type addTagFile struct {
	Parent  string   `toml:"parent,omitempty"`
	Parents []string `toml:"parents,omitempty"`
	Event   string   `toml:"event"`
	Tag     string   `toml:"tag"`
}

type removeTagFile struct {
	Patch   string   `toml:"patch"`
	Parents []string `toml:"parents,omitempty"`
	Event   string   `toml:"event"`
	Tag     string   `toml:"tag"`
}

type metaFile struct {
	Patches []string `toml:"patches"`
}

// timestamp reads both TOML offset date-times and RFC 3339 strings, and
// writes RFC 3339 strings.
type timestamp time.Time

func (ts timestamp) MarshalText() ([]byte, error) {
	return []byte(time.Time(ts).UTC().Format(time.RFC3339Nano)), nil
}

func (ts *timestamp) UnmarshalText(data []byte) error {
	text := string(bytes.TrimSpace(data))
	// TOML allows a space instead of the T separator.
	if len(text) > 10 && text[10] == ' ' {
		text = text[:10] + "T" + text[11:]
	}
	t, err := time.Parse(time.RFC3339Nano, text)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", string(data), err)
	}
	*ts = timestamp(patch.Instant(t))
	return nil
}

// MarshalPatch encodes p as a TOML patch file.
func MarshalPatch(p *patch.Patch) ([]byte, error) {
	f := patchFile{ID: string(p.Ref)}
	for _, op := range p.CreateEvents {
		f.CreateEvent = append(f.CreateEvent, createEventFile{
			Event: string(op.Event),
			Start: timestamp(op.Start),
			Tags:  tagStrings(op.Tags),
		})
	}
	for _, op := range p.AddStarts {
		f.AddStart = append(f.AddStart, addStartFile{
			Parents: refStrings(op.Parents),
			Event:   string(op.Event),
			Time:    timestamp(op.Time),
		})
	}
	for _, op := range p.RemoveStarts {
		f.RemoveStart = append(f.RemoveStart, removeStartFile{
			Patch:   string(op.Patch),
			Parents: refStrings(op.Parents),
			Event:   string(op.Event),
			Time:    timestamp(op.Time),
		})
	}
	for _, op := range p.AddTags {
		f.AddTag = append(f.AddTag, addTagFile{
			Parents: refStrings(op.Parents),
			Event:   string(op.Event),
			Tag:     string(op.Tag),
		})
	}
	for _, op := range p.RemoveTags {
		f.RemoveTag = append(f.RemoveTag, removeTagFile{
			Patch:   string(op.Patch),
			Parents: refStrings(op.Parents),
			Event:   string(op.Event),
			Tag:     string(op.Tag),
		})
	}

	data, err := toml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal patch %s: %w", p.Ref, err)
	}
	return data, nil
}

// UnmarshalPatch decodes a TOML patch file stored under ref. A file without
// an id takes ref; a file whose id disagrees with ref is rejected.
func UnmarshalPatch(ref patch.PatchRef, data []byte) (*patch.Patch, error) {
	var f patchFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshal patch %s: %w", ref, err)
	}
	if f.ID != "" && ref != "" && patch.PatchRef(f.ID) != ref {
		return nil, fmt.Errorf("unmarshal patch %s: file declares id %q", ref, f.ID)
	}
	if ref == "" {
		ref = patch.PatchRef(f.ID)
	}
	if ref == "" {
		return nil, fmt.Errorf("unmarshal patch: missing id")
	}

	p := patch.NewWithRef(ref)
	for _, op := range f.CreateEvent {
		p.InsertCreateEvent(patch.CreateEvent{
			Event: patch.EventRef(op.Event),
			Start: time.Time(op.Start),
			Tags:  patch.NormalizeTags(op.Tags),
		})
	}
	for _, op := range f.AddStart {
		p.InsertAddStart(patch.AddStart{
			Parents: withLegacyParent(op.Parent, op.Parents),
			Event:   patch.EventRef(op.Event),
			Time:    time.Time(op.Time),
		})
	}
	for _, op := range f.RemoveStart {
		p.InsertRemoveStart(patch.RemoveStart{
			Patch:   patch.PatchRef(op.Patch),
			Parents: withLegacyParent("", op.Parents),
			Event:   patch.EventRef(op.Event),
			Time:    time.Time(op.Time),
		})
	}
	for _, op := range f.AddTag {
		p.InsertAddTag(patch.AddTag{
			Parents: withLegacyParent(op.Parent, op.Parents),
			Event:   patch.EventRef(op.Event),
			Tag:     patch.Tag(op.Tag),
		})
	}
	for _, op := range f.RemoveTag {
		p.InsertRemoveTag(patch.RemoveTag{
			Patch:   patch.PatchRef(op.Patch),
			Parents: withLegacyParent("", op.Parents),
			Event:   patch.EventRef(op.Event),
			Tag:     patch.Tag(op.Tag),
		})
	}
	return p, nil
}

// MarshalMeta encodes a frontier as a TOML meta file.
func MarshalMeta(m patch.Meta) ([]byte, error) {
	data, err := toml.Marshal(metaFile{Patches: refStrings(m.Refs())})
	if err != nil {
		return nil, fmt.Errorf("marshal meta: %w", err)
	}
	return data, nil
}

// UnmarshalMeta decodes a TOML meta file.
func UnmarshalMeta(data []byte) (patch.Meta, error) {
	var f metaFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return patch.Meta{}, fmt.Errorf("unmarshal meta: %w", err)
	}
	m := patch.NewMeta()
	for _, r := range f.Patches {
		if r != "" {
			m.Add(patch.PatchRef(r))
		}
	}
	return m, nil
}

func withLegacyParent(parent string, parents []string) []patch.PatchRef {
	out := make([]patch.PatchRef, 0, len(parents)+1)
	if parent != "" {
		out = append(out, patch.PatchRef(parent))
	}
	for _, p := range parents {
		out = append(out, patch.PatchRef(p))
	}
	return out
}

func refStrings(refs []patch.PatchRef) []string {
	if len(refs) == 0 {
		return nil
	}
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = string(r)
	}
	return out
}

func tagStrings(tags []patch.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}
