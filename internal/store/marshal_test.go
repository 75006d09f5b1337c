package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/augr/internal/patch"
)

func ts(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return parsed
}

func TestUnmarshalPatchOriginalFormat(t *testing.T) {
	data := []byte(`
id = "laptop-patch-2"

[[remove-start]]
patch = "laptop-patch-1"
event = "a"
time = "2019-07-23T12:00:00+00:00"

[[add-start]]
parent = "laptop-patch-1"
parents = ["other"]
event = "a"
time = 2019-07-23T12:30:00Z

[[add-tag]]
type = "add-tag"
parent = "laptop-patch-1"
event = "b"
tag = "awesome-project"
`)

	p, err := UnmarshalPatch("laptop-patch-2", data)
	require.NoError(t, err)

	assert.Equal(t, patch.PatchRef("laptop-patch-2"), p.Ref)
	require.Len(t, p.RemoveStarts, 1)
	assert.Equal(t, patch.PatchRef("laptop-patch-1"), p.RemoveStarts[0].Patch)
	assert.True(t, p.RemoveStarts[0].Time.Equal(ts(t, "2019-07-23T12:00:00Z")))

	require.Len(t, p.AddStarts, 1)
	assert.Equal(t, []patch.PatchRef{"laptop-patch-1", "other"}, p.AddStarts[0].Parents,
		"legacy parent key must be merged into parents")
	assert.True(t, p.AddStarts[0].Time.Equal(ts(t, "2019-07-23T12:30:00Z")))

	require.Len(t, p.AddTags, 1)
	assert.Equal(t, patch.Tag("awesome-project"), p.AddTags[0].Tag)

	assert.Equal(t, []patch.PatchRef{"laptop-patch-1", "other"}, p.Parents())
}

func TestUnmarshalPatchIDMismatch(t *testing.T) {
	_, err := UnmarshalPatch("p1", []byte(`id = "p2"`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declares id")
}

func TestUnmarshalPatchMissingIDTakesRef(t *testing.T) {
	p, err := UnmarshalPatch("p1", []byte(``))
	require.NoError(t, err)
	assert.Equal(t, patch.PatchRef("p1"), p.Ref)
	assert.True(t, p.IsEmpty())
}

func TestUnmarshalPatchInvalidTime(t *testing.T) {
	data := []byte(`
id = "p1"
[[create-event]]
event = "a"
start = "yesterday"
tags = []
`)
	_, err := UnmarshalPatch("p1", data)
	require.Error(t, err)
}

func TestUnmarshalPatchMalformed(t *testing.T) {
	_, err := UnmarshalPatch("p1", []byte(`id = `))
	require.Error(t, err)
}

func TestPatchRoundTrip(t *testing.T) {
	noon := ts(t, "2019-07-23T12:00:00Z")
	half := ts(t, "2019-07-23T12:30:00Z")

	original := patch.NewWithRef("p2").
		CreateEvent("c", noon, "gym").
		RemoveStart("p1", "a", noon, "p0").
		AddStart("a", half, "p1").
		RemoveTag("p1", "a", "food").
		AddTag("b", "awesome-project", "p1")

	data, err := MarshalPatch(original)
	require.NoError(t, err)

	decoded, err := UnmarshalPatch("p2", data)
	require.NoError(t, err)

	assert.Equal(t, original, decoded)
}

func TestMetaRoundTrip(t *testing.T) {
	m := patch.NewMeta("b", "a")

	data, err := MarshalMeta(m)
	require.NoError(t, err)

	decoded, err := UnmarshalMeta(data)
	require.NoError(t, err)
	assert.Equal(t, []patch.PatchRef{"a", "b"}, decoded.Refs())
}

func TestUnmarshalMetaEmpty(t *testing.T) {
	m, err := UnmarshalMeta([]byte(``))
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
}
