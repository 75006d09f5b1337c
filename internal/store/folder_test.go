package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/augr/internal/patch"
)

func TestFolderStoreReadsBasicRepo(t *testing.T) {
	ctx := context.Background()
	s, err := NewFolderStore("testdata/basic_repo", "laptop")
	require.NoError(t, err)

	meta, err := s.GetMeta(ctx)
	require.NoError(t, err)
	assert.Equal(t, []patch.PatchRef{"laptop-patch-2", "phone-patch-1"}, meta.Refs(),
		"meta must be the union of every device frontier")

	devices, err := s.Devices()
	require.NoError(t, err)
	assert.Equal(t, []string{"laptop", "phone"}, devices)

	p1, err := s.GetPatch(ctx, "laptop-patch-1")
	require.NoError(t, err)
	expected := patch.NewWithRef("laptop-patch-1").
		CreateEvent("a", ts(t, "2019-07-23T12:00:00Z"), "lunch", "food").
		CreateEvent("b", ts(t, "2019-07-23T13:00:00Z"), "work")
	assert.Equal(t, expected, p1)

	p2, err := s.GetPatch(ctx, "laptop-patch-2")
	require.NoError(t, err)
	assert.Equal(t, []patch.PatchRef{"laptop-patch-1"}, p2.Parents())
	assert.Equal(t, 4, p2.Len())

	phone, err := s.GetPatch(ctx, "phone-patch-1")
	require.NoError(t, err)
	require.Len(t, phone.CreateEvents, 1)
	assert.True(t, phone.CreateEvents[0].Start.Equal(ts(t, "2019-07-23T15:00:00Z")))

	refs, err := s.PatchRefs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []patch.PatchRef{"laptop-patch-1", "laptop-patch-2", "phone-patch-1"}, refs)
}

func TestFolderStoreEmptyFolder(t *testing.T) {
	ctx := context.Background()
	s, err := NewFolderStore(t.TempDir(), "laptop")
	require.NoError(t, err)

	meta, err := s.GetMeta(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, meta.Len())

	refs, err := s.PatchRefs(ctx)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestFolderStoreGetPatchNotFound(t *testing.T) {
	s, err := NewFolderStore(t.TempDir(), "laptop")
	require.NoError(t, err)

	_, err = s.GetPatch(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestFolderStoreAddAndGetPatch(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewFolderStore(root, "laptop")
	require.NoError(t, err)

	p := patch.NewWithRef("p1").CreateEvent("a", ts(t, "2019-07-23T12:00:00Z"), "lunch")
	require.NoError(t, s.AddPatch(ctx, p))

	_, err = os.Stat(filepath.Join(root, "patches", "p1.toml"))
	require.NoError(t, err)

	got, err := s.GetPatch(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestFolderStoreAddPatchNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	s, err := NewFolderStore(t.TempDir(), "laptop")
	require.NoError(t, err)

	first := patch.NewWithRef("p1").CreateEvent("a", ts(t, "2019-07-23T12:00:00Z"))
	second := patch.NewWithRef("p1").CreateEvent("b", ts(t, "2019-07-23T13:00:00Z"))

	require.NoError(t, s.AddPatch(ctx, first))
	err = s.AddPatch(ctx, second)
	require.ErrorIs(t, err, ErrPatchExists)

	got, err := s.GetPatch(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

func TestFolderStoreSaveMetaOnlyTouchesOwnDevice(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	laptop, err := NewFolderStore(root, "laptop")
	require.NoError(t, err)
	phone, err := NewFolderStore(root, "phone")
	require.NoError(t, err)

	require.NoError(t, laptop.SaveMeta(ctx, patch.NewMeta("l1")))
	require.NoError(t, phone.SaveMeta(ctx, patch.NewMeta("p1")))
	require.NoError(t, laptop.SaveMeta(ctx, patch.NewMeta("l2")))

	own, err := laptop.DeviceMeta("laptop")
	require.NoError(t, err)
	assert.Equal(t, []patch.PatchRef{"l2"}, own.Refs())

	all, err := phone.GetMeta(ctx)
	require.NoError(t, err)
	assert.Equal(t, []patch.PatchRef{"l2", "p1"}, all.Refs())

	entries, err := os.ReadDir(filepath.Join(root, "meta"))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files may be left behind")
}

func TestFolderStoreIgnoresForeignFiles(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "meta"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "meta", "laptop.toml"), []byte(`patches = ["a"]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "meta", ".laptop.toml.123.tmp"), []byte(`garbage`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "meta", "README"), []byte(`notes`), 0o644))

	s, err := NewFolderStore(root, "laptop")
	require.NoError(t, err)

	meta, err := s.GetMeta(ctx)
	require.NoError(t, err)
	assert.Equal(t, []patch.PatchRef{"a"}, meta.Refs())
}

func TestFolderStoreCorruptMeta(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "meta"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "meta", "laptop.toml"), []byte(`patches = [`), 0o644))

	s, err := NewFolderStore(root, "laptop")
	require.NoError(t, err)

	_, err = s.GetMeta(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "meta laptop")
}

func TestNewFolderStoreValidation(t *testing.T) {
	_, err := NewFolderStore("", "laptop")
	assert.Error(t, err)

	_, err = NewFolderStore(t.TempDir(), "../escape")
	assert.Error(t, err)

	_, err = NewFolderStore(t.TempDir(), "")
	assert.Error(t, err)
}

func TestFolderStoreRejectsInvalidRef(t *testing.T) {
	s, err := NewFolderStore(t.TempDir(), "laptop")
	require.NoError(t, err)

	err = s.AddPatch(context.Background(), patch.NewWithRef("../x"))
	assert.Error(t, err)

	_, err = s.GetPatch(context.Background(), "../x")
	assert.Error(t, err)
}
