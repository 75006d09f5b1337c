package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/augr/internal/patch"
)

func TestMemStoreContract(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore("laptop").
		WithMeta("phone", "p1").
		WithPatches(patch.NewWithRef("p1"))

	require.NoError(t, s.AddPatch(ctx, patch.NewWithRef("l1")))
	require.ErrorIs(t, s.AddPatch(ctx, patch.NewWithRef("l1")), ErrPatchExists)
	require.NoError(t, s.SaveMeta(ctx, patch.NewMeta("l1")))

	meta, err := s.GetMeta(ctx)
	require.NoError(t, err)
	assert.Equal(t, []patch.PatchRef{"l1", "p1"}, meta.Refs())
	assert.Equal(t, []patch.PatchRef{"l1"}, s.DeviceMeta("laptop").Refs())

	_, err = s.GetPatch(ctx, "missing")
	assert.True(t, IsNotFound(err))

	got, err := s.GetPatch(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, patch.PatchRef("p1"), got.Ref)

	assert.Equal(t, []patch.PatchRef{"missing", "p1"}, s.Fetches())

	refs, err := s.PatchRefs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []patch.PatchRef{"l1", "p1"}, refs)
}

func TestMemStoreFailFetch(t *testing.T) {
	boom := errors.New("disk on fire")
	s := NewMemStore("laptop").
		WithPatches(patch.NewWithRef("p1")).
		FailFetch("p1", boom)

	_, err := s.GetPatch(context.Background(), "p1")
	require.ErrorIs(t, err, boom)
}
