package cli

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/augr/internal/config"
	"github.com/roach88/augr/internal/patch"
	"github.com/roach88/augr/internal/store"
)

// =============================================================================
// start
// =============================================================================

func TestStart_CreatesEvent(t *testing.T) {
	opts := withBasicRepo(t, newTestOptions(t))

	out, _, code := execute(t, opts, "--format", "json", "start", "work", "client", "--time", "17:00")

	require.Equal(t, ExitSuccess, code)
	resp := decode[StartResult](t, out)
	assert.Equal(t, patch.PatchRef("ref-1"), resp.Data.Patch)
	assert.Equal(t, patch.EventRef("ref-2"), resp.Data.Event)
	assert.Equal(t, []patch.Tag{"client", "work"}, resp.Data.Tags)
	assert.Equal(t, time.Date(2019, 7, 23, 17, 0, 0, 0, time.UTC), resp.Data.Start)

	fs, err := store.NewFolderStore(opts.Config.SyncFolder, "laptop")
	require.NoError(t, err)
	meta, err := fs.DeviceMeta("laptop")
	require.NoError(t, err)
	assert.Equal(t, []patch.PatchRef{"laptop-patch-2", "phone-patch-1", "ref-1"}, meta.Refs())

	out, _, code = execute(t, opts, "--format", "json", "summary", "client")
	require.Equal(t, ExitSuccess, code)
	sum := decode[SummaryResult](t, out)
	require.Len(t, sum.Data.Rows, 1)
	assert.Equal(t, "1h 0m", sum.Data.Total)
}

func TestStart_DefaultsToNow(t *testing.T) {
	opts := newTestOptions(t)

	out, _, code := execute(t, opts, "start", "reading")

	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "Started ref-2 at 2019-07-23 18:00 reading\n", out)
}

func TestStart_InvalidTime(t *testing.T) {
	opts := newTestOptions(t)

	_, stderr, code := execute(t, opts, "start", "x", "--time", "whenever")

	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "invalid --time")
}

func TestStart_SQLiteBackend(t *testing.T) {
	opts := newTestOptions(t)
	opts.Config.Backend = config.BackendSQLite

	_, _, code := execute(t, opts, "start", "work", "--time", "9:00")
	require.Equal(t, ExitSuccess, code)

	out, _, code := execute(t, opts, "--format", "json", "summary")
	require.Equal(t, ExitSuccess, code)
	sum := decode[SummaryResult](t, out)
	require.Len(t, sum.Data.Rows, 1)
	assert.Equal(t, "9h 0m", sum.Data.Total)
	assert.FileExists(t, filepath.Join(opts.Config.SyncFolder, "augr.db"))
}

// =============================================================================
// tag / untag / set-start
// =============================================================================

func TestTag(t *testing.T) {
	opts := withBasicRepo(t, newTestOptions(t))

	out, _, code := execute(t, opts, "tag", "a", "meeting")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "Tagged a (patch ref-1)\n", out)

	out, _, code = execute(t, opts, "tags")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "awesome-project\ngym\nlunch\nmeeting\nwork\n", out)
}

func TestTag_ParentsAreLatestPatches(t *testing.T) {
	opts := withBasicRepo(t, newTestOptions(t))

	out, _, code := execute(t, opts, "--format", "json", "tag", "b", "review")

	require.Equal(t, ExitSuccess, code)
	resp := decode[EditResult](t, out)
	assert.Equal(t, patch.EventRef("b"), resp.Data.Event)
	assert.Equal(t, []patch.PatchRef{"laptop-patch-2"}, resp.Data.Parents)
}

func TestTag_UnknownEvent(t *testing.T) {
	opts := withBasicRepo(t, newTestOptions(t))

	_, stderr, code := execute(t, opts, "tag", "nope", "x")

	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "unknown event")
}

func TestUntag(t *testing.T) {
	opts := withBasicRepo(t, newTestOptions(t))

	_, _, code := execute(t, opts, "untag", "b", "awesome-project")
	require.Equal(t, ExitSuccess, code)

	out, _, code := execute(t, opts, "tags")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "gym\nlunch\nwork\n", out)
}

func TestUntag_TagNotOnEvent(t *testing.T) {
	opts := withBasicRepo(t, newTestOptions(t))

	out, _, code := execute(t, opts, "--format", "json", "untag", "a", "nap")

	assert.Equal(t, ExitCommandError, code)
	resp := decode[any](t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeUnknownTags, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "nap")
}

func TestSetStart(t *testing.T) {
	opts := withBasicRepo(t, newTestOptions(t))

	_, _, code := execute(t, opts, "set-start", "a", "12:15")
	require.Equal(t, ExitSuccess, code)

	out, _, code := execute(t, opts, "--format", "json", "summary", "lunch")
	require.Equal(t, ExitSuccess, code)
	sum := decode[SummaryResult](t, out)
	require.Len(t, sum.Data.Rows, 1)
	assert.Equal(t, time.Date(2019, 7, 23, 12, 15, 0, 0, time.UTC), sum.Data.Rows[0].Start.UTC())
	assert.Equal(t, "45m", sum.Data.Rows[0].Duration)
}

func TestSetStart_ResolvesConflict(t *testing.T) {
	opts := withBasicRepo(t, newTestOptions(t))
	concurrentStarts(t, opts)

	_, _, code := execute(t, opts, "check")
	require.Equal(t, ExitFailure, code)

	_, _, code = execute(t, opts, "set-start", "b", "13:05")
	require.Equal(t, ExitSuccess, code)

	out, _, code := execute(t, opts, "check")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "No problems found")
}

// concurrentStarts has the phone move event b while the laptop moves it
// elsewhere, leaving b with two starts.
func concurrentStarts(t *testing.T, opts *RootOptions) {
	t.Helper()
	ctx := context.Background()
	phone, err := store.NewFolderStore(opts.Config.SyncFolder, "phone")
	require.NoError(t, err)
	laptop, err := store.NewFolderStore(opts.Config.SyncFolder, "laptop")
	require.NoError(t, err)

	p1 := patch.NewWithRef("phone-move").
		AddStart("b", time.Date(2019, 7, 23, 13, 10, 0, 0, time.UTC), "laptop-patch-1")
	p2 := patch.NewWithRef("laptop-move").
		AddStart("b", time.Date(2019, 7, 23, 13, 20, 0, 0, time.UTC), "laptop-patch-1")
	require.NoError(t, phone.AddPatch(ctx, p1))
	require.NoError(t, laptop.AddPatch(ctx, p2))
	require.NoError(t, phone.SaveMeta(ctx, patch.NewMeta("phone-move", "phone-patch-1")))
	require.NoError(t, laptop.SaveMeta(ctx, patch.NewMeta("laptop-move", "laptop-patch-2")))
}
