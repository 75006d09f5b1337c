package cli

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/augr/internal/config"
	"github.com/roach88/augr/internal/patch"
	"github.com/roach88/augr/internal/store"
)

func TestWatch_RequiresFolderBackend(t *testing.T) {
	opts := newTestOptions(t)
	opts.Config.Backend = config.BackendSQLite

	_, stderr, code := execute(t, opts, "watch")

	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "watch needs the folder backend")
}

func TestWatch_ReloadsOnNewPatch(t *testing.T) {
	opts := withBasicRepo(t, newTestOptions(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out, errOut syncBuffer
	done := make(chan int, 1)
	go func() {
		done <- Execute(ctx, opts, []string{"watch", "--debounce", "20ms"}, &out, &errOut)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(errOut.String(), "Watching")
	}, 5*time.Second, 10*time.Millisecond)

	phone, err := store.NewFolderStore(opts.Config.SyncFolder, "phone")
	require.NoError(t, err)
	p := patch.NewWithRef("phone-patch-2").
		CreateEvent("d", time.Date(2019, 7, 23, 17, 30, 0, 0, time.UTC), "reading")
	require.NoError(t, phone.AddPatch(ctx, p))
	require.NoError(t, phone.SaveMeta(ctx, patch.NewMeta("phone-patch-1", "phone-patch-2")))

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "4 patches, 4 events, 0 problem(s)")
	}, 5*time.Second, 10*time.Millisecond, "output: %s", out.String())
	assert.Contains(t, out.String(), "reloaded")

	cancel()
	select {
	case code := <-done:
		assert.Equal(t, ExitSuccess, code)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
