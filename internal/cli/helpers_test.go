package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/augr/internal/config"
	"github.com/roach88/augr/internal/testutil"
)

// testNow is the wall clock for every CLI test: the evening of the day the
// basic repository was recorded.
var testNow = time.Date(2019, 7, 23, 18, 0, 0, 0, time.UTC)

// newTestOptions returns options writing to an empty sync folder as device
// "laptop".
func newTestOptions(t *testing.T) *RootOptions {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "sync")
	return &RootOptions{
		Config: &config.Config{
			SyncFolder: dir,
			DeviceID:   "laptop",
			Backend:    config.BackendFolder,
			Database:   filepath.Join(dir, "augr.db"),
		},
		Now:  testutil.NewManualClock(testNow).Now,
		Refs: testutil.NewSequentialRefs("ref"),
	}
}

// withBasicRepo copies the store package's basic repository into the sync
// folder: a (lunch, 12:30), b (awesome-project work, 13:00) and c (gym,
// 15:00).
func withBasicRepo(t *testing.T, opts *RootOptions) *RootOptions {
	t.Helper()
	src := filepath.Join("..", "store", "testdata", "basic_repo")
	require.NoError(t, os.CopyFS(opts.Config.SyncFolder, os.DirFS(src)))
	return opts
}

// execute runs the root command with args and returns stdout, stderr and
// the exit code.
func execute(t *testing.T, opts *RootOptions, args ...string) (string, string, int) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := Execute(context.Background(), opts, args, &out, &errOut)
	return out.String(), errOut.String(), code
}

// response is a CLIResponse with a typed payload.
type response[T any] struct {
	Status string    `json:"status"`
	Data   T         `json:"data"`
	Error  *CLIError `json:"error"`
}

func decode[T any](t *testing.T, out string) response[T] {
	t.Helper()
	var r response[T]
	require.NoError(t, json.Unmarshal([]byte(out), &r), "output: %s", out)
	return r
}

// syncBuffer is a bytes.Buffer safe for one writer goroutine and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
