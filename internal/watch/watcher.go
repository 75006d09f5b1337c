// Package watch reports changes to a sync folder's meta and patch files.
//
// Sync tools write files in bursts (a device syncing a day of work delivers
// dozens of patches at once), so changes are collected and delivered as one
// Batch once the folder has been quiet for the debounce interval.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a batch is delivered.
const DefaultDebounce = 250 * time.Millisecond

// Kind tells which kind of sync-folder file changed.
type Kind int

const (
	// KindPatch is a file under patches/.
	KindPatch Kind = iota
	// KindMeta is a device frontier file under meta/.
	KindMeta
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindPatch:
		return "patch"
	case KindMeta:
		return "meta"
	default:
		return "unknown"
	}
}

// Change is one changed file. Name is the file name without extension: a
// patch ref or a device id.
type Change struct {
	Kind Kind
	Name string
}

// Batch is a debounced group of changes, sorted and de-duplicated.
type Batch struct {
	Changes []Change
}

// Patches returns the names of the changed patch files.
func (b Batch) Patches() []string {
	return b.names(KindPatch)
}

// Devices returns the names of the changed meta files.
func (b Batch) Devices() []string {
	return b.names(KindMeta)
}

func (b Batch) names(k Kind) []string {
	var out []string
	for _, c := range b.Changes {
		if c.Kind == k {
			out = append(out, c.Name)
		}
	}
	return out
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period. Non-positive values are ignored.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger for dropped events and watcher errors.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// Watcher watches <root>/meta and <root>/patches.
type Watcher struct {
	root     string
	debounce time.Duration
	logger   *slog.Logger

	fs      *fsnotify.Watcher
	batches chan Batch
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// New creates a watcher for the sync folder at root. It emits nothing until
// Start is called.
func New(root string, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	w := newWatcher(root, opts...)
	w.fs = fsw
	return w, nil
}

func newWatcher(root string, opts ...Option) *Watcher {
	w := &Watcher{
		root:     root,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		batches:  make(chan Batch, 16),
		errors:   make(chan error, 16),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start creates the meta and patches directories if needed and begins
// watching them. The watcher stops when ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}

	for _, dir := range []string{w.metaDir(), w.patchDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	w.running = true
	w.wg.Add(1)
	go w.run(ctx, w.fs.Events, w.fs.Errors)
	return nil
}

// Stop stops watching and closes the Batches and Errors channels. It blocks
// until the event loop has exited. Stopping twice is a no-op.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		if w.fs != nil {
			return w.fs.Close()
		}
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)
	err := w.fs.Close()
	w.wg.Wait()

	close(w.batches)
	close(w.errors)

	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// Batches returns the channel of debounced changes.
func (w *Watcher) Batches() <-chan Batch {
	return w.batches
}

// Errors returns the channel of watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// IsRunning returns true if the watcher is currently running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) run(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) {
	defer w.wg.Done()

	pending := map[Change]struct{}{}
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	flush := func() bool {
		if len(pending) == 0 {
			return true
		}
		b := Batch{Changes: sortedChanges(pending)}
		clear(pending)
		select {
		case w.batches <- b:
			return true
		case <-w.done:
			return false
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return

		case ev, ok := <-events:
			if !ok {
				flush()
				return
			}
			c, ok := w.classify(ev)
			if !ok {
				w.logger.Debug("watch event ignored", "path", ev.Name, "op", ev.Op.String())
				continue
			}
			pending[c] = struct{}{}
			timer.Reset(w.debounce)

		case <-timer.C:
			if !flush() {
				return
			}

		case err, ok := <-errs:
			if !ok {
				continue
			}
			w.logger.Warn("watch error", "error", err)
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

// classify maps a file system event to a Change. Temp files, other
// extensions, chmod-only events and files outside meta/ and patches/ are
// ignored.
func (w *Watcher) classify(ev fsnotify.Event) (Change, bool) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return Change{}, false
	}
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") || filepath.Ext(base) != ".toml" {
		return Change{}, false
	}
	name := strings.TrimSuffix(base, ".toml")

	switch filepath.Clean(filepath.Dir(ev.Name)) {
	case filepath.Clean(w.patchDir()):
		return Change{Kind: KindPatch, Name: name}, true
	case filepath.Clean(w.metaDir()):
		return Change{Kind: KindMeta, Name: name}, true
	}
	return Change{}, false
}

func (w *Watcher) metaDir() string {
	return filepath.Join(w.root, "meta")
}

func (w *Watcher) patchDir() string {
	return filepath.Join(w.root, "patches")
}

func sortedChanges(set map[Change]struct{}) []Change {
	out := make([]Change, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Change) int {
		if a.Kind != b.Kind {
			return int(a.Kind) - int(b.Kind)
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}
