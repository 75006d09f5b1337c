package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/roach88/augr/internal/config"
	"github.com/roach88/augr/internal/patch"
	"github.com/roach88/augr/internal/repository"
	"github.com/roach88/augr/internal/store"
	"github.com/roach88/augr/internal/timesheet"
)

// app is everything a command needs: configuration, logger, the opened
// store and the repository over it.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   store.Store
	repo    *repository.Repository
	closers []io.Closer
}

// openApp loads configuration, sets up logging and opens the configured
// backend. The caller must Close the result.
func openApp(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*app, error) {
	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}

	a := &app{cfg: cfg}
	a.logger = a.newLogger(opts.Verbose, cmd.ErrOrStderr())

	switch cfg.Backend {
	case config.BackendSQLite:
		if err := os.MkdirAll(cfg.SyncFolder, 0o755); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create sync folder", err)
		}
		st, err := store.OpenSQLite(cfg.Database, cfg.DeviceID)
		if err != nil {
			a.Close()
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		a.store = st
		a.closers = append(a.closers, st)
	default:
		st, err := store.NewFolderStore(cfg.SyncFolder, cfg.DeviceID)
		if err != nil {
			a.Close()
			return nil, WrapExitError(ExitCommandError, "failed to open sync folder", err)
		}
		a.store = st
	}
	a.logger.Debug("store opened", "backend", cfg.Backend, "device", cfg.DeviceID, "sync_folder", cfg.SyncFolder)

	repo, err := repository.Open(ctx, a.store, repository.WithLogger(a.logger))
	if err != nil {
		a.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open repository", err)
	}
	a.repo = repo
	return a, nil
}

// newLogger logs to w at Warn, or Debug when verbose. A configured log file
// takes the place of w and is rotated by size.
func (a *app) newLogger(verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	if a.cfg.LogFile != "" {
		lj := &lumberjack.Logger{
			Filename:   a.cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		a.closers = append(a.closers, lj)
		w = lj
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Close releases the store and log file.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

// load replays the repository. Patches that failed to apply are logged and
// skipped; only store and context failures are returned.
func (a *app) load(ctx context.Context) (*repository.PatchedTimesheet, repository.Errors, error) {
	ts, err := a.repo.Load(ctx)
	if err == nil {
		return ts, nil, nil
	}
	errs := repository.AsErrors(err)
	if len(errs) == 0 {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load patches", err)
	}
	for _, e := range errs {
		a.logger.Warn("patch skipped", "code", string(e.Code), "patch", string(e.Patch), "error", e.Error())
	}
	return ts, errs, nil
}

// timesheet loads and flattens. Conflicting events are logged and left out.
func (a *app) timesheet(ctx context.Context) (*timesheet.Timesheet, error) {
	ts, _, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	flat, err := ts.Flatten()
	for _, e := range repository.AsErrors(err) {
		a.logger.Warn("event conflict", "code", string(e.Code), "event", string(e.Event), "error", e.Error())
	}
	return flat, nil
}

// commit stores patches and advances this device's frontier.
func (a *app) commit(ctx context.Context, patches ...*patch.Patch) error {
	if err := a.repo.Commit(ctx, patches...); err != nil {
		return WrapExitError(ExitCommandError, "failed to save patches", err)
	}
	return nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
