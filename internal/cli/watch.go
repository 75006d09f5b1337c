package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/augr/internal/config"
	"github.com/roach88/augr/internal/repository"
	"github.com/roach88/augr/internal/watch"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Debounce time.Duration
}

// WatchReport is printed after every reload.
type WatchReport struct {
	Patches   []string `json:"patches"`
	Devices   []string `json:"devices"`
	Applied   int      `json:"applied"`
	Events    int      `json:"events"`
	Problems  int      `json:"problems"`
	Conflicts bool     `json:"conflicts"`
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload the timesheet whenever the sync folder changes",
		Long: `Watch the sync folder for patches and frontiers written by other
devices, and replay the history after each burst of changes. Runs until
interrupted. Only the folder backend can be watched.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Debounce, "debounce", watch.DefaultDebounce, "quiet period before reloading")

	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Backend != config.BackendFolder {
		return NewExitError(ExitCommandError, fmt.Sprintf("watch needs the %s backend, not %s", config.BackendFolder, a.cfg.Backend))
	}

	w, err := watch.New(a.cfg.SyncFolder, watch.WithDebounce(opts.Debounce), watch.WithLogger(a.logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create watcher", err)
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return WrapExitError(ExitCommandError, "failed to start watcher", err)
	}
	defer w.Stop()

	a.logger.Info("watching", "sync_folder", a.cfg.SyncFolder, "debounce", opts.Debounce)
	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s\n", a.cfg.SyncFolder)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors():
			if ok {
				a.logger.Warn("watcher error", "error", err)
			}
		case batch, ok := <-w.Batches():
			if !ok {
				return nil
			}
			report, err := reload(ctx, a, batch)
			if err != nil {
				return err
			}
			if err := printWatchReport(cmd, opts.RootOptions, report); err != nil {
				return err
			}
		}
	}
}

// reload reopens the repository, so frontiers written by other devices are
// picked up, and replays it.
func reload(ctx context.Context, a *app, batch watch.Batch) (WatchReport, error) {
	repo, err := repository.Open(ctx, a.store, repository.WithLogger(a.logger))
	if err != nil {
		return WatchReport{}, WrapExitError(ExitCommandError, "failed to read frontier", err)
	}
	a.repo = repo

	ts, loadErrs, err := a.load(ctx)
	if err != nil {
		return WatchReport{}, err
	}
	_, flatErr := ts.Flatten()
	flatErrs := repository.AsErrors(flatErr)

	return WatchReport{
		Patches:   nonNil(batch.Patches()),
		Devices:   nonNil(batch.Devices()),
		Applied:   len(ts.Patches()),
		Events:    ts.Len(),
		Problems:  len(loadErrs) + len(flatErrs),
		Conflicts: repository.IsConflict(flatErr),
	}, nil
}

func printWatchReport(cmd *cobra.Command, opts *RootOptions, r WatchReport) error {
	if opts.json() {
		return encodeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: r})
	}
	status := okStyle.Render("✓")
	if r.Problems > 0 {
		status = badStyle.Render("✗")
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s reloaded: %d new patch file(s), %d frontier(s) changed; %d patches, %d events, %d problem(s)\n",
		status, opts.now().Format("15:04:05"), len(r.Patches), len(r.Devices), r.Applied, r.Events, r.Problems)
	return err
}
