package cli

import (
	"context"
	"fmt"
	"reflect"

	"github.com/spf13/cobra"

	"github.com/roach88/augr/internal/patch"
	"github.com/roach88/augr/internal/repository"
	"github.com/roach88/augr/internal/store"
	"github.com/roach88/augr/internal/timesheet"
)

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Frontier      []patch.PatchRef       `json:"frontier"`
	Patches       int                    `json:"patches"`
	Events        int                    `json:"events"`
	Errors        []repository.ErrorCode `json:"errors"`
	Unreachable   []patch.PatchRef       `json:"unreachable"`
	Deterministic bool                   `json:"deterministic"`
}

// replayRun is the outcome of one replay.
type replayRun struct {
	applied []patch.PatchRef
	events  []timesheet.Event
	codes   []repository.ErrorCode
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay every patch and verify determinism",
		Long: `Replay the patch history from the frontier twice, from scratch, and
verify both replays produce the same events. Reports how many patches were
applied and which stored patches no frontier reaches.

Exit codes:
  0 - Replay is deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (unreadable store, etc.)

Examples:
  augr replay
  augr replay --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, cmd)
		},
	}

	return cmd
}

func runReplay(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	// Replay twice, each time through a freshly opened repository
	first, err := replayOnce(ctx, a)
	if err != nil {
		return WrapExitError(ExitCommandError, "first replay failed", err)
	}
	second, err := replayOnce(ctx, a)
	if err != nil {
		return WrapExitError(ExitCommandError, "second replay failed", err)
	}

	result := ReplayResult{
		Frontier:      a.repo.Meta().Refs(),
		Patches:       len(first.applied),
		Events:        len(first.events),
		Errors:        first.codes,
		Unreachable:   []patch.PatchRef{},
		Deterministic: compareRuns(first, second),
	}
	if lister, ok := a.store.(store.Lister); ok {
		all, err := lister.PatchRefs(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list patches", err)
		}
		result.Unreachable = unreachable(all, first.applied)
		a.logger.Debug("patches listed", "stored", len(all), "unreachable", len(result.Unreachable))
	}

	if opts.json() {
		return outputReplayJSON(cmd, opts, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

func replayOnce(ctx context.Context, a *app) (replayRun, error) {
	repo, err := repository.Open(ctx, a.store, repository.WithLogger(a.logger))
	if err != nil {
		return replayRun{}, err
	}
	ts, err := repo.Load(ctx)
	errs := repository.AsErrors(err)
	if err != nil && len(errs) == 0 {
		return replayRun{}, err
	}

	flat, flatErr := ts.Flatten()
	errs = append(errs, repository.AsErrors(flatErr)...)
	return replayRun{
		applied: ts.Patches(),
		events:  flat.Events(),
		codes:   errs.Codes(),
	}, nil
}

// compareRuns compares two replays for equality.
func compareRuns(a, b replayRun) bool {
	return reflect.DeepEqual(a.applied, b.applied) &&
		reflect.DeepEqual(a.events, b.events) &&
		reflect.DeepEqual(a.codes, b.codes)
}

// unreachable returns the refs in all that were not applied.
func unreachable(all, applied []patch.PatchRef) []patch.PatchRef {
	seen := make(map[patch.PatchRef]struct{}, len(applied))
	for _, ref := range applied {
		seen[ref] = struct{}{}
	}
	out := []patch.PatchRef{}
	for _, ref := range all {
		if _, ok := seen[ref]; !ok {
			out = append(out, ref)
		}
	}
	return out
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, opts *RootOptions, result ReplayResult) error {
	f := opts.formatter(cmd)
	if !result.Deterministic {
		if err := f.Failure(ErrCodeDeterminism, "determinism verification failed", result); err != nil {
			return err
		}
		// Determinism failure = exit code 1
		return reportedFailure("determinism verification failed")
	}
	return f.Success(result)
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d patch(es), %d event(s)\n", result.Patches, result.Events)
	if verbose {
		fmt.Fprintf(w, "  Frontier: %v\n", result.Frontier)
	}
	if len(result.Errors) > 0 {
		fmt.Fprintf(w, "  Errors: %v\n", result.Errors)
	}
	if len(result.Unreachable) > 0 {
		fmt.Fprintf(w, "  Unreachable patches: %d\n", len(result.Unreachable))
		if verbose {
			for _, ref := range result.Unreachable {
				fmt.Fprintf(w, "    %s\n", ref)
			}
		}
	}
	fmt.Fprintln(w)

	if result.Deterministic {
		fmt.Fprintln(w, okStyle.Render("✓ Replay verified deterministic"))
		return nil
	}

	fmt.Fprintln(w, badStyle.Render("✗ Determinism verification failed"))
	// Determinism failure = exit code 1
	return reportedFailure("determinism verification failed")
}
