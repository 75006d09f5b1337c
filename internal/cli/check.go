package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/augr/internal/patch"
	"github.com/roach88/augr/internal/repository"
)

// Problem is one error found by check.
type Problem struct {
	Code       repository.ErrorCode `json:"code"`
	Patch      patch.PatchRef       `json:"patch,omitempty"`
	Event      patch.EventRef       `json:"event,omitempty"`
	OtherEvent patch.EventRef       `json:"other_event,omitempty"`
	Message    string               `json:"message"`
}

// CheckResult is the outcome of the check command.
type CheckResult struct {
	Patches  int       `json:"patches"`
	Events   int       `json:"events"`
	Problems []Problem `json:"problems"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report patches that failed to apply and conflicting events",
		Long: `Replay every patch and flatten the result, reporting every problem:
patches that are missing or invalid, events with zero or several start
times, and events that start at the same moment.

Conflicts are never resolved automatically. Use set-start to pick one start
time for an event.

Exit codes:
  0 - No problems
  1 - Problems found
  2 - Command error`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, cmd)
		},
	}
}

func runCheck(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ts, loadErrs, err := a.load(ctx)
	if err != nil {
		return err
	}
	_, flatErr := ts.Flatten()

	result := CheckResult{
		Patches:  len(ts.Patches()),
		Events:   ts.Len(),
		Problems: []Problem{},
	}
	for _, e := range append(loadErrs, repository.AsErrors(flatErr)...) {
		result.Problems = append(result.Problems, Problem{
			Code:       e.Code,
			Patch:      e.Patch,
			Event:      e.Event,
			OtherEvent: e.OtherEvent,
			Message:    describe(ts, e),
		})
	}

	f := opts.formatter(cmd)
	if len(result.Problems) > 0 {
		message := fmt.Sprintf("%d problem(s) found", len(result.Problems))
		if opts.json() {
			if err := f.Failure(ErrCodeConflict, message, result); err != nil {
				return err
			}
			return reportedFailure(message)
		}
		outputCheckText(cmd, result)
		return reportedFailure(message)
	}

	if opts.json() {
		return f.Success(result)
	}
	outputCheckText(cmd, result)
	return nil
}

// describe renders e, listing every event sharing the start time of a
// duplicate.
func describe(ts *repository.PatchedTimesheet, e *repository.Error) string {
	if e.Code != repository.ErrCodeDuplicateEventTime {
		return e.Error()
	}
	kept, ok := ts.Event(e.Event)
	if !ok {
		return e.Error()
	}
	starts := kept.Starts()
	if len(starts) != 1 {
		return e.Error()
	}
	var refs []string
	for _, ref := range ts.StartsAt(starts[0].Time) {
		refs = append(refs, string(ref))
	}
	return fmt.Sprintf("%s (events at %s: %s)", e.Error(), starts[0].Time.Format("2006-01-02 15:04"), strings.Join(refs, ", "))
}

func outputCheckText(cmd *cobra.Command, result CheckResult) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Checked %d patch(es), %d event(s)\n", result.Patches, result.Events)

	if len(result.Problems) == 0 {
		fmt.Fprintln(w, okStyle.Render("✓ No problems found"))
		return
	}
	for _, p := range result.Problems {
		fmt.Fprintf(w, "%s %s\n", badStyle.Render("✗"), p.Message)
	}
	fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("%d problem(s) found", len(result.Problems))))
}
