package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/augr/internal/patch"
	"github.com/roach88/augr/internal/repository"
	"github.com/roach88/augr/internal/timeinput"
)

// StartOptions holds flags for the start command.
type StartOptions struct {
	*RootOptions
	Time string
}

// StartResult describes the event a start command created.
type StartResult struct {
	Patch patch.PatchRef `json:"patch"`
	Event patch.EventRef `json:"event"`
	Start time.Time      `json:"start"`
	Tags  []patch.Tag    `json:"tags"`
}

// NewStartCommand creates the start command.
func NewStartCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StartOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "start [tags...]",
		Short: "Add an event to the timesheet",
		Long: `Record that you started doing something. The new event starts now
unless --time says otherwise, and carries the given tags.

Examples:
  augr start work client-a
  augr start lunch --time 12:30
  augr start gym --time "20min"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.Time, "time", "", "when the event started (default now)")

	return cmd
}

func runStart(opts *StartOptions, cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	now := opts.now()

	start := now
	if opts.Time != "" {
		t, err := timeinput.Parse(opts.Time, now)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --time", err)
		}
		start = t
	}

	a, err := openApp(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	p := repository.StartPatch(opts.refs(), start, patch.NormalizeTags(args)...)
	if err := a.commit(ctx, p); err != nil {
		return err
	}

	op := p.CreateEvents[0]
	result := StartResult{Patch: p.Ref, Event: op.Event, Start: op.Start, Tags: op.Tags}
	if opts.json() {
		return opts.formatter(cmd).Success(result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Started %s at %s %s\n",
		result.Event, start.In(now.Location()).Format("2006-01-02 15:04"), joinTags(result.Tags))
	return nil
}

func joinTags(tags []patch.Tag) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = string(t)
	}
	return strings.Join(parts, " ")
}
