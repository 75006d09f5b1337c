package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/augr/internal/patch"
	"github.com/roach88/augr/internal/repository"
	"github.com/roach88/augr/internal/timeinput"
)

// EditResult describes the patch an edit command stored.
type EditResult struct {
	Patch   patch.PatchRef   `json:"patch"`
	Event   patch.EventRef   `json:"event"`
	Parents []patch.PatchRef `json:"parents"`
}

// editFunc builds a patch against the current aggregate.
type editFunc func(ts *repository.PatchedTimesheet, gen patch.RefGenerator, event patch.EventRef) (*patch.Patch, error)

// NewTagCommand creates the tag command.
func NewTagCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "tag <event> <tags...>",
		Short:         "Add tags to an existing event",
		Example:       "  augr tag 01890a5d-ac96-774b-bcce-b302099a8057 meeting",
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			tags := patch.NormalizeTags(args[1:])
			if len(tags) == 0 {
				return NewExitError(ExitCommandError, "no tags given")
			}
			return runEdit(rootOpts, cmd, patch.EventRef(args[0]), "Tagged",
				func(ts *repository.PatchedTimesheet, gen patch.RefGenerator, event patch.EventRef) (*patch.Patch, error) {
					return ts.TagPatch(gen, event, tags...)
				})
		},
	}
}

// NewUntagCommand creates the untag command.
func NewUntagCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "untag <event> <tags...>",
		Short:         "Remove tags from an existing event",
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			tags := patch.NormalizeTags(args[1:])
			if len(tags) == 0 {
				return NewExitError(ExitCommandError, "no tags given")
			}
			return runEdit(rootOpts, cmd, patch.EventRef(args[0]), "Untagged",
				func(ts *repository.PatchedTimesheet, gen patch.RefGenerator, event patch.EventRef) (*patch.Patch, error) {
					return ts.UntagPatch(gen, event, tags...)
				})
		},
	}
}

// NewSetStartCommand creates the set-start command.
func NewSetStartCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-start <event> <time>",
		Short: "Change when an event started",
		Long: `Replace every start time of an event with a single new one. This is
also how concurrent start edits from two devices are resolved.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := timeinput.Parse(args[1], rootOpts.now())
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid time", err)
			}
			return runEdit(rootOpts, cmd, patch.EventRef(args[0]), "Moved",
				func(ts *repository.PatchedTimesheet, gen patch.RefGenerator, event patch.EventRef) (*patch.Patch, error) {
					return ts.SetStartPatch(gen, event, t)
				})
		},
	}
}

// runEdit loads the aggregate, builds one patch with build and commits it.
func runEdit(opts *RootOptions, cmd *cobra.Command, event patch.EventRef, verb string, build editFunc) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ts, _, err := a.load(ctx)
	if err != nil {
		return err
	}

	p, err := build(ts, opts.refs(), event)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot edit event", err)
	}
	if err := a.commit(ctx, p); err != nil {
		return err
	}

	result := EditResult{Patch: p.Ref, Event: event, Parents: p.Parents()}
	if opts.json() {
		return opts.formatter(cmd).Success(result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (patch %s)\n", verb, event, p.Ref)
	if opts.Verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "  parents: %v\n", result.Parents)
	}
	return nil
}
