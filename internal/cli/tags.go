package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/augr/internal/patch"
)

// NewTagsCommand creates the tags command.
func NewTagsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "tags",
		Short:         "List every tag that has been used",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTags(rootOpts, cmd)
		},
	}
}

func runTags(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	flat, err := a.timesheet(ctx)
	if err != nil {
		return err
	}
	tags := flat.Tags()
	if tags == nil {
		tags = []patch.Tag{}
	}

	if opts.json() {
		return opts.formatter(cmd).Success(tags)
	}
	for _, t := range tags {
		fmt.Fprintln(cmd.OutOrStdout(), t)
	}
	return nil
}
