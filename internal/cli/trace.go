package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/augr/internal/patch"
	"github.com/roach88/augr/internal/repository"
	"github.com/roach88/augr/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Op string // optional - filter to one operation kind
}

// TraceStep is one operation of one patch on the traced event.
type TraceStep struct {
	Patch   patch.PatchRef   `json:"patch"`
	Op      string           `json:"op"`
	Time    *time.Time       `json:"time,omitempty"`
	Tag     patch.Tag        `json:"tag,omitempty"`
	Origin  patch.PatchRef   `json:"origin,omitempty"` // patch whose pair is removed
	Parents []patch.PatchRef `json:"parents,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Event    patch.EventRef         `json:"event"`
	Timeline []TraceStep            `json:"timeline"`
	Starts   []repository.StartPair `json:"starts"`
	Tags     []repository.TagPair   `json:"tags"`
	Latest   []patch.PatchRef       `json:"latest"`
	Stats    TraceStats             `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Patches    int  `json:"patches"`
	Operations int  `json:"operations"`
	Conflict   bool `json:"conflict"`
}

// Operation kinds shown in a trace.
const (
	opCreate      = "create-event"
	opAddStart    = "add-start"
	opRemoveStart = "remove-start"
	opAddTag      = "add-tag"
	opRemoveTag   = "remove-tag"
)

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <event>",
		Short: "Show which patches shaped an event",
		Long: `Show the provenance of an event: every applied patch operation on it
in causal order, the start and tag pairs that survive, and the patches a
new edit would name as parents.

The output includes:
- Timeline: operations on the event, parents before children
- Starts/Tags: surviving pairs with the patch that added each
- Latest: the event's current heads

Examples:
  augr trace 01890a5d-ac96-774b-bcce-b302099a8057
  augr trace 01890a5d-ac96-774b-bcce-b302099a8057 --op add-start
  augr trace 01890a5d-ac96-774b-bcce-b302099a8057 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd, patch.EventRef(args[0]))
		},
	}

	cmd.Flags().StringVar(&opts.Op, "op", "", "filter to one operation (create-event, add-start, remove-start, add-tag, remove-tag)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command, event patch.EventRef) error {
	ctx := cmd.Context()

	switch opts.Op {
	case "", opCreate, opAddStart, opRemoveStart, opAddTag, opRemoveTag:
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown --op %q", opts.Op))
	}

	a, err := openApp(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ts, _, err := a.load(ctx)
	if err != nil {
		return err
	}
	e, ok := ts.Event(event)
	if !ok {
		return WrapExitError(ExitCommandError, "cannot trace event", fmt.Errorf("%w: %s", repository.ErrUnknownEvent, event))
	}

	touching, err := patchesTouching(ctx, a.store, ts.Patches(), event)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read patches", err)
	}

	timeline := buildTimeline(causalOrder(touching), event, opts.Op)
	_, flatErr := e.Flatten(event)
	result := TraceResult{
		Event:    event,
		Timeline: timeline,
		Starts:   nonNil(e.Starts()),
		Tags:     nonNil(e.Tags()),
		Latest:   nonNil(e.Latest()),
		Stats: TraceStats{
			Patches:    len(touching),
			Operations: len(timeline),
			Conflict:   flatErr != nil,
		},
	}

	if opts.json() {
		return opts.formatter(cmd).Success(result)
	}
	return outputTraceText(cmd, result, opts.Verbose)
}

// patchesTouching fetches every applied patch with an operation on event.
func patchesTouching(ctx context.Context, s store.Store, applied []patch.PatchRef, event patch.EventRef) ([]*patch.Patch, error) {
	var out []*patch.Patch
	for _, ref := range applied {
		p, err := s.GetPatch(ctx, ref)
		if err != nil {
			return nil, err
		}
		if slices.Contains(p.Events(), event) {
			out = append(out, p)
		}
	}
	return out, nil
}

// causalOrder sorts patches so each one comes after any of its parents in
// the slice. Ties are broken by ref.
func causalOrder(patches []*patch.Patch) []*patch.Patch {
	byRef := make(map[patch.PatchRef]*patch.Patch, len(patches))
	for _, p := range patches {
		byRef[p.Ref] = p
	}

	done := make(map[patch.PatchRef]bool, len(patches))
	var out []*patch.Patch
	var visit func(p *patch.Patch)
	visit = func(p *patch.Patch) {
		if done[p.Ref] {
			return
		}
		done[p.Ref] = true
		for _, parent := range p.Parents() {
			if pp, ok := byRef[parent]; ok {
				visit(pp)
			}
		}
		out = append(out, p)
	}

	sorted := slices.Clone(patches)
	slices.SortFunc(sorted, func(a, b *patch.Patch) int { return strings.Compare(string(a.Ref), string(b.Ref)) })
	for _, p := range sorted {
		visit(p)
	}
	return out
}

// buildTimeline lists the operations of patches on event. When opFilter is
// set, only that operation kind is kept.
func buildTimeline(patches []*patch.Patch, event patch.EventRef, opFilter string) []TraceStep {
	timeline := []TraceStep{}
	add := func(step TraceStep) {
		if opFilter == "" || step.Op == opFilter {
			timeline = append(timeline, step)
		}
	}

	for _, p := range patches {
		for _, op := range p.CreateEvents {
			if op.Event == event {
				add(TraceStep{Patch: p.Ref, Op: opCreate, Time: timePtr(op.Start)})
				for _, tag := range op.Tags {
					add(TraceStep{Patch: p.Ref, Op: opAddTag, Tag: tag})
				}
			}
		}
		for _, op := range p.AddStarts {
			if op.Event == event {
				add(TraceStep{Patch: p.Ref, Op: opAddStart, Time: timePtr(op.Time), Parents: op.Parents})
			}
		}
		for _, op := range p.RemoveStarts {
			if op.Event == event {
				add(TraceStep{Patch: p.Ref, Op: opRemoveStart, Time: timePtr(op.Time), Origin: op.Patch, Parents: op.Parents})
			}
		}
		for _, op := range p.AddTags {
			if op.Event == event {
				add(TraceStep{Patch: p.Ref, Op: opAddTag, Tag: op.Tag, Parents: op.Parents})
			}
		}
		for _, op := range p.RemoveTags {
			if op.Event == event {
				add(TraceStep{Patch: p.Ref, Op: opRemoveTag, Tag: op.Tag, Origin: op.Patch, Parents: op.Parents})
			}
		}
	}

	return timeline
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Event: %s\n", result.Event)
	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("Timeline:"))
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no operations)")
	}
	for _, step := range result.Timeline {
		fmt.Fprintf(w, "  %s %-12s %s\n", mutedStyle.Render(string(step.Patch)), step.Op, describeStep(step))
		if verbose && len(step.Parents) > 0 {
			fmt.Fprintf(w, "      parents: %v\n", step.Parents)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("Starts:"))
	for _, s := range result.Starts {
		fmt.Fprintf(w, "  %s (from %s)\n", s.Time.Format(time.RFC3339), s.Patch)
	}
	fmt.Fprintln(w, headerStyle.Render("Tags:"))
	for _, t := range result.Tags {
		fmt.Fprintf(w, "  %s (from %s)\n", t.Tag, t.Patch)
	}
	fmt.Fprintf(w, "Latest: %v\n", result.Latest)

	fmt.Fprintln(w)
	if result.Stats.Conflict {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("⚠ %d start times survive; use set-start to pick one", len(result.Starts))))
	}
	fmt.Fprintf(w, "Stats: %d patch(es), %d operation(s)\n", result.Stats.Patches, result.Stats.Operations)

	return nil
}

func describeStep(step TraceStep) string {
	var parts []string
	if step.Time != nil {
		parts = append(parts, step.Time.Format(time.RFC3339))
	}
	if step.Tag != "" {
		parts = append(parts, string(step.Tag))
	}
	if step.Origin != "" {
		parts = append(parts, "added by "+string(step.Origin))
	}
	return strings.Join(parts, " ")
}
