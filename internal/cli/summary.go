package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/roach88/augr/internal/patch"
	"github.com/roach88/augr/internal/timeinput"
	"github.com/roach88/augr/internal/timesheet"
)

// SummaryOptions holds flags for the summary command.
type SummaryOptions struct {
	*RootOptions
	Start    string
	End      string
	Edges    string
	Refs     bool
	ShowEnds bool
}

// SummaryRow is one row of JSON summary output.
type SummaryRow struct {
	Event    patch.EventRef `json:"event"`
	Tags     []patch.Tag    `json:"tags"`
	Start    time.Time      `json:"start"`
	End      time.Time      `json:"end"`
	Clipped  bool           `json:"clipped"`
	Open     bool           `json:"open"`
	Duration string         `json:"duration"`
	Seconds  int64          `json:"seconds"`
}

// SummaryResult is the JSON summary output.
type SummaryResult struct {
	Start   time.Time    `json:"start"`
	End     time.Time    `json:"end"`
	Edges   string       `json:"edges"`
	Rows    []SummaryRow `json:"rows"`
	Total   string       `json:"total"`
	Seconds int64        `json:"seconds"`
}

// NewSummaryCommand creates the summary command.
func NewSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SummaryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "summary [tags...]",
		Short: "Show a table of tracked time",
		Long: `Show a table of tracked time. Defaults to time tracked today.

Only segments carrying every given tag are listed.

--edges controls segments crossing --start or --end:
  include  keep them whole
  exclude  drop them
  clip     keep them, trimmed to the window`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummary(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.Start, "start", "", "show events from this time (default today 00:00)")
	cmd.Flags().StringVar(&opts.End, "end", "", "show events until this time (default now)")
	cmd.Flags().StringVar(&opts.Edges, "edges", "include", "edge behavior (include|exclude|clip)")
	cmd.Flags().BoolVar(&opts.Refs, "refs", false, "show event refs")
	cmd.Flags().BoolVar(&opts.ShowEnds, "show-ends", false, "show when each event ended")

	return cmd
}

func runSummary(opts *SummaryOptions, cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	now := opts.now()
	loc := now.Location()

	window := timesheet.Window{
		Start: startOfDay(now),
		End:   now,
		Tags:  patch.NormalizeTags(args),
	}
	var err error
	if opts.Start != "" {
		if window.Start, err = timeinput.Parse(opts.Start, now); err != nil {
			return WrapExitError(ExitCommandError, "invalid --start", err)
		}
	}
	if opts.End != "" {
		if window.End, err = timeinput.Parse(opts.End, now); err != nil {
			return WrapExitError(ExitCommandError, "invalid --end", err)
		}
	}
	if window.Edges, err = timesheet.ParseEdgeBehavior(opts.Edges); err != nil {
		return WrapExitError(ExitCommandError, "invalid --edges", err)
	}

	a, err := openApp(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	flat, err := a.timesheet(ctx)
	if err != nil {
		return err
	}
	sum := timesheet.Summarize(flat.Segments(now), window)

	if opts.json() {
		return opts.formatter(cmd).Success(summaryResult(sum, window))
	}

	w := cmd.OutOrStdout()
	if len(sum.Rows) == 0 {
		fmt.Fprintln(w, "No time tracked in this period.")
		return nil
	}
	fmt.Fprintln(w, summaryTable(sum, loc, opts.Refs, opts.ShowEnds).Render())
	fmt.Fprintf(w, "Total: %s\n", timesheet.FormatDuration(sum.Total))
	return nil
}

func summaryResult(sum timesheet.Summary, w timesheet.Window) SummaryResult {
	rows := make([]SummaryRow, len(sum.Rows))
	for i, r := range sum.Rows {
		rows[i] = SummaryRow{
			Event:    r.Event,
			Tags:     r.Tags,
			Start:    r.Start,
			End:      r.End,
			Clipped:  r.Clipped,
			Open:     r.Open,
			Duration: timesheet.FormatDuration(r.Duration),
			Seconds:  int64(r.Duration / time.Second),
		}
	}
	return SummaryResult{
		Start:   w.Start,
		End:     w.End,
		Edges:   string(w.Edges),
		Rows:    rows,
		Total:   timesheet.FormatDuration(sum.Total),
		Seconds: int64(sum.Total / time.Second),
	}
}

// summaryTable lays rows out as Wk | Date | Day | Tags | Start | [End] |
// Time | Total. Week, date and day are only printed when they change.
func summaryTable(sum timesheet.Summary, loc *time.Location, refs, showEnds bool) *table.Table {
	headers := []string{"Wk", "Date", "Day", "Tags", "Start"}
	if showEnds {
		headers = append(headers, "End")
	}
	headers = append(headers, "Time", "Total")
	firstRight := 4

	var rows [][]string
	var prev time.Time
	for i, r := range sum.Rows {
		start := r.Start.In(loc)
		year, week := start.ISOWeek()
		prevYear, prevWeek := prev.ISOWeek()

		wk, date, day := fmt.Sprintf("W%02d", week), start.Format("2006-01-02"), start.Format("Mon")
		if i > 0 && year == prevYear && week == prevWeek {
			wk = ""
		}
		if i > 0 && sameDay(start, prev) {
			date, day = "", ""
		}
		prev = start

		tags := joinTags(r.Tags)
		if refs {
			tags = fmt.Sprintf("%s %s", mutedStyle.Render(string(r.Event)), tags)
		}

		startText := start.Format("15:04")
		if r.Clipped {
			startText = "--"
		}
		row := []string{wk, date, day, tags, startText}
		if showEnds {
			endText := r.End.In(loc).Format("15:04")
			if r.Open {
				endText = "--"
			}
			row = append(row, endText)
		}
		row = append(row, timesheet.FormatDuration(r.Duration), timesheet.FormatDuration(r.Total))
		rows = append(rows, row)
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderHeader(true).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingRight(1)
			if col >= firstRight {
				s = s.Align(lipgloss.Right)
			}
			if row == table.HeaderRow {
				s = s.Inherit(headerStyle)
			}
			return s
		})
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
