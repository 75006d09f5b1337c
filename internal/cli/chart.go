package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/augr/internal/patch"
	"github.com/roach88/augr/internal/timeinput"
	"github.com/roach88/augr/internal/timesheet"
)

// ChartOptions holds flags for the chart command.
type ChartOptions struct {
	*RootOptions
	Start string
	End   string
}

// ChartDayResult is one day of JSON chart output.
type ChartDayResult struct {
	Date    string `json:"date"`
	Cells   string `json:"cells"`
	Total   string `json:"total"`
	Seconds int64  `json:"seconds"`
}

// ChartResult is the JSON chart output.
type ChartResult struct {
	Tags    []patch.Tag      `json:"tags"`
	Days    []ChartDayResult `json:"days"`
	Total   string           `json:"total"`
	Seconds int64            `json:"seconds"`
}

// NewChartCommand creates the chart command.
func NewChartCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ChartOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "chart [tags...]",
		Short: "Show a chart of tracked time per day",
		Long: `Show one line per day with a cell for every 20 minutes. A cell is
filled when the event active at that moment carries every given tag.

Defaults to the last 7 days.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChart(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.Start, "start", "", "first day to chart (default 6 days before --end)")
	cmd.Flags().StringVar(&opts.End, "end", "", "last day to chart (default today)")

	return cmd
}

func runChart(opts *ChartOptions, cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	now := opts.now()

	last := startOfDay(now)
	if opts.End != "" {
		t, err := timeinput.Parse(opts.End, now)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --end", err)
		}
		last = startOfDay(t)
	}
	first := last.AddDate(0, 0, -6)
	if opts.Start != "" {
		t, err := timeinput.Parse(opts.Start, now)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --start", err)
		}
		first = startOfDay(t)
	}
	if first.After(last) {
		return NewExitError(ExitCommandError, "--start is after --end")
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
	tags := patch.NormalizeTags(args)
	chart := timesheet.BuildChart(flat, tags, first, last, now)

	if opts.json() {
		return opts.formatter(cmd).Success(chartResult(chart, tags))
	}
	renderChart(cmd.OutOrStdout(), chart)
	return nil
}

func chartResult(chart timesheet.Chart, tags []patch.Tag) ChartResult {
	days := make([]ChartDayResult, len(chart.Days))
	for i, d := range chart.Days {
		days[i] = ChartDayResult{
			Date:    d.Date.Format("2006-01-02"),
			Cells:   cells(d, "#", "."),
			Total:   timesheet.FormatDuration(d.Total),
			Seconds: int64(d.Total / time.Second),
		}
	}
	return ChartResult{
		Tags:    tags,
		Days:    days,
		Total:   timesheet.FormatDuration(chart.Total),
		Seconds: int64(chart.Total / time.Second),
	}
}

// renderChart prints an hour ruler, one row per day and the total.
func renderChart(w io.Writer, chart timesheet.Chart) {
	var ruler strings.Builder
	ruler.WriteString("Day ")
	for hour := 0; hour < 24; hour++ {
		fmt.Fprintf(&ruler, "%-3d", hour)
	}
	fmt.Fprintln(w, headerStyle.Render(strings.TrimRight(ruler.String(), " ")))

	for _, d := range chart.Days {
		fmt.Fprintf(w, "%s %s %s\n",
			d.Date.Format("Mon"),
			filledStyle.Render(cells(d, "█", " ")),
			timesheet.FormatDuration(d.Total))
	}
	fmt.Fprintf(w, "\ntotal time: %s\n", timesheet.FormatDuration(chart.Total))
}

func cells(d timesheet.ChartDay, filled, empty string) string {
	var b strings.Builder
	for _, on := range d.Cells {
		if on {
			b.WriteString(filled)
		} else {
			b.WriteString(empty)
		}
	}
	return b.String()
}
