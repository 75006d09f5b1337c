package timesheet

import (
	"time"

	"github.com/roach88/augr/internal/patch"
)

// CellsPerDay is the number of chart cells per day: one per 20 minutes.
const CellsPerDay = 24 * 3

// ChartDay is one row of a chart.
type ChartDay struct {
	Date  time.Time
	Cells [CellsPerDay]bool
	Total time.Duration
}

// Chart samples which parts of each day carried a tag set.
type Chart struct {
	Days  []ChartDay
	Total time.Duration
}

// BuildChart samples the timesheet every 20 minutes of wall-clock time for
// each calendar day from first to last (inclusive, in the location of first).
// A cell is marked when the event active at that instant, under the
// segments' [Start, End) rule, has every tag in tags, has at least one tag and
// the instant is not after now.
func BuildChart(ts *Timesheet, tags []patch.Tag, first, last, now time.Time) Chart {
	loc := first.Location()
	first = startOfDay(first)
	last = startOfDay(last.In(loc))
	segments := ts.Segments(now)

	var chart Chart
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		row := ChartDay{Date: day}
		y, m, d := day.Date()
		for i := 0; i < CellsPerDay; i++ {
			at := time.Date(y, m, d, i/3, (i%3)*20, 0, 0, loc)
			active := ts.ActiveAt(at)
			row.Cells[i] = len(active) > 0 && containsAll(active, tags) && !at.After(now)
		}

		next := day.AddDate(0, 0, 1)
		for _, seg := range segments {
			if len(seg.Tags) == 0 || !containsAll(seg.Tags, tags) {
				continue
			}
			row.Total += seg.Overlap(day, next)
		}
		chart.Total += row.Total
		chart.Days = append(chart.Days, row)
	}
	return chart
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
