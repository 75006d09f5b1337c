package timesheet

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/augr/internal/patch"
)

// EdgeBehavior controls how segments crossing a window boundary are counted.
type EdgeBehavior string

const (
	// EdgeInclude keeps boundary segments whole.
	EdgeInclude EdgeBehavior = "include"
	// EdgeExclude drops segments that are not fully inside the window.
	EdgeExclude EdgeBehavior = "exclude"
	// EdgeClip keeps boundary segments but trims them to the window.
	EdgeClip EdgeBehavior = "clip"
)

// ParseEdgeBehavior parses a case-insensitive edge behavior name.
func ParseEdgeBehavior(s string) (EdgeBehavior, error) {
	switch e := EdgeBehavior(strings.ToLower(strings.TrimSpace(s))); e {
	case EdgeInclude, EdgeExclude, EdgeClip:
		return e, nil
	case "":
		return EdgeInclude, nil
	}
	return "", fmt.Errorf("invalid edge behavior %q: must be one of include, exclude, clip", s)
}

// Window selects the segments a summary reports on.
type Window struct {
	Start time.Time
	End   time.Time
	Edges EdgeBehavior
	// Tags, when set, keeps only segments carrying every listed tag.
	Tags []patch.Tag
}

// Row is one summarized segment.
type Row struct {
	Event patch.EventRef `json:"event"`
	Tags  []patch.Tag    `json:"tags"`
	Start time.Time      `json:"start"`
	End   time.Time      `json:"end"`
	// Clipped is set when Start was moved forward to the window start.
	Clipped  bool          `json:"clipped"`
	Open     bool          `json:"open"`
	Duration time.Duration `json:"duration"`
	Total    time.Duration `json:"total"`
}

// Summary is the result of Summarize.
type Summary struct {
	Rows  []Row         `json:"rows"`
	Total time.Duration `json:"total"`
}

// Summarize walks segments in order and reports those inside w with a
// running total. Segments must be chronological, as returned by Segments.
func Summarize(segments []Segment, w Window) Summary {
	sum := Summary{Rows: []Row{}}

	for _, seg := range segments {
		if !w.Start.IsZero() && !seg.End.After(w.Start) {
			continue
		}
		if !containsAll(seg.Tags, w.Tags) {
			continue
		}
		if !w.End.IsZero() && seg.Start.After(w.End) {
			break
		}

		start, clipped := seg.Start, false
		if !w.Start.IsZero() && seg.Start.Before(w.Start) {
			switch w.Edges {
			case EdgeClip:
				start, clipped = w.Start, true
			case EdgeExclude:
				continue
			}
		}

		end := seg.End
		if !w.End.IsZero() && seg.End.After(w.End) {
			switch w.Edges {
			case EdgeClip:
				end = w.End
			case EdgeExclude:
				return sum
			}
		}

		d := end.Sub(start)
		sum.Total += d
		sum.Rows = append(sum.Rows, Row{
			Event:    seg.Event,
			Tags:     seg.Tags,
			Start:    start,
			End:      end,
			Clipped:  clipped,
			Open:     seg.Open,
			Duration: d,
			Total:    sum.Total,
		})
	}
	return sum
}

// FormatDuration renders d as "45m" or "2h 5m".
func FormatDuration(d time.Duration) string {
	hours := int64(d / time.Hour)
	mins := int64((d % time.Hour) / time.Minute)
	if hours < 1 {
		return fmt.Sprintf("%dm", int64(d/time.Minute))
	}
	return fmt.Sprintf("%dh %dm", hours, mins)
}
