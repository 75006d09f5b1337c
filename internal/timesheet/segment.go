package timesheet

import (
	"time"

	"github.com/roach88/augr/internal/patch"
)

// Segment is the interval [Start, End) during which one event's tags were
// active. The last segment of a timesheet is Open and ends at "now".
type Segment struct {
	Event    patch.EventRef `json:"event"`
	Start    time.Time      `json:"start"`
	End      time.Time      `json:"end"`
	Duration time.Duration  `json:"duration"`
	Tags     []patch.Tag    `json:"tags"`
	Open     bool           `json:"open"`
}

// Segments pairs each event with the next one chronologically. The final
// segment ends at now. An empty timesheet has no segments.
func (ts *Timesheet) Segments(now time.Time) []Segment {
	events := ts.Events()
	segments := make([]Segment, 0, len(events))
	for i, e := range events {
		end, open := now, true
		if i+1 < len(events) {
			end, open = events[i+1].Start, false
		}
		segments = append(segments, Segment{
			Event:    e.Ref,
			Start:    e.Start,
			End:      end,
			Duration: end.Sub(e.Start),
			Tags:     e.Tags,
			Open:     open,
		})
	}
	return segments
}

// Overlap returns how much of the segment lies inside [from, to).
func (s Segment) Overlap(from, to time.Time) time.Duration {
	start := s.Start
	if from.After(start) {
		start = from
	}
	end := s.End
	if to.Before(end) {
		end = to
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}
