// Package timeinput parses the instants users type on the command line.
//
// Accepted forms, tried in order:
//
//	2019-07-16T14:25:00-05:00   RFC 3339
//	2019-07-16T19:25:00         date and time in the local zone
//	2019-07-16, 2019-7-6        midnight of that date
//	07-16, 7-6                  midnight of that date this year
//	19:25, 8:05                 today, or yesterday if that is still ahead
//	20min, 1hr12min, 2 h 5 m    that long before now
//	yesterday 3pm, last friday  natural language (olebedev/when)
package timeinput

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// ErrUnrecognized is returned when no supported form matches.
var ErrUnrecognized = errors.New("no valid date, time, or duration was found")

const (
	localDateTime = "2006-01-02T15:04:05"
	fullDate      = "2006-1-2"
	partialDate   = "1-2"
	clockTime     = "15:4"
)

var natural = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// Parse interprets text relative to now. The result is in now's location.
func Parse(text string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)
	loc := now.Location()

	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t.In(loc), nil
	}
	if t, err := time.ParseInLocation(localDateTime, text, loc); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(fullDate, text, loc); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(partialDate, text, loc); err == nil {
		return time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
	}
	if t, err := time.ParseInLocation(clockTime, text, loc); err == nil {
		return atClock(now, t.Hour(), t.Minute()), nil
	}
	if d, ok := parseDuration(text); ok {
		return now.Add(-d), nil
	}

	r, err := natural.Parse(text, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrUnrecognized, text, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnrecognized, text)
	}
	return r.Time.In(loc), nil
}

// atClock returns the most recent hh:mm at or before now.
func atClock(now time.Time, hour, minute int) time.Time {
	y, m, d := now.Date()
	t := time.Date(y, m, d, hour, minute, 0, 0, now.Location())
	if t.After(now) {
		t = t.AddDate(0, 0, -1)
	}
	return t
}

var (
	durationTerm = regexp.MustCompile(`^(\d+)\s*([a-zA-Z]+)\s*`)

	durationUnits = map[string]time.Duration{
		"s": time.Second, "sec": time.Second, "secs": time.Second, "second": time.Second, "seconds": time.Second,
		"m": time.Minute, "min": time.Minute, "mins": time.Minute, "minute": time.Minute, "minutes": time.Minute,
		"h": time.Hour, "hr": time.Hour, "hrs": time.Hour, "hour": time.Hour, "hours": time.Hour,
		"d": 24 * time.Hour, "day": 24 * time.Hour, "days": 24 * time.Hour,
		"w": 7 * 24 * time.Hour, "wk": 7 * 24 * time.Hour, "week": 7 * 24 * time.Hour, "weeks": 7 * 24 * time.Hour,
	}
)

// parseDuration accepts a sequence of <number><unit> terms such as
// "1hr12min" or "2 h 5 m". A total that does not fit in a time.Duration is
// rejected.
func parseDuration(text string) (time.Duration, bool) {
	if text == "" {
		return 0, false
	}
	var total time.Duration
	for rest := text; rest != ""; {
		m := durationTerm.FindStringSubmatch(rest)
		if m == nil {
			return 0, false
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		unit, ok := durationUnits[strings.ToLower(m[2])]
		if !ok {
			return 0, false
		}
		if int64(n) > math.MaxInt64/int64(unit) {
			return 0, false
		}
		term := time.Duration(n) * unit
		if term > math.MaxInt64-total {
			return 0, false
		}
		total += term
		rest = rest[len(m[0]):]
	}
	return total, true
}
