package patch

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// NormalizeTag trims surrounding whitespace and applies Unicode NFC
// normalization, so that visually identical tags typed on different devices
// compare equal.
func NormalizeTag(s string) Tag {
	return Tag(norm.NFC.String(strings.TrimSpace(s)))
}

// NormalizeTags normalizes every tag, drops empty ones and returns the result
// sorted and de-duplicated.
func NormalizeTags[S ~string](in []S) []Tag {
	out := make([]Tag, 0, len(in))
	for _, s := range in {
		if t := NormalizeTag(string(s)); t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Instant converts t to the canonical form stored in patches: UTC with the
// monotonic clock reading stripped. Two Instants of the same moment are ==,
// which makes them usable as map keys.
func Instant(t time.Time) time.Time {
	return t.UTC().Round(0)
}
