package timesheet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/augr/internal/patch"
)

func at(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return parsed
}

// sample builds the flattened result of the basic two-patch history.
func sample(t *testing.T) *Timesheet {
	t.Helper()
	ts := New()
	_, ok := ts.Insert(NewEvent("a", at(t, "2019-07-23T12:30:00Z"), []patch.Tag{"lunch"}))
	require.True(t, ok)
	_, ok = ts.Insert(NewEvent("b", at(t, "2019-07-23T13:00:00Z"), []patch.Tag{"work", "awesome-project"}))
	require.True(t, ok)
	return ts
}

// =============================================================================
// Timesheet
// =============================================================================

func TestInsertRejectsDuplicateStart(t *testing.T) {
	ts := New()
	noon := at(t, "2019-07-23T12:00:00Z")

	_, ok := ts.Insert(NewEvent("a", noon, nil))
	require.True(t, ok)

	existing, ok := ts.Insert(NewEvent("b", noon.In(time.FixedZone("X", 3600)), nil))
	assert.False(t, ok, "same instant in another zone is the same start")
	assert.Equal(t, patch.EventRef("a"), existing.Ref)
	assert.Equal(t, 1, ts.Len())
}

func TestEventsChronological(t *testing.T) {
	ts := New()
	ts.Insert(NewEvent("late", at(t, "2019-07-23T15:00:00Z"), nil))
	ts.Insert(NewEvent("early", at(t, "2019-07-23T09:00:00Z"), nil))
	ts.Insert(NewEvent("mid", at(t, "2019-07-23T12:00:00Z"), nil))

	var refs []patch.EventRef
	for _, e := range ts.Events() {
		refs = append(refs, e.Ref)
	}
	assert.Equal(t, []patch.EventRef{"early", "mid", "late"}, refs)
}

func TestEventLookup(t *testing.T) {
	ts := sample(t)

	e, ok := ts.Event("b")
	require.True(t, ok)
	assert.Equal(t, []patch.Tag{"awesome-project", "work"}, e.Tags)
	assert.True(t, e.HasTags("work"))
	assert.False(t, e.HasTags("work", "lunch"))

	_, ok = ts.Event("zzz")
	assert.False(t, ok)
}

func TestTagsAt(t *testing.T) {
	ts := sample(t)

	assert.Nil(t, ts.TagsAt(at(t, "2019-07-23T12:00:00Z")), "before any event")
	assert.Nil(t, ts.TagsAt(at(t, "2019-07-23T12:30:00Z")), "start itself is exclusive")
	assert.Equal(t, []patch.Tag{"lunch"}, ts.TagsAt(at(t, "2019-07-23T12:31:00Z")))
	assert.Equal(t, []patch.Tag{"lunch"}, ts.TagsAt(at(t, "2019-07-23T13:00:00Z")))
	assert.Equal(t, []patch.Tag{"awesome-project", "work"}, ts.TagsAt(at(t, "2019-07-24T00:00:00Z")))
}

func TestActiveAt(t *testing.T) {
	ts := sample(t)

	assert.Nil(t, ts.ActiveAt(at(t, "2019-07-23T12:00:00Z")), "before any event")
	assert.Equal(t, []patch.Tag{"lunch"}, ts.ActiveAt(at(t, "2019-07-23T12:30:00Z")), "start itself is inclusive")
	assert.Equal(t, []patch.Tag{"lunch"}, ts.ActiveAt(at(t, "2019-07-23T12:59:00Z")))
	assert.Equal(t, []patch.Tag{"awesome-project", "work"}, ts.ActiveAt(at(t, "2019-07-23T13:00:00Z")))
	assert.Equal(t, []patch.Tag{"awesome-project", "work"}, ts.ActiveAt(at(t, "2019-07-24T00:00:00Z")))
}

func TestTagsUnion(t *testing.T) {
	assert.Equal(t, []patch.Tag{"awesome-project", "lunch", "work"}, sample(t).Tags())
	assert.Empty(t, New().Tags())
}

// =============================================================================
// Segments
// =============================================================================

func TestSegmentsEmpty(t *testing.T) {
	segs := New().Segments(time.Now())
	assert.NotNil(t, segs)
	assert.Empty(t, segs)
}

func TestSegmentsPairConsecutiveStarts(t *testing.T) {
	now := at(t, "2019-07-23T14:15:00Z")
	segs := sample(t).Segments(now)

	require.Len(t, segs, 2)

	assert.Equal(t, patch.EventRef("a"), segs[0].Event)
	assert.Equal(t, at(t, "2019-07-23T13:00:00Z"), segs[0].End)
	assert.Equal(t, 30*time.Minute, segs[0].Duration)
	assert.False(t, segs[0].Open)

	assert.Equal(t, patch.EventRef("b"), segs[1].Event)
	assert.Equal(t, now, segs[1].End)
	assert.Equal(t, 75*time.Minute, segs[1].Duration)
	assert.True(t, segs[1].Open)
}

func TestSegmentOverlap(t *testing.T) {
	seg := Segment{Start: at(t, "2019-07-23T12:00:00Z"), End: at(t, "2019-07-23T14:00:00Z")}

	assert.Equal(t, 2*time.Hour, seg.Overlap(at(t, "2019-07-23T00:00:00Z"), at(t, "2019-07-24T00:00:00Z")))
	assert.Equal(t, time.Hour, seg.Overlap(at(t, "2019-07-23T13:00:00Z"), at(t, "2019-07-24T00:00:00Z")))
	assert.Equal(t, time.Duration(0), seg.Overlap(at(t, "2019-07-23T15:00:00Z"), at(t, "2019-07-24T00:00:00Z")))
}
