package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock_Frozen(t *testing.T) {
	start := time.Date(2019, 7, 16, 19, 25, 0, 0, time.UTC)
	clock := NewManualClock(start)

	assert.Equal(t, start, clock.Now())
	assert.Equal(t, start, clock.Now())
}

func TestManualClock_Advance(t *testing.T) {
	start := time.Date(2019, 7, 16, 19, 25, 0, 0, time.UTC)
	clock := NewManualClock(start)

	got := clock.Advance(20 * time.Minute)
	assert.Equal(t, start.Add(20*time.Minute), got)
	assert.Equal(t, got, clock.Now())
}

func TestManualClock_Set(t *testing.T) {
	clock := NewManualClock(time.Time{})
	target := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	clock.Set(target)
	assert.Equal(t, target, clock.Now())
}
