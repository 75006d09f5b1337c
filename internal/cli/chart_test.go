package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChart_JSON(t *testing.T) {
	opts := withBasicRepo(t, newTestOptions(t))

	out, _, code := execute(t, opts, "--format", "json", "chart", "work")

	require.Equal(t, ExitSuccess, code)
	resp := decode[ChartResult](t, out)
	require.Len(t, resp.Data.Days, 7)
	assert.Equal(t, "2019-07-17", resp.Data.Days[0].Date)

	today := resp.Data.Days[6]
	assert.Equal(t, "2019-07-23", today.Date)
	require.Len(t, today.Cells, 72)
	assert.Equal(t, byte('.'), today.Cells[38], "12:40 is lunch")
	assert.Equal(t, byte('#'), today.Cells[39])
	assert.Equal(t, byte('#'), today.Cells[44])
	assert.Equal(t, byte('.'), today.Cells[45], "15:00 is gym")
	assert.Equal(t, "2h 0m", today.Total)
	assert.Equal(t, "2h 0m", resp.Data.Total)

	for _, d := range resp.Data.Days[:6] {
		assert.Equal(t, strings.Repeat(".", 72), d.Cells, d.Date)
	}
}

func TestChart_AnyTaggedEvent(t *testing.T) {
	opts := withBasicRepo(t, newTestOptions(t))

	out, _, code := execute(t, opts, "--format", "json", "chart", "--start", "2019-07-23")

	require.Equal(t, ExitSuccess, code)
	resp := decode[ChartResult](t, out)
	require.Len(t, resp.Data.Days, 1)
	cells := resp.Data.Days[0].Cells
	assert.Equal(t, strings.Repeat(".", 38)+strings.Repeat("#", 17)+strings.Repeat(".", 17), cells,
		"filled from the 12:40 cell through the 18:00 cell")
	assert.Equal(t, "5h 30m", resp.Data.Total)
}

func TestChart_Text(t *testing.T) {
	opts := withBasicRepo(t, newTestOptions(t))

	out, _, code := execute(t, opts, "chart", "gym")

	require.Equal(t, ExitSuccess, code)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 9)
	assert.True(t, strings.HasPrefix(lines[0], "Day 0"))
	assert.True(t, strings.HasPrefix(lines[7], "Tue "))
	assert.True(t, strings.HasSuffix(lines[7], "3h 0m"))
	assert.Equal(t, "total time: 3h 0m", lines[len(lines)-1])
}

func TestChart_StartAfterEnd(t *testing.T) {
	opts := newTestOptions(t)

	_, stderr, code := execute(t, opts, "chart", "--start", "2019-07-24", "--end", "2019-07-20")

	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "--start is after --end")
}
