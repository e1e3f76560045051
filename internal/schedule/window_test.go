package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewWindow_Defaults(t *testing.T) {
	w := NewWindow(time.Date(2026, 1, 30, 17, 30, 0, 0, time.UTC), 0, -1)

	assert.Equal(t, day(2026, 1, 31), w.Start)
	assert.Equal(t, DefaultDays, w.Days)
	assert.Equal(t, day(2026, 2, 13), w.End())
}

func TestWindow_Dates(t *testing.T) {
	w := NewWindow(day(2026, 2, 27), 3, 1)

	assert.Equal(t, []time.Time{day(2026, 2, 28), day(2026, 3, 1), day(2026, 3, 2)}, w.Dates())
}

func TestWindow_ZeroOffsetStartsToday(t *testing.T) {
	w := NewWindow(day(2026, 6, 1), 2, 0)

	assert.Equal(t, day(2026, 6, 1), w.Start)
	assert.Equal(t, day(2026, 6, 2), w.End())
}

func TestWindow_MissingIsIdempotent(t *testing.T) {
	w := NewWindow(day(2026, 4, 1), DefaultDays, DefaultStartOffset)

	first := w.Missing(nil)
	require.Len(t, first, 14)

	second := w.Missing(first)
	assert.Empty(t, second)
}

func TestWindow_MissingSkipsExisting(t *testing.T) {
	w := NewWindow(day(2026, 4, 1), 4, 1)
	existing := []time.Time{day(2026, 4, 3), day(2026, 3, 1), time.Date(2026, 4, 5, 9, 0, 0, 0, time.UTC)}

	assert.Equal(t, []time.Time{day(2026, 4, 2), day(2026, 4, 4)}, w.Missing(existing))
}
