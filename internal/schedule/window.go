// Package schedule plans the rolling window of dated runs for a route.
package schedule

import (
	"time"

	"github.com/essodond/Evexticket/internal/domain"
)

const (
	DefaultDays        = 14
	DefaultStartOffset = 1
)

// Window holds the consecutive civil dates a route should have runs for.
type Window struct {
	Start time.Time
	Days  int
}

// NewWindow starts startOffset days after today and spans days dates.
// Non-positive days fall back to DefaultDays; a negative offset to
// DefaultStartOffset.
func NewWindow(today time.Time, days, startOffset int) Window {
	if days <= 0 {
		days = DefaultDays
	}
	if startOffset < 0 {
		startOffset = DefaultStartOffset
	}

	return Window{
		Start: domain.CivilDate(today).AddDate(0, 0, startOffset),
		Days:  days,
	}
}

// Dates lists every date of the window in ascending order.
func (w Window) Dates() []time.Time {
	out := make([]time.Time, 0, w.Days)
	for i := 0; i < w.Days; i++ {
		out = append(out, w.Start.AddDate(0, 0, i))
	}
	return out
}

// End is the last date of the window.
func (w Window) End() time.Time {
	return w.Start.AddDate(0, 0, w.Days-1)
}

// Missing returns the window dates absent from existing, preserving order.
func (w Window) Missing(existing []time.Time) []time.Time {
	have := make(map[time.Time]struct{}, len(existing))
	for _, d := range existing {
		have[domain.CivilDate(d)] = struct{}{}
	}

	var out []time.Time
	for _, d := range w.Dates() {
		if _, ok := have[d]; !ok {
			out = append(out, d)
		}
	}
	return out
}
