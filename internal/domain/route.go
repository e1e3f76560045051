package domain

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

const (
	MinCapacity = 1
	MaxCapacity = 100
)

// StopList is a route's stops ordered by ascending sequence. It is built
// through NewStopList and never holds two stops with the same sequence.
type StopList struct {
	stops []Stop
}

// NewStopList sorts stops by sequence and rejects duplicated sequences.
func NewStopList(stops []Stop) (StopList, error) {
	out := make([]Stop, len(stops))
	copy(out, stops)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Sequence < out[j].Sequence
	})

	for i := 1; i < len(out); i++ {
		if out[i].Sequence == out[i-1].Sequence {
			return StopList{}, fmt.Errorf("%w: %d", ErrDuplicateSequence, out[i].Sequence)
		}
	}

	return StopList{stops: out}, nil
}

// Stops returns a copy of the ordered stops.
func (l StopList) Stops() []Stop {
	out := make([]Stop, len(l.stops))
	copy(out, l.stops)
	return out
}

func (l StopList) Len() int { return len(l.stops) }

func (l StopList) At(i int) Stop { return l.stops[i] }

// ByID returns the stop with the given primary key.
func (l StopList) ByID(id int64) (Stop, bool) {
	for _, s := range l.stops {
		if s.ID == id {
			return s, true
		}
	}
	return Stop{}, false
}

// SegmentPrice is the fare between two stops of a route: the sum of
// SegmentPrice over stops with origin.Sequence <= seq < destination.Sequence.
// It falls back to the route's flat price when either stop is missing, the
// range is empty, or any stop in range is unpriced.
func SegmentPrice(route Route, stops StopList, origin, destination *Stop) decimal.Decimal {
	if origin == nil || destination == nil {
		return route.Price
	}

	from, to := origin.Sequence, destination.Sequence
	if from >= to {
		return route.Price
	}

	if _, ok := stops.ByID(origin.ID); !ok {
		return route.Price
	}
	if _, ok := stops.ByID(destination.ID); !ok {
		return route.Price
	}

	total := decimal.Zero
	n := 0
	for _, s := range stops.stops {
		if s.Sequence < from || s.Sequence >= to {
			continue
		}
		if s.SegmentPrice == nil {
			return route.Price
		}
		total = total.Add(*s.SegmentPrice)
		n++
	}

	if n == 0 {
		return route.Price
	}

	return total
}

// Validate checks the invariants of a route and its stops before they are written.
func (r Route) Validate() error {
	if r.DepartureCityID == 0 || r.ArrivalCityID == 0 {
		return fmt.Errorf("%w: departure and arrival cities are required", ErrInvalidRoute)
	}
	if r.DepartureCityID == r.ArrivalCityID {
		return fmt.Errorf("%w: departure and arrival cities must differ", ErrInvalidRoute)
	}
	if r.Capacity < MinCapacity || r.Capacity > MaxCapacity {
		return fmt.Errorf("%w: capacity must be between %d and %d", ErrInvalidRoute, MinCapacity, MaxCapacity)
	}
	if r.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidRoute)
	}
	if r.BusType != "" && !r.BusType.Valid() {
		return fmt.Errorf("%w: unknown bus type %q", ErrInvalidRoute, r.BusType)
	}
	return nil
}

// ValidateStops checks stop-level invariants for a route.
func ValidateStops(stops []Stop) error {
	for _, s := range stops {
		if s.CityID == 0 {
			return fmt.Errorf("%w: stop #%d has no city", ErrInvalidRoute, s.Sequence)
		}
		if s.Sequence < 0 {
			return fmt.Errorf("%w: stop sequence must not be negative", ErrInvalidRoute)
		}
		if s.SegmentPrice != nil && s.SegmentPrice.IsNegative() {
			return fmt.Errorf("%w: stop #%d has a negative price", ErrInvalidRoute, s.Sequence)
		}
	}
	_, err := NewStopList(stops)
	return err
}
