// Package search scans the runs of one date for seats between two free-text
// endpoints.
package search

import (
	"github.com/shopspring/decimal"

	"github.com/essodond/Evexticket/internal/domain"
	"github.com/essodond/Evexticket/internal/overlap"
	"github.com/essodond/Evexticket/internal/segment"
)

// Snapshot is everything needed to evaluate one run without further I/O.
type Snapshot struct {
	Run          domain.Run
	Route        domain.Route
	Stops        domain.StopList
	Reservations []domain.Reservation
}

type Result struct {
	Run            domain.Run      `json:"run"`
	Route          domain.Route    `json:"route"`
	Origin         *domain.Stop    `json:"origin_stop"`
	Destination    *domain.Stop    `json:"destination_stop"`
	Price          decimal.Decimal `json:"price"`
	AvailableSeats int             `json:"available_seats"`
}

// Whole reports whether the result is a full-journey match.
func (r Result) Whole() bool {
	return r.Origin == nil && r.Destination == nil
}

// Aggregate evaluates each snapshot in order and keeps the runs that can
// seat passengers. A match on the route's own endpoints is tried first and
// priced flat. Otherwise the first ordered stop pair, in stop-list order,
// with enough seats wins. Output order is input order.
func Aggregate(snapshots []Snapshot, departure, arrival string, passengers int) []Result {
	if passengers < 1 {
		passengers = 1
	}

	out := make([]Result, 0, len(snapshots))
	for _, s := range snapshots {
		if r, ok := evaluate(s, departure, arrival, passengers); ok {
			out = append(out, r)
		}
	}
	return out
}

func evaluate(s Snapshot, departure, arrival string, passengers int) (Result, bool) {
	if !s.Run.Active || !s.Route.Active {
		return Result{}, false
	}

	if segment.IsWholeRoute(s.Route, departure, arrival) {
		a := overlap.Compute(s.Route, s.Stops, s.Reservations, overlap.WholeRoute)
		if a.AvailableSeats >= passengers {
			return Result{
				Run:            s.Run,
				Route:          s.Route,
				Price:          s.Route.Price,
				AvailableSeats: a.AvailableSeats,
			}, true
		}
	}

	origins, _ := segment.Candidates(s.Stops, departure)
	if len(origins) == 0 {
		return Result{}, false
	}
	destinations, _ := segment.Candidates(s.Stops, arrival)
	if len(destinations) == 0 {
		return Result{}, false
	}

	for _, seg := range segment.Pairs(origins, destinations) {
		a := overlap.Compute(s.Route, s.Stops, s.Reservations, overlap.ForSegment(seg))
		if a.AvailableSeats < passengers {
			continue
		}
		return Result{
			Run:            s.Run,
			Route:          s.Route,
			Origin:         seg.Origin,
			Destination:    seg.Destination,
			Price:          domain.SegmentPrice(s.Route, s.Stops, seg.Origin, seg.Destination),
			AvailableSeats: a.AvailableSeats,
		}, true
	}

	return Result{}, false
}
