package overlap

import (
	"sort"

	"github.com/essodond/Evexticket/internal/domain"
)

// Availability is the occupancy of one run for one queried interval.
type Availability struct {
	OccupiedSeats  []string `json:"occupied_seats"`
	AvailableSeats int      `json:"available_seats"`
	Capacity       int      `json:"capacity"`
}

// IsOccupied reports whether seat is held on the queried interval.
func (a Availability) IsOccupied(seat string) bool {
	i := sort.SearchStrings(a.OccupiedSeats, seat)
	return i < len(a.OccupiedSeats) && a.OccupiedSeats[i] == seat
}

// Compute returns the seats held by active reservations overlapping query
// and the remaining availability. Capacity always comes from the route.
// Seat labels are compared verbatim.
func Compute(
	route domain.Route,
	stops domain.StopList,
	reservations []domain.Reservation,
	query Interval,
) Availability {
	seen := make(map[string]struct{})
	for _, r := range reservations {
		if !r.Status.Occupies() {
			continue
		}
		if Overlaps(Occupied(stops, r), query) {
			seen[r.SeatNumber] = struct{}{}
		}
	}

	occupied := make([]string, 0, len(seen))
	for s := range seen {
		occupied = append(occupied, s)
	}
	sort.Strings(occupied)

	available := route.Capacity - len(occupied)
	if available < 0 {
		available = 0
	}

	return Availability{
		OccupiedSeats:  occupied,
		AvailableSeats: available,
		Capacity:       route.Capacity,
	}
}

// CheckSeat returns domain.SeatConflict when an active reservation already
// holds seat on an interval overlapping query.
func CheckSeat(
	stops domain.StopList,
	reservations []domain.Reservation,
	seat string,
	query Interval,
) error {
	for _, r := range reservations {
		if r.SeatNumber != seat || !r.Status.Occupies() {
			continue
		}
		if Overlaps(Occupied(stops, r), query) {
			return domain.SeatConflict(seat)
		}
	}
	return nil
}
