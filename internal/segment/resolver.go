// Package segment maps free-text endpoints to stops of a route.
package segment

import (
	"github.com/essodond/Evexticket/internal/domain"
)

// Segment is a resolved origin/destination pair. Both nil means the whole route.
type Segment struct {
	Origin      *domain.Stop
	Destination *domain.Stop
}

// Whole reports whether the segment covers the whole route.
func (s Segment) Whole() bool {
	return s.Origin == nil && s.Destination == nil
}

// IsWholeRoute reports whether both descriptors designate the route's own
// declared departure and arrival cities.
func IsWholeRoute(route domain.Route, originText, destText string) bool {
	return matchesEndpoint(originText, route.DepartureCityID, route.DepartureCity) &&
		matchesEndpoint(destText, route.ArrivalCityID, route.ArrivalCity)
}

// Pairs enumerates the strictly ordered (origin, destination) candidates in
// stop-list order: by origin first, then by destination.
func Pairs(origins, destinations []domain.Stop) []Segment {
	var out []Segment
	for i := range origins {
		for j := range destinations {
			if origins[i].Sequence < destinations[j].Sequence {
				o, d := origins[i], destinations[j]
				out = append(out, Segment{Origin: &o, Destination: &d})
			}
		}
	}
	return out
}

// Resolve maps the two descriptors to a segment of the route. A match on
// the route's declared endpoints wins over stop-level resolution.
//
// Returns:
//   - domain.StopNotFound naming the field that matched nothing.
//   - domain.InvalidSegment when every candidate origin is at or after
//     every candidate destination.
func Resolve(route domain.Route, stops domain.StopList, originText, destText string) (Segment, error) {
	if IsWholeRoute(route, originText, destText) {
		return Segment{}, nil
	}

	origins, _ := Candidates(stops, originText)
	if len(origins) == 0 {
		return Segment{}, domain.StopNotFound("origin", originText)
	}

	destinations, _ := Candidates(stops, destText)
	if len(destinations) == 0 {
		return Segment{}, domain.StopNotFound("destination", destText)
	}

	pairs := Pairs(origins, destinations)
	if len(pairs) == 0 {
		return Segment{}, domain.InvalidSegment("destination", "origin must come before destination")
	}

	return pairs[0], nil
}

// FromStopIDs builds a segment from optional stop identifiers, validating
// that both or neither are given, that they belong to the route and that
// they are strictly ordered.
func FromStopIDs(stops domain.StopList, originID, destinationID *int64) (Segment, error) {
	if originID == nil && destinationID == nil {
		return Segment{}, nil
	}
	if originID == nil {
		return Segment{}, domain.InvalidSegment("origin_stop_id", "origin and destination must be given together")
	}
	if destinationID == nil {
		return Segment{}, domain.InvalidSegment("destination_stop_id", "origin and destination must be given together")
	}

	o, ok := stops.ByID(*originID)
	if !ok {
		return Segment{}, domain.InvalidSegment("origin_stop_id", "stop does not belong to the route")
	}
	d, ok := stops.ByID(*destinationID)
	if !ok {
		return Segment{}, domain.InvalidSegment("destination_stop_id", "stop does not belong to the route")
	}
	if o.Sequence >= d.Sequence {
		return Segment{}, domain.InvalidSegment("destination_stop_id", "origin must come before destination")
	}

	return Segment{Origin: &o, Destination: &d}, nil
}
