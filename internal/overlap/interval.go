// Package overlap computes seat occupancy of a dated run over half-open
// stop-sequence intervals.
package overlap

import (
	"fmt"

	"github.com/essodond/Evexticket/internal/domain"
	"github.com/essodond/Evexticket/internal/segment"
)

// Interval is the half-open stop-sequence range [From, To). Whole covers
// every segment of the route regardless of From and To.
type Interval struct {
	From  int
	To    int
	Whole bool
}

// WholeRoute is the interval of a full-journey request or reservation.
var WholeRoute = Interval{Whole: true}

func (i Interval) String() string {
	if i.Whole {
		return "[whole)"
	}
	return fmt.Sprintf("[%d,%d)", i.From, i.To)
}

// Overlaps reports whether two intervals share at least one segment.
// Touching intervals, where one ends at the stop the other starts from,
// do not overlap.
func Overlaps(a, b Interval) bool {
	if a.Whole || b.Whole {
		return true
	}
	return !(a.To <= b.From || a.From >= b.To)
}

// ForSegment converts a resolved segment into its interval.
func ForSegment(seg segment.Segment) Interval {
	if seg.Origin == nil || seg.Destination == nil {
		return WholeRoute
	}
	return Interval{From: seg.Origin.Sequence, To: seg.Destination.Sequence}
}

// Occupied returns the interval a reservation holds on its run. A
// reservation with neither stop, only one stop, a stop that is not on the
// route, or an origin not strictly before its destination holds the whole
// route.
func Occupied(stops domain.StopList, r domain.Reservation) Interval {
	if r.OriginStopID == nil || r.DestinationStopID == nil {
		return WholeRoute
	}

	o, ok := stops.ByID(*r.OriginStopID)
	if !ok {
		return WholeRoute
	}
	d, ok := stops.ByID(*r.DestinationStopID)
	if !ok {
		return WholeRoute
	}
	if o.Sequence >= d.Sequence {
		return WholeRoute
	}

	return Interval{From: o.Sequence, To: d.Sequence}
}
