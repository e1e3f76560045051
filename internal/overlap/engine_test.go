package overlap

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/essodond/Evexticket/internal/domain"
	"github.com/essodond/Evexticket/internal/segment"
)

func ptr(v int64) *int64 { return &v }

// Lomé(0) -> Kpalimé(1) -> Kara(2), capacity 50.
func fixture(t *testing.T) (domain.Route, domain.StopList) {
	t.Helper()

	route := domain.Route{ID: 1, Capacity: 50, Active: true}
	stops, err := domain.NewStopList([]domain.Stop{
		{ID: 11, CityID: 1, CityName: "Lomé", Sequence: 0},
		{ID: 12, CityID: 2, CityName: "Kpalimé", Sequence: 1},
		{ID: 13, CityID: 3, CityName: "Kara", Sequence: 2},
	})
	require.NoError(t, err)

	return route, stops
}

func booking(seat string, status domain.ReservationStatus, origin, destination *int64) domain.Reservation {
	return domain.Reservation{
		RouteID:           1,
		SeatNumber:        seat,
		Status:            status,
		OriginStopID:      origin,
		DestinationStopID: destination,
	}
}

func TestOverlaps_HalfOpen(t *testing.T) {
	tests := []struct {
		a, b Interval
		want bool
	}{
		{Interval{From: 0, To: 2}, Interval{From: 2, To: 4}, false},
		{Interval{From: 0, To: 3}, Interval{From: 2, To: 4}, true},
		{Interval{From: 1, To: 2}, Interval{From: 0, To: 4}, true},
		{Interval{From: 0, To: 1}, Interval{From: 1, To: 2}, false},
		{Interval{From: 0, To: 2}, Interval{From: 1, To: 2}, true},
		{WholeRoute, Interval{From: 3, To: 4}, true},
		{WholeRoute, WholeRoute, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s-%s", tt.a, tt.b), func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.a, tt.b))
			assert.Equal(t, tt.want, Overlaps(tt.b, tt.a), "overlap must be symmetric")
		})
	}
}

func TestOccupied(t *testing.T) {
	_, stops := fixture(t)

	assert.Equal(t, Interval{From: 0, To: 2}, Occupied(stops, booking("A1", domain.StatusPending, ptr(11), ptr(13))))
	assert.Equal(t, WholeRoute, Occupied(stops, booking("A1", domain.StatusPending, nil, nil)))
	assert.Equal(t, WholeRoute, Occupied(stops, booking("A1", domain.StatusPending, ptr(11), nil)))
	assert.Equal(t, WholeRoute, Occupied(stops, booking("A1", domain.StatusPending, nil, ptr(13))))
	assert.Equal(t, WholeRoute, Occupied(stops, booking("A1", domain.StatusPending, ptr(99), ptr(13))))
	assert.Equal(t, WholeRoute, Occupied(stops, booking("A1", domain.StatusPending, ptr(13), ptr(11))))
	assert.Equal(t, WholeRoute, Occupied(stops, booking("A1", domain.StatusPending, ptr(12), ptr(12))))
}

func TestCompute_InvertedLegacyRowBlocksEverySegment(t *testing.T) {
	route, stops := fixture(t)
	reservations := []domain.Reservation{
		booking("A1", domain.StatusConfirmed, ptr(13), ptr(12)),
	}

	got := Compute(route, stops, reservations, Interval{From: 0, To: 1})
	assert.True(t, got.IsOccupied("A1"))
	assert.Error(t, CheckSeat(stops, reservations, "A1", Interval{From: 0, To: 1}))
}

func TestCompute_OverlappingReservationOccupiesSeat(t *testing.T) {
	route, stops := fixture(t)
	reservations := []domain.Reservation{
		booking("A1", domain.StatusConfirmed, ptr(11), ptr(13)),
	}

	got := Compute(route, stops, reservations, Interval{From: 1, To: 2})

	assert.Equal(t, []string{"A1"}, got.OccupiedSeats)
	assert.Equal(t, 49, got.AvailableSeats)
	assert.Equal(t, 50, got.Capacity)
	assert.True(t, got.IsOccupied("A1"))
}

func TestCompute_TouchingReservationFreesSeat(t *testing.T) {
	route, stops := fixture(t)
	reservations := []domain.Reservation{
		booking("B2", domain.StatusPending, ptr(11), ptr(12)),
	}

	got := Compute(route, stops, reservations, Interval{From: 1, To: 2})

	assert.Empty(t, got.OccupiedSeats)
	assert.Equal(t, 50, got.AvailableSeats)
	assert.False(t, got.IsOccupied("B2"))
}

func TestCompute_OnlyActiveStatusesOccupy(t *testing.T) {
	route, stops := fixture(t)
	reservations := []domain.Reservation{
		booking("1", domain.StatusPending, nil, nil),
		booking("2", domain.StatusConfirmed, nil, nil),
		booking("3", domain.StatusCancelled, nil, nil),
		booking("4", domain.StatusCompleted, nil, nil),
	}

	got := Compute(route, stops, reservations, WholeRoute)

	assert.Equal(t, []string{"1", "2"}, got.OccupiedSeats)
	assert.Equal(t, 48, got.AvailableSeats)
}

func TestCompute_WholeRouteReservationConflictsEverywhere(t *testing.T) {
	route, stops := fixture(t)
	reservations := []domain.Reservation{booking("C3", domain.StatusPending, nil, nil)}

	for _, q := range []Interval{{From: 0, To: 1}, {From: 1, To: 2}, {From: 0, To: 2}, WholeRoute} {
		got := Compute(route, stops, reservations, q)
		assert.Equal(t, []string{"C3"}, got.OccupiedSeats, q.String())
	}
}

func TestCompute_SeatLabelsAreOpaque(t *testing.T) {
	route, stops := fixture(t)
	reservations := []domain.Reservation{
		booking("A12", domain.StatusPending, nil, nil),
		booking("a12", domain.StatusPending, nil, nil),
		booking("A12", domain.StatusConfirmed, ptr(11), ptr(12)),
	}

	got := Compute(route, stops, reservations, WholeRoute)

	assert.Equal(t, []string{"A12", "a12"}, got.OccupiedSeats)
	assert.Equal(t, 48, got.AvailableSeats)
}

func TestCompute_NeverNegative(t *testing.T) {
	route, stops := fixture(t)
	route.Capacity = 2

	var reservations []domain.Reservation
	for i := 0; i < 5; i++ {
		reservations = append(reservations, booking(fmt.Sprintf("S%d", i), domain.StatusConfirmed, nil, nil))
	}

	got := Compute(route, stops, reservations, WholeRoute)

	assert.Len(t, got.OccupiedSeats, 5)
	assert.Equal(t, 0, got.AvailableSeats)
}

func TestCheckSeat(t *testing.T) {
	_, stops := fixture(t)
	reservations := []domain.Reservation{
		booking("A1", domain.StatusPending, ptr(11), ptr(12)),
		booking("A2", domain.StatusCancelled, nil, nil),
	}

	assert.NoError(t, CheckSeat(stops, reservations, "A1", Interval{From: 1, To: 2}))
	assert.NoError(t, CheckSeat(stops, reservations, "A2", WholeRoute))
	assert.NoError(t, CheckSeat(stops, reservations, "A3", WholeRoute))

	err := CheckSeat(stops, reservations, "A1", Interval{From: 0, To: 2})
	require.ErrorIs(t, err, domain.ErrSeatConflict)
	e, _ := domain.AsError(err)
	assert.Equal(t, "seat_number", e.Field)

	assert.ErrorIs(t, CheckSeat(stops, reservations, "A1", WholeRoute), domain.ErrSeatConflict)
}

func TestForSegment(t *testing.T) {
	_, stops := fixture(t)
	o, d := stops.At(1), stops.At(2)

	assert.Equal(t, WholeRoute, ForSegment(segment.Segment{}))
	assert.Equal(t, WholeRoute, ForSegment(segment.Segment{Origin: &o}))
	assert.Equal(t, Interval{From: 1, To: 2}, ForSegment(segment.Segment{Origin: &o, Destination: &d}))
}
