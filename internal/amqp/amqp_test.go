package amqp

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/essodond/Evexticket/internal/domain"
)

func TestNewReservationEvent(t *testing.T) {
	at := time.Date(2026, 7, 1, 9, 30, 0, 0, time.FixedZone("WAT", 3600))
	r := domain.Reservation{
		ID:             7,
		RouteID:        3,
		TravelDate:     time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC),
		SeatNumber:     "A12",
		Status:         domain.StatusPending,
		UserID:         "u-1",
		PassengerEmail: "ama@example.tg",
		TotalPrice:     decimal.RequireFromString("3500"),
	}

	ev := NewReservationEvent(EventReservationCreated, r, at)

	assert.Equal(t, "2026-07-02", ev.TravelDate)
	assert.Equal(t, "3500.00", ev.TotalPrice)
	assert.Equal(t, time.UTC, ev.OccurredAt.Location())

	b, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"type":"reservation.created"`)
	assert.Contains(t, string(b), `"seat_number":"A12"`)
	assert.NotContains(t, string(b), "passenger_phone")
}
