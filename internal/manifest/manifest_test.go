package manifest

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/essodond/Evexticket/internal/domain"
)

var travel = time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC)

func line(id int64, seat string, status domain.ReservationStatus, price int64) domain.TicketLine {
	return domain.TicketLine{
		Reservation: domain.Reservation{
			ID:            id,
			TravelDate:    travel,
			SeatNumber:    seat,
			PassengerName: "Afi Mensah",
			Status:        status,
			TotalPrice:    decimal.NewFromInt(price),
		},
		CompanyName: "STIF",
		Departure:   "Lomé",
		Arrival:     "Kara",
		Origin:      "Kpalimé",
	}
}

func TestRenderRun(t *testing.T) {
	out, err := RenderRun(Run{
		Route:     domain.Route{DepartureCity: "Lomé", ArrivalCity: "Kara", DepartureTime: "07:00", Capacity: 50},
		Date:      travel,
		Company:   "STIF",
		Lines:     []domain.TicketLine{line(2, "B1", domain.StatusPending, 5000), line(1, "A1", domain.StatusConfirmed, 1500)},
		Generated: time.Date(2026, 7, 1, 18, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestRenderRunEmpty(t *testing.T) {
	out, err := RenderRun(Run{Route: domain.Route{Capacity: 10}, Date: travel})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestRenderExport(t *testing.T) {
	out, err := RenderExport(Export{
		Filter: domain.TicketFilter{From: travel, CompanyID: 5},
		Lines:  []domain.TicketLine{line(1, "A1", domain.StatusConfirmed, 1500)},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestRevenueCountsSettledTickets(t *testing.T) {
	lines := []domain.TicketLine{
		line(1, "A1", domain.StatusConfirmed, 1500),
		line(2, "A2", domain.StatusCompleted, 5000),
		line(3, "A3", domain.StatusPending, 5000),
		line(4, "A4", domain.StatusCancelled, 5000),
	}
	assert.True(t, Revenue(lines).Equal(decimal.NewFromInt(6500)))
	assert.True(t, Revenue(nil).IsZero())
}

func TestClipAndDescribe(t *testing.T) {
	assert.Equal(t, "Lomé", clip("Lomé", 30))
	assert.Equal(t, "Abcdefg.", clip("Abcdefghijklmnop", 16))

	assert.Equal(t, "All dates", describe(domain.TicketFilter{}))
	assert.Equal(t, "2026-07-02 to 2026-07-03, route 4, confirmed", describe(domain.TicketFilter{
		From: travel, To: travel.AddDate(0, 0, 1), RouteID: 4, Status: domain.StatusConfirmed,
	}))
}
