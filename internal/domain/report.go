package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Dashboard is the operator overview of the marketplace.
type Dashboard struct {
	Companies    int64 `json:"total_companies"`
	ActiveRoutes int64 `json:"total_trips"`
	Reservations int64 `json:"total_bookings"`
	Confirmed    int64 `json:"confirmed_bookings"`
	Cancelled    int64 `json:"cancelled_bookings"`
	// Revenue sums reservations whose status earns (confirmed or completed).
	Revenue      decimal.Decimal `json:"total_revenue"`
	UpcomingRuns int64           `json:"upcoming_runs"`
}

// TicketFilter narrows a ticket export. Zero values do not filter.
type TicketFilter struct {
	From      time.Time
	To        time.Time
	CompanyID int64
	RouteID   int64
	Status    ReservationStatus
}

// TicketLine is one reservation as printed on an export or manifest.
type TicketLine struct {
	Reservation Reservation
	CompanyName string
	Departure   string
	Arrival     string
	Origin      string
	Destination string
	DepartsAt   string
}
