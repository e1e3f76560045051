package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage layout of calendar dates.
const DateLayout = "2006-01-02"

type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
	StatusCompleted ReservationStatus = "completed"
)

// Occupies reports whether a reservation in this status holds its seat.
func (s ReservationStatus) Occupies() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Earns reports whether a reservation in this status counts as revenue.
func (s ReservationStatus) Earns() bool {
	return s == StatusConfirmed || s == StatusCompleted
}

// EarningStatuses lists the statuses for which Earns is true.
func EarningStatuses() []string {
	return []string{string(StatusConfirmed), string(StatusCompleted)}
}

func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// CanTransition reports whether a reservation may move from one status to another.
func CanTransition(from, to ReservationStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCancelled || to == StatusCompleted
	}
	return false
}

type PaymentMethod string

const (
	PaymentMobileMoney PaymentMethod = "mobile_money"
	PaymentBankCard    PaymentMethod = "bank_card"
	PaymentCash        PaymentMethod = "cash"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMobileMoney || m == PaymentBankCard || m == PaymentCash
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

type BusType string

const (
	BusStandard BusType = "Standard"
	BusPremium  BusType = "Premium"
	BusVIP      BusType = "VIP"
	BusLuxury   BusType = "Luxury"
)

func (b BusType) Valid() bool {
	switch b {
	case BusStandard, BusPremium, BusVIP, BusLuxury:
		return true
	}
	return false
}

type City struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Region string `json:"region"`
	Active bool   `json:"is_active"`
}

// Route is a company's published trip between two cities.
type Route struct {
	ID              int64           `json:"id"`
	CompanyID       int64           `json:"company_id"`
	DepartureCityID int64           `json:"departure_city_id"`
	DepartureCity   string          `json:"departure_city"`
	ArrivalCityID   int64           `json:"arrival_city_id"`
	ArrivalCity     string          `json:"arrival_city"`
	DepartureTime   string          `json:"departure_time"`
	ArrivalTime     string          `json:"arrival_time"`
	Price           decimal.Decimal `json:"price"`
	DurationMin     int             `json:"duration"`
	BusType         BusType         `json:"bus_type"`
	Capacity        int             `json:"capacity"`
	Active          bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Stop is an ordered point on a route. SegmentPrice is the fare of the
// segment ending at this stop and may be unset.
type Stop struct {
	ID           int64            `json:"id"`
	RouteID      int64            `json:"route_id"`
	CityID       int64            `json:"city_id"`
	CityName     string           `json:"city_name"`
	Sequence     int              `json:"sequence"`
	SegmentPrice *decimal.Decimal `json:"segment_price"`
}

// Run is a dated, bookable instance of a route. AvailableSeats is an
// informational snapshot; occupancy is always recomputed from reservations.
type Run struct {
	ID             int64     `json:"id"`
	RouteID        int64     `json:"route_id"`
	Date           time.Time `json:"date"`
	Active         bool      `json:"is_active"`
	AvailableSeats int       `json:"available_seats"`
	CreatedAt      time.Time `json:"created_at"`
}

type Reservation struct {
	ID                int64             `json:"id"`
	RouteID           int64             `json:"route_id"`
	TravelDate        time.Time         `json:"travel_date"`
	UserID            string            `json:"user_id,omitempty"`
	PassengerName     string            `json:"passenger_name"`
	PassengerEmail    string            `json:"passenger_email"`
	PassengerPhone    string            `json:"passenger_phone"`
	SeatNumber        string            `json:"seat_number"`
	OriginStopID      *int64            `json:"origin_stop_id"`
	DestinationStopID *int64            `json:"destination_stop_id"`
	Status            ReservationStatus `json:"status"`
	PaymentMethod     PaymentMethod     `json:"payment_method"`
	TotalPrice        decimal.Decimal   `json:"total_price"`
	Notes             string            `json:"notes,omitempty"`
	BookedAt          time.Time         `json:"booking_date"`
}

type Payment struct {
	ID            int64           `json:"id"`
	ReservationID int64           `json:"reservation_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        PaymentMethod   `json:"payment_method"`
	Status        PaymentStatus   `json:"status"`
	TransactionID string          `json:"transaction_id,omitempty"`
	PaidAt        time.Time       `json:"payment_date"`
}

// Identity is the opaque caller handed to the core by the transport layer.
type Identity struct {
	Subject string
	Staff   bool
}

func (i Identity) Anonymous() bool { return i.Subject == "" }

// CivilDate truncates t to its calendar date at UTC midnight.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return CivilDate(t), nil
}
