package httpgin

import (
	"github.com/shopspring/decimal"

	"github.com/essodond/Evexticket/internal/domain"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}

type CreatedResponse struct {
	ID int64 `json:"id"`
}

type CreateReservationRequest struct {
	RouteID           int64  `json:"route_id" binding:"required,gt=0"`
	TravelDate        string `json:"travel_date" binding:"required"`
	SeatNumber        string `json:"seat_number" binding:"required,max=10"`
	OriginStopID      *int64 `json:"origin_stop_id"`
	DestinationStopID *int64 `json:"destination_stop_id"`
	PassengerName     string `json:"passenger_name" binding:"required,max=100"`
	PassengerEmail    string `json:"passenger_email" binding:"omitempty,email"`
	PassengerPhone    string `json:"passenger_phone" binding:"max=20"`
	PaymentMethod     string `json:"payment_method" binding:"required"`
	Notes             string `json:"notes"`
}

type RecordPaymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"payment_method" binding:"required"`
	Status        string          `json:"status" binding:"required"`
	TransactionID string          `json:"transaction_id" binding:"max=100"`
}

type CreateCompanyRequest struct {
	Name        string   `json:"name" binding:"required,max=100"`
	Description string   `json:"description"`
	Address     string   `json:"address"`
	Phone       string   `json:"phone" binding:"max=20"`
	Email       string   `json:"email" binding:"omitempty,email"`
	Website     string   `json:"website" binding:"omitempty,url"`
	Logo        string   `json:"logo"`
	Admins      []string `json:"admins"`
	Active      *bool    `json:"is_active"`
}

type AddAdminRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

type CreateCityRequest struct {
	Name   string `json:"name" binding:"required,max=100"`
	Region string `json:"region"`
	Active *bool  `json:"is_active"`
}

type StopInput struct {
	CityID       int64            `json:"city_id" binding:"required,gt=0"`
	Sequence     int              `json:"sequence" binding:"min=0"`
	SegmentPrice *decimal.Decimal `json:"segment_price"`
}

type CreateRouteRequest struct {
	CompanyID       int64           `json:"company_id" binding:"required,gt=0"`
	DepartureCityID int64           `json:"departure_city_id" binding:"required,gt=0"`
	ArrivalCityID   int64           `json:"arrival_city_id" binding:"required,gt=0"`
	DepartureTime   string          `json:"departure_time" binding:"required"`
	ArrivalTime     string          `json:"arrival_time"`
	Price           decimal.Decimal `json:"price"`
	DurationMin     int             `json:"duration" binding:"min=0"`
	BusType         string          `json:"bus_type"`
	Capacity        int             `json:"capacity" binding:"required,min=1,max=100"`
	Active          *bool           `json:"is_active"`
	Stops           []StopInput     `json:"stops" binding:"dive"`
}

type ReplaceStopsRequest struct {
	Stops []StopInput `json:"stops" binding:"dive"`
}

type SetActiveRequest struct {
	Active *bool `json:"is_active" binding:"required"`
}

type GenerateRunsRequest struct {
	Days        int  `json:"days" binding:"min=0,max=366"`
	StartOffset *int `json:"start_offset" binding:"omitempty,min=0"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type ResolveResponse struct {
	RouteID     int64        `json:"route_id"`
	WholeRoute  bool         `json:"whole_route"`
	Origin      *domain.Stop `json:"origin_stop"`
	Destination *domain.Stop `json:"destination_stop"`
}

type AvailabilityResponse struct {
	RouteID           int64    `json:"route_id"`
	TravelDate        string   `json:"travel_date"`
	OriginStopID      *int64   `json:"origin_stop_id"`
	DestinationStopID *int64   `json:"destination_stop_id"`
	OccupiedSeats     []string `json:"occupied_seats"`
	AvailableSeats    int      `json:"available_seats"`
	Capacity          int      `json:"capacity"`
}

type PriceResponse struct {
	RouteID           int64           `json:"route_id"`
	OriginStopID      *int64          `json:"origin_stop_id"`
	DestinationStopID *int64          `json:"destination_stop_id"`
	Price             decimal.Decimal `json:"price"`
}

func stopsFromInput(in []StopInput) []domain.Stop {
	out := make([]domain.Stop, 0, len(in))
	for _, s := range in {
		out = append(out, domain.Stop{
			CityID:       s.CityID,
			Sequence:     s.Sequence,
			SegmentPrice: s.SegmentPrice,
		})
	}
	return out
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
