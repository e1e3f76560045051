package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/essodond/Evexticket/internal/domain"
)

// wrapDBErr translates err and prefixes it with the operation name.
func wrapDBErr(op string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", op, translateDBErr(err))
}

const routeColumns = `
	r.id, r.company_id,
	r.departure_city_id, dc.name,
	r.arrival_city_id, ac.name,
	r.departure_time, r.arrival_time,
	r.price, r.duration_min, r.bus_type, r.capacity, r.is_active, r.created_at`

const routeFrom = `
	FROM routes r
	JOIN cities dc ON dc.id = r.departure_city_id
	JOIN cities ac ON ac.id = r.arrival_city_id`

func scanRoute(row pgx.Row) (domain.Route, error) {
	var r domain.Route
	var busType string

	err := row.Scan(
		&r.ID, &r.CompanyID,
		&r.DepartureCityID, &r.DepartureCity,
		&r.ArrivalCityID, &r.ArrivalCity,
		&r.DepartureTime, &r.ArrivalTime,
		&r.Price, &r.DurationMin, &busType, &r.Capacity, &r.Active, &r.CreatedAt,
	)
	r.BusType = domain.BusType(busType)

	return r, err
}

const stopColumns = `s.id, s.route_id, s.city_id, c.name, s.sequence, s.segment_price`

func scanStop(row pgx.Row) (domain.Stop, error) {
	var s domain.Stop
	err := row.Scan(&s.ID, &s.RouteID, &s.CityID, &s.CityName, &s.Sequence, &s.SegmentPrice)
	return s, err
}

const reservationColumns = `
	id, route_id, travel_date, user_id,
	passenger_name, passenger_email, passenger_phone,
	seat_number, origin_stop_id, destination_stop_id,
	status, payment_method, total_price, notes, booked_at`

func scanReservation(row pgx.Row) (domain.Reservation, error) {
	var r domain.Reservation
	var status, method string

	err := row.Scan(
		&r.ID, &r.RouteID, &r.TravelDate, &r.UserID,
		&r.PassengerName, &r.PassengerEmail, &r.PassengerPhone,
		&r.SeatNumber, &r.OriginStopID, &r.DestinationStopID,
		&status, &method, &r.TotalPrice, &r.Notes, &r.BookedAt,
	)
	r.Status = domain.ReservationStatus(status)
	r.PaymentMethod = domain.PaymentMethod(method)

	return r, err
}

func collectReservations(rows pgx.Rows) ([]domain.Reservation, error) {
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}

	return out, rows.Err()
}
