package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/essodond/Evexticket/internal/domain"
)

// QueryRepo serves the read side: search snapshots, dashboard and exports.
type QueryRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *QueryRepo) With(db DB) *QueryRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *QueryRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

type RunWithRoute struct {
	Run   domain.Run
	Route domain.Route
}

// RunsOn lists the bookable runs of a date whose route is active, ordered
// by scheduled departure time then run ID.
func (r *QueryRepo) RunsOn(ctx context.Context, date time.Time) ([]RunWithRoute, error) {
	const op = "postgres.QueryRepo.RunsOn"

	rows, err := r.handle().Query(ctx,
		`SELECT ru.id, ru.route_id, ru.date, ru.is_active, ru.available_seats, ru.created_at,`+routeColumns+routeFrom+`
		 JOIN runs ru ON ru.route_id = r.id
		 WHERE ru.date = $1 AND ru.is_active AND r.is_active
		 ORDER BY r.departure_time, ru.id`,
		domain.CivilDate(date),
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []RunWithRoute
	for rows.Next() {
		var rr RunWithRoute
		var busType string
		if err := rows.Scan(
			&rr.Run.ID, &rr.Run.RouteID, &rr.Run.Date, &rr.Run.Active, &rr.Run.AvailableSeats, &rr.Run.CreatedAt,
			&rr.Route.ID, &rr.Route.CompanyID,
			&rr.Route.DepartureCityID, &rr.Route.DepartureCity,
			&rr.Route.ArrivalCityID, &rr.Route.ArrivalCity,
			&rr.Route.DepartureTime, &rr.Route.ArrivalTime,
			&rr.Route.Price, &rr.Route.DurationMin, &busType, &rr.Route.Capacity, &rr.Route.Active, &rr.Route.CreatedAt,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}
		rr.Route.BusType = domain.BusType(busType)
		out = append(out, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// StopsFor returns the stops of each route, keyed by route ID.
func (r *QueryRepo) StopsFor(ctx context.Context, routeIDs []int64) (map[int64][]domain.Stop, error) {
	const op = "postgres.QueryRepo.StopsFor"

	out := make(map[int64][]domain.Stop, len(routeIDs))
	if len(routeIDs) == 0 {
		return out, nil
	}

	rows, err := r.handle().Query(ctx,
		`SELECT `+stopColumns+`
		 FROM stops s
		 JOIN cities c ON c.id = s.city_id
		 WHERE s.route_id = ANY($1)
		 ORDER BY s.route_id, s.sequence`,
		routeIDs,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	for rows.Next() {
		s, err := scanStop(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out[s.RouteID] = append(out[s.RouteID], s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// ActiveOn returns the pending and confirmed reservations travelling on a
// date, keyed by route ID.
func (r *QueryRepo) ActiveOn(ctx context.Context, date time.Time) (map[int64][]domain.Reservation, error) {
	const op = "postgres.QueryRepo.ActiveOn"

	rows, err := r.handle().Query(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations
		 WHERE travel_date = $1 AND status IN ('pending', 'confirmed')
		 ORDER BY route_id, id`,
		domain.CivilDate(date),
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	list, err := collectReservations(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out := make(map[int64][]domain.Reservation)
	for _, res := range list {
		out[res.RouteID] = append(out[res.RouteID], res)
	}

	return out, nil
}

// Dashboard aggregates marketplace totals. Upcoming runs are those dated
// on or after today.
func (r *QueryRepo) Dashboard(ctx context.Context, today time.Time) (domain.Dashboard, error) {
	const op = "postgres.QueryRepo.Dashboard"

	var d domain.Dashboard
	err := r.handle().QueryRow(ctx,
		`SELECT
		 	(SELECT count(*) FROM companies WHERE is_active),
		 	(SELECT count(*) FROM routes WHERE is_active),
		 	(SELECT count(*) FROM reservations),
		 	(SELECT count(*) FROM reservations WHERE status = 'confirmed'),
		 	(SELECT count(*) FROM reservations WHERE status = 'cancelled'),
		 	(SELECT COALESCE(SUM(total_price), 0) FROM reservations WHERE status = ANY($2)),
		 	(SELECT count(*) FROM runs WHERE date >= $1 AND is_active)`,
		domain.CivilDate(today), domain.EarningStatuses(),
	).Scan(
		&d.Companies,
		&d.ActiveRoutes,
		&d.Reservations,
		&d.Confirmed,
		&d.Cancelled,
		&d.Revenue,
		&d.UpcomingRuns,
	)
	if err != nil {
		return domain.Dashboard{}, wrapDBErr(op, err)
	}

	return d, nil
}

// TicketLines lists reservations matching the filter with the names needed
// to print them, ordered by travel date, departure time and seat.
func (r *QueryRepo) TicketLines(ctx context.Context, f domain.TicketFilter) ([]domain.TicketLine, error) {
	const op = "postgres.QueryRepo.TicketLines"

	var from, to *time.Time
	if !f.From.IsZero() {
		d := domain.CivilDate(f.From)
		from = &d
	}
	if !f.To.IsZero() {
		d := domain.CivilDate(f.To)
		to = &d
	}

	rows, err := r.handle().Query(ctx,
		`SELECT b.id, b.route_id, b.travel_date, b.user_id,
		        b.passenger_name, b.passenger_email, b.passenger_phone,
		        b.seat_number, b.origin_stop_id, b.destination_stop_id,
		        b.status, b.payment_method, b.total_price, b.notes, b.booked_at,
		        co.name, dc.name, ac.name,
		        COALESCE(oc.name, ''), COALESCE(tc.name, ''), r.departure_time
		 FROM reservations b
		 JOIN routes r ON r.id = b.route_id
		 JOIN companies co ON co.id = r.company_id
		 JOIN cities dc ON dc.id = r.departure_city_id
		 JOIN cities ac ON ac.id = r.arrival_city_id
		 LEFT JOIN stops os ON os.id = b.origin_stop_id
		 LEFT JOIN cities oc ON oc.id = os.city_id
		 LEFT JOIN stops ts ON ts.id = b.destination_stop_id
		 LEFT JOIN cities tc ON tc.id = ts.city_id
		 WHERE ($1::date IS NULL OR b.travel_date >= $1)
		   AND ($2::date IS NULL OR b.travel_date <= $2)
		   AND ($3 = 0 OR r.company_id = $3)
		   AND ($4 = 0 OR b.route_id = $4)
		   AND ($5 = '' OR b.status = $5)
		 ORDER BY b.travel_date, r.departure_time, b.seat_number, b.id`,
		from, to, f.CompanyID, f.RouteID, string(f.Status),
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.TicketLine
	for rows.Next() {
		var l domain.TicketLine
		var status, method string
		res := &l.Reservation

		if err := rows.Scan(
			&res.ID, &res.RouteID, &res.TravelDate, &res.UserID,
			&res.PassengerName, &res.PassengerEmail, &res.PassengerPhone,
			&res.SeatNumber, &res.OriginStopID, &res.DestinationStopID,
			&status, &method, &res.TotalPrice, &res.Notes, &res.BookedAt,
			&l.CompanyName, &l.Departure, &l.Arrival,
			&l.Origin, &l.Destination, &l.DepartsAt,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}

		res.Status = domain.ReservationStatus(status)
		res.PaymentMethod = domain.PaymentMethod(method)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
