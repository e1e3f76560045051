package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/essodond/Evexticket/internal/domain"
	"github.com/essodond/Evexticket/internal/repository"
)

// Decide inspects the locked run and its active reservations and vetoes a
// booking by returning an error.
type Decide func(run domain.Run, active []domain.Reservation) error

type ReservationRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ReservationRepo) With(db DB) *ReservationRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ReservationRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Book inserts a reservation after decide has approved it against the
// run's active reservations. The run row is created if absent and locked
// FOR UPDATE, so concurrent bookings of the same run are serialized
// between the check and the insert.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - res: the reservation to insert; RouteID and TravelDate select the run.
//   - seats: snapshot seat count of a run created on the fly.
//   - decide: veto callback, run under the lock.
//
// Returns:
//   - domain.Reservation: the stored reservation.
//   - error: whatever decide returned, unchanged in the chain.
func (r *ReservationRepo) Book(
	ctx context.Context,
	res domain.Reservation,
	seats int,
	decide Decide,
) (domain.Reservation, error) {
	const op = "postgres.ReservationRepo.Book"

	if r.db != nil {
		out, err := r.bookCore(ctx, r.db, res, seats, decide)
		if err != nil {
			return domain.Reservation{}, wrapDBErr(op, err)
		}
		return out, nil
	}

	// The run row lock provides the serialization; read committed avoids
	// spurious serialization failures on unrelated runs.
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return domain.Reservation{}, wrapDBErr(op, err)
	}

	defer tx.Rollback(ctx)

	out, err := r.bookCore(ctx, tx, res, seats, decide)
	if err != nil {
		return domain.Reservation{}, wrapDBErr(op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Reservation{}, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *ReservationRepo) bookCore(
	ctx context.Context,
	db DB,
	res domain.Reservation,
	seats int,
	decide Decide,
) (domain.Reservation, error) {
	const op = "postgres.ReservationRepo.bookCore"

	date := domain.CivilDate(res.TravelDate)

	if _, err := db.Exec(ctx,
		`INSERT INTO runs(route_id, date, is_active, available_seats)
		 VALUES ($1, $2, TRUE, $3)
		 ON CONFLICT (route_id, date) DO NOTHING`,
		res.RouteID, date, seats,
	); err != nil {
		return domain.Reservation{}, wrapDBErr(op, err)
	}

	run, err := scanRun(db.QueryRow(ctx,
		`SELECT `+runColumns+`
		 FROM runs
		 WHERE route_id = $1 AND date = $2
		 FOR UPDATE`,
		res.RouteID, date,
	))
	if err != nil {
		return domain.Reservation{}, wrapDBErr(op, err)
	}

	active, err := activeForRun(ctx, db, res.RouteID, date)
	if err != nil {
		return domain.Reservation{}, wrapDBErr(op, err)
	}

	if err := decide(run, active); err != nil {
		return domain.Reservation{}, fmt.Errorf("%s: %w", op, err)
	}

	out, err := scanReservation(db.QueryRow(ctx,
		`INSERT INTO reservations(route_id, travel_date, user_id,
		                          passenger_name, passenger_email, passenger_phone,
		                          seat_number, origin_stop_id, destination_stop_id,
		                          status, payment_method, total_price, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING `+reservationColumns,
		res.RouteID, date, res.UserID,
		res.PassengerName, res.PassengerEmail, res.PassengerPhone,
		res.SeatNumber, res.OriginStopID, res.DestinationStopID,
		string(res.Status), string(res.PaymentMethod), res.TotalPrice, res.Notes,
	))
	if err != nil {
		return domain.Reservation{}, wrapDBErr(op, err)
	}

	if _, err := db.Exec(ctx,
		`UPDATE runs SET available_seats = GREATEST(available_seats - 1, 0) WHERE id = $1`,
		run.ID,
	); err != nil {
		return domain.Reservation{}, wrapDBErr(op, err)
	}

	return out, nil
}

// ActiveForRun lists pending and confirmed reservations of a route on a date.
func (r *ReservationRepo) ActiveForRun(ctx context.Context, routeID int64, date time.Time) ([]domain.Reservation, error) {
	const op = "postgres.ReservationRepo.ActiveForRun"

	out, err := activeForRun(ctx, r.handle(), routeID, domain.CivilDate(date))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func activeForRun(ctx context.Context, db DB, routeID int64, date time.Time) ([]domain.Reservation, error) {
	rows, err := db.Query(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations
		 WHERE route_id = $1 AND travel_date = $2 AND status IN ('pending', 'confirmed')
		 ORDER BY id`,
		routeID, date,
	)
	if err != nil {
		return nil, err
	}

	return collectReservations(rows)
}

// Get returns a reservation by ID.
//
// Returns:
//   - error: repository.ErrNotFound if the reservation does not exist.
func (r *ReservationRepo) Get(ctx context.Context, id int64) (domain.Reservation, error) {
	const op = "postgres.ReservationRepo.Get"

	res, err := scanReservation(r.handle().QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = $1`,
		id,
	))
	if err != nil {
		return domain.Reservation{}, wrapDBErr(op, err)
	}

	return res, nil
}

// ListForUser lists a caller's reservations, most recent first.
func (r *ReservationRepo) ListForUser(ctx context.Context, userID string) ([]domain.Reservation, error) {
	const op = "postgres.ReservationRepo.ListForUser"

	rows, err := r.handle().Query(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations
		 WHERE user_id = $1
		 ORDER BY booked_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := collectReservations(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// SetStatus moves a reservation from one status to another.
//
// Returns:
//   - error: repository.ErrStale if the reservation is no longer in status from.
func (r *ReservationRepo) SetStatus(
	ctx context.Context,
	id int64,
	from, to domain.ReservationStatus,
) (domain.Reservation, error) {
	const op = "postgres.ReservationRepo.SetStatus"

	db := r.handle()

	res, err := scanReservation(db.QueryRow(ctx,
		`UPDATE reservations SET status = $3
		 WHERE id = $1 AND status = $2
		 RETURNING `+reservationColumns,
		id, string(from), string(to),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Reservation{}, fmt.Errorf("%s: %w", op, repository.ErrStale)
		}
		return domain.Reservation{}, wrapDBErr(op, err)
	}

	if from.Occupies() && !to.Occupies() {
		if _, err := db.Exec(ctx,
			`UPDATE runs r SET available_seats = LEAST(r.available_seats + 1, rt.capacity)
			 FROM routes rt
			 WHERE rt.id = r.route_id AND r.route_id = $1 AND r.date = $2`,
			res.RouteID, res.TravelDate,
		); err != nil {
			return domain.Reservation{}, wrapDBErr(op, err)
		}
	}

	return res, nil
}
