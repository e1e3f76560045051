package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/essodond/Evexticket/internal/domain"
)

type PaymentRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *PaymentRepo) With(db DB) *PaymentRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *PaymentRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create records the payment of a reservation.
//
// Returns:
//   - error: repository.ErrConflict if the reservation already has a payment.
//   - error: repository.ErrNotFound if the reservation does not exist.
func (r *PaymentRepo) Create(ctx context.Context, p domain.Payment) (domain.Payment, error) {
	const op = "postgres.PaymentRepo.Create"

	out := p
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO payments(reservation_id, amount, method, status, transaction_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, paid_at`,
		p.ReservationID, p.Amount, string(p.Method), string(p.Status), p.TransactionID,
	).Scan(&out.ID, &out.PaidAt); err != nil {
		return domain.Payment{}, wrapDBErr(op, err)
	}

	return out, nil
}

// GetByReservation returns the payment of a reservation.
//
// Returns:
//   - error: repository.ErrNotFound if none was recorded.
func (r *PaymentRepo) GetByReservation(ctx context.Context, reservationID int64) (domain.Payment, error) {
	const op = "postgres.PaymentRepo.GetByReservation"

	var p domain.Payment
	var method, status string

	if err := r.handle().QueryRow(ctx,
		`SELECT id, reservation_id, amount, method, status, transaction_id, paid_at
		 FROM payments WHERE reservation_id = $1`,
		reservationID,
	).Scan(&p.ID, &p.ReservationID, &p.Amount, &method, &status, &p.TransactionID, &p.PaidAt); err != nil {
		return domain.Payment{}, wrapDBErr(op, err)
	}

	p.Method = domain.PaymentMethod(method)
	p.Status = domain.PaymentStatus(status)

	return p, nil
}
