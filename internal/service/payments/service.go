package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/essodond/Evexticket/internal/domain"
	"github.com/essodond/Evexticket/internal/repository"
	postgresrepo "github.com/essodond/Evexticket/internal/repository/postgres"
	"github.com/essodond/Evexticket/internal/uow"
)

type Payments interface {
	Create(ctx context.Context, p domain.Payment) (domain.Payment, error)
	GetByReservation(ctx context.Context, reservationID int64) (domain.Payment, error)
}

type Reservations interface {
	Get(ctx context.Context, id int64) (domain.Reservation, error)
	SetStatus(ctx context.Context, id int64, from, to domain.ReservationStatus) (domain.Reservation, error)
}

type Transactor interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx postgresrepo.DB, after func(name string, h uow.AfterCommit)) error) error
}

// Changes receives reservations whose status moved, after commit.
type Changes interface {
	Changed(ctx context.Context, r domain.Reservation)
}

type Deps struct {
	Payments     func(db postgresrepo.DB) Payments
	Reservations func(db postgresrepo.DB) Reservations
	UoW          Transactor
	Changes      Changes
	Logger       *slog.Logger
}

type Service struct {
	deps Deps
}

func New(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}
}

// Receipt is a recorded payment and the reservation it settled.
type Receipt struct {
	Payment     domain.Payment     `json:"payment"`
	Reservation domain.Reservation `json:"reservation"`
}

// RecordPayment stores the single payment of a reservation. A completed
// payment confirms a pending reservation in the same transaction. A zero
// amount defaults to the reservation's price.
//
// Parameters:
//   - ctx: request-scoped context.
//   - caller: the reservation's owner or staff.
//   - p: payment to record; ReservationID, Method and Status are required.
//
// Returns:
//   - Receipt: the payment and the reservation after it was applied.
//   - error: payments.ErrPaymentExists if the reservation was already paid.
//   - error: payments.ErrReservationNotPayable if it is cancelled or completed.
//   - error: payments.ErrAmountMismatch if a completed payment is short.
func (s *Service) RecordPayment(ctx context.Context, caller domain.Identity, p domain.Payment) (Receipt, error) {
	const op = "service.payments.RecordPayment"

	if !p.Method.Valid() || !p.Status.Valid() || p.Amount.IsNegative() {
		return Receipt{}, fmt.Errorf("%s: %w", op, ErrInvalidPayment)
	}
	p.TransactionID = strings.TrimSpace(p.TransactionID)

	var out Receipt
	err := s.deps.UoW.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(string, uow.AfterCommit)) error {
		reservations := s.deps.Reservations(tx)

		res, err := reservations.Get(ctx, p.ReservationID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrReservationNotFound
			}
			return err
		}

		if !caller.Staff && (caller.Anonymous() || caller.Subject != res.UserID) {
			return ErrForbidden
		}

		if !res.Status.Occupies() {
			return ErrReservationNotPayable
		}

		if p.Amount.IsZero() {
			p.Amount = res.TotalPrice
		}
		if p.Status == domain.PaymentCompleted && p.Amount.LessThan(res.TotalPrice) {
			return fmt.Errorf("%w: %s < %s", ErrAmountMismatch, p.Amount, res.TotalPrice)
		}

		paid, err := s.deps.Payments(tx).Create(ctx, p)
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrPaymentExists
			}
			if errors.Is(err, repository.ErrNotFound) {
				return ErrReservationNotFound
			}
			return err
		}

		if p.Status == domain.PaymentCompleted && res.Status == domain.StatusPending {
			res, err = reservations.SetStatus(ctx, res.ID, domain.StatusPending, domain.StatusConfirmed)
			if err != nil {
				if errors.Is(err, repository.ErrStale) {
					return ErrConcurrentUpdate
				}
				return err
			}

			confirmed := res
			after("reservation-confirmed", func(ctx context.Context) error {
				if s.deps.Changes != nil {
					s.deps.Changes.Changed(ctx, confirmed)
				}
				return nil
			})
		}

		out = Receipt{Payment: paid, Reservation: res}
		return nil
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("%s: %w", op, err)
	}

	s.deps.Logger.Info("payment recorded",
		"reservation_id", out.Reservation.ID,
		"status", out.Payment.Status,
		"amount", out.Payment.Amount.StringFixed(2),
	)

	return out, nil
}

// GetPayment returns the payment of a reservation visible to the caller.
func (s *Service) GetPayment(ctx context.Context, caller domain.Identity, reservationID int64) (domain.Payment, error) {
	const op = "service.payments.GetPayment"

	res, err := s.deps.Reservations(nil).Get(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Payment{}, fmt.Errorf("%s: %w", op, ErrReservationNotFound)
		}
		return domain.Payment{}, fmt.Errorf("%s: %w", op, err)
	}

	if !caller.Staff && (caller.Anonymous() || caller.Subject != res.UserID) {
		return domain.Payment{}, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	p, err := s.deps.Payments(nil).GetByReservation(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Payment{}, fmt.Errorf("%s: %w", op, ErrPaymentNotFound)
		}
		return domain.Payment{}, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}
