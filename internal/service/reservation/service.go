package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/essodond/Evexticket/internal/amqp"
	"github.com/essodond/Evexticket/internal/clock"
	"github.com/essodond/Evexticket/internal/domain"
	"github.com/essodond/Evexticket/internal/overlap"
	"github.com/essodond/Evexticket/internal/repository"
	postgresrepo "github.com/essodond/Evexticket/internal/repository/postgres"
	redisrepo "github.com/essodond/Evexticket/internal/repository/redis"
	"github.com/essodond/Evexticket/internal/segment"
)

type Repo interface {
	Book(ctx context.Context, res domain.Reservation, seats int, decide postgresrepo.Decide) (domain.Reservation, error)
	Get(ctx context.Context, id int64) (domain.Reservation, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Reservation, error)
	SetStatus(ctx context.Context, id int64, from, to domain.ReservationStatus) (domain.Reservation, error)
}

type Routes interface {
	RouteWithStops(ctx context.Context, id int64) (domain.Route, domain.StopList, error)
}

type Companies interface {
	GetCompany(ctx context.Context, id int64) (domain.Company, error)
}

type Events interface {
	PublishReservation(ctx context.Context, kind string, r domain.Reservation) error
}

type Invalidator interface {
	InvalidateDate(ctx context.Context, date time.Time) error
}

type Limiter interface {
	Allow(ctx context.Context, id string) (redisrepo.Decision, error)
}

// Deps are the collaborators of the service. Events, Cache and Limiter
// may be nil.
type Deps struct {
	Reservations Repo
	Routes       Routes
	Companies    Companies
	Events       Events
	Cache        Invalidator
	Limiter      Limiter
	Clock        clock.Clock
	Logger       *slog.Logger
}

type Service struct {
	Deps
}

func New(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{Deps: deps}
}

// Draft is a reservation request as handed over by the transport layer.
type Draft struct {
	RouteID           int64
	TravelDate        time.Time
	SeatNumber        string
	OriginStopID      *int64
	DestinationStopID *int64
	PassengerName     string
	PassengerEmail    string
	PassengerPhone    string
	PaymentMethod     domain.PaymentMethod
	Notes             string
}

// Create books a seat of a run for the caller. The seat check against the
// run's active reservations and the insert happen under one lock of the
// run, so two concurrent requests cannot both take the same seat on
// overlapping segments.
//
// Parameters:
//   - ctx: request-scoped context.
//   - caller: the identity recorded on the reservation.
//   - d: the reservation request.
//   - rlKey: rate-limit bucket of the request, empty to skip limiting.
//
// Returns:
//   - domain.Reservation: the pending reservation.
//   - error: domain.ErrRouteInactive, domain.ErrRunInactive, domain.ErrInvalidSegment.
//   - error: domain.ErrSeatConflict if the seat is held on an overlapping segment.
//   - error: reservation.ErrNoSeatsAvailable if the segment is full.
//   - error: reservation.ErrRateLimited if rlKey exceeded its budget.
func (s *Service) Create(ctx context.Context, caller domain.Identity, d Draft, rlKey string) (domain.Reservation, error) {
	const op = "service.reservation.Create"

	if caller.Anonymous() {
		return domain.Reservation{}, fmt.Errorf("%s: %w", op, ErrIdentityRequired)
	}

	if err := s.allow(ctx, rlKey); err != nil {
		return domain.Reservation{}, fmt.Errorf("%s: %w", op, err)
	}

	d.SeatNumber = strings.TrimSpace(d.SeatNumber)
	d.PassengerName = strings.TrimSpace(d.PassengerName)
	if d.SeatNumber == "" || d.PassengerName == "" {
		return domain.Reservation{}, fmt.Errorf("%s: %w: seat number and passenger name are required", op, ErrInvalidReservation)
	}
	if !d.PaymentMethod.Valid() {
		return domain.Reservation{}, fmt.Errorf("%s: %w: %q", op, ErrInvalidPaymentMethod, d.PaymentMethod)
	}

	date := domain.CivilDate(d.TravelDate)
	if date.Before(s.Clock.Today()) {
		return domain.Reservation{}, fmt.Errorf("%s: %w", op, ErrPastDate)
	}

	route, stops, err := s.Routes.RouteWithStops(ctx, d.RouteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Reservation{}, fmt.Errorf("%s: %w", op, ErrRouteNotFound)
		}
		return domain.Reservation{}, fmt.Errorf("%s: %w", op, err)
	}

	if !route.Active {
		return domain.Reservation{}, fmt.Errorf("%s: %w", op, domain.RouteInactive(route.ID))
	}

	seg, err := segment.FromStopIDs(stops, d.OriginStopID, d.DestinationStopID)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("%s: %w", op, err)
	}

	query := overlap.ForSegment(seg)

	res := domain.Reservation{
		RouteID:        route.ID,
		TravelDate:     date,
		UserID:         caller.Subject,
		PassengerName:  d.PassengerName,
		PassengerEmail: strings.TrimSpace(d.PassengerEmail),
		PassengerPhone: strings.TrimSpace(d.PassengerPhone),
		SeatNumber:     d.SeatNumber,
		Status:         domain.StatusPending,
		PaymentMethod:  d.PaymentMethod,
		TotalPrice:     domain.SegmentPrice(route, stops, seg.Origin, seg.Destination),
		Notes:          d.Notes,
	}
	if !seg.Whole() {
		res.OriginStopID = &seg.Origin.ID
		res.DestinationStopID = &seg.Destination.ID
	}

	created, err := s.Reservations.Book(ctx, res, route.Capacity, func(run domain.Run, active []domain.Reservation) error {
		if !run.Active {
			return domain.RunInactive(route.ID, date.Format(domain.DateLayout))
		}
		if err := overlap.CheckSeat(stops, active, res.SeatNumber, query); err != nil {
			return err
		}
		if overlap.Compute(route, stops, active, query).AvailableSeats == 0 {
			return ErrNoSeatsAvailable
		}
		return nil
	})
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("%s: %w", op, err)
	}

	s.changed(ctx, amqp.EventReservationCreated, created)

	return created, nil
}

// Get returns a reservation visible to the caller: its owner, staff, or an
// administrator of the operating company.
//
// Returns:
//   - error: reservation.ErrReservationNotFound, reservation.ErrForbidden.
func (s *Service) Get(ctx context.Context, caller domain.Identity, id int64) (domain.Reservation, error) {
	const op = "service.reservation.Get"

	res, err := s.load(ctx, id)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.authorize(ctx, caller, res, true); err != nil {
		return domain.Reservation{}, fmt.Errorf("%s: %w", op, err)
	}

	return res, nil
}

// ListMine lists the caller's own reservations.
func (s *Service) ListMine(ctx context.Context, caller domain.Identity) ([]domain.Reservation, error) {
	const op = "service.reservation.ListMine"

	if caller.Anonymous() {
		return nil, fmt.Errorf("%s: %w", op, ErrIdentityRequired)
	}

	list, err := s.Reservations.ListForUser(ctx, caller.Subject)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return list, nil
}

// Confirm moves a pending reservation to confirmed. Only staff and company
// administrators may confirm by hand; payments confirm through Paid.
func (s *Service) Confirm(ctx context.Context, caller domain.Identity, id int64) (domain.Reservation, error) {
	return s.transition(ctx, caller, id, domain.StatusConfirmed, false)
}

// Cancel frees the reservation's seat. Owners may cancel their own.
func (s *Service) Cancel(ctx context.Context, caller domain.Identity, id int64) (domain.Reservation, error) {
	return s.transition(ctx, caller, id, domain.StatusCancelled, true)
}

// Complete marks a confirmed reservation as travelled.
func (s *Service) Complete(ctx context.Context, caller domain.Identity, id int64) (domain.Reservation, error) {
	return s.transition(ctx, caller, id, domain.StatusCompleted, false)
}

func (s *Service) transition(
	ctx context.Context,
	caller domain.Identity,
	id int64,
	to domain.ReservationStatus,
	ownerMay bool,
) (domain.Reservation, error) {
	const op = "service.reservation.transition"

	res, err := s.load(ctx, id)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.authorize(ctx, caller, res, ownerMay); err != nil {
		return domain.Reservation{}, fmt.Errorf("%s: %w", op, err)
	}

	if !domain.CanTransition(res.Status, to) {
		return domain.Reservation{}, fmt.Errorf("%s: %w", op, TransitionError{From: string(res.Status), To: string(to)})
	}

	updated, err := s.Reservations.SetStatus(ctx, id, res.Status, to)
	if err != nil {
		if errors.Is(err, repository.ErrStale) {
			return domain.Reservation{}, fmt.Errorf("%s: %w", op, ErrConcurrentUpdate)
		}
		return domain.Reservation{}, fmt.Errorf("%s: %w", op, err)
	}

	s.changed(ctx, eventFor(to), updated)

	return updated, nil
}

func eventFor(status domain.ReservationStatus) string {
	switch status {
	case domain.StatusConfirmed:
		return amqp.EventReservationConfirmed
	case domain.StatusCancelled:
		return amqp.EventReservationCancelled
	case domain.StatusCompleted:
		return amqp.EventReservationCompleted
	}
	return amqp.EventReservationCreated
}

// Changed runs the post-commit side effects of a reservation change:
// cache invalidation and the lifecycle event. Failures are logged only.
func (s *Service) Changed(ctx context.Context, r domain.Reservation) {
	s.changed(ctx, eventFor(r.Status), r)
}

func (s *Service) changed(ctx context.Context, kind string, r domain.Reservation) {
	if s.Cache != nil {
		if err := s.Cache.InvalidateDate(ctx, r.TravelDate); err != nil {
			s.Logger.Warn("cache invalidation failed", "reservation_id", r.ID, "error", err)
		}
	}

	if s.Events != nil {
		if err := s.Events.PublishReservation(ctx, kind, r); err != nil {
			s.Logger.Warn("reservation event not published", "event", kind, "reservation_id", r.ID, "error", err)
		}
	}
}

func (s *Service) load(ctx context.Context, id int64) (domain.Reservation, error) {
	res, err := s.Reservations.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Reservation{}, ErrReservationNotFound
		}
		return domain.Reservation{}, err
	}
	return res, nil
}

func (s *Service) authorize(ctx context.Context, caller domain.Identity, res domain.Reservation, ownerMay bool) error {
	if caller.Anonymous() {
		return ErrIdentityRequired
	}
	if caller.Staff {
		return nil
	}
	if ownerMay && res.UserID == caller.Subject {
		return nil
	}

	route, _, err := s.Routes.RouteWithStops(ctx, res.RouteID)
	if err != nil {
		return err
	}

	company, err := s.Companies.GetCompany(ctx, route.CompanyID)
	if err != nil {
		return err
	}

	if company.CanManage(caller) {
		return nil
	}

	return ErrForbidden
}

func (s *Service) allow(ctx context.Context, rlKey string) error {
	if s.Limiter == nil || rlKey == "" {
		return nil
	}

	d, err := s.Limiter.Allow(ctx, rlKey)
	if err != nil {
		// Redis trouble must not block bookings.
		s.Logger.Warn("rate limiter unavailable", "error", err)
		return nil
	}
	if !d.Allowed {
		return RateLimitedError{RetryAfter: d.RetryAfter}
	}

	return nil
}
