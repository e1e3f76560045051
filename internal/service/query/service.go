package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/essodond/Evexticket/internal/domain"
	"github.com/essodond/Evexticket/internal/overlap"
	"github.com/essodond/Evexticket/internal/repository"
	postgresrepo "github.com/essodond/Evexticket/internal/repository/postgres"
	redisrepo "github.com/essodond/Evexticket/internal/repository/redis"
	"github.com/essodond/Evexticket/internal/search"
	"github.com/essodond/Evexticket/internal/segment"
)

type Snapshots interface {
	RunsOn(ctx context.Context, date time.Time) ([]postgresrepo.RunWithRoute, error)
	StopsFor(ctx context.Context, routeIDs []int64) (map[int64][]domain.Stop, error)
	ActiveOn(ctx context.Context, date time.Time) (map[int64][]domain.Reservation, error)
}

type Routes interface {
	RouteWithStops(ctx context.Context, id int64) (domain.Route, domain.StopList, error)
}

type Runs interface {
	Get(ctx context.Context, routeID int64, date time.Time) (domain.Run, error)
}

type Reservations interface {
	ActiveForRun(ctx context.Context, routeID int64, date time.Time) ([]domain.Reservation, error)
}

type Config struct {
	SearchTTL       time.Duration
	AvailabilityTTL time.Duration
	MaxPassengers   int
}

type Service struct {
	snapshots    Snapshots
	routes       Routes
	runs         Runs
	reservations Reservations
	cache        *redisrepo.Cache
	logger       *slog.Logger
	cfg          Config
}

// New wires the read side. cache may be nil, in which case every call
// reads the store.
func New(
	snapshots Snapshots,
	routes Routes,
	runs Runs,
	reservations Reservations,
	cache *redisrepo.Cache,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.SearchTTL <= 0 {
		cfg.SearchTTL = 30 * time.Second
	}

	if cfg.AvailabilityTTL <= 0 {
		cfg.AvailabilityTTL = 15 * time.Second
	}

	if cfg.MaxPassengers <= 0 {
		cfg.MaxPassengers = 20
	}

	return &Service{
		snapshots:    snapshots,
		routes:       routes,
		runs:         runs,
		reservations: reservations,
		cache:        cache,
		logger:       logger,
		cfg:          cfg,
	}
}

// SearchRuns lists the runs of date that can seat passengers between the
// two free-text endpoints, in run order.
//
// Parameters:
//   - ctx: request-scoped context.
//   - departure, arrival: city names, fragments or identifiers.
//   - date: exact travel date.
//   - passengers: seats needed, at least 1.
//
// Returns:
//   - []search.Result: matching runs with price and availability.
//   - error: query.ErrInvalidPassenger if passengers is out of range.
func (s *Service) SearchRuns(
	ctx context.Context,
	departure, arrival string,
	date time.Time,
	passengers int,
) ([]search.Result, error) {
	const op = "service.query.SearchRuns"

	if passengers < 1 || passengers > s.cfg.MaxPassengers {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidPassenger)
	}

	date = domain.CivilDate(date)

	load := func(ctx context.Context) ([]search.Result, error) {
		snaps, err := s.Snapshots(ctx, date)
		if err != nil {
			return nil, err
		}
		return search.Aggregate(snaps, departure, arrival, passengers), nil
	}

	if s.cache == nil {
		out, err := load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return out, nil
	}

	ver, err := s.cache.DateVersion(ctx, date)
	if err != nil {
		s.logger.Warn("cache version unavailable", "op", op, "error", err)
		out, err := load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return out, nil
	}

	key := redisrepo.KeySearch(date, ver, segment.Normalize(departure), segment.Normalize(arrival), passengers)

	out, err := redisrepo.GetOrSetJSON(ctx, s.cache, key, s.cfg.SearchTTL, load)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Snapshots loads every bookable run of date with its route, stops and
// active reservations.
func (s *Service) Snapshots(ctx context.Context, date time.Time) ([]search.Snapshot, error) {
	const op = "service.query.Snapshots"

	runs, err := s.snapshots.RunsOn(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(runs) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(runs))
	seen := make(map[int64]bool, len(runs))
	for _, r := range runs {
		if !seen[r.Route.ID] {
			seen[r.Route.ID] = true
			ids = append(ids, r.Route.ID)
		}
	}

	stops, err := s.snapshots.StopsFor(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	active, err := s.snapshots.ActiveOn(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]search.Snapshot, 0, len(runs))
	for _, r := range runs {
		list, err := domain.NewStopList(stops[r.Route.ID])
		if err != nil {
			s.logger.Warn("skipping route with inconsistent stops", "op", op, "route_id", r.Route.ID, "error", err)
			continue
		}

		out = append(out, search.Snapshot{
			Run:          r.Run,
			Route:        r.Route,
			Stops:        list,
			Reservations: active[r.Route.ID],
		})
	}

	return out, nil
}

// ResolveSegment maps two endpoint texts to stops of a route.
//
// Returns:
//   - segment.Segment: both stops nil for a whole-route match.
//   - error: domain.ErrStopNotFound, domain.ErrInvalidSegment.
//   - error: query.ErrRouteNotFound if the route does not exist.
func (s *Service) ResolveSegment(ctx context.Context, routeID int64, originText, destText string) (segment.Segment, error) {
	const op = "service.query.ResolveSegment"

	route, stops, err := s.route(ctx, routeID)
	if err != nil {
		return segment.Segment{}, fmt.Errorf("%s: %w", op, err)
	}

	seg, err := segment.Resolve(route, stops, originText, destText)
	if err != nil {
		return segment.Segment{}, fmt.Errorf("%s: %w", op, err)
	}

	return seg, nil
}

// Availability computes the occupied seats of a run for a segment, or for
// the whole route when both stop IDs are nil. A date without a run row is
// treated as an implicit run with no reservations beyond those stored.
//
// Returns:
//   - error: domain.ErrInvalidSegment if the stops are incomplete, foreign or misordered.
//   - error: domain.ErrRunInactive if the run exists and is disabled.
func (s *Service) Availability(
	ctx context.Context,
	routeID int64,
	date time.Time,
	originID, destinationID *int64,
) (overlap.Availability, error) {
	const op = "service.query.Availability"

	date = domain.CivilDate(date)

	route, stops, err := s.route(ctx, routeID)
	if err != nil {
		return overlap.Availability{}, fmt.Errorf("%s: %w", op, err)
	}

	seg, err := segment.FromStopIDs(stops, originID, destinationID)
	if err != nil {
		return overlap.Availability{}, fmt.Errorf("%s: %w", op, err)
	}

	run, err := s.runs.Get(ctx, routeID, date)
	switch {
	case err == nil:
		if !run.Active {
			return overlap.Availability{}, fmt.Errorf("%s: %w", op, domain.RunInactive(routeID, date.Format(domain.DateLayout)))
		}
	case errors.Is(err, repository.ErrNotFound):
	default:
		return overlap.Availability{}, fmt.Errorf("%s: %w", op, err)
	}

	load := func(ctx context.Context) (overlap.Availability, error) {
		active, err := s.reservations.ActiveForRun(ctx, routeID, date)
		if err != nil {
			return overlap.Availability{}, err
		}
		return overlap.Compute(route, stops, active, overlap.ForSegment(seg)), nil
	}

	if s.cache == nil {
		a, err := load(ctx)
		if err != nil {
			return overlap.Availability{}, fmt.Errorf("%s: %w", op, err)
		}
		return a, nil
	}

	ver, err := s.cache.DateVersion(ctx, date)
	if err != nil {
		s.logger.Warn("cache version unavailable", "op", op, "error", err)
		a, err := load(ctx)
		if err != nil {
			return overlap.Availability{}, fmt.Errorf("%s: %w", op, err)
		}
		return a, nil
	}

	var o, d int64
	if !seg.Whole() {
		o, d = seg.Origin.ID, seg.Destination.ID
	}

	a, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyAvailability(routeID, date, ver, o, d), s.cfg.AvailabilityTTL, load)
	if err != nil {
		return overlap.Availability{}, fmt.Errorf("%s: %w", op, err)
	}

	return a, nil
}

// SegmentPrice is the fare between two stops of a route. Unknown stops,
// a missing stop or a misordered pair price at the route's flat fare.
func (s *Service) SegmentPrice(ctx context.Context, routeID int64, originID, destinationID *int64) (decimal.Decimal, error) {
	const op = "service.query.SegmentPrice"

	route, stops, err := s.route(ctx, routeID)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s: %w", op, err)
	}

	return domain.SegmentPrice(route, stops, lookup(stops, originID), lookup(stops, destinationID)), nil
}

func lookup(stops domain.StopList, id *int64) *domain.Stop {
	if id == nil {
		return nil
	}
	if s, ok := stops.ByID(*id); ok {
		return &s
	}
	return nil
}

func (s *Service) route(ctx context.Context, id int64) (domain.Route, domain.StopList, error) {
	route, stops, err := s.routes.RouteWithStops(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Route{}, domain.StopList{}, ErrRouteNotFound
		}
		return domain.Route{}, domain.StopList{}, err
	}
	return route, stops, nil
}
