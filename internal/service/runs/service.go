package runs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/essodond/Evexticket/internal/domain"
	"github.com/essodond/Evexticket/internal/repository"
	"github.com/essodond/Evexticket/internal/schedule"
)

type Repo interface {
	Dates(ctx context.Context, routeID int64, from, to time.Time) ([]time.Time, error)
	CreateMany(ctx context.Context, routeID int64, dates []time.Time, seats int) (int, error)
	DeleteBefore(ctx context.Context, routeID int64, date time.Time) ([]time.Time, error)
	SetActive(ctx context.Context, routeID int64, date time.Time, active bool, seats int) (domain.Run, error)
	ActiveRouteIDs(ctx context.Context) ([]int64, error)
}

type Routes interface {
	RouteWithStops(ctx context.Context, id int64) (domain.Route, domain.StopList, error)
}

type Companies interface {
	GetCompany(ctx context.Context, id int64) (domain.Company, error)
}

// Invalidator drops the cached reads of a travel date.
type Invalidator interface {
	InvalidateDate(ctx context.Context, date time.Time) error
}

// Deps are the collaborators of the service. Companies and Cache may be
// nil; without Companies only staff may toggle runs.
type Deps struct {
	Runs      Repo
	Routes    Routes
	Companies Companies
	Cache     Invalidator
	Logger    *slog.Logger
}

type Config struct {
	Days        int
	StartOffset int
}

type Service struct {
	runs      Repo
	routes    Routes
	companies Companies
	cache     Invalidator
	logger    *slog.Logger
	cfg       Config
}

func New(deps Deps, cfg Config) *Service {
	if cfg.Days <= 0 {
		cfg.Days = schedule.DefaultDays
	}
	if cfg.StartOffset < 0 {
		cfg.StartOffset = schedule.DefaultStartOffset
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &Service{
		runs:      deps.Runs,
		routes:    deps.Routes,
		companies: deps.Companies,
		cache:     deps.Cache,
		logger:    deps.Logger,
		cfg:       cfg,
	}
}

func (s *Service) Defaults() Config { return s.cfg }

// EnsureRunsForWindow creates the missing runs of an active route for the
// days dates starting startOffset days after today. Existing runs are left
// alone, so repeated calls create nothing.
//
// Returns:
//   - int: the number of runs created.
//   - error: runs.ErrRouteNotFound if the route does not exist.
//   - error: domain.ErrRouteInactive if the route is not active.
func (s *Service) EnsureRunsForWindow(
	ctx context.Context,
	routeID int64,
	days, startOffset int,
	today time.Time,
) (int, error) {
	const op = "service.runs.EnsureRunsForWindow"

	route, _, err := s.routes.RouteWithStops(ctx, routeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("%s: %w", op, ErrRouteNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if !route.Active {
		return 0, fmt.Errorf("%s: %w", op, domain.RouteInactive(routeID))
	}

	w := schedule.NewWindow(today, days, startOffset)

	existing, err := s.runs.Dates(ctx, routeID, w.Start, w.End())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	missing := w.Missing(existing)

	created, err := s.runs.CreateMany(ctx, routeID, missing, route.Capacity)
	if created > 0 {
		s.invalidate(ctx, op, missing)
	}
	if err != nil {
		return created, fmt.Errorf("%s: %w", op, err)
	}

	return created, nil
}

// EnsureDefaultWindow is EnsureRunsForWindow with the configured window.
func (s *Service) EnsureDefaultWindow(ctx context.Context, routeID int64, today time.Time) (int, error) {
	return s.EnsureRunsForWindow(ctx, routeID, s.cfg.Days, s.cfg.StartOffset, today)
}

// PruneRunsBefore deletes the route's runs dated strictly before date.
//
// Returns:
//   - int: the number of runs deleted.
func (s *Service) PruneRunsBefore(ctx context.Context, routeID int64, date time.Time) (int, error) {
	const op = "service.runs.PruneRunsBefore"

	deleted, err := s.runs.DeleteBefore(ctx, routeID, domain.CivilDate(date))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, op, deleted)

	return len(deleted), nil
}

// SetRunActive opens or closes one dated run of a route for booking. A
// date without a run row gets one, so a departure can be cancelled ahead
// of the generated window. Staff and administrators of the operating
// company may do this.
//
// Returns:
//   - domain.Run: the run after the change.
//   - error: runs.ErrRouteNotFound, runs.ErrForbidden.
func (s *Service) SetRunActive(
	ctx context.Context,
	caller domain.Identity,
	routeID int64,
	date time.Time,
	active bool,
) (domain.Run, error) {
	const op = "service.runs.SetRunActive"

	route, _, err := s.routes.RouteWithStops(ctx, routeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Run{}, fmt.Errorf("%s: %w", op, ErrRouteNotFound)
		}
		return domain.Run{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.authorize(ctx, caller, route.CompanyID); err != nil {
		return domain.Run{}, fmt.Errorf("%s: %w", op, err)
	}

	date = domain.CivilDate(date)

	run, err := s.runs.SetActive(ctx, routeID, date, active, route.Capacity)
	if err != nil {
		return domain.Run{}, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, op, []time.Time{date})
	s.logger.Info("run availability changed", "op", op, "route_id", routeID, "date", date.Format(domain.DateLayout), "active", active)

	return run, nil
}

// InvalidateWindow drops cached reads for every date from today through
// the end of the configured window. Route edits call it since they change
// what search returns on all of those dates.
func (s *Service) InvalidateWindow(ctx context.Context, today time.Time) {
	const op = "service.runs.InvalidateWindow"

	span := schedule.NewWindow(today, s.cfg.StartOffset+s.cfg.Days, 0)
	s.invalidate(ctx, op, span.Dates())
}

func (s *Service) authorize(ctx context.Context, caller domain.Identity, companyID int64) error {
	if caller.Staff {
		return nil
	}
	if caller.Anonymous() || s.companies == nil {
		return ErrForbidden
	}

	c, err := s.companies.GetCompany(ctx, companyID)
	if err != nil {
		return err
	}
	if !c.CanManage(caller) {
		return ErrForbidden
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, op string, dates []time.Time) {
	if s.cache == nil {
		return
	}
	for _, d := range dates {
		if err := s.cache.InvalidateDate(ctx, d); err != nil {
			s.logger.Warn("cache invalidation failed", "op", op, "date", d.Format(domain.DateLayout), "error", err)
			return
		}
	}
}

// Summary reports a RefreshAll pass.
type Summary struct {
	Routes  int
	Created int
	Pruned  int
	Failed  int
}

// RefreshAll ensures the window for every active route and optionally
// prunes runs dated before today. Today's runs survive even when the window
// starts later, since same-day departures stay searchable and bookable. A
// failing route is logged and counted; the pass continues with the next one.
func (s *Service) RefreshAll(
	ctx context.Context,
	days, startOffset int,
	today time.Time,
	prune bool,
) (Summary, error) {
	const op = "service.runs.RefreshAll"

	ids, err := s.runs.ActiveRouteIDs(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("%s: %w", op, err)
	}

	today = domain.CivilDate(today)

	var sum Summary
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return sum, fmt.Errorf("%s: %w", op, err)
		}

		sum.Routes++

		created, err := s.EnsureRunsForWindow(ctx, id, days, startOffset, today)
		sum.Created += created
		if err != nil {
			sum.Failed++
			s.logger.Warn("run generation failed", "op", op, "route_id", id, "error", err)
			continue
		}

		if prune {
			deleted, err := s.PruneRunsBefore(ctx, id, today)
			if err != nil {
				sum.Failed++
				s.logger.Warn("run pruning failed", "op", op, "route_id", id, "error", err)
				continue
			}
			sum.Pruned += deleted
		}
	}

	return sum, nil
}
