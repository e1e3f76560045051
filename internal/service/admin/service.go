package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/essodond/Evexticket/internal/clock"
	"github.com/essodond/Evexticket/internal/domain"
	"github.com/essodond/Evexticket/internal/repository"
	postgresrepo "github.com/essodond/Evexticket/internal/repository/postgres"
	"github.com/essodond/Evexticket/internal/uow"
)

type Catalog interface {
	CreateCompany(ctx context.Context, c domain.Company) (int64, error)
	GetCompany(ctx context.Context, id int64) (domain.Company, error)
	AddCompanyAdmin(ctx context.Context, companyID int64, userID string) error
	CreateCity(ctx context.Context, c domain.City) (int64, error)
	ListCities(ctx context.Context, activeOnly bool) ([]domain.City, error)
	CreateRoute(ctx context.Context, route domain.Route, stops []domain.Stop) (int64, error)
	ReplaceStops(ctx context.Context, routeID int64, stops []domain.Stop) error
	GetRoute(ctx context.Context, id int64) (domain.Route, error)
	ListStops(ctx context.Context, routeID int64) ([]domain.Stop, error)
	ListRoutes(ctx context.Context, companyID int64, activeOnly bool) ([]domain.Route, error)
	SetRouteActive(ctx context.Context, id int64, active bool) error
}

// CatalogFor binds the catalog to a transaction, or to the pool when db
// is nil.
type CatalogFor func(db postgresrepo.DB) Catalog

type Transactor interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx postgresrepo.DB, after func(name string, h uow.AfterCommit)) error) error
}

// Windows materializes the default run window of a new route and drops
// cached reads of the dates a route edit affects.
type Windows interface {
	EnsureDefaultWindow(ctx context.Context, routeID int64, today time.Time) (int, error)
	InvalidateWindow(ctx context.Context, today time.Time)
}

type Notifier interface {
	PublishRouteChanged(ctx context.Context, routeID int64) error
}

type LocalCache interface {
	Invalidate(id int64)
}

// Deps are the collaborators of the service. Windows, Notifier and Local
// may be nil.
type Deps struct {
	Catalog  CatalogFor
	UoW      Transactor
	Windows  Windows
	Notifier Notifier
	Local    LocalCache
	Clock    clock.Clock
	Logger   *slog.Logger
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

// RouteView is a route with its stops in sequence order.
type RouteView struct {
	Route domain.Route  `json:"route"`
	Stops []domain.Stop `json:"stops"`
}

// CreateCompany registers a company. Only staff may create companies; the
// listed administrators are kept as one set and the first also fills the
// legacy single-admin field.
//
// Returns:
//   - int64: the company ID.
//   - error: admin.ErrCompanyConflict if the name is taken.
func (s *Service) CreateCompany(ctx context.Context, caller domain.Identity, c domain.Company) (int64, error) {
	const op = "service.admin.CreateCompany"

	if !caller.Staff {
		return 0, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return 0, fmt.Errorf("%s: %w: company name is required", op, ErrInvalidInput)
	}

	admins := c.Admins
	c.Admins = nil
	if c.LegacyAdminID != "" {
		admins = append([]string{c.LegacyAdminID}, admins...)
		c.LegacyAdminID = ""
	}
	for _, a := range admins {
		c.AddAdmin(strings.TrimSpace(a))
	}

	id, err := s.deps.Catalog(nil).CreateCompany(ctx, c)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return 0, fmt.Errorf("%s: %w", op, ErrCompanyConflict)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Service) GetCompany(ctx context.Context, id int64) (domain.Company, error) {
	const op = "service.admin.GetCompany"

	c, err := s.company(ctx, id)
	if err != nil {
		return domain.Company{}, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

// AddCompanyAdmin grants userID administration of a company. Staff and the
// company's current administrators may grant it.
func (s *Service) AddCompanyAdmin(ctx context.Context, caller domain.Identity, companyID int64, userID string) error {
	const op = "service.admin.AddCompanyAdmin"

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%s: %w: user id is required", op, ErrInvalidInput)
	}

	if err := s.manage(ctx, caller, companyID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.deps.Catalog(nil).AddCompanyAdmin(ctx, companyID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrCompanyNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Service) CreateCity(ctx context.Context, caller domain.Identity, c domain.City) (int64, error) {
	const op = "service.admin.CreateCity"

	if !caller.Staff {
		return 0, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return 0, fmt.Errorf("%s: %w: city name is required", op, ErrInvalidInput)
	}

	id, err := s.deps.Catalog(nil).CreateCity(ctx, c)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return 0, fmt.Errorf("%s: %w", op, ErrCityConflict)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Service) ListCities(ctx context.Context) ([]domain.City, error) {
	const op = "service.admin.ListCities"

	cities, err := s.deps.Catalog(nil).ListCities(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return cities, nil
}

// CreateRoute publishes a route with its stops. Once committed, the
// default run window of the route is generated; a failure there is logged
// and left to the periodic refresh.
//
// Returns:
//   - int64: the route ID.
//   - error: domain.ErrInvalidRoute, domain.ErrDuplicateSequence.
//   - error: admin.ErrUnknownReference if the company or a city is missing.
//   - error: admin.ErrForbidden if the caller cannot manage the company.
func (s *Service) CreateRoute(ctx context.Context, caller domain.Identity, route domain.Route, stops []domain.Stop) (int64, error) {
	const op = "service.admin.CreateRoute"

	if err := s.manage(ctx, caller, route.CompanyID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if route.BusType == "" {
		route.BusType = domain.BusStandard
	}
	if err := route.Validate(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if err := domain.ValidateStops(stops); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var id int64
	err := s.deps.UoW.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(string, uow.AfterCommit)) error {
		var err error
		id, err = s.deps.Catalog(tx).CreateRoute(ctx, route, stops)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUnknownReference
			}
			if errors.Is(err, repository.ErrConflict) {
				return domain.ErrDuplicateSequence
			}
			return err
		}

		if route.Active && s.deps.Windows != nil {
			after("ensure-runs", func(ctx context.Context) error {
				_, err := s.deps.Windows.EnsureDefaultWindow(ctx, id, s.deps.Clock.Today())
				return err
			})
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// ReplaceStops swaps the whole stop list of a route in one transaction.
// Other instances learn about it through the route-changed channel.
func (s *Service) ReplaceStops(ctx context.Context, caller domain.Identity, routeID int64, stops []domain.Stop) error {
	const op = "service.admin.ReplaceStops"

	route, err := s.route(ctx, routeID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.manage(ctx, caller, route.CompanyID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := domain.ValidateStops(stops); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = s.deps.UoW.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(string, uow.AfterCommit)) error {
		if err := s.deps.Catalog(tx).ReplaceStops(ctx, routeID, stops); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUnknownReference
			}
			if errors.Is(err, repository.ErrConflict) {
				return domain.ErrDuplicateSequence
			}
			return err
		}

		after("route-changed", s.routeChanged(routeID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// GetRoute returns a route with its ordered stops.
func (s *Service) GetRoute(ctx context.Context, id int64) (RouteView, error) {
	const op = "service.admin.GetRoute"

	route, err := s.route(ctx, id)
	if err != nil {
		return RouteView{}, fmt.Errorf("%s: %w", op, err)
	}

	stops, err := s.deps.Catalog(nil).ListStops(ctx, id)
	if err != nil {
		return RouteView{}, fmt.Errorf("%s: %w", op, err)
	}

	list, err := domain.NewStopList(stops)
	if err != nil {
		return RouteView{}, fmt.Errorf("%s: %w", op, err)
	}

	return RouteView{Route: route, Stops: list.Stops()}, nil
}

// ListRoutes lists a company's routes, or every route when companyID is 0.
func (s *Service) ListRoutes(ctx context.Context, companyID int64, activeOnly bool) ([]domain.Route, error) {
	const op = "service.admin.ListRoutes"

	routes, err := s.deps.Catalog(nil).ListRoutes(ctx, companyID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return routes, nil
}

// SetRouteActive publishes or withdraws a route. Existing runs and
// reservations are kept; an inactive route rejects new bookings.
func (s *Service) SetRouteActive(ctx context.Context, caller domain.Identity, id int64, active bool) error {
	const op = "service.admin.SetRouteActive"

	route, err := s.route(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.manage(ctx, caller, route.CompanyID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.deps.Catalog(nil).SetRouteActive(ctx, id, active); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrRouteNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.routeChanged(id)(ctx); err != nil {
		s.deps.Logger.Warn("route change not broadcast", "op", op, "route_id", id, "error", err)
	}

	if active && s.deps.Windows != nil {
		if _, err := s.deps.Windows.EnsureDefaultWindow(ctx, id, s.deps.Clock.Today()); err != nil {
			s.deps.Logger.Warn("run window not generated", "op", op, "route_id", id, "error", err)
		}
	}

	return nil
}

func (s *Service) routeChanged(routeID int64) uow.AfterCommit {
	return func(ctx context.Context) error {
		if s.deps.Local != nil {
			s.deps.Local.Invalidate(routeID)
		}
		if s.deps.Windows != nil {
			s.deps.Windows.InvalidateWindow(ctx, s.deps.Clock.Today())
		}
		if s.deps.Notifier == nil {
			return nil
		}
		return s.deps.Notifier.PublishRouteChanged(ctx, routeID)
	}
}

func (s *Service) route(ctx context.Context, id int64) (domain.Route, error) {
	route, err := s.deps.Catalog(nil).GetRoute(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Route{}, ErrRouteNotFound
		}
		return domain.Route{}, err
	}
	return route, nil
}

func (s *Service) company(ctx context.Context, id int64) (domain.Company, error) {
	c, err := s.deps.Catalog(nil).GetCompany(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Company{}, ErrCompanyNotFound
		}
		return domain.Company{}, err
	}
	return c, nil
}

func (s *Service) manage(ctx context.Context, caller domain.Identity, companyID int64) error {
	if caller.Staff {
		return nil
	}
	if caller.Anonymous() {
		return ErrForbidden
	}

	c, err := s.company(ctx, companyID)
	if err != nil {
		return err
	}
	if !c.CanManage(caller) {
		return ErrForbidden
	}
	return nil
}
