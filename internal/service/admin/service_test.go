package admin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/essodond/Evexticket/internal/clock"
	"github.com/essodond/Evexticket/internal/domain"
	"github.com/essodond/Evexticket/internal/repository"
	postgresrepo "github.com/essodond/Evexticket/internal/repository/postgres"
	"github.com/essodond/Evexticket/internal/uow"
)

type memCatalog struct {
	companies map[int64]domain.Company
	cities    map[int64]domain.City
	routes    map[int64]domain.Route
	stops     map[int64][]domain.Stop
	nextID    int64
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		companies: map[int64]domain.Company{},
		cities:    map[int64]domain.City{1: {ID: 1, Name: "Lomé", Active: true}, 2: {ID: 2, Name: "Kara", Active: true}},
		routes:    map[int64]domain.Route{},
		stops:     map[int64][]domain.Stop{},
		nextID:    100,
	}
}

func (m *memCatalog) id() int64 { m.nextID++; return m.nextID }

func (m *memCatalog) CreateCompany(_ context.Context, c domain.Company) (int64, error) {
	for _, existing := range m.companies {
		if existing.Name == c.Name {
			return 0, repository.ErrConflict
		}
	}
	c.ID = m.id()
	m.companies[c.ID] = c
	return c.ID, nil
}

func (m *memCatalog) GetCompany(_ context.Context, id int64) (domain.Company, error) {
	c, ok := m.companies[id]
	if !ok {
		return domain.Company{}, repository.ErrNotFound
	}
	return c, nil
}

func (m *memCatalog) AddCompanyAdmin(_ context.Context, companyID int64, userID string) error {
	c, ok := m.companies[companyID]
	if !ok {
		return repository.ErrNotFound
	}
	c.AddAdmin(userID)
	m.companies[companyID] = c
	return nil
}

func (m *memCatalog) CreateCity(_ context.Context, c domain.City) (int64, error) {
	for _, existing := range m.cities {
		if existing.Name == c.Name {
			return 0, repository.ErrConflict
		}
	}
	c.ID = m.id()
	m.cities[c.ID] = c
	return c.ID, nil
}

func (m *memCatalog) ListCities(_ context.Context, activeOnly bool) ([]domain.City, error) {
	var out []domain.City
	for _, c := range m.cities {
		if c.Active || !activeOnly {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCatalog) CreateRoute(_ context.Context, route domain.Route, stops []domain.Stop) (int64, error) {
	if _, ok := m.companies[route.CompanyID]; !ok {
		return 0, repository.ErrNotFound
	}
	route.ID = m.id()
	m.routes[route.ID] = route
	m.stops[route.ID] = stops
	return route.ID, nil
}

func (m *memCatalog) ReplaceStops(_ context.Context, routeID int64, stops []domain.Stop) error {
	m.stops[routeID] = stops
	return nil
}

func (m *memCatalog) GetRoute(_ context.Context, id int64) (domain.Route, error) {
	r, ok := m.routes[id]
	if !ok {
		return domain.Route{}, repository.ErrNotFound
	}
	return r, nil
}

func (m *memCatalog) ListStops(_ context.Context, routeID int64) ([]domain.Stop, error) {
	return m.stops[routeID], nil
}

func (m *memCatalog) ListRoutes(_ context.Context, companyID int64, activeOnly bool) ([]domain.Route, error) {
	var out []domain.Route
	for _, r := range m.routes {
		if (companyID == 0 || r.CompanyID == companyID) && (r.Active || !activeOnly) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memCatalog) SetRouteActive(_ context.Context, id int64, active bool) error {
	r, ok := m.routes[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.Active = active
	m.routes[id] = r
	return nil
}

// fakeUoW runs fn without a database and fires hooks only when it succeeds.
type fakeUoW struct{}

func (fakeUoW) Do(ctx context.Context, fn func(ctx context.Context, tx postgresrepo.DB, after func(name string, h uow.AfterCommit)) error) error {
	var hooks []uow.AfterCommit
	if err := fn(ctx, nil, func(_ string, h uow.AfterCommit) { hooks = append(hooks, h) }); err != nil {
		return err
	}
	for _, h := range hooks {
		_ = h(ctx)
	}
	return nil
}

type windows struct {
	routes      []int64
	invalidated int
	fail        bool
}

func (w *windows) InvalidateWindow(context.Context, time.Time) { w.invalidated++ }

func (w *windows) EnsureDefaultWindow(_ context.Context, routeID int64, _ time.Time) (int, error) {
	w.routes = append(w.routes, routeID)
	if w.fail {
		return 0, errors.New("runs table locked")
	}
	return 14, nil
}

type notifier struct {
	published []int64
	dropped   []int64
}

func (n *notifier) PublishRouteChanged(_ context.Context, routeID int64) error {
	n.published = append(n.published, routeID)
	return nil
}

func (n *notifier) Invalidate(id int64) { n.dropped = append(n.dropped, id) }

var (
	staff  = domain.Identity{Subject: "ops", Staff: true}
	boss   = domain.Identity{Subject: "boss"}
	walkIn = domain.Identity{Subject: "walk-in"}
)

type fixture struct {
	svc     *Service
	catalog *memCatalog
	windows *windows
	notify  *notifier
	company int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cat := newMemCatalog()
	w := &windows{}
	n := &notifier{}

	svc := New(Deps{
		Catalog:  func(postgresrepo.DB) Catalog { return cat },
		UoW:      fakeUoW{},
		Windows:  w,
		Notifier: n,
		Local:    n,
		Clock:    clock.Fixed(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	id, err := svc.CreateCompany(context.Background(), staff, domain.Company{Name: "STIF", Active: true, Admins: []string{"boss"}})
	require.NoError(t, err)

	return &fixture{svc: svc, catalog: cat, windows: w, notify: n, company: id}
}

func sampleRoute(companyID int64) domain.Route {
	return domain.Route{
		CompanyID:       companyID,
		DepartureCityID: 1,
		ArrivalCityID:   2,
		DepartureTime:   "07:00",
		ArrivalTime:     "13:00",
		Price:           decimal.NewFromInt(5000),
		Capacity:        50,
		Active:          true,
	}
}

func TestCreateCompanyAdmins(t *testing.T) {
	f := newFixture(t)

	c, err := f.svc.GetCompany(context.Background(), f.company)
	require.NoError(t, err)
	assert.Equal(t, []string{"boss"}, c.Admins)
	assert.Equal(t, "boss", c.LegacyAdminID)

	_, err = f.svc.CreateCompany(context.Background(), staff, domain.Company{Name: "STIF"})
	assert.ErrorIs(t, err, ErrCompanyConflict)

	_, err = f.svc.CreateCompany(context.Background(), boss, domain.Company{Name: "Other"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreateCompanyFoldsLegacyAdmin(t *testing.T) {
	f := newFixture(t)

	id, err := f.svc.CreateCompany(context.Background(), staff, domain.Company{
		Name: "Rakieta", LegacyAdminID: "old", Admins: []string{"new", "old"},
	})
	require.NoError(t, err)

	c := f.catalog.companies[id]
	assert.Equal(t, []string{"old", "new"}, c.Admins)
	assert.Equal(t, "old", c.LegacyAdminID)
}

func TestAddCompanyAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.svc.AddCompanyAdmin(ctx, walkIn, f.company, "walk-in"), ErrForbidden)
	require.NoError(t, f.svc.AddCompanyAdmin(ctx, boss, f.company, "deputy"))
	assert.True(t, f.catalog.companies[f.company].IsAdmin("deputy"))

	assert.ErrorIs(t, f.svc.AddCompanyAdmin(ctx, staff, 999, "x"), ErrCompanyNotFound)
	assert.ErrorIs(t, f.svc.AddCompanyAdmin(ctx, staff, f.company, " "), ErrInvalidInput)
}

func TestCreateCity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateCity(ctx, staff, domain.City{Name: "Kara", Active: true})
	assert.ErrorIs(t, err, ErrCityConflict)

	_, err = f.svc.CreateCity(ctx, boss, domain.City{Name: "Sokodé"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.CreateCity(ctx, staff, domain.City{Name: "Sokodé", Active: true})
	require.NoError(t, err)

	cities, err := f.svc.ListCities(ctx)
	require.NoError(t, err)
	assert.Len(t, cities, 3)
}

func TestCreateRouteGeneratesRunsAfterCommit(t *testing.T) {
	f := newFixture(t)

	stops := []domain.Stop{
		{CityID: 2, Sequence: 2},
		{CityID: 1, Sequence: 0},
	}
	id, err := f.svc.CreateRoute(context.Background(), boss, sampleRoute(f.company), stops)
	require.NoError(t, err)

	assert.Equal(t, []int64{id}, f.windows.routes)
	assert.Equal(t, domain.BusStandard, f.catalog.routes[id].BusType)

	view, err := f.svc.GetRoute(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, view.Stops, 2)
	assert.Equal(t, 0, view.Stops[0].Sequence)
}

func TestCreateRouteWindowFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.windows.fail = true

	_, err := f.svc.CreateRoute(context.Background(), staff, sampleRoute(f.company), nil)
	require.NoError(t, err)
	assert.Len(t, f.windows.routes, 1)
}

func TestCreateRouteRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	same := sampleRoute(f.company)
	same.ArrivalCityID = same.DepartureCityID
	_, err := f.svc.CreateRoute(ctx, boss, same, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidRoute)

	big := sampleRoute(f.company)
	big.Capacity = 101
	_, err = f.svc.CreateRoute(ctx, boss, big, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidRoute)

	_, err = f.svc.CreateRoute(ctx, boss, sampleRoute(f.company), []domain.Stop{{CityID: 1, Sequence: 1}, {CityID: 2, Sequence: 1}})
	assert.ErrorIs(t, err, domain.ErrDuplicateSequence)

	_, err = f.svc.CreateRoute(ctx, walkIn, sampleRoute(f.company), nil)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.CreateRoute(ctx, staff, sampleRoute(4242), nil)
	assert.ErrorIs(t, err, ErrUnknownReference)

	assert.Empty(t, f.windows.routes)
}

func TestReplaceStopsBroadcasts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.CreateRoute(ctx, boss, sampleRoute(f.company), nil)
	require.NoError(t, err)

	err = f.svc.ReplaceStops(ctx, walkIn, id, nil)
	assert.ErrorIs(t, err, ErrForbidden)

	err = f.svc.ReplaceStops(ctx, boss, id, []domain.Stop{{CityID: 1, Sequence: 0}, {CityID: 2, Sequence: 0}})
	assert.ErrorIs(t, err, domain.ErrDuplicateSequence)
	assert.Empty(t, f.notify.published)

	require.NoError(t, f.svc.ReplaceStops(ctx, boss, id, []domain.Stop{{CityID: 1, Sequence: 0}, {CityID: 2, Sequence: 1}}))
	assert.Equal(t, []int64{id}, f.notify.published)
	assert.Equal(t, []int64{id}, f.notify.dropped)
	assert.Equal(t, 1, f.windows.invalidated, "cached searches of the window are dropped")

	assert.ErrorIs(t, f.svc.ReplaceStops(ctx, staff, 999, nil), ErrRouteNotFound)
}

func TestSetRouteActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	route := sampleRoute(f.company)
	route.Active = false
	id, err := f.svc.CreateRoute(ctx, boss, route, nil)
	require.NoError(t, err)
	assert.Empty(t, f.windows.routes)

	require.NoError(t, f.svc.SetRouteActive(ctx, boss, id, true))
	assert.True(t, f.catalog.routes[id].Active)
	assert.Equal(t, []int64{id}, f.windows.routes)
	assert.Equal(t, 1, f.windows.invalidated)

	routes, err := f.svc.ListRoutes(ctx, f.company, true)
	require.NoError(t, err)
	assert.Len(t, routes, 1)

	require.NoError(t, f.svc.SetRouteActive(ctx, staff, id, false))
	assert.Equal(t, 2, f.windows.invalidated, "withdrawing a route drops cached searches too")
	routes, err = f.svc.ListRoutes(ctx, f.company, true)
	require.NoError(t, err)
	assert.Empty(t, routes)
}
