package reservation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/essodond/Evexticket/internal/clock"
	"github.com/essodond/Evexticket/internal/domain"
	"github.com/essodond/Evexticket/internal/repository"
	postgresrepo "github.com/essodond/Evexticket/internal/repository/postgres"
	redisrepo "github.com/essodond/Evexticket/internal/repository/redis"
)

// memStore serializes Book the way the run row lock does in Postgres.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	rows     map[int64]domain.Reservation
	inactive map[time.Time]bool
}

func newMemStore() *memStore {
	return &memStore{rows: map[int64]domain.Reservation{}, inactive: map[time.Time]bool{}}
}

func (m *memStore) Book(_ context.Context, res domain.Reservation, seats int, decide postgresrepo.Decide) (domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run := domain.Run{RouteID: res.RouteID, Date: res.TravelDate, Active: !m.inactive[res.TravelDate], AvailableSeats: seats}

	var active []domain.Reservation
	for _, r := range m.rows {
		if r.RouteID == res.RouteID && r.TravelDate.Equal(res.TravelDate) && r.Status.Occupies() {
			active = append(active, r)
		}
	}

	if err := decide(run, active); err != nil {
		return domain.Reservation{}, err
	}

	m.nextID++
	res.ID = m.nextID
	m.rows[res.ID] = res
	return res, nil
}

func (m *memStore) Get(_ context.Context, id int64) (domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rows[id]
	if !ok {
		return domain.Reservation{}, repository.ErrNotFound
	}
	return r, nil
}

func (m *memStore) ListForUser(_ context.Context, userID string) ([]domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Reservation
	for id := int64(1); id <= m.nextID; id++ {
		if r, ok := m.rows[id]; ok && r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) SetStatus(_ context.Context, id int64, from, to domain.ReservationStatus) (domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rows[id]
	if !ok || r.Status != from {
		return domain.Reservation{}, repository.ErrStale
	}
	r.Status = to
	m.rows[id] = r
	return r, nil
}

type memRoutes struct {
	route domain.Route
	stops domain.StopList
}

func (m memRoutes) RouteWithStops(_ context.Context, id int64) (domain.Route, domain.StopList, error) {
	if id != m.route.ID {
		return domain.Route{}, domain.StopList{}, repository.ErrNotFound
	}
	return m.route, m.stops, nil
}

type memCompanies map[int64]domain.Company

func (m memCompanies) GetCompany(_ context.Context, id int64) (domain.Company, error) {
	c, ok := m[id]
	if !ok {
		return domain.Company{}, repository.ErrNotFound
	}
	return c, nil
}

type recorder struct {
	mu          sync.Mutex
	events      []string
	invalidated []time.Time
	fail        bool
}

func (r *recorder) PublishReservation(_ context.Context, kind string, _ domain.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, kind)
	if r.fail {
		return errors.New("broker down")
	}
	return nil
}

func (r *recorder) InvalidateDate(_ context.Context, date time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = append(r.invalidated, date)
	return nil
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (redisrepo.Decision, error) {
	return redisrepo.Decision{Allowed: false, RetryAfter: 30 * time.Second}, nil
}

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func id(v int64) *int64 { return &v }

var (
	today    = time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	tomorrow = today.AddDate(0, 0, 1)

	passenger = domain.Identity{Subject: "user-1"}
	other     = domain.Identity{Subject: "user-2"}
	staff     = domain.Identity{Subject: "ops", Staff: true}
	companyAd = domain.Identity{Subject: "boss"}
)

type fixture struct {
	svc    *Service
	store  *memStore
	events *recorder
}

// Lomé(0) -> Kpalimé(1, 1500) -> Kara(2, 2000), capacity 2, flat 5000.
func newFixture(t *testing.T, capacity int) fixture {
	t.Helper()

	stops, err := domain.NewStopList([]domain.Stop{
		{ID: 11, RouteID: 1, CityID: 10, CityName: "Lomé", Sequence: 0},
		{ID: 12, RouteID: 1, CityID: 20, CityName: "Kpalimé", Sequence: 1, SegmentPrice: price("1500")},
		{ID: 13, RouteID: 1, CityID: 30, CityName: "Kara", Sequence: 2, SegmentPrice: price("2000")},
	})
	require.NoError(t, err)

	route := domain.Route{
		ID:        1,
		CompanyID: 5,
		Price:     decimal.RequireFromString("5000"),
		Capacity:  capacity,
		Active:    true,
	}

	company := domain.Company{ID: 5}
	company.AddAdmin(companyAd.Subject)

	store := newMemStore()
	events := &recorder{}

	svc := New(Deps{
		Reservations: store,
		Routes:       memRoutes{route: route, stops: stops},
		Companies:    memCompanies{5: company},
		Events:       events,
		Cache:        events,
		Clock:        clock.Fixed(today),
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	return fixture{svc: svc, store: store, events: events}
}

func draft(seat string, origin, destination *int64) Draft {
	return Draft{
		RouteID:           1,
		TravelDate:        tomorrow,
		SeatNumber:        seat,
		OriginStopID:      origin,
		DestinationStopID: destination,
		PassengerName:     "Ama Mensah",
		PaymentMethod:     domain.PaymentMobileMoney,
	}
}

func TestCreateWholeRoute(t *testing.T) {
	f := newFixture(t, 50)

	res, err := f.svc.Create(context.Background(), passenger, draft("A1", nil, nil), "")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, res.Status)
	assert.Equal(t, "user-1", res.UserID)
	assert.True(t, res.TotalPrice.Equal(decimal.RequireFromString("5000")))
	assert.Nil(t, res.OriginStopID)
	assert.Equal(t, []string{"reservation.created"}, f.events.events)
	assert.Equal(t, []time.Time{tomorrow}, f.events.invalidated)
}

func TestCreateSegmentPricesAndStoresStops(t *testing.T) {
	f := newFixture(t, 50)

	res, err := f.svc.Create(context.Background(), passenger, draft("A1", id(12), id(13)), "")
	require.NoError(t, err)

	assert.True(t, res.TotalPrice.Equal(decimal.RequireFromString("1500")))
	require.NotNil(t, res.OriginStopID)
	assert.Equal(t, int64(12), *res.OriginStopID)
	assert.Equal(t, int64(13), *res.DestinationStopID)
}

func TestCreateSeatConflicts(t *testing.T) {
	tests := []struct {
		name       string
		first      [2]*int64
		second     [2]*int64
		wantErr    error
		secondSeat string
	}{
		{name: "touching segments share the seat", first: [2]*int64{id(11), id(12)}, second: [2]*int64{id(12), id(13)}, secondSeat: "A1"},
		{name: "overlapping segments conflict", first: [2]*int64{id(11), id(13)}, second: [2]*int64{id(12), id(13)}, secondSeat: "A1", wantErr: domain.ErrSeatConflict},
		{name: "whole route conflicts with any segment", first: [2]*int64{nil, nil}, second: [2]*int64{id(12), id(13)}, secondSeat: "A1", wantErr: domain.ErrSeatConflict},
		{name: "different label is a different seat", first: [2]*int64{nil, nil}, second: [2]*int64{nil, nil}, secondSeat: "a1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 50)

			_, err := f.svc.Create(context.Background(), passenger, draft("A1", tt.first[0], tt.first[1]), "")
			require.NoError(t, err)

			_, err = f.svc.Create(context.Background(), other, draft(tt.secondSeat, tt.second[0], tt.second[1]), "")
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)

			derr, ok := domain.AsError(err)
			require.True(t, ok)
			assert.Equal(t, "seat_number", derr.Field)
		})
	}
}

func TestCreateCancelledSeatIsReusable(t *testing.T) {
	f := newFixture(t, 50)

	res, err := f.svc.Create(context.Background(), passenger, draft("A1", nil, nil), "")
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), passenger, res.ID)
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), other, draft("A1", nil, nil), "")
	assert.NoError(t, err)
}

func TestCreateFullSegment(t *testing.T) {
	f := newFixture(t, 1)

	_, err := f.svc.Create(context.Background(), passenger, draft("A1", id(11), id(12)), "")
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), other, draft("A2", id(11), id(13)), "")
	assert.ErrorIs(t, err, ErrNoSeatsAvailable)

	_, err = f.svc.Create(context.Background(), other, draft("A2", id(12), id(13)), "")
	assert.NoError(t, err)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, 50)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, domain.Identity{}, draft("A1", nil, nil), "")
	assert.ErrorIs(t, err, ErrIdentityRequired)

	_, err = f.svc.Create(ctx, passenger, draft("  ", nil, nil), "")
	assert.ErrorIs(t, err, ErrInvalidReservation)

	_, err = f.svc.Create(ctx, passenger, draft("A1", id(12), nil), "")
	assert.ErrorIs(t, err, domain.ErrInvalidSegment)

	_, err = f.svc.Create(ctx, passenger, draft("A1", id(13), id(12)), "")
	assert.ErrorIs(t, err, domain.ErrInvalidSegment)

	d := draft("A1", nil, nil)
	d.TravelDate = today.AddDate(0, 0, -1)
	_, err = f.svc.Create(ctx, passenger, d, "")
	assert.ErrorIs(t, err, ErrPastDate)

	d = draft("A1", nil, nil)
	d.PaymentMethod = "cheque"
	_, err = f.svc.Create(ctx, passenger, d, "")
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)

	d = draft("A1", nil, nil)
	d.RouteID = 2
	_, err = f.svc.Create(ctx, passenger, d, "")
	assert.ErrorIs(t, err, ErrRouteNotFound)

	f.store.inactive[tomorrow] = true
	_, err = f.svc.Create(ctx, passenger, draft("A1", nil, nil), "")
	assert.ErrorIs(t, err, domain.ErrRunInactive)

	assert.Empty(t, f.store.rows)
}

func TestCreateInactiveRoute(t *testing.T) {
	f := newFixture(t, 50)
	routes := f.svc.Routes.(memRoutes)
	routes.route.Active = false
	f.svc.Routes = routes

	_, err := f.svc.Create(context.Background(), passenger, draft("A1", nil, nil), "")
	assert.ErrorIs(t, err, domain.ErrRouteInactive)
}

func TestCreateRateLimited(t *testing.T) {
	f := newFixture(t, 50)
	f.svc.Limiter = denyAll{}

	_, err := f.svc.Create(context.Background(), passenger, draft("A1", nil, nil), "ip:1.2.3.4")
	assert.ErrorIs(t, err, ErrRateLimited)

	var rl RateLimitedError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 30*time.Second, rl.RetryAfter)
}

func TestCreateSurvivesEventFailure(t *testing.T) {
	f := newFixture(t, 50)
	f.events.fail = true

	_, err := f.svc.Create(context.Background(), passenger, draft("A1", nil, nil), "")
	assert.NoError(t, err)
}

func TestCreateConcurrentSameSeat(t *testing.T) {
	f := newFixture(t, 50)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Create(context.Background(), passenger, draft("B2", id(11), id(13)), "")
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrSeatConflict)
	}
	assert.Equal(t, 1, ok)
	assert.Len(t, f.store.rows, 1)
}

func TestTransitions(t *testing.T) {
	f := newFixture(t, 50)
	ctx := context.Background()

	res, err := f.svc.Create(ctx, passenger, draft("A1", nil, nil), "")
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, passenger, res.ID)
	assert.ErrorIs(t, err, ErrForbidden, "owners cannot confirm their own booking")

	_, err = f.svc.Complete(ctx, staff, res.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	confirmed, err := f.svc.Confirm(ctx, companyAd, res.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, confirmed.Status)

	completed, err := f.svc.Complete(ctx, staff, res.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, completed.Status)

	_, err = f.svc.Cancel(ctx, passenger, res.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	assert.Equal(t, []string{"reservation.created", "reservation.confirmed", "reservation.completed"}, f.events.events)
}

func TestGetAndList(t *testing.T) {
	f := newFixture(t, 50)
	ctx := context.Background()

	res, err := f.svc.Create(ctx, passenger, draft("A1", nil, nil), "")
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, passenger, res.ID)
	assert.NoError(t, err)

	_, err = f.svc.Get(ctx, other, res.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Get(ctx, companyAd, res.ID)
	assert.NoError(t, err)

	_, err = f.svc.Get(ctx, staff, 99)
	assert.ErrorIs(t, err, ErrReservationNotFound)

	mine, err := f.svc.ListMine(ctx, passenger)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := f.svc.ListMine(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, theirs)
}
