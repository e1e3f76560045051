package service

import (
	"log/slog"

	"github.com/essodond/Evexticket/internal/amqp"
	"github.com/essodond/Evexticket/internal/clock"
	"github.com/essodond/Evexticket/internal/repository/lru"
	postgresrepo "github.com/essodond/Evexticket/internal/repository/postgres"
	redisrepo "github.com/essodond/Evexticket/internal/repository/redis"
	"github.com/essodond/Evexticket/internal/service/admin"
	"github.com/essodond/Evexticket/internal/service/payments"
	"github.com/essodond/Evexticket/internal/service/query"
	"github.com/essodond/Evexticket/internal/service/reports"
	"github.com/essodond/Evexticket/internal/service/reservation"
	"github.com/essodond/Evexticket/internal/service/runs"
	"github.com/essodond/Evexticket/internal/uow"
)

type Services struct {
	Admin       *admin.Service
	Runs        *runs.Service
	Reservation *reservation.Service
	Query       *query.Service
	Payments    *payments.Service
	Reports     *reports.Service
}

type Config struct {
	Runs  runs.Config
	Query query.Config
}

// Infra is what the services are built on. Cache, PubSub, Limiter and
// Events may be nil.
type Infra struct {
	Store   *postgresrepo.Store
	Routes  *lru.Routes
	Cache   *redisrepo.Cache
	PubSub  *redisrepo.RoutesPubSub
	Limiter *redisrepo.SlidingWindowLimiter
	Events  *amqp.Publisher
	Clock   clock.Clock
	Logger  *slog.Logger
}

func NewServices(in Infra, cfg Config) *Services {
	store := in.Store
	u := uow.NewUoW(store, in.Logger)

	// Optional collaborators are only assigned when present so the
	// interfaces stay nil rather than holding a nil pointer.
	runsDeps := runs.Deps{
		Runs:      store.Runs(),
		Routes:    in.Routes,
		Companies: store.Catalog(),
		Logger:    in.Logger,
	}
	if in.Cache != nil {
		runsDeps.Cache = in.Cache
	}
	runsSvc := runs.New(runsDeps, cfg.Runs)

	resDeps := reservation.Deps{
		Reservations: store.Reservations(),
		Routes:       in.Routes,
		Companies:    store.Catalog(),
		Clock:        in.Clock,
		Logger:       in.Logger,
	}
	if in.Cache != nil {
		resDeps.Cache = in.Cache
	}
	if in.Limiter != nil {
		resDeps.Limiter = in.Limiter
	}
	if in.Events != nil {
		resDeps.Events = in.Events
	}
	resSvc := reservation.New(resDeps)

	adminDeps := admin.Deps{
		Catalog: func(db postgresrepo.DB) admin.Catalog { return store.Catalog().With(db) },
		UoW:     u,
		Windows: runsSvc,
		Local:   in.Routes,
		Clock:   in.Clock,
		Logger:  in.Logger,
	}
	if in.PubSub != nil {
		adminDeps.Notifier = in.PubSub
	}

	return &Services{
		Admin:       admin.New(adminDeps),
		Runs:        runsSvc,
		Reservation: resSvc,
		Query: query.New(
			store.Query(),
			in.Routes,
			store.Runs(),
			store.Reservations(),
			in.Cache,
			in.Logger,
			cfg.Query,
		),
		Payments: payments.New(payments.Deps{
			Payments:     func(db postgresrepo.DB) payments.Payments { return store.Payments().With(db) },
			Reservations: func(db postgresrepo.DB) payments.Reservations { return store.Reservations().With(db) },
			UoW:          u,
			Changes:      resSvc,
			Logger:       in.Logger,
		}),
		Reports: reports.New(store.Query(), store.Catalog(), in.Clock, in.Logger),
	}
}
