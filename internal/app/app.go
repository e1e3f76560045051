package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/essodond/Evexticket/internal/amqp"
	"github.com/essodond/Evexticket/internal/clock"
	"github.com/essodond/Evexticket/internal/config"
	"github.com/essodond/Evexticket/internal/postgres"
	"github.com/essodond/Evexticket/internal/redis"
	"github.com/essodond/Evexticket/internal/repository/lru"
	postgresrepo "github.com/essodond/Evexticket/internal/repository/postgres"
	redisrepo "github.com/essodond/Evexticket/internal/repository/redis"
	"github.com/essodond/Evexticket/internal/service"
	"github.com/essodond/Evexticket/internal/service/query"
	"github.com/essodond/Evexticket/internal/service/runs"
	httpgin "github.com/essodond/Evexticket/internal/transport/http/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	routeCacheSize = 512
	routeCacheTTL  = 10 * time.Minute
	idempotencyTTL = 24 * time.Hour
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	rdb        *goredis.Client
	events     *amqp.Publisher
	routes     *lru.Routes
	pubsub     *redisrepo.RoutesPubSub
	clock      clock.Clock
	services   *service.Services
	httpServer *http.Server
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.New"

	a, err := newCore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	idem := redisrepo.NewIdempotencyStore(a.rdb, idempotencyTTL)

	router := httpgin.NewRouter(a.services, httpgin.Options{
		JWTSecret:   cfg.Auth.JWTSecret,
		Idempotency: idem,
		Clock:       a.clock,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// NewWorker builds the application without the HTTP layer, for one-shot
// maintenance commands.
func NewWorker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.NewWorker"

	a, err := newCore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return a, nil
}

func newCore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	pool, err := postgres.New(ctx, postgres.Config{
		DSN:      cfg.Postgres.DSN(),
		MaxConns: int32(cfg.Postgres.MaxConns),
		Migrate:  cfg.Postgres.Migrate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	rdb, err := redis.New(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	clk, err := clock.New(cfg.Timezone)
	if err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to initialize clock: %w", err)
	}

	store := postgresrepo.NewStore(pool)
	routes := lru.NewRoutes(store.Catalog(), routeCacheSize, routeCacheTTL)
	pubsub := redisrepo.NewRoutesPubSub(rdb)

	infra := service.Infra{
		Store:  store,
		Routes: routes,
		Cache:  redisrepo.New(rdb),
		PubSub: pubsub,
		Clock:  clk,
		Logger: logger,
	}
	if cfg.RateLimitPerMin > 0 {
		infra.Limiter = redisrepo.NewSlidingWindowLimiter(rdb, "reservations", cfg.RateLimitPerMin, time.Minute)
	}

	var events *amqp.Publisher
	if cfg.AMQP.URL != "" {
		// The broker is optional: bookings keep working without events.
		events, err = amqp.Dial(ctx, amqp.Config{URL: cfg.AMQP.URL, DialRetries: 5, Backoff: time.Second}, logger)
		if err != nil {
			logger.Warn("reservation events disabled", "error", err)
		} else {
			infra.Events = events
		}
	}

	services := service.NewServices(infra, service.Config{
		Runs: runs.Config{
			Days:        cfg.Runs.WindowDays,
			StartOffset: cfg.Runs.StartOffset,
		},
		Query: query.Config{},
	})

	return &App{
		cfg:      cfg,
		logger:   logger,
		pool:     pool,
		rdb:      rdb,
		events:   events,
		routes:   routes,
		pubsub:   pubsub,
		clock:    clk,
		services: services,
	}, nil
}

// Refresh runs one pass of run generation over every active route.
func (a *App) Refresh(ctx context.Context, days, startOffset int, prune bool) (runs.Summary, error) {
	return a.services.Runs.RefreshAll(ctx, days, startOffset, a.clock.Today(), prune)
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	// Route edits made by other instances evict our local copy.
	g.Go(func() error {
		err := a.pubsub.Subscribe(gCtx, func(_ context.Context, routeID int64) {
			a.routes.Invalidate(routeID)
			a.logger.Debug("route evicted", "route_id", routeID)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("route subscription: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.refreshLoop(gCtx)
	})

	err := g.Wait()
	a.close()
	return err
}

func (a *App) refreshLoop(ctx context.Context) error {
	interval := a.cfg.Runs.RefreshInterval
	if interval <= 0 {
		return nil
	}

	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		a.refreshOnce(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
		}
	}
}

func (a *App) refreshOnce(ctx context.Context) {
	sum, err := a.Refresh(ctx, a.cfg.Runs.WindowDays, a.cfg.Runs.StartOffset, true)
	if err != nil {
		if ctx.Err() == nil {
			a.logger.Error("run refresh failed", "error", err)
		}
		return
	}
	a.logger.Info("runs refreshed",
		"routes", sum.Routes,
		"created", sum.Created,
		"pruned", sum.Pruned,
		"failed", sum.Failed,
	)
}

// Close releases the connections of an application that was never Run.
func (a *App) Close() {
	a.close()
}

func (a *App) close() {
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.logger.Warn("amqp close", "error", err)
		}
	}
	if err := a.rdb.Close(); err != nil {
		a.logger.Warn("redis close", "error", err)
	}
	a.pool.Close()
}
