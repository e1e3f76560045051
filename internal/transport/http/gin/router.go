package httpgin

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/essodond/Evexticket/internal/clock"
	"github.com/essodond/Evexticket/internal/domain"
	redisrepo "github.com/essodond/Evexticket/internal/repository/redis"
	"github.com/essodond/Evexticket/internal/service"
)

// Idempotency replays the saved response of a repeated reservation request.
type Idempotency interface {
	Begin(ctx context.Context, key string, lockTTL time.Duration) (redisrepo.IdemState, string, error)
	Save(ctx context.Context, key string, jsonPayload string) error
	Release(ctx context.Context, key string) error
}

// Options are the transport-level collaborators. Idempotency may be nil.
type Options struct {
	JWTSecret   string
	Idempotency Idempotency
	Clock       clock.Clock
}

type handler struct {
	svcs   *service.Services
	idem   Idempotency
	logger *slog.Logger
	clock  clock.Clock
}

func NewRouter(
	svcs *service.Services,
	opts Options,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger), CORS(), IdentityMiddleware(opts.JWTSecret))
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	h := &handler{svcs: svcs, idem: opts.Idempotency, logger: logger, clock: opts.Clock}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public API
	r.GET("/cities", h.listCities)
	r.GET("/routes", h.listRoutes)
	r.GET("/routes/:id", h.getRoute)
	r.GET("/routes/:id/resolve", h.resolveSegment)
	r.GET("/routes/:id/availability", h.availability)
	r.GET("/routes/:id/price", h.segmentPrice)
	r.GET("/search", h.searchRuns)

	// Caller API
	me := r.Group("/reservations", RequireIdentity())
	{
		me.POST("", h.createReservation)
		me.GET("", h.listReservations)
		me.GET("/:id", h.getReservation)
		me.POST("/:id/confirm", h.confirmReservation)
		me.POST("/:id/cancel", h.cancelReservation)
		me.POST("/:id/complete", h.completeReservation)
		me.POST("/:id/payment", h.recordPayment)
		me.GET("/:id/payment", h.getPayment)
	}

	// Admin API; per-company permissions are checked by the services.
	adm := r.Group("/admin", RequireIdentity())
	{
		adm.POST("/companies", h.createCompany)
		adm.GET("/companies/:id", h.getCompany)
		adm.POST("/companies/:id/admins", h.addCompanyAdmin)
		adm.POST("/cities", h.createCity)
		adm.POST("/routes", h.createRoute)
		adm.PUT("/routes/:id/stops", h.replaceStops)
		adm.PATCH("/routes/:id", h.setRouteActive)
		adm.POST("/routes/:id/runs", h.generateRuns)
		adm.DELETE("/routes/:id/runs", h.pruneRuns)
		adm.PATCH("/routes/:id/runs/:date", h.setRunActive)
		adm.GET("/routes/:id/manifest", h.runManifest)
		adm.GET("/dashboard", h.dashboard)
		adm.GET("/reports/tickets", h.exportTickets)
	}

	return r
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

// parseOptionalID reads an optional positive integer query parameter.
func parseOptionalID(c *gin.Context, name string) (*int64, bool) {
	s := strings.TrimSpace(c.Query(name))
	if s == "" {
		return nil, true
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, "invalid "+name)
		return nil, false
	}
	return &v, true
}

func parseDateQuery(c *gin.Context, name string, required bool) (time.Time, bool) {
	s := strings.TrimSpace(c.Query(name))
	if s == "" {
		if required {
			badRequest(c, name+" is required (YYYY-MM-DD)")
			return time.Time{}, false
		}
		return time.Time{}, true
	}
	d, err := domain.ParseDate(s)
	if err != nil {
		badRequest(c, "invalid "+name+" (YYYY-MM-DD)")
		return time.Time{}, false
	}
	return d, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func writePDF(c *gin.Context, name string, pdf []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
