package httpgin

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/essodond/Evexticket/internal/domain"
)

const (
	ctxRequestID = "request_id"
	ctxIdentity  = "identity"
)

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}

		c.Writer.Header().Set("X-Request-ID", reqID)
		c.Set(ctxRequestID, reqID)

		c.Next()
	}
}

func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Request-ID",
			"Idempotency-Key",
			"If-None-Match",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"ETag",
			"Cache-Control",
			"Retry-After",
			"Idempotency-Key",
		},
		MaxAge: 12 * time.Hour,
	})
}

// LoggingMiddleware writes one access line per request, grouped under
// "http". Requests that recorded an error are logged at Error.
func LoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path += "?" + raw
		}

		attrs := []any{
			slog.Int("status", c.Writer.Status()),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("route", c.FullPath()),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", c.GetString(ctxRequestID)),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes_out", c.Writer.Size()),
		}
		if id := identity(c); !id.Anonymous() {
			attrs = append(attrs, slog.String("subject", id.Subject))
		}

		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("error", c.Errors.String()))
			logger.Error("http", slog.Group("http", attrs...))
			return
		}
		logger.Info("http", slog.Group("http", attrs...))
	}
}

// IdentityMiddleware reads an optional HS256 bearer token. Without a token
// the request stays anonymous; a present but invalid token is refused.
// A role claim of "staff" or "admin" marks the caller as staff.
func IdentityMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.Next()
			return
		}

		raw, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || secret == "" {
			abortUnauthorized(c, "unsupported authorization")
			return
		}

		id, err := ParseIdentity(secret, strings.TrimSpace(raw))
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		c.Set(ctxIdentity, id)
		c.Next()
	}
}

// RequireIdentity refuses anonymous callers.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity(c).Anonymous() {
			abortUnauthorized(c, "authentication required")
			return
		}
		c.Next()
	}
}

// ParseIdentity validates token and maps its claims to an identity.
func ParseIdentity(secret, token string) (domain.Identity, error) {
	tok, err := jwt.Parse(token, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.Identity{}, err
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Identity{}, errors.New("unexpected claims")
	}

	var sub string
	switch v := claims["sub"].(type) {
	case string:
		sub = v
	case float64:
		sub = strconv.FormatInt(int64(v), 10)
	}
	if sub == "" {
		return domain.Identity{}, errors.New("token has no subject")
	}

	role, _ := claims["role"].(string)

	return domain.Identity{
		Subject: sub,
		Staff:   role == "staff" || role == "admin",
	}, nil
}

func identity(c *gin.Context) domain.Identity {
	v, ok := c.Get(ctxIdentity)
	if !ok {
		return domain.Identity{}
	}
	id, _ := v.(domain.Identity)
	return id
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="evexticket"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: msg})
}
