package handler

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/darelhouma/api/internal/domain"
)

var errUnauthenticated = domain.NewError(domain.ErrUnauthorized, "invalid or expired token")

// RequestLogger logs each HTTP request with structured fields. Client errors
// are logged at warn level and server errors at error level.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			if err := next(c); err != nil {
				// Resolve the status now instead of after the chain unwinds.
				c.Error(err)
			}

			status := c.Response().Status
			level := slog.LevelInfo
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			slog.Log(c.Request().Context(), level, "http request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
				"remote_ip", c.RealIP(),
			)

			return nil
		}
	}
}

// CORSConfig configures the CORS filter.
type CORSConfig struct {
	AllowedOrigins []string
	// AllowAll admits every origin; used in development.
	AllowAll bool
}

const (
	corsAllowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	corsAllowHeaders = "Content-Type, Authorization, X-Requested-With"
)

// CORS sets cross-origin headers and answers preflight requests itself.
// The request origin is echoed back rather than "*" so credentialed requests work.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			origin := c.Request().Header.Get(echo.HeaderOrigin)
			h := c.Response().Header()

			if cfg.AllowAll || slices.Contains(cfg.AllowedOrigins, origin) {
				if origin == "" {
					h.Set(echo.HeaderAccessControlAllowOrigin, "*")
				} else {
					h.Set(echo.HeaderAccessControlAllowOrigin, origin)
					h.Set(echo.HeaderAccessControlAllowCredentials, "true")
				}
				h.Add(echo.HeaderVary, echo.HeaderOrigin)
			}
			h.Set(echo.HeaderAccessControlAllowMethods, corsAllowMethods)
			h.Set(echo.HeaderAccessControlAllowHeaders, corsAllowHeaders)
			h.Set(echo.HeaderAccessControlExposeHeaders, echo.HeaderXRequestID)

			if c.Request().Method == http.MethodOptions {
				return c.String(http.StatusOK, "OK")
			}
			return next(c)
		}
	}
}

// Authenticator verifies a bearer token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Identity, error)
}

type identityKey struct{}

// Authenticate rejects requests without a verified bearer token. On success the
// identity is attached to the request context for WithIdentity.
func Authenticate(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return errUnauthenticated
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
				return errUnauthenticated
			}

			req := c.Request()
			id, err := auth.Authenticate(req.Context(), strings.TrimSpace(parts[1]))
			if err != nil {
				return err
			}

			c.SetRequest(req.WithContext(context.WithValue(req.Context(), identityKey{}, id)))
			return next(c)
		}
	}
}

// IdentityHandler is a handler for an authenticated request.
type IdentityHandler func(c echo.Context, id domain.Identity) error

// WithIdentity adapts h to echo, passing it the identity established by Authenticate.
func WithIdentity(h IdentityHandler) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := c.Request().Context().Value(identityKey{}).(domain.Identity)
		if !ok || id.Token == "" || id.UserID == "" {
			return errUnauthenticated
		}
		return h(c, id)
	}
}

// RateLimit limits requests per client IP to rpm per minute. Zero disables it.
func RateLimit(rpm int) echo.MiddlewareFunc {
	if rpm <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(float64(rpm) / 60),
			Burst:     max(rpm/6, 1),
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, ErrorBody{
				Error: "too many requests",
				Code:  "rate_limited",
			})
		},
	})
}
