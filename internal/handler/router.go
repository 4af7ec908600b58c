package handler

import (
	"log/slog"
	"net"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/darelhouma/api/internal/service"
)

// RouterConfig holds the HTTP-level settings.
type RouterConfig struct {
	CORS         CORSConfig
	RateLimitRPM int
	// TrustedProxies are the only peers whose X-Forwarded-For is honoured.
	TrustedProxies []*net.IPNet
	Info         ServiceInfo
}

// NewRouter builds the echo instance with every route and middleware mounted.
func NewRouter(cfg RouterConfig, auth *service.AuthService, health *service.HealthService) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = HTTPErrorHandler
	e.Validator = NewAppValidator()
	e.IPExtractor = ipExtractor(cfg.TrustedProxies)

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			slog.ErrorContext(c.Request().Context(), "panic recovered",
				"path", c.Request().URL.Path,
				"error", err,
				"stack", string(stack),
			)
			return err
		},
	}))
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(RequestLogger())
	e.Use(CORS(cfg.CORS))

	authHandler := NewAuthHandler(auth)
	healthHandler := NewHealthHandler(health, cfg.Info)
	gate := Authenticate(auth)

	e.GET("/", healthHandler.Root)
	e.GET("/health", healthHandler.Health)
	e.GET("/health/db", healthHandler.Database)

	a := e.Group("/auth", RateLimit(cfg.RateLimitRPM))
	a.POST("/register", authHandler.Register)
	a.POST("/login", authHandler.Login)
	a.POST("/refresh", authHandler.Refresh)
	a.POST("/logout", WithIdentity(authHandler.Logout), gate)
	a.GET("/me", WithIdentity(authHandler.Me), gate)

	api := e.Group("/api", gate)
	api.GET("/profile", WithIdentity(authHandler.APIProfile))

	return e
}

// ipExtractor resolves the client address used for rate limiting and logs.
// Forwarding headers are ignored unless the peer is a configured proxy.
func ipExtractor(proxies []*net.IPNet) echo.IPExtractor {
	if len(proxies) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range proxies {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}
