package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/darelhouma/api/internal/service"
)

// ServiceInfo describes the running service on the root endpoint.
type ServiceInfo struct {
	Name        string
	Version     string
	Environment string
}

// HealthHandler serves liveness, store connectivity and service metadata.
type HealthHandler struct {
	health *service.HealthService
	info   ServiceInfo
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(health *service.HealthService, info ServiceInfo) *HealthHandler {
	return &HealthHandler{health: health, info: info}
}

// Health always reports ok.
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, h.health.Status())
}

// Database reports whether the profile store answers a one-row read.
func (h *HealthHandler) Database(c echo.Context) error {
	if err := h.health.CheckDatabase(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":   "error",
			"database": "connection failed",
			"error":    err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "ok",
		"database":  "connected",
		"timestamp": h.health.Now(),
	})
}

// Root lists the service metadata and entry points.
func (h *HealthHandler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"name":        h.info.Name,
		"version":     h.info.Version,
		"environment": h.info.Environment,
		"status":      "running",
		"endpoints": map[string]string{
			"health":       "/health",
			"auth":         "/auth",
			"apiProtected": "/api",
		},
	})
}
