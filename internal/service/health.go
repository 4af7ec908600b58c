package service

import (
	"context"
	"time"
)

// Prober checks connectivity to the profile store.
type Prober interface {
	ProbeProfiles(ctx context.Context) error
}

// HealthConfig holds the metadata reported by the liveness check.
type HealthConfig struct {
	Environment string
	Version     string
}

// Status is the liveness report.
type Status struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Environment string `json:"environment"`
	Version     string `json:"version"`
}

// HealthService reports liveness and store connectivity.
type HealthService struct {
	store Prober
	cfg   HealthConfig
	now   func() time.Time
}

// NewHealthService creates a new HealthService.
func NewHealthService(store Prober, cfg HealthConfig) *HealthService {
	return &HealthService{store: store, cfg: cfg, now: time.Now}
}

// Status returns static service metadata stamped with the current time.
func (s *HealthService) Status() Status {
	return Status{
		Status:      "ok",
		Timestamp:   s.Now(),
		Environment: s.cfg.Environment,
		Version:     s.cfg.Version,
	}
}

// Now returns the current time in RFC 3339 form.
func (s *HealthService) Now() string {
	return s.now().UTC().Format(time.RFC3339)
}

// CheckDatabase reads a single row from the profile store.
func (s *HealthService) CheckDatabase(ctx context.Context) error {
	return s.store.ProbeProfiles(ctx)
}
