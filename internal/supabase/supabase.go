// Package supabase is a thin client for the Supabase auth (GoTrue) and
// data (PostgREST) APIs.
//
// A Factory hands out clients scoped to one credential tier: the public key
// for anonymous auth calls, an end-user token for row-level-security reads,
// and the service-role key for privileged writes. Callers ask for the tier
// they need instead of choosing keys themselves.
package supabase

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"

	"github.com/darelhouma/api/internal/domain"
)

// ProfileStore reads and writes rows of the profiles table.
type ProfileStore interface {
	FindProfile(ctx context.Context, id string) (*domain.Profile, error)
	CreateProfile(ctx context.Context, profile domain.Profile) error
	ProbeProfiles(ctx context.Context) error
}

// PublicAPI is the anonymous tier: sign-up, sign-in, refresh and anon-role reads.
type PublicAPI interface {
	SignUp(ctx context.Context, req domain.SignUp) (*domain.User, error)
	SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*domain.Session, error)
	ProfileStore
}

// UserAPI acts on behalf of one signed-in user; data access is subject to RLS.
type UserAPI interface {
	CurrentUser(ctx context.Context) (*domain.User, error)
	SignOut(ctx context.Context) error
	ProfileStore
}

// ServiceAPI bypasses row-level security. Use only for trusted server-side writes.
type ServiceAPI interface {
	ProfileStore
}

// Config configures a Factory.
type Config struct {
	URL            string
	PublicKey      string
	AnonKey        string
	ServiceRoleKey string

	// Timeout bounds every outbound call. Defaults to 10s.
	Timeout time.Duration

	HTTPClient *http.Client
}

// Option customises a Factory.
type Option func(*Factory)

// WithServiceProfiles replaces the REST-backed service tier profile store,
// e.g. with a direct database repository.
func WithServiceProfiles(store ProfileStore) Option {
	return func(f *Factory) {
		f.serviceProfiles = store
	}
}

// Factory builds capability-scoped clients. It is safe for concurrent use.
type Factory struct {
	cfg             Config
	http            *http.Client
	breaker         *gobreaker.CircuitBreaker
	serviceProfiles ProfileStore
}

// NewFactory creates a Factory. Public and anon keys fall back to each other.
func NewFactory(cfg Config, opts ...Option) *Factory {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.PublicKey == "" {
		cfg.PublicKey = cfg.AnonKey
	}
	if cfg.AnonKey == "" {
		cfg.AnonKey = cfg.PublicKey
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	f := &Factory{
		cfg:  cfg,
		http: httpClient,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "supabase",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 5 && failureRatio >= 0.6
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
		}),
	}

	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Public returns a client authenticated with the public key.
func (f *Factory) Public() PublicAPI {
	return f.newClient(f.cfg.PublicKey, f.cfg.PublicKey, f.http)
}

// ForUser returns a client that forwards the end-user access token, so data
// reads are filtered by the provider's row-level-security policies.
func (f *Factory) ForUser(token string) UserAPI {
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   f.http.Transport,
		},
		Timeout: f.http.Timeout,
	}
	return f.newClient(f.cfg.AnonKey, "", httpClient)
}

// Service returns the privileged tier.
func (f *Factory) Service() ServiceAPI {
	if f.serviceProfiles != nil {
		return f.serviceProfiles
	}
	return f.newClient(f.cfg.ServiceRoleKey, f.cfg.ServiceRoleKey, f.http)
}

func (f *Factory) newClient(apiKey, bearer string, httpClient *http.Client) *client {
	return &client{
		baseURL: f.cfg.URL,
		apiKey:  apiKey,
		bearer:  bearer,
		http:    httpClient,
		breaker: f.breaker,
		timeout: f.cfg.Timeout,
	}
}
