package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/darelhouma/api/internal/domain"
	"github.com/darelhouma/api/internal/supabase"
)

const defaultCountryCode = "+213"

// Clients hands out provider clients scoped to one credential tier.
// *supabase.Factory satisfies it.
type Clients interface {
	Public() supabase.PublicAPI
	ForUser(token string) supabase.UserAPI
	Service() supabase.ServiceAPI
}

// AuthConfig holds the settings AuthService needs from configuration.
type AuthConfig struct {
	JWTSecret   string
	FrontendURL string
}

// AuthService handles authentication logic.
type AuthService struct {
	clients    Clients
	tokens     *supabase.TokenChecker
	redirectTo string
}

// NewAuthService creates a new AuthService.
func NewAuthService(clients Clients, cfg AuthConfig) *AuthService {
	return &AuthService{
		clients:    clients,
		tokens:     supabase.NewTokenChecker(cfg.JWTSecret),
		redirectTo: cfg.FrontendURL + "/auth/callback",
	}
}

// RegisterInput is a validated registration request.
type RegisterInput struct {
	Email       string
	Password    string
	FullName    string
	Phone       string
	CountryCode string
}

// Register creates the provider account and its profile row.
// A failed profile insert is logged and does not fail the registration.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if in.CountryCode == "" {
		in.CountryCode = defaultCountryCode
	}

	user, err := s.clients.Public().SignUp(ctx, domain.SignUp{
		Email:    in.Email,
		Password: in.Password,
		Metadata: domain.UserMetadata{
			FullName:    in.FullName,
			Phone:       in.Phone,
			CountryCode: in.CountryCode,
		},
		RedirectTo: s.redirectTo,
	})
	if err != nil {
		if apiErr, ok := supabase.AsRejection(err); ok {
			return nil, domain.NewError(domain.ErrInvalidInput, apiErr.Message)
		}
		return nil, upstream("register", err)
	}
	if user == nil || user.ID == "" {
		return nil, domain.NewError(domain.ErrInternal, "user creation failed")
	}

	// The provider-side trigger may already have created the row; the insert is a no-op then.
	err = s.clients.Service().CreateProfile(ctx, domain.Profile{
		ID:          user.ID,
		FullName:    in.FullName,
		Phone:       in.Phone,
		CountryCode: in.CountryCode,
	})
	if err != nil {
		slog.WarnContext(ctx, "create profile after sign-up", "user_id", user.ID, "error", err)
	}

	return user, nil
}

// LoginResult is a fresh session together with the caller's profile, if readable.
type LoginResult struct {
	Session domain.Session
	User    domain.User
	Profile *domain.Profile
}

// Login signs in with email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	session, err := s.clients.Public().SignInWithPassword(ctx, email, password)
	if err != nil {
		if _, ok := supabase.AsRejection(err); ok {
			return nil, domain.NewError(domain.ErrUnauthorized, "invalid credentials")
		}
		return nil, upstream("login", err)
	}
	if session.User == nil || session.User.ID == "" {
		return nil, fmt.Errorf("login: session without user")
	}

	result := &LoginResult{Session: *session, User: *session.User}

	profile, err := s.clients.ForUser(session.AccessToken).FindProfile(ctx, session.User.ID)
	if err != nil {
		slog.WarnContext(ctx, "read profile after login", "user_id", session.User.ID, "error", err)
	} else {
		result.Profile = profile
	}

	return result, nil
}

// Refresh exchanges a refresh token for a new session.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	if refreshToken == "" {
		return nil, domain.NewError(domain.ErrInvalidInput, "refresh token missing")
	}

	session, err := s.clients.Public().RefreshSession(ctx, refreshToken)
	if err != nil {
		if _, ok := supabase.AsRejection(err); ok {
			return nil, domain.NewError(domain.ErrUnauthorized, "invalid refresh token")
		}
		return nil, upstream("refresh", err)
	}
	return session, nil
}

// Logout revokes the caller's session. A session the provider no longer
// knows counts as already signed out.
func (s *AuthService) Logout(ctx context.Context, id domain.Identity) error {
	err := s.clients.ForUser(id.Token).SignOut(ctx)
	if err == nil {
		return nil
	}
	if apiErr, ok := supabase.AsRejection(err); ok {
		switch apiErr.Status {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return nil
		}
	}
	return upstream("logout", err)
}

// Profile returns the caller's profile row as visible to the caller's own token.
func (s *AuthService) Profile(ctx context.Context, id domain.Identity) (*domain.Profile, error) {
	profile, err := s.clients.ForUser(id.Token).FindProfile(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.ErrNotFound, "profile not found")
		}
		return nil, upstream("profile", err)
	}
	return profile, nil
}

// Authenticate verifies an access token with the provider and returns the caller's identity.
// Every kind of rejection yields the same error so callers cannot tell them apart.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	sub, err := s.tokens.Check(token)
	if err != nil {
		return domain.Identity{}, errInvalidToken
	}

	user, err := s.clients.ForUser(token).CurrentUser(ctx)
	if err != nil {
		if _, ok := supabase.AsRejection(err); ok {
			return domain.Identity{}, errInvalidToken
		}
		return domain.Identity{}, upstream("authenticate", err)
	}
	if user == nil || user.ID == "" || user.ID != sub {
		return domain.Identity{}, errInvalidToken
	}

	return domain.Identity{Token: token, UserID: user.ID, User: *user}, nil
}

var errInvalidToken = domain.NewError(domain.ErrUnauthorized, "invalid or expired token")

func upstream(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrUpstream, err)
}
