package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/darelhouma/api/internal/domain"
)

// SignUp registers a user with email and password, attaching the metadata to
// the provider's user record.
func (c *client) SignUp(ctx context.Context, req domain.SignUp) (*domain.User, error) {
	var query url.Values
	if req.RedirectTo != "" {
		query = url.Values{"redirect_to": {req.RedirectTo}}
	}

	var raw json.RawMessage
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		query:  query,
		body: map[string]any{
			"email":    req.Email,
			"password": req.Password,
			"data":     req.Metadata,
		},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}

	return decodeSignUp(raw)
}

// The signup endpoint answers with a full session when email confirmation is
// disabled and with the bare user record otherwise.
func decodeSignUp(raw json.RawMessage) (*domain.User, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var withSession struct {
		User *domain.User `json:"user"`
	}
	if err := json.Unmarshal(raw, &withSession); err != nil {
		return nil, fmt.Errorf("decode sign up: %w", err)
	}
	if withSession.User != nil && withSession.User.ID != "" {
		return withSession.User, nil
	}

	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("decode sign up: %w", err)
	}
	if user.ID == "" {
		return nil, nil
	}
	return &user, nil
}

// SignInWithPassword exchanges credentials for a session.
func (c *client) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	var session domain.Session
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   map[string]string{"email": email, "password": password},
	}, &session)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return &session, nil
}

// RefreshSession exchanges a refresh token for a new session.
func (c *client) RefreshSession(ctx context.Context, refreshToken string) (*domain.Session, error) {
	var session domain.Session
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   map[string]string{"refresh_token": refreshToken},
	}, &session)
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	return &session, nil
}

// CurrentUser verifies the client's access token and returns its user.
func (c *client) CurrentUser(ctx context.Context) (*domain.User, error) {
	var user domain.User
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/auth/v1/user",
	}, &user)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("get user: %w", &APIError{Status: http.StatusUnauthorized, Message: "empty user"})
	}
	return &user, nil
}

// SignOut revokes the sessions of the client's access token.
func (c *client) SignOut(ctx context.Context) error {
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/logout",
	}, nil)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}
