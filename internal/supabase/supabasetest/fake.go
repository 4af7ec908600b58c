// Package supabasetest provides an in-memory stand-in for the Supabase tiers.
package supabasetest

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/darelhouma/api/internal/domain"
	"github.com/darelhouma/api/internal/supabase"
)

// Secret signs every token the fake issues.
const Secret = "supabasetest-secret"

type account struct {
	user     domain.User
	password string
}

// Fake keeps users, sessions and profile rows in memory. Its tiers follow the
// provider's rules: the user tier only sees its own profile row, revoked
// tokens stop verifying, and the public tier sees no profile rows.
type Fake struct {
	mu       sync.Mutex
	accounts map[string]*account
	tokens   map[string]string
	refresh  map[string]string
	profiles map[string]domain.Profile
	seq      int

	// Err* force failures on the corresponding operations.
	ErrAuth    error
	ErrProfile error
	ErrProbe   error
	ErrService error

	// NoUserOnSignUp makes SignUp succeed without returning a user.
	NoUserOnSignUp bool

	SignUpCalls  int
	SignInCalls  int
	SignOutCalls int
	LastSignUp   domain.SignUp
}

// New creates an empty Fake.
func New() *Fake {
	return &Fake{
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
		refresh:  make(map[string]string),
		profiles: make(map[string]domain.Profile),
	}
}

// AddUser registers a confirmed account directly.
func (f *Fake) AddUser(email, password string, metadata domain.UserMetadata) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addUserLocked(email, password, metadata)
}

func (f *Fake) addUserLocked(email, password string, metadata domain.UserMetadata) domain.User {
	f.seq++
	user := domain.User{
		ID:           fmt.Sprintf("user-%d", f.seq),
		Aud:          "authenticated",
		Role:         "authenticated",
		Email:        email,
		UserMetadata: metadata,
		CreatedAt:    time.Now().UTC(),
	}
	f.accounts[email] = &account{user: user, password: password}
	return user
}

// PutProfile stores a profile row, as a database trigger would.
func (f *Fake) PutProfile(profile domain.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[profile.ID] = profile
}

// Profile returns the stored profile row for id.
func (f *Fake) Profile(id string) (domain.Profile, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	return p, ok
}

// Login issues a session for an existing account, bypassing password checks.
func (f *Fake) Login(email string) domain.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issueLocked(f.accounts[email].user)
}

// ExpiredToken returns a well-formed token for userID that expired an hour ago.
func (f *Fake) ExpiredToken(userID string) string {
	return sign(userID, time.Now().Add(-time.Hour))
}

func (f *Fake) issueLocked(user domain.User) domain.Session {
	f.seq++
	access := sign(user.ID, time.Now().Add(time.Hour))
	refresh := fmt.Sprintf("refresh-%d", f.seq)
	f.tokens[access] = user.ID
	f.refresh[refresh] = user.ID

	u := user
	return domain.Session{
		AccessToken:  access,
		TokenType:    "bearer",
		ExpiresIn:    3600,
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
		RefreshToken: refresh,
		User:         &u,
	}
}

func (f *Fake) userByIDLocked(id string) (domain.User, bool) {
	for _, a := range f.accounts {
		if a.user.ID == id {
			return a.user, true
		}
	}
	return domain.User{}, false
}

func sign(sub string, exp time.Time) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": exp.Unix(),
		"iat": time.Now().Unix(),
		// keeps tokens issued within the same second distinct
		"jti": fmt.Sprintf("%d", time.Now().UnixNano()),
	}).SignedString([]byte(Secret))
	if err != nil {
		panic(err)
	}
	return token
}

func rejection(status int, msg string) error {
	return &supabase.APIError{Status: status, Message: msg}
}

// Public implements the anonymous tier.
func (f *Fake) Public() supabase.PublicAPI { return &publicTier{f: f} }

// ForUser implements the end-user tier.
func (f *Fake) ForUser(token string) supabase.UserAPI { return &userTier{f: f, token: token} }

// Service implements the privileged tier.
func (f *Fake) Service() supabase.ServiceAPI { return &serviceTier{f: f} }

type publicTier struct{ f *Fake }

func (p *publicTier) SignUp(ctx context.Context, req domain.SignUp) (*domain.User, error) {
	f := p.f
	f.mu.Lock()
	defer f.mu.Unlock()

	f.SignUpCalls++
	f.LastSignUp = req
	if f.ErrAuth != nil {
		return nil, f.ErrAuth
	}
	if _, exists := f.accounts[req.Email]; exists {
		return nil, rejection(http.StatusUnprocessableEntity, "User already registered")
	}
	user := f.addUserLocked(req.Email, req.Password, req.Metadata)
	if f.NoUserOnSignUp {
		return nil, nil
	}
	return &user, nil
}

func (p *publicTier) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	f := p.f
	f.mu.Lock()
	defer f.mu.Unlock()

	f.SignInCalls++
	if f.ErrAuth != nil {
		return nil, f.ErrAuth
	}
	a, ok := f.accounts[email]
	if !ok || a.password != password {
		return nil, rejection(http.StatusBadRequest, "Invalid login credentials")
	}
	session := f.issueLocked(a.user)
	return &session, nil
}

func (p *publicTier) RefreshSession(ctx context.Context, refreshToken string) (*domain.Session, error) {
	f := p.f
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ErrAuth != nil {
		return nil, f.ErrAuth
	}
	userID, ok := f.refresh[refreshToken]
	if !ok {
		return nil, rejection(http.StatusBadRequest, "Invalid Refresh Token: Refresh Token Not Found")
	}
	delete(f.refresh, refreshToken)
	user, _ := f.userByIDLocked(userID)
	session := f.issueLocked(user)
	return &session, nil
}

func (p *publicTier) FindProfile(ctx context.Context, id string) (*domain.Profile, error) {
	return nil, domain.ErrNotFound
}

func (p *publicTier) CreateProfile(ctx context.Context, profile domain.Profile) error {
	return rejection(http.StatusUnauthorized, "new row violates row-level security policy")
}

func (p *publicTier) ProbeProfiles(ctx context.Context) error {
	p.f.mu.Lock()
	defer p.f.mu.Unlock()
	return p.f.ErrProbe
}

type userTier struct {
	f     *Fake
	token string
}

func (u *userTier) CurrentUser(ctx context.Context) (*domain.User, error) {
	f := u.f
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ErrAuth != nil {
		return nil, f.ErrAuth
	}
	userID, ok := f.tokens[u.token]
	if !ok {
		return nil, rejection(http.StatusUnauthorized, "invalid JWT")
	}
	user, ok := f.userByIDLocked(userID)
	if !ok {
		return nil, rejection(http.StatusUnauthorized, "user not found")
	}
	return &user, nil
}

func (u *userTier) SignOut(ctx context.Context) error {
	f := u.f
	f.mu.Lock()
	defer f.mu.Unlock()

	f.SignOutCalls++
	if f.ErrAuth != nil {
		return f.ErrAuth
	}
	if _, ok := f.tokens[u.token]; !ok {
		return rejection(http.StatusUnauthorized, "invalid JWT")
	}
	delete(f.tokens, u.token)
	return nil
}

func (u *userTier) FindProfile(ctx context.Context, id string) (*domain.Profile, error) {
	f := u.f
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ErrProfile != nil {
		return nil, f.ErrProfile
	}
	if f.tokens[u.token] != id {
		return nil, domain.ErrNotFound
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (u *userTier) CreateProfile(ctx context.Context, profile domain.Profile) error {
	return rejection(http.StatusForbidden, "permission denied for table profiles")
}

func (u *userTier) ProbeProfiles(ctx context.Context) error {
	return nil
}

type serviceTier struct{ f *Fake }

func (s *serviceTier) FindProfile(ctx context.Context, id string) (*domain.Profile, error) {
	f := s.f
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ErrService != nil {
		return nil, f.ErrService
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (s *serviceTier) CreateProfile(ctx context.Context, profile domain.Profile) error {
	f := s.f
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ErrService != nil {
		return f.ErrService
	}
	if _, exists := f.profiles[profile.ID]; exists {
		return nil
	}
	if profile.Role == "" {
		profile.Role = "user"
	}
	f.profiles[profile.ID] = profile
	return nil
}

func (s *serviceTier) ProbeProfiles(ctx context.Context) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	return s.f.ErrService
}
