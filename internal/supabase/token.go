package supabase

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned by TokenChecker for tokens that cannot be valid.
var ErrInvalidToken = errors.New("invalid access token")

// TokenChecker rejects access tokens that are obviously unusable before they
// are sent to the provider. It never accepts a token on its own; the provider
// remains the authority.
type TokenChecker struct {
	secret []byte
	leeway time.Duration
	now    func() time.Time
}

// NewTokenChecker creates a TokenChecker. When secret is non-empty, HS256
// tokens must carry a valid signature, so a secret that differs from the
// project's JWT secret rejects every token.
func NewTokenChecker(secret string) *TokenChecker {
	return &TokenChecker{
		secret: []byte(secret),
		leeway: 30 * time.Second,
		now:    time.Now,
	}
}

// Check returns the token subject if the token is structurally valid and not expired.
func (tc *TokenChecker) Check(token string) (string, error) {
	claims := jwt.MapClaims{}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if len(tc.secret) > 0 && parsed.Method.Alg() == jwt.SigningMethodHS256.Alg() {
		parser := jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithLeeway(tc.leeway),
			jwt.WithTimeFunc(tc.now),
		)
		_, err := parser.Parse(token, func(*jwt.Token) (any, error) {
			return tc.secret, nil
		})
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return "", fmt.Errorf("%w: missing exp", ErrInvalidToken)
	}
	if tc.now().After(exp.Add(tc.leeway)) {
		return "", fmt.Errorf("%w: expired", ErrInvalidToken)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	return sub, nil
}
