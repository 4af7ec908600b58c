package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/darelhouma/api/internal/domain"
)

const profilesPath = "/rest/v1/profiles"

type profileInsert struct {
	ID          string `json:"id"`
	FullName    string `json:"full_name"`
	Phone       string `json:"phone"`
	CountryCode string `json:"country_code"`
}

// FindProfile returns the profile row with the given id, or domain.ErrNotFound
// when the row does not exist or is hidden by row-level security.
func (c *client) FindProfile(ctx context.Context, id string) (*domain.Profile, error) {
	var rows []domain.Profile
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   profilesPath,
		query: url.Values{
			"select": {"*"},
			"id":     {"eq." + id},
			"limit":  {"1"},
		},
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("find profile %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	return &rows[0], nil
}

// CreateProfile inserts the profile row unless one with the same id exists.
func (c *client) CreateProfile(ctx context.Context, profile domain.Profile) error {
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   profilesPath,
		body: profileInsert{
			ID:          profile.ID,
			FullName:    profile.FullName,
			Phone:       profile.Phone,
			CountryCode: profile.CountryCode,
		},
		header: http.Header{"Prefer": {"resolution=ignore-duplicates,return=minimal"}},
	}, nil)
	if err != nil {
		return fmt.Errorf("create profile %s: %w", profile.ID, err)
	}
	return nil
}

// ProbeProfiles reads at most one id from the profiles table.
func (c *client) ProbeProfiles(ctx context.Context) error {
	var rows []struct {
		ID string `json:"id"`
	}
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   profilesPath,
		query:  url.Values{"select": {"id"}, "limit": {"1"}},
	}, &rows)
	if err != nil {
		return fmt.Errorf("probe profiles: %w", err)
	}
	return nil
}
