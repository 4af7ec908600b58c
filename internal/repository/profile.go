package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/darelhouma/api/internal/domain"
)

// ProfileRepository accesses the profiles table directly over Postgres.
// It connects with a privileged role and therefore bypasses row-level security.
// Registration only uses CreateProfile; user-facing reads go through the
// token-scoped REST client so RLS applies.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

type profileRow struct {
	ID          string       `db:"id"`
	FullName    string       `db:"full_name"`
	Phone       string       `db:"phone"`
	CountryCode string       `db:"country_code"`
	Role        string       `db:"role"`
	CreatedAt   sql.NullTime `db:"created_at"`
	UpdatedAt   sql.NullTime `db:"updated_at"`
}

// FindProfile retrieves a profile by the provider user id.
func (r *ProfileRepository) FindProfile(ctx context.Context, id string) (*domain.Profile, error) {
	var row profileRow
	err := r.db.GetContext(ctx, &row,
		`SELECT id, COALESCE(full_name, '') AS full_name, COALESCE(phone, '') AS phone,
		        COALESCE(country_code, '') AS country_code, COALESCE(role, '') AS role,
		        created_at, updated_at
		 FROM profiles WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find profile %s: %w", id, err)
	}

	return &domain.Profile{
		ID:          row.ID,
		FullName:    row.FullName,
		Phone:       row.Phone,
		CountryCode: row.CountryCode,
		Role:        row.Role,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}, nil
}

// CreateProfile inserts a profile row. An existing row with the same id is left untouched.
func (r *ProfileRepository) CreateProfile(ctx context.Context, profile domain.Profile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, full_name, phone, country_code)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING`,
		profile.ID, profile.FullName, profile.Phone, profile.CountryCode)
	if err != nil {
		return fmt.Errorf("create profile %s: %w", profile.ID, err)
	}
	return nil
}

// ProbeProfiles checks that the profiles table can be queried.
func (r *ProfileRepository) ProbeProfiles(ctx context.Context) error {
	var id string
	err := r.db.GetContext(ctx, &id, `SELECT id FROM profiles LIMIT 1`)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("probe profiles: %w", err)
	}
	return nil
}
