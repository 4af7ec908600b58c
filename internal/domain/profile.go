package domain

import "time"

// Profile is the application-side user record, keyed by the provider user id.
type Profile struct {
	ID          string    `json:"id" db:"id"`
	FullName    string    `json:"full_name" db:"full_name"`
	Phone       string    `json:"phone" db:"phone"`
	CountryCode string    `json:"country_code" db:"country_code"`
	Role        string    `json:"role,omitempty" db:"role"`
	CreatedAt   time.Time `json:"created_at,omitzero" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at,omitzero" db:"updated_at"`
}
