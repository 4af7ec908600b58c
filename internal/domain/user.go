package domain

import "time"

// UserMetadata is the profile data attached to the provider's user record at sign-up.
type UserMetadata struct {
	FullName    string `json:"full_name,omitempty"`
	Phone       string `json:"phone,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// User is the identity record owned by the auth provider. It is only ever read back.
type User struct {
	ID               string         `json:"id"`
	Aud              string         `json:"aud,omitempty"`
	Role             string         `json:"role,omitempty"`
	Email            string         `json:"email"`
	Phone            string         `json:"phone,omitempty"`
	UserMetadata     UserMetadata   `json:"user_metadata"`
	AppMetadata      map[string]any `json:"app_metadata,omitempty"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
	LastSignInAt     *time.Time     `json:"last_sign_in_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at,omitzero"`
	UpdatedAt        time.Time      `json:"updated_at,omitzero"`
}

// SignUp holds the fields forwarded to the provider on registration.
type SignUp struct {
	Email      string
	Password   string
	Metadata   UserMetadata
	RedirectTo string
}

// Session is a provider-issued token pair.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
}

// Identity is the verified caller of a protected request.
type Identity struct {
	Token  string
	UserID string
	User   User
}
