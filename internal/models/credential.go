package models

import "time"

// CredentialKind distinguishes the secrets stored per (user, platform).
type CredentialKind string

const (
	CredentialClientID     CredentialKind = "client_id"
	CredentialClientSecret CredentialKind = "client_secret"
	CredentialAccessToken  CredentialKind = "access_token"
	CredentialRefreshToken CredentialKind = "refresh_token"
	CredentialUsername     CredentialKind = "username"
	CredentialPassword     CredentialKind = "password"
	CredentialAPIKey       CredentialKind = "api_key"
)

// AIProvider is the pseudo-platform under which model keys are stored.
const AIProvider Platform = "gemini"

// Credential is a stored secret enabling calls to an external platform or AI
// provider on a user's behalf. (user_id, platform, kind) is unique.
type Credential struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Platform  Platform       `json:"platform"`
	Kind      CredentialKind `json:"kind"`
	Value     string         `json:"-"` // never serialized
	Valid     bool           `json:"valid"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Expired reports whether the credential has an expiry in the past.
func (c *Credential) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// APIToken is an operator token for the management API. Only the bcrypt hash
// is stored; the full token is shown once at creation.
type APIToken struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	TokenHash   string     `json:"-"`
	TokenPrefix string     `json:"token_prefix"`
	Active      bool       `json:"active"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
