package models

import (
	"fmt"
	"time"
)

// Provider identifies a supported OAuth2 identity provider
type Provider string

const (
	ProviderGoogle    Provider = "google"
	ProviderMicrosoft Provider = "microsoft"
	ProviderGitHub    Provider = "github"
	ProviderFacebook  Provider = "facebook"
)

// ParseProvider converts a raw string into a Provider
func ParseProvider(s string) (Provider, error) {
	if !validEnum(s, "google microsoft github facebook") {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, s)
	}
	return Provider(s), nil
}

// SocialAccount links a user to an external identity. Tokens are encrypted at rest.
type SocialAccount struct {
	ID                    string     `json:"id"`
	UserID                string     `json:"user_id"`
	Provider              Provider   `json:"provider"`
	ProviderUserID        string     `json:"provider_user_id"`
	AccessTokenEncrypted  string     `json:"-"`
	RefreshTokenEncrypted *string    `json:"-"`
	ExpiresAt             *time.Time `json:"expires_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
	DeletedAt             *time.Time `json:"-"`
	Signature             string     `json:"-"`
}

func (a *SocialAccount) HasRefreshToken() bool {
	return a.RefreshTokenEncrypted != nil && *a.RefreshTokenEncrypted != ""
}

// IsExpired follows the token store policy: no expiry means never expired
func (a *SocialAccount) IsExpired(now time.Time) bool {
	return a.ExpiresAt != nil && !a.ExpiresAt.After(now)
}

func (a *SocialAccount) IsExpiringSoon(now time.Time, within time.Duration) bool {
	if a.ExpiresAt == nil || a.IsExpired(now) {
		return false
	}
	return !a.ExpiresAt.Add(-within).After(now)
}

func (a *SocialAccount) SigningFields() []any {
	var refresh any
	if a.RefreshTokenEncrypted != nil {
		refresh = *a.RefreshTokenEncrypted
	}
	return []any{
		a.UserID, string(a.Provider), a.ProviderUserID,
		a.AccessTokenEncrypted, refresh, signTime(a.ExpiresAt),
	}
}
