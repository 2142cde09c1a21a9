package models

import (
	"fmt"
	"slices"
	"time"
)

// TokenType enumerates the kinds of opaque tokens the token store issues
type TokenType string

const (
	TokenRemember TokenType = "remember"
	TokenAPI      TokenType = "api"
	TokenSession  TokenType = "session"
)

// ParseTokenType converts a raw string into a TokenType
func ParseTokenType(s string) (TokenType, error) {
	if !validEnum(s, "remember api session") {
		return "", fmt.Errorf("%w: %q", ErrInvalidTokenType, s)
	}
	return TokenType(s), nil
}

// AuthToken is a persisted opaque token. Only the hash of the plaintext is stored.
type AuthToken struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	TokenHash   string     `json:"-"`
	TokenPrefix string     `json:"-"` // non-secret lookup narrowing, never enough to authenticate
	Type        TokenType  `json:"type"`
	Name        string     `json:"name,omitempty"`
	Abilities   []string   `json:"abilities,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"-"`
	Signature   string     `json:"-"`
}

// NewAuthToken builds an AuthToken, rejecting unknown token types
func NewAuthToken(userID string, tokenType TokenType) (*AuthToken, error) {
	if _, err := ParseTokenType(string(tokenType)); err != nil {
		return nil, err
	}
	return &AuthToken{UserID: userID, Type: tokenType}, nil
}

// IsExpired reports whether the token has passed its expiry.
// A token without expiry never expires.
func (t *AuthToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt != nil && !t.ExpiresAt.After(now)
}

// IsExpiringSoon reports whether an unexpired token expires within the window
func (t *AuthToken) IsExpiringSoon(now time.Time, within time.Duration) bool {
	if t.ExpiresAt == nil || t.IsExpired(now) {
		return false
	}
	return !t.ExpiresAt.Add(-within).After(now)
}

// Can reports whether the token grants an ability. "*" grants everything.
func (t *AuthToken) Can(ability string) bool {
	return slices.Contains(t.Abilities, "*") || slices.Contains(t.Abilities, ability)
}

func (t *AuthToken) SigningFields() []any {
	abilities := t.Abilities
	if abilities == nil {
		abilities = []string{}
	}
	return []any{
		t.UserID, t.TokenHash, t.TokenPrefix, string(t.Type), t.Name, abilities,
		signTime(t.ExpiresAt), signTime(t.LastUsedAt),
	}
}

// IssuedToken is returned exactly once, at issuance. Plaintext is not recoverable afterwards.
type IssuedToken struct {
	TokenID   string     `json:"token_id"`
	Plaintext string     `json:"token"`
	Type      TokenType  `json:"type"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
