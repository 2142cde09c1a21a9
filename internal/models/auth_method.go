package models

import (
	"fmt"
	"time"
)

// AuthMethodType enumerates the ways a user can authenticate
type AuthMethodType string

const (
	MethodPassword AuthMethodType = "password"
	MethodTOTP     AuthMethodType = "totp"
	MethodSMS      AuthMethodType = "sms"
	MethodEmail    AuthMethodType = "email"
	MethodSocial   AuthMethodType = "social"
)

// ParseAuthMethod converts a raw string into an AuthMethodType
func ParseAuthMethod(s string) (AuthMethodType, error) {
	if !validEnum(s, "password totp sms email social") {
		return "", fmt.Errorf("%w: %q", ErrInvalidAuthMethod, s)
	}
	return AuthMethodType(s), nil
}

// AuthMethod records which authentication methods a user has enabled
type AuthMethod struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Method     AuthMethodType `json:"method"`
	Enabled    bool           `json:"enabled"`
	Config     map[string]any `json:"config,omitempty"`
	LastUsedAt *time.Time     `json:"last_used_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  *time.Time     `json:"-"`
	Signature  string         `json:"-"`
}

// NewAuthMethod builds an enabled AuthMethod, rejecting unknown methods
func NewAuthMethod(userID string, method AuthMethodType, config map[string]any) (*AuthMethod, error) {
	if _, err := ParseAuthMethod(string(method)); err != nil {
		return nil, err
	}
	return &AuthMethod{
		UserID:  userID,
		Method:  method,
		Enabled: true,
		Config:  config,
	}, nil
}

func (m *AuthMethod) SigningFields() []any {
	return []any{m.UserID, string(m.Method), m.Enabled, m.Config, signTime(m.LastUsedAt)}
}
