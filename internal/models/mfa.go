package models

import (
	"fmt"
	"time"
)

// MfaMethod enumerates second factors that carry a per-user secret
type MfaMethod string

const (
	MfaTOTP  MfaMethod = "totp"
	MfaSMS   MfaMethod = "sms"
	MfaEmail MfaMethod = "email"
)

// ParseMfaMethod converts a raw string into an MfaMethod
func ParseMfaMethod(s string) (MfaMethod, error) {
	if !validEnum(s, "totp sms email") {
		return "", fmt.Errorf("%w: %q", ErrInvalidMfaMethod, s)
	}
	return MfaMethod(s), nil
}

// AuthMethod maps the MFA method onto the matching auth method
func (m MfaMethod) AuthMethod() AuthMethodType {
	return AuthMethodType(m)
}

// MfaConfig holds the encrypted secret for one (user, method) pair
type MfaConfig struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Method          MfaMethod  `json:"method"`
	SecretEncrypted string     `json:"-"` // AES-256-GCM, base64(nonce||ciphertext)
	Phone           *string    `json:"phone,omitempty"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"-"`
	Signature       string     `json:"-"`
}

// NewMfaConfig builds an unverified MfaConfig, rejecting unknown methods
func NewMfaConfig(userID string, method MfaMethod) (*MfaConfig, error) {
	if _, err := ParseMfaMethod(string(method)); err != nil {
		return nil, err
	}
	return &MfaConfig{UserID: userID, Method: method}, nil
}

// IsVerified reports whether the user completed enrollment for this method
func (c *MfaConfig) IsVerified() bool {
	return c.VerifiedAt != nil
}

func (c *MfaConfig) SigningFields() []any {
	var phone any
	if c.Phone != nil {
		phone = *c.Phone
	}
	return []any{c.UserID, string(c.Method), c.SecretEncrypted, phone, signTime(c.VerifiedAt)}
}

// MfaBackupCode is one hashed single-use recovery code
type MfaBackupCode struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	CodeHash  string     `json:"-"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"`
	Signature string     `json:"-"`
}

func (c *MfaBackupCode) IsUsed() bool {
	return c.UsedAt != nil
}

func (c *MfaBackupCode) SigningFields() []any {
	return []any{c.UserID, c.CodeHash, signTime(c.UsedAt)}
}

// BackupCodeStats summarizes the current backup code batch for a user
type BackupCodeStats struct {
	Total             int  `json:"total"`
	Used              int  `json:"used"`
	Unused            int  `json:"unused"`
	NeedsRegeneration bool `json:"needs_regeneration"`
}

// TOTPSetup contains what a client needs to enroll an authenticator app
type TOTPSetup struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
	QRCode          string `json:"qr_code"` // PNG data URL
}
