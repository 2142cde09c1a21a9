package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Enum Validation Tests
// ============================================================================

func TestNewAuthMethod_RejectsUnknownMethod(t *testing.T) {
	m, err := NewAuthMethod("user-1", AuthMethodType("carrier-pigeon"), nil)
	assert.Nil(t, m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidAuthMethod))
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestNewAuthMethod_AcceptsAllKnownMethods(t *testing.T) {
	for _, method := range []AuthMethodType{MethodPassword, MethodTOTP, MethodSMS, MethodEmail, MethodSocial} {
		m, err := NewAuthMethod("user-1", method, map[string]any{"k": "v"})
		require.NoError(t, err, method)
		assert.True(t, m.Enabled)
		assert.Equal(t, method, m.Method)
	}
}

func TestNewAuthToken_RejectsUnknownType(t *testing.T) {
	_, err := NewAuthToken("user-1", TokenType("bearer"))
	assert.ErrorIs(t, err, ErrInvalidTokenType)

	_, err = NewAuthToken("user-1", TokenType(""))
	assert.ErrorIs(t, err, ErrInvalidTokenType)
}

func TestParseMfaMethod(t *testing.T) {
	m, err := ParseMfaMethod("sms")
	require.NoError(t, err)
	assert.Equal(t, MfaSMS, m)
	assert.Equal(t, MethodSMS, m.AuthMethod())

	_, err = ParseMfaMethod("password")
	assert.ErrorIs(t, err, ErrInvalidMfaMethod)
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider("github")
	require.NoError(t, err)
	assert.Equal(t, ProviderGitHub, p)

	_, err = ParseProvider("myspace")
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}

// ============================================================================
// Expiry Policy Tests
// ============================================================================

func TestAuthToken_IsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Hour)

	tests := []struct {
		name      string
		expiresAt *time.Time
		expected  bool
	}{
		{"no expiry never expires", nil, false},
		{"expiry equal to now is expired", &now, true},
		{"past expiry is expired", &past, true},
		{"future expiry is live", &future, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := &AuthToken{ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.expected, tok.IsExpired(now))
		})
	}
}

func TestAuthToken_NullExpiryNeverExpires(t *testing.T) {
	tok := &AuthToken{}
	assert.False(t, tok.IsExpired(time.Now().AddDate(100, 0, 0)))
	assert.False(t, tok.IsExpiringSoon(time.Now(), 24*time.Hour))
}

func TestAuthToken_IsExpiringSoon(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	in10 := now.Add(10 * time.Minute)
	in2h := now.Add(2 * time.Hour)
	past := now.Add(-time.Minute)

	assert.True(t, (&AuthToken{ExpiresAt: &in10}).IsExpiringSoon(now, 15*time.Minute))
	assert.False(t, (&AuthToken{ExpiresAt: &in2h}).IsExpiringSoon(now, 15*time.Minute))
	assert.False(t, (&AuthToken{ExpiresAt: &past}).IsExpiringSoon(now, 15*time.Minute), "expired is not expiring soon")
}

func TestAuthToken_Can(t *testing.T) {
	tok := &AuthToken{Abilities: []string{"read"}}
	assert.True(t, tok.Can("read"))
	assert.False(t, tok.Can("write"))

	wildcard := &AuthToken{Abilities: []string{"*"}}
	assert.True(t, wildcard.Can("anything"))
}

func TestSocialAccount_ExpiryMirrorsTokenPolicy(t *testing.T) {
	now := time.Now()
	soon := now.Add(5 * time.Minute)

	acct := &SocialAccount{}
	assert.False(t, acct.IsExpired(now))

	acct.ExpiresAt = &soon
	assert.False(t, acct.IsExpired(now))
	assert.True(t, acct.IsExpiringSoon(now, 10*time.Minute))
	assert.False(t, acct.HasRefreshToken())

	empty := ""
	acct.RefreshTokenEncrypted = &empty
	assert.False(t, acct.HasRefreshToken())
}

// ============================================================================
// Activity Classification Tests
// ============================================================================

func TestTrustedDevice_ActivityStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		age      time.Duration
		expected string
	}{
		{time.Hour, ActivityLastDay},
		{24 * time.Hour, ActivityLastDay},
		{3 * 24 * time.Hour, ActivityLastWeek},
		{20 * 24 * time.Hour, ActivityLastMonth},
		{45 * 24 * time.Hour, ActivityInactive},
	}

	for _, tt := range tests {
		d := &TrustedDevice{LastUsedAt: now.Add(-tt.age)}
		assert.Equal(t, tt.expected, d.ActivityStatus(now), tt.age.String())
	}
}

func TestSession_Status(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &Session{LastActivity: now.Add(-30 * time.Minute)}
	assert.Equal(t, SessionActive, s.Status(now, time.Hour, 24*time.Hour))

	s.LastActivity = now.Add(-5 * time.Hour)
	assert.Equal(t, SessionInactive, s.Status(now, time.Hour, 24*time.Hour))

	s.LastActivity = now.Add(-48 * time.Hour)
	assert.Equal(t, SessionExpired, s.Status(now, time.Hour, 24*time.Hour))
}

// ============================================================================
// Signing Field Tests
// ============================================================================

func TestSigningFields_TimestampsNormalizedToMicroseconds(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.FixedZone("X", 3600))
	d := &TrustedDevice{LastUsedAt: at}
	fields := d.SigningFields()
	assert.Equal(t, "2026-03-01T11:00:00.123456Z", fields[len(fields)-1])
}

func TestSigningFields_NilAbilitiesMatchEmpty(t *testing.T) {
	a := &AuthToken{Abilities: nil}
	b := &AuthToken{Abilities: []string{}}
	assert.Equal(t, a.SigningFields(), b.SigningFields())
}

func TestRequestContext_Header(t *testing.T) {
	var empty RequestContext
	assert.Equal(t, "", empty.Header("Accept"))

	rc := RequestContext{Headers: map[string][]string{"Accept-Language": {"en-US"}}}
	assert.Equal(t, "en-US", rc.Header("accept-language"))
}

func TestUnknownLocation(t *testing.T) {
	loc := UnknownLocation()
	assert.Equal(t, Location{Country: "Unknown", Region: "Unknown", City: "Unknown"}, loc)
}
