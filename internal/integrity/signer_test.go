package integrity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return []byte(strings.Repeat("k", MinKeyLength))
}

func TestNewSigner_RejectsShortKey(t *testing.T) {
	s, err := NewSigner([]byte("short"))
	assert.Nil(t, s)
	assert.Error(t, err)
}

func TestSigner_SignIsDeterministic(t *testing.T) {
	s, err := NewSigner(testKey())
	require.NoError(t, err)

	a, err := s.Sign("trusted_devices", []any{"user-1", "fp", nil})
	require.NoError(t, err)
	b, err := s.Sign("trusted_devices", []any{"user-1", "fp", nil})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 128, "sha512 hex digest")
}

func TestSigner_VerifyDetectsTampering(t *testing.T) {
	s, err := NewSigner(testKey())
	require.NoError(t, err)

	fields := []any{"user-1", "hash", "2026-01-01T00:00:00Z"}
	sig, err := s.Sign("auth_tokens", fields)
	require.NoError(t, err)

	assert.True(t, s.Verify("auth_tokens", fields, sig))
	assert.False(t, s.Verify("auth_tokens", []any{"user-2", "hash", "2026-01-01T00:00:00Z"}, sig))
	assert.False(t, s.Verify("sessions", fields, sig), "signature is bound to the table")
	assert.False(t, s.Verify("auth_tokens", fields, ""))
}

func TestSigner_DifferentKeysDisagree(t *testing.T) {
	a, _ := NewSigner(testKey())
	b, _ := NewSigner([]byte(strings.Repeat("z", MinKeyLength)))

	sig, err := a.Sign("t", []any{"x"})
	require.NoError(t, err)
	assert.False(t, b.Verify("t", []any{"x"}, sig))
}

func TestSigner_UnencodableFieldFails(t *testing.T) {
	s, _ := NewSigner(testKey())
	_, err := s.Sign("t", []any{make(chan int)})
	assert.Error(t, err)
	assert.False(t, s.Verify("t", []any{make(chan int)}, "anything"))
}
