package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rfcSecretSHA1   = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"
	rfcSecretSHA256 = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQGEZA===="
	rfcSecretSHA512 = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQGEZDGNA="
)

func fixedClock(unix int64) func() time.Time {
	return func() time.Time { return time.Unix(unix, 0) }
}

// ============================================================================
// Code Generation Tests (RFC6238 Appendix B)
// ============================================================================

func TestTOTPEngine_Code_RFC6238Vectors(t *testing.T) {
	engine := NewTOTPEngine()

	tests := []struct {
		unix   int64
		sha1   string
		sha256 string
		sha512 string
	}{
		{59, "94287082", "46119246", "90693936"},
		{1111111109, "07081804", "68084774", "25091201"},
		{1111111111, "14050471", "67062674", "99943326"},
		{1234567890, "89005924", "91819424", "93441116"},
		{2000000000, "69279037", "90698825", "38618901"},
		{20000000000, "65353130", "77737706", "47863826"},
	}

	for _, tt := range tests {
		step := tt.unix / 30
		assert.Equal(t, tt.sha1, engine.Code(rfcSecretSHA1, step, otp.DigitsEight, otp.AlgorithmSHA1), "sha1 @%d", tt.unix)
		assert.Equal(t, tt.sha256, engine.Code(rfcSecretSHA256, step, otp.DigitsEight, otp.AlgorithmSHA256), "sha256 @%d", tt.unix)
		assert.Equal(t, tt.sha512, engine.Code(rfcSecretSHA512, step, otp.DigitsEight, otp.AlgorithmSHA512), "sha512 @%d", tt.unix)
	}
}

func TestTOTPEngine_Code_MatchesPquernaReference(t *testing.T) {
	engine := NewTOTPEngine()
	secret, err := engine.GenerateSecret(32)
	require.NoError(t, err)

	at := time.Unix(1700000000, 0)
	expected, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)

	assert.Equal(t, expected, engine.CodeAt(secret, at, DefaultTOTPOptions()))
}

func TestTOTPEngine_Code_IsDeterministic(t *testing.T) {
	engine := NewTOTPEngine()
	a := engine.Code("JBSWY3DPEHPK3PXP", 1000, otp.DigitsSix, otp.AlgorithmSHA1)
	b := engine.Code("JBSWY3DPEHPK3PXP", 1000, otp.DigitsSix, otp.AlgorithmSHA1)
	far := engine.Code("JBSWY3DPEHPK3PXP", 500000, otp.DigitsSix, otp.AlgorithmSHA1)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, far)
	assert.Len(t, a, 6)
}

// ============================================================================
// Verification Tests
// ============================================================================

func TestTOTPEngine_Verify_KnownSecretAtFixedTime(t *testing.T) {
	engine := NewTOTPEngineWithClock(fixedClock(1700000000))

	assert.True(t, engine.Verify("JBSWY3DPEHPK3PXP", "324550", DefaultTOTPOptions()))
	assert.False(t, engine.Verify("JBSWY3DPEHPK3PXP", "324551", DefaultTOTPOptions()))
}

func TestTOTPEngine_Verify_WindowToleratesOneStep(t *testing.T) {
	engine := NewTOTPEngineWithClock(fixedClock(1700000000))
	previous := "822542" // code for step-1

	withWindow := DefaultTOTPOptions()
	assert.True(t, engine.Verify("JBSWY3DPEHPK3PXP", previous, withWindow))

	exact := DefaultTOTPOptions()
	exact.Window = 0
	assert.False(t, engine.Verify("JBSWY3DPEHPK3PXP", previous, exact))
}

func TestTOTPEngine_Verify_RejectsOutsideWindow(t *testing.T) {
	engine := NewTOTPEngineWithClock(fixedClock(1700000000))
	twoStepsBack := "968785"

	assert.False(t, engine.Verify("JBSWY3DPEHPK3PXP", twoStepsBack, DefaultTOTPOptions()))
}

func TestTOTPEngine_Verify_RejectsWrongLength(t *testing.T) {
	engine := NewTOTPEngineWithClock(fixedClock(1700000000))

	assert.False(t, engine.Verify("JBSWY3DPEHPK3PXP", "", DefaultTOTPOptions()))
	assert.False(t, engine.Verify("JBSWY3DPEHPK3PXP", "32455", DefaultTOTPOptions()))
	assert.False(t, engine.Verify("JBSWY3DPEHPK3PXP", "3245500", DefaultTOTPOptions()))
}

func TestTOTPEngine_Verify_ZeroOptionsUseDefaults(t *testing.T) {
	engine := NewTOTPEngineWithClock(fixedClock(1700000000))
	assert.True(t, engine.Verify("JBSWY3DPEHPK3PXP", "324550", TOTPOptions{}))
}

func TestTOTPEngine_Verify_LenientSecretFormatting(t *testing.T) {
	engine := NewTOTPEngineWithClock(fixedClock(1700000000))
	assert.True(t, engine.Verify("jbsw-y3dp ehpk-3pxp", "324550", DefaultTOTPOptions()))
}

// ============================================================================
// Secret Generation Tests
// ============================================================================

func TestTOTPEngine_GenerateSecret_Alphabet(t *testing.T) {
	engine := NewTOTPEngine()

	secret, err := engine.GenerateSecret(32)
	require.NoError(t, err)
	assert.Len(t, secret, 32)
	for _, c := range secret {
		assert.True(t, strings.ContainsRune(Base32Alphabet, c), "unexpected symbol %q", c)
	}

	other, err := engine.GenerateSecret(32)
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)
}

func TestTOTPEngine_GenerateSecret_DefaultLength(t *testing.T) {
	secret, err := NewTOTPEngine().GenerateSecret(0)
	require.NoError(t, err)
	assert.Len(t, secret, DefaultSecretLength)
}

// ============================================================================
// Provisioning Tests
// ============================================================================

func TestTOTPEngine_ProvisioningURI_ParsesWithOtpLibrary(t *testing.T) {
	engine := NewTOTPEngine()
	uri := engine.ProvisioningURI("Autentica Pro", "alice@example.com", "JBSWY3DPEHPK3PXP", DefaultTOTPOptions())

	assert.True(t, strings.HasPrefix(uri, "otpauth://totp/Autentica%20Pro:alice%40example.com?"))
	assert.Contains(t, uri, "secret=JBSWY3DPEHPK3PXP")
	assert.Contains(t, uri, "algorithm=SHA1")
	assert.Contains(t, uri, "digits=6")
	assert.Contains(t, uri, "period=30")

	key, err := otp.NewKeyFromURL(uri)
	require.NoError(t, err)
	assert.Equal(t, "totp", key.Type())
	assert.Equal(t, "Autentica Pro", key.Issuer())
	assert.Equal(t, "alice@example.com", key.AccountName())
	assert.Equal(t, "JBSWY3DPEHPK3PXP", key.Secret())
	assert.Equal(t, uint64(30), key.Period())
}

func TestQRCodeDataURL(t *testing.T) {
	url, err := QRCodeDataURL("otpauth://totp/x:y?secret=JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
	assert.Greater(t, len(url), 100)
}
