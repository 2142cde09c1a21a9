package auth

import (
	"crypto/hmac"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pquerna/otp"
	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSecretLength is the number of base32 symbols in a generated secret (160 bits)
const DefaultSecretLength = 32

// TOTPOptions controls code generation and verification
type TOTPOptions struct {
	Period    time.Duration
	Digits    otp.Digits
	Algorithm otp.Algorithm
	Window    int // accepted steps on either side of the current one
}

// DefaultTOTPOptions matches what standard authenticator apps expect:
// 30 second period, 6 digits, SHA1, one step of drift either way.
func DefaultTOTPOptions() TOTPOptions {
	return TOTPOptions{
		Period:    30 * time.Second,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
		Window:    1,
	}
}

func (o TOTPOptions) normalized() TOTPOptions {
	if o.Period <= 0 {
		o.Period = 30 * time.Second
	}
	if o.Digits <= 0 {
		o.Digits = otp.DigitsSix
	}
	if o.Window < 0 {
		o.Window = 0
	}
	return o
}

// TOTPEngine generates and verifies RFC6238 time-based codes
type TOTPEngine struct {
	now func() time.Time
}

// NewTOTPEngine creates an engine using the wall clock
func NewTOTPEngine() *TOTPEngine {
	return &TOTPEngine{now: time.Now}
}

// NewTOTPEngineWithClock creates an engine reading time from now
func NewTOTPEngineWithClock(now func() time.Time) *TOTPEngine {
	return &TOTPEngine{now: now}
}

// GenerateSecret returns length random symbols from the base32 alphabet
func (e *TOTPEngine) GenerateSecret(length int) (string, error) {
	if length <= 0 {
		length = DefaultSecretLength
	}
	secret, err := RandomString(Base32Alphabet, length)
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP secret: %w", err)
	}
	return secret, nil
}

// Code computes the HOTP value for a time step (RFC4226 dynamic truncation)
func (e *TOTPEngine) Code(secret string, step int64, digits otp.Digits, alg otp.Algorithm) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(step))

	mac := hmac.New(alg.Hash, DecodeBase32(secret))
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	value := int64(binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff)
	value %= int64(math.Pow10(digits.Length()))

	return digits.Format(int32(value))
}

// CodeAt computes the code for the step containing t
func (e *TOTPEngine) CodeAt(secret string, t time.Time, opts TOTPOptions) string {
	opts = opts.normalized()
	return e.Code(secret, timeStep(t, opts.Period), opts.Digits, opts.Algorithm)
}

// Verify checks a submitted code against the current time
func (e *TOTPEngine) Verify(secret, code string, opts TOTPOptions) bool {
	return e.VerifyAt(secret, code, e.now(), opts)
}

// VerifyAt checks a submitted code against steps [-Window, +Window] around t.
// Each candidate is compared in constant time.
func (e *TOTPEngine) VerifyAt(secret, code string, t time.Time, opts TOTPOptions) bool {
	opts = opts.normalized()
	code = strings.TrimSpace(code)
	if len(code) != opts.Digits.Length() {
		return false
	}

	step := timeStep(t, opts.Period)
	for i := -opts.Window; i <= opts.Window; i++ {
		candidate := e.Code(secret, step+int64(i), opts.Digits, opts.Algorithm)
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(code)) == 1 {
			return true
		}
	}
	return false
}

// ProvisioningURI builds the otpauth:// URI authenticator apps scan
func (e *TOTPEngine) ProvisioningURI(issuer, account, secret string, opts TOTPOptions) string {
	opts = opts.normalized()
	label := rawURLEncode(issuer) + ":" + rawURLEncode(account)

	var b strings.Builder
	b.WriteString("otpauth://totp/")
	b.WriteString(label)
	b.WriteString("?secret=")
	b.WriteString(secret)
	b.WriteString("&issuer=")
	b.WriteString(rawURLEncode(issuer))
	b.WriteString("&algorithm=")
	b.WriteString(opts.Algorithm.String())
	b.WriteString("&digits=")
	b.WriteString(strconv.Itoa(opts.Digits.Length()))
	b.WriteString("&period=")
	b.WriteString(strconv.FormatInt(int64(opts.Period/time.Second), 10))
	return b.String()
}

// QRCodeDataURL renders content as a PNG data URL
func QRCodeDataURL(content string) (string, error) {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to create QR code: %w", err)
	}

	png, err := qr.PNG(256)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

func timeStep(t time.Time, period time.Duration) int64 {
	return int64(math.Floor(float64(t.Unix()) / period.Seconds()))
}

// rawURLEncode percent-encodes everything but unreserved characters, spaces as %20
func rawURLEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
