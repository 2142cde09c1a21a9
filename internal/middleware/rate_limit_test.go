package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/autentica/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestFrom(remoteAddr, forwardedFor string) *http.Request {
	req := httptest.NewRequest("GET", "/health", nil)
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	return req
}

// ============================================================================
// RateLimitByIP
// ============================================================================

func TestRateLimitByIP_BlocksAfterLimit(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 3}, nil)(okHandler())

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestFrom("203.0.113.10:1000", ""))
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom("203.0.113.10:1000", ""))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "rate_limit_exceeded", resp.Error)
}

func TestRateLimitByIP_SeparateBucketsPerIP(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 1}, nil)(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom("203.0.113.10:1000", ""))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom("203.0.113.11:1000", ""))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitByIP_IgnoresSpoofedForwardedFor(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 1}, &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}})(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom("203.0.113.10:1000", "198.51.100.1"))
	require.Equal(t, http.StatusOK, w.Code)

	// a rotating header from an untrusted peer does not open a fresh bucket
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom("203.0.113.10:1000", "198.51.100.2"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimitByIP_TrustedProxyKeysByClient(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 1}, &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}})(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom("10.0.0.5:1000", "198.51.100.1"))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom("10.0.0.5:1000", "198.51.100.2"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDefaultOpsRateLimit(t *testing.T) {
	assert.Equal(t, 120, DefaultOpsRateLimit().RequestsPerMinute)
}
