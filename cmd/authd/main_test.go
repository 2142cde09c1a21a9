package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pquerna/otp"
	"github.com/stretchr/testify/assert"
)

type MockHealthChecker struct {
	Err error
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	return m.Err
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"database up", nil, http.StatusOK, `{"status":"healthy","database":"up"}`},
		{"database down", errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable,
			`{"error":"service_unavailable","message":"database unavailable"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			healthHandler(&MockHealthChecker{Err: tt.err})(w, httptest.NewRequest("GET", "/health", nil))

			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
			assert.NotContains(t, w.Body.String(), "connection refused")
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestTOTPAlgorithm(t *testing.T) {
	assert.Equal(t, otp.AlgorithmSHA256, totpAlgorithm("sha256"))
	assert.Equal(t, otp.AlgorithmSHA1, totpAlgorithm(""))
}
