package http_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/autentica/internal/models"
	pkghttp "github.com/BradenHooton/autentica/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) pkghttp.ErrorResponse {
	t.Helper()
	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteError(w, 400, "test_error", "Test message")

	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	resp := decodeError(t, w)
	assert.Equal(t, "test_error", resp.Error)
	assert.Equal(t, "Test message", resp.Message)
	assert.Empty(t, resp.Details)
}

func TestWriteErrorWithDetails(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteErrorWithDetails(w, 400, "test_error", "Test message", "Additional details")

	resp := decodeError(t, w)
	assert.Equal(t, "Additional details", resp.Details)
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter, string)
		status int
		code   string
	}{
		{"bad request", pkghttp.WriteBadRequest, 400, "bad_request"},
		{"not found", pkghttp.WriteNotFound, 404, "not_found"},
		{"conflict", pkghttp.WriteConflict, 409, "conflict"},
		{"too many requests", pkghttp.WriteTooManyRequests, 429, "rate_limit_exceeded"},
		{"internal", pkghttp.WriteInternalError, 500, "internal_error"},
		{"unavailable", pkghttp.WriteServiceUnavailable, 503, "service_unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w, "message")

			assert.Equal(t, tt.status, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.code, resp.Error)
			assert.Equal(t, "message", resp.Message)
		})
	}
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", models.ErrInvalidMfaMethod, 400, "bad_request"},
		{"wrapped validation", fmt.Errorf("enroll: %w", models.ErrUnsupportedProvider), 400, "bad_request"},
		{"oauth state", models.ErrInvalidOAuthState, 400, "bad_request"},
		{"not found", models.ErrNotFound, 404, "not_found"},
		{"conflict", models.ErrConflict, 409, "conflict"},
		{"oauth not configured", models.ErrOAuthNotConfigured, 501, "not_configured"},
		{"channel not configured", models.ErrChannelNotConfigured, 501, "not_configured"},
		{"upstream", fmt.Errorf("%w: status 500", models.ErrOAuthRequestFailed), 502, "upstream_error"},
		{"unknown", errors.New("pq: connection refused"), 500, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			pkghttp.WriteServiceError(w, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Error)
		})
	}
}

func TestWriteServiceError_HidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteServiceError(w, errors.New("password=hunter2 host=db"))

	assert.NotContains(t, w.Body.String(), "hunter2")
}
