package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/BradenHooton/autentica/internal/models"
)

// ErrorResponse represents a standard API error response
type ErrorResponse struct {
	Error   string `json:"error"`             // Machine-readable error code
	Message string `json:"message"`           // Human-readable message
	Details string `json:"details,omitempty"` // Optional additional context
}

// WriteJSON writes v as a JSON body with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	WriteErrorWithDetails(w, statusCode, errorCode, message, "")
}

// WriteErrorWithDetails writes a JSON error response with additional details
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, errorCode, message, details string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
		Details: details,
	})
}

// WriteServiceError maps an error returned by the services layer to a status.
// Unknown errors become a 500 without leaking their text.
func WriteServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrBadRequest), errors.Is(err, models.ErrInvalidOAuthState):
		WriteBadRequest(w, err.Error())
	case errors.Is(err, models.ErrNotFound):
		WriteNotFound(w, "resource not found")
	case errors.Is(err, models.ErrConflict):
		WriteConflict(w, "resource already exists")
	case errors.Is(err, models.ErrOAuthNotConfigured), errors.Is(err, models.ErrChannelNotConfigured):
		WriteError(w, http.StatusNotImplemented, "not_configured", err.Error())
	case errors.Is(err, models.ErrOAuthRequestFailed):
		WriteError(w, http.StatusBadGateway, "upstream_error", "identity provider request failed")
	default:
		WriteInternalError(w, "internal server error")
	}
}

// Common error writers for consistency
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message)
}

func WriteConflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, "conflict", message)
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", message)
}

func WriteServiceUnavailable(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusServiceUnavailable, "service_unavailable", message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message)
}
