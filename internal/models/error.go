package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Validation errors. All of them match errors.Is(err, ErrValidation).
	ErrValidation          = errors.New("validation failed")
	ErrInvalidAuthMethod   = fmt.Errorf("%w: invalid auth method", ErrValidation)
	ErrInvalidTokenType    = fmt.Errorf("%w: invalid token type", ErrValidation)
	ErrInvalidMfaMethod    = fmt.Errorf("%w: invalid mfa method", ErrValidation)
	ErrUnsupportedProvider = fmt.Errorf("%w: unsupported oauth provider", ErrValidation)

	// Configuration errors surface at the point of use
	ErrOAuthNotConfigured   = errors.New("oauth provider is not configured")
	ErrChannelNotConfigured = errors.New("mfa delivery channel is not configured")

	// External dependency failures
	ErrOAuthRequestFailed = errors.New("oauth provider request failed")
	ErrInvalidOAuthState  = errors.New("invalid oauth state")
)
