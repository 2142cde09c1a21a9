package repositories

import (
	"context"
	"time"

	"github.com/BradenHooton/autentica/internal/models"
)

// TokenFilter narrows FindActive. Prefix is required; Type is optional.
type TokenFilter struct {
	Type   *models.TokenType
	Prefix string
	Now    time.Time
}

// TokenRepository defines data access for opaque auth tokens
type TokenRepository interface {
	// Create stores a new token row
	Create(ctx context.Context, token *models.AuthToken) error

	// FindByID returns live and expired tokens but never tombstoned ones
	FindByID(ctx context.Context, id string) (*models.AuthToken, error)

	// FindActive returns unexpired, non-deleted tokens whose prefix matches
	FindActive(ctx context.Context, filter TokenFilter) ([]*models.AuthToken, error)

	// ListByUser returns every non-deleted token of a user, newest first
	ListByUser(ctx context.Context, userID string, tokenType *models.TokenType) ([]*models.AuthToken, error)

	// Update re-signs and persists expiry, usage and metadata
	Update(ctx context.Context, token *models.AuthToken) error

	// SoftDeleteForUser tombstones one token, scoped to its owner
	SoftDeleteForUser(ctx context.Context, userID, id string) (bool, error)

	// DeleteByUser tombstones all of a user's tokens, optionally of one type
	DeleteByUser(ctx context.Context, userID string, tokenType *models.TokenType) (int64, error)

	// DeleteExpired hard-deletes rows expired at now
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	VerifySignatures(ctx context.Context) ([]string, error)
}
