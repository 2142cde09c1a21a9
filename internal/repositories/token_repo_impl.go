package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/autentica/internal/database"
	"github.com/BradenHooton/autentica/internal/integrity"
	"github.com/BradenHooton/autentica/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// TokenRepositoryImpl implements TokenRepository
type TokenRepositoryImpl struct {
	base
}

// NewTokenRepository creates a new token repository
func NewTokenRepository(db *database.DB, signer *integrity.Signer) TokenRepository {
	return &TokenRepositoryImpl{base{db: db, signer: signer}}
}

const tokenColumns = `id, user_id, token_hash, token_prefix, type, name, abilities, expires_at, last_used_at, created_at, updated_at, deleted_at, signature`

// scanTokenRow scans an auth token from a database row
func scanTokenRow(scanner rowScanner) (*models.AuthToken, error) {
	t := &models.AuthToken{}
	err := scanner.Scan(
		&t.ID,
		&t.UserID,
		&t.TokenHash,
		&t.TokenPrefix,
		&t.Type,
		&t.Name,
		pq.Array(&t.Abilities),
		&t.ExpiresAt,
		&t.LastUsedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.DeletedAt,
		&t.Signature,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	if t.Abilities == nil {
		t.Abilities = []string{}
	}
	return t, nil
}

func (r *TokenRepositoryImpl) queryTokens(ctx context.Context, query string, args ...any) ([]*models.AuthToken, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tokens := make([]*models.AuthToken, 0)
	for rows.Next() {
		t, err := scanTokenRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		tokens = append(tokens, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tokens: %w", err)
	}

	return tokens, nil
}

// Create inserts a new token
func (r *TokenRepositoryImpl) Create(ctx context.Context, token *models.AuthToken) error {
	if token.Abilities == nil {
		token.Abilities = []string{}
	}
	sig, err := r.sign(tableAuthTokens, token)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO auth_tokens (id, user_id, token_hash, token_prefix, type, name, abilities, expires_at, last_used_at, signature)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`

	err = r.conn(ctx).QueryRow(ctx, query,
		uuid.NewString(),
		token.UserID,
		token.TokenHash,
		token.TokenPrefix,
		token.Type,
		token.Name,
		pq.Array(token.Abilities),
		token.ExpiresAt,
		token.LastUsedAt,
		sig,
	).Scan(&token.ID, &token.CreatedAt, &token.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create token: %w", database.MapPostgresError(err))
	}

	token.Signature = sig
	return nil
}

// FindByID retrieves a token by its ID
func (r *TokenRepositoryImpl) FindByID(ctx context.Context, id string) (*models.AuthToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM auth_tokens WHERE id = $1 AND deleted_at IS NULL`

	t, err := scanTokenRow(r.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	return t, nil
}

// FindActive retrieves candidate tokens by prefix
func (r *TokenRepositoryImpl) FindActive(ctx context.Context, filter TokenFilter) ([]*models.AuthToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM auth_tokens
		WHERE token_prefix = $1
		  AND deleted_at IS NULL
		  AND (expires_at IS NULL OR expires_at > $2)
		  AND ($3::text IS NULL OR type = $3)`

	var tokenType *string
	if filter.Type != nil {
		s := string(*filter.Type)
		tokenType = &s
	}

	tokens, err := r.queryTokens(ctx, query, filter.Prefix, filter.Now, tokenType)
	if err != nil {
		return nil, fmt.Errorf("failed to find active tokens: %w", err)
	}
	return tokens, nil
}

// ListByUser retrieves a user's tokens
func (r *TokenRepositoryImpl) ListByUser(ctx context.Context, userID string, tokenType *models.TokenType) ([]*models.AuthToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM auth_tokens
		WHERE user_id = $1
		  AND deleted_at IS NULL
		  AND ($2::text IS NULL OR type = $2)
		ORDER BY created_at DESC`

	var typeArg *string
	if tokenType != nil {
		s := string(*tokenType)
		typeArg = &s
	}

	tokens, err := r.queryTokens(ctx, query, userID, typeArg)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	return tokens, nil
}

// Update persists mutable token fields with a fresh signature
func (r *TokenRepositoryImpl) Update(ctx context.Context, token *models.AuthToken) error {
	if token.Abilities == nil {
		token.Abilities = []string{}
	}
	sig, err := r.sign(tableAuthTokens, token)
	if err != nil {
		return err
	}

	query := `
		UPDATE auth_tokens
		SET name = $2, abilities = $3, expires_at = $4, last_used_at = $5, signature = $6, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at
	`

	err = r.conn(ctx).QueryRow(ctx, query,
		token.ID, token.Name, pq.Array(token.Abilities), token.ExpiresAt, token.LastUsedAt, sig,
	).Scan(&token.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update token: %w", database.MapPostgresError(err))
	}

	token.Signature = sig
	return nil
}

// SoftDeleteForUser revokes one token owned by userID
func (r *TokenRepositoryImpl) SoftDeleteForUser(ctx context.Context, userID, id string) (bool, error) {
	query := `
		UPDATE auth_tokens SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`

	result, err := r.conn(ctx).Exec(ctx, query, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to revoke token: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// DeleteByUser revokes all of a user's tokens
func (r *TokenRepositoryImpl) DeleteByUser(ctx context.Context, userID string, tokenType *models.TokenType) (int64, error) {
	query := `
		UPDATE auth_tokens SET deleted_at = NOW(), updated_at = NOW()
		WHERE user_id = $1 AND deleted_at IS NULL AND ($2::text IS NULL OR type = $2)
	`

	var typeArg *string
	if tokenType != nil {
		s := string(*tokenType)
		typeArg = &s
	}

	result, err := r.conn(ctx).Exec(ctx, query, userID, typeArg)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke user tokens: %w", err)
	}
	return result.RowsAffected(), nil
}

// DeleteExpired removes tokens whose expiry has passed
func (r *TokenRepositoryImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM auth_tokens WHERE expires_at IS NOT NULL AND expires_at <= $1`

	result, err := r.conn(ctx).Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *TokenRepositoryImpl) VerifySignatures(ctx context.Context) ([]string, error) {
	return r.verifyAll(ctx, tableAuthTokens, `SELECT `+tokenColumns+` FROM auth_tokens`,
		func(s rowScanner) (signedRow, error) {
			t, err := scanTokenRow(s)
			if err != nil {
				return signedRow{}, err
			}
			return signedRow{id: t.ID, signature: t.Signature, fields: t.SigningFields()}, nil
		})
}
