package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/autentica/internal/database"
	"github.com/BradenHooton/autentica/internal/integrity"
	"github.com/BradenHooton/autentica/internal/models"
	"github.com/google/uuid"
)

// SocialAccountRepository defines data access for linked OAuth identities
type SocialAccountRepository interface {
	// Upsert links or relinks the (user, provider) identity
	Upsert(ctx context.Context, account *models.SocialAccount) error
	FindByUserAndProvider(ctx context.Context, userID string, provider models.Provider) (*models.SocialAccount, error)
	ListByUser(ctx context.Context, userID string) ([]*models.SocialAccount, error)
	Update(ctx context.Context, account *models.SocialAccount) error
	Delete(ctx context.Context, userID string, provider models.Provider) (bool, error)
	VerifySignatures(ctx context.Context) ([]string, error)
}

type socialAccountRepository struct {
	base
}

func NewSocialAccountRepository(db *database.DB, signer *integrity.Signer) SocialAccountRepository {
	return &socialAccountRepository{base{db: db, signer: signer}}
}

const socialAccountColumns = `id, user_id, provider, provider_user_id, access_token_encrypted, refresh_token_encrypted, expires_at, created_at, updated_at, deleted_at, signature`

func scanSocialAccountRow(scanner rowScanner) (*models.SocialAccount, error) {
	a := &models.SocialAccount{}
	err := scanner.Scan(
		&a.ID, &a.UserID, &a.Provider, &a.ProviderUserID,
		&a.AccessTokenEncrypted, &a.RefreshTokenEncrypted, &a.ExpiresAt,
		&a.CreatedAt, &a.UpdatedAt, &a.DeletedAt, &a.Signature,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return a, nil
}

func (r *socialAccountRepository) Upsert(ctx context.Context, account *models.SocialAccount) error {
	sig, err := r.sign(tableSocialAccounts, account)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO social_accounts (id, user_id, provider, provider_user_id, access_token_encrypted, refresh_token_encrypted, expires_at, signature)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			provider_user_id = EXCLUDED.provider_user_id,
			access_token_encrypted = EXCLUDED.access_token_encrypted,
			refresh_token_encrypted = EXCLUDED.refresh_token_encrypted,
			expires_at = EXCLUDED.expires_at,
			signature = EXCLUDED.signature,
			deleted_at = NULL,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err = r.conn(ctx).QueryRow(ctx, query,
		uuid.NewString(), account.UserID, account.Provider, account.ProviderUserID,
		account.AccessTokenEncrypted, account.RefreshTokenEncrypted, account.ExpiresAt, sig,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert social account: %w", database.MapPostgresError(err))
	}

	account.Signature = sig
	account.DeletedAt = nil
	return nil
}

func (r *socialAccountRepository) FindByUserAndProvider(ctx context.Context, userID string, provider models.Provider) (*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + ` FROM social_accounts
		WHERE user_id = $1 AND provider = $2 AND deleted_at IS NULL`

	a, err := scanSocialAccountRow(r.conn(ctx).QueryRow(ctx, query, userID, provider))
	if err != nil {
		return nil, fmt.Errorf("failed to find social account: %w", err)
	}
	return a, nil
}

func (r *socialAccountRepository) ListByUser(ctx context.Context, userID string) ([]*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + ` FROM social_accounts
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at`

	rows, err := r.conn(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list social accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*models.SocialAccount, 0)
	for rows.Next() {
		a, err := scanSocialAccountRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan social account: %w", err)
		}
		accounts = append(accounts, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating social accounts: %w", err)
	}

	return accounts, nil
}

func (r *socialAccountRepository) Update(ctx context.Context, account *models.SocialAccount) error {
	sig, err := r.sign(tableSocialAccounts, account)
	if err != nil {
		return err
	}

	query := `
		UPDATE social_accounts
		SET access_token_encrypted = $2, refresh_token_encrypted = $3, expires_at = $4, signature = $5, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at
	`

	err = r.conn(ctx).QueryRow(ctx, query,
		account.ID, account.AccessTokenEncrypted, account.RefreshTokenEncrypted, account.ExpiresAt, sig,
	).Scan(&account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update social account: %w", database.MapPostgresError(err))
	}

	account.Signature = sig
	return nil
}

func (r *socialAccountRepository) Delete(ctx context.Context, userID string, provider models.Provider) (bool, error) {
	query := `
		UPDATE social_accounts SET deleted_at = NOW(), updated_at = NOW()
		WHERE user_id = $1 AND provider = $2 AND deleted_at IS NULL
	`

	result, err := r.conn(ctx).Exec(ctx, query, userID, provider)
	if err != nil {
		return false, fmt.Errorf("failed to unlink social account: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *socialAccountRepository) VerifySignatures(ctx context.Context) ([]string, error) {
	return r.verifyAll(ctx, tableSocialAccounts, `SELECT `+socialAccountColumns+` FROM social_accounts`,
		func(s rowScanner) (signedRow, error) {
			a, err := scanSocialAccountRow(s)
			if err != nil {
				return signedRow{}, err
			}
			return signedRow{id: a.ID, signature: a.Signature, fields: a.SigningFields()}, nil
		})
}
