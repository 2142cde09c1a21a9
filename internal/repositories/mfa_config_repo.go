package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/autentica/internal/database"
	"github.com/BradenHooton/autentica/internal/integrity"
	"github.com/BradenHooton/autentica/internal/models"
	"github.com/google/uuid"
)

// MfaConfigRepository defines data access for per-user MFA enrollments
type MfaConfigRepository interface {
	// Upsert replaces the (user, method) enrollment, reviving a tombstone
	Upsert(ctx context.Context, cfg *models.MfaConfig) error
	FindByUserAndMethod(ctx context.Context, userID string, method models.MfaMethod) (*models.MfaConfig, error)
	Update(ctx context.Context, cfg *models.MfaConfig) error
	// Delete tombstones the enrollment and reports whether one existed
	Delete(ctx context.Context, userID string, method models.MfaMethod) (bool, error)
	VerifySignatures(ctx context.Context) ([]string, error)
}

type mfaConfigRepository struct {
	base
}

func NewMfaConfigRepository(db *database.DB, signer *integrity.Signer) MfaConfigRepository {
	return &mfaConfigRepository{base{db: db, signer: signer}}
}

const mfaConfigColumns = `id, user_id, method, secret_encrypted, phone, verified_at, created_at, updated_at, deleted_at, signature`

func scanMfaConfigRow(scanner rowScanner) (*models.MfaConfig, error) {
	c := &models.MfaConfig{}
	err := scanner.Scan(
		&c.ID, &c.UserID, &c.Method, &c.SecretEncrypted, &c.Phone, &c.VerifiedAt,
		&c.CreatedAt, &c.UpdatedAt, &c.DeletedAt, &c.Signature,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return c, nil
}

func (r *mfaConfigRepository) Upsert(ctx context.Context, cfg *models.MfaConfig) error {
	sig, err := r.sign(tableMfaConfigs, cfg)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO mfa_configs (id, user_id, method, secret_encrypted, phone, verified_at, signature)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, method) DO UPDATE SET
			secret_encrypted = EXCLUDED.secret_encrypted,
			phone = EXCLUDED.phone,
			verified_at = EXCLUDED.verified_at,
			signature = EXCLUDED.signature,
			deleted_at = NULL,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err = r.conn(ctx).QueryRow(ctx, query,
		uuid.NewString(), cfg.UserID, cfg.Method, cfg.SecretEncrypted, cfg.Phone, cfg.VerifiedAt, sig,
	).Scan(&cfg.ID, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert mfa config: %w", database.MapPostgresError(err))
	}

	cfg.Signature = sig
	cfg.DeletedAt = nil
	return nil
}

func (r *mfaConfigRepository) FindByUserAndMethod(ctx context.Context, userID string, method models.MfaMethod) (*models.MfaConfig, error) {
	query := `SELECT ` + mfaConfigColumns + ` FROM mfa_configs
		WHERE user_id = $1 AND method = $2 AND deleted_at IS NULL`

	c, err := scanMfaConfigRow(r.conn(ctx).QueryRow(ctx, query, userID, method))
	if err != nil {
		return nil, fmt.Errorf("failed to find mfa config: %w", err)
	}
	return c, nil
}

func (r *mfaConfigRepository) Update(ctx context.Context, cfg *models.MfaConfig) error {
	sig, err := r.sign(tableMfaConfigs, cfg)
	if err != nil {
		return err
	}

	query := `
		UPDATE mfa_configs
		SET secret_encrypted = $2, phone = $3, verified_at = $4, signature = $5, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at
	`

	err = r.conn(ctx).QueryRow(ctx, query,
		cfg.ID, cfg.SecretEncrypted, cfg.Phone, cfg.VerifiedAt, sig,
	).Scan(&cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update mfa config: %w", database.MapPostgresError(err))
	}

	cfg.Signature = sig
	return nil
}

func (r *mfaConfigRepository) Delete(ctx context.Context, userID string, method models.MfaMethod) (bool, error) {
	query := `
		UPDATE mfa_configs SET deleted_at = NOW(), updated_at = NOW()
		WHERE user_id = $1 AND method = $2 AND deleted_at IS NULL
	`

	result, err := r.conn(ctx).Exec(ctx, query, userID, method)
	if err != nil {
		return false, fmt.Errorf("failed to delete mfa config: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *mfaConfigRepository) VerifySignatures(ctx context.Context) ([]string, error) {
	return r.verifyAll(ctx, tableMfaConfigs, `SELECT `+mfaConfigColumns+` FROM mfa_configs`,
		func(s rowScanner) (signedRow, error) {
			c, err := scanMfaConfigRow(s)
			if err != nil {
				return signedRow{}, err
			}
			return signedRow{id: c.ID, signature: c.Signature, fields: c.SigningFields()}, nil
		})
}
