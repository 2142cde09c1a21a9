package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/autentica/internal/database"
	"github.com/BradenHooton/autentica/internal/integrity"
	"github.com/BradenHooton/autentica/internal/models"
	"github.com/google/uuid"
)

// BackupCodeRepository defines data access for hashed MFA backup codes
type BackupCodeRepository interface {
	// SoftDeleteByUser tombstones the user's current batch
	SoftDeleteByUser(ctx context.Context, userID string) (int64, error)

	// CreateBatch inserts hashed codes for a user
	CreateBatch(ctx context.Context, codes []*models.MfaBackupCode) error

	// ListUnused returns the user's live codes that have not been consumed
	ListUnused(ctx context.Context, userID string) ([]*models.MfaBackupCode, error)

	// CountByUser counts the live batch
	CountByUser(ctx context.Context, userID string) (total int, used int, err error)

	// MarkUsed consumes a code. It returns false when another caller consumed it first.
	MarkUsed(ctx context.Context, code *models.MfaBackupCode, usedAt time.Time) (bool, error)

	// DeleteUsedBefore hard-deletes codes consumed before cutoff
	DeleteUsedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	VerifySignatures(ctx context.Context) ([]string, error)
}

type backupCodeRepository struct {
	base
}

func NewBackupCodeRepository(db *database.DB, signer *integrity.Signer) BackupCodeRepository {
	return &backupCodeRepository{base{db: db, signer: signer}}
}

const backupCodeColumns = `id, user_id, code_hash, used_at, created_at, updated_at, deleted_at, signature`

func scanBackupCodeRow(scanner rowScanner) (*models.MfaBackupCode, error) {
	c := &models.MfaBackupCode{}
	err := scanner.Scan(
		&c.ID, &c.UserID, &c.CodeHash, &c.UsedAt,
		&c.CreatedAt, &c.UpdatedAt, &c.DeletedAt, &c.Signature,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return c, nil
}

func (r *backupCodeRepository) SoftDeleteByUser(ctx context.Context, userID string) (int64, error) {
	query := `
		UPDATE mfa_backup_codes SET deleted_at = NOW(), updated_at = NOW()
		WHERE user_id = $1 AND deleted_at IS NULL
	`

	result, err := r.conn(ctx).Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete backup codes: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *backupCodeRepository) CreateBatch(ctx context.Context, codes []*models.MfaBackupCode) error {
	query := `
		INSERT INTO mfa_backup_codes (id, user_id, code_hash, used_at, signature)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	for _, code := range codes {
		sig, err := r.sign(tableMfaBackupCodes, code)
		if err != nil {
			return err
		}

		err = r.conn(ctx).QueryRow(ctx, query,
			uuid.NewString(), code.UserID, code.CodeHash, code.UsedAt, sig,
		).Scan(&code.ID, &code.CreatedAt, &code.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create backup code: %w", database.MapPostgresError(err))
		}
		code.Signature = sig
	}

	return nil
}

func (r *backupCodeRepository) ListUnused(ctx context.Context, userID string) ([]*models.MfaBackupCode, error) {
	query := `SELECT ` + backupCodeColumns + ` FROM mfa_backup_codes
		WHERE user_id = $1 AND used_at IS NULL AND deleted_at IS NULL
		ORDER BY created_at`

	rows, err := r.conn(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list backup codes: %w", err)
	}
	defer rows.Close()

	codes := make([]*models.MfaBackupCode, 0)
	for rows.Next() {
		c, err := scanBackupCodeRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan backup code: %w", err)
		}
		codes = append(codes, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating backup codes: %w", err)
	}

	return codes, nil
}

func (r *backupCodeRepository) CountByUser(ctx context.Context, userID string) (int, int, error) {
	query := `
		SELECT COUNT(*), COUNT(used_at)
		FROM mfa_backup_codes
		WHERE user_id = $1 AND deleted_at IS NULL
	`

	var total, used int
	if err := r.conn(ctx).QueryRow(ctx, query, userID).Scan(&total, &used); err != nil {
		return 0, 0, fmt.Errorf("failed to count backup codes: %w", err)
	}
	return total, used, nil
}

func (r *backupCodeRepository) MarkUsed(ctx context.Context, code *models.MfaBackupCode, usedAt time.Time) (bool, error) {
	consumed := *code
	consumed.UsedAt = &usedAt
	sig, err := r.sign(tableMfaBackupCodes, &consumed)
	if err != nil {
		return false, err
	}

	// The used_at guard makes consumption single-winner under concurrency.
	query := `
		UPDATE mfa_backup_codes
		SET used_at = $2, signature = $3, updated_at = NOW()
		WHERE id = $1 AND used_at IS NULL AND deleted_at IS NULL
	`

	result, err := r.conn(ctx).Exec(ctx, query, code.ID, usedAt, sig)
	if err != nil {
		return false, fmt.Errorf("failed to mark backup code used: %w", err)
	}
	if result.RowsAffected() == 0 {
		return false, nil
	}

	code.UsedAt = consumed.UsedAt
	code.Signature = sig
	return true, nil
}

func (r *backupCodeRepository) DeleteUsedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM mfa_backup_codes WHERE used_at IS NOT NULL AND used_at < $1`

	result, err := r.conn(ctx).Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete used backup codes: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *backupCodeRepository) VerifySignatures(ctx context.Context) ([]string, error) {
	return r.verifyAll(ctx, tableMfaBackupCodes, `SELECT `+backupCodeColumns+` FROM mfa_backup_codes`,
		func(s rowScanner) (signedRow, error) {
			c, err := scanBackupCodeRow(s)
			if err != nil {
				return signedRow{}, err
			}
			return signedRow{id: c.ID, signature: c.Signature, fields: c.SigningFields()}, nil
		})
}
