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

// TrustedDeviceRepository defines data access for remembered devices
type TrustedDeviceRepository interface {
	Upsert(ctx context.Context, device *models.TrustedDevice) error
	FindByUserAndDevice(ctx context.Context, userID, deviceID string) (*models.TrustedDevice, error)
	// ListByUser returns live devices, most recently used first
	ListByUser(ctx context.Context, userID string) ([]*models.TrustedDevice, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	Update(ctx context.Context, device *models.TrustedDevice) error
	// DeleteOldestByUser evicts the n least recently used devices
	DeleteOldestByUser(ctx context.Context, userID string, n int) (int64, error)
	DeleteForUser(ctx context.Context, userID, deviceID string) (bool, error)
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
	// DeleteInactiveBefore hard-deletes devices unused since before cutoff
	DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error)
	VerifySignatures(ctx context.Context) ([]string, error)
}

type trustedDeviceRepository struct {
	base
}

func NewTrustedDeviceRepository(db *database.DB, signer *integrity.Signer) TrustedDeviceRepository {
	return &trustedDeviceRepository{base{db: db, signer: signer}}
}

const trustedDeviceColumns = `id, user_id, device_id, name, browser, platform, ip_address, last_used_at, created_at, updated_at, deleted_at, signature`

func scanTrustedDeviceRow(scanner rowScanner) (*models.TrustedDevice, error) {
	d := &models.TrustedDevice{}
	err := scanner.Scan(
		&d.ID, &d.UserID, &d.DeviceID, &d.Name, &d.Browser, &d.Platform, &d.IPAddress,
		&d.LastUsedAt, &d.CreatedAt, &d.UpdatedAt, &d.DeletedAt, &d.Signature,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return d, nil
}

func (r *trustedDeviceRepository) Upsert(ctx context.Context, device *models.TrustedDevice) error {
	sig, err := r.sign(tableTrustedDevices, device)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO trusted_devices (id, user_id, device_id, name, browser, platform, ip_address, last_used_at, signature)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, device_id) DO UPDATE SET
			name = EXCLUDED.name,
			browser = EXCLUDED.browser,
			platform = EXCLUDED.platform,
			ip_address = EXCLUDED.ip_address,
			last_used_at = EXCLUDED.last_used_at,
			signature = EXCLUDED.signature,
			deleted_at = NULL,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err = r.conn(ctx).QueryRow(ctx, query,
		uuid.NewString(), device.UserID, device.DeviceID, device.Name,
		device.Browser, device.Platform, device.IPAddress, device.LastUsedAt, sig,
	).Scan(&device.ID, &device.CreatedAt, &device.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert trusted device: %w", database.MapPostgresError(err))
	}

	device.Signature = sig
	device.DeletedAt = nil
	return nil
}

func (r *trustedDeviceRepository) FindByUserAndDevice(ctx context.Context, userID, deviceID string) (*models.TrustedDevice, error) {
	query := `SELECT ` + trustedDeviceColumns + ` FROM trusted_devices
		WHERE user_id = $1 AND device_id = $2 AND deleted_at IS NULL`

	d, err := scanTrustedDeviceRow(r.conn(ctx).QueryRow(ctx, query, userID, deviceID))
	if err != nil {
		return nil, fmt.Errorf("failed to find trusted device: %w", err)
	}
	return d, nil
}

func (r *trustedDeviceRepository) ListByUser(ctx context.Context, userID string) ([]*models.TrustedDevice, error) {
	query := `SELECT ` + trustedDeviceColumns + ` FROM trusted_devices
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY last_used_at DESC`

	rows, err := r.conn(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trusted devices: %w", err)
	}
	defer rows.Close()

	devices := make([]*models.TrustedDevice, 0)
	for rows.Next() {
		d, err := scanTrustedDeviceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trusted device: %w", err)
		}
		devices = append(devices, d)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trusted devices: %w", err)
	}

	return devices, nil
}

func (r *trustedDeviceRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM trusted_devices WHERE user_id = $1 AND deleted_at IS NULL`
	if err := r.conn(ctx).QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count trusted devices: %w", err)
	}
	return count, nil
}

func (r *trustedDeviceRepository) Update(ctx context.Context, device *models.TrustedDevice) error {
	sig, err := r.sign(tableTrustedDevices, device)
	if err != nil {
		return err
	}

	query := `
		UPDATE trusted_devices
		SET name = $2, ip_address = $3, last_used_at = $4, signature = $5, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at
	`

	err = r.conn(ctx).QueryRow(ctx, query,
		device.ID, device.Name, device.IPAddress, device.LastUsedAt, sig,
	).Scan(&device.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update trusted device: %w", database.MapPostgresError(err))
	}

	device.Signature = sig
	return nil
}

func (r *trustedDeviceRepository) DeleteOldestByUser(ctx context.Context, userID string, n int) (int64, error) {
	if n <= 0 {
		return 0, nil
	}

	query := `
		UPDATE trusted_devices SET deleted_at = NOW(), updated_at = NOW()
		WHERE id IN (
			SELECT id FROM trusted_devices
			WHERE user_id = $1 AND deleted_at IS NULL
			ORDER BY last_used_at ASC, created_at ASC
			LIMIT $2
		)
	`

	result, err := r.conn(ctx).Exec(ctx, query, userID, n)
	if err != nil {
		return 0, fmt.Errorf("failed to evict trusted devices: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *trustedDeviceRepository) DeleteForUser(ctx context.Context, userID, deviceID string) (bool, error) {
	query := `
		UPDATE trusted_devices SET deleted_at = NOW(), updated_at = NOW()
		WHERE user_id = $1 AND device_id = $2 AND deleted_at IS NULL
	`

	result, err := r.conn(ctx).Exec(ctx, query, userID, deviceID)
	if err != nil {
		return false, fmt.Errorf("failed to remove trusted device: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *trustedDeviceRepository) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	query := `
		UPDATE trusted_devices SET deleted_at = NOW(), updated_at = NOW()
		WHERE user_id = $1 AND deleted_at IS NULL
	`

	result, err := r.conn(ctx).Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to remove trusted devices: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *trustedDeviceRepository) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM trusted_devices WHERE last_used_at < $1`

	result, err := r.conn(ctx).Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete inactive trusted devices: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *trustedDeviceRepository) VerifySignatures(ctx context.Context) ([]string, error) {
	return r.verifyAll(ctx, tableTrustedDevices, `SELECT `+trustedDeviceColumns+` FROM trusted_devices`,
		func(s rowScanner) (signedRow, error) {
			d, err := scanTrustedDeviceRow(s)
			if err != nil {
				return signedRow{}, err
			}
			return signedRow{id: d.ID, signature: d.Signature, fields: d.SigningFields()}, nil
		})
}
