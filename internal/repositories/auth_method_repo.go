package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/autentica/internal/database"
	"github.com/BradenHooton/autentica/internal/integrity"
	"github.com/BradenHooton/autentica/internal/models"
	"github.com/google/uuid"
)

// AuthMethodRepository defines data access for per-user authentication methods
type AuthMethodRepository interface {
	// Upsert inserts or replaces the (user, method) row, reviving a tombstone
	Upsert(ctx context.Context, method *models.AuthMethod) error

	// FindByUserAndMethod returns models.ErrNotFound when absent
	FindByUserAndMethod(ctx context.Context, userID string, method models.AuthMethodType) (*models.AuthMethod, error)

	ListByUser(ctx context.Context, userID string) ([]*models.AuthMethod, error)

	// Update re-signs and persists the mutable fields
	Update(ctx context.Context, method *models.AuthMethod) error

	VerifySignatures(ctx context.Context) ([]string, error)
}

type authMethodRepository struct {
	base
}

func NewAuthMethodRepository(db *database.DB, signer *integrity.Signer) AuthMethodRepository {
	return &authMethodRepository{base{db: db, signer: signer}}
}

const authMethodColumns = `id, user_id, method, enabled, config, last_used_at, created_at, updated_at, deleted_at, signature`

func scanAuthMethodRow(scanner rowScanner) (*models.AuthMethod, error) {
	m := &models.AuthMethod{}
	err := scanner.Scan(
		&m.ID, &m.UserID, &m.Method, &m.Enabled, &m.Config, &m.LastUsedAt,
		&m.CreatedAt, &m.UpdatedAt, &m.DeletedAt, &m.Signature,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return m, nil
}

func (r *authMethodRepository) Upsert(ctx context.Context, method *models.AuthMethod) error {
	if method.Config == nil {
		method.Config = map[string]any{}
	}
	sig, err := r.sign(tableAuthMethods, method)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO auth_methods (id, user_id, method, enabled, config, last_used_at, signature)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, method) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			config = EXCLUDED.config,
			last_used_at = EXCLUDED.last_used_at,
			signature = EXCLUDED.signature,
			deleted_at = NULL,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err = r.conn(ctx).QueryRow(ctx, query,
		uuid.NewString(), method.UserID, method.Method, method.Enabled, method.Config, method.LastUsedAt, sig,
	).Scan(&method.ID, &method.CreatedAt, &method.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert auth method: %w", database.MapPostgresError(err))
	}

	method.Signature = sig
	method.DeletedAt = nil
	return nil
}

func (r *authMethodRepository) FindByUserAndMethod(ctx context.Context, userID string, method models.AuthMethodType) (*models.AuthMethod, error) {
	query := `SELECT ` + authMethodColumns + ` FROM auth_methods
		WHERE user_id = $1 AND method = $2 AND deleted_at IS NULL`

	m, err := scanAuthMethodRow(r.conn(ctx).QueryRow(ctx, query, userID, method))
	if err != nil {
		return nil, fmt.Errorf("failed to find auth method: %w", err)
	}
	return m, nil
}

func (r *authMethodRepository) ListByUser(ctx context.Context, userID string) ([]*models.AuthMethod, error) {
	query := `SELECT ` + authMethodColumns + ` FROM auth_methods
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at`

	rows, err := r.conn(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list auth methods: %w", err)
	}
	defer rows.Close()

	methods := make([]*models.AuthMethod, 0)
	for rows.Next() {
		m, err := scanAuthMethodRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auth method: %w", err)
		}
		methods = append(methods, m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auth methods: %w", err)
	}

	return methods, nil
}

func (r *authMethodRepository) Update(ctx context.Context, method *models.AuthMethod) error {
	if method.Config == nil {
		method.Config = map[string]any{}
	}
	sig, err := r.sign(tableAuthMethods, method)
	if err != nil {
		return err
	}

	query := `
		UPDATE auth_methods
		SET enabled = $2, config = $3, last_used_at = $4, signature = $5, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at
	`

	err = r.conn(ctx).QueryRow(ctx, query,
		method.ID, method.Enabled, method.Config, method.LastUsedAt, sig,
	).Scan(&method.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update auth method: %w", database.MapPostgresError(err))
	}

	method.Signature = sig
	return nil
}

func (r *authMethodRepository) VerifySignatures(ctx context.Context) ([]string, error) {
	return r.verifyAll(ctx, tableAuthMethods, `SELECT `+authMethodColumns+` FROM auth_methods`,
		func(s rowScanner) (signedRow, error) {
			m, err := scanAuthMethodRow(s)
			if err != nil {
				return signedRow{}, err
			}
			return signedRow{id: m.ID, signature: m.Signature, fields: m.SigningFields()}, nil
		})
}
