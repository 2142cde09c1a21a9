package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/autentica/internal/database"
	"github.com/BradenHooton/autentica/internal/integrity"
	"github.com/BradenHooton/autentica/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SessionRepository defines data access for tracked user sessions
type SessionRepository interface {
	// Upsert inserts a session or refreshes the row with the same session id.
	// A session id owned by another user yields ErrConflict.
	Upsert(ctx context.Context, session *models.Session) error
	FindBySessionID(ctx context.Context, sessionID string) (*models.Session, error)
	// ListByUser returns live sessions, most recently active first
	ListByUser(ctx context.Context, userID string) ([]*models.Session, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	Update(ctx context.Context, session *models.Session) error
	// DeleteOldestByUser evicts the n least recently active sessions
	DeleteOldestByUser(ctx context.Context, userID string, n int) (int64, error)
	DeleteForUser(ctx context.Context, userID, sessionID string) (bool, error)
	DeleteAllForUserExcept(ctx context.Context, userID, keepSessionID string) (int64, error)
	// DeleteInactiveBefore hard-deletes sessions idle since before cutoff
	DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error)
	VerifySignatures(ctx context.Context) ([]string, error)
}

type sessionRepository struct {
	base
}

func NewSessionRepository(db *database.DB, signer *integrity.Signer) SessionRepository {
	return &sessionRepository{base{db: db, signer: signer}}
}

const sessionColumns = `id, user_id, session_id, ip_address, user_agent, device_id, country, region, city, last_activity, created_at, updated_at, deleted_at, signature`

func scanSessionRow(scanner rowScanner) (*models.Session, error) {
	s := &models.Session{}
	err := scanner.Scan(
		&s.ID, &s.UserID, &s.SessionID, &s.IPAddress, &s.UserAgent, &s.DeviceID,
		&s.Location.Country, &s.Location.Region, &s.Location.City,
		&s.LastActivity, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt, &s.Signature,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return s, nil
}

func (r *sessionRepository) Upsert(ctx context.Context, session *models.Session) error {
	sig, err := r.sign(tableUserSessions, session)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO user_sessions (id, user_id, session_id, ip_address, user_agent, device_id, country, region, city, last_activity, signature)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (session_id) DO UPDATE SET
			ip_address = EXCLUDED.ip_address,
			user_agent = EXCLUDED.user_agent,
			device_id = EXCLUDED.device_id,
			country = EXCLUDED.country,
			region = EXCLUDED.region,
			city = EXCLUDED.city,
			last_activity = EXCLUDED.last_activity,
			signature = EXCLUDED.signature,
			deleted_at = NULL,
			updated_at = NOW()
		WHERE user_sessions.user_id = EXCLUDED.user_id
		RETURNING id, created_at, updated_at
	`

	err = r.conn(ctx).QueryRow(ctx, query,
		uuid.NewString(), session.UserID, session.SessionID, session.IPAddress, session.UserAgent, session.DeviceID,
		session.Location.Country, session.Location.Region, session.Location.City,
		session.LastActivity, sig,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// session id belongs to another user
		return fmt.Errorf("failed to upsert session: %w", models.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", database.MapPostgresError(err))
	}

	session.Signature = sig
	session.DeletedAt = nil
	return nil
}

func (r *sessionRepository) FindBySessionID(ctx context.Context, sessionID string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM user_sessions WHERE session_id = $1 AND deleted_at IS NULL`

	s, err := scanSessionRow(r.conn(ctx).QueryRow(ctx, query, sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return s, nil
}

func (r *sessionRepository) ListByUser(ctx context.Context, userID string) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM user_sessions
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY last_activity DESC`

	rows, err := r.conn(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*models.Session, 0)
	for rows.Next() {
		s, err := scanSessionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

func (r *sessionRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM user_sessions WHERE user_id = $1 AND deleted_at IS NULL`
	if err := r.conn(ctx).QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

func (r *sessionRepository) Update(ctx context.Context, session *models.Session) error {
	sig, err := r.sign(tableUserSessions, session)
	if err != nil {
		return err
	}

	query := `
		UPDATE user_sessions
		SET ip_address = $2, country = $3, region = $4, city = $5, last_activity = $6, signature = $7, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at
	`

	err = r.conn(ctx).QueryRow(ctx, query,
		session.ID, session.IPAddress,
		session.Location.Country, session.Location.Region, session.Location.City,
		session.LastActivity, sig,
	).Scan(&session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", database.MapPostgresError(err))
	}

	session.Signature = sig
	return nil
}

func (r *sessionRepository) DeleteOldestByUser(ctx context.Context, userID string, n int) (int64, error) {
	if n <= 0 {
		return 0, nil
	}

	query := `
		UPDATE user_sessions SET deleted_at = NOW(), updated_at = NOW()
		WHERE id IN (
			SELECT id FROM user_sessions
			WHERE user_id = $1 AND deleted_at IS NULL
			ORDER BY last_activity ASC, created_at ASC
			LIMIT $2
		)
	`

	result, err := r.conn(ctx).Exec(ctx, query, userID, n)
	if err != nil {
		return 0, fmt.Errorf("failed to evict sessions: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *sessionRepository) DeleteForUser(ctx context.Context, userID, sessionID string) (bool, error) {
	query := `
		UPDATE user_sessions SET deleted_at = NOW(), updated_at = NOW()
		WHERE user_id = $1 AND session_id = $2 AND deleted_at IS NULL
	`

	result, err := r.conn(ctx).Exec(ctx, query, userID, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to end session: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *sessionRepository) DeleteAllForUserExcept(ctx context.Context, userID, keepSessionID string) (int64, error) {
	query := `
		UPDATE user_sessions SET deleted_at = NOW(), updated_at = NOW()
		WHERE user_id = $1 AND session_id <> $2 AND deleted_at IS NULL
	`

	result, err := r.conn(ctx).Exec(ctx, query, userID, keepSessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to end other sessions: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *sessionRepository) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM user_sessions WHERE last_activity < $1`

	result, err := r.conn(ctx).Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete inactive sessions: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *sessionRepository) VerifySignatures(ctx context.Context) ([]string, error) {
	return r.verifyAll(ctx, tableUserSessions, `SELECT `+sessionColumns+` FROM user_sessions`,
		func(s rowScanner) (signedRow, error) {
			sess, err := scanSessionRow(s)
			if err != nil {
				return signedRow{}, err
			}
			return signedRow{id: sess.ID, signature: sess.Signature, fields: sess.SigningFields()}, nil
		})
}
