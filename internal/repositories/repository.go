package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/autentica/internal/database"
	"github.com/BradenHooton/autentica/internal/integrity"
)

const (
	tableAuthMethods    = "auth_methods"
	tableAuthTokens     = "auth_tokens"
	tableMfaConfigs     = "mfa_configs"
	tableMfaBackupCodes = "mfa_backup_codes"
	tableUserSessions   = "user_sessions"
	tableSocialAccounts = "social_accounts"
	tableTrustedDevices = "trusted_devices"
)

// rowScanner supports both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// signable is implemented by every persisted model
type signable interface {
	SigningFields() []any
}

// signedRow is what signature verification needs from a scanned row
type signedRow struct {
	id        string
	signature string
	fields    []any
}

// base carries the connection and signer shared by every repository.
// Every query goes through conn(ctx) so it joins a transaction when one is open.
type base struct {
	db     *database.DB
	signer *integrity.Signer
}

func (b base) conn(ctx context.Context) database.Querier {
	return b.db.Conn(ctx)
}

func (b base) sign(table string, row signable) (string, error) {
	sig, err := b.signer.Sign(table, row.SigningFields())
	if err != nil {
		return "", fmt.Errorf("failed to sign %s row: %w", table, err)
	}
	return sig, nil
}

// verifyAll scans every row of a table, tombstoned rows included, and
// returns the ids whose signature does not match their content.
func (b base) verifyAll(ctx context.Context, table, query string, scan func(rowScanner) (signedRow, error)) ([]string, error) {
	rows, err := b.conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s for verification: %w", table, err)
	}
	defer rows.Close()

	invalid := make([]string, 0)
	for rows.Next() {
		row, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		if !b.signer.Verify(table, row.fields, row.signature) {
			invalid = append(invalid, row.id)
		}
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", table, err)
	}

	return invalid, nil
}
