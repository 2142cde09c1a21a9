// Package services implements the authentication-security core: MFA,
// backup codes, opaque tokens, trusted devices, sessions and linked
// social accounts. Every service reads and writes through repositories;
// the database is the only shared state.
package services

import (
	"context"
	"time"
)

// Transactor runs work atomically and serializes per-user writers
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	LockUser(ctx context.Context, scope, userID string) error
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
