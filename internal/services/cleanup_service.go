package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/autentica/internal/metrics"
)

// CleanupReport counts rows removed per table in one run
type CleanupReport struct {
	ExpiredTokens    int64 `json:"expired_tokens"`
	UsedBackupCodes  int64 `json:"used_backup_codes"`
	InactiveDevices  int64 `json:"inactive_devices"`
	InactiveSessions int64 `json:"inactive_sessions"`
}

func (r CleanupReport) Total() int64 {
	return r.ExpiredTokens + r.UsedBackupCodes + r.InactiveDevices + r.InactiveSessions
}

// CleanupService purges expired and stale rows. Any of its services may be nil.
type CleanupService struct {
	tokens      *TokenService
	backupCodes *BackupCodeService
	devices     *TrustedDeviceService
	sessions    *SessionService
	logger      *slog.Logger
}

func NewCleanupService(
	tokens *TokenService,
	backupCodes *BackupCodeService,
	devices *TrustedDeviceService,
	sessions *SessionService,
	log *slog.Logger,
) *CleanupService {
	return &CleanupService{
		tokens:      tokens,
		backupCodes: backupCodes,
		devices:     devices,
		sessions:    sessions,
		logger:      log,
	}
}

// Run executes every cleanup step; one failing step does not skip the rest
func (s *CleanupService) Run(ctx context.Context) (CleanupReport, error) {
	var report CleanupReport
	var errs []error

	step := func(table string, dst *int64, fn func(context.Context) (int64, error)) {
		n, err := fn(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("cleanup %s: %w", table, err))
			return
		}
		*dst = n
		metrics.CleanupRowsTotal.WithLabelValues(table).Add(float64(n))
	}

	if s.tokens != nil {
		step("auth_tokens", &report.ExpiredTokens, s.tokens.CleanupExpired)
	}
	if s.backupCodes != nil {
		step("mfa_backup_codes", &report.UsedBackupCodes, s.backupCodes.CleanupUsed)
	}
	if s.devices != nil {
		step("trusted_devices", &report.InactiveDevices, s.devices.CleanupInactive)
	}
	if s.sessions != nil {
		step("user_sessions", &report.InactiveSessions, s.sessions.CleanupInactive)
	}

	err := errors.Join(errs...)
	if err != nil {
		s.logger.ErrorContext(ctx, "cleanup finished with errors", slog.Any("error", err))
	} else if report.Total() > 0 {
		s.logger.InfoContext(ctx, "cleanup finished",
			slog.Int64("expired_tokens", report.ExpiredTokens),
			slog.Int64("used_backup_codes", report.UsedBackupCodes),
			slog.Int64("inactive_devices", report.InactiveDevices),
			slog.Int64("inactive_sessions", report.InactiveSessions),
		)
	}
	return report, err
}
