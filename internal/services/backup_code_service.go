package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/autentica/internal/auth"
	"github.com/BradenHooton/autentica/internal/metrics"
	"github.com/BradenHooton/autentica/internal/models"
	"github.com/BradenHooton/autentica/internal/repositories"
	pkgauth "github.com/BradenHooton/autentica/pkg/auth"
	"github.com/BradenHooton/autentica/pkg/logger"
)

// BackupCodeConfig holds backup code defaults
type BackupCodeConfig struct {
	Count        int
	Length       int
	LowWaterMark int
	Retention    time.Duration
}

func DefaultBackupCodeConfig() BackupCodeConfig {
	return BackupCodeConfig{
		Count:        10,
		Length:       8,
		LowWaterMark: 2,
		Retention:    90 * 24 * time.Hour,
	}
}

// GenerateOptions overrides defaults for one batch. The zero value
// replaces the existing batch and formats codes for display.
type GenerateOptions struct {
	Count        int
	Length       int
	KeepExisting bool
	Unformatted  bool
}

// BackupCodeService issues and consumes single-use recovery codes
type BackupCodeService struct {
	repo     repositories.BackupCodeRepository
	tx       Transactor
	hasher   pkgauth.Hasher
	timing   *auth.TimingDelay
	security *logger.SecurityLogger
	logger   *slog.Logger
	config   BackupCodeConfig
	now      func() time.Time
}

func NewBackupCodeService(
	repo repositories.BackupCodeRepository,
	tx Transactor,
	hasher pkgauth.Hasher,
	timing *auth.TimingDelay,
	log *slog.Logger,
	config BackupCodeConfig,
) *BackupCodeService {
	defaults := DefaultBackupCodeConfig()
	if config.Count <= 0 {
		config.Count = defaults.Count
	}
	if config.Length <= 0 {
		config.Length = defaults.Length
	}
	if config.Retention <= 0 {
		config.Retention = defaults.Retention
	}

	return &BackupCodeService{
		repo:     repo,
		tx:       tx,
		hasher:   hasher,
		timing:   timing,
		security: logger.NewSecurityLogger(log),
		logger:   log,
		config:   config,
		now:      time.Now,
	}
}

// Generate replaces the user's batch with a fresh set of codes
func (s *BackupCodeService) Generate(ctx context.Context, userID string) ([]string, error) {
	return s.GenerateWith(ctx, userID, GenerateOptions{})
}

// GenerateWith creates a batch and returns the plaintext codes. They are
// never retrievable again.
func (s *BackupCodeService) GenerateWith(ctx context.Context, userID string, opts GenerateOptions) ([]string, error) {
	count := opts.Count
	if count <= 0 {
		count = s.config.Count
	}
	length := opts.Length
	if length <= 0 {
		length = s.config.Length
	}

	plaintexts := make([]string, 0, count)
	rows := make([]*models.MfaBackupCode, 0, count)

	// bcrypt is slow; hash before taking the transaction
	for i := 0; i < count; i++ {
		code, err := auth.RandomString(auth.Base32Alphabet, length)
		if err != nil {
			return nil, fmt.Errorf("failed to generate backup code: %w", err)
		}

		hash, err := s.hasher.Hash(code)
		if err != nil {
			return nil, fmt.Errorf("failed to hash backup code: %w", err)
		}

		if !opts.Unformatted {
			code = formatBackupCode(code)
		}
		plaintexts = append(plaintexts, code)
		rows = append(rows, &models.MfaBackupCode{UserID: userID, CodeHash: hash})
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if !opts.KeepExisting {
			if _, err := s.repo.SoftDeleteByUser(ctx, userID); err != nil {
				return err
			}
		}
		return s.repo.CreateBatch(ctx, rows)
	})
	if err != nil {
		s.logger.Error("failed to store backup codes", slog.String("user_id", userID), slog.Any("error", err))
		metrics.BackupCodesTotal.WithLabelValues("generate", metrics.Result(false)).Inc()
		return nil, fmt.Errorf("failed to store backup codes: %w", err)
	}

	metrics.BackupCodesTotal.WithLabelValues("generate", metrics.Result(true)).Inc()
	s.security.Success(ctx, "backup_codes_generated", userID, map[string]string{
		"count": fmt.Sprint(count),
	})

	return plaintexts, nil
}

// Verify checks a submitted code against the user's unused codes. With
// markUsed a match consumes the code; a concurrent verifier that loses the
// race gets false.
func (s *BackupCodeService) Verify(ctx context.Context, userID, code string, markUsed bool) (bool, error) {
	normalized := normalizeBackupCode(code)
	if normalized == "" {
		s.timing.Wait(ctx, false)
		return false, nil
	}

	codes, err := s.repo.ListUnused(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load backup codes: %w", err)
	}

	for _, c := range codes {
		if !s.hasher.Verify(c.CodeHash, normalized) {
			continue
		}

		if markUsed {
			ok, err := s.repo.MarkUsed(ctx, c, s.now())
			if err != nil {
				return false, fmt.Errorf("failed to consume backup code: %w", err)
			}
			if !ok {
				break
			}
			s.security.Success(ctx, "backup_code_used", userID, nil)
		}

		metrics.BackupCodesTotal.WithLabelValues("verify", metrics.Result(true)).Inc()
		return true, nil
	}

	metrics.BackupCodesTotal.WithLabelValues("verify", metrics.Result(false)).Inc()
	s.security.Failure(ctx, "backup_code_verify", userID, "invalid_code")
	s.timing.Wait(ctx, false)
	return false, nil
}

// Stats summarizes the user's live batch
func (s *BackupCodeService) Stats(ctx context.Context, userID string) (*models.BackupCodeStats, error) {
	total, used, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	unused := total - used
	return &models.BackupCodeStats{
		Total:             total,
		Used:              used,
		Unused:            unused,
		NeedsRegeneration: unused <= s.config.LowWaterMark,
	}, nil
}

// CleanupUsed hard-deletes codes consumed longer ago than the retention window
func (s *BackupCodeService) CleanupUsed(ctx context.Context) (int64, error) {
	return s.repo.DeleteUsedBefore(ctx, s.now().Add(-s.config.Retention))
}

// formatBackupCode inserts a display dash at the midpoint
func formatBackupCode(code string) string {
	if len(code) < 4 {
		return code
	}
	mid := len(code) / 2
	return code[:mid] + "-" + code[mid:]
}

func normalizeBackupCode(code string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', ' ', '\t':
			return -1
		}
		return r
	}, strings.ToUpper(strings.TrimSpace(code)))
}
