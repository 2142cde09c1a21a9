package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/autentica/internal/auth"
	"github.com/BradenHooton/autentica/internal/metrics"
	"github.com/BradenHooton/autentica/internal/models"
	"github.com/BradenHooton/autentica/internal/repositories"
	"github.com/BradenHooton/autentica/pkg/logger"
)

const lockScopeDevices = "trusted_devices"

// DeviceConfig holds trusted device limits
type DeviceConfig struct {
	MaxDevices    int
	InactiveAfter time.Duration
}

func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		MaxDevices:    10,
		InactiveAfter: 90 * 24 * time.Hour,
	}
}

// TrustedDeviceService remembers the browsers a user signs in from
type TrustedDeviceService struct {
	repo     repositories.TrustedDeviceRepository
	tx       Transactor
	security *logger.SecurityLogger
	logger   *slog.Logger
	config   DeviceConfig
	now      func() time.Time
}

func NewTrustedDeviceService(
	repo repositories.TrustedDeviceRepository,
	tx Transactor,
	log *slog.Logger,
	config DeviceConfig,
) *TrustedDeviceService {
	defaults := DefaultDeviceConfig()
	if config.MaxDevices <= 0 {
		config.MaxDevices = defaults.MaxDevices
	}
	if config.InactiveAfter <= 0 {
		config.InactiveAfter = defaults.InactiveAfter
	}

	return &TrustedDeviceService{
		repo:     repo,
		tx:       tx,
		security: logger.NewSecurityLogger(log),
		logger:   log,
		config:   config,
		now:      time.Now,
	}
}

// Register records the requesting device. A new device beyond the cap
// evicts the least recently used ones first.
func (s *TrustedDeviceService) Register(ctx context.Context, userID string, req models.RequestContext, name string) (*models.TrustedDevice, error) {
	browser, platform := auth.ParseUserAgent(req.UserAgent)
	name = strings.TrimSpace(name)

	device := &models.TrustedDevice{
		UserID:     userID,
		DeviceID:   auth.DeviceFingerprint(req),
		Name:       name,
		Browser:    browser,
		Platform:   platform,
		IPAddress:  req.IP,
		LastUsedAt: s.now(),
	}

	var evicted int64
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.tx.LockUser(ctx, lockScopeDevices, userID); err != nil {
			return err
		}

		existing, err := s.repo.FindByUserAndDevice(ctx, userID, device.DeviceID)
		switch {
		case err == nil:
			// known device, refreshed in place
			if device.Name == "" {
				device.Name = existing.Name
			}
		case errors.Is(err, models.ErrNotFound):
			count, err := s.repo.CountByUser(ctx, userID)
			if err != nil {
				return err
			}
			if over := count - s.config.MaxDevices + 1; over > 0 {
				if evicted, err = s.repo.DeleteOldestByUser(ctx, userID, over); err != nil {
					return err
				}
			}
		default:
			return err
		}

		if device.Name == "" {
			device.Name = auth.DeviceName(browser, platform)
		}
		return s.repo.Upsert(ctx, device)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register trusted device: %w", err)
	}

	if evicted > 0 {
		metrics.EvictionsTotal.WithLabelValues("device").Add(float64(evicted))
		s.security.Success(ctx, "device_evicted", userID, map[string]string{"count": fmt.Sprint(evicted)})
	}

	return device, nil
}

// IsTrusted reports whether the requesting device is registered
func (s *TrustedDeviceService) IsTrusted(ctx context.Context, userID string, req models.RequestContext) (bool, error) {
	_, err := s.repo.FindByUserAndDevice(ctx, userID, auth.DeviceFingerprint(req))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Touch refreshes last use and ip of a registered device. Unknown devices return false.
func (s *TrustedDeviceService) Touch(ctx context.Context, userID string, req models.RequestContext) (bool, error) {
	device, err := s.repo.FindByUserAndDevice(ctx, userID, auth.DeviceFingerprint(req))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	device.LastUsedAt = s.now()
	if req.IP != "" {
		device.IPAddress = req.IP
	}
	if err := s.repo.Update(ctx, device); err != nil {
		return false, err
	}
	return true, nil
}

// List returns the user's devices, most recently used first
func (s *TrustedDeviceService) List(ctx context.Context, userID string) ([]*models.TrustedDevice, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Remove forgets one device, scoped to its owner
func (s *TrustedDeviceService) Remove(ctx context.Context, userID, deviceID string) (bool, error) {
	return s.repo.DeleteForUser(ctx, userID, deviceID)
}

func (s *TrustedDeviceService) RemoveAll(ctx context.Context, userID string) (int64, error) {
	return s.repo.DeleteAllForUser(ctx, userID)
}

// CleanupInactive hard-deletes devices unused for longer than InactiveAfter
func (s *TrustedDeviceService) CleanupInactive(ctx context.Context) (int64, error) {
	return s.repo.DeleteInactiveBefore(ctx, s.now().Add(-s.config.InactiveAfter))
}
