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

// CodeSender delivers a one-time code over an out-of-band channel
type CodeSender interface {
	SendCode(ctx context.Context, destination, code string, validFor time.Duration) error
}

// MFAConfig holds MFA configuration
type MFAConfig struct {
	Issuer            string
	TOTP              auth.TOTPOptions
	SecretLength      int
	ChannelCodePeriod time.Duration
}

// MFAService handles TOTP enrollment and verification, plus sms/email
// challenge codes derived from a per-channel secret
type MFAService struct {
	configRepo repositories.MfaConfigRepository
	methods    *AuthMethodService
	engine     *auth.TOTPEngine
	cipher     *auth.Cipher
	timing     *auth.TimingDelay
	senders    map[models.MfaMethod]CodeSender
	security   *logger.SecurityLogger
	logger     *slog.Logger
	config     MFAConfig
	now        func() time.Time
}

// NewMFAService creates a new MFA service
func NewMFAService(
	configRepo repositories.MfaConfigRepository,
	methods *AuthMethodService,
	engine *auth.TOTPEngine,
	cipher *auth.Cipher,
	timing *auth.TimingDelay,
	log *slog.Logger,
	config MFAConfig,
) *MFAService {
	if config.Issuer == "" {
		config.Issuer = "Autentica"
	}
	if config.SecretLength <= 0 {
		config.SecretLength = auth.DefaultSecretLength
	}
	if config.ChannelCodePeriod <= 0 {
		config.ChannelCodePeriod = 5 * time.Minute
	}

	return &MFAService{
		configRepo: configRepo,
		methods:    methods,
		engine:     engine,
		cipher:     cipher,
		timing:     timing,
		senders:    make(map[models.MfaMethod]CodeSender),
		security:   logger.NewSecurityLogger(log),
		logger:     log,
		config:     config,
		now:        time.Now,
	}
}

// RegisterSender wires a delivery channel for sms or email codes
func (s *MFAService) RegisterSender(method models.MfaMethod, sender CodeSender) {
	s.senders[method] = sender
}

// SetupTOTP starts (or restarts) TOTP enrollment. The returned secret is
// shown once; the stored copy is encrypted and unverified until ConfirmTOTP.
func (s *MFAService) SetupTOTP(ctx context.Context, userID, accountName string) (*models.TOTPSetup, error) {
	secret, err := s.engine.GenerateSecret(s.config.SecretLength)
	if err != nil {
		return nil, err
	}

	encrypted, err := s.cipher.Encrypt(secret)
	if err != nil {
		s.logger.Error("failed to encrypt TOTP secret", slog.Any("error", err))
		return nil, err
	}

	cfg, err := models.NewMfaConfig(userID, models.MfaTOTP)
	if err != nil {
		return nil, err
	}
	cfg.SecretEncrypted = encrypted

	if err := s.configRepo.Upsert(ctx, cfg); err != nil {
		return nil, err
	}

	uri := s.engine.ProvisioningURI(s.config.Issuer, accountName, secret, s.config.TOTP)
	qr, err := auth.QRCodeDataURL(uri)
	if err != nil {
		return nil, err
	}

	s.logger.Info("TOTP setup initiated", slog.String("user_id", userID))

	return &models.TOTPSetup{Secret: secret, ProvisioningURI: uri, QRCode: qr}, nil
}

// ConfirmTOTP verifies the first code from the authenticator app and
// activates the enrollment
func (s *MFAService) ConfirmTOTP(ctx context.Context, userID, code string) (bool, error) {
	cfg, secret, err := s.loadSecret(ctx, userID, models.MfaTOTP)
	if err != nil || cfg == nil {
		s.timing.Wait(ctx, false)
		return false, err
	}

	if !s.engine.VerifyAt(secret, code, s.now(), s.config.TOTP) {
		s.recordVerification(ctx, userID, models.MfaTOTP, false)
		return false, nil
	}

	if !cfg.IsVerified() {
		cfg.VerifiedAt = ptrTime(s.now())
		if err := s.configRepo.Update(ctx, cfg); err != nil {
			return false, err
		}
	}

	if _, err := s.methods.Enable(ctx, userID, models.MethodTOTP, nil); err != nil {
		return false, err
	}

	s.recordVerification(ctx, userID, models.MfaTOTP, true)
	s.security.Success(ctx, "mfa_enabled", userID, map[string]string{"method": string(models.MfaTOTP)})
	return true, nil
}

// VerifyTOTP checks a login code. Missing or unconfirmed enrollment is a plain false.
func (s *MFAService) VerifyTOTP(ctx context.Context, userID, code string) (bool, error) {
	cfg, secret, err := s.loadSecret(ctx, userID, models.MfaTOTP)
	if err != nil {
		return false, err
	}
	if cfg == nil || !cfg.IsVerified() {
		s.timing.Wait(ctx, false)
		return false, nil
	}

	ok := s.engine.VerifyAt(secret, code, s.now(), s.config.TOTP)
	s.recordVerification(ctx, userID, models.MfaTOTP, ok)
	if !ok {
		return false, nil
	}

	if err := s.methods.MarkUsed(ctx, userID, models.MethodTOTP); err != nil {
		s.logger.Error("failed to mark totp used", slog.String("user_id", userID), slog.Any("error", err))
	}
	return true, nil
}

// IsTOTPEnabled reports a confirmed TOTP enrollment
func (s *MFAService) IsTOTPEnabled(ctx context.Context, userID string) (bool, error) {
	cfg, err := s.configRepo.FindByUserAndMethod(ctx, userID, models.MfaTOTP)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return cfg.IsVerified(), nil
}

// DisableTOTP removes the enrollment and disables the auth method
func (s *MFAService) DisableTOTP(ctx context.Context, userID string) (bool, error) {
	return s.disable(ctx, userID, models.MfaTOTP)
}

// EnrollChannel provisions an sms or email challenge secret. For sms,
// destination is the phone number kept on the enrollment.
func (s *MFAService) EnrollChannel(ctx context.Context, userID string, method models.MfaMethod, phone string) (*models.MfaConfig, error) {
	if method == models.MfaTOTP {
		return nil, fmt.Errorf("%w: use SetupTOTP for totp", models.ErrInvalidMfaMethod)
	}

	cfg, err := models.NewMfaConfig(userID, method)
	if err != nil {
		return nil, err
	}

	secret, err := s.engine.GenerateSecret(s.config.SecretLength)
	if err != nil {
		return nil, err
	}
	if cfg.SecretEncrypted, err = s.cipher.Encrypt(secret); err != nil {
		return nil, err
	}
	if method == models.MfaSMS {
		phone = strings.TrimSpace(phone)
		if phone == "" {
			return nil, fmt.Errorf("%w: phone number is required for sms", models.ErrValidation)
		}
		cfg.Phone = &phone
	}

	if err := s.configRepo.Upsert(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SendChallenge delivers the current channel code. An empty destination
// falls back to the enrolled phone for sms.
func (s *MFAService) SendChallenge(ctx context.Context, userID string, method models.MfaMethod, destination string) error {
	sender, ok := s.senders[method]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrChannelNotConfigured, method)
	}

	cfg, secret, err := s.loadSecret(ctx, userID, method)
	if err != nil {
		return err
	}
	if cfg == nil {
		return fmt.Errorf("%s enrollment: %w", method, models.ErrNotFound)
	}

	if destination == "" && cfg.Phone != nil {
		destination = *cfg.Phone
	}
	if destination == "" {
		return fmt.Errorf("%w: destination is required", models.ErrValidation)
	}

	code := s.engine.CodeAt(secret, s.now(), s.channelOptions())
	if err := sender.SendCode(ctx, destination, code, s.config.ChannelCodePeriod); err != nil {
		s.logger.Error("failed to send mfa challenge",
			slog.String("user_id", userID),
			slog.String("method", string(method)),
			slog.String("destination", logger.SanitizedDestination(destination)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send %s code: %w", method, err)
	}

	return nil
}

// VerifyChallenge checks a code delivered by SendChallenge. The first
// success confirms the enrollment and enables the method.
func (s *MFAService) VerifyChallenge(ctx context.Context, userID string, method models.MfaMethod, code string) (bool, error) {
	cfg, secret, err := s.loadSecret(ctx, userID, method)
	if err != nil {
		return false, err
	}
	if cfg == nil {
		s.timing.Wait(ctx, false)
		return false, nil
	}

	ok := s.engine.VerifyAt(secret, code, s.now(), s.channelOptions())
	s.recordVerification(ctx, userID, method, ok)
	if !ok {
		return false, nil
	}

	if !cfg.IsVerified() {
		cfg.VerifiedAt = ptrTime(s.now())
		if err := s.configRepo.Update(ctx, cfg); err != nil {
			return false, err
		}
		if _, err := s.methods.Enable(ctx, userID, method.AuthMethod(), nil); err != nil {
			return false, err
		}
	} else if err := s.methods.MarkUsed(ctx, userID, method.AuthMethod()); err != nil {
		s.logger.Error("failed to mark mfa method used", slog.String("user_id", userID), slog.Any("error", err))
	}

	return true, nil
}

// DisableChannel removes an sms or email enrollment
func (s *MFAService) DisableChannel(ctx context.Context, userID string, method models.MfaMethod) (bool, error) {
	return s.disable(ctx, userID, method)
}

func (s *MFAService) disable(ctx context.Context, userID string, method models.MfaMethod) (bool, error) {
	deleted, err := s.configRepo.Delete(ctx, userID, method)
	if err != nil {
		return false, err
	}
	if _, err := s.methods.Disable(ctx, userID, method.AuthMethod()); err != nil {
		return false, err
	}

	if deleted {
		s.security.Success(ctx, "mfa_disabled", userID, map[string]string{"method": string(method)})
	}
	return deleted, nil
}

// loadSecret returns a nil config when the user has no enrollment
func (s *MFAService) loadSecret(ctx context.Context, userID string, method models.MfaMethod) (*models.MfaConfig, string, error) {
	cfg, err := s.configRepo.FindByUserAndMethod(ctx, userID, method)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, "", nil
		}
		return nil, "", err
	}

	secret, err := s.cipher.Decrypt(cfg.SecretEncrypted)
	if err != nil {
		s.logger.Error("failed to decrypt mfa secret",
			slog.String("user_id", userID),
			slog.String("method", string(method)),
			slog.Any("error", err))
		return nil, "", err
	}
	return cfg, secret, nil
}

func (s *MFAService) channelOptions() auth.TOTPOptions {
	opts := s.config.TOTP
	opts.Period = s.config.ChannelCodePeriod
	return opts
}

func (s *MFAService) recordVerification(ctx context.Context, userID string, method models.MfaMethod, ok bool) {
	metrics.MFAVerificationsTotal.WithLabelValues(string(method), metrics.Result(ok)).Inc()
	if ok {
		return
	}
	s.security.Failure(ctx, "mfa_verify", userID, "invalid_code")
	s.timing.Wait(ctx, false)
}
