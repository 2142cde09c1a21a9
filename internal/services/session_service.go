package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/BradenHooton/autentica/internal/auth"
	"github.com/BradenHooton/autentica/internal/metrics"
	"github.com/BradenHooton/autentica/internal/models"
	"github.com/BradenHooton/autentica/internal/repositories"
	"github.com/BradenHooton/autentica/pkg/logger"
)

const lockScopeSessions = "user_sessions"

// LocationResolver geolocates an IP address
type LocationResolver interface {
	Locate(ctx context.Context, ip string) (models.Location, error)
}

// SessionConfig holds session limits and activity thresholds
type SessionConfig struct {
	MaxConcurrent int
	InactiveAfter time.Duration
	GeoTimeout    time.Duration
	ActiveWithin  time.Duration
	IdleWithin    time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxConcurrent: 5,
		InactiveAfter: 24 * time.Hour,
		GeoTimeout:    2 * time.Second,
		ActiveWithin:  time.Hour,
		IdleWithin:    24 * time.Hour,
	}
}

// SessionService tracks where and on which device a user is signed in
type SessionService struct {
	repo     repositories.SessionRepository
	devices  *TrustedDeviceService
	geo      LocationResolver
	tx       Transactor
	security *logger.SecurityLogger
	logger   *slog.Logger
	config   SessionConfig
	now      func() time.Time
}

// NewSessionService creates a session service. geo and devices may be nil.
func NewSessionService(
	repo repositories.SessionRepository,
	devices *TrustedDeviceService,
	geo LocationResolver,
	tx Transactor,
	log *slog.Logger,
	config SessionConfig,
) *SessionService {
	defaults := DefaultSessionConfig()
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = defaults.MaxConcurrent
	}
	if config.InactiveAfter <= 0 {
		config.InactiveAfter = defaults.InactiveAfter
	}
	if config.GeoTimeout <= 0 {
		config.GeoTimeout = defaults.GeoTimeout
	}
	if config.ActiveWithin <= 0 {
		config.ActiveWithin = defaults.ActiveWithin
	}
	if config.IdleWithin <= 0 {
		config.IdleWithin = defaults.IdleWithin
	}

	return &SessionService{
		repo:     repo,
		devices:  devices,
		geo:      geo,
		tx:       tx,
		security: logger.NewSecurityLogger(log),
		logger:   log,
		config:   config,
		now:      time.Now,
	}
}

// Create records a new session, evicting the least recently active ones
// beyond MaxConcurrent. Geolocation and trusted device enrichment never
// fail the call.
func (s *SessionService) Create(ctx context.Context, userID, sessionID string, req models.RequestContext) (*models.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", models.ErrValidation)
	}

	session := &models.Session{
		UserID:       userID,
		SessionID:    sessionID,
		IPAddress:    req.IP,
		UserAgent:    req.UserAgent,
		DeviceID:     auth.DeviceFingerprint(req),
		Location:     s.locate(ctx, req.IP),
		LastActivity: s.now(),
	}

	var evicted int64
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.tx.LockUser(ctx, lockScopeSessions, userID); err != nil {
			return err
		}

		existing, err := s.repo.FindBySessionID(ctx, sessionID)
		switch {
		case err == nil:
			if existing.UserID != userID {
				return fmt.Errorf("%w: session id is in use", models.ErrConflict)
			}
		case errors.Is(err, models.ErrNotFound):
			count, err := s.repo.CountByUser(ctx, userID)
			if err != nil {
				return err
			}
			if over := count - s.config.MaxConcurrent + 1; over > 0 {
				if evicted, err = s.repo.DeleteOldestByUser(ctx, userID, over); err != nil {
					return err
				}
			}
		default:
			return err
		}

		return s.repo.Upsert(ctx, session)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if evicted > 0 {
		metrics.EvictionsTotal.WithLabelValues("session").Add(float64(evicted))
		s.security.Success(ctx, "session_evicted", userID, map[string]string{"count": fmt.Sprint(evicted)})
	}

	if s.devices != nil {
		if _, err := s.devices.Register(ctx, userID, req, ""); err != nil {
			s.logger.Warn("failed to register trusted device for session",
				slog.String("user_id", userID),
				slog.Any("error", err))
		}
	}

	return session, nil
}

// Touch records activity on a session. A non-empty ip replaces the stored one.
func (s *SessionService) Touch(ctx context.Context, sessionID, ip string) (bool, error) {
	session, err := s.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	session.LastActivity = s.now()
	if ip != "" && ip != session.IPAddress {
		session.IPAddress = ip
		session.Location = s.locate(ctx, ip)
	}

	if err := s.repo.Update(ctx, session); err != nil {
		return false, err
	}
	return true, nil
}

// End deletes one of the user's sessions. Another user's session is never touched.
func (s *SessionService) End(ctx context.Context, userID, sessionID string) (bool, error) {
	return s.repo.DeleteForUser(ctx, userID, sessionID)
}

// EndAllOthers deletes every session of the user except keepSessionID
func (s *SessionService) EndAllOthers(ctx context.Context, userID, keepSessionID string) (int64, error) {
	n, err := s.repo.DeleteAllForUserExcept(ctx, userID, keepSessionID)
	if err != nil {
		return 0, err
	}
	s.security.Success(ctx, "sessions_ended", userID, map[string]string{"count": fmt.Sprint(n)})
	return n, nil
}

// List returns the user's sessions, most recently active first
func (s *SessionService) List(ctx context.Context, userID string) ([]*models.Session, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Status classifies a session with the configured thresholds
func (s *SessionService) Status(session *models.Session) models.SessionStatus {
	return session.Status(s.now(), s.config.ActiveWithin, s.config.IdleWithin)
}

// CleanupInactive hard-deletes sessions idle for longer than InactiveAfter
func (s *SessionService) CleanupInactive(ctx context.Context) (int64, error) {
	return s.repo.DeleteInactiveBefore(ctx, s.now().Add(-s.config.InactiveAfter))
}

// locate resolves a public IP with a bounded wait. Anything else is Unknown.
func (s *SessionService) locate(ctx context.Context, ip string) models.Location {
	if s.geo == nil || !isPublicIP(ip) {
		return models.UnknownLocation()
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.GeoTimeout)
	defer cancel()

	loc, err := s.geo.Locate(ctx, ip)
	if err != nil {
		metrics.GeoLookupsTotal.WithLabelValues(metrics.Result(false)).Inc()
		s.logger.Debug("geolocation lookup failed", slog.Any("error", err))
		return models.UnknownLocation()
	}

	metrics.GeoLookupsTotal.WithLabelValues(metrics.Result(true)).Inc()
	return loc
}

func isPublicIP(raw string) bool {
	ip := net.ParseIP(raw)
	if ip == nil {
		return false
	}
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified() || ip.IsMulticast())
}
