package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/autentica/internal/auth"
	"github.com/BradenHooton/autentica/internal/metrics"
	"github.com/BradenHooton/autentica/internal/models"
	"github.com/BradenHooton/autentica/internal/repositories"
	pkgauth "github.com/BradenHooton/autentica/pkg/auth"
	"github.com/BradenHooton/autentica/pkg/logger"
)

// TokenConfig holds default lifetimes per token type. A zero lifetime
// means tokens of that type never expire.
type TokenConfig struct {
	RememberTTL time.Duration
	SessionTTL  time.Duration
	APITTL      time.Duration
}

func DefaultTokenConfig() TokenConfig {
	return TokenConfig{
		RememberTTL: 30 * 24 * time.Hour,
		SessionTTL:  2 * time.Hour,
		APITTL:      0,
	}
}

func (c TokenConfig) ttlFor(tokenType models.TokenType) time.Duration {
	switch tokenType {
	case models.TokenRemember:
		return c.RememberTTL
	case models.TokenSession:
		return c.SessionTTL
	default:
		return c.APITTL
	}
}

// IssueOptions customizes one token. TTL overrides the type default; a
// zero TTL yields a token that is already expired. NoExpiry wins over TTL.
type IssueOptions struct {
	TTL       *time.Duration
	NoExpiry  bool
	Name      string
	Abilities []string
}

// TokenService issues opaque bearer tokens and verifies them against
// their stored hashes
type TokenService struct {
	repo     repositories.TokenRepository
	hasher   pkgauth.Hasher
	security *logger.SecurityLogger
	logger   *slog.Logger
	config   TokenConfig
	now      func() time.Time
}

func NewTokenService(
	repo repositories.TokenRepository,
	hasher pkgauth.Hasher,
	log *slog.Logger,
	config TokenConfig,
) *TokenService {
	return &TokenService{
		repo:     repo,
		hasher:   hasher,
		security: logger.NewSecurityLogger(log),
		logger:   log,
		config:   config,
		now:      time.Now,
	}
}

// Issue creates a token and returns its plaintext. Only the hash is stored.
func (s *TokenService) Issue(ctx context.Context, userID string, tokenType models.TokenType, opts IssueOptions) (*models.IssuedToken, error) {
	token, err := models.NewAuthToken(userID, tokenType)
	if err != nil {
		return nil, err
	}

	plaintext, prefix, err := auth.GenerateOpaqueToken(auth.OpaqueTokenLength)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to hash token: %w", err)
	}

	now := s.now()
	switch {
	case opts.NoExpiry:
	case opts.TTL != nil:
		token.ExpiresAt = ptrTime(now.Add(*opts.TTL))
	default:
		if ttl := s.config.ttlFor(tokenType); ttl > 0 {
			token.ExpiresAt = ptrTime(now.Add(ttl))
		}
	}

	token.TokenHash = hash
	token.TokenPrefix = prefix
	token.Name = opts.Name
	token.Abilities = opts.Abilities

	if err := s.repo.Create(ctx, token); err != nil {
		s.logger.Error("failed to store token", slog.String("user_id", userID), slog.Any("error", err))
		return nil, err
	}

	metrics.TokensIssuedTotal.WithLabelValues(string(tokenType)).Inc()
	s.security.Success(ctx, "token_issued", userID, map[string]string{
		"token_id":   token.ID,
		"token_type": string(tokenType),
	})

	return &models.IssuedToken{
		TokenID:   token.ID,
		Plaintext: plaintext,
		Type:      tokenType,
		ExpiresAt: token.ExpiresAt,
	}, nil
}

// Verify returns the owning user of a live token of tokenType. With touch
// the token's last-used time is updated.
func (s *TokenService) Verify(ctx context.Context, plaintext string, tokenType models.TokenType, touch bool) (string, bool, error) {
	token, err := s.match(ctx, plaintext, &tokenType)
	if err != nil {
		return "", false, err
	}
	if token == nil {
		metrics.TokenVerificationsTotal.WithLabelValues(string(tokenType), metrics.Result(false)).Inc()
		return "", false, nil
	}

	if touch {
		token.LastUsedAt = ptrTime(s.now())
		if err := s.repo.Update(ctx, token); err != nil {
			return "", false, fmt.Errorf("failed to touch token: %w", err)
		}
	}

	metrics.TokenVerificationsTotal.WithLabelValues(string(tokenType), metrics.Result(true)).Inc()
	return token.UserID, true, nil
}

// match scans the live candidates sharing the presented prefix
func (s *TokenService) match(ctx context.Context, plaintext string, tokenType *models.TokenType) (*models.AuthToken, error) {
	prefix, ok := auth.TokenPrefix(plaintext)
	if !ok {
		return nil, nil
	}

	now := s.now()
	candidates, err := s.repo.FindActive(ctx, repositories.TokenFilter{Type: tokenType, Prefix: prefix, Now: now})
	if err != nil {
		return nil, err
	}

	for _, c := range candidates {
		if c.IsExpired(now) {
			continue
		}
		if s.hasher.Verify(c.TokenHash, plaintext) {
			return c, nil
		}
	}
	return nil, nil
}

// Revoke deletes one token, scoped to its owner
func (s *TokenService) Revoke(ctx context.Context, userID, tokenID string) (bool, error) {
	ok, err := s.repo.SoftDeleteForUser(ctx, userID, tokenID)
	if err != nil {
		return false, err
	}
	if ok {
		s.security.Success(ctx, "token_revoked", userID, map[string]string{"token_id": tokenID})
	}
	return ok, nil
}

// RevokeByType deletes all of a user's tokens of one type
func (s *TokenService) RevokeByType(ctx context.Context, userID string, tokenType models.TokenType) (int64, error) {
	if _, err := models.ParseTokenType(string(tokenType)); err != nil {
		return 0, err
	}
	n, err := s.repo.DeleteByUser(ctx, userID, &tokenType)
	if err != nil {
		return 0, err
	}
	s.security.Success(ctx, "tokens_revoked", userID, map[string]string{"token_type": string(tokenType)})
	return n, nil
}

// RevokeAll deletes every token a user holds
func (s *TokenService) RevokeAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.DeleteByUser(ctx, userID, nil)
	if err != nil {
		return 0, err
	}
	s.security.Success(ctx, "tokens_revoked", userID, map[string]string{"token_type": "all"})
	return n, nil
}

// RevokeByValue deletes the token matching plaintext, optionally restricted to a type
func (s *TokenService) RevokeByValue(ctx context.Context, plaintext string, tokenType *models.TokenType) (bool, error) {
	token, err := s.match(ctx, plaintext, tokenType)
	if err != nil || token == nil {
		return false, err
	}
	return s.Revoke(ctx, token.UserID, token.ID)
}

// ExtendExpiration pushes expiry out by d from the current expiry, or from
// now for a token that never expired. A missing token yields nil.
func (s *TokenService) ExtendExpiration(ctx context.Context, tokenID string, d time.Duration) (*models.AuthToken, error) {
	token, err := s.repo.FindByID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	from := s.now()
	if token.ExpiresAt != nil {
		from = *token.ExpiresAt
	}
	token.ExpiresAt = ptrTime(from.Add(d))

	if err := s.repo.Update(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// List returns the user's tokens, newest first
func (s *TokenService) List(ctx context.Context, userID string) ([]*models.AuthToken, error) {
	return s.repo.ListByUser(ctx, userID, nil)
}

// CleanupExpired hard-deletes every expired token
func (s *TokenService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}
