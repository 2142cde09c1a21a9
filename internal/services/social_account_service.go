package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/autentica/internal/auth"
	"github.com/BradenHooton/autentica/internal/models"
	"github.com/BradenHooton/autentica/internal/oauth"
	"github.com/BradenHooton/autentica/internal/repositories"
	"github.com/BradenHooton/autentica/pkg/logger"
)

// TokenRefresher exchanges a provider refresh token for a new access token
type TokenRefresher interface {
	RefreshToken(ctx context.Context, provider models.Provider, refreshToken string) (*oauth.TokenPayload, error)
}

// SocialAccountService stores provider tokens for linked identities
type SocialAccountService struct {
	repo      repositories.SocialAccountRepository
	methods   *AuthMethodService
	refresher TokenRefresher
	cipher    *auth.Cipher
	security  *logger.SecurityLogger
	logger    *slog.Logger
	now       func() time.Time
}

func NewSocialAccountService(
	repo repositories.SocialAccountRepository,
	methods *AuthMethodService,
	refresher TokenRefresher,
	cipher *auth.Cipher,
	log *slog.Logger,
) *SocialAccountService {
	return &SocialAccountService{
		repo:      repo,
		methods:   methods,
		refresher: refresher,
		cipher:    cipher,
		security:  logger.NewSecurityLogger(log),
		logger:    log,
		now:       time.Now,
	}
}

// Link upserts the (user, provider) identity with freshly encrypted tokens
// and enables the social auth method
func (s *SocialAccountService) Link(ctx context.Context, userID string, provider models.Provider, payload *oauth.TokenPayload, profile *oauth.Profile) (*models.SocialAccount, error) {
	if _, err := models.ParseProvider(string(provider)); err != nil {
		return nil, err
	}
	if payload == nil || payload.AccessToken == "" {
		return nil, fmt.Errorf("%w: access token is required", models.ErrValidation)
	}
	if profile == nil || profile.ID == "" {
		return nil, fmt.Errorf("%w: provider user id is required", models.ErrValidation)
	}

	account := &models.SocialAccount{
		UserID:         userID,
		Provider:       provider,
		ProviderUserID: profile.ID,
	}
	if payload.RefreshToken == "" {
		// re-consent without a new refresh token keeps the stored one
		existing, err := s.repo.FindByUserAndProvider(ctx, userID, provider)
		switch {
		case err == nil:
			if existing.ProviderUserID == profile.ID {
				account.RefreshTokenEncrypted = existing.RefreshTokenEncrypted
			}
		case !errors.Is(err, models.ErrNotFound):
			return nil, err
		}
	}
	if err := s.applyPayload(account, payload); err != nil {
		return nil, err
	}

	if err := s.repo.Upsert(ctx, account); err != nil {
		return nil, err
	}

	if err := s.syncSocialMethod(ctx, userID); err != nil {
		return nil, err
	}

	s.security.Success(ctx, "social_account_linked", userID, map[string]string{"provider": string(provider)})
	return account, nil
}

// Refresh renews the access token. Returns false when the account has no
// refresh token to use.
func (s *SocialAccountService) Refresh(ctx context.Context, account *models.SocialAccount) (bool, error) {
	if account == nil || !account.HasRefreshToken() {
		return false, nil
	}
	if s.refresher == nil {
		return false, models.ErrOAuthNotConfigured
	}

	refreshToken, err := s.cipher.Decrypt(*account.RefreshTokenEncrypted)
	if err != nil {
		return false, fmt.Errorf("failed to decrypt refresh token: %w", err)
	}

	payload, err := s.refresher.RefreshToken(ctx, account.Provider, refreshToken)
	if err != nil {
		s.security.Failure(ctx, "social_token_refresh", account.UserID, err.Error())
		return false, err
	}

	// Providers that do not rotate refresh tokens omit the field
	if err := s.applyPayload(account, payload); err != nil {
		return false, err
	}
	if err := s.repo.Update(ctx, account); err != nil {
		return false, err
	}
	return true, nil
}

// Unlink removes the identity and disables the social method when it was the last one
func (s *SocialAccountService) Unlink(ctx context.Context, userID string, provider models.Provider) (bool, error) {
	deleted, err := s.repo.Delete(ctx, userID, provider)
	if err != nil || !deleted {
		return false, err
	}

	if err := s.syncSocialMethod(ctx, userID); err != nil {
		return true, err
	}

	s.security.Success(ctx, "social_account_unlinked", userID, map[string]string{"provider": string(provider)})
	return true, nil
}

// Get returns nil when the user has not linked provider
func (s *SocialAccountService) Get(ctx context.Context, userID string, provider models.Provider) (*models.SocialAccount, error) {
	account, err := s.repo.FindByUserAndProvider(ctx, userID, provider)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return account, nil
}

func (s *SocialAccountService) List(ctx context.Context, userID string) ([]*models.SocialAccount, error) {
	return s.repo.ListByUser(ctx, userID)
}

// DecryptAccessToken returns the plaintext provider access token
func (s *SocialAccountService) DecryptAccessToken(account *models.SocialAccount) (string, error) {
	token, err := s.cipher.Decrypt(account.AccessTokenEncrypted)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt access token: %w", err)
	}
	return token, nil
}

// NeedsRefresh reports whether the access token expires within the given window
func (s *SocialAccountService) NeedsRefresh(account *models.SocialAccount, within time.Duration) bool {
	now := s.now()
	return account.IsExpired(now) || account.IsExpiringSoon(now, within)
}

func (s *SocialAccountService) applyPayload(account *models.SocialAccount, payload *oauth.TokenPayload) error {
	access, err := s.cipher.Encrypt(payload.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	account.AccessTokenEncrypted = access

	if payload.RefreshToken != "" {
		refresh, err := s.cipher.Encrypt(payload.RefreshToken)
		if err != nil {
			return fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
		account.RefreshTokenEncrypted = &refresh
	}

	account.ExpiresAt = nil
	if secs := payload.ExpiresInSeconds(); secs > 0 {
		account.ExpiresAt = ptrTime(s.now().Add(time.Duration(secs) * time.Second))
	}
	return nil
}

// syncSocialMethod keeps AuthMethod(social) in step with the linked providers
func (s *SocialAccountService) syncSocialMethod(ctx context.Context, userID string) error {
	if s.methods == nil {
		return nil
	}

	accounts, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		_, err := s.methods.Disable(ctx, userID, models.MethodSocial)
		return err
	}

	providers := make([]any, 0, len(accounts))
	for _, a := range accounts {
		providers = append(providers, string(a.Provider))
	}
	_, err = s.methods.Enable(ctx, userID, models.MethodSocial, map[string]any{"providers": providers})
	return err
}
