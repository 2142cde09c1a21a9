package services

import (
	"context"
	"errors"
	"time"

	"github.com/BradenHooton/autentica/internal/models"
	"github.com/BradenHooton/autentica/internal/repositories"
)

// AuthMethodService records which authentication methods a user has enabled
type AuthMethodService struct {
	repo repositories.AuthMethodRepository
	now  func() time.Time
}

func NewAuthMethodService(repo repositories.AuthMethodRepository) *AuthMethodService {
	return &AuthMethodService{repo: repo, now: time.Now}
}

// Enable creates or re-enables a method, replacing its config
func (s *AuthMethodService) Enable(ctx context.Context, userID string, method models.AuthMethodType, config map[string]any) (*models.AuthMethod, error) {
	m, err := models.NewAuthMethod(userID, method, config)
	if err != nil {
		return nil, err
	}

	if existing, err := s.repo.FindByUserAndMethod(ctx, userID, method); err == nil {
		m.LastUsedAt = existing.LastUsedAt
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	if err := s.repo.Upsert(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Disable keeps the row but marks it disabled. Returns false when the method was never set up.
func (s *AuthMethodService) Disable(ctx context.Context, userID string, method models.AuthMethodType) (bool, error) {
	m, err := s.repo.FindByUserAndMethod(ctx, userID, method)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	m.Enabled = false
	if err := s.repo.Update(ctx, m); err != nil {
		return false, err
	}
	return true, nil
}

func (s *AuthMethodService) List(ctx context.Context, userID string) ([]*models.AuthMethod, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *AuthMethodService) IsEnabled(ctx context.Context, userID string, method models.AuthMethodType) (bool, error) {
	m, err := s.repo.FindByUserAndMethod(ctx, userID, method)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return m.Enabled, nil
}

// MarkUsed stamps the method's last-used time; a missing method is a no-op
func (s *AuthMethodService) MarkUsed(ctx context.Context, userID string, method models.AuthMethodType) error {
	m, err := s.repo.FindByUserAndMethod(ctx, userID, method)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return err
	}

	m.LastUsedAt = ptrTime(s.now())
	return s.repo.Update(ctx, m)
}
