package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/autentica/internal/models"
)

func TestAuthMethodService_EnableDisable(t *testing.T) {
	svc := NewAuthMethodService(NewMockAuthMethodRepository())
	ctx := context.Background()

	enabled, err := svc.IsEnabled(ctx, "user123", models.MethodPassword)
	require.NoError(t, err)
	assert.False(t, enabled)

	_, err = svc.Enable(ctx, "user123", models.MethodPassword, map[string]any{"strength": "strong"})
	require.NoError(t, err)

	enabled, err = svc.IsEnabled(ctx, "user123", models.MethodPassword)
	require.NoError(t, err)
	assert.True(t, enabled)

	ok, err := svc.Disable(ctx, "user123", models.MethodPassword)
	require.NoError(t, err)
	assert.True(t, ok)

	enabled, err = svc.IsEnabled(ctx, "user123", models.MethodPassword)
	require.NoError(t, err)
	assert.False(t, enabled)

	ok, err = svc.Disable(ctx, "user123", models.MethodSMS)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthMethodService_EnableRejectsUnknownMethod(t *testing.T) {
	svc := NewAuthMethodService(NewMockAuthMethodRepository())

	_, err := svc.Enable(context.Background(), "user123", models.AuthMethodType("magic"), nil)
	assert.ErrorIs(t, err, models.ErrInvalidAuthMethod)
}

func TestAuthMethodService_MarkUsed(t *testing.T) {
	repo := NewMockAuthMethodRepository()
	svc := NewAuthMethodService(repo)
	clock := newTestClock()
	svc.now = clock.Now
	ctx := context.Background()

	// missing method is a no-op
	require.NoError(t, svc.MarkUsed(ctx, "user123", models.MethodTOTP))

	_, err := svc.Enable(ctx, "user123", models.MethodTOTP, nil)
	require.NoError(t, err)
	require.NoError(t, svc.MarkUsed(ctx, "user123", models.MethodTOTP))

	m, err := repo.FindByUserAndMethod(ctx, "user123", models.MethodTOTP)
	require.NoError(t, err)
	require.NotNil(t, m.LastUsedAt)
	assert.Equal(t, clock.Now(), *m.LastUsedAt)

	// re-enabling keeps the last-used stamp
	clock.Advance(time.Hour)
	_, err = svc.Enable(ctx, "user123", models.MethodTOTP, map[string]any{"v": 2})
	require.NoError(t, err)
	m, err = repo.FindByUserAndMethod(ctx, "user123", models.MethodTOTP)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(-time.Hour), *m.LastUsedAt)
}

func TestAuthMethodService_List(t *testing.T) {
	svc := NewAuthMethodService(NewMockAuthMethodRepository())
	ctx := context.Background()

	for _, m := range []models.AuthMethodType{models.MethodTOTP, models.MethodEmail} {
		_, err := svc.Enable(ctx, "user123", m, nil)
		require.NoError(t, err)
	}

	methods, err := svc.List(ctx, "user123")
	require.NoError(t, err)
	assert.Len(t, methods, 2)
}
