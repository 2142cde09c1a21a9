package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/autentica/internal/models"
	"github.com/BradenHooton/autentica/internal/oauth"
	"github.com/BradenHooton/autentica/pkg/logger"
)

// MockTokenRefresher implements TokenRefresher for testing
type MockTokenRefresher struct {
	RefreshTokenFunc func(ctx context.Context, provider models.Provider, refreshToken string) (*oauth.TokenPayload, error)
}

func (m *MockTokenRefresher) RefreshToken(ctx context.Context, provider models.Provider, refreshToken string) (*oauth.TokenPayload, error) {
	if m.RefreshTokenFunc != nil {
		return m.RefreshTokenFunc(ctx, provider, refreshToken)
	}
	return nil, models.ErrOAuthRequestFailed
}

type socialFixture struct {
	svc       *SocialAccountService
	repo      *MockSocialAccountRepository
	methods   *MockAuthMethodRepository
	refresher *MockTokenRefresher
	clock     *testClock
}

func newSocialFixture(t *testing.T) *socialFixture {
	t.Helper()
	clock := newTestClock()
	repo := NewMockSocialAccountRepository()
	methods := NewMockAuthMethodRepository()
	refresher := &MockTokenRefresher{}

	svc := NewSocialAccountService(repo, NewAuthMethodService(methods), refresher, testCipher(t), testLogger())
	svc.now = clock.Now

	return &socialFixture{svc: svc, repo: repo, methods: methods, refresher: refresher, clock: clock}
}

var githubProfile = &oauth.Profile{ID: "583231", Email: "octocat@github.com", Name: "The Octocat"}

// ============================================================================
// Link Tests
// ============================================================================

func TestSocialAccountService_Link(t *testing.T) {
	f := newSocialFixture(t)
	ctx := context.Background()

	account, err := f.svc.Link(ctx, "user123", models.ProviderGitHub, &oauth.TokenPayload{
		AccessToken:  "gho_access",
		RefreshToken: "ghr_refresh",
		ExpiresIn:    "28800",
	}, githubProfile)
	require.NoError(t, err)

	assert.Equal(t, "583231", account.ProviderUserID)
	assert.NotEqual(t, "gho_access", account.AccessTokenEncrypted)
	assert.True(t, account.HasRefreshToken())
	require.NotNil(t, account.ExpiresAt)
	assert.Equal(t, f.clock.Now().Add(8*time.Hour), *account.ExpiresAt)

	plaintext, err := f.svc.DecryptAccessToken(account)
	require.NoError(t, err)
	assert.Equal(t, "gho_access", plaintext)

	method, err := f.methods.FindByUserAndMethod(ctx, "user123", models.MethodSocial)
	require.NoError(t, err)
	assert.True(t, method.Enabled)
	assert.Equal(t, []any{"github"}, method.Config["providers"])
}

func TestSocialAccountService_LinkWithoutExpiry(t *testing.T) {
	f := newSocialFixture(t)

	account, err := f.svc.Link(context.Background(), "user123", models.ProviderGitHub, &oauth.TokenPayload{AccessToken: "gho_access"}, githubProfile)
	require.NoError(t, err)
	assert.Nil(t, account.ExpiresAt)
	assert.False(t, account.HasRefreshToken())
	assert.False(t, f.svc.NeedsRefresh(account, time.Hour))
}

func TestSocialAccountService_LinkValidation(t *testing.T) {
	f := newSocialFixture(t)
	ctx := context.Background()

	_, err := f.svc.Link(ctx, "user123", models.Provider("myspace"), &oauth.TokenPayload{AccessToken: "x"}, githubProfile)
	assert.ErrorIs(t, err, models.ErrUnsupportedProvider)

	_, err = f.svc.Link(ctx, "user123", models.ProviderGitHub, &oauth.TokenPayload{}, githubProfile)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.svc.Link(ctx, "user123", models.ProviderGitHub, &oauth.TokenPayload{AccessToken: "x"}, &oauth.Profile{})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestSocialAccountService_RelinkKeepsOneRow(t *testing.T) {
	f := newSocialFixture(t)
	ctx := context.Background()

	first, err := f.svc.Link(ctx, "user123", models.ProviderGitHub, &oauth.TokenPayload{AccessToken: "a"}, githubProfile)
	require.NoError(t, err)
	second, err := f.svc.Link(ctx, "user123", models.ProviderGitHub, &oauth.TokenPayload{AccessToken: "b"}, githubProfile)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	accounts, err := f.svc.List(ctx, "user123")
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestSocialAccountService_RelinkWithoutRefreshTokenKeepsStoredOne(t *testing.T) {
	f := newSocialFixture(t)
	ctx := context.Background()
	profile := &oauth.Profile{ID: "g-1"}

	_, err := f.svc.Link(ctx, "user123", models.ProviderGoogle, &oauth.TokenPayload{AccessToken: "ya29.first", RefreshToken: "1//keep"}, profile)
	require.NoError(t, err)

	relinked, err := f.svc.Link(ctx, "user123", models.ProviderGoogle, &oauth.TokenPayload{AccessToken: "ya29.second"}, profile)
	require.NoError(t, err)
	assert.True(t, relinked.HasRefreshToken())

	var gotRefresh string
	f.refresher.RefreshTokenFunc = func(ctx context.Context, provider models.Provider, refreshToken string) (*oauth.TokenPayload, error) {
		gotRefresh = refreshToken
		return &oauth.TokenPayload{AccessToken: "ya29.third"}, nil
	}

	stored, err := f.svc.Get(ctx, "user123", models.ProviderGoogle)
	require.NoError(t, err)
	ok, err := f.svc.Refresh(ctx, stored)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1//keep", gotRefresh)
}

func TestSocialAccountService_RelinkDifferentIdentityDropsRefreshToken(t *testing.T) {
	f := newSocialFixture(t)
	ctx := context.Background()

	_, err := f.svc.Link(ctx, "user123", models.ProviderGoogle, &oauth.TokenPayload{AccessToken: "a", RefreshToken: "r"}, &oauth.Profile{ID: "g-1"})
	require.NoError(t, err)

	relinked, err := f.svc.Link(ctx, "user123", models.ProviderGoogle, &oauth.TokenPayload{AccessToken: "b"}, &oauth.Profile{ID: "g-2"})
	require.NoError(t, err)
	assert.False(t, relinked.HasRefreshToken())
}

func TestSocialAccountService_LinkAuditsProvider(t *testing.T) {
	f := newSocialFixture(t)
	ctx := context.Background()

	var buf bytes.Buffer
	f.svc.security = logger.NewSecurityLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	_, err := f.svc.Link(ctx, "user123", models.ProviderGitHub, &oauth.TokenPayload{AccessToken: "gho"}, githubProfile)
	require.NoError(t, err)
	_, err = f.svc.Unlink(ctx, "user123", models.ProviderGitHub)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	for i, event := range []string{"social_account_linked", "social_account_unlinked"} {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[i]), &entry))
		assert.Equal(t, event, entry["event_type"])
		assert.Equal(t, "github", entry["provider"])
		assert.Equal(t, "user123", entry["user_id"])
	}
}

// ============================================================================
// Refresh Tests
// ============================================================================

func TestSocialAccountService_Refresh(t *testing.T) {
	f := newSocialFixture(t)
	ctx := context.Background()

	account, err := f.svc.Link(ctx, "user123", models.ProviderGoogle, &oauth.TokenPayload{
		AccessToken:  "ya29.old",
		RefreshToken: "1//refresh",
		ExpiresIn:    "3600",
	}, &oauth.Profile{ID: "g-1"})
	require.NoError(t, err)

	f.clock.Advance(55 * time.Minute)
	assert.True(t, f.svc.NeedsRefresh(account, 10*time.Minute))

	var gotRefresh string
	f.refresher.RefreshTokenFunc = func(ctx context.Context, provider models.Provider, refreshToken string) (*oauth.TokenPayload, error) {
		gotRefresh = refreshToken
		return &oauth.TokenPayload{AccessToken: "ya29.new", ExpiresIn: "3600"}, nil
	}

	ok, err := f.svc.Refresh(ctx, account)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1//refresh", gotRefresh)

	stored, err := f.svc.Get(ctx, "user123", models.ProviderGoogle)
	require.NoError(t, err)
	plaintext, err := f.svc.DecryptAccessToken(stored)
	require.NoError(t, err)
	assert.Equal(t, "ya29.new", plaintext)
	assert.True(t, stored.HasRefreshToken(), "refresh token kept when the provider does not rotate it")
	assert.Equal(t, f.clock.Now().Add(time.Hour), *stored.ExpiresAt)
}

func TestSocialAccountService_RefreshWithoutRefreshToken(t *testing.T) {
	f := newSocialFixture(t)

	account, err := f.svc.Link(context.Background(), "user123", models.ProviderFacebook, &oauth.TokenPayload{AccessToken: "fb"}, &oauth.Profile{ID: "fb-1"})
	require.NoError(t, err)

	ok, err := f.svc.Refresh(context.Background(), account)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSocialAccountService_RefreshProviderError(t *testing.T) {
	f := newSocialFixture(t)
	ctx := context.Background()

	account, err := f.svc.Link(ctx, "user123", models.ProviderGoogle, &oauth.TokenPayload{AccessToken: "a", RefreshToken: "r"}, &oauth.Profile{ID: "g-1"})
	require.NoError(t, err)

	f.refresher.RefreshTokenFunc = func(ctx context.Context, provider models.Provider, refreshToken string) (*oauth.TokenPayload, error) {
		return nil, errors.Join(models.ErrOAuthRequestFailed, errors.New("status 400"))
	}

	ok, err := f.svc.Refresh(ctx, account)
	assert.ErrorIs(t, err, models.ErrOAuthRequestFailed)
	assert.False(t, ok)
}

// ============================================================================
// Unlink Tests
// ============================================================================

func TestSocialAccountService_Unlink(t *testing.T) {
	f := newSocialFixture(t)
	ctx := context.Background()

	for _, p := range []models.Provider{models.ProviderGitHub, models.ProviderGoogle} {
		_, err := f.svc.Link(ctx, "user123", p, &oauth.TokenPayload{AccessToken: "x"}, &oauth.Profile{ID: "id-" + string(p)})
		require.NoError(t, err)
	}

	ok, err := f.svc.Unlink(ctx, "user123", models.ProviderGitHub)
	require.NoError(t, err)
	assert.True(t, ok)

	method, err := f.methods.FindByUserAndMethod(ctx, "user123", models.MethodSocial)
	require.NoError(t, err)
	assert.True(t, method.Enabled, "google is still linked")

	ok, err = f.svc.Unlink(ctx, "user123", models.ProviderGoogle)
	require.NoError(t, err)
	assert.True(t, ok)

	method, err = f.methods.FindByUserAndMethod(ctx, "user123", models.MethodSocial)
	require.NoError(t, err)
	assert.False(t, method.Enabled)

	ok, err = f.svc.Unlink(ctx, "user123", models.ProviderGoogle)
	require.NoError(t, err)
	assert.False(t, ok)

	account, err := f.svc.Get(ctx, "user123", models.ProviderGoogle)
	require.NoError(t, err)
	assert.Nil(t, account)
}
