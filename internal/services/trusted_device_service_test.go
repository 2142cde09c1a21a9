package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/autentica/internal/auth"
	"github.com/BradenHooton/autentica/internal/models"
)

const chromeMacUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

func requestFrom(ua, ip, lang string) models.RequestContext {
	h := http.Header{}
	h.Set("Accept-Language", lang)
	h.Set("Accept-Encoding", "gzip, deflate, br")
	return models.RequestContext{IP: ip, UserAgent: ua, Headers: h}
}

func newDeviceFixture(t *testing.T, max int) (*TrustedDeviceService, *MockTrustedDeviceRepository, *MockTransactor, *testClock) {
	t.Helper()
	repo := NewMockTrustedDeviceRepository()
	tx := &MockTransactor{}
	clock := newTestClock()
	svc := NewTrustedDeviceService(repo, tx, testLogger(), DeviceConfig{MaxDevices: max})
	svc.now = clock.Now
	return svc, repo, tx, clock
}

// ============================================================================
// Register Tests
// ============================================================================

func TestTrustedDeviceService_Register(t *testing.T) {
	svc, _, tx, _ := newDeviceFixture(t, 10)
	ctx := context.Background()
	req := requestFrom(chromeMacUA, "203.0.113.7", "en-US")

	device, err := svc.Register(ctx, "user123", req, "")
	require.NoError(t, err)

	assert.Equal(t, auth.DeviceFingerprint(req), device.DeviceID)
	assert.Equal(t, "Chrome", device.Browser)
	assert.Equal(t, "macOS", device.Platform)
	assert.Equal(t, "Chrome on macOS", device.Name)
	assert.Equal(t, "203.0.113.7", device.IPAddress)
	assert.Contains(t, tx.Locked, "trusted_devices:user123")

	trusted, err := svc.IsTrusted(ctx, "user123", req)
	require.NoError(t, err)
	assert.True(t, trusted)

	trusted, err = svc.IsTrusted(ctx, "user456", req)
	require.NoError(t, err)
	assert.False(t, trusted)
}

func TestTrustedDeviceService_RegisterSameDeviceUpdatesInPlace(t *testing.T) {
	svc, _, _, clock := newDeviceFixture(t, 10)
	ctx := context.Background()
	req := requestFrom(chromeMacUA, "203.0.113.7", "en-US")

	first, err := svc.Register(ctx, "user123", req, "Work laptop")
	require.NoError(t, err)

	clock.Advance(time.Hour)
	req.IP = "198.51.100.1"
	second, err := svc.Register(ctx, "user123", req, "Work laptop")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	devices, err := svc.List(ctx, "user123")
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "198.51.100.1", devices[0].IPAddress)
	assert.Equal(t, clock.Now(), devices[0].LastUsedAt)
}

func TestTrustedDeviceService_RegisterWithoutNameKeepsCustomName(t *testing.T) {
	svc, repo, _, clock := newDeviceFixture(t, 10)
	ctx := context.Background()
	req := requestFrom(chromeMacUA, "203.0.113.7", "en-US")

	_, err := svc.Register(ctx, "user123", req, "Work laptop")
	require.NoError(t, err)

	clock.Advance(time.Hour)
	device, err := svc.Register(ctx, "user123", req, "")
	require.NoError(t, err)
	assert.Equal(t, "Work laptop", device.Name)

	stored, err := repo.FindByUserAndDevice(ctx, "user123", device.DeviceID)
	require.NoError(t, err)
	assert.Equal(t, "Work laptop", stored.Name)
	assert.Equal(t, clock.Now(), stored.LastUsedAt)
}

func TestTrustedDeviceService_CapEvictsLeastRecentlyUsed(t *testing.T) {
	svc, _, _, clock := newDeviceFixture(t, 10)
	ctx := context.Background()

	var first models.RequestContext
	for i := 0; i < 10; i++ {
		req := requestFrom(chromeMacUA, "203.0.113.7", fmt.Sprintf("lang-%d", i))
		if i == 0 {
			first = req
		}
		_, err := svc.Register(ctx, "user123", req, "")
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	_, err := svc.Register(ctx, "user123", requestFrom(chromeMacUA, "203.0.113.7", "lang-new"), "")
	require.NoError(t, err)

	devices, err := svc.List(ctx, "user123")
	require.NoError(t, err)
	assert.Len(t, devices, 10)

	trusted, err := svc.IsTrusted(ctx, "user123", first)
	require.NoError(t, err)
	assert.False(t, trusted, "oldest device should have been evicted")
}

func TestTrustedDeviceService_KnownDeviceNeverEvicts(t *testing.T) {
	svc, _, _, clock := newDeviceFixture(t, 2)
	ctx := context.Background()

	a := requestFrom(chromeMacUA, "203.0.113.7", "a")
	b := requestFrom(chromeMacUA, "203.0.113.7", "b")
	for _, req := range []models.RequestContext{a, b, a} {
		_, err := svc.Register(ctx, "user123", req, "")
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	devices, err := svc.List(ctx, "user123")
	require.NoError(t, err)
	assert.Len(t, devices, 2)
}

func TestTrustedDeviceService_RegisterFailure(t *testing.T) {
	svc, repo, _, _ := newDeviceFixture(t, 10)
	repo.UpsertErr = errors.New("constraint violation")

	_, err := svc.Register(context.Background(), "user123", requestFrom(chromeMacUA, "203.0.113.7", "en"), "")
	assert.Error(t, err)
}

// ============================================================================
// Touch / Remove / Cleanup Tests
// ============================================================================

func TestTrustedDeviceService_Touch(t *testing.T) {
	svc, _, _, clock := newDeviceFixture(t, 10)
	ctx := context.Background()
	req := requestFrom(chromeMacUA, "203.0.113.7", "en")

	ok, err := svc.Touch(ctx, "user123", req)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.Register(ctx, "user123", req, "")
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	ok, err = svc.Touch(ctx, "user123", req)
	require.NoError(t, err)
	assert.True(t, ok)

	devices, err := svc.List(ctx, "user123")
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), devices[0].LastUsedAt)
	assert.Equal(t, models.ActivityLastDay, devices[0].ActivityStatus(clock.Now()))
}

func TestTrustedDeviceService_Remove(t *testing.T) {
	svc, _, _, _ := newDeviceFixture(t, 10)
	ctx := context.Background()

	device, err := svc.Register(ctx, "user123", requestFrom(chromeMacUA, "203.0.113.7", "en"), "")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "user123", requestFrom(chromeMacUA, "203.0.113.7", "de"), "")
	require.NoError(t, err)

	ok, err := svc.Remove(ctx, "user456", device.DeviceID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Remove(ctx, "user123", device.DeviceID)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := svc.RemoveAll(ctx, "user123")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestTrustedDeviceService_CleanupInactive(t *testing.T) {
	svc, _, _, clock := newDeviceFixture(t, 10)
	ctx := context.Background()

	_, err := svc.Register(ctx, "user123", requestFrom(chromeMacUA, "203.0.113.7", "old"), "")
	require.NoError(t, err)
	clock.Advance(80 * 24 * time.Hour)
	_, err = svc.Register(ctx, "user123", requestFrom(chromeMacUA, "203.0.113.7", "new"), "")
	require.NoError(t, err)
	clock.Advance(11 * 24 * time.Hour)

	n, err := svc.CleanupInactive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
