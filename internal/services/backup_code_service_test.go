package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackupCodeFixture(t *testing.T) (*BackupCodeService, *MockBackupCodeRepository, *testClock) {
	t.Helper()
	repo := NewMockBackupCodeRepository()
	clock := newTestClock()
	svc := NewBackupCodeService(repo, &MockTransactor{}, testHasher(), nil, testLogger(), DefaultBackupCodeConfig())
	svc.now = clock.Now
	return svc, repo, clock
}

// ============================================================================
// Generation Tests
// ============================================================================

func TestBackupCodeService_Generate(t *testing.T) {
	svc, repo, _ := newBackupCodeFixture(t)

	codes, err := svc.Generate(context.Background(), "user123")
	require.NoError(t, err)
	require.Len(t, codes, 10)

	seen := map[string]bool{}
	for _, c := range codes {
		assert.Len(t, c, 9, "8 symbols plus a dash")
		assert.Equal(t, "-", c[4:5])
		seen[c] = true
	}
	assert.Len(t, seen, 10)

	// only hashes are stored
	for _, row := range repo.rows {
		for _, c := range codes {
			assert.NotContains(t, row.CodeHash, strings.ReplaceAll(c, "-", ""))
		}
	}
}

func TestBackupCodeService_GenerateWith_Options(t *testing.T) {
	svc, _, _ := newBackupCodeFixture(t)

	codes, err := svc.GenerateWith(context.Background(), "user123", GenerateOptions{Count: 3, Length: 12, Unformatted: true})
	require.NoError(t, err)
	require.Len(t, codes, 3)
	for _, c := range codes {
		assert.Len(t, c, 12)
		assert.NotContains(t, c, "-")
	}
}

func TestBackupCodeService_RegenerateReplacesBatch(t *testing.T) {
	svc, _, _ := newBackupCodeFixture(t)
	ctx := context.Background()

	old, err := svc.GenerateWith(ctx, "user123", GenerateOptions{Count: 2})
	require.NoError(t, err)
	_, err = svc.GenerateWith(ctx, "user123", GenerateOptions{Count: 2})
	require.NoError(t, err)

	ok, err := svc.Verify(ctx, "user123", old[0], false)
	require.NoError(t, err)
	assert.False(t, ok)

	stats, err := svc.Stats(ctx, "user123")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
}

func TestBackupCodeService_KeepExisting(t *testing.T) {
	svc, _, _ := newBackupCodeFixture(t)
	ctx := context.Background()

	_, err := svc.GenerateWith(ctx, "user123", GenerateOptions{Count: 2})
	require.NoError(t, err)
	_, err = svc.GenerateWith(ctx, "user123", GenerateOptions{Count: 2, KeepExisting: true})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, "user123")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
}

func TestBackupCodeService_Generate_StoreFailure(t *testing.T) {
	svc, repo, _ := newBackupCodeFixture(t)
	repo.CreateBatchErr = errors.New("disk full")

	codes, err := svc.GenerateWith(context.Background(), "user123", GenerateOptions{Count: 2})
	assert.Error(t, err)
	assert.Nil(t, codes)
}

// ============================================================================
// Verification Tests
// ============================================================================

func TestBackupCodeService_VerifyIsSingleUse(t *testing.T) {
	svc, _, _ := newBackupCodeFixture(t)
	ctx := context.Background()

	codes, err := svc.GenerateWith(ctx, "user123", GenerateOptions{Count: 3})
	require.NoError(t, err)

	ok, err := svc.Verify(ctx, "user123", codes[1], true)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Verify(ctx, "user123", codes[1], true)
	require.NoError(t, err)
	assert.False(t, ok, "a consumed code must not verify twice")

	stats, err := svc.Stats(ctx, "user123")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Used)
	assert.Equal(t, 2, stats.Unused)
}

func TestBackupCodeService_VerifyWithoutConsuming(t *testing.T) {
	svc, _, _ := newBackupCodeFixture(t)
	ctx := context.Background()

	codes, err := svc.GenerateWith(ctx, "user123", GenerateOptions{Count: 1})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		ok, err := svc.Verify(ctx, "user123", codes[0], false)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestBackupCodeService_VerifyNormalizesInput(t *testing.T) {
	svc, _, _ := newBackupCodeFixture(t)
	ctx := context.Background()

	codes, err := svc.GenerateWith(ctx, "user123", GenerateOptions{Count: 1})
	require.NoError(t, err)

	messy := " " + strings.ToLower(strings.ReplaceAll(codes[0], "-", " ")) + "\t"
	ok, err := svc.Verify(ctx, "user123", messy, false)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBackupCodeService_VerifyRejects(t *testing.T) {
	svc, _, _ := newBackupCodeFixture(t)
	ctx := context.Background()

	codes, err := svc.GenerateWith(ctx, "user123", GenerateOptions{Count: 1})
	require.NoError(t, err)

	tests := []struct {
		name   string
		userID string
		code   string
	}{
		{"empty", "user123", ""},
		{"dashes only", "user123", "--"},
		{"wrong code", "user123", "ZZZZ-ZZZZ"},
		{"other user", "user456", codes[0]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := svc.Verify(ctx, tt.userID, tt.code, true)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestBackupCodeService_ConcurrentVerifyConsumesOnce(t *testing.T) {
	svc, _, _ := newBackupCodeFixture(t)
	ctx := context.Background()

	codes, err := svc.GenerateWith(ctx, "user123", GenerateOptions{Count: 1})
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := svc.Verify(ctx, "user123", codes[0], true); err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

// ============================================================================
// Stats and Cleanup Tests
// ============================================================================

func TestBackupCodeService_StatsLowWaterMark(t *testing.T) {
	svc, _, _ := newBackupCodeFixture(t)
	ctx := context.Background()

	codes, err := svc.GenerateWith(ctx, "user123", GenerateOptions{Count: 4})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, "user123")
	require.NoError(t, err)
	assert.False(t, stats.NeedsRegeneration)

	for _, c := range codes[:2] {
		_, err := svc.Verify(ctx, "user123", c, true)
		require.NoError(t, err)
	}

	stats, err = svc.Stats(ctx, "user123")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Unused)
	assert.True(t, stats.NeedsRegeneration)
}

func TestBackupCodeService_StatsWithoutCodes(t *testing.T) {
	svc, _, _ := newBackupCodeFixture(t)

	stats, err := svc.Stats(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
	assert.True(t, stats.NeedsRegeneration)
}

func TestBackupCodeService_CleanupUsed(t *testing.T) {
	svc, _, clock := newBackupCodeFixture(t)
	ctx := context.Background()

	codes, err := svc.GenerateWith(ctx, "user123", GenerateOptions{Count: 3})
	require.NoError(t, err)
	_, err = svc.Verify(ctx, "user123", codes[0], true)
	require.NoError(t, err)

	n, err := svc.CleanupUsed(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	clock.Advance(91 * 24 * time.Hour)
	n, err = svc.CleanupUsed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestFormatBackupCode(t *testing.T) {
	assert.Equal(t, "ABCD-EFGH", formatBackupCode("ABCDEFGH"))
	assert.Equal(t, "AB-CDE", formatBackupCode("ABCDE"))
	assert.Equal(t, "ABC", formatBackupCode("ABC"))
}
