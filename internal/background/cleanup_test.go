package background

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/BradenHooton/autentica/internal/services"
)

type MockCleaner struct {
	calls atomic.Int32
	err   error
}

func (m *MockCleaner) Run(ctx context.Context) (services.CleanupReport, error) {
	m.calls.Add(1)
	return services.CleanupReport{ExpiredTokens: 1}, m.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCleanupManager_RunsImmediatelyAndOnInterval(t *testing.T) {
	cleaner := &MockCleaner{}
	cm := NewCleanupManager(cleaner, testLogger(), 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		cm.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool { return cleaner.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	cm.Stop()
	cm.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestCleanupManager_StopsOnContextCancel(t *testing.T) {
	cleaner := &MockCleaner{err: errors.New("db down")}
	cm := NewCleanupManager(cleaner, testLogger(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cm.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return cleaner.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
