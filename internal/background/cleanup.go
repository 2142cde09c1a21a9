package background

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/autentica/internal/services"
)

// Cleaner purges expired and stale authentication rows
type Cleaner interface {
	Run(ctx context.Context) (services.CleanupReport, error)
}

// CleanupManager runs a Cleaner on a fixed interval
type CleanupManager struct {
	cleaner  Cleaner
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(cleaner Cleaner, logger *slog.Logger, interval time.Duration) *CleanupManager {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CleanupManager{
		cleaner:  cleaner,
		logger:   logger,
		interval: interval,
		timeout:  30 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task. It blocks until Stop or ctx is done.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, cm.timeout)
	defer cancel()

	report, err := cm.cleaner.Run(cleanupCtx)
	if err != nil {
		cm.logger.Error("cleanup run failed", slog.Any("error", err))
		return
	}

	cm.logger.Debug("cleanup run completed", slog.Int64("rows_deleted", report.Total()))
}

// Stop signals the cleanup manager to stop. Safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
