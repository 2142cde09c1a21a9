package auth

import (
	"context"
	"time"
)

// TimingConfig holds configuration for timing attack prevention
type TimingConfig struct {
	BaseDelay      time.Duration
	RandomDelay    time.Duration // upper bound of the random jitter added to BaseDelay
	DelayOnSuccess bool
}

// TimingDelay slows down failed verifications so wrong codes and
// missing enrollments take about the same time.
type TimingDelay struct {
	config TimingConfig
}

// NewTimingDelay creates a new TimingDelay instance
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{config: config}
}

// Wait blocks for BaseDelay plus jitter, or until ctx is done.
// A nil receiver never waits.
func (td *TimingDelay) Wait(ctx context.Context, success bool) {
	if td == nil || (success && !td.config.DelayOnSuccess) {
		return
	}

	delay := td.config.BaseDelay
	if td.config.RandomDelay > 0 {
		if n, err := cryptoRandIntn(int(td.config.RandomDelay / time.Millisecond)); err == nil {
			delay += time.Duration(n) * time.Millisecond
		}
	}
	if delay <= 0 {
		return
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
