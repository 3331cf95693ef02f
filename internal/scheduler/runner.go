// Package scheduler drives the periodic lifecycle sweeps.
package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/parkwise/service-reservation/internal/application"
	"github.com/parkwise/service-reservation/internal/clock"
	"github.com/parkwise/service-reservation/internal/lock"
)

const (
	sweepLockKey  = "sweeps:lifecycle"
	sweepLockWait = time.Second
)

// Sweeper runs the lifecycle sweeps.
type Sweeper interface {
	RunAutoCheckoutSweep(ctx context.Context, now time.Time) (application.SweepResult, error)
	RunNoShowSweep(ctx context.Context, now time.Time) (application.SweepResult, error)
}

// Runner triggers both sweeps on a fixed interval. The sweep lock keeps
// replicas sharing a Redis from sweeping at the same time.
type Runner struct {
	sweeper  Sweeper
	locker   application.Locker
	clock    clock.Clock
	interval time.Duration
	logger   *zap.Logger
}

// NewRunner creates a new Runner.
func NewRunner(sweeper Sweeper, locker application.Locker, clk clock.Clock, interval time.Duration, logger *zap.Logger) *Runner {
	return &Runner{
		sweeper:  sweeper,
		locker:   locker,
		clock:    clk,
		interval: interval,
		logger:   logger,
	}
}

// Start sweeps once, then on every tick. This blocks until the context is cancelled.
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("lifecycle scheduler started", zap.Duration("interval", r.interval))
	r.RunOnce(ctx)
	for {
		select {
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-ctx.Done():
			r.logger.Info("lifecycle scheduler stopped")
			return
		}
	}
}

// RunOnce runs the auto-checkout sweep and then the no-show sweep.
// It returns false when another holder owned the sweep lock.
func (r *Runner) RunOnce(ctx context.Context) bool {
	release, err := r.locker.Acquire(ctx, sweepLockKey, sweepLockWait)
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			r.logger.Debug("sweep skipped, another replica is sweeping")
		} else if ctx.Err() == nil {
			r.logger.Error("failed to acquire sweep lock", zap.Error(err))
		}
		return false
	}
	defer release()

	now := r.clock.Now()
	r.report("auto_checkout", func() (application.SweepResult, error) {
		return r.sweeper.RunAutoCheckoutSweep(ctx, now)
	})
	r.report("no_show", func() (application.SweepResult, error) {
		return r.sweeper.RunNoShowSweep(ctx, now)
	})
	return true
}

func (r *Runner) report(name string, run func() (application.SweepResult, error)) {
	if _, err := run(); err != nil {
		r.logger.Error("sweep failed", zap.String("sweep", name), zap.Error(err))
	}
}
