package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ThrottlePruner drops stale login throttle keys and reports how many went
type ThrottlePruner interface {
	PruneThrottles() int
}

// ThrottleSweeper periodically prunes idle keys from the login throttle so
// addresses that never log in successfully do not accumulate
type ThrottleSweeper struct {
	pruner   ThrottlePruner
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewThrottleSweeper(pruner ThrottlePruner, logger *slog.Logger, interval time.Duration) *ThrottleSweeper {
	return &ThrottleSweeper{
		pruner:   pruner,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the sweep loop until ctx is cancelled or Stop is called
func (ts *ThrottleSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(ts.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ts.sweep()
		case <-ts.stopCh:
			ts.logger.Info("throttle sweeper stopped")
			return
		case <-ctx.Done():
			ts.logger.Info("throttle sweeper context cancelled")
			return
		}
	}
}

func (ts *ThrottleSweeper) sweep() {
	if removed := ts.pruner.PruneThrottles(); removed > 0 {
		ts.logger.Debug("pruned stale throttle keys", slog.Int("removed", removed))
	}
}

// Stop signals the sweeper to stop. Safe to call more than once.
func (ts *ThrottleSweeper) Stop() {
	ts.stopOnce.Do(func() { close(ts.stopCh) })
}
