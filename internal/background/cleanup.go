package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/relink-dev/relink/internal/services"
)

// CleanupManager periodically expires overdue email change requests and
// sweeps stale rate limiter entries. The same sweep is exposed over HTTP for
// external schedulers; both paths are idempotent so overlap is harmless.
type CleanupManager struct {
	workflow *services.RecoveryService
	limiter  *services.MemoryRateLimiter
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewCleanupManager creates a new cleanup manager. limiter may be nil when
// the Redis rate limiter is in use (Redis expires its own keys).
func NewCleanupManager(
	workflow *services.RecoveryService,
	limiter *services.MemoryRateLimiter,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		workflow: workflow,
		limiter:  limiter,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
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
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := cm.workflow.CleanupExpired(cleanupCtx); err != nil {
		cm.logger.Error("scheduled cleanup sweep failed", slog.Any("error", err))
	}

	if cm.limiter != nil {
		if removed := cm.limiter.Sweep(); removed > 0 {
			cm.logger.Debug("swept stale rate limit entries", slog.Int("removed", removed))
		}
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
