package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/attendance-service/internal/ratelimit"
	"github.com/spec-kit/attendance-service/internal/repository"
)

// CleanupWorker periodically deletes expired refresh credentials and sweeps
// expired rate-limit windows. It runs off the request path; correctness of
// the limiter and the registry never depends on it, it only reclaims space.
type CleanupWorker struct {
	refresh  repository.RefreshCredentialRepository
	limiter  *ratelimit.MemoryLimiter
	interval time.Duration
	logger   *zap.Logger
}

// NewCleanupWorker builds the worker. limiter may be nil when the Redis
// limiter is in use (Redis expires its own keys).
func NewCleanupWorker(refresh repository.RefreshCredentialRepository, limiter *ratelimit.MemoryLimiter, interval time.Duration, logger *zap.Logger) *CleanupWorker {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &CleanupWorker{refresh: refresh, limiter: limiter, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled. Safe to stop between sweeps; an
// in-flight sweep finishes its current store call and exits.
func (w *CleanupWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *CleanupWorker) sweep(ctx context.Context) {
	if w.refresh != nil {
		deleted, err := w.refresh.DeleteExpired(ctx, time.Now().UTC())
		if err != nil {
			w.logger.Warn("expired refresh credential sweep failed", zap.Error(err))
		} else if deleted > 0 {
			w.logger.Info("expired refresh credentials deleted", zap.Int64("count", deleted))
		}
	}

	if w.limiter != nil {
		if removed := w.limiter.Sweep(); removed > 0 {
			w.logger.Debug("rate-limit windows evicted", zap.Int("count", removed))
		}
	}
}
