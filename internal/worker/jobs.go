package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/agamordechai/eass-a-workouttracker/internal/idempotency"
	"github.com/agamordechai/eass-a-workouttracker/internal/refresh"
	"github.com/agamordechai/eass-a-workouttracker/internal/warmup"
)

// idempotencyPrefix is the keyspace the cleanup job sweeps.
const idempotencyPrefix = "idempotency:"

// RefreshJob wraps the bulk refresher as a scheduled job. A list failure
// propagates so the scheduler logs the run as failed; the next tick retries
// the whole job.
func RefreshJob(r *refresh.Refresher) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := r.Run(ctx)
		return err
	}
}

// WarmupJob wraps the AI cache warmer.
func WarmupJob(w *warmup.Warmer) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := w.Run(ctx)
		return err
	}
}

// CleanupJob sweeps stale idempotency keys. The store being unreachable is a
// zero-count result, not a failure: native TTL expiry still does the real
// work, this pass only catches orphans.
func CleanupJob(store idempotency.Store, log *zap.Logger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		start := time.Now()

		deleted, err := store.Sweep(ctx, idempotencyPrefix)
		if err != nil {
			log.Warn("cleanup sweep incomplete",
				zap.Int("deleted", deleted),
				zap.Error(err),
			)
			return nil
		}

		log.Info("cleanup complete",
			zap.Int("deleted_idempotency_keys", deleted),
			zap.Int64("cleanup_time_ms", time.Since(start).Milliseconds()),
		)
		return nil
	}
}
