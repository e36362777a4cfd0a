// Package refresh implements the scheduled bulk-refresh job: a bounded-
// concurrency pass over the remote exercise collection with per-item retry
// and idempotency marking.
//
// Items are independent; one item's failure never aborts the run. Only a
// total inability to list the collection is fatal, in which case the caller
// (the scheduler) logs it and lets the next tick retry the whole job.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agamordechai/eass-a-workouttracker/internal/idempotency"
)

// Window granularities for idempotency-key scoping. The window must match
// the job's actual cadence: a day window with an hourly schedule means later
// runs in the same day skip everything.
const (
	WindowDay  = "day"
	WindowHour = "hour"
)

// Config tunes one refresher instance.
type Config struct {
	Concurrency    int           // max items in flight, default 5
	MaxRetries     int           // attempts per item, default 3
	RetryBaseDelay time.Duration // backoff base, default 5s
	IdempotencyTTL time.Duration // marker lifetime, default 1h
	Window         string        // WindowDay or WindowHour
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = 5
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = 5 * time.Second
	}
	if c.IdempotencyTTL <= 0 {
		c.IdempotencyTTL = time.Hour
	}
	if c.Window == "" {
		c.Window = WindowDay
	}
	return c
}

// Summary is the ephemeral per-run record returned to the scheduler. It is
// never persisted.
type Summary struct {
	Processed   int     `json:"processed"`
	Skipped     int     `json:"skipped"`
	Failed      int     `json:"failed"`
	Total       int     `json:"total"`
	SuccessRate float64 `json:"success_rate"`
}

// Refresher orchestrates one bulk pass over the remote collection.
type Refresher struct {
	client Client
	store  idempotency.Store
	cfg    Config
	log    *zap.Logger

	mu        sync.Mutex
	processed int
	skipped   int
	failed    int
}

func New(client Client, store idempotency.Store, cfg Config, log *zap.Logger) *Refresher {
	return &Refresher{
		client: client,
		store:  store,
		cfg:    cfg.withDefaults(),
		log:    log,
	}
}

// Run lists the collection and refreshes every item, at most
// cfg.Concurrency in flight at once. It returns an error only when the
// initial list fails; per-item failures are counted in the summary.
func (r *Refresher) Run(ctx context.Context) (Summary, error) {
	runID := uuid.NewString()
	log := r.log.With(zap.String("run_id", runID))

	items, err := r.client.ListExercises(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("refresh run: %w", err)
	}
	log.Info("starting exercise refresh",
		zap.Int("items", len(items)),
		zap.Int("concurrency", r.cfg.Concurrency),
	)

	r.mu.Lock()
	r.processed, r.skipped, r.failed = 0, 0, 0
	r.mu.Unlock()

	g := new(errgroup.Group)
	g.SetLimit(r.cfg.Concurrency)
	for _, item := range items {
		item := item
		g.Go(func() error {
			r.processOne(ctx, log, item)
			return nil
		})
	}
	g.Wait()

	summary := r.Summary()
	log.Info("exercise refresh complete",
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Float64("success_rate", summary.SuccessRate),
	)
	return summary, nil
}

func (r *Refresher) processOne(ctx context.Context, log *zap.Logger, item Exercise) {
	key := r.idempotencyKey(item.ID, time.Now().UTC())

	marked, err := r.store.IsMarked(ctx, key)
	if err != nil {
		// Store down: proceed without dedup protection rather than fail the
		// run.
		log.Warn("idempotency check failed, processing without dedup",
			zap.String("key", key), zap.Error(err))
	}
	if marked {
		r.mu.Lock()
		r.skipped++
		r.mu.Unlock()
		return
	}

	backoff := retry.WithMaxRetries(uint64(r.cfg.MaxRetries-1), retry.NewExponential(r.cfg.RetryBaseDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := r.client.RefreshExercise(ctx, item.ID); err != nil {
			if Transient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		r.mu.Lock()
		r.failed++
		r.mu.Unlock()
		log.Warn("exercise refresh failed after retries",
			zap.Int("exercise_id", item.ID),
			zap.Int("max_retries", r.cfg.MaxRetries),
			zap.Error(err),
		)
		return
	}

	if err := r.store.Mark(ctx, key, r.cfg.IdempotencyTTL); err != nil {
		log.Warn("idempotency mark failed",
			zap.String("key", key), zap.Error(err))
	}
	r.mu.Lock()
	r.processed++
	r.mu.Unlock()
}

// idempotencyKey scopes an item to the current processing window, so
// re-running the job within the same window skips items already done.
func (r *Refresher) idempotencyKey(id int, now time.Time) string {
	var stamp string
	switch r.cfg.Window {
	case WindowHour:
		stamp = now.Format("2006-01-02T15")
	default:
		stamp = now.Format("2006-01-02")
	}
	return fmt.Sprintf("idempotency:refresh:%d:%s", id, stamp)
}

// Summary computes the current run counters. Total is always the sum of the
// three outcomes; the rate is 0 for an empty run.
func (r *Refresher) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Summary{
		Processed: r.processed,
		Skipped:   r.skipped,
		Failed:    r.failed,
		Total:     r.processed + r.skipped + r.failed,
	}
	if s.Total > 0 {
		s.SuccessRate = 100 * float64(s.Processed) / float64(s.Total)
	}
	return s
}
