// Package worker schedules the background jobs (refresh, warmup, cleanup) on
// cron triggers and hosts them alongside the health server in one process.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one scheduled task. Run receives a context bounded by the worker's
// job timeout; a run exceeding it is canceled and the next tick starts fresh.
type Job struct {
	Name string
	Spec string // standard 5-field cron expression, UTC
	Run  func(ctx context.Context) error
}

// Scheduler drives jobs on cron triggers. Overlapping ticks of the same job
// are skipped rather than queued: idempotency marking makes the next run
// cheap, so piling up runs buys nothing.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	log     *zap.Logger
}

func NewScheduler(jobTimeout time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		timeout: jobTimeout,
		log:     log,
	}
}

// Add registers a job. It fails only on a malformed cron spec.
func (s *Scheduler) Add(job Job) error {
	var running atomic.Bool

	_, err := s.cron.AddFunc(job.Spec, func() {
		if !running.CompareAndSwap(false, true) {
			s.log.Warn("previous run still in progress, skipping tick",
				zap.String("job", job.Name))
			return
		}
		defer running.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		start := time.Now()
		s.log.Info("job starting", zap.String("job", job.Name))

		if err := job.Run(ctx); err != nil {
			s.log.Error("job failed",
				zap.String("job", job.Name),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err),
			)
			return
		}
		s.log.Info("job complete",
			zap.String("job", job.Name),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
	if err != nil {
		return fmt.Errorf("worker: schedule %s (%q): %w", job.Name, job.Spec, err)
	}

	s.log.Info("job scheduled", zap.String("job", job.Name), zap.String("spec", job.Spec))
	return nil
}

// Start begins firing triggers in a background goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts new triggers and returns a context that is done once running
// jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// HourlySpec fires every hour on the hour.
const HourlySpec = "0 * * * *"

// DailySpec fires once a day at the given UTC hour.
func DailySpec(hour int) string {
	return fmt.Sprintf("0 %d * * *", hour)
}

// WeeklySpec fires once a week on the given day (0 = Sunday) at the given
// UTC hour.
func WeeklySpec(day, hour int) string {
	return fmt.Sprintf("0 %d * * %d", hour, day)
}
