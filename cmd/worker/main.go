package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agamordechai/eass-a-workouttracker/internal/config"
	"github.com/agamordechai/eass-a-workouttracker/internal/health"
	"github.com/agamordechai/eass-a-workouttracker/internal/idempotency"
	"github.com/agamordechai/eass-a-workouttracker/internal/logger"
	"github.com/agamordechai/eass-a-workouttracker/internal/refresh"
	"github.com/agamordechai/eass-a-workouttracker/internal/warmup"
	"github.com/agamordechai/eass-a-workouttracker/internal/worker"
)

const version = "1.0.0"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	zlog.Info("starting workout tracker worker",
		zap.Int("health_port", cfg.Worker.HealthPort),
		zap.Duration("job_timeout", cfg.Worker.JobTimeout),
	)

	queueClient, err := newRedisClient(cfg.Redis.QueueURL)
	if err != nil {
		zlog.Fatal("invalid redis queue url", zap.Error(err))
	}
	cacheClient, err := newRedisClient(cfg.Redis.CacheURL)
	if err != nil {
		zlog.Fatal("invalid redis cache url", zap.Error(err))
	}

	store := idempotency.NewRedisStore(cacheClient)

	apiClient := refresh.NewHTTPClient(cfg.Clients.WorkoutAPIURL, cfg.Clients.Timeout)
	refresher := refresh.New(apiClient, store, refresh.Config{
		Concurrency:    cfg.Refresh.Concurrency,
		MaxRetries:     cfg.Refresh.MaxRetries,
		RetryBaseDelay: cfg.Refresh.RetryDelay,
		IdempotencyTTL: cfg.Refresh.IdempotencyTTL,
		Window:         cfg.Refresh.Window,
	}, zlog)

	warmer := warmup.New(cfg.Clients.AICoachURL, cfg.Clients.Timeout, 500*time.Millisecond, zlog)

	sched := worker.NewScheduler(cfg.Worker.JobTimeout, zlog)
	if cfg.Schedule.EnableHourlyRefresh {
		if err := sched.Add(worker.Job{
			Name: "refresh_exercise_stats",
			Spec: worker.HourlySpec,
			Run:  worker.RefreshJob(refresher),
		}); err != nil {
			zlog.Fatal("failed to schedule refresh job", zap.Error(err))
		}
	}
	if cfg.Schedule.EnableDailyWarmup {
		if err := sched.Add(worker.Job{
			Name: "warmup_ai_cache",
			Spec: worker.DailySpec(cfg.Schedule.WarmupHour),
			Run:  worker.WarmupJob(warmer),
		}); err != nil {
			zlog.Fatal("failed to schedule warmup job", zap.Error(err))
		}
	}
	if cfg.Schedule.EnableWeeklyCleanup {
		if err := sched.Add(worker.Job{
			Name: "cleanup_idempotency_keys",
			Spec: worker.WeeklySpec(cfg.Schedule.CleanupDayOfWeek, cfg.Schedule.CleanupHour),
			Run:  worker.CleanupJob(store, zlog),
		}); err != nil {
			zlog.Fatal("failed to schedule cleanup job", zap.Error(err))
		}
	}

	manager := health.NewManager(version, health.WithTimeout(5*time.Second))
	manager.Register(health.NewRedisChecker("redis_queue", queueClient, "arq:queue"))
	manager.Register(health.NewRedisChecker("redis_cache", cacheClient, ""))
	manager.Register(health.NewHTTPChecker("workout_api", cfg.Clients.WorkoutAPIURL+"/health", cfg.Clients.Timeout))
	manager.Register(health.NewHTTPChecker("ai_coach", cfg.Clients.AICoachURL+"/health", cfg.Clients.Timeout))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", manager.LiveHandler())
	mux.HandleFunc("/health", manager.FullHandler())
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Worker.HealthPort),
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched.Start()
	zlog.Info("scheduler started")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		zlog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zlog.Warn("health server shutdown", zap.Error(err))
		}

		// Wait for in-flight jobs to finish, bounded by the same grace period.
		select {
		case <-sched.Stop().Done():
		case <-shutdownCtx.Done():
			zlog.Warn("jobs did not finish before shutdown deadline")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		zlog.Fatal("worker stopped", zap.Error(err))
	}
	zlog.Info("worker stopped cleanly")
}

func newRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}
