package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/agamordechai/eass-a-workouttracker/internal/auth"
	"github.com/agamordechai/eass-a-workouttracker/internal/config"
	"github.com/agamordechai/eass-a-workouttracker/internal/httpapi"
	"github.com/agamordechai/eass-a-workouttracker/internal/logger"
	"github.com/agamordechai/eass-a-workouttracker/internal/ratelimit"
	"github.com/agamordechai/eass-a-workouttracker/internal/token"
	"github.com/agamordechai/eass-a-workouttracker/internal/users"
)

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

	zlog.Info("starting workout tracker API",
		zap.Int("port", cfg.Port),
		zap.String("db_type", cfg.DBType),
	)

	db, err := users.Open(cfg.DBType, cfg.DSN)
	if err != nil {
		zlog.Fatal("failed to open database", zap.Error(err))
	}
	repo := users.NewRepository(db)

	tokens := token.NewService(cfg.Auth.SecretKey, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)

	var google *auth.GoogleVerifier
	if cfg.Auth.GoogleClientID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		google, err = auth.NewGoogleVerifier(ctx, cfg.Auth.GoogleClientID)
		cancel()
		if err != nil {
			zlog.Error("google sign-in unavailable", zap.Error(err))
			google = nil
		}
	}

	limiter := newLimiter(cfg.Redis.CacheURL, zlog)

	e := httpapi.NewServer(cfg.RateLimit, limiter, tokens, zlog)
	httpapi.NewHandler(tokens, repo, google, zlog).RegisterRoutes(e)

	zlog.Info("server is starting", zap.Int("port", cfg.Port))
	if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

// newLimiter connects the Redis-backed rate limiter, falling back to the
// in-process limiter when Redis is unreachable at startup.
func newLimiter(cacheURL string, zlog *zap.Logger) ratelimit.Limiter {
	opts, err := redis.ParseURL(cacheURL)
	if err != nil {
		zlog.Error("invalid redis cache url, using in-memory rate limiter", zap.Error(err))
		return ratelimit.NewMemoryLimiter()
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		zlog.Warn("redis unreachable, using in-memory rate limiter", zap.Error(err))
		return ratelimit.NewMemoryLimiter()
	}

	return ratelimit.NewRedisLimiter(client, "")
}
