// Package config provides environment-based configuration for the workout
// tracker services.
//
// Configuration is loaded from environment variables using Viper, with
// sensible defaults for development. LoadConfig returns an explicit Config
// value that callers pass into each component at startup; nothing in this
// package is cached at package level, so tests can construct alternate
// configurations freely.
//
// # Environment Variables
//
// Keys map to environment variables by upper-casing and replacing dots with
// underscores, e.g. auth.secret_key becomes AUTH_SECRET_KEY and
// ratelimit.read_limit_user becomes RATELIMIT_READ_LIMIT_USER.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	LogLevel string `mapstructure:"log_level"`
	Port     int    `mapstructure:"port"`

	DBType string `mapstructure:"db_type"` // sqlite, postgres, mysql
	DSN    string `mapstructure:"dsn"`

	Auth      Auth      `mapstructure:"auth"`
	Redis     Redis     `mapstructure:"redis"`
	RateLimit RateLimit `mapstructure:"ratelimit"`
	Refresh   Refresh   `mapstructure:"refresh"`
	Worker    Worker    `mapstructure:"worker"`
	Schedule  Schedule  `mapstructure:"schedule"`
	Clients   Clients   `mapstructure:"api_client"`
}

// Auth holds token-signing settings.
type Auth struct {
	SecretKey       string        `mapstructure:"secret_key"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
	GoogleClientID  string        `mapstructure:"google_client_id"`
}

// Redis holds connection URLs for the two logical databases: the queue DB
// used by the worker and the cache DB used for idempotency and rate limiting.
type Redis struct {
	QueueURL string `mapstructure:"queue_url"`
	CacheURL string `mapstructure:"cache_url"`
}

// RateLimit holds the per-tier limit expressions ("<count>/<window>").
type RateLimit struct {
	Enabled bool `mapstructure:"enabled"`

	PublicLimit string `mapstructure:"public_limit"`
	AuthLimit   string `mapstructure:"auth_limit"`
	AdminLimit  string `mapstructure:"admin_limit"`

	ReadLimitAnonymous string `mapstructure:"read_limit_anonymous"`
	ReadLimitUser      string `mapstructure:"read_limit_user"`
	ReadLimitAdmin     string `mapstructure:"read_limit_admin"`

	WriteLimitAnonymous string `mapstructure:"write_limit_anonymous"`
	WriteLimitUser      string `mapstructure:"write_limit_user"`
	WriteLimitAdmin     string `mapstructure:"write_limit_admin"`
}

// Refresh holds the bulk-refresh job settings.
type Refresh struct {
	Concurrency    int           `mapstructure:"concurrency"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
	Window         string        `mapstructure:"window"` // day or hour
}

// Worker holds the worker process settings.
type Worker struct {
	JobTimeout time.Duration `mapstructure:"job_timeout"`
	HealthPort int           `mapstructure:"health_port"`
}

// Schedule enables or disables the individual cron jobs.
type Schedule struct {
	EnableHourlyRefresh bool `mapstructure:"enable_hourly_refresh"`
	EnableDailyWarmup   bool `mapstructure:"enable_daily_warmup"`
	EnableWeeklyCleanup bool `mapstructure:"enable_weekly_cleanup"`
	WarmupHour          int  `mapstructure:"warmup_hour"`
	CleanupDayOfWeek    int  `mapstructure:"cleanup_day_of_week"` // 0 = Sunday
	CleanupHour         int  `mapstructure:"cleanup_hour"`
}

// Clients holds settings for the outbound HTTP clients the worker uses to
// talk to the CRUD API and the AI coach.
type Clients struct {
	WorkoutAPIURL string        `mapstructure:"workout_api_url"`
	AICoachURL    string        `mapstructure:"ai_coach_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

func LoadConfig() (*Config, error) {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("port", 8000)
	viper.SetDefault("db_type", "sqlite")
	viper.SetDefault("dsn", "workouts.db")

	viper.SetDefault("auth.secret_key", "dev-secret-key-change-in-production")
	viper.SetDefault("auth.access_token_ttl", "30m")
	viper.SetDefault("auth.refresh_token_ttl", "168h")
	viper.SetDefault("auth.google_client_id", "")

	viper.SetDefault("redis.queue_url", "redis://localhost:6379/1")
	viper.SetDefault("redis.cache_url", "redis://localhost:6379/0")

	viper.SetDefault("ratelimit.enabled", true)
	viper.SetDefault("ratelimit.public_limit", "100/minute")
	viper.SetDefault("ratelimit.auth_limit", "10/minute")
	viper.SetDefault("ratelimit.admin_limit", "100/minute")
	viper.SetDefault("ratelimit.read_limit_anonymous", "60/minute")
	viper.SetDefault("ratelimit.read_limit_user", "120/minute")
	viper.SetDefault("ratelimit.read_limit_admin", "300/minute")
	viper.SetDefault("ratelimit.write_limit_anonymous", "30/minute")
	viper.SetDefault("ratelimit.write_limit_user", "60/minute")
	viper.SetDefault("ratelimit.write_limit_admin", "150/minute")

	viper.SetDefault("refresh.concurrency", 5)
	viper.SetDefault("refresh.max_retries", 3)
	viper.SetDefault("refresh.retry_delay", "5s")
	viper.SetDefault("refresh.idempotency_ttl", "3600s")
	viper.SetDefault("refresh.window", "day")

	viper.SetDefault("worker.job_timeout", "300s")
	viper.SetDefault("worker.health_port", 8002)

	viper.SetDefault("schedule.enable_hourly_refresh", true)
	viper.SetDefault("schedule.enable_daily_warmup", true)
	viper.SetDefault("schedule.enable_weekly_cleanup", true)
	viper.SetDefault("schedule.warmup_hour", 6)
	viper.SetDefault("schedule.cleanup_day_of_week", 0)
	viper.SetDefault("schedule.cleanup_hour", 2)

	viper.SetDefault("api_client.workout_api_url", "http://localhost:8000")
	viper.SetDefault("api_client.ai_coach_url", "http://localhost:8001")
	viper.SetDefault("api_client.timeout", "30s")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
