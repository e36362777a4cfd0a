package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter enforces a fixed-window limit in Redis so the budget is shared
// across all application instances. The counter increment and expiry are a
// single Lua script, so concurrent requests never race the window setup.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter creates a Redis-backed limiter. An empty prefix defaults to
// "ratelimit:".
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &RedisLimiter{client: client, prefix: prefix}
}

var allowScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	local limit = tonumber(ARGV[2])
	if count > limit then
		return {0, 0}
	end
	return {1, limit - count}
`)

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	result, err := allowScript.Run(ctx, l.client, []string{l.prefix + key},
		window.Milliseconds(), limit).Result()
	if err != nil {
		return false, 0, fmt.Errorf("ratelimit: redis allow check failed: %w", err)
	}

	arr, ok := result.([]interface{})
	if !ok || len(arr) != 2 {
		return false, 0, fmt.Errorf("ratelimit: unexpected redis result format")
	}

	allowed := arr[0].(int64) == 1
	remaining := int(arr[1].(int64))
	return allowed, remaining, nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.prefix+key).Err(); err != nil {
		return fmt.Errorf("ratelimit: redis reset failed: %w", err)
	}
	return nil
}
