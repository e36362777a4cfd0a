package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a Redis-compatible key-value store.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Mark(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("idempotency: mark %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) IsMarked(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency: check %s: %w", key, err)
	}
	return n > 0, nil
}

// Sweep walks keys under prefix with SCAN and deletes orphans: keys created
// without a TTL (which would otherwise live forever) and keys within a minute
// of expiry. Redis expires keys on its own; this exists to catch bugs, not to
// replace native expiry.
func (s *RedisStore) Sweep(ctx context.Context, prefix string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)

	for {
		keys, next, err := s.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("idempotency: scan %s: %w", prefix, err)
		}

		for _, key := range keys {
			ttl, err := s.client.TTL(ctx, key).Result()
			if err != nil {
				return deleted, fmt.Errorf("idempotency: ttl %s: %w", key, err)
			}
			// -1 means the key has no expiry; -2 means it vanished already.
			if ttl == -1 || (ttl > 0 && ttl < minSweepTTL) {
				if err := s.client.Del(ctx, key).Err(); err != nil {
					return deleted, fmt.Errorf("idempotency: delete %s: %w", key, err)
				}
				deleted++
			}
		}

		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}
