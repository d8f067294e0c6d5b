package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptLimiter bounds how often an operation may run per entity id. Counts
// live in Redis so every instance shares them and they survive restarts.
type AttemptLimiter struct {
	Redis  *redis.Client
	Prefix string
	Limit  int
	Window time.Duration
}

func NewAttemptLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) *AttemptLimiter {
	return &AttemptLimiter{Redis: rdb, Prefix: prefix, Limit: limit, Window: window}
}

// Hit records one attempt for key and returns the attempts left. Past the
// limit it returns a CapacityError and the attempt does not count as used.
func (l *AttemptLimiter) Hit(ctx context.Context, key string) (int, error) {
	k := l.Prefix + key
	n, err := l.Redis.Incr(ctx, k).Result()
	if err != nil {
		return 0, fmt.Errorf("count attempt: %w", err)
	}
	if n == 1 && l.Window > 0 {
		if err := l.Redis.Expire(ctx, k, l.Window).Err(); err != nil {
			return 0, fmt.Errorf("set attempt window: %w", err)
		}
	}
	if int(n) > l.Limit {
		l.Redis.Decr(ctx, k)
		return 0, CapacityError("attempt limit of %d reached", l.Limit)
	}
	return l.Limit - int(n), nil
}

// Remaining reports the attempts left for key without using one.
func (l *AttemptLimiter) Remaining(ctx context.Context, key string) (int, error) {
	n, err := l.Redis.Get(ctx, l.Prefix+key).Int()
	if errors.Is(err, redis.Nil) {
		return l.Limit, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read attempts: %w", err)
	}
	return max(0, l.Limit-n), nil
}

func (l *AttemptLimiter) Reset(ctx context.Context, key string) error {
	return l.Redis.Del(ctx, l.Prefix+key).Err()
}
