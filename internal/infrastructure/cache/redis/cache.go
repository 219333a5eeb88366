// internal/infrastructure/cache/redis/cache.go
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "weatherbot:"

// RateLimiter - счетчик отправок с фиксированным окном в Redis.
// Квота общая для всех процессов с одним и тем же Redis.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRateLimiter создает ограничитель: не более limit отправок за window
func NewRateLimiter(client *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window}
}

// CheckRateLimit увеличивает счетчик окна и возвращает, укладываемся ли в лимит
func (r *RateLimiter) CheckRateLimit(ctx context.Context, key string) (bool, int, error) {
	fullKey := keyPrefix + "ratelimit:" + key

	count, err := r.client.Incr(ctx, fullKey).Result()
	if err != nil {
		return false, 0, fmt.Errorf("redis incr %s: %w", fullKey, err)
	}

	// TTL ставится только при открытии окна, иначе окно бы сдвигалось
	if count == 1 {
		if err := r.client.Expire(ctx, fullKey, r.window).Err(); err != nil {
			return false, int(count), fmt.Errorf("redis expire %s: %w", fullKey, err)
		}
	}

	return int(count) <= r.limit, int(count), nil
}

// Allow реализует notifier.Limiter
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	ok, _, err := r.CheckRateLimit(ctx, key)
	return ok, err
}
