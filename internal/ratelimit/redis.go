package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "relayhub:ratelimit:"

// Redis is a Limiter whose counters live in Redis, so every hub process behind the same
// Redis shares one budget per address. The window starts at the first attempt and is
// enforced by the key's expiry, which is set again by any attempt that finds it missing.
type Redis struct {
	client *redis.Client
	window time.Duration
	max    int
	logger *slog.Logger
}

// NewRedis creates a Redis-backed limiter.
func NewRedis(client *redis.Client, window time.Duration, max int, logger *slog.Logger) *Redis {
	if window <= 0 {
		window = DefaultWindow
	}
	if max <= 0 {
		max = DefaultMax
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, window: window, max: max, logger: logger}
}

// ShouldThrottle increments the counter for addr. Redis errors fail open.
func (l *Redis) ShouldThrottle(ctx context.Context, addr string, _ time.Time) bool {
	if l == nil || l.client == nil {
		return false
	}

	key := keyPrefix + addr
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := l.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		l.logger.Warn("rate limit check failed, allowing attempt", "addr", addr, "error", err)
		return false
	}
	count := incr.Val()

	// A key without a TTL is a new window, or one whose EXPIRE was lost and would
	// otherwise count forever.
	if count == 1 || ttl.Val() == -1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			l.logger.Warn("failed to set rate limit window", "addr", addr, "error", err)
		}
	}

	return int(count) > l.max
}
