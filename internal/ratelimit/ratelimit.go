// Package ratelimit implements fixed-window admission control on Redis.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"dom360.app/sdrbot/common/logger"
)

// Client is the slice of redis.Client the limiter needs. *redis.Client
// satisfies it; tests substitute fakes built with redis.NewIntResult and
// friends.
type Client interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

type Limiter struct {
	client Client
}

func NewLimiter(client Client) *Limiter {
	return &Limiter{client: client}
}

// Admit counts one request against bucket and reports whether it is within
// limit for the current window, along with the remaining allowance.
//
// Fixed-window: INCR the bucket, set its expiry on creation. O(1), a single
// key per bucket, and bursts at window boundaries are accepted as a known
// property. When Redis is unreachable the limiter fails open — the
// conversation flow stays available and strict quota enforcement is
// sacrificed, a deliberate trade-off rather than a bug.
func (l *Limiter) Admit(ctx context.Context, bucket string, limit int, window time.Duration) (bool, int) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "sdrbot.ratelimit"})

	count, err := l.client.Incr(ctx, bucket).Result()
	if err != nil {
		slog.WarnContext(ctx, "rate limit store unreachable, failing open", "error", err, "bucket", bucket)
		return true, limit
	}

	if count == 1 {
		if err := l.client.Expire(ctx, bucket, window).Err(); err != nil {
			slog.WarnContext(ctx, "failed to set rate limit window expiry", "error", err, "bucket", bucket)
		}
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return count <= int64(limit), remaining
}
