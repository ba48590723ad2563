// Package idempotency provides the at-most-once admission gate for webhook
// deliveries.
package idempotency

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"dom360.app/sdrbot/common/logger"
)

// Client is the slice of redis.Client the store needs.
type Client interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
}

type Store struct {
	client Client
}

func NewStore(client Client) *Store {
	return &Store{client: client}
}

// AdmitOnce returns true only for the first caller to present key within ttl.
// Backed by a single atomic SET NX EX; the marker expires on its own and is
// never deleted explicitly.
//
// When Redis is unreachable the store fails open: processing the occasional
// duplicate beats refusing all traffic while the store is down.
func (s *Store) AdmitOnce(ctx context.Context, key string, ttl time.Duration) bool {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "sdrbot.idempotency"})

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		slog.WarnContext(ctx, "idempotency store unreachable, failing open", "error", err, "key", key)
		return true
	}
	return ok
}
