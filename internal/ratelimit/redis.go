package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "taskmanager:ratelimit:"

// Redis shares counters across instances. The first hit in a window sets the
// key's expiry, so the window is fixed from that hit.
type Redis struct {
	rdb    redis.Cmdable
	limit  int
	window time.Duration
}

func NewRedis(rdb redis.Cmdable, limit int, window time.Duration) *Redis {
	return &Redis{rdb: rdb, limit: limit, window: window}
}

func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	k := keyPrefix + key

	n, err := r.rdb.Incr(ctx, k).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit incr: %w", err)
	}

	if n == 1 {
		if err := r.rdb.Expire(ctx, k, r.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("ratelimit expire: %w", err)
		}
	}

	if int(n) <= r.limit {
		return Decision{Allowed: true, Remaining: r.limit - int(n)}, nil
	}

	ttl, err := r.rdb.PTTL(ctx, k).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit ttl: %w", err)
	}

	// a key left without expiry would block forever
	if ttl < 0 {
		if err := r.rdb.Expire(ctx, k, r.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("ratelimit expire: %w", err)
		}
		ttl = r.window
	}

	return Decision{RetryAfter: retryAfter(ttl)}, nil
}
