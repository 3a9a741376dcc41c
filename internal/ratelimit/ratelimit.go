// Package ratelimit implements fixed-window request counters keyed by an
// arbitrary string (client IP for the auth routes).
package ratelimit

import (
	"context"
	"time"
)

type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

func retryAfter(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
