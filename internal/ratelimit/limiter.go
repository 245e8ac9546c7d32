// Package ratelimit counts login attempts per key so that password guessing
// is slowed down.  The Redis implementation shares counters across
// replicas; the in-process one is used when Redis is unavailable.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one attempt.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // zero when allowed
}

// Limiter admits or rejects one attempt for key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}
