package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter keeps a token bucket per key in process memory.  A bucket
// holds limit attempts and refills one attempt every window/limit.
type MemoryLimiter struct {
	mu        sync.Mutex
	entries   map[string]*entry
	limit     int
	window    time.Duration
	now       func() time.Time
	lastSweep time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		entries: make(map[string]*entry),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// WithClock replaces the time source.
func (m *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	m.now = now
	return m
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	e, ok := m.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Every(m.window/time.Duration(m.limit)), m.limit)}
		m.entries[key] = e
	}
	e.lastSeen = now

	res := e.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return Decision{Limit: m.limit, RetryAfter: delay}, nil
	}
	remaining := int(e.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: true, Limit: m.limit, Remaining: remaining}, nil
}

// sweep drops buckets idle for longer than a full window; they would be
// full again anyway.
func (m *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.window {
		return
	}
	m.lastSweep = now
	for k, e := range m.entries {
		if now.Sub(e.lastSeen) > m.window {
			delete(m.entries, k)
		}
	}
}
