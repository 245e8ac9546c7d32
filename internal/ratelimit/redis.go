package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// windowScript increments the counter for KEYS[1], starting a new window of
// ARGV[2] milliseconds on the first hit.  It returns
// {allowed, remaining, ttl_ms}.
var windowScript = redis.NewScript(`
	local limit = tonumber(ARGV[1])
	local window_ms = tonumber(ARGV[2])

	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], window_ms)
	end
	local ttl = redis.call('PTTL', KEYS[1])
	if ttl < 0 then
		redis.call('PEXPIRE', KEYS[1], window_ms)
		ttl = window_ms
	end

	if count > limit then
		return {0, 0, ttl}
	end
	return {1, limit - count, ttl}
`)

// RedisLimiter is a fixed-window counter stored in Redis.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "login"
	}
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	vals, err := windowScript.Run(ctx, r.client,
		[]string{r.prefix + ":" + key},
		r.limit, r.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: redis: %w", err)
	}
	if len(vals) != 3 {
		return Decision{}, fmt.Errorf("ratelimit: unexpected script result %v", vals)
	}
	d := Decision{
		Allowed:   vals[0] == 1,
		Limit:     r.limit,
		Remaining: int(vals[1]),
	}
	if !d.Allowed {
		d.RetryAfter = time.Duration(vals[2]) * time.Millisecond
	}
	return d, nil
}
