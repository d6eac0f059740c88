// Package ratelimit throttles sync calls per API key with a token bucket kept
// in Redis, so every server replica shares one budget per key.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/dtroode/dnskeeper/internal/clock"
)

var ErrLimitExceeded = errors.New("rate limit exceeded")

// KEYS[1] bucket key
// ARGV[1] capacity, ARGV[2] refill per millisecond, ARGV[3] now (unix ms),
// ARGV[4] ttl seconds
// Returns {allowed, remaining}.
const tokenBucket = `
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local info = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(info[1])
local ts = tonumber(info[2])
if not tokens then
	tokens = capacity
	ts = now
end

local filled = math.min(capacity, tokens + math.max(0, now - ts) * rate)
local allowed = 0
if filled >= 1 then
	allowed = 1
	filled = filled - 1
end

redis.call("HSET", KEYS[1], "tokens", filled, "ts", now)
redis.call("EXPIRE", KEYS[1], tonumber(ARGV[4]))

return {allowed, tostring(filled)}
`

const keyPrefix = "dnskeeper:sync:"

// Evaler runs a Lua script. *redis.Client satisfies it.
type Evaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

// Limiter allows rate requests per second per key with bursts up to burst.
type Limiter struct {
	client Evaler
	rate   float64
	burst  int
	clock  clock.Clock
}

func New(client Evaler, rate float64, burst int, clk clock.Clock) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		client: client,
		rate:   rate,
		burst:  burst,
		clock:  clk,
	}
}

// Allow takes one token from key's bucket. It returns ErrLimitExceeded when
// the bucket is empty and a wrapped Redis error when the bucket is unreadable.
func (l *Limiter) Allow(ctx context.Context, key string) (float64, error) {
	now := l.clock.Now().UnixMilli()
	ttl := int64(60)
	if l.rate > 0 {
		ttl = int64(math.Ceil(float64(l.burst)/l.rate)) + 1
	}

	res, err := l.client.Eval(ctx, tokenBucket, []string{keyPrefix + key}, l.burst, l.rate/1000, now, ttl).Slice()
	if err != nil {
		return 0, fmt.Errorf("failed to evaluate token bucket: %w", err)
	}
	if len(res) != 2 {
		return 0, fmt.Errorf("unexpected token bucket reply: %v", res)
	}

	allowed, ok := res[0].(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected token bucket reply: %v", res)
	}
	filled, ok := res[1].(string)
	if !ok {
		return 0, fmt.Errorf("unexpected token bucket reply: %v", res)
	}
	remaining, err := strconv.ParseFloat(filled, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected token bucket level %q: %w", filled, err)
	}

	if allowed != 1 {
		return remaining, ErrLimitExceeded
	}
	return remaining, nil
}
