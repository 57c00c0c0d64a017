// Package ratelimit throttles chat turns per user with a Redis token bucket.
package ratelimit

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Tokens are stored in milli-tokens because Redis truncates Lua numbers
// to integers on return.
const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2]) * 1000
local ttl = tonumber(ARGV[3])

local nowData = redis.call("TIME")
local now = (nowData[1] * 1000) + math.floor(nowData[2] / 1000)

local data = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])

if tokens == nil then
  tokens = burst
else
  local delta = now - ts
  if delta < 0 then
    delta = 0
  end
  tokens = math.min(burst, tokens + delta * rate)
end

local allowed = 0
if tokens >= 1000 then
  allowed = 1
  tokens = tokens - 1000
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, math.floor(tokens), now}
`

const keyPrefix = "invagro:ratelimit:chat:"

// Result describes one limiter decision.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// TokenBucket allows Burst requests at once, refilled at Rate per second.
// A nil *TokenBucket allows everything, which is how the limiter is
// disabled when Redis is not configured.
type TokenBucket struct {
	client *redis.Client
	script *redis.Script
	rate   float64
	burst  int
}

func NewTokenBucket(client *redis.Client, rate float64, burst int) *TokenBucket {
	if client == nil || rate <= 0 || burst <= 0 {
		return nil
	}
	return &TokenBucket{
		client: client,
		script: redis.NewScript(tokenBucketScript),
		rate:   rate,
		burst:  burst,
	}
}

// Allow takes one token from the bucket identified by key.
func (t *TokenBucket) Allow(ctx context.Context, key string) (*Result, error) {
	if t == nil {
		return &Result{Allowed: true}, nil
	}
	if key == "" {
		return &Result{Allowed: false}, errors.New("rate limiter key is empty")
	}

	ttl := bucketTTL(t.rate, t.burst)
	res, err := t.script.Run(
		ctx,
		t.client,
		[]string{keyPrefix + key},
		t.rate, // tokens per second == milli-tokens per millisecond
		t.burst,
		ttl.Milliseconds(),
	).Slice()
	if err != nil {
		return &Result{Allowed: false}, err
	}
	if len(res) < 3 {
		return &Result{Allowed: false}, errors.New("invalid rate limit script response")
	}

	allowed := toInt64(res[0]) == 1
	milli := toInt64(res[1])
	return &Result{
		Allowed:    allowed,
		Limit:      t.burst,
		Remaining:  int(milli / 1000),
		RetryAfter: retryAfter(allowed, milli, t.rate),
	}, nil
}

// retryAfter is the time needed to refill one whole token.
func retryAfter(allowed bool, milliTokens int64, rate float64) time.Duration {
	if allowed || rate <= 0 {
		return 0
	}
	needed := float64(1000-milliTokens) / 1000
	if needed <= 0 {
		return 0
	}
	return time.Duration(math.Ceil(needed/rate*1000)) * time.Millisecond
}

func bucketTTL(rate float64, burst int) time.Duration {
	if rate <= 0 || burst <= 0 {
		return time.Second
	}
	seconds := math.Ceil((float64(burst) / rate) * 2)
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}

func toInt64(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	case string:
		n, _ := strconv.ParseInt(val, 10, 64)
		return n
	default:
		return 0
	}
}
