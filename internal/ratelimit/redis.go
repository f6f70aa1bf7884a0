package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisIncrScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisLimiter implements a fixed-window rate limiter backed by Redis, for
// deployments running more than one gateway replica. Counters are keyed by
// window index so a key's count resets naturally at the window boundary.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	window time.Duration
}

// NewRedisLimiter constructs a RedisLimiter. Windows are whole seconds;
// anything shorter is clamped to one second.
func NewRedisLimiter(client *redis.Client, prefix string, window time.Duration) *RedisLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if window < time.Second {
		window = time.Second
	}
	return &RedisLimiter{
		client: client,
		prefix: strings.TrimSpace(prefix),
		window: window,
	}
}

// Allow checks whether the request fits in the current window for key.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, now time.Time) (Result, error) {
	if limit <= 0 || key == "" || l == nil || l.client == nil {
		return Result{Allowed: true}, nil
	}

	windowSecs := int64(l.window / time.Second)
	idx := now.Unix() / windowSecs
	reset := time.Unix((idx+1)*windowSecs, 0).UTC()

	redisKey := l.buildKey(key, idx)
	res, errEval := redisIncrScript.Run(ctx, l.client, []string{redisKey}, windowSecs*2).Result()
	if errEval != nil {
		return Result{}, errEval
	}
	count, ok := res.(int64)
	if !ok {
		switch v := res.(type) {
		case int:
			count = int64(v)
		case uint64:
			count = int64(v)
		default:
			return Result{}, errors.New("rate limit redis: unexpected response type")
		}
	}
	if count > int64(limit) {
		return Result{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: reset.Sub(now),
			Reset:      reset,
		}, nil
	}
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Remaining: remaining, Reset: reset}, nil
}

func (l *RedisLimiter) buildKey(key string, idx int64) string {
	idxStr := strconv.FormatInt(idx, 10)
	prefix := strings.TrimSpace(l.prefix)
	if prefix == "" {
		return key + ":" + idxStr
	}
	return prefix + ":" + key + ":" + idxStr
}
