package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
	Reset      time.Time
}

// RetryAfterSeconds returns the whole seconds until the window resets,
// rounded up and never below one for a rejected request.
func (r Result) RetryAfterSeconds() int {
	if r.Allowed {
		return 0
	}
	secs := int((r.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Limiter provides fixed-window rate limit checks.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, now time.Time) (Result, error)
}
