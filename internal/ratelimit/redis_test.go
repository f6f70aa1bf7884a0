package ratelimit

import (
	"testing"
	"time"
)

func TestNewRedisLimiterClampsWindow(t *testing.T) {
	cases := []struct {
		window time.Duration
		want   time.Duration
	}{
		{0, time.Minute},
		{-time.Second, time.Minute},
		{100 * time.Millisecond, time.Second},
		{time.Second, time.Second},
		{time.Minute, time.Minute},
	}
	for _, tc := range cases {
		limiter := NewRedisLimiter(nil, "gw", tc.window)
		if limiter.window != tc.want {
			t.Fatalf("window %v: expected %v, got %v", tc.window, tc.want, limiter.window)
		}
	}
}

func TestRedisLimiterBuildKey(t *testing.T) {
	limiter := NewRedisLimiter(nil, "gw", time.Minute)
	if got := limiter.buildKey("1:2:3", 42); got != "gw:1:2:3:42" {
		t.Fatalf("expected prefixed key, got %q", got)
	}
	bare := NewRedisLimiter(nil, "", time.Minute)
	if got := bare.buildKey("1:2:3", 42); got != "1:2:3:42" {
		t.Fatalf("expected bare key, got %q", got)
	}
}
