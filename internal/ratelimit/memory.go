package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	windowStart time.Time
	count       int
}

// MemoryLimiter implements an in-memory fixed-window rate limiter. The
// read-modify-write on each counter runs under the registry mutex, so
// concurrent bursts for one key never overshoot the limit. Entries idle
// for more than two windows are swept on access.
type MemoryLimiter struct {
	window    time.Duration
	mu        sync.Mutex
	counters  map[string]*memoryEntry
	nextSweep time.Time
}

// NewMemoryLimiter constructs a MemoryLimiter with the given window.
func NewMemoryLimiter(window time.Duration) *MemoryLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryLimiter{
		window:   window,
		counters: make(map[string]*memoryEntry),
	}
}

// Allow checks whether the request fits in the current window for key.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, now time.Time) (Result, error) {
	if limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweepLocked(now)

	entry := l.counters[key]
	if entry == nil {
		entry = &memoryEntry{windowStart: now}
		l.counters[key] = entry
	}
	if now.Sub(entry.windowStart) >= l.window {
		entry.windowStart = now
		entry.count = 0
	}

	reset := entry.windowStart.Add(l.window)
	if entry.count >= limit {
		return Result{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: reset.Sub(now),
			Reset:      reset,
		}, nil
	}
	entry.count++
	return Result{
		Allowed:   true,
		Remaining: limit - entry.count,
		Reset:     reset,
	}, nil
}

// Len reports the number of live counters.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counters)
}

// sweepLocked drops counters whose window ended more than one window ago.
// Runs at most once per window so the hot path stays O(1) amortized.
func (l *MemoryLimiter) sweepLocked(now time.Time) {
	if now.Before(l.nextSweep) {
		return
	}
	l.nextSweep = now.Add(l.window)
	idleCutoff := now.Add(-2 * l.window)
	for key, entry := range l.counters {
		if entry.windowStart.Before(idleCutoff) {
			delete(l.counters, key)
		}
	}
}
