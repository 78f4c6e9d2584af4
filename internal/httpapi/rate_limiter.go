package httpapi

import (
	"slices"
	"sync"
	"time"
)

// Past this many tracked keys, Allow sweeps idle keys before recording.
const maxLimiterKeys = 10000

// rateLimiter allows at most limit events per key within a sliding window.
type rateLimiter struct {
	window time.Duration
	limit  int

	mu     sync.Mutex
	events map[string][]time.Time
}

func newRateLimiter(window time.Duration, limit int) *rateLimiter {
	return &rateLimiter{window: window, limit: limit, events: map[string][]time.Time{}}
}

// Login attempts per client IP.
func newLoginLimiter() *rateLimiter { return newRateLimiter(5*time.Minute, 10) }

// Flow runs per client IP; each one is a paid model call.
func newFlowLimiter() *rateLimiter { return newRateLimiter(time.Minute, 20) }

func (l *rateLimiter) Allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	if len(l.events) >= maxLimiterKeys {
		for k, ts := range l.events {
			if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
				delete(l.events, k)
			}
		}
	}

	ts := slices.DeleteFunc(l.events[key], func(t time.Time) bool { return !t.After(cutoff) })
	allowed := len(ts) < l.limit
	if allowed {
		ts = append(ts, now)
	}
	l.events[key] = ts
	return allowed
}
