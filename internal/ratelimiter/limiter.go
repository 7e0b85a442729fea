// Package ratelimiter throttles notification submissions per target so a
// misbehaving caller cannot monopolize a device with back-to-back speech.
package ratelimiter

import (
	"sync"

	"golang.org/x/time/rate"
)

// TargetLimiter keeps one token bucket per target, created lazily on first
// use. Allow is non-blocking: a rejected request is dropped, not queued.
type TargetLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	limit rate.Limit
	burst int
}

// New builds a limiter allowing perMinute notifications per target, with a
// burst of the same size so short flurries pass through.
func New(perMinute int) *TargetLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &TargetLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
	}
}

func (t *TargetLimiter) Allow(target string) bool {
	t.mu.Lock()
	l, ok := t.limiters[target]
	if !ok {
		l = rate.NewLimiter(t.limit, t.burst)
		t.limiters[target] = l
	}
	t.mu.Unlock()
	return l.Allow()
}
