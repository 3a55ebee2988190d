// Package ratelimit implements a keyed token bucket used to throttle API
// clients.
package ratelimit

import (
	"sync"
	"time"
)

// bucket is a single token bucket. Tokens refill continuously.
type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// Limiter keeps one bucket per key (client IP, user id).
type Limiter struct {
	mu sync.Mutex

	buckets    map[string]*bucket
	refillRate float64 // tokens per second
	burst      float64
	now        func() time.Time

	idleTTL   time.Duration
	lastSweep time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithIdleTTL sets how long an untouched bucket is kept (default 10m).
func WithIdleTTL(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.idleTTL = d
		}
	}
}

// New creates a limiter allowing perMinute sustained requests per key with
// bursts of up to burst. A non-positive burst defaults to perMinute.
func New(perMinute, burst int, opts ...Option) *Limiter {
	if burst <= 0 {
		burst = perMinute
	}
	l := &Limiter{
		buckets:    make(map[string]*bucket),
		refillRate: float64(perMinute) / 60.0,
		burst:      float64(burst),
		now:        time.Now,
		idleTTL:    10 * time.Minute,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.lastSweep = l.now()
	return l
}

// Allow takes one token from key's bucket. When the bucket is empty it
// returns false and how long until the next token.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, lastRefill: now}
		l.buckets[key] = b
	}

	if elapsed := now.Sub(b.lastRefill).Seconds(); elapsed > 0 {
		b.tokens += elapsed * l.refillRate
		if b.tokens > l.burst {
			b.tokens = l.burst
		}
		b.lastRefill = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	if l.refillRate <= 0 {
		return false, l.idleTTL
	}
	wait := time.Duration((1 - b.tokens) / l.refillRate * float64(time.Second))
	return false, wait
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// sweep drops idle buckets at most once per idleTTL. Must be called with
// mu held.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idleTTL {
		return
	}
	for key, b := range l.buckets {
		if now.Sub(b.lastRefill) >= l.idleTTL {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}
