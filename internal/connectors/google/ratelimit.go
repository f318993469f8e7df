package google

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig is a token bucket: a sustained rate plus a burst.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultGmailRateLimit stays well inside Gmail's per-user quota.
var DefaultGmailRateLimit = RateLimitConfig{RequestsPerSecond: 2, BurstSize: 5}

// defaultBackoff is used when the caller has no Retry-After hint.
const defaultBackoff = time.Minute

// RateLimiter paces Google API calls. After a 429 the caller records a
// backoff and every Wait holds until it has passed.
type RateLimiter struct {
	bucket *rate.Limiter

	mu    sync.Mutex
	until time.Time
}

func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithConfig(DefaultGmailRateLimit)
}

func NewRateLimiterWithConfig(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{bucket: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.BurstSize, 1))}
}

func (r *RateLimiter) pausedFor() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Until(r.until)
}

// Wait blocks until any recorded backoff has passed and a token is free.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if d := r.pausedFor(); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return r.bucket.Wait(ctx)
}

// RecordRateLimitError pauses the limiter for retryAfter, or for one minute
// when retryAfter is not positive.
func (r *RateLimiter) RecordRateLimitError(retryAfter time.Duration) {
	if retryAfter <= 0 {
		retryAfter = defaultBackoff
	}
	r.mu.Lock()
	r.until = time.Now().Add(retryAfter)
	r.mu.Unlock()
}

// Allow takes a token without blocking. It returns false while paused.
func (r *RateLimiter) Allow() bool {
	return r.pausedFor() <= 0 && r.bucket.Allow()
}
