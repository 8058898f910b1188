// internal/ratelimit/ratelimit.go
//
// Fixed-window rate limiting per (key, period).
//
// Context
// -------
// Windows are wall-clock buckets: minute = floor(now/60s), and so on.  The
// limiter increments the current bucket's counter atomically and rejects
// when the result exceeds the limit, decrementing back so counters never
// grow unbounded past the limit.  Under an extreme concurrent burst the
// count may briefly overshoot by the in-flight amount, which is acceptable;
// a lost increment (under-count) is not, and the store contracts rule it
// out.
//
// Buckets carry a TTL equal to the window length, so expired windows are
// garbage-collected by the store with no sweeper of its own.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/yanizio/webbloc/internal/metrics"
)

// Period is a rate-limit window length.
type Period string

const (
	PerMinute Period = "minute"
	PerHour   Period = "hour"
	PerDay    Period = "day"
)

// Duration returns the window length.
func (p Period) Duration() time.Duration {
	switch p {
	case PerMinute:
		return time.Minute
	case PerHour:
		return time.Hour
	case PerDay:
		return 24 * time.Hour
	default:
		return time.Minute
	}
}

// LimitError reports a rejected request with enough context for the caller
// to implement backoff.
type LimitError struct {
	Period Period
	Limit  int
	Count  int64
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d/%d per %s", e.Count, e.Limit, e.Period)
}

// RetryAfter is the time until the current window rolls over.
func (e *LimitError) RetryAfter(now time.Time) time.Duration {
	d := e.Period.Duration()
	return now.Truncate(d).Add(d).Sub(now)
}

// Store is the counter backend.  Incr must be atomic and must never lose an
// increment; Decr compensates a rejected increment.
type Store interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Decr(ctx context.Context, key string) error
}

// Limiter enforces fixed-window limits over a Store.
type Limiter struct {
	store Store
	now   func() time.Time
}

// New returns a Limiter backed by store.
func New(store Store) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// Allow counts one request for (keyID, period) and fails with *LimitError
// when the window's limit is exhausted.  limit <= 0 means unlimited.
func (l *Limiter) Allow(ctx context.Context, keyID uint64, period Period, limit int) error {
	if limit <= 0 {
		return nil
	}
	d := period.Duration()
	bucket := l.now().UTC().Unix() / int64(d.Seconds())
	key := fmt.Sprintf("rl:%d:%s:%d", keyID, period, bucket)

	cnt, err := l.store.Incr(ctx, key, d)
	if err != nil {
		return fmt.Errorf("ratelimit incr: %w", err)
	}
	if cnt > int64(limit) {
		// Give the slot back so the counter stays pinned near the limit.
		_ = l.store.Decr(ctx, key)
		metrics.RateLimitRejects.WithLabelValues(string(period)).Inc()
		return &LimitError{Period: period, Limit: limit, Count: cnt - 1}
	}
	return nil
}
