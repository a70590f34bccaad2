package geocode

import (
	"sync"
	"time"
)

// Limiter spaces outbound provider calls.
type Limiter interface {
	Acquire()
}

// IntervalLimiter enforces a minimum interval between consecutive calls
// process-wide. Acquire blocks (sleeping while it holds the lock) until the
// interval since the previous call has elapsed, so concurrent callers are
// serialized and each slot admits exactly one call. It cannot fail and does
// not observe context cancellation.
type IntervalLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	lastCall time.Time
}

// NewIntervalLimiter builds a limiter. A non-positive interval disables it.
func NewIntervalLimiter(interval time.Duration) *IntervalLimiter {
	return &IntervalLimiter{interval: interval}
}

// Acquire blocks until the caller may proceed, then stamps the slot.
func (l *IntervalLimiter) Acquire() {
	if l.interval <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.lastCall.IsZero() {
		if wait := l.interval - time.Since(l.lastCall); wait > 0 {
			time.Sleep(wait)
		}
	}
	l.lastCall = time.Now()
}
