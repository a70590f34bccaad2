package geocode

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIntervalLimiterFirstCallPassesImmediately(t *testing.T) {
	limiter := NewIntervalLimiter(500 * time.Millisecond)

	start := time.Now()
	limiter.Acquire()
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestIntervalLimiterEnforcesMinimumSpacing(t *testing.T) {
	interval := 60 * time.Millisecond
	limiter := NewIntervalLimiter(interval)

	limiter.Acquire()
	start := time.Now()
	limiter.Acquire()
	require.GreaterOrEqual(t, time.Since(start), interval)
}

func TestIntervalLimiterSerializesConcurrentCallers(t *testing.T) {
	interval := 40 * time.Millisecond
	limiter := NewIntervalLimiter(interval)

	limiter.Acquire()
	start := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			limiter.Acquire()
		}()
	}
	wg.Wait()

	// Three calls after the first must take at least three full intervals.
	require.GreaterOrEqual(t, time.Since(start), 3*interval)
}

func TestIntervalLimiterDisabledByZeroInterval(t *testing.T) {
	limiter := NewIntervalLimiter(0)

	start := time.Now()
	for i := 0; i < 100; i++ {
		limiter.Acquire()
	}
	require.Less(t, time.Since(start), 50*time.Millisecond)
}
