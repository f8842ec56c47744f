package fetcher

import (
	"sync"
	"time"
)

// windowLimiter counts requests inside a fixed window that opens with the
// first request. It never blocks: an exhausted window reports how long the
// caller would have to wait.
type windowLimiter struct {
	mu          sync.Mutex
	maxRequests int
	per         time.Duration
	count       int
	windowStart time.Time
}

func newWindowLimiter(maxRequests int, per time.Duration) *windowLimiter {
	return &windowLimiter{maxRequests: maxRequests, per: per}
}

// reserve records one request at now, or returns the remaining wait.
func (l *windowLimiter) reserve(now time.Time) (time.Duration, bool) {
	if l == nil || l.maxRequests <= 0 || l.per <= 0 {
		return 0, true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.count == 0 || now.Sub(l.windowStart) >= l.per {
		l.count = 0
		l.windowStart = now
	}
	if l.count >= l.maxRequests {
		return l.per - now.Sub(l.windowStart), false
	}
	l.count++
	return 0, true
}
