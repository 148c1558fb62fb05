package ratelimit

import (
	"net/netip"
	"sync"
	"time"

	"github.com/Smart123s/FastLogin/internal/clock"
)

const (
	ScopeGlobal = "global"
	ScopeIP     = "ip"

	// GlobalKey is the bucket shared by every caller.
	GlobalKey = ""
)

type bucket struct {
	remaining int
	boundary  time.Time
}

// Limiter grants at most capacity permits per key in each period. A bucket is refilled to
// full capacity once its boundary has passed, never gradually.
type Limiter struct {
	clock    clock.Clock
	capacity int
	period   time.Duration
	maxKeys  int

	mu      sync.Mutex
	buckets map[string]*bucket
}

func NewLimiter(clk clock.Clock, capacity int, period time.Duration, maxKeys int) *Limiter {
	return &Limiter{
		clock:    clk,
		capacity: capacity,
		period:   period,
		maxKeys:  maxKeys,
		buckets:  make(map[string]*bucket),
	}
}

// TryAcquire takes one permit for key and never blocks. A denied call changes nothing.
func (l *Limiter) TryAcquire(key string) bool {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		if l.maxKeys > 0 && len(l.buckets) >= l.maxKeys {
			l.sweep(now)
		}
		b = &bucket{remaining: l.capacity, boundary: now.Add(l.period)}
		l.buckets[key] = b
	} else if !now.Before(b.boundary) {
		elapsed := now.Sub(b.boundary)/l.period + 1
		b.boundary = b.boundary.Add(elapsed * l.period)
		b.remaining = l.capacity
	}

	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

// Remaining reports the permits left for key in its current period.
func (l *Limiter) Remaining(key string) int {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || !now.Before(b.boundary) {
		return l.capacity
	}
	return b.remaining
}

// sweep drops buckets whose period ended; they would be refilled on their next use anyway.
func (l *Limiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if !now.Before(b.boundary) {
			delete(l.buckets, key)
		}
	}
}

// KeyFor maps a login address to its bucket under the configured scope.
func KeyFor(scope string, addr netip.Addr) string {
	if scope != ScopeIP || !addr.IsValid() {
		return GlobalKey
	}
	return addr.Unmap().String()
}
