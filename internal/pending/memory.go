package pending

import (
	"context"
	"sync"
	"time"

	"github.com/Smart123s/FastLogin/internal/clock"
)

type entry struct {
	token   string
	expires time.Time
}

type MemoryRegistry struct {
	clock    clock.Clock
	ttl      time.Duration
	capacity int

	mu      sync.Mutex
	entries map[string]entry
}

var _ Registry = (*MemoryRegistry)(nil)

// NewMemoryRegistry keeps entries for ttl. A capacity of zero means unbounded.
func NewMemoryRegistry(clk clock.Clock, ttl time.Duration, capacity int) *MemoryRegistry {
	return &MemoryRegistry{
		clock:    clk,
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[string]entry),
	}
}

func (r *MemoryRegistry) TryBegin(_ context.Context, key string) (*Lease, error) {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[key]; ok {
		if now.Before(e.expires) {
			return nil, ErrPending
		}
		delete(r.entries, key)
	}

	if r.capacity > 0 && len(r.entries) >= r.capacity {
		r.purge(now)
		if len(r.entries) >= r.capacity {
			return nil, ErrRegistryFull
		}
	}

	lease := newLease(key)
	r.entries[key] = entry{token: lease.Token, expires: now.Add(r.ttl)}
	return lease, nil
}

func (r *MemoryRegistry) End(_ context.Context, lease *Lease) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[lease.Key]; ok && e.token == lease.Token {
		delete(r.entries, lease.Key)
	}
	return nil
}

func (r *MemoryRegistry) Active(_ context.Context, lease *Lease) bool {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[lease.Key]
	return ok && e.token == lease.Token && now.Before(e.expires)
}

// Len counts entries including expired ones not yet purged.
func (r *MemoryRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *MemoryRegistry) purge(now time.Time) {
	for key, e := range r.entries {
		if !now.Before(e.expires) {
			delete(r.entries, key)
		}
	}
}
