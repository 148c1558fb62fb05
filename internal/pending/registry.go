package pending

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrPending      = errors.New("login already pending")
	ErrRegistryFull = errors.New("pending registry is full")
)

// Lease is the ownership of one pending key. Only the holder of the matching token can end
// or observe the entry, so a stale flow never touches a fresher attempt.
type Lease struct {
	Key   string
	Token string
}

// Registry tracks login attempts in progress. Entries expire on their own so a flow that
// never finishes cannot block its username forever.
type Registry interface {
	// TryBegin atomically claims key, or fails with ErrPending while another lease holds it.
	TryBegin(ctx context.Context, key string) (*Lease, error)
	// End releases the lease if it still owns its key.
	End(ctx context.Context, lease *Lease) error
	// Active reports whether the lease still owns its key.
	Active(ctx context.Context, lease *Lease) bool
}

func newLease(key string) *Lease {
	return &Lease{Key: key, Token: uuid.NewString()}
}
