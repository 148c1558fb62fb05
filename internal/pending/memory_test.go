package pending

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Smart123s/FastLogin/internal/clock"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestMemoryRegistry_TryBegin(t *testing.T) {
	ctx := context.Background()
	registry := NewMemoryRegistry(clock.NewMock(epoch), 5*time.Minute, 0)

	lease, err := registry.TryBegin(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", lease.Key)
	assert.NotEmpty(t, lease.Token)

	_, err = registry.TryBegin(ctx, "alice")
	assert.ErrorIs(t, err, ErrPending)

	_, err = registry.TryBegin(ctx, "bob")
	assert.NoError(t, err)
}

func TestMemoryRegistry_EndReleasesKey(t *testing.T) {
	ctx := context.Background()
	registry := NewMemoryRegistry(clock.NewMock(epoch), 5*time.Minute, 0)

	lease, err := registry.TryBegin(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, registry.Active(ctx, lease))

	require.NoError(t, registry.End(ctx, lease))
	assert.False(t, registry.Active(ctx, lease))
	assert.Zero(t, registry.Len())

	_, err = registry.TryBegin(ctx, "alice")
	assert.NoError(t, err)
}

func TestMemoryRegistry_Expiry(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMock(epoch)
	registry := NewMemoryRegistry(clk, 5*time.Minute, 0)

	stale, err := registry.TryBegin(ctx, "alice")
	require.NoError(t, err)

	clk.Advance(5 * time.Minute)
	assert.False(t, registry.Active(ctx, stale))

	fresh, err := registry.TryBegin(ctx, "alice")
	require.NoError(t, err)

	// the stale flow finishing late must not release the fresh attempt
	require.NoError(t, registry.End(ctx, stale))
	assert.True(t, registry.Active(ctx, fresh))

	_, err = registry.TryBegin(ctx, "alice")
	assert.ErrorIs(t, err, ErrPending)
}

func TestMemoryRegistry_Capacity(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMock(epoch)
	registry := NewMemoryRegistry(clk, time.Minute, 2)

	_, err := registry.TryBegin(ctx, "a")
	require.NoError(t, err)
	_, err = registry.TryBegin(ctx, "b")
	require.NoError(t, err)

	_, err = registry.TryBegin(ctx, "c")
	assert.ErrorIs(t, err, ErrRegistryFull)

	clk.Advance(time.Minute)
	_, err = registry.TryBegin(ctx, "c")
	assert.NoError(t, err)
	assert.Equal(t, 1, registry.Len())
}

func TestMemoryRegistry_ConcurrentTryBegin(t *testing.T) {
	ctx := context.Background()
	registry := NewMemoryRegistry(clock.NewMock(epoch), time.Minute, 0)

	var acquired atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := registry.TryBegin(ctx, "alice"); err == nil {
				acquired.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), acquired.Load())
}
