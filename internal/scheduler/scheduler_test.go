package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAsyncScheduler_RunsTasks(t *testing.T) {
	s := NewAsyncScheduler(4, zap.NewNop())

	var ran atomic.Int32
	for i := 0; i < 20; i++ {
		s.Go(func(ctx context.Context) {
			ran.Add(1)
		})
	}

	require.NoError(t, s.Shutdown(context.Background()))
	assert.Equal(t, int32(20), ran.Load())
}

func TestAsyncScheduler_BoundsConcurrency(t *testing.T) {
	s := NewAsyncScheduler(2, zap.NewNop())

	var running, peak atomic.Int32
	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(2)

	for i := 0; i < 6; i++ {
		s.Go(func(ctx context.Context) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			if n <= 2 {
				started.Done()
			}
			<-release
			running.Add(-1)
		})
	}

	started.Wait()
	assert.Equal(t, int32(2), running.Load())
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.Equal(t, int32(2), peak.Load())
}

func TestAsyncScheduler_RecoversPanics(t *testing.T) {
	s := NewAsyncScheduler(1, zap.NewNop())

	var ran atomic.Bool
	s.Go(func(ctx context.Context) {
		panic("boom")
	})
	s.Go(func(ctx context.Context) {
		ran.Store(true)
	})

	require.NoError(t, s.Shutdown(context.Background()))
	assert.True(t, ran.Load())
}

func TestAsyncScheduler_ShutdownTimeout(t *testing.T) {
	s := NewAsyncScheduler(1, zap.NewNop())
	release := make(chan struct{})
	defer close(release)

	s.Go(func(ctx context.Context) {
		<-release
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Shutdown(ctx), context.DeadlineExceeded)
}

func TestAsyncScheduler_RejectsAfterShutdown(t *testing.T) {
	s := NewAsyncScheduler(1, zap.NewNop())
	require.NoError(t, s.Shutdown(context.Background()))

	ran := false
	err := s.Go(func(ctx context.Context) {
		ran = true
	})
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, ran)
}

func TestAsyncScheduler_QueuedTaskSeesCancellation(t *testing.T) {
	s := NewAsyncScheduler(1, zap.NewNop())
	release := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, s.Go(func(ctx context.Context) {
		close(started)
		<-release
	}))
	<-started

	queued := make(chan error, 1)
	require.NoError(t, s.Go(func(ctx context.Context) {
		queued <- ctx.Err()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Shutdown(ctx), context.DeadlineExceeded)

	select {
	case err := <-queued:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("queued task never ran")
	}
	close(release)
}

func TestInlineScheduler(t *testing.T) {
	ran := false
	require.NoError(t, InlineScheduler{}.Go(func(ctx context.Context) {
		ran = true
	}))
	assert.True(t, ran)
}
