package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var ErrClosed = errors.New("scheduler is shutting down")

// Scheduler runs login flows off the caller's goroutine. Go fails with ErrClosed once the
// scheduler no longer accepts tasks. An accepted task always runs; if shutdown cancels it
// before it got a slot it runs with the cancelled context so it can release what it holds.
type Scheduler interface {
	Go(task func(ctx context.Context)) error
}

// AsyncScheduler runs each task on its own goroutine with at most maxConcurrent running at
// once. Tasks over the bound wait for a slot without blocking the submitter.
type AsyncScheduler struct {
	sem    *semaphore.Weighted
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

var _ Scheduler = (*AsyncScheduler)(nil)

func NewAsyncScheduler(maxConcurrent int64, logger *zap.Logger) *AsyncScheduler {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &AsyncScheduler{
		sem:    semaphore.NewWeighted(maxConcurrent),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *AsyncScheduler) Go(task func(ctx context.Context)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("scheduled task panicked", zap.String("panic", fmt.Sprint(r)))
			}
		}()

		if err := s.sem.Acquire(s.ctx, 1); err != nil {
			s.logger.Warn("cancelling queued task, scheduler is shutting down", zap.Error(err))
			task(s.ctx)
			return
		}
		defer s.sem.Release(1)

		task(s.ctx)
	}()
	return nil
}

// Shutdown stops accepting tasks and waits for running and queued ones until ctx is done,
// then cancels whatever is left.
func (s *AsyncScheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	defer s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InlineScheduler runs tasks on the calling goroutine.
type InlineScheduler struct{}

func (InlineScheduler) Go(task func(ctx context.Context)) error {
	task(context.Background())
	return nil
}
