package clock

import (
	"sync"
	"time"
)

// Clock is the time source of the limiter and the pending registry.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func New() *RealClock {
	return &RealClock{}
}

func (c *RealClock) Now() time.Time {
	return time.Now()
}

// MockClock only moves when told to.
type MockClock struct {
	mu      sync.Mutex
	current time.Time
}

var _ Clock = (*MockClock)(nil)

func NewMock(t time.Time) *MockClock {
	return &MockClock{current: t}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}
