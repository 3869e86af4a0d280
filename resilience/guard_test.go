package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errOutage = errors.New("outage")

func fail() error    { return errOutage }
func succeed() error { return nil }

func TestNewGuard_NilWhenEmpty(t *testing.T) {
	if g := NewGuard("api", Policy{}); g != nil {
		t.Fatalf("expected nil guard, got %+v", g)
	}
}

func TestGuard_NilRunsUnguarded(t *testing.T) {
	var g *Guard
	called := false
	err := g.Do(context.Background(), func() error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("expected call to run, called=%v err=%v", called, err)
	}
	if !g.Available() || g.State() != StateClosed || g.inFlight() != 0 {
		t.Error("nil guard should look closed and idle")
	}
}

func TestRejectedError(t *testing.T) {
	err := error(&RejectedError{Guard: "billing", Reason: ErrCircuitOpen, RetryAfter: 1500 * time.Millisecond})
	if got, want := err.Error(), "billing: circuit breaker is open (retry after 1.5s)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrCircuitOpen) || !IsRejected(err) {
		t.Error("rejection should unwrap to its reason")
	}
	if IsRejected(errOutage) {
		t.Error("plain errors are not rejections")
	}
}
