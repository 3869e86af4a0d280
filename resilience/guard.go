package resilience

import (
	"context"
	"time"
)

// Policy selects the protections a Guard applies. Nil fields are disabled.
type Policy struct {
	CircuitBreaker *CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
	RateLimiter    *RateLimiterConfig    `yaml:"rate_limiter" mapstructure:"rate_limiter"`
	Bulkhead       *BulkheadConfig       `yaml:"bulkhead" mapstructure:"bulkhead"`
}

// GuardOption customizes a Guard.
type GuardOption func(*guardOptions)

type guardOptions struct {
	isFailure func(error) bool
	onChange  func(name string, from, to State)
	now       func() time.Time
}

// WithFailureClassifier decides which call errors count against the
// circuit breaker. By default every error except context.Canceled does.
func WithFailureClassifier(fn func(error) bool) GuardOption {
	return func(o *guardOptions) {
		o.isFailure = fn
	}
}

// WithStateChange registers a callback for circuit breaker transitions. It
// runs outside the breaker's lock.
func WithStateChange(fn func(name string, from, to State)) GuardOption {
	return func(o *guardOptions) {
		o.onChange = fn
	}
}

// WithClock replaces time.Now for the circuit breaker's cooldown.
func WithClock(now func() time.Time) GuardOption {
	return func(o *guardOptions) {
		o.now = now
	}
}

// Guard runs calls to one remote service through the enabled protections,
// outermost first: rate limiter, bulkhead, circuit breaker. A nil *Guard
// runs calls unguarded.
type Guard struct {
	name     string
	breaker  *circuitBreaker
	limiter  *rateLimiter
	bulkhead *bulkhead
}

// NewGuard builds a Guard named after the service it protects. It returns
// nil when p enables nothing.
func NewGuard(name string, p Policy, opts ...GuardOption) *Guard {
	if p.CircuitBreaker == nil && p.RateLimiter == nil && p.Bulkhead == nil {
		return nil
	}
	o := guardOptions{isFailure: anyFailure, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	g := &Guard{name: name}
	if p.CircuitBreaker != nil {
		g.breaker = &circuitBreaker{
			name:      name,
			cfg:       p.CircuitBreaker.withDefaults(),
			isFailure: o.isFailure,
			onChange:  o.onChange,
			now:       o.now,
		}
	}
	if p.RateLimiter != nil {
		g.limiter = newRateLimiter(name, *p.RateLimiter)
	}
	if p.Bulkhead != nil {
		g.bulkhead = newBulkhead(name, *p.Bulkhead)
	}
	return g
}

// Do runs fn and returns its error unchanged. A call the guard refuses is
// not run and yields a *RejectedError, or the context's error when ctx ends
// while waiting.
func (g *Guard) Do(ctx context.Context, fn func() error) error {
	if g == nil {
		return fn()
	}
	if g.limiter != nil {
		if err := g.limiter.acquire(ctx); err != nil {
			return err
		}
	}
	if g.bulkhead != nil {
		if err := g.bulkhead.acquire(ctx); err != nil {
			return err
		}
		defer g.bulkhead.release()
	}
	if g.breaker != nil {
		if err := g.breaker.admit(); err != nil {
			return err
		}
	}

	err := fn()
	if g.breaker != nil {
		g.breaker.record(err)
	}
	return err
}

// State returns the circuit state. Without a breaker the circuit is always
// closed.
func (g *Guard) State() State {
	if g == nil || g.breaker == nil {
		return StateClosed
	}
	return g.breaker.current()
}

// Available reports whether the circuit lets calls through.
func (g *Guard) Available() bool {
	return g.State() != StateOpen
}

// inFlight returns the number of calls holding a bulkhead slot.
func (g *Guard) inFlight() int {
	if g == nil || g.bulkhead == nil {
		return 0
	}
	return int(g.bulkhead.inUse.Load())
}
