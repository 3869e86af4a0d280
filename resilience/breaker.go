package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is a circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the breaker of a Guard.
type CircuitBreakerConfig struct {
	// Threshold is the number of consecutive failures that opens the circuit.
	Threshold int `yaml:"threshold" mapstructure:"threshold"`
	// Cooldown is how long the circuit stays open before letting trial calls through.
	Cooldown time.Duration `yaml:"cooldown" mapstructure:"cooldown"`
	// TrialCalls is how many calls a half-open circuit lets through. All of them
	// must succeed to close it again.
	TrialCalls int `yaml:"trial_calls" mapstructure:"trial_calls"`
}

// DefaultCircuitBreakerConfig returns a breaker that opens after 5 failures
// and allows a single trial call after 30s.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{Threshold: 5, Cooldown: 30 * time.Second, TrialCalls: 1}
}

func (c *CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	out := *c
	def := DefaultCircuitBreakerConfig()
	if out.Threshold <= 0 {
		out.Threshold = def.Threshold
	}
	if out.Cooldown <= 0 {
		out.Cooldown = def.Cooldown
	}
	if out.TrialCalls <= 0 {
		out.TrialCalls = def.TrialCalls
	}
	return out
}

// anyFailure counts every error except the caller giving up.
func anyFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

type circuitBreaker struct {
	name      string
	cfg       CircuitBreakerConfig
	isFailure func(error) bool
	onChange  func(name string, from, to State)
	now       func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	admitted int
	passed   int
}

// update runs fn under the lock and reports a state change after releasing it.
func (b *circuitBreaker) update(fn func()) {
	b.mu.Lock()
	from := b.state
	fn()
	to := b.state
	b.mu.Unlock()

	if from != to && b.onChange != nil {
		b.onChange(b.name, from, to)
	}
}

// cool moves an open circuit to half-open once the cooldown has passed.
// Callers hold the lock.
func (b *circuitBreaker) cool() {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		b.state = StateHalfOpen
		b.admitted, b.passed = 0, 0
	}
}

func (b *circuitBreaker) trip() {
	b.state = StateOpen
	b.openedAt = b.now()
	b.failures = 0
}

func (b *circuitBreaker) admit() (err error) {
	b.update(func() {
		b.cool()
		switch b.state {
		case StateOpen:
			err = &RejectedError{
				Guard:      b.name,
				Reason:     ErrCircuitOpen,
				RetryAfter: b.cfg.Cooldown - b.now().Sub(b.openedAt),
			}
		case StateHalfOpen:
			if b.admitted >= b.cfg.TrialCalls {
				err = &RejectedError{Guard: b.name, Reason: ErrCircuitOpen}
				return
			}
			b.admitted++
		}
	})
	return err
}

func (b *circuitBreaker) record(err error) {
	failed := b.isFailure(err)
	b.update(func() {
		switch b.state {
		case StateClosed:
			if !failed {
				b.failures = 0
				return
			}
			b.failures++
			if b.failures >= b.cfg.Threshold {
				b.trip()
			}
		case StateHalfOpen:
			if failed {
				b.trip()
				return
			}
			b.passed++
			if b.passed >= b.cfg.TrialCalls {
				b.state = StateClosed
				b.failures = 0
			}
		}
	})
}

func (b *circuitBreaker) current() (s State) {
	b.update(func() {
		b.cool()
		s = b.state
	})
	return s
}
