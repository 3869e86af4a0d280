package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

type transition struct {
	name     string
	from, to State
}

func newBreakerGuard(clock *fakeClock, cfg CircuitBreakerConfig, opts ...GuardOption) (*Guard, *[]transition) {
	var seen []transition
	opts = append([]GuardOption{
		WithClock(clock.Now),
		WithStateChange(func(name string, from, to State) {
			seen = append(seen, transition{name, from, to})
		}),
	}, opts...)
	return NewGuard("billing", Policy{CircuitBreaker: &cfg}, opts...), &seen
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	clock := newFakeClock()
	g, seen := newBreakerGuard(clock, CircuitBreakerConfig{Threshold: 3, Cooldown: time.Minute})
	ctx := context.Background()

	_ = g.Do(ctx, fail)
	_ = g.Do(ctx, fail)
	_ = g.Do(ctx, succeed)
	_ = g.Do(ctx, fail)
	_ = g.Do(ctx, fail)
	if g.State() != StateClosed {
		t.Fatal("a success should reset the failure count")
	}
	if err := g.Do(ctx, fail); !errors.Is(err, errOutage) {
		t.Fatalf("the tripping call should return its own error, got %v", err)
	}
	if g.State() != StateOpen || g.Available() {
		t.Fatalf("state = %s, want open", g.State())
	}

	clock.Advance(20 * time.Second)
	called := false
	err := g.Do(ctx, func() error { called = true; return nil })
	var rejected *RejectedError
	if !errors.As(err, &rejected) || !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected a circuit rejection, got %v", err)
	}
	if called {
		t.Error("an open circuit must not run the call")
	}
	if rejected.Guard != "billing" || rejected.RetryAfter != 40*time.Second {
		t.Errorf("rejection = %+v", rejected)
	}
	if len(*seen) != 1 || (*seen)[0] != (transition{"billing", StateClosed, StateOpen}) {
		t.Errorf("transitions = %v", *seen)
	}
}

func TestBreaker_HalfOpenTrialCall(t *testing.T) {
	tests := []struct {
		name  string
		call func() error
		want  State
	}{
		{"successful trial call closes", succeed, StateClosed},
		{"failed trial call reopens", fail, StateOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			g, seen := newBreakerGuard(clock, CircuitBreakerConfig{Threshold: 1, Cooldown: time.Second})
			_ = g.Do(context.Background(), fail)

			clock.Advance(time.Second)
			if g.State() != StateHalfOpen {
				t.Fatalf("state = %s, want half-open after the cooldown", g.State())
			}
			_ = g.Do(context.Background(), tt.call)
			if g.State() != tt.want {
				t.Errorf("state = %s, want %s", g.State(), tt.want)
			}
			last := (*seen)[len(*seen)-1]
			if last.from != StateHalfOpen || last.to != tt.want {
				t.Errorf("last transition = %v", last)
			}
		})
	}
}

func TestBreaker_HalfOpenLimitsTrialCalls(t *testing.T) {
	clock := newFakeClock()
	g, _ := newBreakerGuard(clock, CircuitBreakerConfig{Threshold: 1, Cooldown: time.Second, TrialCalls: 1})
	_ = g.Do(context.Background(), fail)
	clock.Advance(time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error)
	go func() {
		done <- g.Do(context.Background(), func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if err := g.Do(context.Background(), succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("a second trial call should be rejected, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("trial call: %v", err)
	}
	if g.State() != StateClosed {
		t.Errorf("state = %s, want closed", g.State())
	}
}

func TestBreaker_FailureClassifier(t *testing.T) {
	errNotFound := errors.New("not found")
	clock := newFakeClock()
	g, _ := newBreakerGuard(clock, CircuitBreakerConfig{Threshold: 2, Cooldown: time.Minute},
		WithFailureClassifier(func(err error) bool { return errors.Is(err, errOutage) }))

	for i := 0; i < 5; i++ {
		_ = g.Do(context.Background(), func() error { return errNotFound })
	}
	if g.State() != StateClosed {
		t.Fatal("errors the classifier ignores must not open the circuit")
	}
	_ = g.Do(context.Background(), fail)
	_ = g.Do(context.Background(), fail)
	if g.State() != StateOpen {
		t.Errorf("state = %s, want open", g.State())
	}
}

func TestBreaker_CancellationIsNotAFailure(t *testing.T) {
	g, _ := newBreakerGuard(newFakeClock(), CircuitBreakerConfig{Threshold: 1})
	_ = g.Do(context.Background(), func() error { return context.Canceled })
	if g.State() != StateClosed {
		t.Errorf("state = %s, want closed", g.State())
	}
}

func TestCircuitBreakerConfig_Defaults(t *testing.T) {
	got := (&CircuitBreakerConfig{}).withDefaults()
	if got != DefaultCircuitBreakerConfig() {
		t.Errorf("got %+v", got)
	}
	custom := (&CircuitBreakerConfig{Threshold: 2}).withDefaults()
	if custom.Threshold != 2 || custom.Cooldown != 30*time.Second || custom.TrialCalls != 1 {
		t.Errorf("got %+v", custom)
	}
}

func TestState_String(t *testing.T) {
	for s, want := range map[State]string{
		StateClosed: "closed", StateOpen: "open", StateHalfOpen: "half-open", State(9): "unknown",
	} {
		if s.String() != want {
			t.Errorf("%d: got %q, want %q", s, s.String(), want)
		}
	}
}
