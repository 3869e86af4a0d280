// Package resilience guards the calls a client makes to one remote service.
//
// A Guard composes whichever of a token bucket rate limiter, a bulkhead and a
// circuit breaker its Policy enables. The client decides which failures
// count against the breaker:
//
//	g := resilience.NewGuard("billing", resilience.Policy{
//	    CircuitBreaker: &resilience.CircuitBreakerConfig{Threshold: 3},
//	}, resilience.WithFailureClassifier(isOutage))
//	err := g.Do(ctx, func() error {
//	    return send(req)
//	})
//
// Refused calls fail with a *RejectedError naming the guard. There is no
// retry.
package resilience
