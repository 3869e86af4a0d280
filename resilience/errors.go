package resilience

import (
	"errors"
	"fmt"
	"time"
)

// Rejection reasons.
var (
	ErrCircuitOpen  = errors.New("circuit breaker is open")
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrBulkheadFull = errors.New("bulkhead is full")
)

// RejectedError is returned when a guard refuses to run a call. It unwraps
// to one of the rejection reasons.
type RejectedError struct {
	// Guard names the guard, usually after the client it protects.
	Guard string
	// Reason is ErrCircuitOpen, ErrRateLimited or ErrBulkheadFull.
	Reason error
	// RetryAfter is how long until the call could be admitted, when known.
	RetryAfter time.Duration
}

func (e *RejectedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: %v (retry after %s)", e.Guard, e.Reason, e.RetryAfter.Round(time.Millisecond))
	}
	return fmt.Sprintf("%s: %v", e.Guard, e.Reason)
}

func (e *RejectedError) Unwrap() error { return e.Reason }

// IsRejected reports whether err is a guard rejection.
func IsRejected(err error) bool {
	var r *RejectedError
	return errors.As(err, &r)
}
