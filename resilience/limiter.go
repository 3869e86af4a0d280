package resilience

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiterConfig configures the token bucket of a Guard.
type RateLimiterConfig struct {
	// Rate is the number of calls allowed per second.
	Rate float64 `yaml:"rate" mapstructure:"rate"`
	// Burst is the bucket size. Defaults to Rate, and at least 1.
	Burst int `yaml:"burst" mapstructure:"burst"`
	// NoWait rejects calls over the limit instead of waiting for a token.
	NoWait bool `yaml:"no_wait" mapstructure:"no_wait"`
}

// DefaultRateLimiterConfig returns 10 calls per second with bursts of 20.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{Rate: 10, Burst: 20}
}

type rateLimiter struct {
	name    string
	limiter *rate.Limiter
	noWait  bool
}

func newRateLimiter(name string, cfg RateLimiterConfig) *rateLimiter {
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultRateLimiterConfig().Rate
	}
	if cfg.Burst <= 0 {
		cfg.Burst = max(1, int(cfg.Rate))
	}
	return &rateLimiter{
		name:    name,
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
		noWait:  cfg.NoWait,
	}
}

// acquire takes a token. It waits for one unless the limiter rejects
// instead, and also rejects when the wait would outlast ctx's deadline.
func (l *rateLimiter) acquire(ctx context.Context) error {
	if l.noWait {
		r := l.limiter.Reserve()
		if d := r.Delay(); d > 0 {
			r.Cancel()
			return &RejectedError{Guard: l.name, Reason: ErrRateLimited, RetryAfter: d}
		}
		return nil
	}

	if err := l.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &RejectedError{Guard: l.name, Reason: ErrRateLimited}
	}
	return nil
}
