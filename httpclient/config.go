package httpclient

import (
	"fmt"
	"time"

	"github.com/kbukum/apikit/resilience"
)

const (
	defaultTimeout = 30 * time.Second
	defaultName    = "httpclient"
)

// Config configures the client's transport.
type Config struct {
	// Name identifies the client in logs and resilience components.
	Name string `yaml:"name" mapstructure:"name"`

	// Timeout bounds a whole call including reading the body. Defaults to 30s.
	// Cancellation beyond this is left to the caller's context.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// TLS configures TLS settings for the HTTP transport.
	TLS *TLSConfig `yaml:"tls" mapstructure:"tls"`

	// CircuitBreaker wraps the transport send. Nil disables it.
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`

	// RateLimiter throttles transport sends. Nil disables it.
	RateLimiter *resilience.RateLimiterConfig `yaml:"rate_limiter" mapstructure:"rate_limiter"`

	// Bulkhead caps concurrent transport sends. Nil disables it.
	Bulkhead *resilience.BulkheadConfig `yaml:"bulkhead" mapstructure:"bulkhead"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = defaultName
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	if c.TLS != nil {
		if err := c.TLS.Validate(); err != nil {
			return err
		}
	}
	if c.RateLimiter != nil && c.RateLimiter.Rate < 0 {
		return fmt.Errorf("httpclient: rate limiter rate must not be negative")
	}
	if c.Bulkhead != nil && c.Bulkhead.MaxConcurrent < 0 {
		return fmt.Errorf("httpclient: bulkhead max concurrent must not be negative")
	}
	return nil
}

func (c *Config) policy() resilience.Policy {
	return resilience.Policy{
		CircuitBreaker: c.CircuitBreaker,
		RateLimiter:    c.RateLimiter,
		Bulkhead:       c.Bulkhead,
	}
}

// DefaultCircuitBreakerConfig returns a breaker that opens after 5
// consecutive transport failures or 5xx responses.
func DefaultCircuitBreakerConfig() *resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig()
	return &cfg
}

// DefaultRateLimiterConfig returns a limiter of 10 calls per second.
func DefaultRateLimiterConfig() *resilience.RateLimiterConfig {
	cfg := resilience.DefaultRateLimiterConfig()
	return &cfg
}

// DefaultBulkheadConfig returns a bulkhead of 10 concurrent calls.
func DefaultBulkheadConfig() *resilience.BulkheadConfig {
	cfg := resilience.DefaultBulkheadConfig()
	return &cfg
}
