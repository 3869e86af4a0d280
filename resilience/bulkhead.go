package resilience

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// BulkheadConfig caps the calls a Guard lets run at once.
type BulkheadConfig struct {
	// MaxConcurrent is the number of calls allowed in flight.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	// MaxWait is how long a call may wait for a slot. Zero rejects at once.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
}

// DefaultBulkheadConfig returns 10 slots and no waiting.
func DefaultBulkheadConfig() BulkheadConfig {
	return BulkheadConfig{MaxConcurrent: 10}
}

type bulkhead struct {
	name    string
	sem     *semaphore.Weighted
	maxWait time.Duration
	inUse   atomic.Int64
}

func newBulkhead(name string, cfg BulkheadConfig) *bulkhead {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultBulkheadConfig().MaxConcurrent
	}
	return &bulkhead{
		name:    name,
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		maxWait: cfg.MaxWait,
	}
}

func (b *bulkhead) acquire(ctx context.Context) error {
	if !b.sem.TryAcquire(1) {
		if b.maxWait <= 0 {
			return &RejectedError{Guard: b.name, Reason: ErrBulkheadFull}
		}
		wctx, cancel := context.WithTimeout(ctx, b.maxWait)
		defer cancel()
		if err := b.sem.Acquire(wctx, 1); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return &RejectedError{Guard: b.name, Reason: ErrBulkheadFull}
		}
	}
	b.inUse.Add(1)
	return nil
}

func (b *bulkhead) release() {
	b.inUse.Add(-1)
	b.sem.Release(1)
}
