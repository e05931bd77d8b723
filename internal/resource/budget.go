package resource

import (
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ErrMemoryLimitExceeded is returned when a charge would exceed the budget.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Budget tracks estimated bytes against an optional limit.
type Budget struct {
	limit int64
	sem   *semaphore.Weighted // nil if unlimited
	used  atomic.Int64
}

// NewBudget returns a Budget capped at limit bytes. A limit <= 0 only tracks usage.
func NewBudget(limit int64) *Budget {
	b := &Budget{}
	if limit > 0 {
		b.limit = limit
		b.sem = semaphore.NewWeighted(limit)
	}
	return b
}

// Charge reserves bytes without blocking.
func (b *Budget) Charge(bytes int64) error {
	if b == nil || bytes <= 0 {
		return nil
	}
	if b.sem != nil && !b.sem.TryAcquire(bytes) {
		return fmt.Errorf("%w: %d bytes used, %d requested, limit %d",
			ErrMemoryLimitExceeded, b.used.Load(), bytes, b.limit)
	}
	b.used.Add(bytes)
	return nil
}

// Used returns the charged bytes.
func (b *Budget) Used() int64 {
	if b == nil {
		return 0
	}
	return b.used.Load()
}
