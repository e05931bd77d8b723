package resource

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttle limits the rate of store mutations. It is shared by all workers
// of a loader.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle allows opsPerSec mutations per second with a one second burst.
// opsPerSec <= 0 returns nil, which never waits.
func NewThrottle(opsPerSec int64) *Throttle {
	if opsPerSec <= 0 {
		return nil
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Limit(opsPerSec), int(opsPerSec))}
}

// Wait blocks until n more mutations are allowed or ctx is done.
func (t *Throttle) Wait(ctx context.Context, n int) error {
	if t == nil {
		return ctx.Err()
	}
	return t.limiter.WaitN(ctx, n)
}
