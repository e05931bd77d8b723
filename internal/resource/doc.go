// Package resource holds the shared limits of a load.
//
// A Budget caps the estimated memory of the identifier cache. Charges fail
// fast with ErrMemoryLimitExceeded and are never returned, because the cache
// only grows while a load runs and must not evict.
//
// A Throttle rate-limits store mutations across all loader workers:
//
//	th := resource.NewThrottle(50_000)
//	if err := th.Wait(ctx, 1); err != nil {
//	    return err
//	}
//
// Both types are nil-safe: a nil *Budget is unlimited and a nil *Throttle
// never waits.
package resource
