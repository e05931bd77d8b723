package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPoolBasic(t *testing.T) {
	pool := NewWorkerPool(2, 0)
	defer pool.Close()
	assert.Equal(t, 2, pool.Size())

	done := make(chan int, 1)
	require.NoError(t, pool.Submit(context.Background(), func() { done <- 42 }))

	select {
	case v := <-done:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for task")
	}
}

func TestWorkerPoolConcurrencyBound(t *testing.T) {
	const numWorkers = 4
	const numTasks = 64

	pool := NewWorkerPool(numWorkers, 0)

	var running, peak atomic.Int32
	var completed atomic.Int32
	for i := 0; i < numTasks; i++ {
		err := pool.Submit(context.Background(), func() {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
			completed.Add(1)
		})
		require.NoError(t, err)
	}

	pool.Close()

	assert.Equal(t, int32(numTasks), completed.Load())
	assert.LessOrEqual(t, peak.Load(), int32(numWorkers))
}

func TestWorkerPoolSubmitBlocksUntilWorkerFree(t *testing.T) {
	pool := NewWorkerPool(1, 0)
	defer pool.Close()

	release := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func() { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := pool.Submit(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
}

func TestWorkerPoolClose(t *testing.T) {
	pool := NewWorkerPool(2, 4)

	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, pool.Submit(context.Background(), wg.Done))
	wg.Wait()

	pool.Close()
	pool.Close() // idempotent

	err := pool.Submit(context.Background(), func() {})
	assert.ErrorIs(t, err, ErrClosed)
}
