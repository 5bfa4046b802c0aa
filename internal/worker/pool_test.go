package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolLimitsConcurrency(t *testing.T) {
	ctx := context.Background()
	p := newPool(2)

	var running, peak atomic.Int32
	for i := 0; i < 6; i++ {
		require.NoError(t, p.Acquire(ctx))
		p.Run(func() error {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return nil
		})
	}

	require.NoError(t, p.Wait())
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestPoolFirstError(t *testing.T) {
	ctx := context.Background()
	p := newPool(1)
	first := errors.New("first")

	require.NoError(t, p.Acquire(ctx))
	p.Run(func() error { return first })

	require.NoError(t, p.Acquire(ctx))
	assert.ErrorIs(t, p.Err(), first)
	p.Run(func() error { return errors.New("second") })

	assert.ErrorIs(t, p.Wait(), first)
}

func TestPoolAcquireCanceled(t *testing.T) {
	p := newPool(0)
	require.NoError(t, p.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Acquire(ctx), context.DeadlineExceeded)

	p.Release()
	assert.NoError(t, p.Acquire(context.Background()))
}
