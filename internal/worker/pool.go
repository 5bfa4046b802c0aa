package worker

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// pool runs per-job work on at most size goroutines and remembers the
// first internal error any of them reported.
type pool struct {
	sem   *semaphore.Weighted
	group errgroup.Group

	mu  sync.Mutex
	err error
}

func newPool(size int) *pool {
	if size < 1 {
		size = 1
	}
	return &pool{sem: semaphore.NewWeighted(int64(size))}
}

// Acquire blocks until a slot is free or ctx ends
func (p *pool) Acquire(ctx context.Context) error {
	return p.sem.Acquire(ctx, 1)
}

// Release frees a slot taken by Acquire without running anything on it
func (p *pool) Release() {
	p.sem.Release(1)
}

// Run executes fn on an acquired slot and frees the slot when fn returns
func (p *pool) Run(fn func() error) {
	p.group.Go(func() error {
		defer p.Release()

		if err := fn(); err != nil {
			p.mu.Lock()
			if p.err == nil {
				p.err = err
			}
			p.mu.Unlock()
			return err
		}
		return nil
	})
}

// Err returns the first error reported so far
func (p *pool) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Wait blocks until every started fn returns, then returns the first error
func (p *pool) Wait() error {
	return p.group.Wait()
}
