package pool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task is one unit of work. i is the task's index in the batch.
type Task func(ctx context.Context, i int) error

// Pool bounds the number of tasks running at once.
type Pool struct {
	size int
}

// New returns a pool running at most size tasks at a time. Sizes below one
// are treated as one.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{size: size}
}

// Size returns the concurrency limit.
func (p *Pool) Size() int {
	return p.size
}

// Run executes fn for every index in [0, n) and returns the first error.
func (p *Pool) Run(ctx context.Context, n int, fn Task) error {
	if p.size == 1 || n <= 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.size)
	for i := 0; i < n; i++ {
		i := i // per-iteration copy; required for go < 1.22 loop semantics
		if egctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			return fn(egctx, i)
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	// the loop may have stopped early because the caller canceled
	return ctx.Err()
}
