package worker

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ParallelFunc is a function that can be executed in parallel.
type ParallelFunc func(ctx context.Context) error

// ParallelResult holds the errors from parallel operations, in no particular order.
type ParallelResult struct {
	Errors []error
}

// RunParallel executes every function concurrently and waits for all of them.
// A failing function does not cancel the others.
func RunParallel(ctx context.Context, funcs []ParallelFunc) ParallelResult {
	if len(funcs) == 0 {
		return ParallelResult{}
	}

	var (
		g      errgroup.Group
		mu     sync.Mutex
		result ParallelResult
	)
	for _, fn := range funcs {
		g.Go(func() error {
			if err := fn(ctx); err != nil {
				mu.Lock()
				result.Errors = append(result.Errors, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return result
}
