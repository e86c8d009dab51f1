// Package fanout runs independent tasks concurrently and settles every
// branch: each task's outcome is captured on its own, and one branch
// failing never cancels or fails its siblings.
package fanout

import (
	"context"
	"sync"
)

// Result is the settled outcome of a single branch.
type Result[T any] struct {
	Value T
	Err   error
}

// All runs every task concurrently and waits for all of them. The returned
// slice is index-aligned with tasks.
func All[T any](ctx context.Context, tasks []func(context.Context) (T, error)) []Result[T] {
	results := make([]Result[T], len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task func(context.Context) (T, error)) {
			defer wg.Done()
			v, err := task(ctx)
			results[i] = Result[T]{Value: v, Err: err}
		}(i, task)
	}
	wg.Wait()
	return results
}
