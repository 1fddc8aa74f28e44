// Package pool provides the bounded-concurrency task runner that underlies
// every fan-out stage of the pipeline: directory scraping across sub-areas,
// classification and enrichment batching, and website crawling.
package pool

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Worker processes one task and returns zero or more results.
type Worker[T, R any] func(ctx context.Context, task T) ([]R, error)

// Run executes every task with at most limit workers in flight. A single
// task's failure is logged and contributes zero results; it never aborts
// sibling tasks or the pool. Run returns only after every task has settled.
// Order of results within one task's output is preserved; order across tasks
// is not guaranteed.
func Run[T, R any](ctx context.Context, tasks []T, limit int, worker Worker[T, R]) []R {
	if len(tasks) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = 1
	}

	// Plain errgroup as the semaphore. Workers always return nil so that one
	// failure cannot cancel the group's context for its siblings.
	g := errgroup.Group{}
	g.SetLimit(limit)

	var mu sync.Mutex
	var all []R

	for i, task := range tasks {
		g.Go(func() error {
			results, err := worker(ctx, task)
			if err != nil {
				zap.L().Warn("pool: task failed",
					zap.Int("task", i),
					zap.Error(err),
				)
				return nil
			}
			mu.Lock()
			all = append(all, results...)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return all
}

// Each executes every task with at most limit workers in flight, discarding
// results. Used by stages that mutate the record they own in place rather
// than returning values.
func Each[T any](ctx context.Context, tasks []T, limit int, worker func(ctx context.Context, task T) error) {
	Run(ctx, tasks, limit, func(ctx context.Context, task T) ([]struct{}, error) {
		if err := worker(ctx, task); err != nil {
			return nil, err
		}
		return nil, nil
	})
}

// Batches splits items into consecutive batches of at most size elements.
// The final batch may be shorter. A size <= 0 yields a single batch.
func Batches[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]T{items}
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}
