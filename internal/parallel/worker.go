// Package parallel provides parallel processing infrastructure for
// column-wise feature preparation.
//
// Work is fanned out per column: fitting a scaler, imputing a column or
// hashing row chunks are independent tasks whose results are collected in
// input order. The pool is backed by errgroup, so the first failing task
// cancels the rest and its error is returned to the caller.
//
// Small inputs (fewer items than Threshold) run inline on the calling
// goroutine, which keeps single-column operations deterministic and cheap.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Threshold is the item count from which work is spread over goroutines.
const Threshold = 2

// WorkerPool bounds the number of goroutines used by Process calls
type WorkerPool struct {
	numWorkers int
}

// NewWorkerPool creates a new worker pool. A non-positive count defaults to
// runtime.NumCPU().
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &WorkerPool{numWorkers: numWorkers}
}

// Workers returns the goroutine limit of the pool.
func (wp *WorkerPool) Workers() int {
	return wp.numWorkers
}

// ProcessIndexed executes work items in parallel while preserving order.
// It returns the first error raised by a worker; results are then discarded.
func ProcessIndexed[T, R any](
	ctx context.Context,
	wp *WorkerPool,
	items []T,
	worker func(context.Context, int, T) (R, error),
) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}

	results := make([]R, len(items))

	if len(items) < Threshold || wp.numWorkers == 1 {
		for i, item := range items {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			r, err := worker(ctx, i, item)
			if err != nil {
				return nil, err
			}
			results[i] = r
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(wp.numWorkers)

	for i, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := worker(gctx, i, item)
			if err != nil {
				return err
			}
			// Each goroutine owns a distinct slot
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ForEach runs fn for every item and returns the first error.
func ForEach[T any](
	ctx context.Context,
	wp *WorkerPool,
	items []T,
	fn func(context.Context, int, T) error,
) error {
	_, err := ProcessIndexed(ctx, wp, items, func(ctx context.Context, i int, item T) (struct{}, error) {
		return struct{}{}, fn(ctx, i, item)
	})
	return err
}

// Chunks splits [0, n) into at most parts contiguous ranges of similar size.
func Chunks(n, parts int) [][2]int {
	if n <= 0 {
		return nil
	}
	if parts <= 0 {
		parts = 1
	}
	if parts > n {
		parts = n
	}
	size := (n + parts - 1) / parts
	out := make([][2]int, 0, parts)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}
