// Package batch runs independent units of work under a concurrency ceiling
// while keeping results in input order.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Run calls fn for every item with at most limit calls in flight. A new item is
// started as soon as any slot frees up. Results are returned in input order.
//
// The first error cancels the context handed to the running items, no further
// items are started and Run returns that error with no results.
func Run[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, item T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(normalizeLimit(limit, len(items)))

	launched := 0
	for i, item := range items {
		if groupCtx.Err() != nil {
			break
		}
		launched++
		i, item := i, item
		g.Go(func() error {
			// Go may have waited for a slot while another item failed.
			if err := groupCtx.Err(); err != nil {
				return err
			}
			result, err := fn(groupCtx, item)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if launched < len(items) {
		return nil, ctx.Err()
	}

	return results, nil
}

// RunChunked has the same contract as Run but schedules in fixed chunks of
// limit items: a chunk starts only after every item of the previous chunk has
// finished. Nothing in the checker uses it; it stays as the watermark
// scheduler that Run is compared against in tests.
func RunChunked[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, item T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}

	limit = normalizeLimit(limit, len(items))

	for start := 0; start < len(items); start += limit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := min(start+limit, len(items))
		g, chunkCtx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			item := items[i]
			g.Go(func() error {
				result, err := fn(chunkCtx, item)
				if err != nil {
					return err
				}
				results[i] = result
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	return results, nil
}

func normalizeLimit(limit, total int) int {
	if limit < 1 {
		return 1
	}
	if limit > total {
		return total
	}
	return limit
}
