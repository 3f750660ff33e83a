package shoptl

import (
	"context"
	"sync"
)

// forEachRow calls fn for every index in [0, n) using at most limit goroutines.
// The context is checked before each index is dispatched; once it is done no
// further indexes start and the context error is returned after in-flight
// calls finish. fn must only write state addressed by its own index.
func forEachRow(ctx context.Context, n, limit int, fn func(ctx context.Context, i int)) error {
	if limit < 1 {
		limit = 1
	}

	// Sequential path keeps strict row order.
	if limit == 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(ctx, i)
		}
		return nil
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	var err error
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case sem <- struct{}{}:
		}
		if err != nil {
			break
		}
		// A slot may win the race against a concurrent cancellation.
		if err = ctx.Err(); err != nil {
			<-sem
			break
		}

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(ctx, idx)
		}(i)
	}

	wg.Wait()
	return err
}
