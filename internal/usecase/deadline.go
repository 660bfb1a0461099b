package usecase

import (
	"context"
	"fmt"
	"time"
)

type result[T any] struct {
	val T
	err error
}

// callWithTimeout runs fn bounded by d. The bound holds even when fn ignores
// ctx: on expiry the call is abandoned and its late result discarded.
// Timeouts wrap context.DeadlineExceeded.
func callWithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if d <= 0 {
		return fn(ctx)
	}
	cctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan result[T], 1)
	go func() {
		v, err := fn(cctx)
		done <- result[T]{val: v, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-cctx.Done():
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, fmt.Errorf("%w after %s: %w", ErrStageTimeout, d, context.DeadlineExceeded)
	}
}
