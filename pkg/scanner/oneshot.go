package scanner

import (
	"context"
	"sync/atomic"
)

// oneshot is a single-assignment result slot. Resolving it twice is a
// programming error and panics.
type oneshot[T any] struct {
	resolved atomic.Bool
	ch       chan T
}

func newOneshot[T any]() *oneshot[T] {
	return &oneshot[T]{ch: make(chan T, 1)}
}

func (o *oneshot[T]) resolve(v T) {
	if !o.resolved.CompareAndSwap(false, true) {
		panic("scanner: result resolved more than once")
	}
	o.ch <- v
}

// wait blocks until the slot is resolved or ctx is done.
func (o *oneshot[T]) wait(ctx context.Context) (T, error) {
	select {
	case v := <-o.ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
