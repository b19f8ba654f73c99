package shmchan

import (
	"context"
	"errors"
)

// Iterator is a lazy, restartable, single-consumer-at-a-time traversal of a
// Channel. It is equivalent to a loop around Receive that stops on
// ErrClosedAndEmpty; cancelling the context passed to Next leaves the
// channel otherwise unchanged, since Next performs no side effect beyond
// the Receive call itself.
type Iterator[T any] struct {
	ch *Channel[T]
}

// Iterate returns an Iterator over c. Multiple iterators may exist, but
// Channel itself has no ordering guarantee across distinct consumers
// pulling from the same channel concurrently; callers wanting a single
// logical consumer should keep one Iterator and call Next sequentially.
func (c *Channel[T]) Iterate() *Iterator[T] {
	return &Iterator[T]{ch: c}
}

// Next returns the next value, (zero, false, nil) once the channel has
// closed and drained, or (zero, false, err) on any other error.
func (it *Iterator[T]) Next(ctx context.Context) (T, bool, error) {
	value, err := it.ch.Receive(ctx)
	if err == nil {
		return value, true, nil
	}
	var zero T
	if errors.Is(err, ErrClosedAndEmpty) {
		return zero, false, nil
	}
	return zero, false, err
}
