package pool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/EklabDev/gochan/internal/shmchan"
)

// completionHandle is the type-erased side of Future[T] the pool's
// dispatch loop resolves or rejects without knowing T.
type completionHandle interface {
	resolve(payload json.RawMessage)
	reject(err error)
}

// Future is the completion handle returned by Submit. Exactly one of
// resolve or reject is ever called, and Wait may be called any number of
// times (including concurrently) after that.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(payload json.RawMessage) {
	defer close(f.done)
	if len(payload) == 0 {
		return
	}
	if err := json.Unmarshal(payload, &f.value); err != nil {
		f.err = fmt.Errorf("%w: %v", shmchan.ErrDeserializationFailed, err)
	}
}

func (f *Future[T]) reject(err error) {
	f.err = err
	close(f.done)
}

// Wait blocks until the submission resolves, rejects, or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Await adapts Wait to the shape gochan.WaitGroup aggregates over, boxing
// the typed result to any.
func (f *Future[T]) Await(ctx context.Context) (any, error) {
	return f.Wait(ctx)
}
