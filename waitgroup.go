package gochan

import (
	"context"
	"sync"
)

// Awaiter is the shape a WaitGroup aggregates over: *pool.Future[T]
// satisfies it for any T without pool importing this package.
type Awaiter interface {
	Await(ctx context.Context) (any, error)
}

// WaitGroup aggregates a dynamic set of outstanding task-completion
// handles. Add appends a handle and Wait blocks until every added handle
// has completed, returning their results in add order, or the first
// failure observed. After Wait returns, the group is empty and reusable.
type WaitGroup struct {
	mu      sync.Mutex
	handles []Awaiter
}

// Add appends handle to the group.
func (g *WaitGroup) Add(handle Awaiter) {
	g.mu.Lock()
	g.handles = append(g.handles, handle)
	g.mu.Unlock()
}

// Count reports the number of handles added since the last Wait. It is
// advisory: a concurrent Add or Wait can change it immediately after it
// returns.
func (g *WaitGroup) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.handles)
}

// Wait blocks until every handle added so far resolves, then returns their
// results in the order they were added. If any handle rejects, Wait
// returns the first such error to arrive once all handles have
// completed; results for handles that never got a chance to run because
// ctx was cancelled first are reported via ctx's own error. Either way the
// group is emptied before Wait returns.
func (g *WaitGroup) Wait(ctx context.Context) ([]any, error) {
	g.mu.Lock()
	handles := g.handles
	g.handles = nil
	g.mu.Unlock()

	results := make([]any, len(handles))
	var (
		errMu    sync.Mutex
		firstErr error
	)

	var wg sync.WaitGroup
	wg.Add(len(handles))
	for i, h := range handles {
		go func(i int, h Awaiter) {
			defer wg.Done()
			var err error
			results[i], err = h.Await(ctx)
			if err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
			}
		}(i, h)
	}
	wg.Wait()

	return results, firstErr
}
