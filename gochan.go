// Package gochan is the thin public facade over the worker pool and
// channel primitives: Go and GoShared submit a registered task to a pool,
// MakeChan sizes and creates a channel from a sample value, and
// RegisterChannel makes a channel's handle resolvable by string id inside
// every worker a pool runs.
package gochan

import (
	"github.com/EklabDev/gochan/internal/shmchan"
	"github.com/EklabDev/gochan/internal/sizeof"
	"github.com/EklabDev/gochan/pool"
)

// Go submits fn (registered with worker.RegisterTask) to p and returns a
// handle that resolves to T.
func Go[T any](p *pool.Pool, fn string, args any) (*pool.Future[T], error) {
	return pool.Submit[T](p, fn, args)
}

// GoShared submits fn (registered with worker.RegisterSharedTask) to p.
// The function receives the pool's channel-lookup capability as well as
// args, so it must have been registered as a shared task, not an
// ordinary one.
func GoShared[T any](p *pool.Pool, fn string, args any) (*pool.Future[T], error) {
	return pool.SubmitShared[T](p, fn, args)
}

// RegisterChannel records ch under id in p's registration history and
// announces it to every current and future worker.
func RegisterChannel[T any](p *pool.Pool, id string, ch *shmchan.Channel[T]) {
	p.RegisterChannel(id, ch)
}

// MakeChan creates a channel sized for sample, estimating a slot size
// from it with sizeof.Estimate rather than requiring the caller to reason
// about JSON framing overhead directly.
func MakeChan[T any](capacity int, sample T) (*shmchan.Channel[T], error) {
	slotSize, err := sizeof.Estimate(sample)
	if err != nil {
		return nil, err
	}
	return shmchan.Create[T](capacity, slotSize)
}

// MakeChanSize creates a channel with an explicit slot size, for callers
// that already know their payload's worst-case encoded length.
func MakeChanSize[T any](capacity, slotSize int) (*shmchan.Channel[T], error) {
	return shmchan.Create[T](capacity, slotSize)
}
