// Package pool implements the worker pool and task dispatcher: it owns a
// bounded set of workers, routes submitted tasks to an idle worker,
// reissues replacement workers after failures, and re-announces channel
// registrations to newly created workers.
package pool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/EklabDev/gochan/internal/wire"
	"github.com/EklabDev/gochan/worker"
)

// Options configures a Pool at construction. There is no environment or
// file-based configuration surface: every field is an explicit
// constructor parameter, taken as explicit arguments rather than read
// from the environment.
type Options struct {
	// WorkerCount bounds the number of workers the pool keeps alive.
	// Defaults to runtime.NumCPU() if <= 0.
	WorkerCount int

	// QueueCapacity bounds how many messages may be buffered in a single
	// worker's inbox/replies channels. Defaults to 64 if <= 0.
	QueueCapacity int

	// Logger receives pool-internal transport errors, such as a worker
	// exiting unexpectedly. Defaults to slog.Default(). The core never
	// logs anywhere else.
	Logger *slog.Logger
}

type registrationEntry struct {
	id     string
	handle any
}

// Pool owns the set of workers, an ordered pending-task queue, and an
// append-only record of every channel registration so replacement or
// late-created workers receive the full registration history.
type Pool struct {
	bound         int
	queueCapacity int
	logger        *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu                  sync.Mutex
	workers             map[string]*worker.Worker
	idle                []string
	busy                map[string]string // workerID -> taskID
	pendingQueue        []wire.Submission
	pendingHandles      map[string]completionHandle
	registrationHistory []registrationEntry
	terminating         bool

	nextWorkerID atomic.Uint64
	nextTaskID   atomic.Uint64
}

// New constructs a Pool and starts opts.WorkerCount (or runtime.NumCPU())
// workers immediately.
func New(opts Options) *Pool {
	bound := opts.WorkerCount
	if bound <= 0 {
		bound = runtime.NumCPU()
	}
	queueCapacity := opts.QueueCapacity
	if queueCapacity <= 0 {
		queueCapacity = 64
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		bound:          bound,
		queueCapacity:  queueCapacity,
		logger:         logger,
		ctx:            ctx,
		cancel:         cancel,
		workers:        make(map[string]*worker.Worker),
		busy:           make(map[string]string),
		pendingHandles: make(map[string]completionHandle),
	}

	p.mu.Lock()
	for i := 0; i < bound; i++ {
		p.addWorkerLocked()
	}
	p.mu.Unlock()

	return p
}

// Submit encodes args, enqueues a task running the function registered
// under fn, and returns a handle that resolves to T once a worker reports
// success.
func Submit[T any](p *Pool, fn string, args any) (*Future[T], error) {
	return submitInternal[T](p, fn, args, false)
}

// SubmitShared is Submit's goShared counterpart: the task registered under
// fn must have been registered with worker.RegisterSharedTask.
func SubmitShared[T any](p *Pool, fn string, args any) (*Future[T], error) {
	return submitInternal[T](p, fn, args, true)
}

// submitInternal is a free function rather than a method because Go does
// not allow a method to carry its own type parameters; Pool itself stays
// non-generic so it can hold completionHandle values of many different Ts
// in the same maps.
func submitInternal[T any](p *Pool, fn string, args any, shared bool) (*Future[T], error) {
	encodedArgs, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("pool: encode args: %w", err)
	}

	id := fmt.Sprintf("t-%d", p.nextTaskID.Add(1))
	sub := wire.Submission{
		ID:   id,
		Type: wire.TypeExecute,
		Payload: wire.ExecutePayload{
			Fn:     fn,
			Args:   encodedArgs,
			Shared: shared,
		},
	}

	future := newFuture[T]()

	p.mu.Lock()
	if p.terminating {
		p.mu.Unlock()
		future.reject(ErrShutdown)
		return future, nil
	}
	p.pendingHandles[id] = future
	p.pendingQueue = append(p.pendingQueue, sub)
	p.mu.Unlock()

	p.dispatch()
	return future, nil
}

// RegisterChannel records (id, handle) in the registration history and
// sends register_shared_channel to every current worker. Workers created
// afterwards receive the full history at creation time.
func (p *Pool) RegisterChannel(id string, handle any) {
	p.mu.Lock()
	p.registrationHistory = append(p.registrationHistory, registrationEntry{id: id, handle: handle})
	targets := make([]*worker.Worker, 0, len(p.workers))
	for _, w := range p.workers {
		targets = append(targets, w)
	}
	p.mu.Unlock()

	for _, w := range targets {
		w.Register(id, handle)
	}
}

// Terminate requests shutdown of every worker, awaits their termination,
// clears the worker sets, and fails every still-pending handle with
// ErrShutdown.
func (p *Pool) Terminate(ctx context.Context) error {
	p.mu.Lock()
	p.terminating = true
	pendingHandles := p.pendingHandles
	p.pendingHandles = make(map[string]completionHandle)
	p.pendingQueue = nil
	p.mu.Unlock()

	for _, h := range pendingHandles {
		h.reject(ErrShutdown)
	}

	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// addWorkerLocked starts a new worker, replays the full registration
// history to it, and enrolls it in the idle set. p.mu must be held. The
// replay happens before the worker is added to p.idle so no caller can
// have a task dispatched to it ahead of the channels it needs to look up.
func (p *Pool) addWorkerLocked() {
	id := fmt.Sprintf("w-%d", p.nextWorkerID.Add(1))
	w := worker.New(p.ctx, id, p.queueCapacity)
	p.workers[id] = w

	p.wg.Add(1)
	go w.Run()

	for _, reg := range p.registrationHistory {
		w.Register(reg.id, reg.handle)
	}

	p.idle = append(p.idle, id)
	go p.pump(id, w)
}

// pump drains one worker's replies and, once the worker exits, decides
// whether the pool should replace it. Replies and exit are two separate
// signals, not one channel closing: a task that never observed ctx
// cancellation may still be unwinding in its own goroutine when Run
// returns, and onWorkerExit must run (and the in-flight task, if any,
// must be failed) without waiting for it.
func (p *Pool) pump(id string, w *worker.Worker) {
	defer p.wg.Done()

	for {
		select {
		case reply := <-w.Replies():
			p.onReply(id, reply)
		case <-w.Done():
			// Drain whatever replies were already queued before treating
			// the worker as gone, so a task that finished just ahead of
			// the kill isn't reported as a failure.
			for {
				select {
				case reply := <-w.Replies():
					p.onReply(id, reply)
				default:
					p.onWorkerExit(id)
					return
				}
			}
		}
	}
}

func (p *Pool) onReply(workerID string, reply wire.Reply) {
	p.mu.Lock()
	delete(p.busy, workerID)
	p.idle = append(p.idle, workerID)
	handle, ok := p.pendingHandles[reply.ID]
	if ok {
		delete(p.pendingHandles, reply.ID)
	}
	p.mu.Unlock()

	if ok {
		if reply.Type == wire.TypeError {
			handle.reject(fmt.Errorf("%s", reply.Error))
		} else {
			handle.resolve(reply.Payload)
		}
	}

	p.dispatch()
}

func (p *Pool) onWorkerExit(workerID string) {
	p.mu.Lock()
	terminating := p.terminating
	taskID, wasBusy := p.busy[workerID]
	delete(p.busy, workerID)
	delete(p.workers, workerID)
	p.removeFromIdleLocked(workerID)

	var handle completionHandle
	var rejectIt bool
	if wasBusy {
		if h, ok := p.pendingHandles[taskID]; ok {
			delete(p.pendingHandles, taskID)
			handle, rejectIt = h, true
		}
	}
	p.mu.Unlock()

	if rejectIt {
		handle.reject(ErrWorkerFailure)
	}

	if terminating {
		return
	}

	p.logger.Error("gochan: worker exited unexpectedly", "worker", workerID, "hadTask", wasBusy)
	p.dispatch()
}

func (p *Pool) removeFromIdleLocked(workerID string) {
	for i, id := range p.idle {
		if id == workerID {
			p.idle = append(p.idle[:i], p.idle[i+1:]...)
			return
		}
	}
}

// dispatch pops one pending task and one idle worker at a time until
// either set is exhausted, growing the pool (up to its bound) when there
// is work and no idle worker to hand it to.
func (p *Pool) dispatch() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.pendingQueue) > 0 && len(p.workers) < p.bound && len(p.idle) == 0 {
		p.addWorkerLocked()
	}

	for len(p.pendingQueue) > 0 && len(p.idle) > 0 {
		sub := p.pendingQueue[0]
		p.pendingQueue = p.pendingQueue[1:]

		workerID := p.idle[0]
		p.idle = p.idle[1:]
		p.busy[workerID] = sub.ID

		w := p.workers[workerID]
		w.Submit(sub)
	}
}
