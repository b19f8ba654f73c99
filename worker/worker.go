package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/EklabDev/gochan/internal/wire"
)

// Worker is a long-lived task executor. It consumes registrations and
// submissions from its inbox and reports exactly one reply per submission
// on its replies channel. A Worker never re-enters the pool; a task that
// wants to submit further work must hold a reference to the host-side pool
// handle, which is outside the worker's own concerns.
type Worker struct {
	ID string

	inbox   chan any // wire.Submission or wire.Registration
	replies chan wire.Reply
	done    chan struct{}

	registry   map[string]any
	registryMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

// New constructs a Worker that stops when parent is cancelled or Kill is
// called. inboxSize bounds how many registrations/submissions may be
// queued to the worker before Submit/Register block.
func New(parent context.Context, id string, inboxSize int) *Worker {
	ctx, cancel := context.WithCancel(parent)
	return &Worker{
		ID:       id,
		inbox:    make(chan any, inboxSize),
		replies:  make(chan wire.Reply, inboxSize),
		done:     make(chan struct{}),
		registry: make(map[string]any),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Replies returns the channel the pool reads completed task replies from.
// It is never closed; a worker's exit is signalled separately by Done, so
// that a task goroutine still unwinding when the worker is killed has
// somewhere to (try to) deliver its result without racing a channel close.
func (w *Worker) Replies() <-chan wire.Reply { return w.replies }

// Done is closed once Run has returned, whether because the pool asked the
// worker to stop or because Kill forced it, as if the underlying execution
// context had crashed.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Register adds id -> handle to the worker's channel registry. Idempotent
// per id: a re-registration replaces the previous handle.
func (w *Worker) Register(id string, handle any) {
	select {
	case w.inbox <- wire.Registration{Type: wire.TypeRegisterSharedChannel, ChannelID: id, SharedBuffer: handle}:
	case <-w.ctx.Done():
	}
}

// Submit enqueues a task for execution. The caller is responsible for not
// calling Submit after the worker has stopped; Run simply drops anything
// still queued when its context is done.
func (w *Worker) Submit(sub wire.Submission) {
	select {
	case w.inbox <- sub:
	case <-w.ctx.Done():
	}
}

// Kill forces the worker to stop as if its execution context had exited
// abnormally. It is the in-process stand-in for an OS-level worker crash,
// used by tests exercising the pool's replacement logic; the pool itself
// never calls it.
func (w *Worker) Kill() { w.cancel() }

// Run processes inbox messages until the worker's context is cancelled,
// either by the pool's Terminate or by Kill. It never returns an error
// itself; whether an exit counts as a failure is the pool's call to make,
// based on whether the pool itself requested the shutdown. Each submission
// executes in its own goroutine so that a task which never observes ctx
// cancellation cannot also prevent Run from noticing it and returning, the
// same way a real crash would abandon whatever the execution context was
// doing without waiting for it to finish.
func (w *Worker) Run() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return
		case msg, ok := <-w.inbox:
			if !ok {
				return
			}
			switch m := msg.(type) {
			case wire.Registration:
				w.registryMu.Lock()
				w.registry[m.ChannelID] = m.SharedBuffer
				w.registryMu.Unlock()
			case wire.Submission:
				go w.execute(m)
			}
		}
	}
}

func (w *Worker) lookup(id string) (any, bool) {
	w.registryMu.Lock()
	defer w.registryMu.Unlock()
	h, ok := w.registry[id]
	return h, ok
}

// execute resolves and invokes a submission's task function, looking up
// fn against the registry rather than evaluating source text, and emits
// exactly one reply, unless the worker has since been killed and nobody
// is left to receive it.
func (w *Worker) execute(sub wire.Submission) {
	reply := wire.Reply{ID: sub.ID}

	defer func() {
		if r := recover(); r != nil {
			reply.Type = wire.TypeError
			reply.Error = fmt.Sprintf("panic: %v", r)
			reply.Stack = string(debug.Stack())
			w.sendReply(reply)
		}
	}()

	result, err := w.invoke(sub.Payload)
	if err != nil {
		reply.Type = wire.TypeError
		reply.Error = err.Error()
		w.sendReply(reply)
		return
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		reply.Type = wire.TypeError
		reply.Error = fmt.Sprintf("encode result: %v", err)
		w.sendReply(reply)
		return
	}

	reply.Type = wire.TypeResult
	reply.Payload = encoded
	w.sendReply(reply)
}

// sendReply delivers a reply unless the worker's context has already been
// cancelled, in which case the pool fails the in-flight task itself: with
// ErrWorkerFailure after a Kill, or with ErrShutdown under Terminate.
func (w *Worker) sendReply(reply wire.Reply) {
	select {
	case w.replies <- reply:
	case <-w.ctx.Done():
	}
}

func (w *Worker) invoke(payload wire.ExecutePayload) (any, error) {
	if payload.Shared {
		fn, ok := lookupSharedTask(payload.Fn)
		if !ok {
			return nil, fmt.Errorf("worker: unknown shared task %q", payload.Fn)
		}
		return fn(w.ctx, w.lookup, payload.Args)
	}

	fn, ok := lookupTask(payload.Fn)
	if !ok {
		return nil, fmt.Errorf("worker: unknown task %q", payload.Fn)
	}
	return fn(w.ctx, payload.Args)
}
