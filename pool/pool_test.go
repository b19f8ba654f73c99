package pool

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/EklabDev/gochan/worker"
)

func registerSquare(t *testing.T) {
	t.Cleanup(worker.ResetRegistryForTest)
	worker.RegisterTask("square", func(ctx context.Context, args json.RawMessage) (any, error) {
		var n int
		if err := json.Unmarshal(args, &n); err != nil {
			return nil, err
		}
		return n * n, nil
	})
}

func TestPool_FanOutAllTasksComplete(t *testing.T) {
	registerSquare(t)

	p := New(Options{WorkerCount: 4, QueueCapacity: 8})
	defer p.Terminate(context.Background())

	futures := make([]*Future[int], 0, 10)
	for i := 1; i <= 10; i++ {
		f, err := Submit[int](p, "square", i)
		if err != nil {
			t.Fatalf("Submit(%d): %v", i, err)
		}
		futures = append(futures, f)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	seen := make(map[int]bool)
	for i, f := range futures {
		got, err := f.Wait(ctx)
		if err != nil {
			t.Fatalf("task %d: %v", i+1, err)
		}
		want := (i + 1) * (i + 1)
		if got != want {
			t.Fatalf("task %d: got %d, want %d", i+1, got, want)
		}
		if seen[got] {
			t.Fatalf("result %d observed twice", got)
		}
		seen[got] = true
	}
}

func TestPool_SubmitAfterTerminateRejects(t *testing.T) {
	registerSquare(t)

	p := New(Options{WorkerCount: 2})
	if err := p.Terminate(context.Background()); err != nil {
		t.Fatalf("Terminate: %v", err)
	}

	f, err := Submit[int](p, "square", 3)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	_, err = f.Wait(context.Background())
	if !errors.Is(err, ErrShutdown) {
		t.Fatalf("err = %v, want ErrShutdown", err)
	}
}

func TestPool_WorkerFailureRejectsInFlightTask(t *testing.T) {
	t.Cleanup(worker.ResetRegistryForTest)

	release := make(chan struct{})
	started := make(chan struct{})
	worker.RegisterTask("block", func(ctx context.Context, args json.RawMessage) (any, error) {
		close(started)
		// Deliberately ignores ctx: models a task mid-flight when its
		// worker is killed, not one that cooperatively unwinds.
		<-release
		return "done", nil
	})

	p := New(Options{WorkerCount: 1, QueueCapacity: 4})
	defer p.Terminate(context.Background())

	f, err := Submit[any](p, "block", nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	<-started

	p.mu.Lock()
	var id string
	for wid := range p.workers {
		id = wid
	}
	w := p.workers[id]
	p.mu.Unlock()
	w.Kill()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = f.Wait(ctx)
	if !isWorkerFailure(err) {
		t.Fatalf("err = %v, want ErrWorkerFailure", err)
	}
	close(release)
}

func TestPool_RegistrationReplayedToReplacementWorker(t *testing.T) {
	t.Cleanup(worker.ResetRegistryForTest)
	worker.RegisterSharedTask("lookup-handle", func(ctx context.Context, lookup worker.Lookup, args json.RawMessage) (any, error) {
		h, ok := lookup("chan-1")
		if !ok {
			return nil, errors.New("not found")
		}
		return h, nil
	})

	p := New(Options{WorkerCount: 1, QueueCapacity: 4})
	defer p.Terminate(context.Background())

	p.RegisterChannel("chan-1", "handle-1")

	p.mu.Lock()
	var id string
	for wid := range p.workers {
		id = wid
	}
	w := p.workers[id]
	p.mu.Unlock()
	w.Kill()

	// Give onWorkerExit a moment to remove the dead worker before the
	// next submit's dispatch has to decide whether to grow the pool.
	time.Sleep(20 * time.Millisecond)

	f, err := SubmitShared[string](p, "lookup-handle", nil)
	if err != nil {
		t.Fatalf("SubmitShared: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got, err := f.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got != "handle-1" {
		t.Fatalf("got %q, want %q", got, "handle-1")
	}
}

func TestPool_ConcurrentSubmitNoLostReplies(t *testing.T) {
	registerSquare(t)

	p := New(Options{WorkerCount: 4, QueueCapacity: 16})
	defer p.Terminate(context.Background())

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f, err := Submit[int](p, "square", i)
			if err != nil {
				errs <- err
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			got, err := f.Wait(ctx)
			if err != nil {
				errs <- err
				return
			}
			if got != i*i {
				errs <- errors.New("wrong result")
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}
