// Command gochanbench exercises a Pool and a Channel the way the core's
// own tests do, but as a standalone program whose output can be eyeballed
// rather than asserted on. It is the adapted replacement for a debug tool
// that used to poke directly at ring capacity; this one runs the actual
// fan-out and shared-channel-lookup scenarios the core is built for.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/EklabDev/gochan"
	"github.com/EklabDev/gochan/internal/sizeof"
	"github.com/EklabDev/gochan/pool"
	"github.com/EklabDev/gochan/worker"
)

func init() {
	worker.RegisterTask("square", func(ctx context.Context, args json.RawMessage) (any, error) {
		var n int
		if err := json.Unmarshal(args, &n); err != nil {
			return nil, err
		}
		return n * n, nil
	})
	worker.RegisterSharedTask("sum-channel", func(ctx context.Context, lookup worker.Lookup, args json.RawMessage) (any, error) {
		h, ok := lookup("numbers")
		if !ok {
			return nil, fmt.Errorf("gochanbench: channel %q not registered", "numbers")
		}
		ch, ok := h.(interface {
			Receive(ctx context.Context) (int, error)
		})
		if !ok {
			return nil, fmt.Errorf("gochanbench: unexpected channel handle type %T", h)
		}
		total := 0
		for i := 0; i < 5; i++ {
			v, err := ch.Receive(ctx)
			if err != nil {
				return nil, err
			}
			total += v
		}
		return total, nil
	})
}

func main() {
	fmt.Println("=== Pool fan-out ===")
	runFanOut()

	fmt.Println("\n=== Shared channel lookup ===")
	runSharedChannel()
}

func runFanOut() {
	p := pool.New(pool.Options{WorkerCount: 4})
	defer p.Terminate(context.Background())

	start := time.Now()
	futures := make([]*pool.Future[int], 0, 10)
	for i := 1; i <= 10; i++ {
		f, err := gochan.Go[int](p, "square", i)
		if err != nil {
			log.Fatalf("Go(%d): %v", i, err)
		}
		futures = append(futures, f)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i, f := range futures {
		got, err := f.Wait(ctx)
		if err != nil {
			log.Fatalf("task %d: %v", i+1, err)
		}
		fmt.Printf("square(%d) = %d\n", i+1, got)
	}
	fmt.Printf("10 tasks across 4 workers in %s\n", time.Since(start))
}

func runSharedChannel() {
	sampleSlot, err := sizeof.Estimate(0)
	if err != nil {
		log.Fatalf("sizeof.Estimate: %v", err)
	}
	fmt.Printf("estimated slot size for an int sample: %d bytes\n", sampleSlot)

	ch, err := gochan.MakeChan(5, 0)
	if err != nil {
		log.Fatalf("MakeChan: %v", err)
	}

	p := pool.New(pool.Options{WorkerCount: 1})
	defer p.Terminate(context.Background())

	gochan.RegisterChannel(p, "numbers", ch)

	go func() {
		for i := 1; i <= 5; i++ {
			if err := ch.Send(context.Background(), i); err != nil {
				log.Printf("send %d: %v", i, err)
				return
			}
		}
	}()

	f, err := gochan.GoShared[int](p, "sum-channel", nil)
	if err != nil {
		log.Fatalf("GoShared: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	total, err := f.Wait(ctx)
	if err != nil {
		log.Fatalf("sum-channel: %v", err)
	}
	fmt.Printf("sum of 1..5 received over the registered channel: %d\n", total)
}
