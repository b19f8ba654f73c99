package shmchan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestChannel_RendezvousHandoff(t *testing.T) {
	ch, err := Create[int](0, 32)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	ctx := context.Background()
	sendDone := make(chan error, 1)
	go func() {
		sendDone <- ch.Send(ctx, 42)
	}()

	// Give the sender a chance to park before the receiver arrives.
	time.Sleep(20 * time.Millisecond)

	got, err := ch.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if got != 42 {
		t.Fatalf("Receive = %d, want 42", got)
	}
	if err := <-sendDone; err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if w, r := ch.hdr.writeIndex(), ch.hdr.readIndex(); w != 1 || r != 1 {
		t.Fatalf("write_index=%d read_index=%d, want 1,1", w, r)
	}
}

func TestChannel_BufferedRoundTripThenClose(t *testing.T) {
	ch, err := Create[int](3, 32)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	ctx := context.Background()
	for _, v := range []int{1, 2, 3} {
		if err := ch.Send(ctx, v); err != nil {
			t.Fatalf("Send(%d) failed: %v", v, err)
		}
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	var got []int
	it := ch.Iterate()
	for {
		v, ok, err := it.Next(ctx)
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, v)
	}

	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestChannel_SendAfterCloseRejects(t *testing.T) {
	ch, err := Create[string](1, 32)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	ctx := context.Background()

	if err := ch.Send(ctx, "a"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	got, err := ch.Receive(ctx)
	if err != nil {
		t.Fatalf("first Receive failed: %v", err)
	}
	if got != "a" {
		t.Fatalf("Receive = %q, want %q", got, "a")
	}

	if _, err := ch.Receive(ctx); !errors.Is(err, ErrClosedAndEmpty) {
		t.Fatalf("second Receive error = %v, want ErrClosedAndEmpty", err)
	}

	if err := ch.Send(ctx, "b"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Send after close error = %v, want ErrClosed", err)
	}
}

func TestChannel_PayloadTooLarge(t *testing.T) {
	ch, err := Create[string](1, 16)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	err = ch.Send(context.Background(), "this string is far too long for a 16 byte slot")
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("Send error = %v, want ErrPayloadTooLarge", err)
	}
}

func TestChannel_InvalidSlotSize(t *testing.T) {
	if _, err := Create[int](1, 4); !errors.Is(err, ErrInvalidSlotSize) {
		t.Fatalf("Create error = %v, want ErrInvalidSlotSize", err)
	}
}

// TestChannel_FIFOUnderConcurrentSenders has many concurrent senders race to
// commit slots in a small ring and checks that every sent value is received
// exactly once: none lost, none duplicated.
func TestChannel_FIFOUnderConcurrentSenders(t *testing.T) {
	const n = 200
	ch, err := Create[int](4, 32)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			if err := ch.Send(ctx, v); err != nil {
				t.Errorf("Send(%d) failed: %v", v, err)
			}
		}(i)
	}

	seen := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		v, err := ch.Receive(ctx)
		if err != nil {
			t.Fatalf("Receive failed: %v", err)
		}
		if seen[v] {
			t.Fatalf("value %d received twice", v)
		}
		seen[v] = true
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if !seen[i] {
			t.Fatalf("value %d never received", i)
		}
	}
}

func TestChannel_CloseUnblocksWaiters(t *testing.T) {
	ch, err := Create[int](1, 32)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	ctx := context.Background()

	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_, err := ch.Receive(ctx)
			errs <- err
		}()
	}

	time.Sleep(20 * time.Millisecond)
	if err := ch.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	for i := 0; i < 4; i++ {
		select {
		case err := <-errs:
			if !errors.Is(err, ErrClosedAndEmpty) {
				t.Fatalf("Receive error = %v, want ErrClosedAndEmpty", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("waiter did not unblock after Close within 2s")
		}
	}
}

func TestChannel_CloseIsIdempotent(t *testing.T) {
	ch, err := Create[int](1, 32)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if !ch.IsClosed() {
		t.Fatal("IsClosed = false after Close")
	}
}

func TestChannel_HasData(t *testing.T) {
	ch, err := Create[int](2, 32)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if ch.HasData() {
		t.Fatal("HasData = true on empty channel")
	}
	if err := ch.Send(context.Background(), 1); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !ch.HasData() {
		t.Fatal("HasData = false after Send")
	}
}

func TestChannel_ContextCancellationDoesNotMutateState(t *testing.T) {
	ch, err := Create[int](0, 32)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := ch.Receive(ctx); err == nil {
		t.Fatal("Receive on empty rendezvous channel returned nil error")
	}

	if w, r := ch.hdr.writeIndex(), ch.hdr.readIndex(); w != 0 || r != 0 {
		t.Fatalf("write_index=%d read_index=%d after cancelled Receive, want 0,0", w, r)
	}
}

func TestRegionSize_OverflowRejected(t *testing.T) {
	_, err := regionSize(1<<31, 1<<31)
	if err == nil {
		t.Fatal("regionSize did not reject an overflowing capacity*slotSize")
	}
}

func ExampleChannel_rendezvous() {
	ch, err := Create[string](0, 32)
	if err != nil {
		panic(err)
	}
	go func() {
		_ = ch.Send(context.Background(), "hello")
	}()
	v, err := ch.Receive(context.Background())
	if err != nil {
		panic(err)
	}
	fmt.Println(v)
	// Output: hello
}
