/*
 *
 * Copyright 2025 gRPC authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package shmchan

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// maxWaitTimeout bounds a single park on the header's wait words. Every wake
// is followed by a recheck of header preconditions, so a lost wakeup only
// costs latency up to this bound, never correctness.
const maxWaitTimeout = 10 * time.Millisecond

// Channel is a bounded or rendezvous FIFO over a region of memory directly
// readable and writable by every execution context that holds a reference
// to it. Capacity 0 means rendezvous: a value is committed only once a
// receiver is parked waiting for it. Capacity N>=1 means a ring of N slots.
//
// A Channel is safe for concurrent use by any number of senders and
// receivers.
type Channel[T any] struct {
	region []byte
	hdr    header

	capacity      uint32 // raw capacity, 0 for rendezvous
	arithCapacity uint32 // capacity used for slot arithmetic; max(capacity, 1)
	slotSize      uint32
	rendezvous    bool

	// writeMu and readMu serialize the multi-writer / multi-reader slot
	// commit and consume critical sections. The header's CAS-able indices
	// alone are not sufficient once payload bytes of varying length are
	// in play, so this channel uses an explicit reservation lock rather
	// than a bare CAS loop on write_index, the same way frame writes get
	// serialized with an internal mutex to preserve ordering.
	writeMu sync.Mutex
	readMu  sync.Mutex
}

// Create allocates a channel's region and initializes its header. It fails
// if slotSize is smaller than 8 bytes (4-byte length prefix plus at least
// some payload) or if the computed region size exceeds math.MaxInt32 bytes.
func Create[T any](capacity, slotSize int) (*Channel[T], error) {
	if slotSize < 8 {
		return nil, ErrInvalidSlotSize
	}
	if capacity < 0 {
		return nil, errors.New("shmchan: capacity must be >= 0")
	}

	rendezvous := capacity == 0
	arithCapacity := uint32(capacity)
	if rendezvous {
		arithCapacity = 1
	}

	size, err := regionSize(arithCapacity, uint32(slotSize))
	if err != nil {
		return nil, err
	}

	region := make([]byte, size)
	hdr := newHeader(region)
	hdr.setCapacity(uint32(capacity))
	hdr.setSlotSize(uint32(slotSize))

	return &Channel[T]{
		region:        region,
		hdr:           hdr,
		capacity:      uint32(capacity),
		arithCapacity: arithCapacity,
		slotSize:      uint32(slotSize),
		rendezvous:    rendezvous,
	}, nil
}

// regionSize computes HeaderSize + arithCapacity*slotSize in 64-bit
// arithmetic and rejects any total above math.MaxInt32, the largest size an
// int holds on every platform, including 32-bit ones.
func regionSize(arithCapacity, slotSize uint32) (int, error) {
	total := uint64(HeaderSize) + uint64(arithCapacity)*uint64(slotSize)
	if total > uint64(math.MaxInt32) {
		return 0, ErrRegionTooLarge
	}
	return int(total), nil
}

// Capacity reports the channel's configured capacity; 0 for rendezvous.
func (c *Channel[T]) Capacity() int { return int(c.capacity) }

// Send encodes value and commits it as the next slot, blocking until space
// is available (or, for a rendezvous channel, until a receiver is parked).
// It returns ErrClosed if the channel is closed at the moment of the
// attempt, and ErrPayloadTooLarge if the encoded value cannot fit in a
// single slot.
func (c *Channel[T]) Send(ctx context.Context, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	if len(data) > int(c.slotSize)-slotLengthPrefixSize {
		return ErrPayloadTooLarge
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.hdr.closed() {
			return ErrClosed
		}

		c.writeMu.Lock()
		w := c.hdr.writeIndex()
		r := c.hdr.readIndex()
		inFlight := w - r

		ready := inFlight < c.capacity
		if c.rendezvous {
			ready = c.hdr.waitingReceivers() > 0 && inFlight < 1
		}

		if ready {
			off := slotOffset(c.arithCapacity, c.slotSize, w)
			binary.LittleEndian.PutUint32(c.region[off:], uint32(len(data)))
			copy(c.region[off+slotLengthPrefixSize:], data)
			c.hdr.setWriteIndex(w + 1) // release-store: publishes the payload above
			c.writeMu.Unlock()
			wakeWord(c.hdr.waitingReceiversAddr(), 1)
			return nil
		}
		c.writeMu.Unlock()

		c.hdr.addWaitingSenders(1)
		v := c.hdr.waitingSenders()
		waitOnWord(c.hdr.waitingSendersAddr(), v, maxWaitTimeout)
		c.hdr.addWaitingSenders(-1)
	}
}

// Receive consumes the next committed slot and decodes it into T, blocking
// until a slot is available. It returns ErrClosedAndEmpty once the channel
// is closed and every committed slot has been consumed.
func (c *Channel[T]) Receive(ctx context.Context) (T, error) {
	var zero T
	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		c.readMu.Lock()
		w := c.hdr.writeIndex() // acquire-load: pairs with Send's release-store
		r := c.hdr.readIndex()

		if r == w {
			c.readMu.Unlock()
			if c.hdr.closed() {
				return zero, ErrClosedAndEmpty
			}

			c.hdr.addWaitingReceivers(1)
			// A parked rendezvous sender is waiting on exactly this
			// transition; nudge it before blocking ourselves.
			wakeWord(c.hdr.waitingSendersAddr(), 1)
			v := c.hdr.waitingReceivers()
			waitOnWord(c.hdr.waitingReceiversAddr(), v, maxWaitTimeout)
			c.hdr.addWaitingReceivers(-1)
			continue
		}

		off := slotOffset(c.arithCapacity, c.slotSize, r)
		length := binary.LittleEndian.Uint32(c.region[off:])
		payload := make([]byte, length)
		copy(payload, c.region[off+slotLengthPrefixSize:off+slotLengthPrefixSize+int(length)])
		c.hdr.setReadIndex(r + 1)
		c.readMu.Unlock()
		wakeWord(c.hdr.waitingSendersAddr(), 1)

		var value T
		if err := json.Unmarshal(payload, &value); err != nil {
			return zero, fmt.Errorf("%w: %v", ErrDeserializationFailed, err)
		}
		return value, nil
	}
}

// Close marks the channel closed and wakes every waiter. It is idempotent.
func (c *Channel[T]) Close() error {
	if !c.hdr.setClosed() {
		return nil
	}
	wakeWord(c.hdr.waitingSendersAddr(), math.MaxInt32)
	wakeWord(c.hdr.waitingReceiversAddr(), math.MaxInt32)
	return nil
}

// IsClosed reports whether Close has been called. It is an advisory
// snapshot: the result may be stale by the time the caller acts on it.
func (c *Channel[T]) IsClosed() bool { return c.hdr.closed() }

// HasData reports whether at least one committed slot is unconsumed. It is
// an advisory snapshot.
func (c *Channel[T]) HasData() bool {
	return c.hdr.writeIndex() != c.hdr.readIndex()
}
