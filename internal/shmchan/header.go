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

// Package shmchan implements the channel primitive: a FIFO over a single
// region of memory shared by every execution context in the host process,
// coordinated by atomic operations on a small header.
package shmchan

import (
	"sync/atomic"
	"unsafe"
)

// Header layout: seven little-endian uint32 atomic words at fixed byte
// offsets, followed by a ring of fixed-size length-prefixed slots.
const (
	offCapacity         = 0
	offWriteIndex       = 4
	offReadIndex        = 8
	offClosed           = 12
	offSlotSize         = 16
	offWaitingSenders   = 20
	offWaitingReceivers = 24

	// HeaderSize is the fixed byte size of a channel region's header.
	HeaderSize = 28

	// slotLengthPrefixSize is the byte size of a slot's length prefix.
	slotLengthPrefixSize = 4
)

// header is a view over the first HeaderSize bytes of a channel's region.
// All access goes through atomic operations; header never copies the bytes
// it addresses.
type header struct {
	region []byte
}

func newHeader(region []byte) header {
	return header{region: region}
}

func (h header) word(off int) *uint32 {
	return (*uint32)(unsafe.Pointer(&h.region[off]))
}

func (h header) capacity() uint32         { return atomic.LoadUint32(h.word(offCapacity)) }
func (h header) setCapacity(v uint32)     { atomic.StoreUint32(h.word(offCapacity), v) }
func (h header) slotSize() uint32         { return atomic.LoadUint32(h.word(offSlotSize)) }
func (h header) setSlotSize(v uint32)     { atomic.StoreUint32(h.word(offSlotSize), v) }

// writeIndex is acquire-loaded by receivers: every byte written before a
// sender's release-store of writeIndex must be observed once that store is
// observed.
func (h header) writeIndex() uint32     { return atomic.LoadUint32(h.word(offWriteIndex)) }
func (h header) setWriteIndex(v uint32) { atomic.StoreUint32(h.word(offWriteIndex), v) }

func (h header) readIndex() uint32     { return atomic.LoadUint32(h.word(offReadIndex)) }
func (h header) setReadIndex(v uint32) { atomic.StoreUint32(h.word(offReadIndex), v) }

func (h header) closed() bool { return atomic.LoadUint32(h.word(offClosed)) != 0 }
func (h header) setClosed() bool {
	return atomic.CompareAndSwapUint32(h.word(offClosed), 0, 1)
}

func (h header) waitingSenders() uint32     { return atomic.LoadUint32(h.word(offWaitingSenders)) }
func (h header) addWaitingSenders(d int32)  { atomic.AddUint32(h.word(offWaitingSenders), uint32(d)) }
func (h header) waitingReceivers() uint32    { return atomic.LoadUint32(h.word(offWaitingReceivers)) }
func (h header) addWaitingReceivers(d int32) { atomic.AddUint32(h.word(offWaitingReceivers), uint32(d)) }

func (h header) waitingSendersAddr() *uint32   { return h.word(offWaitingSenders) }
func (h header) waitingReceiversAddr() *uint32 { return h.word(offWaitingReceivers) }

// slotOffset returns the byte offset of slot i within the region, given the
// arithmetic capacity (the real capacity for capacity>=1, or 1 for a
// rendezvous channel once a matching receiver has been observed).
func slotOffset(arithCapacity, slotSize, i uint32) int {
	return HeaderSize + int(i%arithCapacity)*int(slotSize)
}
