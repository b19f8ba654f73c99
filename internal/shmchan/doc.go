/*
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
 */

// Package shmchan implements gochan's channel primitive: a single-producer/
// single-consumer-agnostic, multi-writer/multi-reader FIFO whose state
// (indices, flags, waiter counts) lives in a region of memory directly
// readable and writable by every execution context holding a reference to
// it, coordinated only by atomic operations on a 28-byte header.
//
// Capacity 0 is a rendezvous channel: Send blocks until a Receive is
// parked waiting for it. Capacity N>=1 is a bounded ring of N fixed-size,
// length-prefixed slots.
package shmchan
