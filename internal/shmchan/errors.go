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

import "errors"

var (
	// ErrClosed is returned by Send when the channel is closed.
	ErrClosed = errors.New("shmchan: closed")

	// ErrClosedAndEmpty is returned by Receive when the channel is closed
	// and every committed slot has already been consumed.
	ErrClosedAndEmpty = errors.New("shmchan: closed and empty")

	// ErrPayloadTooLarge is returned by Send when the encoded value does
	// not fit in slotSize-4 bytes.
	ErrPayloadTooLarge = errors.New("shmchan: payload too large for slot")

	// ErrSerializationFailed wraps an encoding error raised while preparing
	// a value for Send.
	ErrSerializationFailed = errors.New("shmchan: serialization failed")

	// ErrDeserializationFailed wraps a decoding error raised while
	// reconstructing a value returned by Receive.
	ErrDeserializationFailed = errors.New("shmchan: deserialization failed")

	// ErrInvalidSlotSize is returned by Create when slotSize < 8.
	ErrInvalidSlotSize = errors.New("shmchan: slot size must be at least 8 bytes")

	// ErrRegionTooLarge is returned by Create when the region size would
	// exceed math.MaxInt32 bytes.
	ErrRegionTooLarge = errors.New("shmchan: region size overflow")
)
