//go:build !linux || !(amd64 || arm64)

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
	"sync/atomic"
	"time"
)

// pollInterval bounds how long a single poll iteration sleeps before
// re-checking the word. It mirrors the 1ms ticker the platform-specific
// handshake wait loops use where a real futex isn't available.
const pollInterval = time.Millisecond

// waitOnWord is the portable fallback for platforms without a raw futex
// syscall: it polls addr in pollInterval increments until it changes from
// val or timeout elapses. Correctness depends only on the caller re-checking
// its logical condition after return, exactly as with the futex path.
func waitOnWord(addr *uint32, val uint32, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		if atomic.LoadUint32(addr) != val {
			return
		}
		<-ticker.C
	}
}

// wakeWord is a no-op on the poll fallback: waiters observe changes on their
// next tick rather than being woken directly.
func wakeWord(addr *uint32, n int) {}
