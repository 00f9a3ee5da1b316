// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ring provides the lock-free bounded storage layer the queue
// package wraps with blocking semantics (semaphores, events, cancellation).
//
// Four shapes are provided, one per producer/consumer cardinality:
// SPSC (Lamport ring buffer), and FAA-based MPSC/SPMC/MPMC (Nikolaev's SCQ
// algorithm, DISC 2019). All four are non-blocking: Push/Pop return
// immediately with ok=false when the ring is full/empty. Capacity always
// rounds up to a power of two.
package ring

// RoundToPow2 rounds n up to the next power of 2; panics if n < 2.
func RoundToPow2(n int) int {
	if n < 2 {
		panic("ring: capacity must be >= 2")
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// pad is cache-line padding, preventing false sharing between hot fields
// that are written by different goroutines (e.g. a consumer's head next to
// a producer's tail).
type pad [64]byte

// slotPad pads a ring slot out to a full cache line after its 8-byte cycle
// counter, so adjacent slots (and their racing readers/writers) don't
// share a line.
type slotPad [64 - 8]byte
