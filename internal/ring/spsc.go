// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ring

import "code.hybscloud.com/atomix"

// SPSC is a single-producer single-consumer bounded ring buffer, based on
// Lamport's design with cached-index optimization: each side caches its
// peer's index to cut cross-core cache-line traffic on the common path.
//
// Memory: n physical slots for capacity n.
type SPSC[T any] struct {
	_          pad
	head       atomix.Uint64 // consumer-owned
	_          pad
	cachedTail uint64 // consumer's cached view of tail
	_          pad
	tail       atomix.Uint64 // producer-owned
	_          pad
	cachedHead uint64 // producer's cached view of head
	_          pad
	buffer     []T
	mask       uint64
}

// NewSPSC creates an SPSC ring of the given capacity (rounded up to a
// power of 2).
func NewSPSC[T any](capacity int) *SPSC[T] {
	n := uint64(RoundToPow2(capacity))
	return &SPSC[T]{buffer: make([]T, n), mask: n - 1}
}

// Push adds an element (producer-only). Returns false if full.
func (q *SPSC[T]) Push(elem T) bool {
	tail := q.tail.LoadRelaxed()
	if tail-q.cachedHead > q.mask {
		q.cachedHead = q.head.LoadAcquire()
		if tail-q.cachedHead > q.mask {
			return false
		}
	}
	q.buffer[tail&q.mask] = elem
	q.tail.StoreRelease(tail + 1)
	return true
}

// Pop removes and returns an element (consumer-only). Returns false if
// empty.
func (q *SPSC[T]) Pop() (T, bool) {
	head := q.head.LoadRelaxed()
	if head >= q.cachedTail {
		q.cachedTail = q.tail.LoadAcquire()
		if head >= q.cachedTail {
			var zero T
			return zero, false
		}
	}
	elem := q.buffer[head&q.mask]
	var zero T
	q.buffer[head&q.mask] = zero
	q.head.StoreRelease(head + 1)
	return elem, true
}

// Cap returns the ring's physical capacity.
func (q *SPSC[T]) Cap() int { return int(q.mask + 1) }

// SizeApproximate returns a racy snapshot of the element count; callers
// must treat it as approximate under concurrent Push/Pop.
func (q *SPSC[T]) SizeApproximate() int {
	tail := q.tail.LoadAcquire()
	head := q.head.LoadAcquire()
	if tail < head {
		return 0
	}
	return int(tail - head)
}
