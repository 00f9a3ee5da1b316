// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ring

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// MPMC is an FAA-based multi-producer multi-consumer bounded ring buffer,
// based on the SCQ (Scalable Circular Queue) algorithm by Nikolaev
// (DISC 2019). Both sides use fetch-and-add to blindly claim positions,
// needing 2n physical slots for capacity n; cycle-based slot validation
// (cycle = position / capacity) gives ABA safety without tags.
type MPMC[T any] struct {
	_         pad
	tail      atomix.Uint64 // producer FAA counter
	_         pad
	head      atomix.Uint64 // consumer FAA counter
	_         pad
	threshold atomix.Int64 // livelock prevention for dequeue
	_         pad
	draining  atomix.Bool // set by Drain
	_         pad
	buffer    []mpmcSlot[T]
	capacity  uint64
	size      uint64
	mask      uint64
}

type mpmcSlot[T any] struct {
	cycle atomix.Uint64
	data  T
	_     slotPad
}

// NewMPMC creates an MPMC ring of the given capacity (rounded up to a
// power of 2).
func NewMPMC[T any](capacity int) *MPMC[T] {
	n := uint64(RoundToPow2(capacity))
	size := n * 2
	q := &MPMC[T]{buffer: make([]mpmcSlot[T], size), capacity: n, size: size, mask: size - 1}
	q.threshold.StoreRelaxed(3*int64(n) - 1)
	for i := uint64(0); i < size; i++ {
		q.buffer[i].cycle.StoreRelaxed(i / n)
	}
	return q
}

// Drain marks the ring as draining: Pop then skips its livelock-threshold
// early returns and reports empty only once it has caught up with tail.
func (q *MPMC[T]) Drain() { q.draining.StoreRelease(true) }

// Push adds an element (safe for any number of producers). Returns false
// if full.
func (q *MPMC[T]) Push(elem T) bool {
	sw := spin.Wait{}
	for {
		tail := q.tail.LoadAcquire()
		head := q.head.LoadAcquire()
		if tail >= head+q.capacity {
			return false
		}

		myTail := q.tail.AddAcqRel(1) - 1
		slot := &q.buffer[myTail&q.mask]
		expectedCycle := myTail / q.capacity
		slotCycle := slot.cycle.LoadAcquire()

		if slotCycle == expectedCycle {
			slot.data = elem
			slot.cycle.StoreRelease(expectedCycle + 1)
			q.threshold.StoreRelaxed(3*int64(q.capacity) - 1)
			return true
		}
		if int64(slotCycle) < int64(expectedCycle) {
			return false
		}
		sw.Once()
	}
}

// Pop removes and returns an element (safe for any number of consumers).
// Returns false if empty.
func (q *MPMC[T]) Pop() (T, bool) {
	if !q.draining.LoadAcquire() && q.threshold.LoadRelaxed() < 0 {
		var zero T
		return zero, false
	}

	sw := spin.Wait{}
	for {
		myHead := q.head.AddAcqRel(1) - 1
		slot := &q.buffer[myHead&q.mask]
		expectedCycle := myHead/q.capacity + 1
		slotCycle := slot.cycle.LoadAcquire()

		if slotCycle == expectedCycle {
			elem := slot.data
			var zero T
			slot.data = zero
			nextEnqCycle := (myHead + q.size) / q.capacity
			slot.cycle.StoreRelease(nextEnqCycle)
			return elem, true
		}

		if int64(slotCycle) < int64(expectedCycle) {
			nextEnqCycle := (myHead + q.size) / q.capacity
			slot.cycle.CompareAndSwapAcqRel(slotCycle, nextEnqCycle)

			tail := q.tail.LoadAcquire()
			if tail <= myHead+1 {
				q.catchup(tail, myHead+1)
				q.threshold.AddAcqRel(-1)
				var zero T
				return zero, false
			}
			if q.threshold.AddAcqRel(-1) <= 0 && !q.draining.LoadAcquire() {
				var zero T
				return zero, false
			}
		}
		sw.Once()
	}
}

func (q *MPMC[T]) catchup(tail, head uint64) {
	for tail < head {
		if q.tail.CompareAndSwapRelaxed(tail, head) {
			return
		}
		tail = q.tail.LoadRelaxed()
		head = q.head.LoadRelaxed()
	}
}

// Cap returns the ring's usable capacity n.
func (q *MPMC[T]) Cap() int { return int(q.capacity) }

// SizeApproximate returns a racy snapshot of the element count.
func (q *MPMC[T]) SizeApproximate() int {
	tail := q.tail.LoadAcquire()
	head := q.head.LoadAcquire()
	if tail < head {
		return 0
	}
	if n := tail - head; n <= q.capacity {
		return int(n)
	}
	return int(q.capacity)
}
