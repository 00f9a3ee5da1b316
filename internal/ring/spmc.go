// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ring

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// SPMC is an FAA-based single-producer multi-consumer bounded ring buffer.
// Consumers use fetch-and-add to blindly claim positions (SCQ-style),
// requiring 2n physical slots for capacity n.
type SPMC[T any] struct {
	_         pad
	head      atomix.Uint64 // consumer FAA counter
	_         pad
	tail      atomix.Uint64 // advanced by Push; Pop's catchup also moves it up to head
	_         pad
	threshold atomix.Int64 // livelock prevention for racing consumers
	_         pad
	buffer    []spmcSlot[T]
	capacity  uint64
	size      uint64
	mask      uint64
}

type spmcSlot[T any] struct {
	cycle atomix.Uint64
	data  T
	_     slotPad
}

// NewSPMC creates an SPMC ring of the given capacity (rounded up to a
// power of 2).
func NewSPMC[T any](capacity int) *SPMC[T] {
	n := uint64(RoundToPow2(capacity))
	size := n * 2
	q := &SPMC[T]{buffer: make([]spmcSlot[T], size), capacity: n, size: size, mask: size - 1}
	q.threshold.StoreRelaxed(3*int64(n) - 1)
	for i := uint64(0); i < size; i++ {
		q.buffer[i].cycle.StoreRelaxed(i / n)
	}
	return q
}

// Push adds an element (single producer only). Returns false if full.
func (q *SPMC[T]) Push(elem T) bool {
	tail := q.tail.LoadRelaxed()
	head := q.head.LoadAcquire()
	if tail >= head+q.capacity {
		return false
	}

	cycle := tail / q.capacity
	slot := &q.buffer[tail&q.mask]
	slotCycle := slot.cycle.LoadAcquire()
	if slotCycle != cycle {
		return false
	}

	slot.data = elem
	slot.cycle.StoreRelease(cycle + 1)
	q.tail.StoreRelaxed(tail + 1)
	q.threshold.StoreRelaxed(3*int64(q.capacity) - 1)
	return true
}

// Pop removes and returns an element (safe for any number of consumers).
// Returns false if empty.
func (q *SPMC[T]) Pop() (T, bool) {
	if q.threshold.LoadRelaxed() < 0 {
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

			tail := q.tail.LoadRelaxed()
			if tail <= myHead+1 {
				q.catchup(tail, myHead+1)
				q.threshold.AddAcqRel(-1)
				var zero T
				return zero, false
			}
			if q.threshold.AddAcqRel(-1) <= 0 {
				var zero T
				return zero, false
			}
		}
		sw.Once()
	}
}

func (q *SPMC[T]) catchup(tail, head uint64) {
	for tail < head {
		if q.tail.CompareAndSwapRelaxed(tail, head) {
			return
		}
		tail = q.tail.LoadRelaxed()
		head = q.head.LoadRelaxed()
	}
}

// Cap returns the ring's usable capacity n.
func (q *SPMC[T]) Cap() int { return int(q.capacity) }

// SizeApproximate returns a racy snapshot of the element count.
func (q *SPMC[T]) SizeApproximate() int {
	tail := q.tail.LoadRelaxed()
	head := q.head.LoadAcquire()
	if tail < head {
		return 0
	}
	if n := tail - head; n <= q.capacity {
		return int(n)
	}
	return int(q.capacity)
}
