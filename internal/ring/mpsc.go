// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ring

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// MPSC is an FAA-based multi-producer single-consumer bounded ring buffer.
// Producers use fetch-and-add to blindly claim positions (SCQ-style),
// which needs 2n physical slots for capacity n but scales better under
// contention than a CAS-based producer path.
type MPSC[T any] struct {
	_        pad
	head     atomix.Uint64 // consumer-owned index; producers only read it
	_        pad
	tail     atomix.Uint64 // producer FAA counter
	_        pad
	draining atomix.Bool // set by Drain
	_        pad
	buffer   []mpscSlot[T]
	capacity uint64 // n, usable capacity
	size     uint64 // 2n, physical slots
	mask     uint64
}

type mpscSlot[T any] struct {
	cycle atomix.Uint64
	data  T
	_     slotPad
}

// NewMPSC creates an MPSC ring of the given capacity (rounded up to a
// power of 2).
func NewMPSC[T any](capacity int) *MPSC[T] {
	n := uint64(RoundToPow2(capacity))
	size := n * 2
	q := &MPSC[T]{buffer: make([]mpscSlot[T], size), capacity: n, size: size, mask: size - 1}
	for i := uint64(0); i < size; i++ {
		q.buffer[i].cycle.StoreRelaxed(i / n)
	}
	return q
}

// Drain marks the ring as draining. This ring's Pop does not read the
// flag: it reports empty only when the slot at head is unpublished, so a
// consumer drains whatever was pushed with or without Drain. It is the
// caller's responsibility to ensure no further Push happens afterwards.
func (q *MPSC[T]) Drain() { q.draining.StoreRelease(true) }

// Push adds an element (safe for any number of producers). Returns false
// if full.
func (q *MPSC[T]) Push(elem T) bool {
	sw := spin.Wait{}
	for {
		tail := q.tail.LoadAcquire()
		head := q.head.LoadRelaxed()
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
			return true
		}
		if int64(slotCycle) < int64(expectedCycle) {
			return false
		}
		sw.Once()
	}
}

// Pop removes and returns an element (single consumer only). Returns
// false if empty.
func (q *MPSC[T]) Pop() (T, bool) {
	head := q.head.LoadRelaxed()
	cycle := head / q.capacity
	slot := &q.buffer[head&q.mask]
	slotCycle := slot.cycle.LoadAcquire()

	if slotCycle != cycle+1 {
		var zero T
		return zero, false
	}
	elem := slot.data
	var zero T
	slot.data = zero
	nextEnqCycle := (head + q.size) / q.capacity
	slot.cycle.StoreRelease(nextEnqCycle)
	q.head.StoreRelaxed(head + 1)
	return elem, true
}

// Cap returns the ring's usable capacity n.
func (q *MPSC[T]) Cap() int { return int(q.capacity) }

// SizeApproximate returns a racy snapshot of the element count.
func (q *MPSC[T]) SizeApproximate() int {
	tail := q.tail.LoadAcquire()
	head := q.head.LoadRelaxed()
	if tail < head {
		return 0
	}
	if n := tail - head; n <= q.capacity {
		return int(n)
	}
	return int(q.capacity)
}
