// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package inlist

import "sync/atomic"

// MPSCHook is the embeddable hook for [MPSCQueue]: a single "next" link
// written by the producer that extends the tail past this node and read by
// the consumer in TryDequeue.
type MPSCHook[T any] struct {
	next atomic.Pointer[T]
}

// MPSCQueue is a Vyukov-style unbounded intrusive multi-producer
// single-consumer linked queue. Producers never block; capacity bounding,
// if any, is the caller's responsibility (see queue.IntrusiveMPSC).
//
// Enqueue publishes nodes via an atomic exchange of tail followed by a
// store of the previous tail's next link. Between those two steps a
// concurrent Dequeue can observe a tail whose next link is not yet set —
// this is not "empty", it is a producer caught mid-publish, and TryDequeue
// reports it as such so the caller can retry rather than wrongly concluding
// the queue is drained.
type MPSCQueue[T any] struct {
	head atomic.Pointer[T] // consumer-only; always non-nil (stub when empty)
	tail atomic.Pointer[T] // last node published, CAS/exchange target for producers
	stub T
	hook func(*T) *MPSCHook[T]
}

// NewMPSCQueue creates an empty intrusive MPSC queue. hook must return the
// [MPSCHook] embedded in the node type.
func NewMPSCQueue[T any](hook func(*T) *MPSCHook[T]) *MPSCQueue[T] {
	q := &MPSCQueue[T]{hook: hook}
	q.head.Store(&q.stub)
	q.tail.Store(&q.stub)
	return q
}

// Enqueue links n onto the tail. Producers never block.
func (q *MPSCQueue[T]) Enqueue(n *T) {
	q.hook(n).next.Store(nil)
	prev := q.tail.Swap(n)
	q.hook(prev).next.Store(n)
}

// DequeueResult classifies the outcome of [MPSCQueue.TryDequeue].
type DequeueResult int

const (
	// Dequeued reports a node was removed and returned.
	Dequeued DequeueResult = iota
	// Empty reports the queue has no pending nodes.
	Empty
	// Inconsistent reports a producer is between Enqueue's two steps; the
	// caller should retry (typically after a brief spin-wait), per the
	// "TOCTOU" handling in the original MPSC queue this is grounded on.
	Inconsistent
)

// TryDequeue removes and returns the head node (consumer-only).
func (q *MPSCQueue[T]) TryDequeue() (*T, DequeueResult) {
	head := q.head.Load()
	next := q.hook(head).next.Load()

	if head == &q.stub {
		if next == nil {
			return nil, Empty
		}
		q.head.Store(next)
		head = next
		next = q.hook(head).next.Load()
	}

	if next != nil {
		q.head.Store(next)
		return head, Dequeued
	}

	if head == q.tail.Load() {
		q.Enqueue(&q.stub)
		next = q.hook(head).next.Load()
		if next != nil {
			q.head.Store(next)
			return head, Dequeued
		}
	}

	return nil, Inconsistent
}
