// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package queue

import (
	"context"

	"code.hybscloud.com/spin"

	"code.hybscloud.com/fibercore/engine"
	"code.hybscloud.com/fibercore/fiber"
)

// Producer is a single-producer handle onto a [Queue] (spec §4.F
// "Producer contract"). Obtained via [Queue.GetProducer].
type Producer[T any] struct{ q *Queue[T] }

// MultiProducer is a shared handle any number of goroutines may call
// Push on concurrently. Obtained via [Queue.GetMultiProducer].
type MultiProducer[T any] struct{ q *Queue[T] }

// GetProducer returns a single-producer handle. Panics if the queue was
// constructed without [WithMultiProducer] and a producer handle is
// outstanding already, and panics on a queue constructed with
// [WithMultiProducer] — callers that need concurrent producers must
// construct the queue with [WithMultiProducer] and use
// [Queue.GetMultiProducer] instead.
func (q *Queue[T]) GetProducer() *Producer[T] {
	if q.policy.MultiProducer {
		panic(fiber.InvariantViolation{Msg: "GetProducer called on a multi-producer queue; use GetMultiProducer"})
	}
	if q.producersAlive.AddAcqRel(1) > 1 {
		q.producersAlive.AddAcqRel(-1)
		panic(fiber.InvariantViolation{Msg: "GetProducer called while a producer handle is outstanding on a single-producer queue"})
	}
	return &Producer[T]{q: q}
}

// GetMultiProducer returns a shared producer handle. Panics if the queue
// was constructed as single-producer.
func (q *Queue[T]) GetMultiProducer() *MultiProducer[T] {
	if !q.policy.MultiProducer {
		panic(fiber.InvariantViolation{Msg: "GetMultiProducer called on a single-producer queue"})
	}
	q.producersAlive.AddAcqRel(1)
	return &MultiProducer[T]{q: q}
}

// Push blocks until value is enqueued, the queue has no more consumers,
// deadline passes, or the calling task is cancelled.
func (p *Producer[T]) Push(ctx context.Context, value T, deadline fiber.Deadline) bool {
	return p.q.push(ctx, value, deadline)
}

// PushNoblock is the non-blocking variant.
func (p *Producer[T]) PushNoblock(value T) bool { return p.q.pushNoblock(value) }

// Close releases this producer handle. Once every producer handle has
// closed, the queue closes for pop once drained (spec §4.F).
func (p *Producer[T]) Close() { p.q.releaseProducer() }

func (p *MultiProducer[T]) Push(ctx context.Context, value T, deadline fiber.Deadline) bool {
	return p.q.push(ctx, value, deadline)
}

func (p *MultiProducer[T]) PushNoblock(value T) bool { return p.q.pushNoblock(value) }

// Close decrements the shared producer refcount.
func (p *MultiProducer[T]) Close() { p.q.releaseProducer() }

func (q *Queue[T]) releaseProducer() {
	if q.producersAlive.AddAcqRel(-1) == 0 {
		q.markProducersGone()
	}
}

// push implements the blocking Push contract for both handle types.
func (q *Queue[T]) push(ctx context.Context, value T, deadline fiber.Deadline) bool {
	if q.isConsumersGone() {
		return false
	}

	if q.space == nil {
		// MaxSizeNone: Push never blocks on capacity (spec §4.F), the
		// same guarantee the real original's NoMaxSizeProducerSide::Push
		// gives by never retrying. There is no space semaphore to wait
		// on, and the backing ring's physical capacity (the constructor
		// argument) is a hard limit, not a soft one to spin against: a
		// full ring rejects immediately, exactly like PushNoblock.
		// Callers that need genuine unbounded growth instead of a fixed
		// array should use NewIntrusiveMPSC, which allocates a node per
		// element rather than filling a backing array.
		if !q.buf.Push(value) {
			return false
		}
		q.fill.Release(1)
		return true
	}

	size := q.policy.elementSize(value)
	r := q.spaceSem.AcquireUntil(ctx, deadline, size)
	switch r {
	case engine.TimedOut, engine.CancelledResult:
		return false
	}
	if q.isConsumersGone() {
		// Woken by markConsumersGone's force-release rather than a
		// genuine pop; do not insert.
		return false
	}

	// The space semaphore already admitted this element; any remaining
	// gap before the ring has a free physical slot is the transient
	// window between a Pop's buf.Pop() and its matching spaceSem.Release
	// (see consumer.go), not a capacity wait, so a short spin here is
	// correct rather than a capacity block.
	wait := spin.Wait{}
	for !q.buf.Push(value) {
		if deadline.IsReached() {
			return false
		}
		if q.isConsumersGone() {
			return false
		}
		wait.Once()
	}
	q.fill.Release(1)
	return true
}

func (q *Queue[T]) pushNoblock(value T) bool {
	if q.isConsumersGone() {
		return false
	}
	if q.space != nil {
		size := q.policy.elementSize(value)
		if !q.spaceSem.TryAcquireFor(size) {
			return false
		}
	}
	if !q.buf.Push(value) {
		if q.space != nil {
			q.spaceSem.Release(q.policy.elementSize(value))
		}
		return false
	}
	q.fill.Release(1)
	return true
}
