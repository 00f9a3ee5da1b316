// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package queue

import (
	"context"

	"code.hybscloud.com/fibercore/engine"
	"code.hybscloud.com/fibercore/fiber"
)

// Consumer is a single-consumer handle onto a [Queue] (spec §4.F
// "Consumer contract"). Obtained via [Queue.GetConsumer].
type Consumer[T any] struct{ q *Queue[T] }

// MultiConsumer is a shared handle any number of goroutines may call Pop
// on concurrently. Obtained via [Queue.GetMultiConsumer].
type MultiConsumer[T any] struct{ q *Queue[T] }

func (q *Queue[T]) GetConsumer() *Consumer[T] {
	if q.policy.MultiConsumer {
		panic(fiber.InvariantViolation{Msg: "GetConsumer called on a multi-consumer queue; use GetMultiConsumer"})
	}
	q.consumersAlive.AddAcqRel(1)
	return &Consumer[T]{q: q}
}

func (q *Queue[T]) GetMultiConsumer() *MultiConsumer[T] {
	if !q.policy.MultiConsumer {
		panic(fiber.InvariantViolation{Msg: "GetMultiConsumer called on a single-consumer queue"})
	}
	q.consumersAlive.AddAcqRel(1)
	return &MultiConsumer[T]{q: q}
}

// Pop blocks until an element is delivered, the queue drains after its
// last producer closed, deadline passes, or the calling task is
// cancelled. Returns false in every case but genuine delivery.
func (c *Consumer[T]) Pop(ctx context.Context, deadline fiber.Deadline) (T, bool) {
	return c.q.pop(ctx, deadline)
}

// PopNoblock is the non-blocking variant.
func (c *Consumer[T]) PopNoblock() (T, bool) { return c.q.popNoblock() }

// Close releases this consumer handle. Once every consumer handle has
// closed, the queue closes for push immediately (spec §4.F).
func (c *Consumer[T]) Close() { c.q.releaseConsumer() }

func (c *MultiConsumer[T]) Pop(ctx context.Context, deadline fiber.Deadline) (T, bool) {
	return c.q.pop(ctx, deadline)
}

func (c *MultiConsumer[T]) PopNoblock() (T, bool) { return c.q.popNoblock() }

func (c *MultiConsumer[T]) Close() { c.q.releaseConsumer() }

func (q *Queue[T]) releaseConsumer() {
	if q.consumersAlive.AddAcqRel(-1) == 0 {
		q.markConsumersGone()
	}
}

// pop consumes one fill permit per ring Pop while producers are alive.
// Once markProducersGone has force-released a large batch of permits the
// fill count no longer tracks the ring's contents, so the producersGone
// branch pops straight from the ring without taking a permit and returns
// false as soon as the ring is empty, never fabricating an element.
func (q *Queue[T]) pop(ctx context.Context, deadline fiber.Deadline) (T, bool) {
	for {
		if q.isProducersGone() {
			if v, ok := q.buf.Pop(); ok {
				if q.space != nil {
					q.spaceSem.Release(q.policy.elementSize(v))
				}
				return v, true
			}
			var zero T
			return zero, false
		}

		r := q.fill.AcquireUntil(ctx, deadline, 1)
		switch r {
		case engine.TimedOut, engine.CancelledResult:
			var zero T
			return zero, false
		}

		if v, ok := q.buf.Pop(); ok {
			if q.space != nil {
				q.spaceSem.Release(q.policy.elementSize(v))
			}
			return v, true
		}
		// A stale permit from a forced wake raced ahead of
		// isProducersGone observing true; loop and the top check will
		// catch it next iteration.
	}
}

func (q *Queue[T]) popNoblock() (T, bool) {
	if !q.fill.TryAcquireFor(1) {
		var zero T
		return zero, false
	}
	v, ok := q.buf.Pop()
	if !ok {
		q.fill.Release(1)
		var zero T
		return zero, false
	}
	if q.space != nil {
		q.spaceSem.Release(q.policy.elementSize(v))
	}
	return v, true
}
