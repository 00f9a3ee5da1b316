// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package queue

import (
	"context"
	"sync"

	"code.hybscloud.com/atomix"

	"code.hybscloud.com/fibercore/engine"
	"code.hybscloud.com/fibercore/fiber"
	"code.hybscloud.com/fibercore/internal/inlist"
)

// IntrusiveMPSC is the specialised intrusive MPSC queue (spec §4.F
// "Specialised intrusive MPSC"): one node allocated per element outside
// any fixed backing array, for callers with large or already
// heap-owned T where the generic ring-backed [Queue] would force an
// extra copy into its array slots. Built directly on
// [inlist.MPSCQueue] with a [engine.SingleConsumerEvent] for consumer
// wakeups, exactly as the original describes.
type IntrusiveMPSC[T any] struct {
	list     *inlist.MPSCQueue[mpscNode[T]]
	nonempty *engine.SingleConsumerEvent
	size     atomix.Int64

	space    *engine.SemaphoreCapacityControl
	spaceSem *engine.Semaphore

	producersAlive atomix.Int64
	consumerTaken  atomix.Bool

	mu              sync.Mutex
	consumerGone    bool
	consumerGoneCh  chan struct{}
	producersGone   bool
	producersGoneCh chan struct{}
}

type mpscNode[T any] struct {
	hook  inlist.MPSCHook[mpscNode[T]]
	value T
}

func mpscHook[T any](n *mpscNode[T]) *inlist.MPSCHook[mpscNode[T]] { return &n.hook }

// NewIntrusiveMPSC creates the queue. capacity <= 0 means genuinely
// unbounded: Push never blocks on capacity. capacity > 0 installs a
// [engine.SemaphoreCapacityControl] gate, the "capacity semaphore" spec
// §4.F calls for.
func NewIntrusiveMPSC[T any](capacity int) *IntrusiveMPSC[T] {
	q := &IntrusiveMPSC[T]{
		list:            inlist.NewMPSCQueue[mpscNode[T]](mpscHook[T]),
		nonempty:        engine.NewSingleConsumerEvent(),
		consumerGoneCh:  make(chan struct{}),
		producersGoneCh: make(chan struct{}),
	}
	if capacity > 0 {
		q.spaceSem = engine.NewSemaphore(int64(capacity))
		q.space = engine.NewSemaphoreCapacityControl(q.spaceSem, int64(capacity))
	}
	return q
}

// IntrusiveProducer is a shared multi-producer handle.
type IntrusiveProducer[T any] struct{ q *IntrusiveMPSC[T] }

// IntrusiveConsumer is the single-consumer handle.
type IntrusiveConsumer[T any] struct{ q *IntrusiveMPSC[T] }

func (q *IntrusiveMPSC[T]) GetProducer() *IntrusiveProducer[T] {
	q.producersAlive.AddAcqRel(1)
	return &IntrusiveProducer[T]{q: q}
}

func (q *IntrusiveMPSC[T]) GetConsumer() *IntrusiveConsumer[T] {
	if !q.consumerTaken.CompareAndSwapAcqRel(false, true) {
		panic(fiber.InvariantViolation{Msg: "GetConsumer called twice on an IntrusiveMPSC"})
	}
	return &IntrusiveConsumer[T]{q: q}
}

func (p *IntrusiveProducer[T]) Push(ctx context.Context, value T, deadline fiber.Deadline) bool {
	return p.q.push(ctx, value, deadline)
}

func (p *IntrusiveProducer[T]) PushNoblock(value T) bool { return p.q.pushNoblock(value) }

func (p *IntrusiveProducer[T]) Close() {
	if p.q.producersAlive.AddAcqRel(-1) == 0 {
		p.q.markProducersGone()
	}
}

func (c *IntrusiveConsumer[T]) Pop(ctx context.Context, deadline fiber.Deadline) (T, bool) {
	return c.q.pop(ctx, deadline)
}

func (c *IntrusiveConsumer[T]) PopNoblock() (T, bool) { return c.q.popNoblock() }

func (c *IntrusiveConsumer[T]) Close() { c.q.markConsumerGone() }

func (q *IntrusiveMPSC[T]) isConsumerGone() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.consumerGone
}

func (q *IntrusiveMPSC[T]) isProducersGone() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.producersGone
}

func (q *IntrusiveMPSC[T]) markConsumerGone() {
	q.mu.Lock()
	if q.consumerGone {
		q.mu.Unlock()
		return
	}
	q.consumerGone = true
	close(q.consumerGoneCh)
	q.mu.Unlock()
	if q.spaceSem != nil {
		q.spaceSem.Release(1 << 40)
	}
}

func (q *IntrusiveMPSC[T]) markProducersGone() {
	q.mu.Lock()
	if q.producersGone {
		q.mu.Unlock()
		return
	}
	q.producersGone = true
	close(q.producersGoneCh)
	q.mu.Unlock()
	q.nonempty.Send()
}

func (q *IntrusiveMPSC[T]) push(ctx context.Context, value T, deadline fiber.Deadline) bool {
	if q.isConsumerGone() {
		return false
	}
	if q.space != nil {
		r := q.spaceSem.AcquireUntil(ctx, deadline, 1)
		switch r {
		case engine.TimedOut, engine.CancelledResult:
			return false
		}
		if q.isConsumerGone() {
			return false
		}
	}
	n := &mpscNode[T]{value: value}
	q.list.Enqueue(n)
	q.size.AddAcqRel(1)
	q.nonempty.Send()
	return true
}

func (q *IntrusiveMPSC[T]) pushNoblock(value T) bool {
	if q.isConsumerGone() {
		return false
	}
	if q.space != nil && !q.spaceSem.TryAcquire() {
		return false
	}
	n := &mpscNode[T]{value: value}
	q.list.Enqueue(n)
	q.size.AddAcqRel(1)
	q.nonempty.Send()
	return true
}

func (q *IntrusiveMPSC[T]) pop(ctx context.Context, deadline fiber.Deadline) (T, bool) {
	for {
		n, status := q.list.TryDequeue()
		switch status {
		case inlist.Dequeued:
			q.size.AddAcqRel(-1)
			if q.space != nil {
				q.spaceSem.Release(1)
			}
			return n.value, true
		case inlist.Inconsistent:
			// A producer is mid-Enqueue; its next-pointer publish
			// hasn't landed yet. Retry immediately rather than
			// reporting Empty.
			continue
		default: // inlist.Empty
			if q.isProducersGone() {
				var zero T
				return zero, false
			}
			r := q.nonempty.WaitUntil(ctx, deadline, func() bool {
				return q.size.LoadAcquire() > 0 || q.isProducersGone()
			})
			switch r {
			case engine.TimedOut, engine.CancelledResult:
				var zero T
				return zero, false
			}
		}
	}
}

func (q *IntrusiveMPSC[T]) popNoblock() (T, bool) {
	n, status := q.list.TryDequeue()
	if status != inlist.Dequeued {
		var zero T
		return zero, false
	}
	q.size.AddAcqRel(-1)
	if q.space != nil {
		q.spaceSem.Release(1)
	}
	return n.value, true
}
