// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package queue

import (
	"sync"

	"code.hybscloud.com/atomix"

	"code.hybscloud.com/fibercore/engine"
	"code.hybscloud.com/fibercore/internal/ring"
)

// ringBuffer is the shape every internal/ring type satisfies; Queue picks
// the concrete implementation that matches Policy's concurrency shape at
// construction time, the way the C++ original dispatches at compile time.
type ringBuffer[T any] interface {
	Push(elem T) bool
	Pop() (T, bool)
	Cap() int
	SizeApproximate() int
}

// Queue is the generic bounded concurrent queue (spec §4.F). Create one
// with [New] and hand out producer/consumer handles with GetProducer,
// GetMultiProducer, GetConsumer, GetMultiConsumer.
type Queue[T any] struct {
	policy Policy[T]
	buf    ringBuffer[T]

	fill     *engine.Semaphore                // filled-slot count; Pop waits on it
	space    *engine.SemaphoreCapacityControl // remaining capacity; Push waits on it under DynamicSync
	spaceSem *engine.Semaphore

	producersAlive atomix.Int64
	consumersAlive atomix.Int64

	mu              sync.Mutex
	consumersGone   bool
	consumersGoneCh chan struct{}
	producersGone   bool
	producersGoneCh chan struct{}
}

// New creates a queue backed by a ring of the given physical capacity.
// Under [MaxSizeDynamicSync] (the default) the soft max size starts out
// equal to capacity; call SetSoftMaxSize to change it.
func New[T any](capacity int, opts ...Option[T]) *Queue[T] {
	var policy Policy[T]
	policy.MaxSize = MaxSizeDynamicSync
	for _, opt := range opts {
		opt(&policy)
	}

	q := &Queue[T]{
		policy:          policy,
		fill:            engine.NewSemaphore(0),
		producersAlive:  atomix.Int64{},
		consumersGoneCh: make(chan struct{}),
		producersGoneCh: make(chan struct{}),
	}
	q.buf = newRing[T](capacity, policy.MultiProducer, policy.MultiConsumer)

	if policy.MaxSize == MaxSizeDynamicSync {
		q.spaceSem = engine.NewSemaphore(int64(capacity))
		q.space = engine.NewSemaphoreCapacityControl(q.spaceSem, int64(capacity))
	}
	return q
}

func newRing[T any](capacity int, multiProducer, multiConsumer bool) ringBuffer[T] {
	switch {
	case multiProducer && multiConsumer:
		return ring.NewMPMC[T](capacity)
	case multiProducer && !multiConsumer:
		return ring.NewMPSC[T](capacity)
	case !multiProducer && multiConsumer:
		return ring.NewSPMC[T](capacity)
	default:
		return ring.NewSPSC[T](capacity)
	}
}

// SetSoftMaxSize changes the live capacity limit. Only valid under
// [MaxSizeDynamicSync]; a no-op under [MaxSizeNone].
func (q *Queue[T]) SetSoftMaxSize(n int64) {
	if q.space != nil {
		q.space.SetCapacity(n)
	}
}

// GetSoftMaxSize returns the current soft limit, or [Unbounded].
func (q *Queue[T]) GetSoftMaxSize() int64 {
	if q.space == nil {
		return Unbounded
	}
	return q.space.GetCapacity()
}

// GetSizeApproximate returns an approximate current element count; exact
// only in the absence of concurrent activity.
func (q *Queue[T]) GetSizeApproximate() int {
	return q.buf.SizeApproximate()
}

func (q *Queue[T]) isConsumersGone() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.consumersGone
}

func (q *Queue[T]) isProducersGone() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.producersGone
}

// markConsumersGone is invoked when the last consumer handle closes. It
// force-wakes every Push waiter (by releasing a very large amount of
// space) rather than Semaphore needing a bespoke "force wake" path: every
// waiter gets Acquired, Push re-checks consumersGone, and returns false.
func (q *Queue[T]) markConsumersGone() {
	q.mu.Lock()
	if q.consumersGone {
		q.mu.Unlock()
		return
	}
	q.consumersGone = true
	close(q.consumersGoneCh)
	q.mu.Unlock()
	if q.spaceSem != nil {
		q.spaceSem.Release(1 << 40)
	}
}

// markProducersGone is invoked when the last producer handle closes. It
// force-wakes every Pop waiter the same way, via the fill semaphore;
// Pop's retry loop re-checks the ring and producersGone to decide between
// draining real elements and returning false.
func (q *Queue[T]) markProducersGone() {
	q.mu.Lock()
	if q.producersGone {
		q.mu.Unlock()
		return
	}
	q.producersGone = true
	close(q.producersGoneCh)
	q.mu.Unlock()
	q.fill.Release(1 << 40)
}

