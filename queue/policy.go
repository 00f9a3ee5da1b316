// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package queue implements the bounded concurrent queue family (spec
// component F): a single generic queue parameterised by a Policy that
// picks which wait-free/lock-free ring from internal/ring backs it
// (SPSC/SPMC/MPSC/MPMC), plus a dedicated intrusive, genuinely unbounded
// MPSC built on internal/inlist for callers that want allocation
// amortised per element instead of a fixed backing array.
//
// Blocking is layered on top of the lock-free rings using two
// engine.Semaphores: one counting filled slots (what Pop waits on), one
// counting remaining capacity under DynamicSync mode (what Push waits
// on) — the queue's own state stays lock-free; only this accounting
// layer uses engine's suspension points, matching spec §5's
// "Shared-resource policy".
package queue

// MaxSizeMode selects how (or whether) Push blocks on capacity.
type MaxSizeMode int

const (
	// MaxSizeNone disables soft-capacity gating: Push never waits on a
	// space semaphore and SetSoftMaxSize is a no-op. The ring's
	// constructor capacity is still a hard physical limit, so a full
	// ring makes Push reject immediately (like PushNoblock) rather than
	// block — never a spin-retry against a caller-imposed soft limit,
	// the bounded queue's behavior. Callers that need storage with no
	// hard limit at all should use NewIntrusiveMPSC instead.
	MaxSizeNone MaxSizeMode = iota
	// MaxSizeDynamicSync tracks a live, adjustable soft limit; Push
	// blocks once it is reached.
	MaxSizeDynamicSync
)

// Unbounded is the sentinel soft max size for [MaxSizeNone] queues.
const Unbounded = -1

// Policy configures the shape and capacity accounting of a [Queue].
type Policy[T any] struct {
	MultiProducer bool
	MultiConsumer bool
	MaxSize       MaxSizeMode
	// ElementSize contributes to the cumulative used-capacity counter
	// under MaxSizeDynamicSync; nil means every element costs 1 (the
	// element-count queue). A value's size must not change while it is
	// queued.
	ElementSize func(T) int64
}

func (p Policy[T]) elementSize(v T) int64 {
	if p.ElementSize == nil {
		return 1
	}
	return p.ElementSize(v)
}

// Option configures a [Queue] at construction.
type Option[T any] func(*Policy[T])

// WithMultiProducer marks the queue as having more than one producer.
func WithMultiProducer[T any]() Option[T] {
	return func(p *Policy[T]) { p.MultiProducer = true }
}

// WithMultiConsumer marks the queue as having more than one consumer.
func WithMultiConsumer[T any]() Option[T] {
	return func(p *Policy[T]) { p.MultiConsumer = true }
}

// WithUnbounded disables soft-capacity blocking (MaxSizeNone).
func WithUnbounded[T any]() Option[T] {
	return func(p *Policy[T]) { p.MaxSize = MaxSizeNone }
}

// WithElementSize installs the byte/weight functor for capacity
// accounting under MaxSizeDynamicSync.
func WithElementSize[T any](f func(T) int64) Option[T] {
	return func(p *Policy[T]) { p.ElementSize = f }
}
