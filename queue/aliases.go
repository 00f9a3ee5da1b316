// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package queue

// This file provides the eight named shape combinations spec §6 calls
// for: {single, multi} producer × {single, multi} consumer ×
// {DynamicSync, None} capacity mode. Each is a thin constructor over
// [New]; the shape itself then picks the internal/ring implementation
// (see newRing).

// NewSpsc builds a single-producer, single-consumer, soft-capacity-bounded queue.
func NewSpsc[T any](capacity int, opts ...Option[T]) *Queue[T] {
	return New[T](capacity, opts...)
}

// NewSpmc builds a single-producer, multi-consumer, soft-capacity-bounded queue.
func NewSpmc[T any](capacity int, opts ...Option[T]) *Queue[T] {
	return New[T](capacity, append([]Option[T]{WithMultiConsumer[T]()}, opts...)...)
}

// NewMpsc builds a multi-producer, single-consumer, soft-capacity-bounded queue.
func NewMpsc[T any](capacity int, opts ...Option[T]) *Queue[T] {
	return New[T](capacity, append([]Option[T]{WithMultiProducer[T]()}, opts...)...)
}

// NewMpmc builds a multi-producer, multi-consumer, soft-capacity-bounded queue.
func NewMpmc[T any](capacity int, opts ...Option[T]) *Queue[T] {
	return New[T](capacity, append([]Option[T]{WithMultiProducer[T](), WithMultiConsumer[T]()}, opts...)...)
}

// NewUnboundedSpsc builds a single-producer, single-consumer queue with
// no soft capacity gating (see [MaxSizeNone]). capacity is still the
// backing ring's fixed physical size: Push never blocks on capacity and
// rejects immediately once that physical size is exceeded, the same as
// PushNoblock. Use [NewIntrusiveMPSC] for storage with no hard limit.
func NewUnboundedSpsc[T any](capacity int, opts ...Option[T]) *Queue[T] {
	return New[T](capacity, append([]Option[T]{WithUnbounded[T]()}, opts...)...)
}

// NewUnboundedSpmc builds a single-producer, multi-consumer queue with no
// soft capacity gating; see [NewUnboundedSpsc] for what "unbounded" means
// here (a hard physical limit, not a blocking soft one).
func NewUnboundedSpmc[T any](capacity int, opts ...Option[T]) *Queue[T] {
	return New[T](capacity, append([]Option[T]{WithUnbounded[T](), WithMultiConsumer[T]()}, opts...)...)
}

// NewUnboundedMpsc builds a multi-producer, single-consumer queue with no
// soft capacity gating; see [NewUnboundedSpsc].
func NewUnboundedMpsc[T any](capacity int, opts ...Option[T]) *Queue[T] {
	return New[T](capacity, append([]Option[T]{WithUnbounded[T](), WithMultiProducer[T]()}, opts...)...)
}

// NewUnboundedMpmc builds a multi-producer, multi-consumer queue with no
// soft capacity gating; see [NewUnboundedSpsc].
func NewUnboundedMpmc[T any](capacity int, opts ...Option[T]) *Queue[T] {
	return New[T](capacity, append([]Option[T]{WithUnbounded[T](), WithMultiProducer[T](), WithMultiConsumer[T]()}, opts...)...)
}
