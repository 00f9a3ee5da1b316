// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package queue

// BytesSized is implemented by element types whose queued weight is
// their byte length rather than 1 (spec §4.F "byte-bounded variant").
type BytesSized interface{ Len() int }

// NewByteBounded builds a multi-producer, multi-consumer queue whose
// capacity accounting is in bytes (via T.Len()) instead of element
// count — the equivalent of the C++ original's StringStreamQueue built
// from ContainerQueuePolicy.
func NewByteBounded[T BytesSized](capacity int, opts ...Option[T]) *Queue[T] {
	sized := func(v T) int64 { return int64(v.Len()) }
	return New[T](capacity, append([]Option[T]{
		WithMultiProducer[T](),
		WithMultiConsumer[T](),
		WithElementSize[T](sized),
	}, opts...)...)
}

// Bytes is a ready-made BytesSized wrapper for []byte payloads, since
// []byte itself cannot carry a Len method.
type Bytes []byte

func (b Bytes) Len() int { return len(b) }
