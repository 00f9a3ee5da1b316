// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package engine

import (
	"context"
	"sync"

	"code.hybscloud.com/fibercore/fiber"
)

// SingleConsumerEvent is a level-triggered, auto-reset wakeup with exactly
// one consumer (spec §4.D "SingleConsumerEvent"). Any number of producers
// may call Send; only the one task that calls WaitUntil is ever woken by
// it. A Send that arrives before WaitUntil is called is not lost: it is
// latched until the first WaitUntil consumes it, which is the
// "no-lost-wakeup" invariant (spec §8 property 4).
type SingleConsumerEvent struct {
	mu      sync.Mutex
	signals uint64 // monotonically increasing send counter
	waitCh  chan struct{}
}

// NewSingleConsumerEvent returns an unset event.
func NewSingleConsumerEvent() *SingleConsumerEvent {
	return &SingleConsumerEvent{waitCh: make(chan struct{}, 1)}
}

// Send latches a wakeup. Non-blocking; safe to call from any number of
// goroutines concurrently, but only ever meant to be waited on by one.
func (e *SingleConsumerEvent) Send() {
	e.mu.Lock()
	e.signals++
	e.mu.Unlock()
	select {
	case e.waitCh <- struct{}{}:
	default:
		// Already has an unconsumed signal buffered; Send is level
		// triggered, not edge counted, so coalescing here is correct.
	}
}

// WaitUntil blocks until pred returns true, a Send arrives and pred is
// re-checked, the deadline passes, or the task's cancellation token
// fires. pred is called with no lock held; callers needing to check
// shared state under a lock should do so inside pred themselves.
func (e *SingleConsumerEvent) WaitUntil(ctx context.Context, deadline fiber.Deadline, pred func() bool) AcquireResult {
	if pred() {
		return Acquired
	}

	effective := fiber.Min(fiber.DeadlineOf(ctx), deadline)
	timer, stop := effective.timer()
	defer stop()

	var tokenDone <-chan struct{}
	var token *fiber.CancellationToken
	if token = fiber.CancellationTokenFrom(ctx); token != nil {
		tokenDone = token.Done()
	}

	for {
		select {
		case <-e.waitCh:
			if pred() {
				return Acquired
			}
			// Spurious relative to this predicate: another waiter's
			// condition, or the state flipped back before we checked.
			// Loop and keep waiting on the same deadline/cancellation.
		case <-timer:
			if pred() {
				return Acquired
			}
			return TimedOut
		case <-tokenDone:
			if pred() {
				return Acquired
			}
			token.Acknowledge()
			return CancelledResult
		}
	}
}

// IsReady reports whether Send has been called at least once since
// construction or the last Reset.
func (e *SingleConsumerEvent) IsReady() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.signals > 0
}

// Reset clears the latched signal count without consuming a pending
// wakeup on waitCh; intended for tests and for producers that want to
// re-arm bookkeeping between logically distinct waits.
func (e *SingleConsumerEvent) Reset() {
	e.mu.Lock()
	e.signals = 0
	e.mu.Unlock()
}
