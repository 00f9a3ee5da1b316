// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package engine provides the cancellable, deadline-aware synchronization
// primitives tasks suspend on (spec components C and D): a counting
// semaphore with dynamic capacity control, a single-consumer event, and
// coroutine-aware Mutex/ConditionVariable wrappers. Every blocking method
// here is a suspension point (spec §4.E, §5): it combines the caller's
// deadline with the calling task's attached deadline via [fiber.Min], and
// races the result against the calling task's cancellation token.
package engine

import (
	"container/list"
	"context"
	"sync"

	"code.hybscloud.com/fibercore/fiber"
)

// AcquireResult is the outcome of a blocking acquire (spec §4.C).
type AcquireResult int

const (
	Acquired AcquireResult = iota
	TimedOut
	CancelledResult
)

// Semaphore is a non-negative counting semaphore whose blocking acquire
// suspends the calling task, is cancellable, and respects deadlines
// (spec §3 "Semaphore", §4.C).
//
// The waiter queue is a plain FIFO (container/list, mirroring the
// original's intrusive wait queue): Release always examines it head-first
// so a later, smaller request can never be granted ahead of an earlier,
// larger one that doesn't yet fit — this is the "no starvation of
// large-n waiters" rule in spec §4.C.
type Semaphore struct {
	mu        sync.Mutex
	remaining int64
	waiters   list.List // of *semWaiter
}

type semWaiter struct {
	need    int64
	granted chan struct{}
}

// NewSemaphore creates a semaphore with the given initial count.
func NewSemaphore(count int64) *Semaphore {
	s := &Semaphore{remaining: count}
	return s
}

// TryAcquire attempts to take 1 permit without blocking.
func (s *Semaphore) TryAcquire() bool { return s.TryAcquireFor(1) }

// TryAcquireFor attempts to take n permits without blocking. Fails if
// there are already waiters queued, even if remaining would cover n,
// preserving FIFO order.
func (s *Semaphore) TryAcquireFor(n int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.waiters.Len() == 0 && s.remaining >= n {
		s.remaining -= n
		return true
	}
	return false
}

// AcquireUntil suspends the calling task until n permits are available,
// the combined deadline passes, or the task's cancellation token fires.
func (s *Semaphore) AcquireUntil(ctx context.Context, deadline fiber.Deadline, n int64) AcquireResult {
	s.mu.Lock()
	if s.waiters.Len() == 0 && s.remaining >= n {
		s.remaining -= n
		s.mu.Unlock()
		return Acquired
	}
	w := &semWaiter{need: n, granted: make(chan struct{})}
	elem := s.waiters.PushBack(w)
	s.mu.Unlock()

	effective := fiber.Min(fiber.DeadlineOf(ctx), deadline)
	timer, stop := effective.timer()
	defer stop()

	var tokenDone <-chan struct{}
	var token *fiber.CancellationToken
	if token = fiber.CancellationTokenFrom(ctx); token != nil {
		tokenDone = token.Done()
	}

	select {
	case <-w.granted:
		return Acquired
	case <-timer:
		s.mu.Lock()
		removed := s.removeWaiterLocked(elem, w)
		s.mu.Unlock()
		if !removed {
			// Already granted concurrently with the timer firing.
			return Acquired
		}
		return TimedOut
	case <-tokenDone:
		s.mu.Lock()
		removed := s.removeWaiterLocked(elem, w)
		s.mu.Unlock()
		if !removed {
			return Acquired
		}
		token.Acknowledge()
		return CancelledResult
	}
}

// removeWaiterLocked removes w from the queue if it has not been granted
// yet. Returns false if w was already granted (the caller lost the race).
func (s *Semaphore) removeWaiterLocked(elem *list.Element, w *semWaiter) bool {
	for e := s.waiters.Front(); e != nil; e = e.Next() {
		if e == elem {
			s.waiters.Remove(e)
			return true
		}
	}
	return false
}

// Release returns n permits and grants them to waiters head-first while
// the head's request fits.
func (s *Semaphore) Release(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remaining += n
	s.grantLocked()
}

// reduce lowers remaining by n, never below zero; the shortfall is simply
// absorbed (a later capacity increase restores it, see
// [SemaphoreCapacityControl]). Does not wake anyone: shrinking can only
// ever make fewer permits available.
func (s *Semaphore) reduce(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remaining -= n
	if s.remaining < 0 {
		s.remaining = 0
	}
}

func (s *Semaphore) grantLocked() {
	for {
		front := s.waiters.Front()
		if front == nil {
			return
		}
		w := front.Value.(*semWaiter)
		if w.need > s.remaining {
			return
		}
		s.remaining -= w.need
		s.waiters.Remove(front)
		close(w.granted)
	}
}

// Remaining returns a snapshot of the available permit count.
func (s *Semaphore) Remaining() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}
