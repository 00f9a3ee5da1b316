// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package engine

import (
	"container/list"
	"context"
	"sync"

	"code.hybscloud.com/fibercore/fiber"
)

// ConditionVariable pairs with a [Mutex] the way stdlib sync.Cond pairs
// with a Locker (spec §6), but Wait is cancellable and deadline-aware and
// suspends the calling task rather than parking an OS thread. Unlike
// [SingleConsumerEvent], any number of tasks may Wait concurrently;
// NotifyOne wakes the longest-waiting one, NotifyAll wakes everyone.
type ConditionVariable struct {
	mu      sync.Mutex
	waiters list.List // of *cvWaiter
}

type cvWaiter struct {
	ch chan struct{}
}

// NewConditionVariable returns a ConditionVariable with no waiters.
func NewConditionVariable() *ConditionVariable {
	return &ConditionVariable{}
}

// Wait releases guard, suspends until notified, the deadline passes, or
// the calling task is cancelled, then reacquires guard unconditionally
// before returning, mirroring stdlib sync.Cond.Wait's contract. Callers
// must hold guard locked on entry and re-check their predicate in a loop
// on return, since a notify can be spurious relative to it.
func (cv *ConditionVariable) Wait(ctx context.Context, deadline fiber.Deadline, guard *Mutex) AcquireResult {
	w := &cvWaiter{ch: make(chan struct{}, 1)}
	cv.mu.Lock()
	elem := cv.waiters.PushBack(w)
	cv.mu.Unlock()

	guard.Unlock()
	defer guard.Lock()

	effective := fiber.Min(fiber.DeadlineOf(ctx), deadline)
	timer, stop := effective.timer()
	defer stop()

	var tokenDone <-chan struct{}
	var token *fiber.CancellationToken
	if token = fiber.CancellationTokenFrom(ctx); token != nil {
		tokenDone = token.Done()
	}

	select {
	case <-w.ch:
		return Acquired
	case <-timer:
		if !cv.removeWaiter(elem) {
			return Acquired
		}
		return TimedOut
	case <-tokenDone:
		if !cv.removeWaiter(elem) {
			return Acquired
		}
		token.Acknowledge()
		return CancelledResult
	}
}

func (cv *ConditionVariable) removeWaiter(elem *list.Element) bool {
	cv.mu.Lock()
	defer cv.mu.Unlock()
	for e := cv.waiters.Front(); e != nil; e = e.Next() {
		if e == elem {
			cv.waiters.Remove(e)
			return true
		}
	}
	return false
}

// NotifyOne wakes the longest-waiting task, if any.
func (cv *ConditionVariable) NotifyOne() {
	cv.mu.Lock()
	defer cv.mu.Unlock()
	front := cv.waiters.Front()
	if front == nil {
		return
	}
	cv.waiters.Remove(front)
	w := front.Value.(*cvWaiter)
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

// NotifyAll wakes every currently waiting task.
func (cv *ConditionVariable) NotifyAll() {
	cv.mu.Lock()
	defer cv.mu.Unlock()
	for e := cv.waiters.Front(); e != nil; e = e.Next() {
		w := e.Value.(*cvWaiter)
		select {
		case w.ch <- struct{}{}:
		default:
		}
	}
	cv.waiters.Init()
}
