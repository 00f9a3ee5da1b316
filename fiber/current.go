// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import (
	"context"
	"runtime"
)

// This file implements the spec's "current_task::" static accessors
// (§6). The C++ original reaches them via thread-local storage because a
// coroutine's stack is pinned to whichever OS thread is currently running
// it. Go has no public goroutine-local storage, and task bodies here are
// plain `func(context.Context) (R, error)` values, so the idiomatic
// rendering threads the task handle explicitly through ctx instead of
// reaching for a package-level/goroutine-keyed map.

// CancellationTokenFrom returns the calling task's cancellation token, or nil
// if ctx was not produced by this scheduler (e.g. called from outside any
// task body).
func CancellationTokenFrom(ctx context.Context) *CancellationToken {
	if h := handleFrom(ctx); h != nil {
		return h.token
	}
	return nil
}

// ShouldCancel is the advisory, non-suspending check from spec §4.E point
// 5: callers are expected to consult it and return early, but it never
// itself blocks or switches tasks.
func ShouldCancel(ctx context.Context) bool {
	if h := handleFrom(ctx); h != nil {
		return h.token.IsRequested()
	}
	return false
}

// SetDeadline attaches a deadline to the calling task; subsequent blocking
// primitives combine it with any caller-supplied deadline via [Min].
func SetDeadline(ctx context.Context, d Deadline) {
	if h := handleFrom(ctx); h != nil {
		h.setDeadline(d)
	}
}

// DeadlineOf returns the calling task's attached deadline, or
// [NoDeadline] if ctx carries no task handle.
func DeadlineOf(ctx context.Context) Deadline {
	if h := handleFrom(ctx); h != nil {
		return h.getDeadline()
	}
	return NoDeadline
}

// Yield is the explicit cooperative suspension point (spec §4.E point 4).
// Task bodies here run as ordinary goroutines, so there is no user-space
// stack to switch; Yield hands control back to the Go runtime scheduler,
// which is free to run other goroutines (including other tasks sharing
// the same P) before resuming this one.
func Yield(ctx context.Context) {
	runtime.Gosched()
}

// TaskIDFrom returns the calling task's scheduler-assigned id, or 0 if
// ctx carries no task handle.
func TaskIDFrom(ctx context.Context) uint64 {
	if h := handleFrom(ctx); h != nil {
		return h.id
	}
	return 0
}
