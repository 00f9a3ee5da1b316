// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import (
	"context"
	"fmt"

	"code.hybscloud.com/atomix"
)

// Status is a task's position in its lifecycle (spec §4.E "Task lifecycle").
type Status int32

const (
	StatusNew Status = iota
	StatusQueued
	StatusRunning
	StatusSuspended
	StatusCompleted
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusQueued:
		return "queued"
	case StatusRunning:
		return "running"
	case StatusSuspended:
		return "suspended"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// WaitResult is the outcome of [Task.Wait].
type WaitResult int

const (
	Ready WaitResult = iota
	TimedOut
	Cancelled
)

const deadlineNone = int64(-1 << 63)

// handle is the type-erased part of a Task, shared with children as the
// "current task" context value and as the parent link for cancellation
// inheritance.
type handle struct {
	id       uint64
	parent   *handle
	token    *CancellationToken
	deadline atomix.Int64 // unix nanos, or deadlineNone
	status   atomix.Int32
	done     chan struct{}
	detached atomix.Bool
}

func newHandle(id uint64, parent *handle) *handle {
	h := &handle{id: id, parent: parent, token: NewCancellationToken(), done: make(chan struct{})}
	h.deadline.StoreRelaxed(deadlineNone)
	if parent != nil {
		if d := parent.getDeadline(); !d.IsInfinite() {
			h.deadline.StoreRelaxed(d.t.UnixNano())
		}
		propagateCancel(h, parent)
	}
	h.status.StoreRelease(int32(StatusNew))
	return h
}

// propagateCancel makes a parent's cancellation reach an in-flight child
// (spec §3/§4.E: "A token inherited by child fibers..."). The child keeps
// its own distinct token rather than literally sharing the parent's
// pointer, so RequestCancel on the child never reaches the parent or its
// siblings; a background goroutine forwards only the parent-to-child
// direction, exiting once either side finishes.
func propagateCancel(h, parent *handle) {
	if parent.token.IsRequested() {
		h.token.Request(ReasonParent)
		return
	}
	go func() {
		select {
		case <-parent.token.Done():
			h.token.Request(ReasonParent)
		case <-h.done:
		}
	}()
}

func (h *handle) getDeadline() Deadline {
	v := h.deadline.LoadAcquire()
	if v == deadlineNone {
		return NoDeadline
	}
	return NewDeadline(unixNanoTime(v))
}

func (h *handle) setDeadline(d Deadline) {
	if d.IsInfinite() {
		h.deadline.StoreRelease(deadlineNone)
		return
	}
	h.deadline.StoreRelease(d.t.UnixNano())
}

func (h *handle) status_() Status { return Status(h.status.LoadAcquire()) }

// Task is the handle to a unit of scheduling created by [Spawn].
// It is generic over its result type R (spec §6, Task<R>).
type Task[R any] struct {
	*handle
	result R
	err    error
}

// Wait blocks until the task finishes or deadline passes, whichever comes
// first, and reports which.
func (t *Task[R]) Wait(deadline Deadline) WaitResult {
	timer, stop := deadline.timer()
	defer stop()
	select {
	case <-t.done:
		if t.status_() == StatusCancelled {
			return Cancelled
		}
		return Ready
	case <-timer:
		return TimedOut
	}
}

// Get blocks until the task finishes and returns its result. If the task
// body panicked, Get re-raises the recovered value via panic (the "Task
// exceptions propagate to the awaiter" rule in spec §4.E). If cancellation
// was requested on the task and its body returned a nil error or
// [ErrCancelled], Get returns the zero value and [ErrCancelled]; whatever
// value the body returned is discarded.
func (t *Task[R]) Get() (R, error) {
	<-t.done
	if pv, ok := t.err.(panicError); ok {
		panic(pv.value)
	}
	return t.result, t.err
}

// RequestCancel marks the task's cancellation token Requested(user) and
// wakes it if parked on a suspension point.
func (t *Task[R]) RequestCancel() { t.token.Request(ReasonUser) }

// Detach marks the task as fire-and-forget: an unobserved panic is logged
// instead of being lost, and the owning [Processor] does not wait for
// Get() to be called (spec: "unobserved exceptions on detached tasks are
// logged and suppressed").
func (t *Task[R]) Detach() { t.detached.StoreRelease(true) }

// ID returns the task's scheduler-assigned identifier.
func (t *Task[R]) ID() uint64 { return t.id }

// Status returns the task's current lifecycle state.
func (t *Task[R]) Status() Status { return t.status_() }

// panicError wraps a recovered panic value so it can travel through the
// err field of a generic Task without requiring R to implement error.
type panicError struct{ value any }

func (p panicError) Error() string { return fmt.Sprintf("fiber: task panicked: %v", p.value) }

// ErrCancelled is returned by [Task.Get] when the task finished in
// [StatusCancelled]: its token was requested and its body returned a nil
// error or ErrCancelled itself.
var ErrCancelled = fmt.Errorf("fiber: task was cancelled")

// contextKey is the context.Context key type for the current task handle.
type contextKey struct{}

func withHandle(parent context.Context, h *handle) context.Context {
	return context.WithValue(parent, contextKey{}, h)
}

func handleFrom(ctx context.Context) *handle {
	h, _ := ctx.Value(contextKey{}).(*handle)
	return h
}
