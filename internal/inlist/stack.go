// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package inlist provides intrusive lock-free list primitives used by the
// queue and rcu packages for free-lists and retired-lists: a lock-free
// LIFO stack and a Vyukov-style unbounded MPSC list.
//
// Nodes embed [StackHook] or [MPSCHook] directly rather than being wrapped,
// so pushing a node never allocates. A node must outlive its linkage and
// must only be linked into one list at a time.
package inlist

import "sync/atomic"

// StackHook is the embeddable hook for [Stack]. It holds the single
// lock-free "next" link used for push/pop.
type StackHook[T any] struct {
	next atomic.Pointer[T]
}

// Stack is a lock-free LIFO intrusive stack (a CAS loop on the head).
//
// ABA safety is not provided by tagged pointers: callers (rcu's free-list
// and retired-list) only ever pop a node after having definitively retired it,
// and never reuse a node's memory outside of this stack, so the classic
// pop-then-reuse race does not arise. This matches the teacher/original's
// choice of a plain CAS stack over a tagged-pointer one.
type Stack[T any] struct {
	head atomic.Pointer[T]
	hook func(*T) *StackHook[T]
}

// NewStack creates an empty intrusive stack. hook must return the
// [StackHook] embedded in the node type.
func NewStack[T any](hook func(*T) *StackHook[T]) *Stack[T] {
	return &Stack[T]{hook: hook}
}

// Push links n onto the top of the stack. Lock-free, wait-free on success.
func (s *Stack[T]) Push(n *T) {
	h := s.hook(n)
	for {
		old := s.head.Load()
		h.next.Store(old)
		if s.head.CompareAndSwap(old, n) {
			return
		}
	}
}

// TryPop unlinks and returns the top node, or nil if the stack is empty.
func (s *Stack[T]) TryPop() *T {
	for {
		old := s.head.Load()
		if old == nil {
			return nil
		}
		next := s.hook(old).next.Load()
		if s.head.CompareAndSwap(old, next) {
			return old
		}
	}
}

// DisposeUnsafe traverses the list without synchronization, calling fn on
// every node, then clears the stack. Only safe when no concurrent
// Push/TryPop can occur, i.e. in an owner's destructor/Close.
func (s *Stack[T]) DisposeUnsafe(fn func(*T)) {
	n := s.head.Load()
	s.head.Store(nil)
	for n != nil {
		next := s.hook(n).next.Load()
		fn(n)
		n = next
	}
}
