// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package engine

import (
	"context"

	"code.hybscloud.com/fibercore/fiber"
)

// Mutex is a coroutine-aware mutual exclusion lock (spec §6): blocking on
// it suspends the calling task instead of parking an OS thread. Lock and
// Unlock work from any goroutine; only [Mutex.LockUntil] observes a task's
// cancellation and deadline, through the ctx it is given. Built directly
// on [Semaphore] with a single permit.
type Mutex struct {
	sem *Semaphore
}

// NewMutex returns an unlocked Mutex.
func NewMutex() *Mutex {
	return &Mutex{sem: NewSemaphore(1)}
}

// Lock blocks until the mutex is free, with no deadline and no
// cancellation observed (matching the unconditional stdlib sync.Mutex
// contract callers expect from Lock/Unlock pairs guarding a critical
// section). Use [Mutex.LockUntil] to make the wait cancellable.
func (m *Mutex) Lock() {
	m.sem.AcquireUntil(context.Background(), fiber.NoDeadline, 1)
}

// LockUntil blocks until the mutex is free, the deadline passes, or the
// calling task's cancellation token fires.
func (m *Mutex) LockUntil(ctx context.Context, deadline fiber.Deadline) AcquireResult {
	return m.sem.AcquireUntil(ctx, deadline, 1)
}

// TryLock attempts to lock without blocking.
func (m *Mutex) TryLock() bool { return m.sem.TryAcquire() }

// Unlock releases the mutex. Unlocking an already-unlocked Mutex is a
// caller error, same as stdlib sync.Mutex; it is not detected here.
func (m *Mutex) Unlock() { m.sem.Release(1) }
