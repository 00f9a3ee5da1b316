// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package engine

import "sync"

// SemaphoreCapacityControl manages the configured capacity of a
// [Semaphore] independently of acquires/releases (spec §4.D).
//
// Shrinking capacity never pulls permits away from a task that already
// holds them: it only reduces what's available to future acquires, down
// to zero, never negative. Growing capacity releases the delta, which
// may immediately wake FIFO-eligible waiters.
//
// SetCapacityOverride/RemoveCapacityOverride let an owner force every
// blocked waiter to wake up immediately by overriding capacity high
// enough that every outstanding request is satisfied through the
// ordinary FIFO grant path — no separate "forced wakeup" code path is
// needed in Semaphore itself. (The queue package's close paths get the
// same effect by calling Release on their semaphores directly.)
type SemaphoreCapacityControl struct {
	sem *Semaphore

	mu                  sync.Mutex
	capacity            int64
	overrideActive      bool
	preOverrideCapacity int64
}

// NewSemaphoreCapacityControl wraps sem, whose initial permit count must
// equal capacity.
func NewSemaphoreCapacityControl(sem *Semaphore, capacity int64) *SemaphoreCapacityControl {
	return &SemaphoreCapacityControl{sem: sem, capacity: capacity}
}

// SetCapacity changes the configured capacity to c, releasing or
// reclaiming the difference against the underlying semaphore's permit
// count. A no-op while an override is active; the new value becomes
// effective once [SemaphoreCapacityControl.RemoveCapacityOverride] runs.
func (cc *SemaphoreCapacityControl) SetCapacity(c int64) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.overrideActive {
		cc.preOverrideCapacity = c
		return
	}
	old := cc.capacity
	cc.capacity = c
	cc.applyDelta(c - old)
}

// GetCapacity returns the configured (non-override) capacity.
func (cc *SemaphoreCapacityControl) GetCapacity() int64 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.overrideActive {
		return cc.preOverrideCapacity
	}
	return cc.capacity
}

// SetCapacityOverride temporarily replaces the effective capacity with
// c, remembering the prior configured value so it can be restored later.
// Calling it again while already overridden replaces the override value
// without losing the original pre-override capacity.
func (cc *SemaphoreCapacityControl) SetCapacityOverride(c int64) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if !cc.overrideActive {
		cc.preOverrideCapacity = cc.capacity
		cc.overrideActive = true
	}
	delta := c - cc.capacity
	cc.capacity = c
	cc.applyDelta(delta)
}

// RemoveCapacityOverride restores the capacity configured before the
// most recent SetCapacityOverride. A no-op if no override is active.
func (cc *SemaphoreCapacityControl) RemoveCapacityOverride() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if !cc.overrideActive {
		return
	}
	cc.overrideActive = false
	delta := cc.preOverrideCapacity - cc.capacity
	cc.capacity = cc.preOverrideCapacity
	cc.applyDelta(delta)
}

func (cc *SemaphoreCapacityControl) applyDelta(delta int64) {
	switch {
	case delta > 0:
		cc.sem.Release(delta)
	case delta < 0:
		cc.sem.reduce(-delta)
	}
}
