// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package engine_test

import (
	"context"
	"testing"

	"code.hybscloud.com/fibercore/engine"
	"code.hybscloud.com/fibercore/fiber"
)

// =============================================================================
// SemaphoreCapacityControl
// =============================================================================

func TestCapacityControlGrow(t *testing.T) {
	sem := engine.NewSemaphore(1)
	cc := engine.NewSemaphoreCapacityControl(sem, 1)

	if !sem.TryAcquire() {
		t.Fatal("TryAcquire on fresh 1-permit semaphore should succeed")
	}
	if sem.TryAcquire() {
		t.Fatal("semaphore should be drained")
	}

	cc.SetCapacity(3)
	if sem.Remaining() != 2 {
		t.Fatalf("Remaining after growing capacity by 2: got %d, want 2", sem.Remaining())
	}
}

func TestCapacityControlShrinkNeverNegative(t *testing.T) {
	sem := engine.NewSemaphore(2)
	cc := engine.NewSemaphoreCapacityControl(sem, 2)

	cc.SetCapacity(0)
	if sem.Remaining() != 0 {
		t.Fatalf("Remaining after shrinking to 0: got %d, want 0", sem.Remaining())
	}

	// Growing back to the original capacity must restore the permits
	// the shrink absorbed.
	cc.SetCapacity(2)
	if sem.Remaining() != 2 {
		t.Fatalf("Remaining after restoring capacity: got %d, want 2", sem.Remaining())
	}
}

func TestCapacityControlOverrideForceReleasesWaiters(t *testing.T) {
	sem := engine.NewSemaphore(0)
	cc := engine.NewSemaphoreCapacityControl(sem, 0)

	done := make(chan engine.AcquireResult, 3)
	for range 3 {
		go func() {
			done <- sem.AcquireUntil(context.Background(), fiber.NoDeadline, 1)
		}()
	}

	cc.SetCapacityOverride(3)
	for range 3 {
		if r := <-done; r != engine.Acquired {
			t.Fatalf("AcquireUntil under override: got %v, want Acquired", r)
		}
	}

	cc.RemoveCapacityOverride()
	if sem.Remaining() != 0 {
		t.Fatalf("Remaining after removing override: got %d, want 0", sem.Remaining())
	}
}
