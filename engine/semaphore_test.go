// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package engine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/fibercore/engine"
	"code.hybscloud.com/fibercore/fiber"
)

// =============================================================================
// Semaphore
// =============================================================================

func TestSemaphoreTryAcquireFor(t *testing.T) {
	sem := engine.NewSemaphore(2)

	if !sem.TryAcquireFor(2) {
		t.Fatal("TryAcquireFor(2) on a fresh 2-permit semaphore should succeed")
	}
	if sem.TryAcquire() {
		t.Fatal("TryAcquire should fail once the semaphore is drained")
	}
	sem.Release(2)
	if sem.Remaining() != 2 {
		t.Fatalf("Remaining: got %d, want 2", sem.Remaining())
	}
}

func TestSemaphoreAcquireUntilBlocksThenGrants(t *testing.T) {
	sem := engine.NewSemaphore(0)
	done := make(chan engine.AcquireResult, 1)
	go func() {
		done <- sem.AcquireUntil(context.Background(), fiber.NoDeadline, 1)
	}()

	select {
	case <-done:
		t.Fatal("AcquireUntil returned before any permit was released")
	case <-time.After(20 * time.Millisecond):
	}

	sem.Release(1)
	select {
	case r := <-done:
		if r != engine.Acquired {
			t.Fatalf("AcquireUntil: got %v, want Acquired", r)
		}
	case <-time.After(time.Second):
		t.Fatal("AcquireUntil never woke after Release")
	}
}

func TestSemaphoreAcquireUntilTimesOut(t *testing.T) {
	sem := engine.NewSemaphore(0)
	r := sem.AcquireUntil(context.Background(), fiber.After(10*time.Millisecond), 1)
	if r != engine.TimedOut {
		t.Fatalf("AcquireUntil: got %v, want TimedOut", r)
	}
}

// TestSemaphoreNoLargeWaiterStarvation checks that Release grants the
// head of the FIFO queue first, even if a later, smaller waiter could be
// satisfied sooner.
func TestSemaphoreNoLargeWaiterStarvation(t *testing.T) {
	sem := engine.NewSemaphore(0)

	var mu sync.Mutex
	var order []string
	wait := func(name string, n int64) {
		r := sem.AcquireUntil(context.Background(), fiber.After(time.Second), n)
		if r != engine.Acquired {
			t.Errorf("%s: got %v, want Acquired", name, r)
		}
		mu.Lock()
		order = append(order, name)
		mu.Unlock()
	}

	go wait("big", 3)
	time.Sleep(20 * time.Millisecond) // ensure big is queued first
	go wait("small", 1)
	time.Sleep(20 * time.Millisecond)

	sem.Release(1) // not enough for "big"; must not let "small" jump ahead
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	if len(order) != 0 {
		t.Fatalf("a 1-permit release satisfied a smaller waiter ahead of an earlier larger one: %v", order)
	}
	mu.Unlock()

	sem.Release(2) // now "big" has its 3 and should go first
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(order) == 0 || order[0] != "big" {
		t.Fatalf("grant order: got %v, want big first", order)
	}
	sem.Release(1) // "small"'s permit, so its wait also ends Acquired
}

func TestSemaphoreAcquireUntilCancelled(t *testing.T) {
	sem := engine.NewSemaphore(0)
	p := fiber.NewProcessor(fiber.WithThreads(2))
	defer p.Shutdown()

	started := make(chan struct{})
	task := fiber.Spawn(p, context.Background(), func(ctx context.Context) (engine.AcquireResult, error) {
		close(started)
		return sem.AcquireUntil(ctx, fiber.NoDeadline, 1), nil
	})

	<-started
	time.Sleep(10 * time.Millisecond) // let the task reach AcquireUntil
	task.RequestCancel()

	if r := task.Wait(fiber.After(time.Second)); r != fiber.Cancelled {
		t.Fatalf("Wait: got %v, want Cancelled", r)
	}
	_, err := task.Get()
	if err != fiber.ErrCancelled {
		t.Fatalf("Get err: got %v, want ErrCancelled", err)
	}
}
