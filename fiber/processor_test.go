// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"code.hybscloud.com/fibercore/fiber"
)

// =============================================================================
// Processor
// =============================================================================

func TestProcessorThreadsDefaultsPositive(t *testing.T) {
	p := fiber.NewProcessor()
	defer p.Shutdown()
	if p.Threads() < 1 {
		t.Fatalf("Threads: got %d, want >= 1", p.Threads())
	}
}

func TestProcessorRunsManyTasksConcurrently(t *testing.T) {
	p := fiber.NewProcessor(fiber.WithThreads(4))
	defer p.Shutdown()

	const n = 200
	var completed atomic.Int64
	tasks := make([]*fiber.Task[int], n)
	for i := range n {
		i := i
		tasks[i] = fiber.Spawn(p, context.Background(), func(ctx context.Context) (int, error) {
			completed.Add(1)
			return i, nil
		})
	}
	for i, task := range tasks {
		v, err := task.Get()
		if err != nil {
			t.Fatalf("task %d: unexpected error %v", i, err)
		}
		if v != i {
			t.Fatalf("task %d: got %d", i, v)
		}
	}
	if got := completed.Load(); got != n {
		t.Fatalf("completed: got %d, want %d", got, n)
	}
}

// TestProcessorConcurrentSpawnFromManyGoroutines spawns from far more
// goroutines than the processor has worker threads, all at once, so that
// round-robin enqueue indices are guaranteed to collide on the same
// worker concurrently. This exercises the worker-local Push serialization
// rather than only ever spawning sequentially from a single goroutine.
func TestProcessorConcurrentSpawnFromManyGoroutines(t *testing.T) {
	p := fiber.NewProcessor(fiber.WithThreads(2))
	defer p.Shutdown()

	const callers = 64
	const perCaller = 50
	var completed atomic.Int64
	var wg sync.WaitGroup
	wg.Add(callers)
	for c := 0; c < callers; c++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perCaller; i++ {
				task := fiber.Spawn(p, context.Background(), func(ctx context.Context) (int, error) {
					completed.Add(1)
					return 1, nil
				})
				if _, err := task.Get(); err != nil {
					t.Errorf("task: unexpected error %v", err)
				}
			}
		}()
	}
	wg.Wait()

	if got, want := completed.Load(), int64(callers*perCaller); got != want {
		t.Fatalf("completed: got %d, want %d", got, want)
	}
}

// TestProcessorBlockedWorkerDoesNotStallSiblings checks that one worker
// parked inside a long-blocking task does not prevent tasks queued on
// other workers from making progress, the work-stealing property spec §9
// calls out explicitly.
func TestProcessorBlockedWorkerDoesNotStallSiblings(t *testing.T) {
	p := fiber.NewProcessor(fiber.WithThreads(2))
	defer p.Shutdown()

	block := make(chan struct{})
	blocker := fiber.Spawn(p, context.Background(), func(ctx context.Context) (int, error) {
		<-block
		return 0, nil
	})

	other := fiber.Spawn(p, context.Background(), func(ctx context.Context) (int, error) {
		return 7, nil
	})

	if r := other.Wait(fiber.After(time.Second)); r != fiber.Ready {
		t.Fatalf("other.Wait: got %v, want Ready (sibling task stalled behind blocked worker)", r)
	}
	v, err := other.Get()
	if err != nil {
		t.Fatalf("other: unexpected error %v", err)
	}
	if v != 7 {
		t.Fatalf("other: got %d, want 7", v)
	}
	close(block)
	blocker.Get()
}
