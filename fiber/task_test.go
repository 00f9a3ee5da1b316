// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"code.hybscloud.com/fibercore/fiber"
)

// =============================================================================
// Task lifecycle
// =============================================================================

func TestSpawnGet(t *testing.T) {
	p := fiber.NewProcessor(fiber.WithThreads(2))
	defer p.Shutdown()

	task := fiber.Spawn(p, context.Background(), func(ctx context.Context) (int, error) {
		return 42, nil
	})
	v, err := task.Get()
	if err != nil {
		t.Fatalf("Get: unexpected error %v", err)
	}
	if v != 42 {
		t.Fatalf("Get: got %d, want 42", v)
	}
	if task.Status() != fiber.StatusCompleted {
		t.Fatalf("Status: got %v, want completed", task.Status())
	}
}

func TestSpawnPropagatesError(t *testing.T) {
	p := fiber.NewProcessor(fiber.WithThreads(1))
	defer p.Shutdown()

	sentinel := errors.New("boom")
	task := fiber.Spawn(p, context.Background(), func(ctx context.Context) (int, error) {
		return 0, sentinel
	})
	_, err := task.Get()
	if !errors.Is(err, sentinel) {
		t.Fatalf("Get err: got %v, want %v", err, sentinel)
	}
}

func TestSpawnPanicPropagatesToGet(t *testing.T) {
	p := fiber.NewProcessor(fiber.WithThreads(1))
	defer p.Shutdown()

	task := fiber.Spawn(p, context.Background(), func(ctx context.Context) (int, error) {
		panic("task exploded")
	})

	defer func() {
		r := recover()
		if r != "task exploded" {
			t.Fatalf("recovered panic: got %v, want %q", r, "task exploded")
		}
	}()
	task.Get()
}

func TestTaskWaitTimesOut(t *testing.T) {
	p := fiber.NewProcessor(fiber.WithThreads(1))
	defer p.Shutdown()

	release := make(chan struct{})
	task := fiber.Spawn(p, context.Background(), func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})
	if r := task.Wait(fiber.After(10 * time.Millisecond)); r != fiber.TimedOut {
		t.Fatalf("Wait: got %v, want TimedOut", r)
	}
	close(release)
	task.Get()
}

func TestTaskRequestCancelObservedByShouldCancel(t *testing.T) {
	p := fiber.NewProcessor(fiber.WithThreads(1))
	defer p.Shutdown()

	started := make(chan struct{})
	seenCancel := make(chan bool, 1)
	task := fiber.Spawn(p, context.Background(), func(ctx context.Context) (int, error) {
		close(started)
		for i := 0; i < 1000; i++ {
			if fiber.ShouldCancel(ctx) {
				seenCancel <- true
				return 0, fiber.ErrCancelled
			}
			fiber.Yield(ctx)
			time.Sleep(time.Millisecond)
		}
		seenCancel <- false
		return 0, nil
	})

	<-started
	task.RequestCancel()
	if !<-seenCancel {
		t.Fatal("task never observed ShouldCancel() becoming true")
	}
	task.Wait(fiber.After(time.Second)) // Status is settled only once the body has returned
	if task.Status() != fiber.StatusCancelled {
		t.Fatalf("Status: got %v, want cancelled", task.Status())
	}
}

func TestTaskCancellationPropagatesToChild(t *testing.T) {
	p := fiber.NewProcessor(fiber.WithThreads(2))
	defer p.Shutdown()

	childStarted := make(chan struct{})
	childSawCancel := make(chan bool, 1)

	outerHandle := fiber.Spawn(p, context.Background(), func(ctx context.Context) (struct{}, error) {
		inner := fiber.Spawn(p, ctx, func(innerCtx context.Context) (int, error) {
			close(childStarted)
			for i := 0; i < 2000; i++ {
				if fiber.ShouldCancel(innerCtx) {
					childSawCancel <- true
					return 0, fiber.ErrCancelled
				}
				time.Sleep(time.Millisecond)
			}
			childSawCancel <- false
			return 0, nil
		})
		inner.Get()
		return struct{}{}, nil
	})

	<-childStarted
	outerHandle.RequestCancel()

	if !<-childSawCancel {
		t.Fatal("child never observed cancellation requested on its parent")
	}
}

func TestTaskSpawnedAfterParentCancelStartsCancelled(t *testing.T) {
	p := fiber.NewProcessor(fiber.WithThreads(2))
	defer p.Shutdown()

	cancelled := make(chan struct{})
	innerResult := make(chan bool, 1)

	outer := fiber.Spawn(p, context.Background(), func(ctx context.Context) (struct{}, error) {
		<-cancelled // wait until RequestCancel below has definitely landed
		// The observation travels over innerResult, not the task result:
		// Get discards the result of a task whose token was requested.
		inner := fiber.Spawn(p, ctx, func(innerCtx context.Context) (bool, error) {
			innerResult <- fiber.ShouldCancel(innerCtx)
			return true, nil
		})
		inner.Get()
		return struct{}{}, nil
	})

	outer.RequestCancel()
	close(cancelled)

	if !<-innerResult {
		t.Fatal("child spawned from an already-cancelled parent should start cancelled")
	}
}

func TestTaskInheritsParentDeadline(t *testing.T) {
	p := fiber.NewProcessor(fiber.WithThreads(2))
	defer p.Shutdown()

	parentDeadline := fiber.After(50 * time.Millisecond)
	outer := fiber.Spawn(p, context.Background(), func(ctx context.Context) (fiber.Deadline, error) {
		fiber.SetDeadline(ctx, parentDeadline)
		inner := fiber.Spawn(p, ctx, func(innerCtx context.Context) (fiber.Deadline, error) {
			return fiber.DeadlineOf(innerCtx), nil
		})
		return inner.Get()
	})
	d, err := outer.Get()
	if err != nil {
		t.Fatalf("Get: unexpected error %v", err)
	}
	if d.IsInfinite() {
		t.Fatal("child task should have inherited a finite deadline from its parent")
	}
}
