// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package engine_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"code.hybscloud.com/fibercore/engine"
	"code.hybscloud.com/fibercore/fiber"
)

// =============================================================================
// SingleConsumerEvent
// =============================================================================

func TestSingleConsumerEventNoLostWakeup(t *testing.T) {
	ev := engine.NewSingleConsumerEvent()
	var ready atomic.Bool

	// Send arrives before WaitUntil is ever called.
	ready.Store(true)
	ev.Send()

	r := ev.WaitUntil(context.Background(), fiber.After(time.Second), ready.Load)
	if r != engine.Acquired {
		t.Fatalf("WaitUntil: got %v, want Acquired", r)
	}
}

func TestSingleConsumerEventWaitUntilTimesOut(t *testing.T) {
	ev := engine.NewSingleConsumerEvent()
	r := ev.WaitUntil(context.Background(), fiber.After(10*time.Millisecond), func() bool { return false })
	if r != engine.TimedOut {
		t.Fatalf("WaitUntil: got %v, want TimedOut", r)
	}
}

func TestSingleConsumerEventWakesOnSend(t *testing.T) {
	ev := engine.NewSingleConsumerEvent()
	var ready atomic.Bool

	done := make(chan engine.AcquireResult, 1)
	go func() {
		done <- ev.WaitUntil(context.Background(), fiber.NoDeadline, ready.Load)
	}()

	time.Sleep(20 * time.Millisecond)
	ready.Store(true)
	ev.Send()

	select {
	case r := <-done:
		if r != engine.Acquired {
			t.Fatalf("WaitUntil: got %v, want Acquired", r)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitUntil never woke after Send")
	}
}
