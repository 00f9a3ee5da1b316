// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rcu_test

import (
	"testing"
	"time"

	"code.hybscloud.com/fibercore/fiber"
	"code.hybscloud.com/fibercore/rcu"
)

func TestVariableReadCopy(t *testing.T) {
	v := rcu.New(42)
	if got := v.ReadCopy(); got != 42 {
		t.Fatalf("ReadCopy: got %d, want 42", got)
	}
}

func TestVariableAssignVisibleToNewReaders(t *testing.T) {
	v := rcu.New(1)
	v.Assign(2)
	if got := v.ReadCopy(); got != 2 {
		t.Fatalf("ReadCopy after Assign: got %d, want 2", got)
	}
}

func TestVariableEmplace(t *testing.T) {
	v := rcu.New("a")
	v.Emplace(func() string { return "b" })
	if got := v.ReadCopy(); got != "b" {
		t.Fatalf("ReadCopy after Emplace: got %q, want %q", got, "b")
	}
}

func TestVariableStartWriteCommit(t *testing.T) {
	v := rcu.New(10)
	wp := v.StartWrite()
	*wp.Get() = 20
	wp.Commit()
	if got := v.ReadCopy(); got != 20 {
		t.Fatalf("ReadCopy after Commit: got %d, want 20", got)
	}
}

func TestVariableDiscardDoesNotPublish(t *testing.T) {
	v := rcu.New(10)
	wp := v.StartWrite()
	*wp.Get() = 999
	wp.Discard()
	if got := v.ReadCopy(); got != 10 {
		t.Fatalf("ReadCopy after Discard: got %d, want 10 (unchanged)", got)
	}
}

func TestVariableCommitTwicePanics(t *testing.T) {
	v := rcu.New(1)
	wp := v.StartWrite()
	wp.Commit()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("second Commit: want panic, got none")
		}
		if _, ok := r.(fiber.InvariantViolation); !ok {
			t.Fatalf("second Commit: want fiber.InvariantViolation, got %T", r)
		}
	}()
	wp.Commit()
}

func TestVariableDiscardAfterCommitPanics(t *testing.T) {
	v := rcu.New(1)
	wp := v.StartWrite()
	wp.Commit()
	defer func() {
		if recover() == nil {
			t.Fatal("Discard after Commit: want panic, got none")
		}
	}()
	wp.Discard()
}

// TestVariableReaderSurvivesConcurrentWriter proves a ReadablePtr taken
// before a Commit still observes the old value after the writer commits a
// new one, and that the old snapshot becomes reclaimable once Closed.
func TestVariableReaderSurvivesConcurrentWriter(t *testing.T) {
	v := rcu.New(1)
	rp := v.Read()
	if got := *rp.Get(); got != 1 {
		t.Fatalf("Read before Commit: got %d, want 1", got)
	}

	v.Assign(2)

	if got := *rp.Get(); got != 1 {
		t.Fatalf("pinned reader after Commit: got %d, want 1 (old snapshot)", got)
	}
	if got := v.ReadCopy(); got != 2 {
		t.Fatalf("new Read after Commit: got %d, want 2", got)
	}

	rp.Close()
	v.Cleanup()
	if got := v.ReadCopy(); got != 2 {
		t.Fatalf("ReadCopy after Cleanup: got %d, want 2", got)
	}
}

func TestVariableSyncDeleterReclaimsImmediately(t *testing.T) {
	v := rcu.New(1, rcu.DefaultTraits())
	for i := 2; i <= 5; i++ {
		v.Assign(i)
	}
	if got := v.ReadCopy(); got != 5 {
		t.Fatalf("ReadCopy: got %d, want 5", got)
	}
	v.Cleanup()
}

func TestVariableBlockingDeleterReclaimsImmediately(t *testing.T) {
	v := rcu.New(1, rcu.BlockingTraits())
	v.Assign(2)
	if got := v.ReadCopy(); got != 2 {
		t.Fatalf("ReadCopy: got %d, want 2", got)
	}
	v.Cleanup()
}

func TestVariableAsyncDeleterReclaimsEventually(t *testing.T) {
	p := fiber.NewProcessor(fiber.WithThreads(2))
	v := rcu.New(1, rcu.AsyncTraits(p))

	v.Assign(2)
	v.Assign(3)

	if got := v.ReadCopy(); got != 3 {
		t.Fatalf("ReadCopy: got %d, want 3", got)
	}

	// Cleanup waits for every outstanding async reclamation task before
	// asserting the current record is free, so this must succeed
	// regardless of how long the detached tasks took to notice the old
	// records had no readers left.
	done := make(chan struct{})
	go func() {
		v.Cleanup()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Cleanup with AsyncDeleterKind never returned")
	}
}

func TestVariableCleanupPanicsIfCurrentStillRead(t *testing.T) {
	v := rcu.New(1)
	rp := v.Read()
	defer rp.Close()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Cleanup with live reader on current: want panic, got none")
		}
		if _, ok := r.(fiber.InvariantViolation); !ok {
			t.Fatalf("want fiber.InvariantViolation, got %T", r)
		}
	}()
	v.Cleanup()
}

func TestVariableCoroutineTraitsUsesEngineMutex(t *testing.T) {
	v := rcu.New(1, rcu.CoroutineTraits())
	v.Assign(2)
	if got := v.ReadCopy(); got != 2 {
		t.Fatalf("ReadCopy: got %d, want 2", got)
	}
}
