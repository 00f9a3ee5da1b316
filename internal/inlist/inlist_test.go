// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package inlist_test

import (
	"sync"
	"testing"

	"code.hybscloud.com/fibercore/internal/inlist"
)

type stackNode struct {
	hook  inlist.StackHook[stackNode]
	value int
}

func stackHook(n *stackNode) *inlist.StackHook[stackNode] { return &n.hook }

func TestStackPushPopLIFO(t *testing.T) {
	s := inlist.NewStack[stackNode](stackHook)
	if s.TryPop() != nil {
		t.Fatal("TryPop on empty stack: want nil")
	}
	for i := 1; i <= 3; i++ {
		s.Push(&stackNode{value: i})
	}
	for i := 3; i >= 1; i-- {
		n := s.TryPop()
		if n == nil || n.value != i {
			t.Fatalf("TryPop: got %v, want %d", n, i)
		}
	}
	if s.TryPop() != nil {
		t.Fatal("TryPop after drain: want nil")
	}
}

func TestStackConcurrentPushPop(t *testing.T) {
	const n = 5000
	s := inlist.NewStack[stackNode](stackHook)

	var wg sync.WaitGroup
	wg.Add(4)
	for w := 0; w < 4; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < n/4; i++ {
				s.Push(&stackNode{value: i})
			}
		}()
	}
	wg.Wait()

	count := 0
	for s.TryPop() != nil {
		count++
	}
	if count != n {
		t.Fatalf("popped: got %d, want %d", count, n)
	}
}

func TestStackDisposeUnsafe(t *testing.T) {
	s := inlist.NewStack[stackNode](stackHook)
	for i := 0; i < 3; i++ {
		s.Push(&stackNode{value: i})
	}
	seen := 0
	s.DisposeUnsafe(func(*stackNode) { seen++ })
	if seen != 3 {
		t.Fatalf("DisposeUnsafe visited: got %d, want 3", seen)
	}
	if s.TryPop() != nil {
		t.Fatal("TryPop after DisposeUnsafe: want nil")
	}
}

type mpscTestNode struct {
	hook  inlist.MPSCHook[mpscTestNode]
	value int
}

func mpscTestHook(n *mpscTestNode) *inlist.MPSCHook[mpscTestNode] { return &n.hook }

func TestMPSCQueueFIFOOrder(t *testing.T) {
	q := inlist.NewMPSCQueue[mpscTestNode](mpscTestHook)
	if _, status := q.TryDequeue(); status != inlist.Empty {
		t.Fatalf("TryDequeue on empty queue: want Empty, got %v", status)
	}
	for i := 1; i <= 3; i++ {
		q.Enqueue(&mpscTestNode{value: i})
	}
	for i := 1; i <= 3; i++ {
		n, status := q.TryDequeue()
		if status != inlist.Dequeued || n.value != i {
			t.Fatalf("TryDequeue(%d): got (%v, %v)", i, n, status)
		}
	}
	if _, status := q.TryDequeue(); status != inlist.Empty {
		t.Fatalf("TryDequeue after drain: want Empty, got %v", status)
	}
}

func TestMPSCQueueConcurrentProducers(t *testing.T) {
	const producers = 4
	const perProducer = 2000
	q := inlist.NewMPSCQueue[mpscTestNode](mpscTestHook)

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(&mpscTestNode{value: i})
			}
		}()
	}

	count := 0
	done := make(chan struct{})
	go func() {
		for count < producers*perProducer {
			_, status := q.TryDequeue()
			if status == inlist.Dequeued {
				count++
			}
		}
		close(done)
	}()

	wg.Wait()
	<-done
	if count != producers*perProducer {
		t.Fatalf("count: got %d, want %d", count, producers*perProducer)
	}
}
