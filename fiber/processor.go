// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import (
	"context"
	"runtime"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"github.com/rs/zerolog"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"

	"code.hybscloud.com/fibercore/internal/ring"
)

// localQueueCapacity bounds each worker's local run queue (spec component
// F's SPMC ring, reused here as the run queue: Spawn callers are the
// producers, serialized by worker.pushMu; the owner plus any thief is a
// consumer).
const localQueueCapacity = 256

// logger is package-level, like the teacher's zero-configuration style:
// silent (zerolog.Nop) until a host process opts in.
var logger = zerolog.Nop()

// SetLogger configures where fiber logs unobserved panics from detached
// tasks (spec §4.E "Failure semantics").
func SetLogger(l zerolog.Logger) { logger = l }

// Processor is a pool of N worker goroutines running cooperatively
// scheduled tasks (spec component E, "TaskProcessor{threads: N}").
//
// Each worker owns a local run queue and steals from its siblings when
// its own queue is empty, trying the shared injector only after stealing
// finds nothing, which is the
// "work-stealing across N threads" called for in spec §2 — built directly
// on the same FAA ring buffers (component F) the queue package exposes to
// callers, rather than a second bespoke deque implementation.
//
// A task body runs to completion or to a genuine blocking suspension
// point (semaphore/event/queue wait) on whichever worker goroutine
// dequeued it; per spec §4.E "Ordering guarantees", the scheduler makes no
// fairness promise beyond progress, so a worker's being blocked inside one
// task does not stall tasks queued on sibling workers — they remain
// stealable.
type Processor struct {
	workers  []*worker
	injector *ring.MPMC[func()]
	nextID   atomix.Uint64
	submit   atomix.Uint64 // round-robin cursor over workers for Spawn
	group    *errgroup.Group
	shutdown context.Context
	cancel   context.CancelFunc
}

type worker struct {
	idx   int
	local *ring.SPMC[func()]

	// pushMu serializes producer-side access to local. ring.SPMC is
	// documented single-producer-only; Spawn callers round-robin across
	// workers by an incrementing counter, which only guarantees distinct
	// counter values, not distinct workers once concurrent callers
	// outnumber len(workers). Pop (runWorker, steal) stays lock-free:
	// SPMC already allows any number of concurrent consumers.
	pushMu sync.Mutex
}

// Option configures a [Processor] at construction (the teacher's
// functional-builder idiom).
type Option func(*processorConfig)

type processorConfig struct {
	threads int
}

// WithThreads overrides the worker count. Default: the effective
// GOMAXPROCS after applying cgroup-aware detection via automaxprocs.
func WithThreads(n int) Option {
	return func(c *processorConfig) {
		if n > 0 {
			c.threads = n
		}
	}
}

// NewProcessor starts a pool of worker goroutines and returns the handle
// used to submit tasks onto it.
func NewProcessor(opts ...Option) *Processor {
	// automaxprocs adjusts GOMAXPROCS to the container's CPU quota on
	// first call; subsequent calls are cheap no-ops. This is how
	// Processor's default thread count tracks a cgroup CPU limit instead
	// of the host's full core count.
	if _, err := maxprocs.Set(maxprocs.Logger(func(string, ...any) {})); err != nil {
		logger.Debug().Err(err).Msg("fiber: automaxprocs detection failed, falling back to runtime.NumCPU")
	}

	cfg := processorConfig{threads: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.threads < 1 {
		cfg.threads = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)

	p := &Processor{
		injector: ring.NewMPMC[func()](1024),
		group:    g,
		shutdown: gctx,
		cancel:   cancel,
	}
	p.workers = make([]*worker, cfg.threads)
	for i := range p.workers {
		p.workers[i] = &worker{idx: i, local: ring.NewSPMC[func()](localQueueCapacity)}
	}
	for i := range p.workers {
		w := p.workers[i]
		g.Go(func() error {
			p.runWorker(w)
			return nil
		})
	}
	return p
}

// Threads returns the configured worker count.
func (p *Processor) Threads() int { return len(p.workers) }

func (p *Processor) runWorker(w *worker) {
	backoff := iox.Backoff{}
	for {
		select {
		case <-p.shutdown.Done():
			return
		default:
		}

		if fn, ok := w.local.Pop(); ok {
			fn()
			backoff.Reset()
			continue
		}
		if fn, ok := p.steal(w.idx); ok {
			fn()
			backoff.Reset()
			continue
		}
		if fn, ok := p.injector.Pop(); ok {
			fn()
			backoff.Reset()
			continue
		}
		backoff.Wait()
	}
}

// steal scans sibling workers starting just after w's own index, taking
// the first available item. This is opportunistic, not round-robin-fair
// across thieves (spec §9 "Work-stealing is opportunistic").
func (p *Processor) steal(selfIdx int) (func(), bool) {
	n := len(p.workers)
	for i := 1; i < n; i++ {
		victim := p.workers[(selfIdx+i)%n]
		if fn, ok := victim.local.Pop(); ok {
			return fn, true
		}
	}
	return nil, false
}

// Spawn creates a new task running fn on this processor and returns its
// handle (spec §6 "async(processor, fn, args)").
func Spawn[R any](p *Processor, ctx context.Context, fn func(context.Context) (R, error)) *Task[R] {
	parent := handleFrom(ctx)
	h := newHandle(p.nextID.AddAcqRel(1), parent)
	t := &Task[R]{handle: h}

	h.status.StoreRelease(int32(StatusQueued))
	taskCtx := withHandle(ctx, h)

	run := func() {
		h.status.StoreRelease(int32(StatusRunning))
		defer func() {
			if r := recover(); r != nil {
				t.err = panicError{value: r}
				if h.detached.LoadAcquire() {
					logger.Error().
						Uint64("task_id", h.id).
						Interface("panic", r).
						Msg("fiber: unobserved panic in detached task")
				}
			}
			if h.token.IsRequested() && (t.err == nil || t.err == ErrCancelled) {
				var zero R
				t.result = zero
				t.err = ErrCancelled
				h.status.StoreRelease(int32(StatusCancelled))
			} else if h.status_() != StatusCancelled {
				h.status.StoreRelease(int32(StatusCompleted))
			}
			close(h.done)
		}()
		t.result, t.err = fn(taskCtx)
	}

	p.enqueue(run)
	return t
}

// enqueue places run onto a worker's local queue round-robin, falling
// back to the shared injector if that worker's queue is momentarily full.
//
// Concurrent Spawn calls can land on the same worker once callers
// outnumber len(workers), so the Push itself is serialized per worker
// (see worker.pushMu); Pop and stealing are untouched.
func (p *Processor) enqueue(run func()) {
	idx := int(p.submit.AddAcqRel(1)-1) % len(p.workers)
	w := p.workers[idx]
	w.pushMu.Lock()
	ok := w.local.Push(run)
	w.pushMu.Unlock()
	if ok {
		return
	}
	for !p.injector.Push(run) {
		// Injector is a 1024-deep MPMC; a full injector under a bounded
		// worker pool means producers are far outpacing consumption.
		// Spinning briefly here mirrors the ring buffers' own retry
		// discipline rather than silently dropping a task.
		runtime.Gosched()
	}
}

// Shutdown stops the worker goroutines and waits for them: each worker
// finishes the task it is currently running, if any, and then exits. It
// does not request cancellation on any task's token, so a running task
// that never returns keeps Shutdown waiting.
//
// Tasks already queued but not yet picked up by a worker are abandoned in
// place (they are simply never run); callers that need a shutdown to
// drain pending work should arrange that via a queue.Consumer closing
// instead of relying on Processor.Shutdown.
func (p *Processor) Shutdown() error {
	p.cancel()
	return p.group.Wait()
}
