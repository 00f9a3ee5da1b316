// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rcu

import (
	"context"
	"sync"
	"sync/atomic"

	"code.hybscloud.com/spin"
	"github.com/rs/zerolog"

	"code.hybscloud.com/fibercore/fiber"
	"code.hybscloud.com/fibercore/internal/indicator"
	"code.hybscloud.com/fibercore/internal/inlist"
)

// logger is package-level, matching fiber's zero-configuration default.
var logger = zerolog.Nop()

// SetLogger replaces rcu's package logger. No code in this package writes
// to it; AsyncDeleterKind reclamation tasks have no failure path that logs.
func SetLogger(l zerolog.Logger) { logger = l }

// snapshotRecord is spec's SnapshotRecord<T> (§3, §4.G): a value slot, a
// striped read indicator proving no reader still holds it, and two
// mutually-exclusive intrusive linkages (free-list, retired-list) — a
// record is in at most one of those lists at a time, matching the
// "IntrusiveHook" invariant in §3.
type snapshotRecord[T any] struct {
	value    T
	hasValue bool

	indicator indicator.Indicator

	freeHook    inlist.StackHook[snapshotRecord[T]]
	retiredHook inlist.StackHook[snapshotRecord[T]]
}

func freeHookOf[T any](r *snapshotRecord[T]) *inlist.StackHook[snapshotRecord[T]]    { return &r.freeHook }
func retiredHookOf[T any](r *snapshotRecord[T]) *inlist.StackHook[snapshotRecord[T]] { return &r.retiredHook }

// Variable holds read-mostly data of type T, readable lock-free from any
// goroutine and written under a serialising mutex (spec §4.G).
type Variable[T any] struct {
	traits Traits

	current atomic.Pointer[snapshotRecord[T]]

	freeList    *inlist.Stack[snapshotRecord[T]]
	retiredList *inlist.Stack[snapshotRecord[T]]

	asyncWG sync.WaitGroup
}

// New creates a Variable holding initial, using [DefaultTraits] unless
// traits is supplied.
func New[T any](initial T, traits ...Traits) *Variable[T] {
	tr := DefaultTraits()
	if len(traits) > 0 {
		tr = traits[0]
	}
	if tr.WriterMutex == nil {
		tr.WriterMutex = &sync.Mutex{}
	}
	v := &Variable[T]{
		traits:      tr,
		freeList:    inlist.NewStack[snapshotRecord[T]](freeHookOf[T]),
		retiredList: inlist.NewStack[snapshotRecord[T]](retiredHookOf[T]),
	}
	rec := &snapshotRecord[T]{value: initial, hasValue: true}
	v.current.Store(rec)
	return v
}

// ReadablePtr is a live handle onto the snapshot that was current when
// [Variable.Read] returned (spec §4.G "Reader protocol").
type ReadablePtr[T any] struct {
	rec *snapshotRecord[T]
	tok indicator.LockToken
}

// Read returns a handle pinning the current snapshot alive until Close.
// Readers may call this from any goroutine, fiber or not.
func (v *Variable[T]) Read() *ReadablePtr[T] {
	for {
		rec := v.current.Load()
		tok := rec.indicator.Lock()
		if v.current.Load() == rec {
			return &ReadablePtr[T]{rec: rec, tok: tok}
		}
		// A writer swapped current between the load and the lock; this
		// record may already be on its way to reclamation. Unlock and
		// retry against whatever is current now.
		rec.indicator.Unlock(tok)
	}
}

// Get returns a pointer to the pinned snapshot's value, valid until Close.
func (r *ReadablePtr[T]) Get() *T { return &r.rec.value }

// Close releases the reader's hold on the snapshot.
func (r *ReadablePtr[T]) Close() { r.rec.indicator.Unlock(r.tok) }

// ReadCopy is a convenience for the common case of wanting a value copy
// rather than a pinned pointer.
func (v *Variable[T]) ReadCopy() T {
	rp := v.Read()
	defer rp.Close()
	return rp.rec.value
}

// WritablePtr is the in-progress write started by StartWrite or
// StartWriteEmplace (spec §4.G "Writer protocol").
type WritablePtr[T any] struct {
	v         *Variable[T]
	rec       *snapshotRecord[T]
	committed bool
}

// StartWrite acquires the writer mutex and returns a handle to a new
// record pre-populated with a copy of the current value, ready for
// in-place mutation via Get before Commit.
func (v *Variable[T]) StartWrite() *WritablePtr[T] {
	v.traits.WriterMutex.Lock()
	rec := v.allocRecord()
	rec.value = v.current.Load().value
	rec.hasValue = true
	return &WritablePtr[T]{v: v, rec: rec}
}

// StartWriteEmplace acquires the writer mutex and builds the new
// record's value from build() instead of copying the current one.
func (v *Variable[T]) StartWriteEmplace(build func() T) *WritablePtr[T] {
	v.traits.WriterMutex.Lock()
	rec := v.allocRecord()
	rec.value = build()
	rec.hasValue = true
	return &WritablePtr[T]{v: v, rec: rec}
}

// Get returns a pointer to the in-progress value.
func (w *WritablePtr[T]) Get() *T { return &w.rec.value }

// Commit publishes the in-progress record as current, retires the old
// one per the Variable's deleter trait, and releases the writer mutex.
// Calling Commit (or Discard) twice panics.
func (w *WritablePtr[T]) Commit() {
	if w.committed {
		panic(fiber.InvariantViolation{Msg: "rcu: Commit called twice on the same WritablePtr"})
	}
	w.committed = true
	old := w.v.current.Swap(w.rec)
	w.v.retire(old)
	w.v.traits.WriterMutex.Unlock()
}

// Discard abandons the in-progress write, returning its record to the
// free-list unpublished, and releases the writer mutex.
func (w *WritablePtr[T]) Discard() {
	if w.committed {
		panic(fiber.InvariantViolation{Msg: "rcu: Discard called after Commit"})
	}
	w.committed = true
	var zero T
	w.rec.value = zero
	w.rec.hasValue = false
	w.v.freeList.Push(w.rec)
	w.v.traits.WriterMutex.Unlock()
}

// Assign is StartWrite + set + Commit in one call.
func (v *Variable[T]) Assign(value T) {
	wp := v.StartWrite()
	*wp.Get() = value
	wp.Commit()
}

// Emplace is StartWriteEmplace + Commit in one call.
func (v *Variable[T]) Emplace(build func() T) {
	wp := v.StartWriteEmplace(build)
	wp.Commit()
}

func (v *Variable[T]) allocRecord() *snapshotRecord[T] {
	if rec := v.freeList.TryPop(); rec != nil {
		return rec
	}
	return &snapshotRecord[T]{}
}

// retire hands old to the configured deleter strategy.
func (v *Variable[T]) retire(old *snapshotRecord[T]) {
	switch v.traits.Deleter {
	case AsyncDeleterKind:
		v.retireAsync(old)
	default: // SyncDeleterKind, BlockingDeleterKind
		v.retiredList.Push(old)
		v.scanRetired()
	}
}

// scanRetired is ScanRetiredList (spec §4.G): issue the heavy fence
// every retired record's reclamation test synchronises against, then
// drain the retired stack, keeping anything not yet free by pushing it
// back. Safe to call from multiple goroutines concurrently, since
// inlist.Stack's Push/TryPop already are; the Sync/Blocking path only
// ever calls it from inside Commit, serialised by the writer mutex.
func (v *Variable[T]) scanRetired() {
	var stillRetired []*snapshotRecord[T]
	for {
		rec := v.retiredList.TryPop()
		if rec == nil {
			break
		}
		if rec.indicator.IsFree() {
			var zero T
			rec.value = zero
			rec.hasValue = false
			v.freeList.Push(rec)
		} else {
			stillRetired = append(stillRetired, rec)
		}
	}
	for _, rec := range stillRetired {
		v.retiredList.Push(rec)
	}
}

// retireAsync spawns a detached task that holds rec alive (the "wait
// token" from spec §4.G) and polls its indicator until free, then
// reclaims it directly rather than via the shared retired-list scan.
func (v *Variable[T]) retireAsync(rec *snapshotRecord[T]) {
	v.asyncWG.Add(1)
	task := fiber.Spawn(v.traits.Processor, context.Background(), func(ctx context.Context) (struct{}, error) {
		defer v.asyncWG.Done()
		wait := spin.Wait{}
		for !rec.indicator.IsFree() {
			wait.Once()
		}
		var zero T
		rec.value = zero
		rec.hasValue = false
		v.freeList.Push(rec)
		return struct{}{}, nil
	})
	task.Detach()
}

// Cleanup waits for any outstanding AsyncDeleterKind reclamation tasks,
// reclaims remaining retired records, and asserts the current record has
// no live readers before releasing every record it holds. Call this once
// a Variable is no longer in use; there is no finalizer.
func (v *Variable[T]) Cleanup() {
	if v.traits.Deleter == AsyncDeleterKind {
		v.asyncWG.Wait()
	}
	v.scanRetired()
	cur := v.current.Load()
	if !cur.indicator.IsFree() {
		panic(fiber.InvariantViolation{Msg: "rcu: Cleanup called while a reader still holds the current snapshot"})
	}
	v.freeList.DisposeUnsafe(func(*snapshotRecord[T]) {})
	v.retiredList.DisposeUnsafe(func(*snapshotRecord[T]) {})
}
