// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package rcu implements the read-copy-update variable (spec component
// G): lock-free readers synchronised against a writer by a striped read
// indicator (internal/indicator), with three interchangeable garbage
// collection strategies selected via [Traits].
package rcu

import (
	"sync"

	"code.hybscloud.com/fibercore/engine"
	"code.hybscloud.com/fibercore/fiber"
)

// DeleterKind selects how a retired snapshot's T is reclaimed once no
// reader holds it any longer (spec §4.G "Garbage collection traits").
type DeleterKind int

const (
	// SyncDeleterKind destroys retired records inline, under the writer
	// mutex, as part of Commit. Cheapest option for small values with
	// cheap destructors.
	SyncDeleterKind DeleterKind = iota
	// AsyncDeleterKind spawns a detached fiber task per retired record
	// that holds the snapshot alive and polls its indicator until free,
	// then reclaims it. Used for large caches where blocking the writer
	// on reclamation would be unacceptable.
	AsyncDeleterKind
	// BlockingDeleterKind reclaims the same way as SyncDeleterKind; it
	// exists as a distinct trait for callers operating outside the fiber
	// runtime (Commit never itself suspends, so there is nothing
	// additional to block on in this implementation).
	BlockingDeleterKind
)

// Traits selects a Variable's writer mutex and deleter strategy.
type Traits struct {
	// WriterMutex serialises StartWrite/StartWriteEmplace callers. A nil
	// value defaults to a plain *sync.Mutex (the "OS mutex" choice);
	// pass an *engine.Mutex for a coroutine-aware writer mutex that
	// suspends the calling task instead of parking its OS thread.
	WriterMutex sync.Locker
	Deleter     DeleterKind
	// Processor is required when Deleter is AsyncDeleterKind: it is
	// where the detached reclamation tasks run.
	Processor *fiber.Processor
}

// DefaultTraits is SyncDeleterKind with a plain OS mutex.
func DefaultTraits() Traits {
	return Traits{WriterMutex: &sync.Mutex{}, Deleter: SyncDeleterKind}
}

// CoroutineTraits is SyncDeleterKind with a coroutine-aware writer mutex.
func CoroutineTraits() Traits {
	return Traits{WriterMutex: engine.NewMutex(), Deleter: SyncDeleterKind}
}

// AsyncTraits is AsyncDeleterKind, running reclamation tasks on p.
func AsyncTraits(p *fiber.Processor) Traits {
	return Traits{WriterMutex: &sync.Mutex{}, Deleter: AsyncDeleterKind, Processor: p}
}

// BlockingTraits is BlockingDeleterKind with a plain OS mutex, for
// Variables written from outside the fiber runtime.
func BlockingTraits() Traits {
	return Traits{WriterMutex: &sync.Mutex{}, Deleter: BlockingDeleterKind}
}
