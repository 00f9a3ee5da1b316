// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package indicator provides a striped hazard-pointer-style read indicator:
// a small, fixed array of padded atomic counters that a writer can query to
// prove no reader is still inside a critical section, without readers ever
// taking a lock or allocating a per-reader slot.
package indicator

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

// stripeCount is the number of independent counters. More stripes reduce
// false contention between unrelated readers at the cost of more memory and
// a slower IsFree scan; the teacher's ring buffers use one cache line
// per hot field, so we follow the same cache-line-per-stripe shape here.
const stripeCount = 8

type stripe struct {
	count atomix.Int64
	_     [64 - 8]byte // cache-line pad, avoids false sharing between stripes
}

// Indicator is a striped read indicator (spec §3, §4.B).
//
// Lock/Unlock are the hot, per-reader path and are wait-free. IsFree is the
// cold, per-writer path: it is allowed to be comparatively expensive.
type Indicator struct {
	stripes [stripeCount]stripe
}

// LockToken identifies the stripe a reader incremented, so Unlock can
// decrement the matching counter.
type LockToken int

// Lock increments one stripe, chosen from a cheap per-goroutine hash, and
// returns the token Unlock needs. The increment is paired with
// [FenceLight]: on the fast path this is a plain acquire-release atomic op,
// which the Go memory model already treats as visible to a subsequent
// sequentially-consistent operation on the writer side — the substitution
// explicitly permitted by spec §4.B when true asymmetric fences are
// unavailable.
func (ind *Indicator) Lock() LockToken {
	i := stripeIndex()
	ind.stripes[i].count.AddAcqRel(1)
	FenceLight()
	return LockToken(i)
}

// Unlock decrements the stripe chosen by the matching Lock call.
func (ind *Indicator) Unlock(tok LockToken) {
	ind.stripes[tok].count.AddAcqRel(-1)
}

// IsFree reports whether every stripe currently reads zero, i.e. no Lock
// call is outstanding without a matching Unlock. Issues [FenceHeavy] before
// reading, per spec §4.B.
func (ind *Indicator) IsFree() bool {
	FenceHeavy()
	var sum int64
	for i := range ind.stripes {
		sum += ind.stripes[i].count.LoadAcquire()
	}
	return sum == 0
}

// stripeIndex derives a cheap, thread-local-ish stripe index. A goroutine
// has no thread-local storage, so a fast per-call source (the stack
// pointer of a local variable, perturbed across calls via the scheduler
// already shuffling goroutines across Ms) is used instead; collisions only
// cost extra writer-side contention, never correctness.
func stripeIndex() int {
	var x int
	h := uintptr(unsafe.Pointer(&x))
	return int((h >> 4) % stripeCount)
}
