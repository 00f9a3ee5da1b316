// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import "code.hybscloud.com/atomix"

// CancelReason classifies why a [CancellationToken] was set (spec §3).
type CancelReason int32

const (
	// ReasonNone is the zero value: no cancellation requested.
	ReasonNone CancelReason = iota
	ReasonUser
	ReasonDeadline
	ReasonShutdown
	ReasonOverload
	ReasonParent
)

func (r CancelReason) String() string {
	switch r {
	case ReasonUser:
		return "user"
	case ReasonDeadline:
		return "deadline"
	case ReasonShutdown:
		return "shutdown"
	case ReasonOverload:
		return "overload"
	case ReasonParent:
		return "parent"
	default:
		return "none"
	}
}

// tokenState is the tri-state of a CancellationToken.
type tokenState int32

const (
	stateNotRequested tokenState = iota
	stateRequested
	stateAcknowledged
)

// CancellationToken is a per-task tri-state flag, observed cooperatively at
// suspension points (spec §3, §4.E). Every task gets its own token, but a
// parent's cancellation is forwarded to every in-flight child's token as
// [ReasonParent] (see newHandle's propagateCancel), giving the same
// observable "inherited from parent" behavior the spec describes without
// two unrelated tasks ever sharing one token's state: cancelling a child
// never reaches its parent or siblings, only the parent-to-child direction
// is forwarded.
type CancellationToken struct {
	state  atomix.Int32
	reason atomix.Int32

	wake   atomix.Bool // set true once, closes wakeCh exactly once
	wakeCh chan struct{}
}

// NewCancellationToken returns a fresh, unrequested token.
func NewCancellationToken() *CancellationToken {
	return &CancellationToken{wakeCh: make(chan struct{})}
}

// IsRequested reports whether cancellation has been requested (requested
// or already acknowledged).
func (t *CancellationToken) IsRequested() bool {
	return tokenState(t.state.LoadAcquire()) != stateNotRequested
}

// Reason returns the reason cancellation was requested for, or
// [ReasonNone] if it never was.
func (t *CancellationToken) Reason() CancelReason {
	return CancelReason(t.reason.LoadAcquire())
}

// Request marks the token Requested(reason) if it was NotRequested, and
// wakes anything parked on [CancellationToken.Done]. Idempotent: a second
// Request call is a no-op (the first reason sticks).
func (t *CancellationToken) Request(reason CancelReason) {
	if t.state.CompareAndSwapAcqRel(int32(stateNotRequested), int32(stateRequested)) {
		t.reason.StoreRelease(int32(reason))
		if t.wake.CompareAndSwapAcqRel(false, true) {
			close(t.wakeCh)
		}
	}
}

// Acknowledge transitions Requested -> Acknowledged. Suspension points
// call this once they have reported Cancelled back to their caller, so
// that callers suppressing propagation can still observe that the token
// fired (spec §3: "A cancellation reason is ... cooperative").
func (t *CancellationToken) Acknowledge() {
	t.state.CompareAndSwapAcqRel(int32(stateRequested), int32(stateAcknowledged))
}

// Done returns a channel that closes the moment Request is first called.
// Suspension points select on this alongside deadlines and data-readiness
// channels.
func (t *CancellationToken) Done() <-chan struct{} {
	return t.wakeCh
}
