// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

// InvariantViolation is panicked for API misuse that no status return
// can express cleanly (double-consumer on a single-consumer handle, a
// second Commit on an rcu write, and similar programmer errors) — the
// "Fatal, aborts" row of the error handling design, as distinct from
// [ErrCancelled] and a deadline timeout, both of which are ordinary
// return values.
type InvariantViolation struct{ Msg string }

func (e InvariantViolation) Error() string { return "fiber: invariant violation: " + e.Msg }
