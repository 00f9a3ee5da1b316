// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package fiber implements the task/fiber scheduler (spec component E):
// a pool of worker goroutines running cooperatively-scheduled tasks, with
// work-stealing run queues and per-task cancellation/deadline propagation.
package fiber

import "time"

// Deadline is an absolute monotonic time point by which a blocking call
// must return, successfully or with a timeout status.
type Deadline struct {
	t       time.Time
	noValue bool
}

// NoDeadline is the infinite deadline: blocking calls never time out.
var NoDeadline = Deadline{noValue: true}

// NewDeadline returns a Deadline at the given absolute time.
func NewDeadline(t time.Time) Deadline { return Deadline{t: t} }

// After returns a Deadline d seconds/nanoseconds from now.
func After(d time.Duration) Deadline { return Deadline{t: time.Now().Add(d)} }

// IsReached reports whether the deadline has passed as of now.
func (d Deadline) IsReached() bool {
	if d.noValue {
		return false
	}
	return !time.Now().Before(d.t)
}

// IsInfinite reports whether this is [NoDeadline].
func (d Deadline) IsInfinite() bool { return d.noValue }

// Time returns the underlying time point; only meaningful if !IsInfinite().
func (d Deadline) Time() time.Time { return d.t }

// Min returns the earlier of two deadlines; an infinite deadline never
// wins over a finite one. Used to combine a caller-supplied deadline with
// a task-inherited one (spec §4.E "Deadlines").
func Min(a, b Deadline) Deadline {
	switch {
	case a.noValue:
		return b
	case b.noValue:
		return a
	case a.t.Before(b.t):
		return a
	default:
		return b
	}
}

// unixNanoTime reconstructs a time.Time from a unix-nanoseconds value, the
// representation used to store a Deadline inside an atomic field.
func unixNanoTime(nanos int64) time.Time {
	return time.Unix(0, nanos)
}

// timer returns a channel that fires at the deadline, and a stop function.
// For an infinite deadline the channel is nil (a nil channel blocks
// forever in a select, which is exactly the desired behavior).
func (d Deadline) timer() (<-chan time.Time, func()) {
	if d.noValue {
		return nil, func() {}
	}
	remaining := time.Until(d.t)
	if remaining <= 0 {
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch, func() {}
	}
	t := time.NewTimer(remaining)
	return t.C, func() { t.Stop() }
}
