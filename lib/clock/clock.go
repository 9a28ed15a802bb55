// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the time operations Pepper components depend on.
// Anything that waits on a deadline or polls on an interval should hold
// a Clock instead of calling the time package directly, so that tests
// can drive it deterministically.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once
	// duration d elapses. If d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time

	// AfterFunc waits for duration d, then calls f in its own
	// goroutine (synchronously during Advance on the fake clock).
	// The returned Timer cancels the pending call with Stop.
	AfterFunc(d time.Duration, f func()) *Timer

	// NewTicker returns a Ticker delivering ticks on C at the given
	// interval. Panics if d <= 0.
	NewTicker(d time.Duration) *Ticker
}

// Timer is a scheduled one-shot event created by AfterFunc.
type Timer struct {
	stop func() bool
}

// Stop prevents the timer from firing. Returns true if the call stopped
// the timer, false if it already fired or was stopped.
func (t *Timer) Stop() bool { return t.stop() }

// Ticker delivers periodic ticks on C. Call Stop to release it; Stop
// does not close C.
//
// C has capacity 1, matching time.Ticker: a slow consumer drops ticks
// rather than queueing them.
type Ticker struct {
	C    <-chan time.Time
	stop func()
}

// Stop turns off the ticker. No ticks are delivered after Stop returns.
func (t *Ticker) Stop() { t.stop() }
