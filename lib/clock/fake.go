// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake returns a FakeClock frozen at the given time. Time moves only
// when Advance is called; every After, AfterFunc, and NewTicker call
// registers a pending event that fires when the clock passes its
// deadline.
//
// FakeClock is safe for concurrent use.
func Fake(initial time.Time) *FakeClock {
	c := &FakeClock{now: initial}
	c.registered = sync.NewCond(&c.mu)
	return c
}

// FakeClock is a deterministic Clock for tests. AfterFunc callbacks run
// synchronously inside Advance, in deadline order; do not call Advance
// from within a callback.
type FakeClock struct {
	mu         sync.Mutex
	now        time.Time
	events     []*fakeEvent
	registered *sync.Cond
}

// fakeEvent is one pending timer or ticker tick.
type fakeEvent struct {
	deadline time.Time
	ch       chan time.Time // After and Ticker events
	fn       func()         // AfterFunc events
	interval time.Duration  // non-zero for tickers: reschedule after firing
	stopped  bool
	fired    bool
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.events = append(c.events, &fakeEvent{deadline: c.now.Add(d), ch: ch})
	c.registered.Broadcast()
	return ch
}

func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	c.mu.Lock()

	if d <= 0 {
		c.mu.Unlock()
		f()
		return &Timer{stop: func() bool { return false }}
	}

	event := &fakeEvent{deadline: c.now.Add(d), fn: f}
	c.events = append(c.events, event)
	c.registered.Broadcast()
	c.mu.Unlock()

	return &Timer{stop: func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if event.stopped || event.fired {
			return false
		}
		event.stopped = true
		return true
	}}
}

func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	event := &fakeEvent{deadline: c.now.Add(d), ch: ch, interval: d}
	c.events = append(c.events, event)
	c.registered.Broadcast()

	return &Ticker{C: ch, stop: func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		event.stopped = true
	}}
}

// Advance moves the clock forward by d and fires every pending event
// whose deadline falls within the new time, in deadline order. Channel
// sends are non-blocking (a full channel drops the tick, matching
// time.Ticker); AfterFunc callbacks run synchronously in the calling
// goroutine.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	target := c.now
	c.mu.Unlock()

	for {
		due := c.takeDue(target)
		if len(due) == 0 {
			return
		}
		sort.Slice(due, func(i, j int) bool {
			return due[i].deadline.Before(due[j].deadline)
		})
		for _, event := range due {
			if event.fn != nil {
				event.fn()
				continue
			}
			select {
			case event.ch <- target:
			default:
			}
		}
	}
}

// takeDue removes events due at or before target from the pending list,
// rescheduling tickers for their next interval.
func (c *FakeClock) takeDue(target time.Time) []*fakeEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	var due, pending []*fakeEvent
	for _, event := range c.events {
		switch {
		case event.stopped:
		case !event.deadline.After(target):
			due = append(due, event)
		default:
			pending = append(pending, event)
		}
	}
	for _, event := range due {
		if event.interval > 0 {
			event.deadline = event.deadline.Add(event.interval)
			pending = append(pending, event)
		} else {
			event.fired = true
		}
	}
	c.events = pending
	return due
}

// WaitForTimers blocks until at least n events are pending. This closes
// the race between a goroutine registering its deadline and the test
// advancing the clock.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pendingLocked() < n {
		c.registered.Wait()
	}
}

// PendingCount returns the number of active pending events.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked()
}

func (c *FakeClock) pendingLocked() int {
	count := 0
	for _, event := range c.events {
		if !event.stopped {
			count++
		}
	}
	return count
}
