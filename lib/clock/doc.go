// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Production code accepts a Clock parameter instead of calling time.Now,
// time.After, time.AfterFunc, or time.NewTicker directly. Real() provides
// standard library behavior; Fake() provides a deterministic clock that
// advances only when Advance is called.
//
// The RPC correlator, the peer transport, and the judge's reconnect loop
// all take their deadlines from a Clock, so timeout behavior is tested by
// advancing a fake clock rather than sleeping:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	correlator := NewCorrelator(channel, WithClock(c))
//	// ... issue a call in a goroutine ...
//	c.WaitForTimers(1)     // the call registered its deadline
//	c.Advance(callTimeout) // deterministically fires it
package clock
