// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package transport

// State tracks a single connection attempt. States advance forward
// only; Closed and Failed are terminal.
type State int32

const (
	// StateNegotiating covers the window between sending or receiving
	// the offer and the data channel opening.
	StateNegotiating State = iota
	// StateOpen means the data channel is open and carrying frames.
	StateOpen
	// StateClosed means the channel was shut down deliberately.
	StateClosed
	// StateFailed means the attempt or an open channel died.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNegotiating:
		return "negotiating"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
