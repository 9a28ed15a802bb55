// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package judgeclient

import "errors"

var (
	// ErrNotConnected rejects an operation attempted without a
	// connected judge. No network activity happens first.
	ErrNotConnected = errors.New("judgeclient: not connected to judge")

	// ErrCallTimeout reports that a call saw no response within the
	// call timeout.
	ErrCallTimeout = errors.New("judgeclient: call timed out")

	// ErrNoCode reports that no pairing code is stored.
	ErrNoCode = errors.New("judgeclient: no pairing code configured")
)

// RemoteError is an error string the judge returned in place of a
// payload.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return "judge: " + e.Message }
