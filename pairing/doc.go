// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

// Package pairing manages the 8-character code that binds a Pepper
// client session to one local judge process.
//
// The code is alphanumeric, case-normalized to uppercase, and doubles as
// the signaling room key and transport session id. [Normalize] validates
// user input (separators such as dashes and spaces are stripped, but a
// code that does not reduce to exactly 8 alphanumerics is rejected, never
// truncated). [Store] persists one code in a file so the client can
// reconnect across restarts and the judge keeps a stable identity.
//
// Display form is XXXX-XXXX via [Format], matching what the judge prints
// at startup for the user to transcribe.
package pairing
