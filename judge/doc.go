// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

// Package judge implements the judge daemon: the process that pairs
// with browsers through the relay, runs submitted code against
// toolchains on its host, and keeps the submission history.
//
// The daemon owns the outer loop (pairing code, signaling with retry,
// one peer at a time). Handler implements the RPC operations and is
// shared between the data-channel path and the plain HTTP fallback.
// SubmissionStore persists verdicts in SQLite; TestCaseSource fetches
// problem test cases from the content server with a local file cache.
package judge
