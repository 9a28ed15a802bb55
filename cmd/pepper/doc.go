// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

// The pepper command is the judge client CLI: pair with a judge
// daemon, run and submit solutions, and browse the course catalog.
package main
