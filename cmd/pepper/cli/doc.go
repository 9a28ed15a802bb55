// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command tree for the pepper CLI:
// subcommand dispatch, pflag parsing, and help output.
package cli
