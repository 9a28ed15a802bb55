// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for Pepper
// binaries: fatal error reporting to stderr when the structured logger
// may not be initialized, and process exit after an unrecoverable
// error in main().
package process
