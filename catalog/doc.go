// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

// Package catalog reads the course content tree: a directory of static
// JSON under database/ with courses, per-module problem lists, problem
// statements, and test-case files.
//
// The same tree serves two consumers. The content server exposes it
// over HTTP via [Repository.Handler], and the CLI reads it through the
// typed accessors ([Repository.Courses], [Repository.Problem], ...).
// The judge fetches test cases from the HTTP side, so the on-disk
// layout is the wire format.
package catalog
