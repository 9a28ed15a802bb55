// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

// Package judgeclient is the browser-side client for a paired judge.
//
// Client owns the connection lifecycle: it derives the single
// disconnected/connecting/connected/error status from signaling and
// transport events, reconnects when the pairing code changes, and
// publishes status updates to subscribers. RPC failures stay local to
// the calling operation and never change the shared status.
//
// Correlator matches responses to requests by the "_msgId" the judge
// echoes. Ids are stamped from a monotonically increasing counter
// immediately before transmission, so response order never matters.
// A request that gets no response times out; a response arriving after
// that, or arriving twice, is a no-op.
//
// HTTPClient is the fallback for judges reachable over plain HTTP
// instead of a data channel.
package judgeclient
