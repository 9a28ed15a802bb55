// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport establishes the WebRTC data channel that carries
// judge RPC traffic between a browser session and a judge daemon.
//
// The two sides play fixed roles. The browser side calls Dial: it
// creates the peer connection, opens the "judge" data channel, and
// sends an offer through an already-joined signaling channel. The
// judge side runs an Acceptor: it waits for offers, answers them, and
// hands back the inbound data channel once it opens.
//
// ICE candidates trickle through the signaling channel in both
// directions for as long as the attempt lives. Candidates that arrive
// before the remote description are held and applied once it is set;
// candidates that fail to apply are logged and otherwise ignored.
//
// A PeerChannel is a message-oriented pipe. Send writes one frame,
// Messages yields inbound frames in arrival order, and Done fires when
// the channel or the underlying peer connection dies for any reason.
package transport
