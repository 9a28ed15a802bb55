// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

// Package signaling carries WebRTC session negotiation between a Pepper
// client and a judge through a public relay.
//
// The two peers never address each other directly: both join a relay
// room named by the pairing code, and every signal published into the
// room is rebroadcast to the other member. The relay ([Relay]) is a dumb
// pipe — it tracks room membership and forwards envelopes verbatim,
// never inspecting the signal payload. [Channel] is the peer-side
// connection: it dials the relay over a websocket, performs the
// join/joined handshake within a bounded window, and exposes inbound
// envelopes addressed to the other role on a channel.
//
// Wire format is JSON text frames:
//
//	{"event":"join","sessionId":"AB12CD34"}
//	{"event":"joined","sessionId":"AB12CD34"}
//	{"event":"signal","sessionId":"AB12CD34","from":"browser","signal":{...}}
//
// Signal payloads keep the shapes the judge protocol defines:
// {"type":"offer","offer":{...}}, {"type":"answer","answer":{...}}, and
// {"type":"ice","candidate":{...}} for trickle ICE.
//
// The relay enforces no room-size limit and does not authenticate the
// "browser" and "judge" roles; possession of the pairing code is the
// trust boundary. A room with more than two members has signals
// broadcast to all of them.
package signaling
