// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
)

// Peer roles. The relay does not validate these; they route envelopes
// within a room so a peer never processes its own signals.
const (
	RoleBrowser = "browser"
	RoleJudge   = "judge"
)

// Relay wire events.
const (
	EventJoin   = "join"
	EventJoined = "joined"
	EventSignal = "signal"
)

// Signal types.
const (
	SignalOffer  = "offer"
	SignalAnswer = "answer"
	SignalICE    = "ice"
)

// Frame is one relay wire message. The relay reads Event and SessionID
// and treats Signal as an opaque payload.
type Frame struct {
	Event     string          `json:"event"`
	SessionID string          `json:"sessionId,omitempty"`
	From      string          `json:"from,omitempty"`
	Signal    json.RawMessage `json:"signal,omitempty"`
}

// Signal is a negotiation payload exchanged between the peers. Exactly
// one of Offer, Answer, or Candidate is set, matching Type.
type Signal struct {
	Type      string                     `json:"type"`
	Offer     *webrtc.SessionDescription `json:"offer,omitempty"`
	Answer    *webrtc.SessionDescription `json:"answer,omitempty"`
	Candidate *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
}

// Envelope is an inbound signal delivered to a peer: the session it
// belongs to, the role that sent it, and the decoded payload.
type Envelope struct {
	SessionID string
	From      string
	Signal    Signal
}
