// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func testRelayServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := httptest.NewServer(NewRelay(logger))
	t.Cleanup(server.Close)
	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// dialAndJoin connects a raw websocket to the relay and completes the
// join handshake for the given session.
func dialAndJoin(t *testing.T, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	if err != nil {
		t.Fatalf("dialing relay: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	join, _ := json.Marshal(Frame{Event: EventJoin, SessionID: sessionID})
	if err := conn.WriteMessage(websocket.TextMessage, join); err != nil {
		t.Fatalf("sending join: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading join ack: %v", err)
	}
	var ack Frame
	if err := json.Unmarshal(payload, &ack); err != nil {
		t.Fatalf("decoding join ack: %v", err)
	}
	if ack.Event != EventJoined || ack.SessionID != sessionID {
		t.Fatalf("join ack = %+v, want joined %s", ack, sessionID)
	}
	return conn
}

func sendSignal(t *testing.T, conn *websocket.Conn, sessionID, from, payload string) {
	t.Helper()
	frame, _ := json.Marshal(Frame{
		Event:     EventSignal,
		SessionID: sessionID,
		From:      from,
		Signal:    json.RawMessage(payload),
	})
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("sending signal: %v", err)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading frame: %v", err)
	}
	var frame Frame
	if err := json.Unmarshal(payload, &frame); err != nil {
		t.Fatalf("decoding frame: %v", err)
	}
	return frame
}

// expectSilence asserts that no frame arrives on conn within the window.
func expectSilence(t *testing.T, conn *websocket.Conn, window time.Duration) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(window))
	if _, payload, err := conn.ReadMessage(); err == nil {
		t.Fatalf("unexpected frame delivered: %s", payload)
	}
}

func TestRelay_RebroadcastsToOtherRoomMember(t *testing.T) {
	server := testRelayServer(t)
	browser := dialAndJoin(t, server, "AAAA1111")
	judge := dialAndJoin(t, server, "AAAA1111")

	sendSignal(t, browser, "AAAA1111", RoleBrowser, `{"type":"offer","offer":{"type":"offer","sdp":"v=0"}}`)

	frame := readFrame(t, judge)
	if frame.Event != EventSignal {
		t.Errorf("event = %q, want signal", frame.Event)
	}
	if frame.From != RoleBrowser {
		t.Errorf("from = %q, want browser", frame.From)
	}
	// The payload is relayed verbatim, not re-encoded.
	var signal Signal
	if err := json.Unmarshal(frame.Signal, &signal); err != nil {
		t.Fatalf("decoding relayed signal: %v", err)
	}
	if signal.Type != SignalOffer || signal.Offer == nil || signal.Offer.SDP != "v=0" {
		t.Errorf("relayed signal = %+v, want the original offer", signal)
	}
}

func TestRelay_NeverEchoesToSender(t *testing.T) {
	server := testRelayServer(t)
	browser := dialAndJoin(t, server, "AAAA1111")
	judge := dialAndJoin(t, server, "AAAA1111")

	sendSignal(t, browser, "AAAA1111", RoleBrowser, `{"type":"ice","candidate":{"candidate":"c"}}`)

	readFrame(t, judge) // the other member receives it
	expectSilence(t, browser, 200*time.Millisecond)
}

func TestRelay_RoomIsolation(t *testing.T) {
	server := testRelayServer(t)
	browser := dialAndJoin(t, server, "AAAA1111")
	judge := dialAndJoin(t, server, "AAAA1111")
	outsider := dialAndJoin(t, server, "BBBB2222")

	sendSignal(t, browser, "AAAA1111", RoleBrowser, `{"type":"offer","offer":{"type":"offer","sdp":"x"}}`)

	readFrame(t, judge)
	expectSilence(t, outsider, 200*time.Millisecond)
}

func TestRelay_ThreeMemberRoomBroadcastsToAllOthers(t *testing.T) {
	// The relay does not enforce a two-party limit: an extra member
	// holding the code receives traffic too.
	server := testRelayServer(t)
	sender := dialAndJoin(t, server, "AAAA1111")
	second := dialAndJoin(t, server, "AAAA1111")
	third := dialAndJoin(t, server, "AAAA1111")

	sendSignal(t, sender, "AAAA1111", RoleBrowser, `{"type":"ice","candidate":{"candidate":"c"}}`)

	readFrame(t, second)
	readFrame(t, third)
}

func TestRelay_DisconnectLeavesRoom(t *testing.T) {
	server := testRelayServer(t)
	browser := dialAndJoin(t, server, "AAAA1111")
	judge := dialAndJoin(t, server, "AAAA1111")

	judge.Close()
	// Give the relay a moment to process the disconnect, then confirm
	// that broadcasting into the room neither panics nor echoes back.
	time.Sleep(100 * time.Millisecond)
	sendSignal(t, browser, "AAAA1111", RoleBrowser, `{"type":"ice","candidate":{"candidate":"c"}}`)
	expectSilence(t, browser, 200*time.Millisecond)
}

func TestRelay_DropsMalformedFrames(t *testing.T) {
	server := testRelayServer(t)
	browser := dialAndJoin(t, server, "AAAA1111")
	judge := dialAndJoin(t, server, "AAAA1111")

	if err := browser.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("sending junk: %v", err)
	}
	// Connection survives; a subsequent valid signal still routes.
	sendSignal(t, browser, "AAAA1111", RoleBrowser, `{"type":"ice","candidate":{"candidate":"c"}}`)
	readFrame(t, judge)
}
