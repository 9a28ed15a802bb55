// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// relayWriteTimeout bounds each outbound websocket write so one stalled
// peer cannot wedge the writer goroutine.
const relayWriteTimeout = 5 * time.Second

// memberQueueSize is the outbound queue depth per connected socket.
// Signaling traffic is a handful of frames per session; overflow means
// the peer stopped reading and the frame is dropped.
const memberQueueSize = 32

// Relay is a stateless room broker. Sockets join rooms keyed by session
// id; every signal published into a room is rebroadcast unchanged to the
// other members, never back to the sender. The relay holds no state
// beyond room membership: session ids are opaque room keys, signal
// payloads are never inspected, and nothing is persisted.
//
// Membership changes and rebroadcast recipient selection are serialized
// by one mutex, so a socket being torn down is never handed a frame.
type Relay struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	rooms map[string]map[*relayMember]struct{}
}

// relayMember is one connected socket. Frames are queued on outbound and
// written by a dedicated goroutine, since the websocket permits only one
// concurrent writer. done is closed when the reader exits; the queue is
// never closed, so a rebroadcast that snapshotted this member before its
// teardown can still enqueue safely.
type relayMember struct {
	id       string
	conn     *websocket.Conn
	outbound chan []byte
	done     chan struct{}
	room     string
}

// NewRelay creates a relay. The upgrader accepts any origin: the relay
// is a public rendezvous point and possession of a session id is the
// only admission control.
func NewRelay(logger *slog.Logger) *Relay {
	return &Relay{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		rooms: make(map[string]map[*relayMember]struct{}),
	}
}

// ServeHTTP upgrades the connection and serves the join/signal protocol
// until the socket disconnects.
func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("websocket upgrade failed", "remote", req.RemoteAddr, "error", err)
		return
	}

	member := &relayMember{
		id:       uuid.NewString(),
		conn:     conn,
		outbound: make(chan []byte, memberQueueSize),
		done:     make(chan struct{}),
	}

	go r.writeLoop(member)
	r.readLoop(member)
}

// readLoop processes inbound frames for one socket. On any read error
// the socket leaves its room and its writer shuts down.
func (r *Relay) readLoop(member *relayMember) {
	defer func() {
		r.leave(member)
		close(member.done)
	}()

	for {
		_, payload, err := member.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame Frame
		if err := json.Unmarshal(payload, &frame); err != nil {
			// Malformed frames are dropped; the relay validates only
			// enough structure to route.
			r.logger.Warn("dropping malformed frame", "member", member.id, "error", err)
			continue
		}

		switch frame.Event {
		case EventJoin:
			r.join(member, frame.SessionID)
		case EventSignal:
			r.rebroadcast(member, frame.SessionID, payload)
		}
	}
}

// writeLoop drains the member's queue to its socket until the reader
// signals teardown.
func (r *Relay) writeLoop(member *relayMember) {
	defer member.conn.Close()
	for {
		select {
		case payload := <-member.outbound:
			member.conn.SetWriteDeadline(time.Now().Add(relayWriteTimeout))
			if err := member.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				r.logger.Debug("write to member failed", "member", member.id, "error", err)
				return
			}
		case <-member.done:
			return
		}
	}
}

// join adds the socket to the room named by sessionID and acknowledges.
// Joining while already in a room moves the socket.
func (r *Relay) join(member *relayMember, sessionID string) {
	if sessionID == "" {
		return
	}

	r.mu.Lock()
	if member.room != "" {
		r.removeLocked(member)
	}
	room, ok := r.rooms[sessionID]
	if !ok {
		room = make(map[*relayMember]struct{})
		r.rooms[sessionID] = room
	}
	room[member] = struct{}{}
	member.room = sessionID
	r.mu.Unlock()

	r.logger.Info("member joined session", "member", member.id, "session", sessionID)

	ack, err := json.Marshal(Frame{Event: EventJoined, SessionID: sessionID})
	if err != nil {
		return
	}
	r.send(member, ack)
}

// rebroadcast forwards the raw frame to every other member of the room
// named by the frame's session id. The payload is relayed verbatim.
func (r *Relay) rebroadcast(sender *relayMember, sessionID string, payload []byte) {
	r.mu.Lock()
	var recipients []*relayMember
	for member := range r.rooms[sessionID] {
		if member != sender {
			recipients = append(recipients, member)
		}
	}
	r.mu.Unlock()

	for _, member := range recipients {
		r.send(member, payload)
	}
}

// leave removes the socket from its room.
func (r *Relay) leave(member *relayMember) {
	r.mu.Lock()
	r.removeLocked(member)
	r.mu.Unlock()
}

// removeLocked must be called with r.mu held.
func (r *Relay) removeLocked(member *relayMember) {
	if member.room == "" {
		return
	}
	room := r.rooms[member.room]
	delete(room, member)
	if len(room) == 0 {
		delete(r.rooms, member.room)
	}
	member.room = ""
}

// send queues a frame for the member, dropping it when the member is
// gone or has stopped reading.
func (r *Relay) send(member *relayMember, payload []byte) {
	select {
	case member.outbound <- payload:
	case <-member.done:
	default:
		r.logger.Warn("dropping frame for slow member", "member", member.id)
	}
}
