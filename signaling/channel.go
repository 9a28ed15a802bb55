// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultConnectTimeout bounds the relay dial plus the join/joined
// handshake.
const DefaultConnectTimeout = 10 * time.Second

// ErrConnectTimeout reports that the relay did not acknowledge the
// connection within the connect timeout.
var ErrConnectTimeout = errors.New("signaling: timed out connecting to relay")

// Channel is one peer's connection to the relay for a single session.
// Exactly one Channel exists per active session; to start a new session
// the caller must Close the old Channel first.
type Channel struct {
	conn      *websocket.Conn
	sessionID string
	role      string
	logger    *slog.Logger

	// writeMu serializes writers; gorilla permits one concurrent writer.
	writeMu sync.Mutex

	signals chan Envelope

	done     chan struct{}
	doneOnce sync.Once

	errMu   sync.Mutex
	readErr error
}

// ChannelOption configures Connect.
type ChannelOption func(*channelOptions)

type channelOptions struct {
	connectTimeout time.Duration
}

// WithConnectTimeout overrides DefaultConnectTimeout. Tests use short
// windows to exercise the timeout path quickly.
func WithConnectTimeout(d time.Duration) ChannelOption {
	return func(o *channelOptions) { o.connectTimeout = d }
}

// Connect dials the relay at relayURL (a ws:// or wss:// endpoint),
// joins the room named by sessionID, and waits for the relay's
// acknowledgment. role identifies this peer in outbound envelopes and
// filters inbound ones. Fails with ErrConnectTimeout when the relay does
// not complete the handshake in time; other dial failures surface
// wrapped.
func Connect(ctx context.Context, relayURL, sessionID, role string, logger *slog.Logger, options ...ChannelOption) (*Channel, error) {
	opts := channelOptions{connectTimeout: DefaultConnectTimeout}
	for _, option := range options {
		option(&opts)
	}

	dialer := websocket.Dialer{HandshakeTimeout: opts.connectTimeout}
	conn, _, err := dialer.DialContext(ctx, relayURL, nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrConnectTimeout, err)
		}
		return nil, fmt.Errorf("dialing relay %s: %w", relayURL, err)
	}

	channel := &Channel{
		conn:      conn,
		sessionID: sessionID,
		role:      role,
		logger:    logger,
		signals:   make(chan Envelope, 16),
		done:      make(chan struct{}),
	}

	if err := channel.join(opts.connectTimeout); err != nil {
		conn.Close()
		return nil, err
	}

	go channel.readLoop()
	return channel, nil
}

// join announces the session room and waits for the relay's joined
// acknowledgment within the connect timeout.
func (c *Channel) join(timeout time.Duration) error {
	if err := c.writeFrame(Frame{Event: EventJoin, SessionID: c.sessionID}); err != nil {
		return fmt.Errorf("joining session room: %w", err)
	}

	deadline := time.Now().Add(timeout)
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return fmt.Errorf("setting handshake deadline: %w", err)
	}
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if isTimeout(err) {
				return fmt.Errorf("%w: no join acknowledgment", ErrConnectTimeout)
			}
			return fmt.Errorf("waiting for join acknowledgment: %w", err)
		}
		var frame Frame
		if err := json.Unmarshal(payload, &frame); err != nil {
			c.logger.Warn("malformed relay frame during join", "error", err)
			continue
		}
		if frame.Event == EventJoined {
			// Handshake complete. Lift the deadline for the read loop.
			return c.conn.SetReadDeadline(time.Time{})
		}
		// Signals can arrive before the ack when the peer is already
		// in the room. Queue them rather than dropping.
		c.deliver(frame)
	}
}

// Signals returns inbound signal envelopes sent by the other role. The
// channel is closed when the connection ends.
func (c *Channel) Signals() <-chan Envelope {
	return c.signals
}

// SessionID returns the session this channel joined.
func (c *Channel) SessionID() string { return c.sessionID }

// Send publishes a signal into the session room.
func (c *Channel) Send(signal Signal) error {
	payload, err := json.Marshal(signal)
	if err != nil {
		return fmt.Errorf("encoding signal: %w", err)
	}
	return c.writeFrame(Frame{
		Event:     EventSignal,
		SessionID: c.sessionID,
		From:      c.role,
		Signal:    payload,
	})
}

// Done returns a channel closed when the connection ends, whether by
// Close or by transport failure. Err reports the cause after Done.
func (c *Channel) Done() <-chan struct{} { return c.done }

// Err returns the read-loop failure that ended the connection, or nil
// after a clean Close.
func (c *Channel) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.readErr
}

// Close tears down the relay connection. Safe to call more than once.
func (c *Channel) Close() error {
	c.doneOnce.Do(func() { close(c.done) })
	return c.conn.Close()
}

func (c *Channel) writeFrame(frame Frame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encoding relay frame: %w", err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return err
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("writing relay frame: %w", err)
	}
	return nil
}

// readLoop delivers inbound signal envelopes until the connection ends.
func (c *Channel) readLoop() {
	defer close(c.signals)
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				// Clean close; not an error.
			default:
				c.errMu.Lock()
				c.readErr = err
				c.errMu.Unlock()
			}
			c.doneOnce.Do(func() { close(c.done) })
			return
		}
		var frame Frame
		if err := json.Unmarshal(payload, &frame); err != nil {
			c.logger.Warn("malformed relay frame", "error", err)
			continue
		}
		c.deliver(frame)
	}
}

// deliver parses a signal frame addressed to this role and queues it.
// Frames from our own role (relay rooms with extra members can echo
// traffic) and non-signal events are ignored.
func (c *Channel) deliver(frame Frame) {
	if frame.Event != EventSignal || frame.From == c.role || frame.From == "" {
		return
	}
	var signal Signal
	if err := json.Unmarshal(frame.Signal, &signal); err != nil {
		c.logger.Warn("malformed signal payload", "from", frame.From, "error", err)
		return
	}
	envelope := Envelope{SessionID: frame.SessionID, From: frame.From, Signal: signal}
	select {
	case c.signals <- envelope:
	case <-c.done:
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
