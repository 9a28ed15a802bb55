// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package judgeclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pepper-platform/pepper/judgerpc"
	"github.com/pepper-platform/pepper/lib/clock"
)

// DefaultCallTimeout bounds each RPC round trip.
const DefaultCallTimeout = 30 * time.Second

// Conn is the message pipe a Correlator runs over. transport's
// PeerChannel satisfies it; tests use an in-memory pair.
type Conn interface {
	Send([]byte) error
	Messages() <-chan []byte
	Done() <-chan struct{}
}

// Request is any judgerpc request; every one embeds judgerpc.Envelope.
type Request interface {
	SetMsgID(id uint64)
}

// CorrelatorOption adjusts NewCorrelator behavior.
type CorrelatorOption func(*Correlator)

// WithCallTimeout overrides DefaultCallTimeout.
func WithCallTimeout(d time.Duration) CorrelatorOption {
	return func(c *Correlator) { c.timeout = d }
}

// WithCallClock substitutes the clock driving call timeouts.
func WithCallClock(clk clock.Clock) CorrelatorOption {
	return func(c *Correlator) { c.clk = clk }
}

// Correlator multiplexes concurrent calls over one judge channel.
type Correlator struct {
	conn    Conn
	clk     clock.Clock
	logger  *slog.Logger
	timeout time.Duration

	pushes chan judgerpc.LanguageSet

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan callResult
}

type callResult struct {
	payload json.RawMessage
	err     error
}

// NewCorrelator starts reading conn. It stops when conn's Done fires;
// calls pending at that point still run to their timeout, matching the
// judge protocol's lack of a cancellation message.
func NewCorrelator(conn Conn, logger *slog.Logger, options ...CorrelatorOption) *Correlator {
	c := &Correlator{
		conn:    conn,
		clk:     clock.Real(),
		logger:  logger,
		timeout: DefaultCallTimeout,
		pushes:  make(chan judgerpc.LanguageSet, 1),
		pending: make(map[uint64]chan callResult),
	}
	for _, o := range options {
		o(c)
	}
	go c.readLoop()
	return c
}

// Call sends request and waits for the response carrying its id. The
// raw response payload is returned for the caller to decode; a remote
// {"error": ...} comes back as *RemoteError.
func (c *Correlator) Call(ctx context.Context, request Request) (json.RawMessage, error) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	result := make(chan callResult, 1)
	c.pending[id] = result
	c.mu.Unlock()

	request.SetMsgID(id)
	payload, err := json.Marshal(request)
	if err != nil {
		c.drop(id)
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	if err := c.conn.Send(payload); err != nil {
		c.drop(id)
		return nil, fmt.Errorf("sending request: %w", err)
	}

	select {
	case res := <-result:
		return res.payload, res.err
	case <-c.clk.After(c.timeout):
		c.drop(id)
		return nil, ErrCallTimeout
	case <-ctx.Done():
		c.drop(id)
		return nil, ctx.Err()
	}
}

// Pushes yields unsolicited language announcements. Closed when the
// connection ends.
func (c *Correlator) Pushes() <-chan judgerpc.LanguageSet { return c.pushes }

// drop removes a pending entry so a late response cannot resolve it.
func (c *Correlator) drop(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Correlator) readLoop() {
	defer close(c.pushes)
	for {
		select {
		case payload := <-c.conn.Messages():
			c.dispatch(payload)
		case <-c.conn.Done():
			return
		}
	}
}

func (c *Correlator) dispatch(payload []byte) {
	var header judgerpc.Header
	if err := json.Unmarshal(payload, &header); err != nil {
		c.logger.Warn("malformed judge message", "error", err)
		return
	}
	if header.IsPush() {
		var set judgerpc.LanguageSet
		if err := json.Unmarshal(header.Languages, &set); err != nil {
			c.logger.Warn("malformed language push", "error", err)
			return
		}
		select {
		case c.pushes <- set:
		default:
			c.logger.Debug("language push dropped, subscriber behind")
		}
		return
	}
	if header.MsgID == nil {
		c.logger.Debug("judge message without correlation id dropped")
		return
	}

	c.mu.Lock()
	result, ok := c.pending[*header.MsgID]
	if ok {
		delete(c.pending, *header.MsgID)
	}
	c.mu.Unlock()
	if !ok {
		// Late or duplicate response after timeout or first delivery.
		c.logger.Debug("unmatched judge response dropped", "msgId", *header.MsgID)
		return
	}
	if header.Error != "" {
		result <- callResult{err: &RemoteError{Message: header.Error}}
		return
	}
	result <- callResult{payload: json.RawMessage(payload)}
}
