// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/pepper-platform/pepper/lib/clock"
	"github.com/pepper-platform/pepper/signaling"
)

// DataChannelLabel is the label both sides use for the judge RPC
// channel. The browser creates it; the judge accepts it by label.
const DataChannelLabel = "judge"

// DefaultOpenTimeout bounds the wait between sending or answering an
// offer and the data channel opening.
const DefaultOpenTimeout = 10 * time.Second

var (
	// ErrOpenTimeout reports that the data channel did not open within
	// the attempt's open timeout.
	ErrOpenTimeout = errors.New("transport: data channel open timed out")

	// ErrNotOpen reports a Send on a channel that is not (or no
	// longer) open.
	ErrNotOpen = errors.New("transport: data channel not open")
)

// Option adjusts Dial or NewAcceptor behavior.
type Option func(*settings)

type settings struct {
	clk         clock.Clock
	openTimeout time.Duration
}

func newSettings(options []Option) settings {
	s := settings{clk: clock.Real(), openTimeout: DefaultOpenTimeout}
	for _, o := range options {
		o(&s)
	}
	return s
}

// WithClock substitutes the clock used for the open timeout. Tests
// pass a fake.
func WithClock(clk clock.Clock) Option {
	return func(s *settings) { s.clk = clk }
}

// WithOpenTimeout overrides DefaultOpenTimeout.
func WithOpenTimeout(d time.Duration) Option {
	return func(s *settings) { s.openTimeout = d }
}

// PeerChannel is one end of an established (or establishing) judge
// data channel. It delivers inbound frames on Messages in arrival
// order and reports termination, deliberate or not, through Done.
type PeerChannel struct {
	pc     *webrtc.PeerConnection
	logger *slog.Logger

	messages chan []byte
	opened   chan struct{}
	openOnce sync.Once
	done     chan struct{}
	doneOnce sync.Once

	mu        sync.Mutex
	dc        *webrtc.DataChannel
	remoteSet bool
	held      []webrtc.ICECandidateInit
	state     State
	cause     error
}

func newPeerChannel(pc *webrtc.PeerConnection, logger *slog.Logger) *PeerChannel {
	p := &PeerChannel{
		pc:       pc,
		logger:   logger,
		messages: make(chan []byte, 32),
		opened:   make(chan struct{}),
		done:     make(chan struct{}),
		state:    StateNegotiating,
	}
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateFailed:
			p.fail(errors.New("transport: peer connection failed"))
		case webrtc.PeerConnectionStateClosed:
			p.fail(errors.New("transport: peer connection closed"))
		}
	})
	return p
}

// bindDataChannel attaches the judge channel's event handlers. Called
// once per attempt, by the creator on the dial side and from
// OnDataChannel on the accept side.
func (p *PeerChannel) bindDataChannel(dc *webrtc.DataChannel) {
	p.mu.Lock()
	p.dc = dc
	p.mu.Unlock()

	dc.OnOpen(func() {
		p.mu.Lock()
		if p.state == StateNegotiating {
			p.state = StateOpen
		}
		p.mu.Unlock()
		p.openOnce.Do(func() { close(p.opened) })
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		select {
		case p.messages <- msg.Data:
		case <-p.done:
		}
	})
	dc.OnClose(func() {
		p.fail(errors.New("transport: data channel closed by peer"))
	})
	dc.OnError(func(err error) {
		p.fail(fmt.Errorf("transport: data channel error: %w", err))
	})
}

// forwardLocalCandidates trickles locally gathered ICE candidates to
// the remote side. Send failures are logged; the attempt can still
// succeed on candidates already delivered.
func (p *PeerChannel) forwardLocalCandidates(channel *signaling.Channel) {
	p.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		init := c.ToJSON()
		err := channel.Send(signaling.Signal{Type: signaling.SignalICE, Candidate: &init})
		if err != nil {
			p.logger.Debug("candidate send failed", "error", err)
		}
	})
}

// setRemote applies the remote description and flushes any candidates
// held while it was missing.
func (p *PeerChannel) setRemote(desc webrtc.SessionDescription) error {
	if err := p.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	p.mu.Lock()
	p.remoteSet = true
	held := p.held
	p.held = nil
	p.mu.Unlock()
	for _, init := range held {
		p.applyCandidate(init)
	}
	return nil
}

// addCandidate applies a remote ICE candidate. Candidates arriving
// before the remote description are held and applied with it.
func (p *PeerChannel) addCandidate(init webrtc.ICECandidateInit) {
	p.mu.Lock()
	if !p.remoteSet {
		p.held = append(p.held, init)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	p.applyCandidate(init)
}

func (p *PeerChannel) applyCandidate(init webrtc.ICECandidateInit) {
	if err := p.pc.AddICECandidate(init); err != nil {
		p.logger.Debug("candidate rejected", "error", err)
	}
}

// Send writes one frame to the remote side. Frames are JSON text on
// the wire, matching what browser peers expect.
func (p *PeerChannel) Send(payload []byte) error {
	p.mu.Lock()
	dc, state := p.dc, p.state
	p.mu.Unlock()
	if state != StateOpen || dc == nil {
		return ErrNotOpen
	}
	if err := dc.SendText(string(payload)); err != nil {
		return fmt.Errorf("transport: send: %w", err)
	}
	return nil
}

// Messages yields inbound frames. The channel is never closed; select
// against Done.
func (p *PeerChannel) Messages() <-chan []byte { return p.messages }

// Done is closed when the channel terminates for any reason.
func (p *PeerChannel) Done() <-chan struct{} { return p.done }

// State reports the current attempt state.
func (p *PeerChannel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Err returns the terminal error, nil before Done and after a clean
// Close.
func (p *PeerChannel) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cause
}

// Close tears the channel down deliberately. Safe to call more than
// once and concurrently with failure.
func (p *PeerChannel) Close() error {
	p.finish(StateClosed, nil)
	return p.pc.Close()
}

func (p *PeerChannel) fail(err error) {
	p.finish(StateFailed, err)
}

func (p *PeerChannel) finish(state State, err error) {
	p.mu.Lock()
	if p.state != StateClosed && p.state != StateFailed {
		p.state = state
		p.cause = err
	}
	p.mu.Unlock()
	p.doneOnce.Do(func() { close(p.done) })
}
