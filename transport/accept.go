// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/pepper-platform/pepper/lib/clock"
	"github.com/pepper-platform/pepper/signaling"
)

// Acceptor runs the answering side. A judge daemon creates one per
// signaling channel and calls Accept in a loop: each call answers the
// next inbound offer and returns the resulting channel once it opens.
//
// Remote ICE candidates are routed to the attempt most recently
// started; a browser that restarts negotiation sends a fresh offer
// first, which Accept picks up after the previous channel dies.
type Acceptor struct {
	channel *signaling.Channel
	cfg     ICEConfig
	logger  *slog.Logger
	clk     clock.Clock
	timeout time.Duration

	offers chan signaling.Envelope

	mu      sync.Mutex
	current *PeerChannel
}

// NewAcceptor starts routing signals from channel. The caller keeps
// ownership of the signaling channel and closes it to stop the
// acceptor.
func NewAcceptor(channel *signaling.Channel, cfg ICEConfig, logger *slog.Logger, options ...Option) *Acceptor {
	s := newSettings(options)
	a := &Acceptor{
		channel: channel,
		cfg:     cfg,
		logger:  logger,
		clk:     s.clk,
		timeout: s.openTimeout,
		offers:  make(chan signaling.Envelope, 4),
	}
	go a.route()
	return a
}

// route splits the signal stream: offers queue for Accept, candidates
// go to the live attempt. Answers never arrive on this side and are
// dropped.
func (a *Acceptor) route() {
	for env := range a.channel.Signals() {
		switch env.Signal.Type {
		case signaling.SignalOffer:
			if env.Signal.Offer == nil {
				a.logger.Warn("offer signal without description", "from", env.From)
				continue
			}
			select {
			case a.offers <- env:
			default:
				a.logger.Warn("offer queue full, dropping offer", "from", env.From)
			}
		case signaling.SignalICE:
			if env.Signal.Candidate == nil {
				continue
			}
			a.mu.Lock()
			current := a.current
			a.mu.Unlock()
			if current == nil {
				a.logger.Debug("candidate before any offer, dropping")
				continue
			}
			current.addCandidate(*env.Signal.Candidate)
		default:
			a.logger.Debug("ignoring signal", "type", env.Signal.Type, "from", env.From)
		}
	}
	close(a.offers)
}

// Accept answers the next offer and waits for its data channel to
// open. It returns an error when the signaling channel dies, the
// context is canceled, or the channel does not open in time.
func (a *Acceptor) Accept(ctx context.Context) (*PeerChannel, error) {
	var env signaling.Envelope
	var ok bool
	select {
	case env, ok = <-a.offers:
		if !ok {
			return nil, fmt.Errorf("transport: signaling lost: %w", a.channel.Err())
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	pc, err := newPeerConnection(a.cfg)
	if err != nil {
		return nil, fmt.Errorf("transport: peer connection: %w", err)
	}
	peer := newPeerChannel(pc, a.logger)
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != DataChannelLabel {
			a.logger.Warn("unexpected data channel", "label", dc.Label())
			return
		}
		peer.bindDataChannel(dc)
	})
	peer.forwardLocalCandidates(a.channel)

	a.mu.Lock()
	a.current = peer
	a.mu.Unlock()

	if err := peer.setRemote(*env.Signal.Offer); err != nil {
		peer.Close()
		return nil, fmt.Errorf("transport: %w", err)
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		peer.Close()
		return nil, fmt.Errorf("transport: create answer: %w", err)
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		peer.Close()
		return nil, fmt.Errorf("transport: set local description: %w", err)
	}
	err = a.channel.Send(signaling.Signal{Type: signaling.SignalAnswer, Answer: &answer})
	if err != nil {
		peer.Close()
		return nil, fmt.Errorf("transport: send answer: %w", err)
	}

	select {
	case <-peer.opened:
		return peer, nil
	case <-a.clk.After(a.timeout):
		peer.fail(ErrOpenTimeout)
		pc.Close()
		return nil, ErrOpenTimeout
	case <-ctx.Done():
		peer.Close()
		return nil, ctx.Err()
	}
}
