// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pepper-platform/pepper/signaling"
)

// Dial runs the offering side of one connection attempt over an
// already-joined signaling channel. It creates the judge data channel,
// sends the offer, and waits for the channel to open. The signaling
// channel stays owned by the caller; Dial only reads its signals and
// sends through it. Once the returned PeerChannel is open it survives
// loss of the signaling channel.
func Dial(ctx context.Context, channel *signaling.Channel, cfg ICEConfig, logger *slog.Logger, options ...Option) (*PeerChannel, error) {
	s := newSettings(options)

	pc, err := newPeerConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("transport: peer connection: %w", err)
	}
	peer := newPeerChannel(pc, logger)

	dc, err := pc.CreateDataChannel(DataChannelLabel, nil)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("transport: create data channel: %w", err)
	}
	peer.bindDataChannel(dc)
	peer.forwardLocalCandidates(channel)

	go dialSignalLoop(peer, channel, logger)

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		peer.Close()
		return nil, fmt.Errorf("transport: create offer: %w", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		peer.Close()
		return nil, fmt.Errorf("transport: set local description: %w", err)
	}
	err = channel.Send(signaling.Signal{Type: signaling.SignalOffer, Offer: &offer})
	if err != nil {
		peer.Close()
		return nil, fmt.Errorf("transport: send offer: %w", err)
	}

	select {
	case <-peer.opened:
		return peer, nil
	case <-s.clk.After(s.openTimeout):
		peer.fail(ErrOpenTimeout)
		pc.Close()
		return nil, ErrOpenTimeout
	case <-channel.Done():
		peer.Close()
		return nil, fmt.Errorf("transport: signaling lost: %w", channel.Err())
	case <-ctx.Done():
		peer.Close()
		return nil, ctx.Err()
	}
}

// dialSignalLoop feeds the answer and remote candidates into the
// attempt. It runs until the signaling channel or the peer dies;
// candidates keep trickling after the channel opens.
func dialSignalLoop(peer *PeerChannel, channel *signaling.Channel, logger *slog.Logger) {
	for {
		select {
		case env, ok := <-channel.Signals():
			if !ok {
				return
			}
			switch env.Signal.Type {
			case signaling.SignalAnswer:
				if env.Signal.Answer == nil {
					logger.Warn("answer signal without description", "from", env.From)
					continue
				}
				if err := peer.setRemote(*env.Signal.Answer); err != nil {
					logger.Warn("answer rejected", "error", err)
				}
			case signaling.SignalICE:
				if env.Signal.Candidate != nil {
					peer.addCandidate(*env.Signal.Candidate)
				}
			default:
				logger.Debug("ignoring signal", "type", env.Signal.Type, "from", env.From)
			}
		case <-peer.done:
			return
		}
	}
}
