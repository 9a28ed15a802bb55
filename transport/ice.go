// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import "github.com/pion/webrtc/v4"

// ICEConfig names the STUN and TURN servers an attempt may use for
// candidate discovery.
type ICEConfig struct {
	Servers []webrtc.ICEServer
}

// DefaultICEConfig returns the stock configuration: a single public
// STUN server, no TURN. Deployments behind symmetric NAT supply their
// own TURN servers through configuration instead.
func DefaultICEConfig() ICEConfig {
	return ICEConfig{
		Servers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
	}
}

// newPeerConnection builds a peer connection from cfg. Loopback
// candidates are enabled because a judge daemon on the same host as
// the browser is a primary deployment shape.
func newPeerConnection(cfg ICEConfig) (*webrtc.PeerConnection, error) {
	settings := webrtc.SettingEngine{}
	settings.SetIncludeLoopbackCandidate(true)
	api := webrtc.NewAPI(webrtc.WithSettingEngine(settings))
	return api.NewPeerConnection(webrtc.Configuration{ICEServers: cfg.Servers})
}
