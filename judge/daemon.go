// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package judge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/pepper-platform/pepper/lib/clock"
	"github.com/pepper-platform/pepper/pairing"
	"github.com/pepper-platform/pepper/signaling"
	"github.com/pepper-platform/pepper/transport"
)

// Relay connection retry budget. Free-tier relay hosts suspend when
// idle, so retries are preceded by a wakeup probe against the relay's
// HTTP root.
const (
	maxConnectAttempts = 5
	retryBackoffBase   = 2 * time.Second
	wakeupTimeout      = 30 * time.Second
)

// DaemonConfig configures a judge daemon.
type DaemonConfig struct {
	// RelayURL is the signaling relay websocket endpoint.
	RelayURL string

	// ContentURL is the content server base URL test cases are
	// fetched from.
	ContentURL string

	// DataDir holds the pairing code file, the submission database,
	// and the test-case cache. Created if missing.
	DataDir string

	// ICE overrides the default STUN configuration when non-zero.
	ICE transport.ICEConfig

	// Clock defaults to the real clock.
	Clock clock.Clock

	// Logger receives operational messages. Required.
	Logger *slog.Logger
}

// Daemon is the long-running judge process: one pairing code, one
// browser peer at a time, reconnecting signaling as needed.
type Daemon struct {
	cfg     DaemonConfig
	code    string
	store   *SubmissionStore
	handler *Handler
	clk     clock.Clock
	logger  *slog.Logger
}

// NewDaemon prepares the daemon: data directory, pairing code,
// submission store, and handler. The returned daemon owns the store;
// Close releases it.
func NewDaemon(cfg DaemonConfig) (*Daemon, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("judge: Logger is required")
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	if len(cfg.ICE.Servers) == 0 {
		cfg.ICE = transport.DefaultICEConfig()
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("judge: data dir: %w", err)
	}

	code, err := pairing.NewStore(filepath.Join(cfg.DataDir, "judge_code")).GetOrCreate()
	if err != nil {
		return nil, fmt.Errorf("judge: pairing code: %w", err)
	}

	store, err := OpenSubmissionStore(filepath.Join(cfg.DataDir, "submissions.db"), clk, cfg.Logger)
	if err != nil {
		return nil, err
	}
	source := NewContentSource(cfg.ContentURL, filepath.Join(cfg.DataDir, "testcase-cache"), cfg.Logger)

	return &Daemon{
		cfg:     cfg,
		code:    code,
		store:   store,
		handler: NewHandler(store, source, cfg.Logger),
		clk:     clk,
		logger:  cfg.Logger,
	}, nil
}

// Code returns the pairing code browsers must enter.
func (d *Daemon) Code() string { return d.code }

// Handler exposes the RPC handler, for serving the HTTP fallback
// alongside the daemon.
func (d *Daemon) Handler() *Handler { return d.handler }

// Close releases the submission store.
func (d *Daemon) Close() error { return d.store.Close() }

// Run connects to the relay and serves browser peers until ctx ends.
// Signaling loss triggers a fresh connect cycle with retry.
func (d *Daemon) Run(ctx context.Context) error {
	d.logger.Info("judge ready", "code", pairing.Format(d.code))
	for {
		channel, err := d.connectWithRetry(ctx)
		if err != nil {
			return err
		}
		d.acceptLoop(ctx, channel)
		channel.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		d.logger.Info("signaling lost, reconnecting")
	}
}

// acceptLoop answers offers on one signaling connection until it dies.
func (d *Daemon) acceptLoop(ctx context.Context, channel *signaling.Channel) {
	acceptor := transport.NewAcceptor(channel, d.cfg.ICE, d.logger, transport.WithClock(d.clk))
	for {
		peer, err := acceptor.Accept(ctx)
		if err != nil {
			if errors.Is(err, transport.ErrOpenTimeout) {
				// The attempt died but signaling is fine; wait for
				// the browser's next offer.
				d.logger.Warn("data channel never opened")
				continue
			}
			if ctx.Err() == nil {
				d.logger.Warn("accept failed", "error", err)
			}
			return
		}
		d.serve(ctx, peer)
	}
}

// serve handles one browser peer: the language push, then one request
// frame at a time.
func (d *Daemon) serve(ctx context.Context, peer *transport.PeerChannel) {
	defer peer.Close()
	d.logger.Info("browser connected")
	if err := peer.Send(d.handler.LanguagePush(ctx)); err != nil {
		d.logger.Warn("language push failed", "error", err)
	}
	for {
		select {
		case frame := <-peer.Messages():
			if err := peer.Send(d.handler.HandleFrame(ctx, frame)); err != nil {
				d.logger.Warn("response send failed", "error", err)
				return
			}
		case <-peer.Done():
			if err := peer.Err(); err != nil {
				d.logger.Info("browser disconnected", "error", err)
			} else {
				d.logger.Info("browser disconnected")
			}
			return
		case <-ctx.Done():
			return
		}
	}
}

// connectWithRetry joins the relay room, retrying with exponential
// backoff and a wakeup probe between attempts.
func (d *Daemon) connectWithRetry(ctx context.Context) (*signaling.Channel, error) {
	var lastErr error
	for attempt := 1; attempt <= maxConnectAttempts; attempt++ {
		if attempt > 1 {
			d.wakeRelay(ctx)
			delay := retryBackoffBase << (attempt - 2)
			d.logger.Info("retrying relay connection", "attempt", attempt, "delay", delay)
			select {
			case <-d.clk.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		channel, err := signaling.Connect(ctx, d.cfg.RelayURL, d.code, signaling.RoleJudge, d.logger)
		if err == nil {
			d.logger.Info("connected to relay", "url", d.cfg.RelayURL)
			return channel, nil
		}
		lastErr = err
		d.logger.Warn("relay connection failed", "attempt", attempt, "error", err)
	}
	return nil, fmt.Errorf("judge: connecting to relay: %w", lastErr)
}

// wakeRelay probes the relay's HTTP root so a suspended free-tier host
// starts booting before the next websocket attempt.
func (d *Daemon) wakeRelay(ctx context.Context) {
	probeURL, err := relayProbeURL(d.cfg.RelayURL)
	if err != nil {
		return
	}
	probeCtx, cancel := context.WithTimeout(ctx, wakeupTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, probeURL, nil)
	if err != nil {
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		d.logger.Debug("wakeup probe failed", "url", probeURL, "error", err)
		return
	}
	resp.Body.Close()
	d.logger.Debug("wakeup probe answered", "url", probeURL, "status", resp.StatusCode)
}

// relayProbeURL converts the websocket relay URL into the HTTP root of
// the same host.
func relayProbeURL(relayURL string) (string, error) {
	parsed, err := url.Parse(relayURL)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "wss":
		parsed.Scheme = "https"
	case "ws":
		parsed.Scheme = "http"
	}
	parsed.Path = "/"
	parsed.RawQuery = ""
	return parsed.String(), nil
}
