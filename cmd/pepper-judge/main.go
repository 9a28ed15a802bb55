// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

// The pepper-judge command runs the judge daemon: it prints its
// pairing code, connects to the signaling relay, and serves execute
// and submit requests from paired browsers over WebRTC. With
// --http-listen it additionally serves the same API over plain HTTP
// for clients that cannot establish a peer connection.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/pepper-platform/pepper/judge"
	"github.com/pepper-platform/pepper/lib/config"
	"github.com/pepper-platform/pepper/lib/process"
	"github.com/pepper-platform/pepper/lib/version"
	"github.com/pepper-platform/pepper/pairing"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var configPath, relayURL, contentURL, dataDir, httpListen string
	var showVersion bool
	pflag.StringVar(&configPath, "config", "", "path to pepper.yaml (default: $PEPPER_CONFIG)")
	pflag.StringVar(&relayURL, "relay-url", "", "signaling relay websocket URL")
	pflag.StringVar(&contentURL, "content-url", "", "content server base URL")
	pflag.StringVar(&dataDir, "data-dir", "", "directory for the pairing code, submissions, and cache")
	pflag.StringVar(&httpListen, "http-listen", "", "also serve the judge API over HTTP on this address")
	pflag.BoolVar(&showVersion, "version", false, "print version information and exit")
	pflag.Parse()

	if showVersion {
		os.Stdout.WriteString("pepper-judge " + version.Info() + "\n")
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if relayURL != "" {
		cfg.Relay.URL = relayURL
	}
	if contentURL != "" {
		cfg.Content.URL = contentURL
	}
	if dataDir != "" {
		cfg.Judge.DataDir = dataDir
	}
	if httpListen != "" {
		cfg.Judge.HTTPListen = httpListen
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	daemon, err := judge.NewDaemon(judge.DaemonConfig{
		RelayURL:   cfg.Relay.URL,
		ContentURL: cfg.Content.URL,
		DataDir:    cfg.Judge.DataDir,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	defer daemon.Close()

	fmt.Printf("Judge code: %s\n", pairing.Format(daemon.Code()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var httpServer *http.Server
	if cfg.Judge.HTTPListen != "" {
		httpServer = &http.Server{
			Addr:    cfg.Judge.HTTPListen,
			Handler: daemon.Handler().HTTPHandler(),
		}
		go func() {
			logger.Info("http fallback listening", "addr", cfg.Judge.HTTPListen)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http fallback server failed", "error", err)
			}
		}()
	}

	err = daemon.Run(ctx)

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// loadConfig loads the file named by --config or PEPPER_CONFIG, or
// falls back to defaults so the daemon can run from flags alone.
func loadConfig(configPath string) (*config.Config, error) {
	switch {
	case configPath != "":
		return config.LoadFile(configPath)
	case os.Getenv("PEPPER_CONFIG") != "":
		return config.Load()
	default:
		return config.Default(), nil
	}
}
