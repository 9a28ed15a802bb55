// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

// The pepper-relay command runs the signaling relay: a websocket fanout
// that forwards SDP offers, answers, and ICE candidates between a
// browser and a judge sharing a pairing code. The HTTP root answers
// 200 so sleeping hosts can be woken with a plain GET.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/pepper-platform/pepper/lib/process"
	"github.com/pepper-platform/pepper/lib/version"
	"github.com/pepper-platform/pepper/signaling"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var listen string
	var showVersion bool
	pflag.StringVar(&listen, "listen", ":3001", "address to serve on")
	pflag.BoolVar(&showVersion, "version", false, "print version information and exit")
	pflag.Parse()

	if showVersion {
		os.Stdout.WriteString("pepper-relay " + version.Info() + "\n")
		return nil
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	mux := http.NewServeMux()
	mux.Handle("/ws", signaling.NewRelay(logger))
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	server := &http.Server{
		Addr:    listen,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.ListenAndServe()
	}()
	logger.Info("relay listening", "addr", listen)

	select {
	case err := <-serverDone:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
