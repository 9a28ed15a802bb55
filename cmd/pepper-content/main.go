// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

// The pepper-content command serves the course content tree over HTTP:
// course metadata, problem statements, and test-case files, consumed
// by browsers, the pepper CLI, and judge daemons.
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

	"github.com/pepper-platform/pepper/catalog"
	"github.com/pepper-platform/pepper/lib/process"
	"github.com/pepper-platform/pepper/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var listen, contentDir string
	var showVersion bool
	pflag.StringVar(&listen, "listen", ":3000", "address to serve on")
	pflag.StringVar(&contentDir, "content-dir", ".", "directory holding the database/ tree")
	pflag.BoolVar(&showVersion, "version", false, "print version information and exit")
	pflag.Parse()

	if showVersion {
		os.Stdout.WriteString("pepper-content " + version.Info() + "\n")
		return nil
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	repo, err := catalog.NewRepository(contentDir)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:    listen,
		Handler: withCORS(repo.Handler()),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.ListenAndServe()
	}()
	logger.Info("content server listening", "addr", listen, "dir", contentDir)

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

// withCORS allows browser frontends served from another origin to read
// the content tree.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}
