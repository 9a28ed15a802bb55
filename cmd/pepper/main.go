// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/pepper-platform/pepper/cmd/pepper/cli"
	"github.com/pepper-platform/pepper/lib/config"
	"github.com/pepper-platform/pepper/lib/process"
	"github.com/pepper-platform/pepper/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	root := &cli.Command{
		Name:    "pepper",
		Summary: "Pepper remote judge client",
		Description: "Pepper pairs with a judge daemon over WebRTC and runs code\n" +
			"against course problems from the command line.",
		Subcommands: []*cli.Command{
			pairCommand(),
			unpairCommand(),
			statusCommand(),
			languagesCommand(),
			runCommand(),
			submitCommand(),
			coursesCommand(),
			historyCommand(),
			statsCommand(),
			versionCommand(),
		},
	}
	return root.Execute(args)
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Run: func(args []string) error {
			fmt.Println("pepper", version.Info())
			return nil
		},
	}
}

// commonOptions are the connection flags shared by the judge-facing
// subcommands.
type commonOptions struct {
	configPath string
	relayURL   string
	contentURL string
	judgeURL   string
	verbose    bool
}

// register adds the shared flags to a command's flag set.
func (o *commonOptions) register(flags *pflag.FlagSet) {
	flags.StringVar(&o.configPath, "config", "", "path to pepper.yaml (default: $PEPPER_CONFIG)")
	flags.StringVar(&o.relayURL, "relay-url", "", "signaling relay websocket URL")
	flags.StringVar(&o.contentURL, "content-url", "", "content server base URL")
	flags.StringVar(&o.judgeURL, "judge-url", "", "judge HTTP URL (bypasses WebRTC)")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "log connection progress to stderr")
}

// resolve loads the config file, if any, and applies flag overrides.
// Flags win over the file; the file wins over defaults.
func (o *commonOptions) resolve() (*config.Config, error) {
	cfg := config.Default()
	switch {
	case o.configPath != "":
		loaded, err := config.LoadFile(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case os.Getenv("PEPPER_CONFIG") != "":
		loaded, err := config.Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if o.relayURL != "" {
		cfg.Relay.URL = o.relayURL
	}
	if o.contentURL != "" {
		cfg.Content.URL = o.contentURL
	}
	return cfg, cfg.Validate()
}

func (o *commonOptions) logger() *slog.Logger {
	if o.verbose {
		return slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
