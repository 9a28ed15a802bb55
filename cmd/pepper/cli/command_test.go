// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string

	root := &Command{
		Name: "pepper",
		Subcommands: []*Command{
			{
				Name: "pair",
				Run: func(args []string) error {
					called = "pair"
					return nil
				},
			},
			{
				Name: "status",
				Run: func(args []string) error {
					called = "status"
					return nil
				},
			},
		},
	}

	if err := root.Execute([]string{"status"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "status" {
		t.Errorf("dispatched to %q, want %q", called, "status")
	}
}

func TestCommand_Execute_FlagParsing(t *testing.T) {
	var language string
	var receivedArgs []string

	command := &Command{
		Name: "run",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
			flags.StringVar(&language, "language", "", "language")
			return flags
		},
		Run: func(args []string) error {
			receivedArgs = args
			return nil
		},
	}

	if err := command.Execute([]string{"--language", "python", "main.py"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if language != "python" {
		t.Errorf("language = %q, want %q", language, "python")
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "main.py" {
		t.Errorf("args = %v, want [main.py]", receivedArgs)
	}
}

func TestCommand_Execute_UnknownSubcommand(t *testing.T) {
	root := &Command{
		Name:        "pepper",
		Subcommands: []*Command{{Name: "pair", Run: func([]string) error { return nil }}},
	}
	err := root.Execute([]string{"repair"})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("err = %v, want unknown command", err)
	}
}

func TestCommand_Execute_SubcommandRequired(t *testing.T) {
	root := &Command{
		Name:        "pepper",
		Subcommands: []*Command{{Name: "pair", Run: func([]string) error { return nil }}},
	}
	if err := root.Execute(nil); err == nil {
		t.Error("Execute() with no args should fail")
	}
}

func TestCommand_PrintHelp_ListsSubcommands(t *testing.T) {
	root := &Command{
		Name:    "pepper",
		Summary: "Remote judge client",
		Subcommands: []*Command{
			{Name: "pair", Summary: "Store a judge pairing code"},
			{Name: "languages", Summary: "List judge language availability"},
		},
	}

	var out bytes.Buffer
	root.PrintHelp(&out)
	help := out.String()
	for _, want := range []string{"pair", "Store a judge pairing code", "languages", "Commands:"} {
		if !strings.Contains(help, want) {
			t.Errorf("help output missing %q:\n%s", want, help)
		}
	}
}

func TestCommand_Execute_HelpFlagShowsHelpWithoutError(t *testing.T) {
	root := &Command{
		Name:        "pepper",
		Subcommands: []*Command{{Name: "pair", Run: func([]string) error { return nil }}},
	}
	if err := root.Execute([]string{"--help"}); err != nil {
		t.Errorf("Execute(--help) error: %v", err)
	}
}
