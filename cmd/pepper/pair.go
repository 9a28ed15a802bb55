// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/pepper-platform/pepper/cmd/pepper/cli"
	"github.com/pepper-platform/pepper/pairing"
)

func pairCommand() *cli.Command {
	opts := &commonOptions{}
	var noVerify bool
	return &cli.Command{
		Name:    "pair",
		Summary: "Store a judge pairing code",
		Usage:   "pepper pair <code> [flags]",
		Examples: []cli.Example{
			{Description: "Pair with the code the judge printed", Command: "pepper pair AB12-CD34"},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("pair", pflag.ContinueOnError)
			flags.BoolVar(&noVerify, "no-verify", false, "store the code without test-connecting")
			opts.register(flags)
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return errors.New("usage: pepper pair <code>")
			}
			store, err := pairingStore()
			if err != nil {
				return err
			}
			code, err := store.Set(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Paired with judge %s\n", pairing.Format(code))

			if noVerify {
				return nil
			}
			client, err := openClient(opts)
			if err != nil {
				return fmt.Errorf("code stored, but the judge is not reachable: %w", err)
			}
			defer client.Disconnect()
			fmt.Println("Judge connection verified.")
			return nil
		},
	}
}

func unpairCommand() *cli.Command {
	return &cli.Command{
		Name:    "unpair",
		Summary: "Forget the stored pairing code",
		Run: func(args []string) error {
			store, err := pairingStore()
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Println("Pairing code cleared.")
			return nil
		},
	}
}

func statusCommand() *cli.Command {
	opts := &commonOptions{}
	return &cli.Command{
		Name:    "status",
		Summary: "Show the pairing code and judge reachability",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("status", pflag.ContinueOnError)
			opts.register(flags)
			return flags
		},
		Run: func(args []string) error {
			store, err := pairingStore()
			if err != nil {
				return err
			}
			code := store.Code()
			if code == "" {
				fmt.Println("Not paired.")
				return nil
			}
			fmt.Printf("Paired with judge %s\n", pairing.Format(code))

			client, err := openClient(opts)
			if err != nil {
				fmt.Printf("Judge unreachable: %v\n", err)
				return nil
			}
			defer client.Disconnect()
			fmt.Println("Judge connected.")
			return nil
		},
	}
}
