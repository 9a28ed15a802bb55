// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/pepper-platform/pepper/judgeclient"
	"github.com/pepper-platform/pepper/pairing"
)

// connectTimeout bounds the wait for the judge to come up: signaling,
// ICE, and the data channel all have to land inside it.
const connectTimeout = 60 * time.Second

func pairingStore() (*pairing.Store, error) {
	path, err := pairing.DefaultPath()
	if err != nil {
		return nil, err
	}
	return pairing.NewStore(path), nil
}

// openClient builds a judge client from the stored pairing code and
// blocks until it is connected or fails. The caller must call
// Disconnect when done.
func openClient(opts *commonOptions) (*judgeclient.Client, error) {
	cfg, err := opts.resolve()
	if err != nil {
		return nil, err
	}
	store, err := pairingStore()
	if err != nil {
		return nil, err
	}
	if store.Code() == "" {
		return nil, errors.New("no judge paired; run 'pepper pair <code>' first")
	}

	client := judgeclient.New(store, cfg.Relay.URL, opts.logger())
	if err := waitConnected(client); err != nil {
		client.Disconnect()
		return nil, err
	}
	return client, nil
}

// waitConnected blocks until the client reports connected, or fails on
// error status or timeout.
func waitConnected(client *judgeclient.Client) error {
	sub := client.Subscribe()
	defer sub.Cancel()

	deadline := time.After(connectTimeout)
	for {
		select {
		case update := <-sub.C:
			switch update.Status {
			case judgeclient.StatusConnected:
				return nil
			case judgeclient.StatusError:
				return fmt.Errorf("connecting to judge: %s", update.Message)
			}
		case <-deadline:
			return errors.New("timed out waiting for the judge connection")
		}
	}
}
