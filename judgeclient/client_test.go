// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package judgeclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pepper-platform/pepper/pairing"
	"github.com/pepper-platform/pepper/signaling"
	"github.com/pepper-platform/pepper/transport"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRelay(t *testing.T) string {
	t.Helper()
	server := httptest.NewServer(signaling.NewRelay(discardLogger()))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testStore(t *testing.T) *pairing.Store {
	t.Helper()
	return pairing.NewStore(filepath.Join(t.TempDir(), "judge_code"))
}

// startFakeJudge joins the session room and serves a minimal judge:
// the language push on channel open, canned execute responses echoing
// the input, and the languages call.
func startFakeJudge(t *testing.T, relayURL, code string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	channel, err := signaling.Connect(ctx, relayURL, code, signaling.RoleJudge, discardLogger())
	if err != nil {
		t.Fatalf("fake judge Connect: %v", err)
	}
	t.Cleanup(func() { channel.Close() })
	acceptor := transport.NewAcceptor(channel, transport.ICEConfig{}, discardLogger())

	go func() {
		peer, err := acceptor.Accept(ctx)
		if err != nil {
			return
		}
		defer peer.Close()
		peer.Send([]byte(`{"languages":{"python":"Python 3.11.2","java":null}}`))
		for {
			select {
			case msg := <-peer.Messages():
				var request struct {
					Type  string `json:"type"`
					MsgID uint64 `json:"_msgId"`
					Input string `json:"input"`
				}
				if err := json.Unmarshal(msg, &request); err != nil {
					continue
				}
				switch request.Type {
				case "languages":
					peer.Send([]byte(fmt.Sprintf(
						`{"_msgId":%d,"languages":{"python":"Python 3.11.2","java":null}}`, request.MsgID)))
				case "execute":
					result, _ := json.Marshal(strings.TrimSpace(request.Input))
					peer.Send([]byte(fmt.Sprintf(
						`{"_msgId":%d,"results":[{"testCase":1,"input":"","expectedOutput":"","actualOutput":%s,"stderr":"","passed":null}],"summary":{"total":1,"passed":0,"failed":0,"noExpectedOutput":1}}`,
						request.MsgID, result)))
				default:
					peer.Send([]byte(fmt.Sprintf(`{"_msgId":%d,"error":"Unknown message type"}`, request.MsgID)))
				}
			case <-peer.Done():
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func waitStatus(t *testing.T, sub *Subscription, want Status) StatusUpdate {
	t.Helper()
	deadline := time.After(30 * time.Second)
	for {
		select {
		case update := <-sub.C:
			if update.Status == want {
				return update
			}
		case <-deadline:
			t.Fatalf("never reached status %v", want)
		}
	}
}

func TestClient_PairExecuteDisconnect(t *testing.T) {
	relayURL := testRelay(t)
	startFakeJudge(t, relayURL, "AAAA1111")

	client := New(testStore(t), relayURL, discardLogger())
	sub := client.Subscribe()
	defer sub.Cancel()
	if update := <-sub.C; update.Status != StatusDisconnected {
		t.Fatalf("initial status = %v, want disconnected", update.Status)
	}

	code, err := client.SetCode("aaaa-1111")
	if err != nil {
		t.Fatalf("SetCode: %v", err)
	}
	if code != "AAAA1111" {
		t.Errorf("SetCode returned %q, want %q", code, "AAAA1111")
	}
	waitStatus(t, sub, StatusConnected)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := client.ExecuteCode(ctx, "print(input())", "python", "42\n")
	if err != nil {
		t.Fatalf("ExecuteCode: %v", err)
	}
	if result.Stdout != "42" {
		t.Errorf("Stdout = %q, want %q", result.Stdout, "42")
	}
	if result.Summary.Total != 1 || result.Summary.NoExpectedOutput != 1 {
		t.Errorf("Summary = %+v", result.Summary)
	}

	languages, err := client.Languages(ctx)
	if err != nil {
		t.Fatalf("Languages: %v", err)
	}
	if !languages.Available("python") {
		t.Error("python should be available")
	}
	if languages.Available("java") {
		t.Error("java should be unavailable")
	}

	client.Disconnect()
	waitStatus(t, sub, StatusDisconnected)
	if _, err := client.ExecuteCode(ctx, "x", "python", ""); !errors.Is(err, ErrNotConnected) {
		t.Errorf("ExecuteCode after Disconnect = %v, want ErrNotConnected", err)
	}
}

func TestClient_AutoConnectsFromStoredCode(t *testing.T) {
	relayURL := testRelay(t)
	startFakeJudge(t, relayURL, "BBBB2222")

	store := testStore(t)
	if _, err := store.Set("bbbb2222"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	client := New(store, relayURL, discardLogger())
	sub := client.Subscribe()
	defer sub.Cancel()
	waitStatus(t, sub, StatusConnected)
}

func TestClient_RejectsBeforePairing(t *testing.T) {
	client := New(testStore(t), "ws://127.0.0.1:1/ws", discardLogger())

	if got := client.Status().Status; got != StatusDisconnected {
		t.Errorf("Status = %v, want disconnected", got)
	}
	if _, err := client.ExecuteCode(context.Background(), "x", "python", ""); !errors.Is(err, ErrNotConnected) {
		t.Errorf("ExecuteCode = %v, want ErrNotConnected", err)
	}
	if _, err := client.Languages(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Languages = %v, want ErrNotConnected", err)
	}
	if err := client.Reconnect(); !errors.Is(err, ErrNoCode) {
		t.Errorf("Reconnect = %v, want ErrNoCode", err)
	}
}

func TestClient_SetCodeInvalidKeepsState(t *testing.T) {
	store := testStore(t)
	client := New(store, "ws://127.0.0.1:1/ws", discardLogger())

	if _, err := client.SetCode("abc-123"); !errors.Is(err, pairing.ErrInvalidCode) {
		t.Fatalf("SetCode = %v, want ErrInvalidCode", err)
	}
	if code := store.Code(); code != "" {
		t.Errorf("store code = %q, want empty", code)
	}
	if got := client.Status().Status; got != StatusDisconnected {
		t.Errorf("Status = %v, want disconnected", got)
	}
}

func TestClient_ClearCode(t *testing.T) {
	relayURL := testRelay(t)
	startFakeJudge(t, relayURL, "CCCC3333")

	store := testStore(t)
	client := New(store, relayURL, discardLogger())
	sub := client.Subscribe()
	defer sub.Cancel()

	if _, err := client.SetCode("cccc3333"); err != nil {
		t.Fatalf("SetCode: %v", err)
	}
	waitStatus(t, sub, StatusConnected)

	if err := client.ClearCode(); err != nil {
		t.Fatalf("ClearCode: %v", err)
	}
	waitStatus(t, sub, StatusDisconnected)
	if code := store.Code(); code != "" {
		t.Errorf("store code = %q, want empty", code)
	}
}
