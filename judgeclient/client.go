// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package judgeclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pepper-platform/pepper/judgerpc"
	"github.com/pepper-platform/pepper/lib/clock"
	"github.com/pepper-platform/pepper/pairing"
	"github.com/pepper-platform/pepper/signaling"
	"github.com/pepper-platform/pepper/transport"
)

// Status is the connection state the controller derives for the whole
// client. Nothing else writes it.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// StatusUpdate pairs a status with an optional human-readable message.
type StatusUpdate struct {
	Status  Status
	Message string
}

// Subscription delivers status updates on C until Cancel. Slow
// subscribers miss intermediate updates rather than blocking the
// controller.
type Subscription struct {
	C      <-chan StatusUpdate
	cancel func()
}

// Cancel stops delivery. Safe to call more than once.
func (s *Subscription) Cancel() { s.cancel() }

// ClientOption adjusts New behavior.
type ClientOption func(*Client)

// WithICEConfig overrides the default STUN configuration.
func WithICEConfig(cfg transport.ICEConfig) ClientOption {
	return func(c *Client) { c.ice = cfg }
}

// WithClock substitutes the clock used for dial and call timeouts.
func WithClock(clk clock.Clock) ClientOption {
	return func(c *Client) { c.clk = clk }
}

// Client pairs with a judge through the relay and exposes its RPC
// operations. One Client serves one pairing code at a time.
type Client struct {
	store    *pairing.Store
	relayURL string
	ice      transport.ICEConfig
	logger   *slog.Logger
	clk      clock.Clock

	mu        sync.Mutex
	gen       uint64
	status    Status
	message   string
	session   *session
	languages judgerpc.LanguageSet
	subs      map[*Subscription]chan StatusUpdate
}

type session struct {
	channel *signaling.Channel
	peer    *transport.PeerChannel
	corr    *Correlator
}

func (s *session) close() {
	s.peer.Close()
	s.channel.Close()
}

// New builds a client over the relay at relayURL. A pairing code
// already in store triggers a background connection attempt.
func New(store *pairing.Store, relayURL string, logger *slog.Logger, options ...ClientOption) *Client {
	c := &Client{
		store:    store,
		relayURL: relayURL,
		ice:      transport.DefaultICEConfig(),
		logger:   logger,
		clk:      clock.Real(),
		status:   StatusDisconnected,
		subs:     make(map[*Subscription]chan StatusUpdate),
	}
	for _, o := range options {
		o(c)
	}
	if code := store.Code(); code != "" {
		go c.connect(0, code)
	}
	return c
}

// connect runs one full attempt: signaling, then the data channel.
// gen guards against attempts outliving a SetCode/Disconnect that
// superseded them.
func (c *Client) connect(gen uint64, code string) {
	if !c.setStatus(gen, StatusConnecting, "connecting to judge "+pairing.Format(code)) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	channel, err := signaling.Connect(ctx, c.relayURL, code, signaling.RoleBrowser, c.logger)
	if err != nil {
		c.setStatus(gen, StatusError, fmt.Sprintf("signaling: %v", err))
		return
	}
	peer, err := transport.Dial(ctx, channel, c.ice, c.logger, transport.WithClock(c.clk))
	if err != nil {
		channel.Close()
		c.setStatus(gen, StatusError, fmt.Sprintf("transport: %v", err))
		return
	}

	sess := &session{
		channel: channel,
		peer:    peer,
		corr:    NewCorrelator(peer, c.logger, WithCallClock(c.clk)),
	}
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		sess.close()
		return
	}
	c.session = sess
	c.mu.Unlock()

	c.setStatus(gen, StatusConnected, "connected to judge")
	go c.watch(gen, sess)
	go c.consumePushes(gen, sess.corr)
}

// watch turns transport death into a status change, unless a newer
// generation already took over.
func (c *Client) watch(gen uint64, sess *session) {
	<-sess.peer.Done()
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.session = nil
	c.languages = nil
	c.mu.Unlock()
	sess.close()
	if err := sess.peer.Err(); err != nil {
		c.setStatus(gen, StatusError, err.Error())
	} else {
		c.setStatus(gen, StatusDisconnected, "judge disconnected")
	}
}

// consumePushes caches the language announcement the judge sends on
// channel open.
func (c *Client) consumePushes(gen uint64, corr *Correlator) {
	for set := range corr.Pushes() {
		c.mu.Lock()
		if c.gen == gen {
			c.languages = set
		}
		c.mu.Unlock()
	}
}

// setStatus publishes a status change for generation gen. It reports
// false without side effects when gen is stale.
func (c *Client) setStatus(gen uint64, status Status, message string) bool {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return false
	}
	c.status = status
	c.message = message
	update := StatusUpdate{Status: status, Message: message}
	targets := make([]chan StatusUpdate, 0, len(c.subs))
	for _, ch := range c.subs {
		targets = append(targets, ch)
	}
	c.mu.Unlock()

	for _, ch := range targets {
		select {
		case ch <- update:
		default:
		}
	}
	return true
}

// bump invalidates the current generation and detaches its session.
func (c *Client) bump() (uint64, *session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	old := c.session
	c.session = nil
	c.languages = nil
	return c.gen, old
}

// Status reports the current status and message.
func (c *Client) Status() StatusUpdate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return StatusUpdate{Status: c.status, Message: c.message}
}

// Subscribe registers for status updates. The current status is
// delivered first.
func (c *Client) Subscribe() *Subscription {
	ch := make(chan StatusUpdate, 8)
	sub := &Subscription{C: ch}
	var once sync.Once
	sub.cancel = func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, sub)
			c.mu.Unlock()
		})
	}
	c.mu.Lock()
	c.subs[sub] = ch
	current := StatusUpdate{Status: c.status, Message: c.message}
	c.mu.Unlock()
	ch <- current
	return sub
}

// SetCode normalizes and persists a new pairing code, tears down any
// session for the old code, and starts connecting to the new judge.
// The cleaned code is returned for display.
func (c *Client) SetCode(raw string) (string, error) {
	code, err := c.store.Set(raw)
	if err != nil {
		return "", err
	}
	gen, old := c.bump()
	if old != nil {
		old.close()
	}
	go c.connect(gen, code)
	return code, nil
}

// ClearCode forgets the stored pairing code and disconnects. The next
// connection needs a fresh SetCode; the old session id is never
// reused.
func (c *Client) ClearCode() error {
	if err := c.store.Clear(); err != nil {
		return err
	}
	gen, old := c.bump()
	if old != nil {
		old.close()
	}
	c.setStatus(gen, StatusDisconnected, "pairing cleared")
	return nil
}

// Disconnect tears down the session but keeps the stored code.
func (c *Client) Disconnect() {
	gen, old := c.bump()
	if old != nil {
		old.close()
	}
	c.setStatus(gen, StatusDisconnected, "disconnected")
}

// Reconnect starts a fresh attempt with the stored code.
func (c *Client) Reconnect() error {
	code := c.store.Code()
	if code == "" {
		return ErrNoCode
	}
	gen, old := c.bump()
	if old != nil {
		old.close()
	}
	go c.connect(gen, code)
	return nil
}

// call routes one RPC through the current session. Operations fail
// with ErrNotConnected before any network activity when there is none.
func (c *Client) call(ctx context.Context, request Request) (json.RawMessage, error) {
	c.mu.Lock()
	if c.status != StatusConnected || c.session == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	corr := c.session.corr
	c.mu.Unlock()
	return corr.Call(ctx, request)
}

func (c *Client) callInto(ctx context.Context, request Request, out any) error {
	payload, err := c.call(ctx, request)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decoding judge response: %w", err)
	}
	return nil
}

// Languages returns the judge's toolchain availability. The set pushed
// on connect (or fetched once) is cached for the life of the
// connection.
func (c *Client) Languages(ctx context.Context) (judgerpc.LanguageSet, error) {
	c.mu.Lock()
	cached := c.languages
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	request := &judgerpc.LanguagesRequest{Envelope: judgerpc.Envelope{Type: judgerpc.TypeLanguages}}
	var response judgerpc.LanguagesResponse
	if err := c.callInto(ctx, request, &response); err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.session != nil {
		c.languages = response.Languages
	}
	c.mu.Unlock()
	return response.Languages, nil
}

// ExecuteCodeResult is the legacy single-input execution shape: the
// first case's output under Stdout/Stderr, full results alongside.
type ExecuteCodeResult struct {
	Stdout  string
	Stderr  string
	Results []judgerpc.TestResult
	Summary judgerpc.Summary
}

// ExecuteCode runs code against a single stdin input.
func (c *Client) ExecuteCode(ctx context.Context, code, language, input string) (*ExecuteCodeResult, error) {
	request := &judgerpc.ExecuteRequest{
		Envelope: judgerpc.Envelope{Type: judgerpc.TypeExecute},
		Code:     code,
		Language: language,
		Input:    input,
	}
	var response judgerpc.ExecuteResponse
	if err := c.callInto(ctx, request, &response); err != nil {
		return nil, err
	}
	result := &ExecuteCodeResult{Results: response.Results, Summary: response.Summary}
	if len(response.Results) > 0 {
		result.Stdout = response.Results[0].ActualOutput
		result.Stderr = response.Results[0].Stderr
	}
	return result, nil
}

// ExecuteWithTestCases runs code against explicit test cases.
func (c *Client) ExecuteWithTestCases(ctx context.Context, code, language string, cases []judgerpc.TestCase) (*judgerpc.ExecuteResponse, error) {
	request := &judgerpc.ExecuteRequest{
		Envelope:  judgerpc.Envelope{Type: judgerpc.TypeExecute},
		Code:      code,
		Language:  language,
		TestCases: cases,
	}
	var response judgerpc.ExecuteResponse
	if err := c.callInto(ctx, request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// SubmitWithTestCases judges code against a problem's full test-case
// set on the judge side.
func (c *Client) SubmitWithTestCases(ctx context.Context, code, language, problemSlug string) (*judgerpc.SubmitResponse, error) {
	request := &judgerpc.SubmitRequest{
		Envelope:    judgerpc.Envelope{Type: judgerpc.TypeSubmit},
		Code:        code,
		Language:    language,
		ProblemSlug: problemSlug,
	}
	var response judgerpc.SubmitResponse
	if err := c.callInto(ctx, request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// SubmissionHistory lists past submissions for one problem.
func (c *Client) SubmissionHistory(ctx context.Context, problemSlug string, includeCode bool) (*judgerpc.SubmissionHistoryResponse, error) {
	request := &judgerpc.SubmissionHistoryRequest{
		Envelope:    judgerpc.Envelope{Type: judgerpc.TypeSubmissionHistory},
		ProblemSlug: problemSlug,
		IncludeCode: includeCode,
	}
	var response judgerpc.SubmissionHistoryResponse
	if err := c.callInto(ctx, request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// CheckProblemsStatus reports best-known verdicts for a set of
// problems.
func (c *Client) CheckProblemsStatus(ctx context.Context, problemSlugs []string) (*judgerpc.CheckProblemsStatusResponse, error) {
	request := &judgerpc.CheckProblemsStatusRequest{
		Envelope:     judgerpc.Envelope{Type: judgerpc.TypeCheckProblemsStatus},
		ProblemSlugs: problemSlugs,
	}
	var response judgerpc.CheckProblemsStatusResponse
	if err := c.callInto(ctx, request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// SubmissionStats reports store-wide aggregates.
func (c *Client) SubmissionStats(ctx context.Context) (*judgerpc.Stats, error) {
	request := &judgerpc.SubmissionStatsRequest{Envelope: judgerpc.Envelope{Type: judgerpc.TypeSubmissionStats}}
	var response judgerpc.SubmissionStatsResponse
	if err := c.callInto(ctx, request, &response); err != nil {
		return nil, err
	}
	return &response.Stats, nil
}

// RecentSubmissions lists the most recent submissions across all
// problems.
func (c *Client) RecentSubmissions(ctx context.Context, limit int) ([]judgerpc.Submission, error) {
	request := &judgerpc.RecentSubmissionsRequest{
		Envelope: judgerpc.Envelope{Type: judgerpc.TypeRecentSubmissions},
		Limit:    limit,
	}
	var response judgerpc.RecentSubmissionsResponse
	if err := c.callInto(ctx, request, &response); err != nil {
		return nil, err
	}
	return response.RecentSubmissions, nil
}
