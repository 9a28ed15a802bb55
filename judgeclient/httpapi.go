// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package judgeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pepper-platform/pepper/judgerpc"
)

// HTTPClient talks to a judge's plain HTTP endpoints. It is the
// fallback for judges reachable without pairing, typically on
// localhost.
type HTTPClient struct {
	base   string
	client *http.Client
}

// HTTPOption adjusts NewHTTPClient behavior.
type HTTPOption func(*HTTPClient)

// WithHTTPDoer substitutes the underlying http.Client.
func WithHTTPDoer(client *http.Client) HTTPOption {
	return func(c *HTTPClient) { c.client = client }
}

// NewHTTPClient builds a client for the judge at baseURL.
func NewHTTPClient(baseURL string, options ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		base:   strings.TrimRight(baseURL, "/"),
		client: http.DefaultClient,
	}
	for _, o := range options {
		o(c)
	}
	return c
}

// Languages fetches toolchain availability.
func (c *HTTPClient) Languages(ctx context.Context) (judgerpc.LanguageSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/languages", nil)
	if err != nil {
		return nil, err
	}
	var set judgerpc.LanguageSet
	if err := c.do(req, &set); err != nil {
		return nil, err
	}
	return set, nil
}

// ExecuteCode runs code against a single stdin input, mapping the
// first result to the legacy stdout/stderr shape.
func (c *HTTPClient) ExecuteCode(ctx context.Context, code, language, input string) (*ExecuteCodeResult, error) {
	var response judgerpc.ExecuteResponse
	err := c.post(ctx, "/execute", judgerpc.ExecuteRequest{
		Code:     code,
		Language: language,
		Input:    input,
	}, &response)
	if err != nil {
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
func (c *HTTPClient) ExecuteWithTestCases(ctx context.Context, code, language string, cases []judgerpc.TestCase) (*judgerpc.ExecuteResponse, error) {
	var response judgerpc.ExecuteResponse
	err := c.post(ctx, "/execute", judgerpc.ExecuteRequest{
		Code:      code,
		Language:  language,
		TestCases: cases,
	}, &response)
	if err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("judge http: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("judge http: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var remote struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &remote) == nil && remote.Error != "" {
			return &RemoteError{Message: remote.Error}
		}
		return fmt.Errorf("judge http: %s returned %s", req.URL.Path, resp.Status)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("judge http: decoding response: %w", err)
	}
	return nil
}
