// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pepper-platform/pepper/judgerpc"
)

// TestCaseSource supplies a problem's test cases.
type TestCaseSource interface {
	Fetch(ctx context.Context, problemSlug string) ([]judgerpc.TestCase, error)
}

// ContentSource fetches test cases from the content server and caches
// each input/output file locally, so previously judged problems work
// offline.
type ContentSource struct {
	baseURL  string
	cacheDir string
	client   *http.Client
	logger   *slog.Logger
}

// NewContentSource builds a source for the content server at baseURL,
// caching files under cacheDir (created on demand).
func NewContentSource(baseURL, cacheDir string, logger *slog.Logger) *ContentSource {
	return &ContentSource{
		baseURL:  strings.TrimRight(baseURL, "/"),
		cacheDir: cacheDir,
		client:   http.DefaultClient,
		logger:   logger,
	}
}

// problemManifest is the slice of the problem JSON the judge needs:
// the test-case file names.
type problemManifest struct {
	TestCases []struct {
		Input  string `json:"input"`
		Output string `json:"output"`
	} `json:"testCases"`
}

// Fetch loads a problem's test cases, preferring cached files. A file
// that can be neither read nor fetched skips its case rather than
// failing the whole problem.
func (s *ContentSource) Fetch(ctx context.Context, problemSlug string) ([]judgerpc.TestCase, error) {
	manifest, err := s.fetchManifest(ctx, problemSlug)
	if err != nil {
		return nil, err
	}

	var cases []judgerpc.TestCase
	for _, entry := range manifest.TestCases {
		input, err := s.loadFile(ctx, problemSlug, entry.Input)
		if err != nil {
			s.logger.Warn("skipping test case, input unavailable",
				"problem", problemSlug, "file", entry.Input, "error", err)
			continue
		}
		output, err := s.loadFile(ctx, problemSlug, entry.Output)
		if err != nil {
			s.logger.Warn("skipping test case, output unavailable",
				"problem", problemSlug, "file", entry.Output, "error", err)
			continue
		}
		cases = append(cases, judgerpc.TestCase{Input: input, ExpectedOutput: output})
	}
	return cases, nil
}

func (s *ContentSource) fetchManifest(ctx context.Context, problemSlug string) (*problemManifest, error) {
	url := fmt.Sprintf("%s/database/problems/%s.json", s.baseURL, problemSlug)
	body, err := s.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetching problem %s: %w", problemSlug, err)
	}
	var manifest problemManifest
	if err := json.Unmarshal(body, &manifest); err != nil {
		return nil, fmt.Errorf("decoding problem %s: %w", problemSlug, err)
	}
	return &manifest, nil
}

// loadFile returns a test-case file's trimmed contents, fetching and
// caching it on first use.
func (s *ContentSource) loadFile(ctx context.Context, problemSlug, filename string) (string, error) {
	path := s.cachePath(problemSlug, filename)
	if data, err := os.ReadFile(path); err == nil {
		return strings.TrimSpace(string(data)), nil
	}

	url := fmt.Sprintf("%s/database/testcases/%s/%s", s.baseURL, problemSlug, filename)
	body, err := s.get(ctx, url)
	if err != nil {
		return "", err
	}
	data := strings.TrimSpace(string(body))

	if err := os.MkdirAll(s.cacheDir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		s.logger.Warn("caching test case file failed", "path", path, "error", err)
	}
	return data, nil
}

// cachePath flattens the slug and filename into the cache directory
// so path separators cannot escape it.
func (s *ContentSource) cachePath(problemSlug, filename string) string {
	flatten := strings.NewReplacer("/", "_", "\\", "_")
	return filepath.Join(s.cacheDir, flatten.Replace(problemSlug)+"__"+flatten.Replace(filename))
}

func (s *ContentSource) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 16<<20))
}
