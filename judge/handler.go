// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pepper-platform/pepper/judgerpc"
)

// Handler implements the judge RPC operations. The data-channel path
// feeds it raw frames via HandleFrame; the HTTP fallback calls the
// typed methods directly.
type Handler struct {
	store  *SubmissionStore
	source TestCaseSource
	logger *slog.Logger

	execute func(ctx context.Context, language, code, input string) (string, string, error)
	detect  func(ctx context.Context) judgerpc.LanguageSet
}

// HandlerOption adjusts NewHandler behavior.
type HandlerOption func(*Handler)

// WithExecuteFunc substitutes the code executor.
func WithExecuteFunc(fn func(ctx context.Context, language, code, input string) (string, string, error)) HandlerOption {
	return func(h *Handler) { h.execute = fn }
}

// WithDetectFunc substitutes toolchain detection.
func WithDetectFunc(fn func(ctx context.Context) judgerpc.LanguageSet) HandlerOption {
	return func(h *Handler) { h.detect = fn }
}

// NewHandler builds a handler over the submission store and test-case
// source.
func NewHandler(store *SubmissionStore, source TestCaseSource, logger *slog.Logger, options ...HandlerOption) *Handler {
	h := &Handler{
		store:   store,
		source:  source,
		logger:  logger,
		execute: Execute,
		detect:  DetectLanguages,
	}
	for _, o := range options {
		o(h)
	}
	return h
}

// Languages probes the host toolchains.
func (h *Handler) Languages(ctx context.Context) judgerpc.LanguagesResponse {
	return judgerpc.LanguagesResponse{Languages: h.detect(ctx)}
}

// LanguagePush renders the unsolicited announcement sent when a data
// channel opens. It carries no correlation id.
func (h *Handler) LanguagePush(ctx context.Context) []byte {
	payload, err := json.Marshal(h.Languages(ctx))
	if err != nil {
		h.logger.Error("encoding language push", "error", err)
		return []byte(`{"languages":{}}`)
	}
	return payload
}

// HandleFrame processes one request frame and returns the response
// frame. The response echoes the request's correlation id when it had
// one; failures become an error response rather than silence.
func (h *Handler) HandleFrame(ctx context.Context, frame []byte) []byte {
	var envelope struct {
		Type  string  `json:"type"`
		MsgID *uint64 `json:"_msgId"`
	}
	if err := json.Unmarshal(frame, &envelope); err != nil {
		h.logger.Warn("malformed request frame", "error", err)
		return stampMsgID(map[string]any{"error": "malformed request"}, nil)
	}

	response, err := h.dispatch(ctx, envelope.Type, frame)
	if err != nil {
		h.logger.Warn("request failed", "type", envelope.Type, "error", err)
		return stampMsgID(map[string]any{"error": err.Error()}, envelope.MsgID)
	}
	return stampMsgID(response, envelope.MsgID)
}

func (h *Handler) dispatch(ctx context.Context, messageType string, frame []byte) (any, error) {
	switch messageType {
	case judgerpc.TypeLanguages:
		return h.Languages(ctx), nil

	case judgerpc.TypeExecute:
		var request judgerpc.ExecuteRequest
		if err := json.Unmarshal(frame, &request); err != nil {
			return nil, fmt.Errorf("decoding execute request: %w", err)
		}
		return h.ExecuteCases(ctx, request)

	case judgerpc.TypeSubmit:
		var request judgerpc.SubmitRequest
		if err := json.Unmarshal(frame, &request); err != nil {
			return nil, fmt.Errorf("decoding submit request: %w", err)
		}
		return h.Submit(ctx, request)

	case judgerpc.TypeSubmissionHistory:
		var request judgerpc.SubmissionHistoryRequest
		if err := json.Unmarshal(frame, &request); err != nil {
			return nil, fmt.Errorf("decoding history request: %w", err)
		}
		return h.SubmissionHistory(ctx, request)

	case judgerpc.TypeCheckProblemsStatus:
		var request judgerpc.CheckProblemsStatusRequest
		if err := json.Unmarshal(frame, &request); err != nil {
			return nil, fmt.Errorf("decoding status request: %w", err)
		}
		return h.CheckProblemsStatus(ctx, request.ProblemSlugs)

	case judgerpc.TypeSubmissionStats:
		stats, err := h.store.Stats(ctx)
		if err != nil {
			return nil, err
		}
		return judgerpc.SubmissionStatsResponse{Stats: stats}, nil

	case judgerpc.TypeRecentSubmissions:
		var request judgerpc.RecentSubmissionsRequest
		if err := json.Unmarshal(frame, &request); err != nil {
			return nil, fmt.Errorf("decoding recent request: %w", err)
		}
		recent, err := h.store.Recent(ctx, request.Limit)
		if err != nil {
			return nil, err
		}
		if recent == nil {
			recent = []judgerpc.Submission{}
		}
		return judgerpc.RecentSubmissionsResponse{RecentSubmissions: recent, Count: len(recent)}, nil

	default:
		return nil, errors.New("Unknown message type")
	}
}

// ExecuteCases runs a request's test cases. A request without explicit
// cases runs once with its input and no expectation.
func (h *Handler) ExecuteCases(ctx context.Context, request judgerpc.ExecuteRequest) (*judgerpc.ExecuteResponse, error) {
	if !Supported(request.Language) {
		return nil, errors.New("Unsupported language")
	}
	cases := request.TestCases
	if len(cases) == 0 {
		cases = []judgerpc.TestCase{{Input: request.Input}}
	}
	results := h.runTestCases(ctx, request.Language, request.Code, cases)
	return &judgerpc.ExecuteResponse{Results: results, Summary: summarize(results)}, nil
}

// Submit judges code against a problem's full test-case set, stopping
// at the first failure, and records the outcome.
func (h *Handler) Submit(ctx context.Context, request judgerpc.SubmitRequest) (*judgerpc.SubmitResponse, error) {
	if !Supported(request.Language) {
		return nil, errors.New("Unsupported language")
	}
	if request.ProblemSlug == "" {
		return nil, errors.New("Problem slug is required")
	}

	cases, err := h.source.Fetch(ctx, request.ProblemSlug)
	if err != nil {
		h.logger.Warn("fetching test cases failed", "problem", request.ProblemSlug, "error", err)
	}
	if len(cases) == 0 {
		message := "No test cases found for this problem"
		id, err := h.store.Add(ctx, request.ProblemSlug, request.Language, request.Code,
			judgerpc.StatusError, nil, message)
		if err != nil {
			return nil, err
		}
		return &judgerpc.SubmitResponse{Error: message, SubmissionID: id}, nil
	}

	var results []judgerpc.TestResult
	var failed *judgerpc.TestResult
	for i, testCase := range cases {
		result := h.runTestCase(ctx, request.Language, request.Code, i+1, testCase, true)
		results = append(results, result)
		if result.Passed == nil || !*result.Passed {
			failed = &results[len(results)-1]
			break
		}
	}

	if failed != nil {
		message := fmt.Sprintf("Test case %d failed", failed.TestCase)
		id, err := h.store.Add(ctx, request.ProblemSlug, request.Language, request.Code,
			judgerpc.StatusFailed, map[string]any{
				"total_test_cases":  len(cases),
				"passed_test_cases": len(results) - 1,
				"failed_test_case":  failed,
			}, message)
		if err != nil {
			return nil, err
		}
		return &judgerpc.SubmitResponse{
			Failed:         true,
			FailedTestCase: failed,
			TestCaseNumber: failed.TestCase,
			Message:        message,
			SubmissionID:   id,
		}, nil
	}

	id, err := h.store.Add(ctx, request.ProblemSlug, request.Language, request.Code,
		judgerpc.StatusSuccess, map[string]any{
			"total_test_cases":  len(cases),
			"passed_test_cases": len(results),
			"all_passed":        true,
		}, "")
	if err != nil {
		return nil, err
	}
	return &judgerpc.SubmitResponse{
		AllPassed:    true,
		Message:      "All test cases passed!",
		SubmissionID: id,
	}, nil
}

// SubmissionHistory lists a problem's submissions, trimming code and
// stored results unless asked for.
func (h *Handler) SubmissionHistory(ctx context.Context, request judgerpc.SubmissionHistoryRequest) (*judgerpc.SubmissionHistoryResponse, error) {
	if request.ProblemSlug == "" {
		return nil, errors.New("Problem slug is required")
	}
	history, err := h.store.History(ctx, request.ProblemSlug)
	if err != nil {
		return nil, err
	}
	summaries := make([]judgerpc.Submission, 0, len(history))
	for _, submission := range history {
		submission.ProblemSlug = ""
		if !request.IncludeCode {
			submission.Code = ""
		}
		summaries = append(summaries, submission)
	}
	return &judgerpc.SubmissionHistoryResponse{
		ProblemSlug:      request.ProblemSlug,
		History:          summaries,
		TotalSubmissions: len(summaries),
	}, nil
}

// CheckProblemsStatus reports verdicts and counts for a slug list.
func (h *Handler) CheckProblemsStatus(ctx context.Context, problemSlugs []string) (*judgerpc.CheckProblemsStatusResponse, error) {
	statuses, err := h.store.CheckStatuses(ctx, problemSlugs)
	if err != nil {
		return nil, err
	}
	response := &judgerpc.CheckProblemsStatusResponse{
		ProblemStatuses: statuses,
		TotalProblems:   len(problemSlugs),
	}
	for _, status := range statuses {
		switch status {
		case judgerpc.StatusSuccess:
			response.SolvedCount++
		case judgerpc.StatusFailed:
			response.FailedCount++
		case judgerpc.StatusError:
			response.ErrorCount++
		case judgerpc.StatusNotAttempted:
			response.NotAttemptedCount++
		}
	}
	return response, nil
}

func (h *Handler) runTestCases(ctx context.Context, language, code string, cases []judgerpc.TestCase) []judgerpc.TestResult {
	results := make([]judgerpc.TestResult, 0, len(cases))
	for i, testCase := range cases {
		results = append(results, h.runTestCase(ctx, language, code, i+1, testCase, false))
	}
	return results
}

// runTestCase executes one case. With forceCompare (the submit path)
// an empty expectation still counts as a comparison, so Passed is
// never nil there.
func (h *Handler) runTestCase(ctx context.Context, language, code string, number int, testCase judgerpc.TestCase, forceCompare bool) judgerpc.TestResult {
	expected := strings.TrimSpace(testCase.ExpectedOutput)
	result := judgerpc.TestResult{
		TestCase:       number,
		Input:          testCase.Input,
		ExpectedOutput: expected,
	}

	stdout, stderr, err := h.execute(ctx, language, code, testCase.Input)
	if err != nil {
		failed := false
		result.Passed = &failed
		result.Stderr = err.Error()
		result.Error = err.Error()
		return result
	}

	result.ActualOutput = strings.TrimSpace(stdout)
	result.Stderr = stderr
	if expected != "" || forceCompare {
		passed, diff := CompareOutputs(result.ActualOutput, expected)
		result.Passed = &passed
		result.Diff = diff
	}
	return result
}

func summarize(results []judgerpc.TestResult) judgerpc.Summary {
	summary := judgerpc.Summary{Total: len(results)}
	for _, result := range results {
		switch {
		case result.Passed == nil:
			summary.NoExpectedOutput++
		case *result.Passed:
			summary.Passed++
		default:
			summary.Failed++
		}
	}
	return summary
}

// stampMsgID injects the correlation id into an already-built response
// value.
func stampMsgID(response any, id *uint64) []byte {
	encoded, err := json.Marshal(response)
	if err != nil {
		return []byte(`{"error":"encoding response failed"}`)
	}
	if id == nil {
		return encoded
	}
	var fields map[string]any
	if err := json.Unmarshal(encoded, &fields); err != nil {
		return encoded
	}
	fields["_msgId"] = *id
	stamped, err := json.Marshal(fields)
	if err != nil {
		return encoded
	}
	return stamped
}
