// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package judge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/pepper-platform/pepper/judgerpc"
)

// fakeSource serves canned test cases per problem.
type fakeSource struct {
	cases map[string][]judgerpc.TestCase
	err   error
}

func (f *fakeSource) Fetch(ctx context.Context, problemSlug string) ([]judgerpc.TestCase, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.cases[problemSlug], nil
}

// echoExecutor "runs" code by echoing the input, with a couple of
// magic inputs for failure modes.
func echoExecutor(ctx context.Context, language, code, input string) (string, string, error) {
	switch strings.TrimSpace(input) {
	case "crash":
		return "", "", errors.New("judge: execution timed out after 5s")
	case "wrong":
		return "not the answer", "", nil
	}
	return input, "", nil
}

func testHandler(t *testing.T, source TestCaseSource) *Handler {
	t.Helper()
	store, _ := testSubmissionStore(t)
	if source == nil {
		source = &fakeSource{}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(store, source, logger,
		WithExecuteFunc(echoExecutor),
		WithDetectFunc(func(ctx context.Context) judgerpc.LanguageSet {
			return judgerpc.LanguageSet{"python": {Available: true, Version: "Python 3.11.2"}}
		}))
}

func TestHandler_ExecuteSingleInput(t *testing.T) {
	h := testHandler(t, nil)
	response, err := h.ExecuteCases(context.Background(), judgerpc.ExecuteRequest{
		Code:     "print(input())",
		Language: "python",
		Input:    "hello\n",
	})
	if err != nil {
		t.Fatalf("ExecuteCases: %v", err)
	}
	if len(response.Results) != 1 {
		t.Fatalf("Results length = %d, want 1", len(response.Results))
	}
	result := response.Results[0]
	if result.ActualOutput != "hello" {
		t.Errorf("ActualOutput = %q", result.ActualOutput)
	}
	if result.Passed != nil {
		t.Error("Passed should be nil without an expected output")
	}
	if response.Summary.NoExpectedOutput != 1 || response.Summary.Total != 1 {
		t.Errorf("Summary = %+v", response.Summary)
	}
}

func TestHandler_ExecuteTestCases(t *testing.T) {
	h := testHandler(t, nil)
	response, err := h.ExecuteCases(context.Background(), judgerpc.ExecuteRequest{
		Code:     "code",
		Language: "python",
		TestCases: []judgerpc.TestCase{
			{Input: "1", ExpectedOutput: "1"},
			{Input: "wrong", ExpectedOutput: "2"},
			{Input: "crash", ExpectedOutput: "3"},
		},
	})
	if err != nil {
		t.Fatalf("ExecuteCases: %v", err)
	}
	if got := response.Summary; got.Total != 3 || got.Passed != 1 || got.Failed != 2 {
		t.Errorf("Summary = %+v, want 3 total, 1 passed, 2 failed", got)
	}
	if response.Results[1].Diff == "" {
		t.Error("failing case should carry a diff")
	}
	if response.Results[2].Error == "" {
		t.Error("crashing case should carry an error")
	}
}

func TestHandler_ExecuteUnsupportedLanguage(t *testing.T) {
	h := testHandler(t, nil)
	_, err := h.ExecuteCases(context.Background(), judgerpc.ExecuteRequest{Code: "x", Language: "cobol"})
	if err == nil || err.Error() != "Unsupported language" {
		t.Errorf("err = %v, want Unsupported language", err)
	}
}

func TestHandler_SubmitAllPassed(t *testing.T) {
	source := &fakeSource{cases: map[string][]judgerpc.TestCase{
		"two-sum": {{Input: "1", ExpectedOutput: "1"}, {Input: "2", ExpectedOutput: "2"}},
	}}
	h := testHandler(t, source)

	response, err := h.Submit(context.Background(), judgerpc.SubmitRequest{
		Code: "code", Language: "python", ProblemSlug: "two-sum",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if response.Failed || !response.AllPassed {
		t.Errorf("verdict = %+v, want all passed", response)
	}
	if response.SubmissionID == "" {
		t.Error("missing submission id")
	}

	statuses, err := h.CheckProblemsStatus(context.Background(), []string{"two-sum"})
	if err != nil {
		t.Fatalf("CheckProblemsStatus: %v", err)
	}
	if statuses.ProblemStatuses["two-sum"] != judgerpc.StatusSuccess {
		t.Errorf("stored status = %q", statuses.ProblemStatuses["two-sum"])
	}
	if statuses.SolvedCount != 1 {
		t.Errorf("SolvedCount = %d", statuses.SolvedCount)
	}
}

func TestHandler_SubmitStopsAtFirstFailure(t *testing.T) {
	source := &fakeSource{cases: map[string][]judgerpc.TestCase{
		"two-sum": {
			{Input: "1", ExpectedOutput: "1"},
			{Input: "wrong", ExpectedOutput: "2"},
			{Input: "crash", ExpectedOutput: "3"},
		},
	}}
	h := testHandler(t, source)

	response, err := h.Submit(context.Background(), judgerpc.SubmitRequest{
		Code: "code", Language: "python", ProblemSlug: "two-sum",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !response.Failed {
		t.Fatal("verdict should be failed")
	}
	if response.TestCaseNumber != 2 {
		t.Errorf("TestCaseNumber = %d, want 2 (first failure, third case never runs)", response.TestCaseNumber)
	}
	if response.FailedTestCase == nil || response.FailedTestCase.ActualOutput != "not the answer" {
		t.Errorf("FailedTestCase = %+v", response.FailedTestCase)
	}
	if response.Message != "Test case 2 failed" {
		t.Errorf("Message = %q", response.Message)
	}

	history, err := h.SubmissionHistory(context.Background(), judgerpc.SubmissionHistoryRequest{ProblemSlug: "two-sum"})
	if err != nil {
		t.Fatalf("SubmissionHistory: %v", err)
	}
	if history.TotalSubmissions != 1 || history.History[0].Status != judgerpc.StatusFailed {
		t.Errorf("history = %+v", history)
	}
}

func TestHandler_SubmitNoTestCases(t *testing.T) {
	h := testHandler(t, &fakeSource{})
	response, err := h.Submit(context.Background(), judgerpc.SubmitRequest{
		Code: "code", Language: "python", ProblemSlug: "unknown-problem",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if response.Error != "No test cases found for this problem" {
		t.Errorf("Error = %q", response.Error)
	}
	if response.SubmissionID == "" {
		t.Error("the error submission must still be recorded")
	}

	statuses, err := h.CheckProblemsStatus(context.Background(), []string{"unknown-problem"})
	if err != nil {
		t.Fatalf("CheckProblemsStatus: %v", err)
	}
	if statuses.ProblemStatuses["unknown-problem"] != judgerpc.StatusError {
		t.Errorf("stored status = %q", statuses.ProblemStatuses["unknown-problem"])
	}
}

func TestHandler_HistoryIncludeCode(t *testing.T) {
	source := &fakeSource{cases: map[string][]judgerpc.TestCase{
		"p": {{Input: "1", ExpectedOutput: "1"}},
	}}
	h := testHandler(t, source)
	if _, err := h.Submit(context.Background(), judgerpc.SubmitRequest{
		Code: "secret code", Language: "python", ProblemSlug: "p",
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	withoutCode, err := h.SubmissionHistory(context.Background(), judgerpc.SubmissionHistoryRequest{ProblemSlug: "p"})
	if err != nil {
		t.Fatalf("SubmissionHistory: %v", err)
	}
	if withoutCode.History[0].Code != "" {
		t.Error("code included without includeCode")
	}

	withCode, err := h.SubmissionHistory(context.Background(), judgerpc.SubmissionHistoryRequest{ProblemSlug: "p", IncludeCode: true})
	if err != nil {
		t.Fatalf("SubmissionHistory: %v", err)
	}
	if withCode.History[0].Code != "secret code" {
		t.Errorf("code = %q", withCode.History[0].Code)
	}
}

func TestHandler_HandleFrameEchoesMsgID(t *testing.T) {
	h := testHandler(t, nil)
	response := h.HandleFrame(context.Background(), []byte(`{"type":"languages","_msgId":7}`))

	var decoded struct {
		MsgID     uint64               `json:"_msgId"`
		Languages judgerpc.LanguageSet `json:"languages"`
	}
	if err := json.Unmarshal(response, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.MsgID != 7 {
		t.Errorf("_msgId = %d, want 7", decoded.MsgID)
	}
	if !decoded.Languages.Available("python") {
		t.Errorf("languages = %v", decoded.Languages)
	}
}

func TestHandler_HandleFrameUnknownType(t *testing.T) {
	h := testHandler(t, nil)
	response := h.HandleFrame(context.Background(), []byte(`{"type":"reboot","_msgId":9}`))

	var decoded struct {
		MsgID uint64 `json:"_msgId"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(response, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.MsgID != 9 || decoded.Error != "Unknown message type" {
		t.Errorf("response = %s", response)
	}
}

func TestHandler_LanguagePushHasNoMsgID(t *testing.T) {
	h := testHandler(t, nil)
	push := h.LanguagePush(context.Background())

	var header judgerpc.Header
	if err := json.Unmarshal(push, &header); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !header.IsPush() {
		t.Errorf("push frame = %s", push)
	}
}
