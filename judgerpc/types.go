// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package judgerpc

import (
	"encoding/json"
	"fmt"
)

// Request type tags.
const (
	TypeLanguages           = "languages"
	TypeExecute             = "execute"
	TypeSubmit              = "submit"
	TypeSubmissionHistory   = "submission_history"
	TypeCheckProblemsStatus = "check_problems_status"
	TypeSubmissionStats     = "submission_stats"
	TypeRecentSubmissions   = "recent_submissions"
)

// Submission statuses.
const (
	StatusSuccess      = "success"
	StatusFailed       = "failed"
	StatusError        = "error"
	StatusNotAttempted = "not_attempted"
)

// Envelope is embedded by every request. MsgID is stamped by the
// correlator immediately before transmission.
type Envelope struct {
	Type  string `json:"type"`
	MsgID uint64 `json:"_msgId,omitempty"`
}

// SetMsgID records the correlation id.
func (e *Envelope) SetMsgID(id uint64) { e.MsgID = id }

// Header is the part of a response the correlator reads. MsgID is a
// pointer so a push (no id at all) is distinguishable from id 0.
type Header struct {
	MsgID     *uint64         `json:"_msgId"`
	Error     string          `json:"error,omitempty"`
	Languages json.RawMessage `json:"languages,omitempty"`
}

// IsPush reports whether a decoded header is the unsolicited language
// announcement rather than a correlated response.
func (h Header) IsPush() bool { return h.MsgID == nil && len(h.Languages) > 0 }

// Language describes one toolchain on the judge host. On the wire it
// is a version string when available, null when not; booleans are
// accepted too for older judges.
type Language struct {
	Available bool
	Version   string
}

func (l Language) MarshalJSON() ([]byte, error) {
	switch {
	case !l.Available:
		return []byte("null"), nil
	case l.Version != "":
		return json.Marshal(l.Version)
	default:
		return []byte("true"), nil
	}
}

func (l *Language) UnmarshalJSON(data []byte) error {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	switch value := value.(type) {
	case nil:
		*l = Language{}
	case bool:
		*l = Language{Available: value}
	case string:
		*l = Language{Available: true, Version: value}
	default:
		return fmt.Errorf("judgerpc: language value has type %T", value)
	}
	return nil
}

// LanguageSet maps language names to their availability.
type LanguageSet map[string]Language

// Available reports whether name is present and usable.
func (s LanguageSet) Available(name string) bool { return s[name].Available }

// TestCase is one input/expectation pair.
type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
}

// TestResult reports one test-case run. Passed is nil when the case
// had no expected output to compare against.
type TestResult struct {
	TestCase       int    `json:"testCase"`
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
	ActualOutput   string `json:"actualOutput"`
	Stderr         string `json:"stderr"`
	Passed         *bool  `json:"passed"`
	Diff           string `json:"diff,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Summary aggregates an execute run.
type Summary struct {
	Total            int `json:"total"`
	Passed           int `json:"passed"`
	Failed           int `json:"failed"`
	NoExpectedOutput int `json:"noExpectedOutput"`
}

// Requests.

type LanguagesRequest struct {
	Envelope
}

type ExecuteRequest struct {
	Envelope
	Code      string     `json:"code"`
	Language  string     `json:"language"`
	Input     string     `json:"input,omitempty"`
	TestCases []TestCase `json:"testCases,omitempty"`
}

type SubmitRequest struct {
	Envelope
	Code        string `json:"code"`
	Language    string `json:"language"`
	ProblemSlug string `json:"problemSlug"`
}

type SubmissionHistoryRequest struct {
	Envelope
	ProblemSlug string `json:"problemSlug"`
	IncludeCode bool   `json:"includeCode,omitempty"`
}

type CheckProblemsStatusRequest struct {
	Envelope
	ProblemSlugs []string `json:"problemSlugs"`
}

type SubmissionStatsRequest struct {
	Envelope
}

type RecentSubmissionsRequest struct {
	Envelope
	Limit int `json:"limit,omitempty"`
}

// Responses.

type LanguagesResponse struct {
	Languages LanguageSet `json:"languages"`
}

type ExecuteResponse struct {
	Results []TestResult `json:"results"`
	Summary Summary      `json:"summary"`
}

// SubmitResponse is the verdict for a submission. Exactly one of the
// failed and all-passed shapes is populated; Error is set instead when
// the submission could not be judged at all.
type SubmitResponse struct {
	Failed         bool        `json:"failed"`
	AllPassed      bool        `json:"allPassed,omitempty"`
	FailedTestCase *TestResult `json:"failedTestCase,omitempty"`
	TestCaseNumber int         `json:"testCaseNumber,omitempty"`
	Message        string      `json:"message,omitempty"`
	SubmissionID   string      `json:"submissionId,omitempty"`
	Error          string      `json:"error,omitempty"`
}

// Submission is one stored submission row. Code and TestResults are
// omitted from listings that did not ask for them.
type Submission struct {
	ID           string          `json:"id"`
	ProblemSlug  string          `json:"problem_slug,omitempty"`
	Language     string          `json:"language"`
	Status       string          `json:"status"`
	Timestamp    float64         `json:"timestamp"`
	Datetime     string          `json:"datetime"`
	Code         string          `json:"code,omitempty"`
	TestResults  json.RawMessage `json:"test_results,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

type SubmissionHistoryResponse struct {
	ProblemSlug      string       `json:"problemSlug"`
	History          []Submission `json:"history"`
	TotalSubmissions int          `json:"totalSubmissions"`
}

type CheckProblemsStatusResponse struct {
	ProblemStatuses   map[string]string `json:"problemStatuses"`
	TotalProblems     int               `json:"totalProblems"`
	SolvedCount       int               `json:"solvedCount"`
	FailedCount       int               `json:"failedCount"`
	ErrorCount        int               `json:"errorCount"`
	NotAttemptedCount int               `json:"notAttemptedCount"`
}

// Stats aggregates the whole submission store.
type Stats struct {
	TotalSubmissions        int      `json:"total_submissions"`
	SuccessfulSubmissions   int      `json:"successful_submissions"`
	FailedSubmissions       int      `json:"failed_submissions"`
	ErrorSubmissions        int      `json:"error_submissions"`
	UniqueProblemsAttempted int      `json:"unique_problems_attempted"`
	UniqueLanguages         int      `json:"unique_languages"`
	UniqueProblemsSolved    int      `json:"unique_problems_solved"`
	LanguagesUsed           []string `json:"languages_used"`
}

type SubmissionStatsResponse struct {
	Stats Stats `json:"stats"`
}

type RecentSubmissionsResponse struct {
	RecentSubmissions []Submission `json:"recentSubmissions"`
	Count             int          `json:"count"`
}
