// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/pepper-platform/pepper/judgerpc"
	"github.com/pepper-platform/pepper/lib/clock"
	"github.com/pepper-platform/pepper/lib/sqlitepool"
)

// submissionSchema is applied to every connection. The problem_status
// view collapses a problem's submissions to its best-known verdict:
// any success wins, then any failure, then error.
const submissionSchema = `
CREATE TABLE IF NOT EXISTS submissions (
	id TEXT PRIMARY KEY,
	problem_slug TEXT NOT NULL,
	language TEXT NOT NULL,
	code TEXT NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('success', 'failed', 'error')),
	timestamp REAL NOT NULL,
	datetime TEXT NOT NULL,
	test_results TEXT,
	error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_problem_slug ON submissions(problem_slug);
CREATE INDEX IF NOT EXISTS idx_timestamp ON submissions(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_status ON submissions(status);
CREATE INDEX IF NOT EXISTS idx_problem_status ON submissions(problem_slug, status);

CREATE VIEW IF NOT EXISTS problem_status AS
SELECT
	problem_slug,
	CASE
		WHEN MAX(CASE WHEN status = 'success' THEN timestamp END) IS NOT NULL THEN 'success'
		WHEN MAX(CASE WHEN status = 'failed' THEN timestamp END) IS NOT NULL THEN 'failed'
		ELSE 'error'
	END AS status,
	MAX(timestamp) AS latest_timestamp
FROM submissions
GROUP BY problem_slug;
`

// SubmissionStore persists submissions and their verdicts in SQLite.
type SubmissionStore struct {
	pool  *sqlitepool.Pool
	clock clock.Clock
}

// OpenSubmissionStore opens (and if needed creates) the submission
// database at path.
func OpenSubmissionStore(path string, clk clock.Clock, logger *slog.Logger) (*SubmissionStore, error) {
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     path,
		PoolSize: 2,
		Logger:   logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, submissionSchema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("submission store: %w", err)
	}
	return &SubmissionStore{pool: pool, clock: clk}, nil
}

// Close releases the underlying pool.
func (s *SubmissionStore) Close() error {
	return s.pool.Close()
}

// Add records one submission and returns its id. testResults, when
// non-nil, is stored as JSON.
func (s *SubmissionStore) Add(ctx context.Context, problemSlug, language, code, status string, testResults any, errorMessage string) (string, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return "", fmt.Errorf("submission store: add: %w", err)
	}
	defer s.pool.Put(conn)

	var resultsJSON any
	if testResults != nil {
		encoded, err := json.Marshal(testResults)
		if err != nil {
			return "", fmt.Errorf("submission store: encoding test results: %w", err)
		}
		resultsJSON = string(encoded)
	}
	var errorValue any
	if errorMessage != "" {
		errorValue = errorMessage
	}

	id := uuid.NewString()
	now := s.clock.Now()
	err = sqlitex.Execute(conn, `
		INSERT INTO submissions
			(id, problem_slug, language, code, status, timestamp, datetime, test_results, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				id, problemSlug, language, code, status,
				float64(now.UnixNano()) / float64(time.Second),
				now.Format(time.RFC3339Nano),
				resultsJSON, errorValue,
			},
		})
	if err != nil {
		return "", fmt.Errorf("submission store: insert: %w", err)
	}
	return id, nil
}

// History lists a problem's submissions, newest first.
func (s *SubmissionStore) History(ctx context.Context, problemSlug string) ([]judgerpc.Submission, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("submission store: history: %w", err)
	}
	defer s.pool.Put(conn)

	var submissions []judgerpc.Submission
	err = sqlitex.Execute(conn, `
		SELECT id, problem_slug, language, code, status, timestamp, datetime, test_results, error_message
		FROM submissions
		WHERE problem_slug = ?
		ORDER BY timestamp DESC`,
		&sqlitex.ExecOptions{
			Args: []any{problemSlug},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				submissions = append(submissions, scanSubmission(stmt))
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("submission store: history query: %w", err)
	}
	return submissions, nil
}

// CheckStatuses reports the best-known verdict for each slug. Slugs
// with no submissions map to not_attempted.
func (s *SubmissionStore) CheckStatuses(ctx context.Context, problemSlugs []string) (map[string]string, error) {
	statuses := make(map[string]string, len(problemSlugs))
	for _, slug := range problemSlugs {
		statuses[slug] = judgerpc.StatusNotAttempted
	}
	if len(problemSlugs) == 0 {
		return statuses, nil
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("submission store: statuses: %w", err)
	}
	defer s.pool.Put(conn)

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(problemSlugs)), ",")
	args := make([]any, len(problemSlugs))
	for i, slug := range problemSlugs {
		args[i] = slug
	}
	err = sqlitex.Execute(conn,
		"SELECT problem_slug, status FROM problem_status WHERE problem_slug IN ("+placeholders+")",
		&sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				statuses[stmt.ColumnText(0)] = stmt.ColumnText(1)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("submission store: status query: %w", err)
	}
	return statuses, nil
}

// Stats aggregates the whole store.
func (s *SubmissionStore) Stats(ctx context.Context) (judgerpc.Stats, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return judgerpc.Stats{}, fmt.Errorf("submission store: stats: %w", err)
	}
	defer s.pool.Put(conn)

	var stats judgerpc.Stats
	err = sqlitex.Execute(conn, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0),
			COUNT(DISTINCT problem_slug),
			COUNT(DISTINCT language)
		FROM submissions`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				stats.TotalSubmissions = stmt.ColumnInt(0)
				stats.SuccessfulSubmissions = stmt.ColumnInt(1)
				stats.FailedSubmissions = stmt.ColumnInt(2)
				stats.ErrorSubmissions = stmt.ColumnInt(3)
				stats.UniqueProblemsAttempted = stmt.ColumnInt(4)
				stats.UniqueLanguages = stmt.ColumnInt(5)
				return nil
			},
		})
	if err != nil {
		return judgerpc.Stats{}, fmt.Errorf("submission store: stats query: %w", err)
	}

	err = sqlitex.Execute(conn,
		"SELECT COUNT(*) FROM problem_status WHERE status = 'success'",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				stats.UniqueProblemsSolved = stmt.ColumnInt(0)
				return nil
			},
		})
	if err != nil {
		return judgerpc.Stats{}, fmt.Errorf("submission store: solved query: %w", err)
	}

	stats.LanguagesUsed = []string{}
	err = sqlitex.Execute(conn,
		"SELECT DISTINCT language FROM submissions ORDER BY language",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				stats.LanguagesUsed = append(stats.LanguagesUsed, stmt.ColumnText(0))
				return nil
			},
		})
	if err != nil {
		return judgerpc.Stats{}, fmt.Errorf("submission store: languages query: %w", err)
	}
	return stats, nil
}

// Recent lists the newest submissions across all problems. Code and
// stored test results are omitted.
func (s *SubmissionStore) Recent(ctx context.Context, limit int) ([]judgerpc.Submission, error) {
	if limit <= 0 {
		limit = 10
	}
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("submission store: recent: %w", err)
	}
	defer s.pool.Put(conn)

	var submissions []judgerpc.Submission
	err = sqlitex.Execute(conn, `
		SELECT id, problem_slug, language, status, timestamp, datetime
		FROM submissions
		ORDER BY timestamp DESC
		LIMIT ?`,
		&sqlitex.ExecOptions{
			Args: []any{limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				submissions = append(submissions, judgerpc.Submission{
					ID:          stmt.ColumnText(0),
					ProblemSlug: stmt.ColumnText(1),
					Language:    stmt.ColumnText(2),
					Status:      stmt.ColumnText(3),
					Timestamp:   stmt.ColumnFloat(4),
					Datetime:    stmt.ColumnText(5),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("submission store: recent query: %w", err)
	}
	return submissions, nil
}

func scanSubmission(stmt *sqlite.Stmt) judgerpc.Submission {
	submission := judgerpc.Submission{
		ID:           stmt.ColumnText(0),
		ProblemSlug:  stmt.ColumnText(1),
		Language:     stmt.ColumnText(2),
		Code:         stmt.ColumnText(3),
		Status:       stmt.ColumnText(4),
		Timestamp:    stmt.ColumnFloat(5),
		Datetime:     stmt.ColumnText(6),
		ErrorMessage: stmt.ColumnText(8),
	}
	if results := stmt.ColumnText(7); results != "" {
		submission.TestResults = json.RawMessage(results)
	}
	return submission
}
