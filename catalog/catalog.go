// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pepper-platform/pepper/judgerpc"
)

// ErrNotFound reports a missing course, module, or problem.
var ErrNotFound = errors.New("catalog: not found")

// CourseSummary is one entry of courses/all.json.
type CourseSummary struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Duration    string `json:"duration,omitempty"`
	Contents    string `json:"contents,omitempty"`
	Description string `json:"description,omitempty"`
}

// Topic is one module link inside a course category.
type Topic struct {
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// Category groups a course's modules.
type Category struct {
	Name   string  `json:"name"`
	Topics []Topic `json:"topics"`
}

// Course is a course's meta.json.
type Course struct {
	Slug       string     `json:"slug,omitempty"`
	Name       string     `json:"name,omitempty"`
	Categories []Category `json:"categorys"`
}

// ModuleProblem is one row of a module's problem list.
type ModuleProblem struct {
	Slug       string `json:"slug"`
	Name       string `json:"name"`
	Difficulty string `json:"difficulty,omitempty"`
}

// TestCaseFiles names a test case's input and output files under
// database/testcases/<problem>/.
type TestCaseFiles struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Problem is a problem statement from database/problems/<slug>.json.
// Description is markdown.
type Problem struct {
	Slug              string          `json:"slug,omitempty"`
	Name              string          `json:"name"`
	Difficulty        string          `json:"difficulty,omitempty"`
	Description       string          `json:"description,omitempty"`
	TestCases         []TestCaseFiles `json:"testCases,omitempty"`
	ExternalPlatforms []string        `json:"externalPlatforms,omitempty"`
	ProblemVideoLink  string          `json:"problemVideoLink,omitempty"`
	SolutionVideoLink string          `json:"solutionVideolink,omitempty"`
}

// Repository reads course content from a directory holding the
// database/ tree.
type Repository struct {
	root string
}

// NewRepository opens the content directory. The directory must
// contain database/.
func NewRepository(root string) (*Repository, error) {
	info, err := os.Stat(filepath.Join(root, "database"))
	if err != nil {
		return nil, fmt.Errorf("catalog: opening %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("catalog: %s/database is not a directory", root)
	}
	return &Repository{root: root}, nil
}

// Courses lists all courses.
func (r *Repository) Courses() ([]CourseSummary, error) {
	var courses []CourseSummary
	if err := r.readJSON(&courses, "courses", "all.json"); err != nil {
		return nil, err
	}
	return courses, nil
}

// Course returns one course's metadata.
func (r *Repository) Course(slug string) (*Course, error) {
	var course Course
	if err := r.readJSON(&course, "courses", slug, "meta.json"); err != nil {
		return nil, err
	}
	if course.Slug == "" {
		course.Slug = slug
	}
	return &course, nil
}

// Module returns a module's problem list.
func (r *Repository) Module(courseSlug, moduleSlug string) ([]ModuleProblem, error) {
	var problems []ModuleProblem
	if err := r.readJSON(&problems, "courses", courseSlug, moduleSlug+".json"); err != nil {
		return nil, err
	}
	return problems, nil
}

// Problem returns one problem statement.
func (r *Repository) Problem(slug string) (*Problem, error) {
	var problem Problem
	if err := r.readJSON(&problem, "problems", slug+".json"); err != nil {
		return nil, err
	}
	if problem.Slug == "" {
		problem.Slug = slug
	}
	return &problem, nil
}

// FirstTestCase returns the problem's first test case, trimmed, for
// preview. A problem with no test cases returns nil without error; a
// test case whose files are missing does too.
func (r *Repository) FirstTestCase(problemSlug string) (*judgerpc.TestCase, error) {
	problem, err := r.Problem(problemSlug)
	if err != nil {
		return nil, err
	}
	if len(problem.TestCases) == 0 {
		return nil, nil
	}
	first := problem.TestCases[0]
	input, err := r.readTestCaseFile(problemSlug, first.Input)
	if err != nil {
		return nil, nil
	}
	output, err := r.readTestCaseFile(problemSlug, first.Output)
	if err != nil {
		return nil, nil
	}
	return &judgerpc.TestCase{Input: input, ExpectedOutput: output}, nil
}

// Handler serves the content directory. Path traversal is rejected by
// http.FileServer's path cleaning.
func (r *Repository) Handler() http.Handler {
	return http.FileServer(http.Dir(r.root))
}

func (r *Repository) readTestCaseFile(problemSlug, filename string) (string, error) {
	path, err := r.contentPath("testcases", problemSlug, filename)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (r *Repository) readJSON(into any, elements ...string) error {
	path, err := r.contentPath(elements...)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, filepath.Join(elements...))
		}
		return fmt.Errorf("catalog: reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("catalog: decoding %s: %w", path, err)
	}
	return nil
}

// contentPath joins elements under database/ and refuses slugs that
// would escape the content tree.
func (r *Repository) contentPath(elements ...string) (string, error) {
	for _, element := range elements {
		if element == "" || strings.Contains(element, "..") || strings.ContainsAny(element, "/\\") {
			return "", fmt.Errorf("%w: invalid path element %q", ErrNotFound, element)
		}
	}
	return filepath.Join(append([]string{r.root, "database"}, elements...)...), nil
}
