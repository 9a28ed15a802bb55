// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package catalog_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/pepper-platform/pepper/catalog"
)

// testContentDir builds a minimal content tree: one course with one
// module, one problem with one test case.
func testContentDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"database/courses/all.json": `[
			{"slug": "dsa", "name": "Data Structures", "duration": "8 weeks"}
		]`,
		"database/courses/dsa/meta.json": `{
			"name": "Data Structures",
			"categorys": [
				{"name": "Arrays", "topics": [{"name": "Two Pointers", "slug": "two-pointers"}]}
			]
		}`,
		"database/courses/dsa/two-pointers.json": `[
			{"slug": "two-sum", "name": "Two Sum", "difficulty": "Easy"}
		]`,
		"database/problems/two-sum.json": `{
			"name": "Two Sum",
			"difficulty": "Easy",
			"description": "Find two numbers that add up to the target.",
			"testCases": [
				{"input": "case1.in", "output": "case1.out"},
				{"input": "case2.in", "output": "case2.out"}
			]
		}`,
		"database/testcases/two-sum/case1.in":  "3 4\n",
		"database/testcases/two-sum/case1.out": "7\n",
		"database/testcases/two-sum/case2.in":  "5 6\n",
		"database/testcases/two-sum/case2.out": "11\n",
		"database/problems/no-cases.json":      `{"name": "No Cases"}`,
	}
	for name, body := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func testRepository(t *testing.T) *catalog.Repository {
	t.Helper()
	repo, err := catalog.NewRepository(testContentDir(t))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	return repo
}

func TestNewRepository_RequiresDatabaseDir(t *testing.T) {
	if _, err := catalog.NewRepository(t.TempDir()); err == nil {
		t.Error("NewRepository should reject a directory without database/")
	}
}

func TestRepository_Courses(t *testing.T) {
	repo := testRepository(t)
	courses, err := repo.Courses()
	if err != nil {
		t.Fatalf("Courses: %v", err)
	}
	if len(courses) != 1 || courses[0].Slug != "dsa" || courses[0].Name != "Data Structures" {
		t.Errorf("courses = %+v", courses)
	}
}

func TestRepository_Course(t *testing.T) {
	repo := testRepository(t)
	course, err := repo.Course("dsa")
	if err != nil {
		t.Fatalf("Course: %v", err)
	}
	if course.Slug != "dsa" {
		t.Errorf("Slug = %q, want the requested slug filled in", course.Slug)
	}
	if len(course.Categories) != 1 || course.Categories[0].Topics[0].Slug != "two-pointers" {
		t.Errorf("categories = %+v", course.Categories)
	}
}

func TestRepository_Module(t *testing.T) {
	repo := testRepository(t)
	problems, err := repo.Module("dsa", "two-pointers")
	if err != nil {
		t.Fatalf("Module: %v", err)
	}
	if len(problems) != 1 || problems[0].Slug != "two-sum" || problems[0].Difficulty != "Easy" {
		t.Errorf("problems = %+v", problems)
	}
}

func TestRepository_Problem(t *testing.T) {
	repo := testRepository(t)
	problem, err := repo.Problem("two-sum")
	if err != nil {
		t.Fatalf("Problem: %v", err)
	}
	if problem.Name != "Two Sum" || len(problem.TestCases) != 2 {
		t.Errorf("problem = %+v", problem)
	}
}

func TestRepository_NotFound(t *testing.T) {
	repo := testRepository(t)
	if _, err := repo.Problem("missing"); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Problem(missing) err = %v, want ErrNotFound", err)
	}
	if _, err := repo.Course("missing"); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Course(missing) err = %v, want ErrNotFound", err)
	}
	if _, err := repo.Module("dsa", "missing"); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Module(dsa, missing) err = %v, want ErrNotFound", err)
	}
}

func TestRepository_RejectsTraversal(t *testing.T) {
	repo := testRepository(t)
	for _, slug := range []string{"../secrets", "a/b", `a\b`, ""} {
		if _, err := repo.Problem(slug); !errors.Is(err, catalog.ErrNotFound) {
			t.Errorf("Problem(%q) err = %v, want ErrNotFound", slug, err)
		}
	}
}

func TestRepository_FirstTestCase(t *testing.T) {
	repo := testRepository(t)

	preview, err := repo.FirstTestCase("two-sum")
	if err != nil {
		t.Fatalf("FirstTestCase: %v", err)
	}
	if preview == nil || preview.Input != "3 4" || preview.ExpectedOutput != "7" {
		t.Errorf("preview = %+v, want trimmed first case only", preview)
	}

	none, err := repo.FirstTestCase("no-cases")
	if err != nil {
		t.Fatalf("FirstTestCase(no-cases): %v", err)
	}
	if none != nil {
		t.Errorf("preview for a problem without cases = %+v, want nil", none)
	}
}

func TestRepository_Handler(t *testing.T) {
	repo := testRepository(t)
	server := httptest.NewServer(repo.Handler())
	defer server.Close()

	resp, err := server.Client().Get(server.URL + "/database/problems/two-sum.json")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) == 0 {
		t.Error("empty body")
	}

	missing, err := server.Client().Get(server.URL + "/database/problems/else.json")
	if err != nil {
		t.Fatalf("GET missing: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != 404 {
		t.Errorf("missing file status = %d, want 404", missing.StatusCode)
	}
}
