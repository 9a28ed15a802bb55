// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package judge

import (
	"fmt"
	"strings"
)

// CompareOutputs checks program output against the expected output,
// ignoring leading/trailing blank lines and trailing whitespace on
// each line. On mismatch it returns a unified-style diff of expected
// versus actual.
func CompareOutputs(actual, expected string) (bool, string) {
	actualLines := normalizeLines(actual)
	expectedLines := normalizeLines(expected)
	if equalLines(actualLines, expectedLines) {
		return true, ""
	}
	return false, unifiedDiff(expectedLines, actualLines)
}

func normalizeLines(text string) []string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return lines
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// unifiedDiff renders a single-hunk unified diff between expected and
// actual output. Outputs here are small (test-case sized), so the
// quadratic LCS table is fine.
func unifiedDiff(expected, actual []string) string {
	// lcs[i][j] is the longest common subsequence length of
	// expected[i:] and actual[j:].
	lcs := make([][]int, len(expected)+1)
	for i := range lcs {
		lcs[i] = make([]int, len(actual)+1)
	}
	for i := len(expected) - 1; i >= 0; i-- {
		for j := len(actual) - 1; j >= 0; j-- {
			if expected[i] == actual[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else {
				lcs[i][j] = max(lcs[i+1][j], lcs[i][j+1])
			}
		}
	}

	var b strings.Builder
	b.WriteString("--- expected\n")
	b.WriteString("+++ output\n")
	fmt.Fprintf(&b, "@@ -1,%d +1,%d @@\n", len(expected), len(actual))
	i, j := 0, 0
	for i < len(expected) || j < len(actual) {
		switch {
		case i < len(expected) && j < len(actual) && expected[i] == actual[j]:
			b.WriteString(" " + expected[i] + "\n")
			i++
			j++
		case j < len(actual) && (i == len(expected) || lcs[i][j+1] >= lcs[i+1][j]):
			b.WriteString("+" + actual[j] + "\n")
			j++
		default:
			b.WriteString("-" + expected[i] + "\n")
			i++
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
