// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package judge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pepper-platform/pepper/judgerpc"
)

// RunTimeout is the wall-clock budget for one program run. Compilation
// is bounded by the caller's context instead.
const RunTimeout = 5 * time.Second

// ErrUnsupportedLanguage rejects a language with no executor.
var ErrUnsupportedLanguage = errors.New("judge: unsupported language")

type runFunc func(ctx context.Context, code, input string) (stdout, stderr string, err error)

var executors = map[string]runFunc{
	"python": runPython,
	"cpp":    runCPP,
	"java":   runJava,
}

// versionProbes report toolchain presence. java prints its version on
// stderr, which is why probes capture combined output.
var versionProbes = map[string][]string{
	"python": {"python3", "--version"},
	"cpp":    {"g++", "--version"},
	"java":   {"java", "-version"},
}

// Supported reports whether language has an executor.
func Supported(language string) bool {
	_, ok := executors[language]
	return ok
}

// DetectLanguages probes each toolchain and reports the first line of
// its version output. Probe failure marks the language unavailable.
func DetectLanguages(ctx context.Context) judgerpc.LanguageSet {
	set := make(judgerpc.LanguageSet, len(versionProbes))
	for language, probe := range versionProbes {
		out, err := exec.CommandContext(ctx, probe[0], probe[1:]...).CombinedOutput()
		if err != nil {
			set[language] = judgerpc.Language{}
			continue
		}
		version, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
		set[language] = judgerpc.Language{Available: true, Version: strings.TrimRight(version, "\r")}
	}
	return set
}

// Execute runs code in the given language with input on stdin.
func Execute(ctx context.Context, language, code, input string) (string, string, error) {
	run, ok := executors[language]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}
	return run(ctx, code, input)
}

func runPython(ctx context.Context, code, input string) (string, string, error) {
	dir, err := os.MkdirTemp("", "pepper-judge-*")
	if err != nil {
		return "", "", err
	}
	defer os.RemoveAll(dir)
	source := filepath.Join(dir, "main.py")
	if err := os.WriteFile(source, []byte(code), 0o600); err != nil {
		return "", "", err
	}
	return runCommand(ctx, input, "python3", source)
}

func runCPP(ctx context.Context, code, input string) (string, string, error) {
	dir, err := os.MkdirTemp("", "pepper-judge-*")
	if err != nil {
		return "", "", err
	}
	defer os.RemoveAll(dir)
	source := filepath.Join(dir, "main.cpp")
	binary := filepath.Join(dir, "main.out")
	if err := os.WriteFile(source, []byte(code), 0o600); err != nil {
		return "", "", err
	}

	var compileErr bytes.Buffer
	compile := exec.CommandContext(ctx, "g++", source, "-o", binary)
	compile.Stderr = &compileErr
	if err := compile.Run(); err != nil {
		// Compile diagnostics surface on stderr, not as an error.
		return "", compileErr.String(), nil
	}
	return runCommand(ctx, input, binary)
}

func runJava(ctx context.Context, code, input string) (string, string, error) {
	dir, err := os.MkdirTemp("", "pepper-judge-*")
	if err != nil {
		return "", "", err
	}
	defer os.RemoveAll(dir)
	source := filepath.Join(dir, "Main.java")
	if err := os.WriteFile(source, []byte(code), 0o600); err != nil {
		return "", "", err
	}

	var compileErr bytes.Buffer
	compile := exec.CommandContext(ctx, "javac", source)
	compile.Stderr = &compileErr
	if err := compile.Run(); err != nil {
		return "", compileErr.String(), nil
	}
	return runCommand(ctx, input, "java", "-cp", dir, "Main")
}

// runCommand executes one program under RunTimeout with input piped to
// stdin.
func runCommand(ctx context.Context, input string, name string, args ...string) (string, string, error) {
	runCtx, cancel := context.WithTimeout(ctx, RunTimeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Stdin = strings.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if runCtx.Err() != nil {
		return stdout.String(), stderr.String(), fmt.Errorf("judge: execution timed out after %s", RunTimeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Nonzero exit is a program outcome; the output and
			// stderr already carry it.
			return stdout.String(), stderr.String(), nil
		}
		return stdout.String(), stderr.String(), err
	}
	return stdout.String(), stderr.String(), nil
}
