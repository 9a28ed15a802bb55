// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package pairing

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store persists a single pairing code in a file. Validation happens on
// write: Code trusts whatever Set stored and performs no checks on read.
type Store struct {
	path string
}

// NewStore creates a store backed by the file at path. The file need
// not exist yet.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns the conventional location for the client's stored
// pairing code: <user config dir>/pepper/judge_code.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving user config dir: %w", err)
	}
	return filepath.Join(configDir, "pepper", "judge_code"), nil
}

// Set normalizes raw and persists the clean code, returning it. On
// validation failure nothing is written and the previously stored code
// (if any) is untouched.
func (s *Store) Set(raw string) (string, error) {
	code, err := Normalize(raw)
	if err != nil {
		return "", err
	}
	if err := s.write(code); err != nil {
		return "", err
	}
	return code, nil
}

// Code returns the stored pairing code, or "" when none is stored.
func (s *Store) Code() string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Clear removes the stored code. Clearing an empty store is a no-op.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing pairing code: %w", err)
	}
	return nil
}

// GetOrCreate returns the stored code when it is a valid pairing code,
// otherwise generates a new one, persists it, and returns it. The judge
// uses this to keep a stable code across restarts.
func (s *Store) GetOrCreate() (string, error) {
	if stored := s.Code(); stored != "" {
		if code, err := Normalize(stored); err == nil {
			return code, nil
		}
		// Stored value is corrupt. Fall through and replace it.
	}
	code, err := Generate(rand.Reader)
	if err != nil {
		return "", err
	}
	if err := s.write(code); err != nil {
		return "", err
	}
	return code, nil
}

// write persists the code atomically: temp file in the same directory,
// then rename over the target.
func (s *Store) write(code string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating pairing code dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".judge_code-*")
	if err != nil {
		return fmt.Errorf("creating temp file for pairing code: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(code + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing pairing code: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("setting pairing code permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing pairing code file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("persisting pairing code: %w", err)
	}
	return nil
}
