// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package pairing

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "judge_code"))
}

func TestStore_SetPersistsNormalizedCode(t *testing.T) {
	store := testStore(t)

	clean, err := store.Set("ab12-cd34")
	if err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if clean != "AB12CD34" {
		t.Errorf("Set returned %q, want AB12CD34", clean)
	}
	if got := store.Code(); got != "AB12CD34" {
		t.Errorf("Code() = %q, want AB12CD34", got)
	}
}

func TestStore_SetRejectsInvalidWithoutPersisting(t *testing.T) {
	store := testStore(t)

	if _, err := store.Set("AB12CD34"); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if _, err := store.Set("nope"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("Set(nope) error = %v, want ErrInvalidCode", err)
	}
	// The previously stored value is untouched.
	if got := store.Code(); got != "AB12CD34" {
		t.Errorf("Code() after rejected Set = %q, want AB12CD34", got)
	}
}

func TestStore_CodeEmptyWhenUnset(t *testing.T) {
	store := testStore(t)
	if got := store.Code(); got != "" {
		t.Errorf("Code() = %q, want empty", got)
	}
}

func TestStore_Clear(t *testing.T) {
	store := testStore(t)
	if _, err := store.Set("AB12CD34"); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if got := store.Code(); got != "" {
		t.Errorf("Code() after Clear = %q, want empty", got)
	}
	// Clearing again is a no-op.
	if err := store.Clear(); err != nil {
		t.Errorf("second Clear error: %v", err)
	}
}

func TestStore_GetOrCreateStable(t *testing.T) {
	store := testStore(t)

	first, err := store.GetOrCreate()
	if err != nil {
		t.Fatalf("GetOrCreate error: %v", err)
	}
	if _, err := Normalize(first); err != nil {
		t.Fatalf("generated code %q is not valid: %v", first, err)
	}

	second, err := store.GetOrCreate()
	if err != nil {
		t.Fatalf("second GetOrCreate error: %v", err)
	}
	if second != first {
		t.Errorf("GetOrCreate() = %q on second call, want stable %q", second, first)
	}
}

func TestStore_GetOrCreateReplacesCorruptValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "judge_code")
	if err := os.WriteFile(path, []byte("not a code\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	store := NewStore(path)

	code, err := store.GetOrCreate()
	if err != nil {
		t.Fatalf("GetOrCreate error: %v", err)
	}
	if _, err := Normalize(code); err != nil {
		t.Errorf("replacement code %q is not valid: %v", code, err)
	}
	if store.Code() != code {
		t.Errorf("Code() = %q, want persisted replacement %q", store.Code(), code)
	}
}
