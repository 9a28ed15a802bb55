// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package pairing

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// CodeLength is the number of alphanumeric characters in a pairing code.
const CodeLength = 8

// codeAlphabet is the character set for generated codes. Uppercase
// letters and digits only — codes are transcribed by hand.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ErrInvalidCode reports that user input did not reduce to a valid
// pairing code. Recoverable: re-prompt the user.
var ErrInvalidCode = errors.New("pairing code must be 8 alphanumeric characters")

// Normalize strips every non-alphanumeric character from raw, uppercases
// the remainder, and returns it if exactly CodeLength characters remain.
// Anything else fails with ErrInvalidCode — input is never silently
// truncated to fit.
func Normalize(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	code := b.String()
	if len(code) != CodeLength {
		return "", fmt.Errorf("%w (got %d after stripping separators)", ErrInvalidCode, len(code))
	}
	return code, nil
}

// Format renders a code in its display form, XXXX-XXXX. The input must
// be a normalized code; anything else is returned unchanged.
func Format(code string) string {
	if len(code) != CodeLength {
		return code
	}
	return code[:CodeLength/2] + "-" + code[CodeLength/2:]
}

// Generate produces a fresh pairing code from the given entropy source
// (crypto/rand.Reader in production).
func Generate(random io.Reader) (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := io.ReadFull(random, buf); err != nil {
		return "", fmt.Errorf("reading entropy for pairing code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
