// secret.go: Redacting container for decrypted material
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arcanum

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

const redacted = "[SECRET]"

// Secret holds decrypted bytes. Formatting and encoding it never reveals
// the content; callers read it through Use or Bytes and Zero it when done.
type Secret []byte

// String redacts the secret for fmt.Print* convenience.
func (s Secret) String() string { return redacted }

// Format implements fmt.Formatter so every verb prints the placeholder.
func (s Secret) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, redacted)
}

// MarshalJSON redacts the secret in JSON output.
func (s Secret) MarshalJSON() ([]byte, error) { return json.Marshal(redacted) }

// MarshalText redacts the secret for text encoders.
func (s Secret) MarshalText() ([]byte, error) { return []byte(redacted), nil }

// Bytes returns a copy of the content. The caller owns the copy.
func (s Secret) Bytes() []byte {
	out := make([]byte, len(s))
	copy(out, s)
	return out
}

// Use runs fn with the underlying bytes, without copying.
func (s Secret) Use(fn func([]byte) error) error {
	return fn([]byte(s))
}

// Len returns the size of the secret in bytes.
func (s Secret) Len() int { return len(s) }

// Zero overwrites the content with zeros.
func (s *Secret) Zero() {
	if s == nil {
		return
	}
	for i := range *s {
		(*s)[i] = 0
	}
}

// FirstLine returns a copy of the content up to the first line break,
// without the trailing CR.
func (s Secret) FirstLine() Secret {
	line := []byte(s)
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = bytes.TrimSuffix(line, []byte{'\r'})
	out := make([]byte, len(line))
	copy(out, line)
	return Secret(out)
}
