// entry_test.go: Tests for credential naming
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arcanum

import (
	"path/filepath"
	"testing"

	"github.com/agilira/go-errors"
)

func errorCode(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	ec, ok := err.(errors.ErrorCoder)
	if !ok {
		t.Fatalf("error %v does not carry a code", err)
	}
	return string(ec.ErrorCode())
}

func TestEntryName_DerivesSlashSeparatedNames(t *testing.T) {
	root := filepath.Join(t.TempDir(), "store")

	tests := []struct {
		rel  string
		want string
	}{
		{"github.gpg", "github"},
		{filepath.Join("email", "work.gpg"), "email/work"},
		{filepath.Join("a", "b", "c.d.gpg"), "a/b/c.d"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			e, err := NewEntry(root, filepath.Join(root, tt.rel), ".gpg")
			if err != nil {
				t.Fatalf("NewEntry failed: %v", err)
			}
			if e.Name != tt.want {
				t.Errorf("Name = %q, want %q", e.Name, tt.want)
			}
			if e.Location != filepath.Join(root, tt.rel) {
				t.Errorf("Location = %q", e.Location)
			}
			if e.Meta != "" {
				t.Errorf("Meta should be empty, got %q", e.Meta)
			}
			if got := e.RelativePath(".gpg"); got != tt.rel {
				t.Errorf("RelativePath = %q, want %q", got, tt.rel)
			}
		})
	}
}

func TestEntryName_RejectsUnusablePaths(t *testing.T) {
	root := filepath.Join(t.TempDir(), "store")

	tests := []struct {
		name     string
		location string
	}{
		{"missing suffix", filepath.Join(root, "notes.txt")},
		{"outside root", filepath.Join(filepath.Dir(root), "other.gpg")},
		{"bare suffix", filepath.Join(root, ".gpg")},
		{"empty name in directory", filepath.Join(root, "dir", ".gpg")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EntryName(root, tt.location, ".gpg")
			if code := errorCode(t, err); code != ErrCodeInvalidEntry {
				t.Errorf("code = %s, want %s", code, ErrCodeInvalidEntry)
			}
		})
	}
}
