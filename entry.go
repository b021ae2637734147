// entry.go: Credential entry model for Arcanum
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arcanum

import (
	"path/filepath"
	"strings"

	"github.com/agilira/go-errors"
)

// DefaultSuffix is the filename suffix of encrypted credential files.
const DefaultSuffix = ".gpg"

// Entry describes one credential: its logical name, a free-form annotation
// and the file holding the ciphertext. Two entries with the same Location
// are the same credential.
type Entry struct {
	Name     string `json:"name" yaml:"name"`
	Meta     string `json:"meta,omitempty" yaml:"meta,omitempty"`
	Location string `json:"location" yaml:"location"`
}

// NewEntry builds the Entry for the encrypted file at location beneath root.
// The name is the slash-separated path relative to root with suffix removed,
// so "email/work.gpg" becomes "email/work" on every platform.
func NewEntry(root, location, suffix string) (Entry, error) {
	name, err := EntryName(root, location, suffix)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Name: name, Location: location}, nil
}

// EntryName derives the logical name of location relative to root.
func EntryName(root, location, suffix string) (string, error) {
	if !strings.HasSuffix(location, suffix) {
		return "", errors.New(ErrCodeInvalidEntry, "path does not carry the credential suffix").
			WithContext("path", location).
			WithContext("suffix", suffix)
	}

	rel, err := filepath.Rel(root, location)
	if err != nil {
		return "", errors.Wrap(err, ErrCodeInvalidEntry, "path is not relative to store root").
			WithContext("path", location).
			WithContext("root", root)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.New(ErrCodeInvalidEntry, "path escapes store root").
			WithContext("path", location).
			WithContext("root", root)
	}

	name := filepath.ToSlash(strings.TrimSuffix(rel, suffix))
	if name == "" || strings.HasSuffix(name, "/") {
		return "", errors.New(ErrCodeInvalidEntry, "credential file has an empty name").
			WithContext("path", location)
	}
	return name, nil
}

// RelativePath reconstructs the on-disk path of the entry relative to root.
func (e Entry) RelativePath(suffix string) string {
	return filepath.FromSlash(e.Name) + suffix
}
