// store.go: Store capability contract and directory resolution
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arcanum

import (
	"io"
	"os"
	"path/filepath"

	"github.com/agilira/go-errors"
)

// StoreDirEnv names the environment variable that overrides the store location.
const StoreDirEnv = "PASSWORD_STORE_DIR"

// DefaultStoreDirName is the store directory under the user's home.
const DefaultStoreDirName = ".password-store"

// PasswordStore is the capability set a live store offers: query and
// change notification. Writing credentials is not part of it.
type PasswordStore interface {
	Search(query string) []Entry
	Signals() <-chan Signal
	Err() <-chan error
	Close() error
}

var _ PasswordStore = (*Session)(nil)

// ResolveStoreDir returns the absolute store directory. The explicit path
// wins, then PASSWORD_STORE_DIR, then ~/.password-store. The directory
// must exist and be readable.
func ResolveStoreDir(explicit string) (string, error) {
	dir := explicit
	if dir == "" {
		dir = os.Getenv(StoreDirEnv)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, ErrCodeStoreNotFound, "cannot determine home directory")
		}
		dir = filepath.Join(home, DefaultStoreDirName)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Wrap(err, ErrCodeStoreNotFound, "invalid store path").
			WithContext("path", dir)
	}
	if err := checkStoreDir(abs); err != nil {
		return "", err
	}
	return abs, nil
}

// checkStoreDir verifies that dir exists, is a directory and can be listed.
func checkStoreDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.New(ErrCodeStoreNotFound, "password store directory does not exist").
				WithContext("path", dir)
		}
		return errors.Wrap(err, ErrCodeStoreUnreadable, "cannot access password store directory").
			WithContext("path", dir)
	}
	if !info.IsDir() {
		return errors.New(ErrCodeStoreNotDir, "password store path is not a directory").
			WithContext("path", dir)
	}

	f, err := os.Open(dir) // #nosec G304 -- store root chosen by the user
	if err != nil {
		return errors.Wrap(err, ErrCodeStoreUnreadable, "cannot open password store directory").
			WithContext("path", dir)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Readdirnames(1); err != nil && err != io.EOF {
		return errors.Wrap(err, ErrCodeStoreUnreadable, "cannot list password store directory").
			WithContext("path", dir)
	}
	return nil
}
