// lock.go: Single-instance guard for long-running Arcanum processes
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arcanum

import (
	"os"
	"path/filepath"

	"github.com/agilira/go-errors"
	"github.com/gofrs/flock"
)

// InstanceLock is an advisory file lock held for the lifetime of a daemon.
type InstanceLock struct {
	lock *flock.Flock
}

// AcquireInstanceLock takes the lock at path without waiting. It fails with
// ARCANUM_LOCK_HELD when another process holds it.
func AcquireInstanceLock(path string) (*InstanceLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.Wrap(err, ErrCodeLockHeld, "cannot create lock directory").
			WithContext("path", path)
	}

	l := flock.New(path)
	locked, err := l.TryLock()
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeLockHeld, "cannot acquire instance lock").
			WithContext("path", path)
	}
	if !locked {
		return nil, errors.New(ErrCodeLockHeld, "another instance is running").
			WithContext("path", path)
	}
	return &InstanceLock{lock: l}, nil
}

// Path returns the lock file path.
func (l *InstanceLock) Path() string {
	return l.lock.Path()
}

// Release unlocks the file. The file itself is left in place.
func (l *InstanceLock) Release() error {
	if l == nil {
		return nil
	}
	return l.lock.Unlock()
}
