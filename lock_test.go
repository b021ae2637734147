// lock_test.go: Tests for the single-instance lock
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arcanum

import (
	"path/filepath"
	"testing"
)

func TestInstanceLock_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "arcanumd.lock")

	first, err := AcquireInstanceLock(path)
	if err != nil {
		t.Fatalf("first AcquireInstanceLock failed: %v", err)
	}
	if first.Path() != path {
		t.Errorf("Path = %q, want %q", first.Path(), path)
	}

	_, err = AcquireInstanceLock(path)
	if code := errorCode(t, err); code != ErrCodeLockHeld {
		t.Errorf("code = %s, want %s", code, ErrCodeLockHeld)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	again, err := AcquireInstanceLock(path)
	if err != nil {
		t.Fatalf("AcquireInstanceLock after Release failed: %v", err)
	}
	_ = again.Release()

	var none *InstanceLock
	if err := none.Release(); err != nil {
		t.Errorf("nil Release = %v", err)
	}
}
