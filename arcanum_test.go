// arcanum_test.go: Tests for live store sessions
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arcanum

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

const testTimeout = 5 * time.Second

func testConfig(root string, collector *errorCollector) Config {
	return Config{
		StoreDir:     root,
		Debounce:     50 * time.Millisecond,
		DebounceTick: 10 * time.Millisecond,
		ErrorHandler: collector.handle,
	}
}

func fakeFactory(src *fakeSource) sourceFactory {
	return func() (eventSource, error) { return src, nil }
}

func waitReady(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Ready():
	case err := <-s.Err():
		t.Fatalf("session failed before the scan completed: %v", err)
	case <-time.After(testTimeout):
		t.Fatal("initial scan did not complete")
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func closeSession(t *testing.T, s *Session) {
	t.Helper()
	if err := s.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestWatch_InitialScan(t *testing.T) {
	root := writeStore(t, "a.gpg", "sub/b.gpg", "notes.txt")
	collector := &errorCollector{}

	s, err := watch(context.Background(), testConfig(root, collector), fakeFactory(newFakeSource()))
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	defer closeSession(t, s)
	waitReady(t, s)

	if !equalNames(s.Index().Snapshot(), "a", "sub/b") {
		t.Errorf("index = %v, want [a sub/b]", names(s.Index().Snapshot()))
	}
	if got := s.Search("B"); !equalNames(got, "sub/b") {
		t.Errorf("Search(B) = %v", names(got))
	}
	if s.State() != StateActive {
		t.Errorf("State = %v, want Active", s.State())
	}
	if s.Suffix() != ".gpg" {
		t.Errorf("Suffix = %q", s.Suffix())
	}
	abs, _ := filepath.Abs(root)
	if s.Root() != abs {
		t.Errorf("Root = %q, want %q", s.Root(), abs)
	}
}

func TestWatch_CreateEventAppendsAndSignals(t *testing.T) {
	root := writeStore(t)
	src := newFakeSource()

	s, err := watch(context.Background(), testConfig(root, &errorCollector{}), fakeFactory(src))
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	defer closeSession(t, s)
	waitReady(t, s)

	path := filepath.Join(root, "bank.gpg")
	writeFile(t, path)
	src.events <- fsnotify.Event{Name: path, Op: fsnotify.Create}
	src.events <- fsnotify.Event{Name: path, Op: fsnotify.Create}

	select {
	case sig := <-s.Signals():
		if sig != SignalNewEntry {
			t.Errorf("signal = %v, want NewEntry", sig)
		}
	case <-time.After(testTimeout):
		t.Fatal("no signal for the new entry")
	}

	if e, ok := s.Index().Lookup("bank"); !ok || e.Location != path {
		t.Errorf("Lookup(bank) = %+v, %v", e, ok)
	}
	stats := s.Stats()
	if stats.Entries != 1 || stats.Indexed != 1 || stats.SignalsSent != 1 || !stats.ScanComplete {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestWatch_SignalsCoalesceWithoutListener(t *testing.T) {
	root := writeStore(t, "one.gpg", "two.gpg", "three.gpg")

	s, err := watch(context.Background(), testConfig(root, &errorCollector{}), fakeFactory(newFakeSource()))
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	defer closeSession(t, s)
	waitReady(t, s)

	stats := s.Stats()
	if stats.Entries != 3 || stats.SignalsSent != 1 || stats.SignalsDropped != 2 {
		t.Errorf("stats = %+v, want 3 entries, 1 sent, 2 dropped", stats)
	}
}

func TestWatch_EventStreamEndFailsSession(t *testing.T) {
	root := writeStore(t, "a.gpg")
	src := newFakeSource()
	collector := &errorCollector{}

	s, err := watch(context.Background(), testConfig(root, collector), fakeFactory(src))
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	waitReady(t, s)
	close(src.events)

	select {
	case err := <-s.Err():
		if code := errorCode(t, err); code != ErrCodeIntakeClosed {
			t.Errorf("code = %s, want %s", code, ErrCodeIntakeClosed)
		}
	case <-time.After(testTimeout):
		t.Fatal("no terminal error after the event stream closed")
	}

	select {
	case <-s.Done():
	case <-time.After(testTimeout):
		t.Fatal("session did not stop")
	}
	if s.State() != StateFailed {
		t.Errorf("State = %v, want Failed", s.State())
	}

	found := false
	for _, code := range collector.codes() {
		if code == ErrCodeWatchEvent {
			found = true
		}
	}
	if !found {
		t.Errorf("watcher failure was not reported, got %v", collector.codes())
	}

	// Entries indexed before the failure stay readable.
	if _, ok := s.Index().Lookup("a"); !ok {
		t.Error("index lost its entries after the failure")
	}
	closeSession(t, s)
}

func TestWatch_PanickingUnitFailsSession(t *testing.T) {
	src := newFakeSource()
	src.panics = true

	s, err := watch(context.Background(), testConfig(writeStore(t), &errorCollector{}), fakeFactory(src))
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	defer closeSession(t, s)

	select {
	case err := <-s.Err():
		if code := errorCode(t, err); code != ErrCodeUnitPanic {
			t.Errorf("code = %s, want %s", code, ErrCodeUnitPanic)
		}
	case <-time.After(testTimeout):
		t.Fatal("panic was not reported")
	}
}

func TestSession_CloseTwice(t *testing.T) {
	s, err := watch(context.Background(), testConfig(writeStore(t, "a.gpg"), &errorCollector{}), fakeFactory(newFakeSource()))
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	waitReady(t, s)

	if err := s.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if code := errorCode(t, s.Close()); code != ErrCodeSessionClosed {
		t.Errorf("code = %s, want %s", code, ErrCodeSessionClosed)
	}
	if s.State() != StateClosed {
		t.Errorf("State = %v, want Closed", s.State())
	}

	// The signal channel drains and then reports closure.
	for range s.Signals() {
	}
	if s.Index().Len() != 1 {
		t.Errorf("Len after Close = %d, want 1", s.Index().Len())
	}
}

func TestSession_ParentContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s, err := watch(ctx, testConfig(writeStore(t), &errorCollector{}), fakeFactory(newFakeSource()))
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	cancel()

	select {
	case <-s.Done():
	case <-time.After(testTimeout):
		t.Fatal("session ignored the cancelled parent context")
	}
	select {
	case err := <-s.Err():
		t.Errorf("cancellation must not produce an error, got %v", err)
	default:
	}
}

func TestWatch_SetupErrors(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0600); err != nil {
		t.Fatal(err)
	}

	addFails := newFakeSource()
	addFails.addErr = fmt.Errorf("too many watches")

	tests := []struct {
		name    string
		mutate  func(*Config)
		factory sourceFactory
		want    string
	}{
		{
			name:    "missing store",
			mutate:  func(c *Config) { c.StoreDir = filepath.Join(t.TempDir(), "missing") },
			factory: fakeFactory(newFakeSource()),
			want:    ErrCodeStoreNotFound,
		},
		{
			name:    "store is a file",
			mutate:  func(c *Config) { c.StoreDir = file },
			factory: fakeFactory(newFakeSource()),
			want:    ErrCodeStoreNotDir,
		},
		{
			name:    "suffix without dot",
			mutate:  func(c *Config) { c.Suffix = "gpg" },
			factory: fakeFactory(newFakeSource()),
			want:    ErrCodeInvalidSuffix,
		},
		{
			name:    "watcher creation fails",
			mutate:  func(c *Config) {},
			factory: func() (eventSource, error) { return nil, fmt.Errorf("inotify exhausted") },
			want:    ErrCodeWatchSetup,
		},
		{
			name:    "root subscription fails",
			mutate:  func(c *Config) {},
			factory: fakeFactory(addFails),
			want:    ErrCodeWatchSetup,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(writeStore(t), &errorCollector{})
			tt.mutate(&cfg)
			s, err := watch(context.Background(), cfg, tt.factory)
			if s != nil {
				_ = s.Close()
				t.Fatal("expected no session on setup failure")
			}
			if code := errorCode(t, err); code != tt.want {
				t.Errorf("code = %s, want %s", code, tt.want)
			}
		})
	}
}

func TestWatch_TrackRemovals(t *testing.T) {
	root := writeStore(t, "keep.gpg", "drop.gpg")
	src := newFakeSource()
	cfg := testConfig(root, &errorCollector{})
	cfg.TrackRemovals = true

	s, err := watch(context.Background(), cfg, fakeFactory(src))
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	defer closeSession(t, s)
	waitReady(t, s)

	path := filepath.Join(root, "drop.gpg")
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	src.events <- fsnotify.Event{Name: path, Op: fsnotify.Remove}

	waitFor(t, "removal", func() bool { return s.Index().Len() == 1 })
	if _, ok := s.Index().Lookup("keep"); !ok {
		t.Error("unrelated entry removed")
	}
	if s.Stats().Removed != 1 {
		t.Errorf("Removed = %d, want 1", s.Stats().Removed)
	}
}

func TestWatch_AppendOnlyByDefault(t *testing.T) {
	root := writeStore(t, "stay.gpg")
	src := newFakeSource()

	s, err := watch(context.Background(), testConfig(root, &errorCollector{}), fakeFactory(src))
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	defer closeSession(t, s)
	waitReady(t, s)

	path := filepath.Join(root, "stay.gpg")
	src.events <- fsnotify.Event{Name: path, Op: fsnotify.Remove}
	marker := filepath.Join(root, "marker.gpg")
	writeFile(t, marker)
	src.events <- fsnotify.Event{Name: marker, Op: fsnotify.Create}

	waitFor(t, "marker entry", func() bool { _, ok := s.Index().Lookup("marker"); return ok })
	if _, ok := s.Index().Lookup("stay"); !ok {
		t.Error("entry removed although removal tracking is off")
	}
}

func TestWatch_RealFilesystem(t *testing.T) {
	root := writeStore(t, "a.gpg", "sub/b.gpg", "notes.txt")

	s, err := Watch(context.Background(), testConfig(root, &errorCollector{}))
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer closeSession(t, s)
	waitReady(t, s)

	if !equalNames(s.Index().Snapshot(), "a", "sub/b") {
		t.Fatalf("index = %v, want [a sub/b]", names(s.Index().Snapshot()))
	}

	writeFile(t, filepath.Join(root, "c.gpg"))
	writeFile(t, filepath.Join(root, "sub", "e.gpg"))
	writeFile(t, filepath.Join(root, "new", "d.gpg"))

	for _, name := range []string{"c", "sub/e", "new/d"} {
		waitFor(t, name, func() bool { _, ok := s.Index().Lookup(name); return ok })
	}
	if _, ok := s.Index().Lookup("notes"); ok {
		t.Error("file without the suffix was indexed")
	}
}
