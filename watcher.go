// watcher.go: Filesystem watcher with per-path debounce
//
// The watcher subscribes to every directory of the store through fsnotify,
// which is not recursive by itself: directories created later are added
// when their create event arrives and walked for files that landed before
// the subscription was in place.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arcanum

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/agilira/go-errors"
	"github.com/fsnotify/fsnotify"
)

// eventSource is the subset of *fsnotify.Watcher the watcher relies on.
type eventSource interface {
	Add(dir string) error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
	Close() error
}

// sourceFactory opens a new event source for a session.
type sourceFactory func() (eventSource, error)

type fsnotifySource struct {
	w *fsnotify.Watcher
}

func newFsnotifySource() (eventSource, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &fsnotifySource{w: w}, nil
}

func (s *fsnotifySource) Add(dir string) error          { return s.w.Add(dir) }
func (s *fsnotifySource) Events() <-chan fsnotify.Event { return s.w.Events }
func (s *fsnotifySource) Errors() <-chan error          { return s.w.Errors }
func (s *fsnotifySource) Close() error                  { return s.w.Close() }

// debouncer coalesces repeated events on the same path. A path becomes due
// once window has elapsed since its most recent touch. It is owned by a
// single goroutine and does no locking.
type debouncer struct {
	window  time.Duration
	seq     uint64
	pending map[string]pendingPath
}

type pendingPath struct {
	last time.Time
	seq  uint64 // first-touch order
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{window: window, pending: make(map[string]pendingPath)}
}

// Touch records an event on path at now.
func (d *debouncer) Touch(path string, now time.Time) {
	p, ok := d.pending[path]
	if !ok {
		d.seq++
		p.seq = d.seq
	}
	p.last = now
	d.pending[path] = p
}

// Forget drops any pending event on path.
func (d *debouncer) Forget(path string) {
	delete(d.pending, path)
}

// Due removes and returns the paths whose window has elapsed at now,
// in the order they were first touched.
func (d *debouncer) Due(now time.Time) []string {
	type due struct {
		path string
		seq  uint64
	}
	var ready []due
	for path, p := range d.pending {
		if now.Sub(p.last) >= d.window {
			ready = append(ready, due{path: path, seq: p.seq})
		}
	}
	if len(ready) == 0 {
		return nil
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i].seq < ready[j].seq })

	out := make([]string, len(ready))
	for i, r := range ready {
		out[i] = r.path
		delete(d.pending, r.path)
	}
	return out
}

// Pending returns the number of paths waiting for their window.
func (d *debouncer) Pending() int {
	return len(d.pending)
}

// fsWatcher turns filesystem events into intake items.
type fsWatcher struct {
	root          string
	suffix        string
	src           eventSource
	deb           *debouncer
	tick          time.Duration
	now           func() time.Time
	trackRemovals bool
	onError       ErrorHandler
	audit         *AuditLogger
}

// subscribe adds root and every directory beneath it to the event source.
// Failing to subscribe to root itself is a setup error; failures on
// subdirectories are reported and skipped.
func (w *fsWatcher) subscribe() error {
	if err := w.src.Add(w.root); err != nil {
		return errors.Wrap(err, ErrCodeWatchSetup, "cannot watch store root").
			WithContext("root", w.root)
	}
	w.addTree(w.root, false)
	return nil
}

// addTree subscribes every directory below dir. With touchFiles set, the
// credential files already present are queued as if they had just been
// created.
func (w *fsWatcher) addTree(dir string, touchFiles bool) {
	now := w.now()
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.report(errors.Wrap(err, ErrCodeWatchEvent, "cannot walk directory").
				WithContext("path", path), path)
			return nil
		}
		if d.IsDir() {
			if path == w.root {
				return nil
			}
			if addErr := w.src.Add(path); addErr != nil {
				w.report(errors.Wrap(addErr, ErrCodeWatchEvent, "cannot watch directory").
					WithContext("path", path), path)
			}
			return nil
		}
		if touchFiles && strings.HasSuffix(d.Name(), w.suffix) {
			w.deb.Touch(path, now)
		}
		return nil
	})
}

// run processes events until ctx is cancelled. A closed event stream ends
// the watcher with an error while the session is still live.
func (w *fsWatcher) run(ctx context.Context, intake chan<- intakeItem) error {
	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	events := w.src.Events()
	errs := w.src.Errors()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return errors.New(ErrCodeWatchEvent, "filesystem event stream closed").
					WithContext("root", w.root)
			}
			if err := w.handle(ctx, ev, intake); err != nil {
				return err
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.report(errors.Wrap(err, ErrCodeWatchEvent, "filesystem watcher error").
				WithContext("root", w.root), w.root)

		case <-ticker.C:
			if err := w.flush(ctx, intake); err != nil {
				return err
			}
		}
	}
}

// handle reacts to a single event. Only creations are indexed; removals
// and renames are forwarded when removal tracking is enabled.
func (w *fsWatcher) handle(ctx context.Context, ev fsnotify.Event, intake chan<- intakeItem) error {
	switch {
	case ev.Has(fsnotify.Create):
		if info, err := os.Lstat(ev.Name); err == nil && info.IsDir() {
			if addErr := w.src.Add(ev.Name); addErr != nil {
				w.report(errors.Wrap(addErr, ErrCodeWatchEvent, "cannot watch new directory").
					WithContext("path", ev.Name), ev.Name)
			}
			w.addTree(ev.Name, true)
			return nil
		}
		if strings.HasSuffix(ev.Name, w.suffix) {
			w.deb.Touch(ev.Name, w.now())
		}

	case w.trackRemovals && (ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)):
		w.deb.Forget(ev.Name)
		return w.send(ctx, intake, intakeItem{kind: itemRemoval, entry: Entry{Location: ev.Name}})
	}
	return nil
}

// flush emits an entry for every path whose debounce window has elapsed.
// Paths that vanished or turned into directories during the window, such
// as editor temp files, are dropped.
func (w *fsWatcher) flush(ctx context.Context, intake chan<- intakeItem) error {
	for _, path := range w.deb.Due(w.now()) {
		if info, err := os.Lstat(path); err != nil || info.IsDir() {
			continue
		}
		entry, err := NewEntry(w.root, path, w.suffix)
		if err != nil {
			w.report(err, path)
			continue
		}
		if err := w.send(ctx, intake, intakeItem{kind: itemEntry, entry: entry}); err != nil {
			return err
		}
	}
	return nil
}

func (w *fsWatcher) send(ctx context.Context, intake chan<- intakeItem, item intakeItem) error {
	select {
	case intake <- item:
		return nil
	case <-ctx.Done():
		return nil
	}
}

func (w *fsWatcher) report(err error, path string) {
	w.audit.Log(AuditWarn, "watch_error", "watcher", path, nil, nil,
		map[string]interface{}{"error": err.Error()})
	if w.onError != nil {
		w.onError(err, path)
	}
}
