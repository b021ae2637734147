// arcanum: Live index of an encrypted password store
//
// Philosophy:
// - One writer, many readers: the index is published as immutable snapshots
// - Native filesystem notifications with per-path debounce
// - Every background failure reaches the session owner, never the process
// - Secrets are decrypted lazily, per call, and never cached
//
// Example Usage:
//   session, err := arcanum.Watch(ctx, arcanum.Config{})
//   if err != nil {
//       return err
//   }
//   defer session.Close()
//
//   for {
//       select {
//       case <-session.Signals():
//           render(session.Search(query))
//       case err := <-session.Err():
//           return err
//       }
//   }
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arcanum

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// Error codes for Arcanum operations
const (
	ErrCodeInvalidConfig        = "ARCANUM_INVALID_CONFIG"
	ErrCodeConfigNotFound       = "ARCANUM_CONFIG_NOT_FOUND"
	ErrCodeStoreNotFound        = "ARCANUM_STORE_NOT_FOUND"
	ErrCodeStoreNotDir          = "ARCANUM_STORE_NOT_DIR"
	ErrCodeStoreUnreadable      = "ARCANUM_STORE_UNREADABLE"
	ErrCodeWatchSetup           = "ARCANUM_WATCH_SETUP"
	ErrCodeWatchEvent           = "ARCANUM_WATCH_EVENT"
	ErrCodeScanEntry            = "ARCANUM_SCAN_ENTRY"
	ErrCodeInvalidEntry         = "ARCANUM_INVALID_ENTRY"
	ErrCodeIntakeClosed         = "ARCANUM_INTAKE_CLOSED"
	ErrCodeUnitPanic            = "ARCANUM_UNIT_PANIC"
	ErrCodeSessionClosed        = "ARCANUM_SESSION_CLOSED"
	ErrCodeDecryptFailed        = "ARCANUM_DECRYPT_FAILED"
	ErrCodeInvalidGenerator     = "ARCANUM_INVALID_GENERATOR"
	ErrCodeInvalidSuffix        = "ARCANUM_INVALID_SUFFIX"
	ErrCodeInvalidDebounce      = "ARCANUM_INVALID_DEBOUNCE"
	ErrCodeInvalidIntakeBuffer  = "ARCANUM_INVALID_INTAKE_BUFFER"
	ErrCodeInvalidAuditConfig   = "ARCANUM_INVALID_AUDIT_CONFIG"
	ErrCodeInvalidBufferSize    = "ARCANUM_INVALID_BUFFER_SIZE"
	ErrCodeInvalidFlushInterval = "ARCANUM_INVALID_FLUSH_INTERVAL"
	ErrCodeInvalidOutputFile    = "ARCANUM_INVALID_OUTPUT_FILE"
	ErrCodeAuditUnavailable     = "ARCANUM_AUDIT_UNAVAILABLE"
	ErrCodeLockHeld             = "ARCANUM_LOCK_HELD"
	ErrCodeHelpRequested        = "ARCANUM_HELP_REQUESTED"
)

// ErrorHandler is called for non-fatal errors raised while scanning or
// watching. It receives the error and the path involved.
type ErrorHandler func(err error, path string)

// State is the observable lifecycle state of a Session.
type State int32

const (
	StateSettingUp State = iota
	StateActive
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateSettingUp:
		return "SettingUp"
	case StateActive:
		return "Active"
	case StateFailed:
		return "Failed"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// SessionStats reports counters of a running session.
type SessionStats struct {
	Entries        int   `json:"entries"`
	Indexed        int64 `json:"indexed"`
	Removed        int64 `json:"removed"`
	SignalsSent    int64 `json:"signals_sent"`
	SignalsDropped int64 `json:"signals_dropped"`
	ScanComplete   bool  `json:"scan_complete"`
}

// Session keeps an Index in sync with a password store directory. A
// scanner and a watcher feed a single aggregator through the intake
// channel; the aggregator is the only goroutine that mutates the index.
type Session struct {
	config Config
	root   string
	idx    *Index
	agg    *aggregator
	src    eventSource

	// AUDIT SYSTEM: security and compliance trail, nil-safe
	auditLogger *AuditLogger

	errCh chan error
	state atomic.Int32

	units  conc.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	closed atomic.Bool
}

// Watch resolves the store directory, subscribes to filesystem events and
// starts the background scan. All setup failures are returned here, before
// any goroutine runs. The session stops when ctx is cancelled or Close is
// called.
func Watch(ctx context.Context, config Config) (*Session, error) {
	return watch(ctx, config, newFsnotifySource)
}

func watch(ctx context.Context, config Config, newSource sourceFactory) (*Session, error) {
	cfg := config.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	root, err := ResolveStoreDir(cfg.StoreDir)
	if err != nil {
		return nil, err
	}

	auditLogger, err := NewAuditLogger(cfg.Audit)
	if err != nil {
		// Fallback to disabled audit if setup fails
		cfg.ErrorHandler(err, cfg.Audit.OutputFile)
		auditLogger, _ = NewAuditLogger(AuditConfig{Enabled: false})
	}

	src, err := newSource()
	if err != nil {
		_ = auditLogger.Close()
		return nil, errors.Wrap(err, ErrCodeWatchSetup, "cannot create filesystem watcher").
			WithContext("root", root)
	}

	w := &fsWatcher{
		root:          root,
		suffix:        cfg.Suffix,
		src:           src,
		deb:           newDebouncer(cfg.Debounce),
		tick:          cfg.DebounceTick,
		now:           timecache.CachedTime,
		trackRemovals: cfg.TrackRemovals,
		onError:       cfg.ErrorHandler,
		audit:         auditLogger,
	}
	if err := w.subscribe(); err != nil {
		_ = src.Close()
		_ = auditLogger.Close()
		return nil, err
	}

	sessCtx, cancel := context.WithCancel(ctx)
	idx := newIndex()
	s := &Session{
		config:      *cfg,
		root:        root,
		idx:         idx,
		agg:         newAggregator(idx, auditLogger),
		src:         src,
		auditLogger: auditLogger,
		errCh:       make(chan error, 4),
		ctx:         sessCtx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	s.state.Store(int32(StateSettingUp))

	sc := &scanner{root: root, suffix: cfg.Suffix, onError: cfg.ErrorHandler, audit: auditLogger}
	s.start(sc, w, cfg.IntakeBuffer)

	auditLogger.LogStoreEvent("session_start", root)
	s.state.CompareAndSwap(int32(StateSettingUp), int32(StateActive))
	return s, nil
}

// start launches the producers, the aggregator and the supervisor that
// closes the intake once both producers returned.
func (s *Session) start(sc *scanner, w *fsWatcher, buffer int) {
	intake := make(chan intakeItem, buffer)

	var producers sync.WaitGroup
	producers.Add(2)

	s.units.Go(func() {
		defer producers.Done()
		s.runUnit("scanner", func() error { return sc.run(s.ctx, intake) }, false)
	})
	s.units.Go(func() {
		defer producers.Done()
		s.runUnit("watcher", func() error { return w.run(s.ctx, intake) }, false)
	})
	s.units.Go(func() {
		producers.Wait()
		close(intake)
	})
	s.units.Go(func() {
		s.runUnit("aggregator", func() error { return s.agg.run(s.ctx, intake) }, true)
		// Nothing can mutate the index any more, stop the producers too.
		s.cancel()
	})

	go s.supervise()
}

// runUnit runs fn with panic recovery. Errors of terminal units end the
// session; errors of producers are reported and the producer stops.
func (s *Session) runUnit(name string, fn func() error, terminal bool) {
	var pc panics.Catcher
	var err error
	pc.Try(func() { err = fn() })

	if r := pc.Recovered(); r != nil {
		s.fail(errors.New(ErrCodeUnitPanic, "background unit panicked").
			WithContext("unit", name).
			WithContext("panic", fmt.Sprint(r.Value)))
		return
	}
	if err == nil || s.ctx.Err() != nil {
		return
	}
	if terminal {
		s.fail(err)
		return
	}
	s.auditLogger.Log(AuditCritical, "unit_stopped", name, s.root, nil, nil,
		map[string]interface{}{"error": err.Error()})
	s.config.ErrorHandler(err, s.root)
}

// supervise waits for every unit and releases session resources.
func (s *Session) supervise() {
	if r := s.units.WaitAndRecover(); r != nil {
		s.fail(errors.New(ErrCodeUnitPanic, "background unit panicked").
			WithContext("panic", r.String()))
	}
	close(s.agg.signals)
	_ = s.src.Close()
	s.state.CompareAndSwap(int32(StateActive), int32(StateClosed))
	s.state.CompareAndSwap(int32(StateSettingUp), int32(StateClosed))
	_ = s.auditLogger.Close()
	close(s.done)
}

// fail records a terminal error and marks the session as failed. Only the
// first errors fitting in the buffer are kept.
func (s *Session) fail(err error) {
	s.state.Store(int32(StateFailed))
	s.auditLogger.Log(AuditCritical, "session_failed", "arcanum", s.root, nil, nil,
		map[string]interface{}{"error": err.Error()})
	s.config.ErrorHandler(err, s.root)
	select {
	case s.errCh <- err:
	default:
	}
}

// Index returns the read handle of the shared index.
func (s *Session) Index() *Index {
	return s.idx
}

// Signals returns the change notification channel. It is closed once the
// session has stopped.
func (s *Session) Signals() <-chan Signal {
	return s.agg.signals
}

// Err delivers terminal session errors. The channel is never closed.
func (s *Session) Err() <-chan error {
	return s.errCh
}

// Ready is closed once every entry found by the initial scan is in the index.
func (s *Session) Ready() <-chan struct{} {
	return s.agg.ready
}

// Done is closed when all background units stopped and resources are released.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Root returns the resolved store directory.
func (s *Session) Root() string {
	return s.root
}

// Suffix returns the credential filename suffix in use.
func (s *Session) Suffix() string {
	return s.config.Suffix
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Search runs Search against the session index.
func (s *Session) Search(query string) []Entry {
	return Search(s.idx, query)
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() SessionStats {
	return SessionStats{
		Entries:        s.idx.Len(),
		Indexed:        s.agg.indexed.Load(),
		Removed:        s.agg.removed.Load(),
		SignalsSent:    s.agg.sent.Load(),
		SignalsDropped: s.agg.dropped.Load(),
		ScanComplete:   s.agg.scanDone.Load(),
	}
}

// Close stops every background unit and waits for them to exit.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return errors.New(ErrCodeSessionClosed, "session is already closed")
	}
	s.cancel()
	<-s.done
	return nil
}
