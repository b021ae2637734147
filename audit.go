// audit.go: Audit trail for Arcanum store activity
//
// Records what the index learned about the store and every failed
// decryption, with tamper-detection checksums. Secret material is never
// part of an event.
//
// Features:
// - Immutable audit events with SHA-256 checksums
// - Buffered writes with background flushing
// - SQLite or JSONL storage, queryable from the CLI
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arcanum

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/agilira/go-timecache"
)

// AuditLevel represents the severity of audit events
type AuditLevel int

const (
	AuditInfo AuditLevel = iota
	AuditWarn
	AuditCritical
	AuditSecurity
)

func (al AuditLevel) String() string {
	switch al {
	case AuditInfo:
		return "INFO"
	case AuditWarn:
		return "WARN"
	case AuditCritical:
		return "CRITICAL"
	case AuditSecurity:
		return "SECURITY"
	default:
		return "UNKNOWN"
	}
}

// AuditEvent represents a single auditable event
type AuditEvent struct {
	Timestamp   time.Time              `json:"timestamp"`
	Level       AuditLevel             `json:"level"`
	Event       string                 `json:"event"`
	Component   string                 `json:"component"`
	FilePath    string                 `json:"file_path,omitempty"`
	OldValue    interface{}            `json:"old_value,omitempty"`
	NewValue    interface{}            `json:"new_value,omitempty"`
	ProcessID   int                    `json:"process_id"`
	ProcessName string                 `json:"process_name"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Checksum    string                 `json:"checksum"` // For tamper detection
}

// AuditConfig configures the audit system
type AuditConfig struct {
	Enabled       bool          `json:"enabled" yaml:"enabled"`
	OutputFile    string        `json:"output_file" yaml:"output_file"`
	MinLevel      AuditLevel    `json:"min_level" yaml:"min_level"`
	BufferSize    int           `json:"buffer_size" yaml:"buffer_size"`
	FlushInterval time.Duration `json:"flush_interval" yaml:"flush_interval"`

	// MaxFileSize triggers rotation of JSONL files during maintenance.
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// RetentionDays bounds the age of SQLite events kept by maintenance.
	RetentionDays int `json:"retention_days" yaml:"retention_days"`
}

// DefaultAuditConfig returns the audit defaults. Auditing is opt-in; once
// enabled with an empty OutputFile, events go to the shared SQLite
// database under the user cache directory.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Enabled:       false,
		OutputFile:    "",
		MinLevel:      AuditInfo,
		BufferSize:    100,
		FlushInterval: 5 * time.Second,
		MaxFileSize:   10 << 20,
		RetentionDays: 90,
	}
}

// AuditQuery filters audit events. Zero fields do not filter.
type AuditQuery struct {
	Since    time.Time
	Event    string
	FilePath string
	Limit    int
}

// AuditLogger provides buffered audit logging over a pluggable backend.
// A nil or disabled logger accepts every call and records nothing.
type AuditLogger struct {
	config      AuditConfig
	backend     auditBackend
	buffer      []AuditEvent
	bufferMu    sync.Mutex
	flushTicker *time.Ticker
	stopCh      chan struct{}
	closeOnce   sync.Once
	processID   int
	processName string
}

// NewAuditLogger creates an audit logger. A disabled configuration yields
// a logger without backend and touches no file.
func NewAuditLogger(config AuditConfig) (*AuditLogger, error) {
	logger := &AuditLogger{
		config:      config,
		stopCh:      make(chan struct{}),
		processID:   os.Getpid(),
		processName: getProcessName(),
	}
	if !config.Enabled {
		return logger, nil
	}

	backend, err := createAuditBackend(config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audit backend: %w", err)
	}
	logger.backend = backend
	logger.buffer = make([]AuditEvent, 0, config.BufferSize)

	if config.FlushInterval > 0 {
		logger.flushTicker = time.NewTicker(config.FlushInterval)
		go logger.flushLoop()
	}

	return logger, nil
}

// Log records an audit event
func (al *AuditLogger) Log(level AuditLevel, event, component, filePath string, oldVal, newVal interface{}, context map[string]interface{}) {
	if al == nil || al.backend == nil || !al.config.Enabled || level < al.config.MinLevel {
		return
	}

	auditEvent := AuditEvent{
		Timestamp:   timecache.CachedTime(),
		Level:       level,
		Event:       event,
		Component:   component,
		FilePath:    filePath,
		OldValue:    oldVal,
		NewValue:    newVal,
		ProcessID:   al.processID,
		ProcessName: al.processName,
		Context:     context,
	}
	auditEvent.Checksum = generateChecksum(auditEvent)

	al.bufferMu.Lock()
	al.buffer = append(al.buffer, auditEvent)
	if len(al.buffer) >= al.config.BufferSize {
		_ = al.flushBufferUnsafe() // Ignore flush errors during buffering to maintain performance
	}
	al.bufferMu.Unlock()
}

// LogStoreEvent logs an informational store event about a path
func (al *AuditLogger) LogStoreEvent(event, filePath string) {
	al.Log(AuditInfo, event, "arcanum", filePath, nil, nil, nil)
}

// LogSecurityEvent logs security-related events
func (al *AuditLogger) LogSecurityEvent(event, details string, context map[string]interface{}) {
	if context == nil {
		context = make(map[string]interface{}, 1)
	}
	context["details"] = details
	al.Log(AuditSecurity, event, "arcanum", "", nil, nil, context)
}

// LogDecryptFailure records a failed decryption without any plaintext.
func (al *AuditLogger) LogDecryptFailure(entry Entry, err error) {
	al.Log(AuditSecurity, "decrypt_failed", "decrypter", entry.Location, nil, nil,
		map[string]interface{}{"entry": entry.Name, "error": err.Error()})
}

// Enabled reports whether events are persisted.
func (al *AuditLogger) Enabled() bool {
	return al != nil && al.backend != nil && al.config.Enabled
}

// Flush immediately writes all buffered events
func (al *AuditLogger) Flush() error {
	if al == nil || al.backend == nil {
		return nil
	}
	al.bufferMu.Lock()
	defer al.bufferMu.Unlock()
	return al.flushBufferUnsafe()
}

// Query flushes pending events and returns the matching ones, oldest first.
func (al *AuditLogger) Query(q AuditQuery) ([]AuditEvent, error) {
	if !al.Enabled() {
		return nil, fmt.Errorf("audit logging is not enabled")
	}
	if err := al.Flush(); err != nil {
		return nil, err
	}
	return al.backend.Query(q)
}

// Stats returns backend statistics.
func (al *AuditLogger) Stats() (*AuditDatabaseStats, error) {
	if !al.Enabled() {
		return nil, fmt.Errorf("audit logging is not enabled")
	}
	if err := al.Flush(); err != nil {
		return nil, err
	}
	return al.backend.GetStats()
}

// Maintenance runs backend housekeeping: retention for SQLite, rotation
// and compression for JSONL.
func (al *AuditLogger) Maintenance() error {
	if !al.Enabled() {
		return fmt.Errorf("audit logging is not enabled")
	}
	if err := al.Flush(); err != nil {
		return err
	}
	return al.backend.Maintenance()
}

// Close gracefully shuts down the audit logger. It is safe to call more
// than once.
func (al *AuditLogger) Close() error {
	if al == nil {
		return nil
	}
	var closeErr error
	al.closeOnce.Do(func() {
		close(al.stopCh)
		if al.flushTicker != nil {
			al.flushTicker.Stop()
		}

		if err := al.Flush(); err != nil {
			closeErr = fmt.Errorf("failed to flush audit logger during close: %w", err)
			return
		}

		if al.backend != nil {
			if err := al.backend.Close(); err != nil {
				closeErr = fmt.Errorf("failed to close audit backend: %w", err)
			}
		}
	})
	return closeErr
}

// flushLoop runs the background flush process
func (al *AuditLogger) flushLoop() {
	for {
		select {
		case <-al.flushTicker.C:
			_ = al.Flush() // Ignore flush errors in background process to maintain performance
		case <-al.stopCh:
			return
		}
	}
}

// flushBufferUnsafe writes buffer to backend storage (caller must hold bufferMu).
func (al *AuditLogger) flushBufferUnsafe() error {
	if len(al.buffer) == 0 {
		return nil
	}

	if err := al.backend.Write(al.buffer); err != nil {
		return fmt.Errorf("failed to write audit events to backend: %w", err)
	}

	al.buffer = al.buffer[:0]
	return nil
}

// generateChecksum creates a tamper-detection checksum using SHA-256
func generateChecksum(event AuditEvent) string {
	data := fmt.Sprintf("%s:%s:%s:%s:%v:%v",
		event.Timestamp.Format(time.RFC3339Nano),
		event.Event, event.Component, event.FilePath, event.OldValue, event.NewValue)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// VerifyChecksum reports whether event still matches its checksum.
func VerifyChecksum(event AuditEvent) bool {
	return event.Checksum == generateChecksum(event)
}

func getProcessName() string {
	if len(os.Args) == 0 || os.Args[0] == "" {
		return "arcanum"
	}
	return filepath.Base(os.Args[0])
}
