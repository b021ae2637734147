// audit_backend.go: Storage backends for the Arcanum audit trail
//
// Two backends implement the same contract: SQLite, queryable and
// self-maintaining, and JSONL, rotated into zstd archives once a size
// threshold is crossed.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arcanum

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3" // SQLite driver registration
)

// auditBackend abstracts audit storage.
type auditBackend interface {
	// Write persists a batch of audit events.
	Write(events []AuditEvent) error

	// Flush ensures all pending writes are committed to storage.
	Flush() error

	// Close releases all resources. The backend must not be used afterwards.
	Close() error

	// Maintenance applies retention (SQLite) or rotation (JSONL).
	Maintenance() error

	// GetStats returns statistics about stored events.
	GetStats() (*AuditDatabaseStats, error)

	// Query returns stored events matching q, oldest first.
	Query(q AuditQuery) ([]AuditEvent, error)
}

// createAuditBackend selects the backend from the output file extension:
// ".jsonl" selects JSONL, anything else SQLite with JSONL as fallback.
func createAuditBackend(config AuditConfig) (auditBackend, error) {
	if config.OutputFile != "" && filepath.Ext(config.OutputFile) == ".jsonl" {
		return newJSONLBackend(config)
	}

	backend, err := newSQLiteBackend(config)
	if err == nil {
		return backend, nil
	}

	if config.OutputFile == "" || filepath.Ext(config.OutputFile) == ".db" {
		return nil, fmt.Errorf("SQLite audit backend failed: %w", err)
	}
	jsonlBackend, jsonlErr := newJSONLBackend(config)
	if jsonlErr != nil {
		return nil, fmt.Errorf("all audit backends failed - SQLite: %w, JSONL: %v", err, jsonlErr)
	}
	return jsonlBackend, nil
}

// UnifiedAuditPath returns the shared SQLite database used when no output
// file is configured.
func UnifiedAuditPath() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "arcanum", "audit.db")
}

// sqliteAuditBackend implements auditBackend on SQLite.
type sqliteAuditBackend struct {
	db            *sql.DB
	dbPath        string
	sourceFile    string
	retentionDays int
	insertStmt    *sql.Stmt
	mu            sync.RWMutex
	closed        bool
}

func newSQLiteBackend(config AuditConfig) (*sqliteAuditBackend, error) {
	dbPath := UnifiedAuditPath()
	if config.OutputFile != "" {
		dbPath = config.OutputFile
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create audit database directory: %w", err)
	}

	db, err := openSQLiteDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	retention := config.RetentionDays
	if retention <= 0 {
		retention = DefaultAuditConfig().RetentionDays
	}

	backend := &sqliteAuditBackend{
		db:            db,
		dbPath:        dbPath,
		sourceFile:    config.OutputFile,
		retentionDays: retention,
	}

	if err := backend.ensureSchemaVersion(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize audit database schema: %w", err)
	}
	if err := backend.prepareStatements(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to prepare audit database statements: %w", err)
	}

	// Maintenance is not critical at startup.
	_ = backend.performMaintenance()

	return backend, nil
}

// openSQLiteDatabase opens the database in WAL mode with a busy timeout so
// the CLI and a daemon can share it.
func openSQLiteDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_cache_size=1000", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database (close error: %v): %w", closeErr, err)
		}
		return nil, fmt.Errorf("failed to ping audit database: %w", err)
	}

	return db, nil
}

const currentSchemaVersion = 2

// ensureSchemaVersion migrates the schema up to currentSchemaVersion.
//   - Version 1: audit_events table with basic indexes
//   - Version 2: composite indexes for CLI queries
func (s *sqliteAuditBackend) ensureSchemaVersion() error {
	if _, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS schema_info (
		version INTEGER PRIMARY KEY,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("failed to create schema_info table: %w", err)
	}

	var version int
	err := s.db.QueryRow("SELECT version FROM schema_info ORDER BY version DESC LIMIT 1").Scan(&version)
	if err != nil {
		if err != sql.ErrNoRows {
			return fmt.Errorf("failed to check schema version: %w", err)
		}
		version = 0
	}

	if version >= currentSchemaVersion {
		return nil
	}
	if err := s.migrateSchema(version, currentSchemaVersion); err != nil {
		return fmt.Errorf("schema migration from v%d to v%d failed: %w", version, currentSchemaVersion, err)
	}
	if _, err := s.db.Exec(`INSERT OR REPLACE INTO schema_info (version, updated_at) VALUES (?, CURRENT_TIMESTAMP)`,
		currentSchemaVersion); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}
	return nil
}

// migrateSchema applies every migration between the two versions in one
// transaction.
func (s *sqliteAuditBackend) migrateSchema(oldVersion, newVersion int) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for version := oldVersion; version < newVersion; version++ {
		switch version {
		case 0:
			err = migrateToV1(tx)
		case 1:
			err = migrateToV2(tx)
		default:
			err = fmt.Errorf("unknown migration path from version %d", version)
		}
		if err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration transaction: %w", err)
	}
	return nil
}

func migrateToV1(tx *sql.Tx) error {
	if _, err := tx.Exec(`
	CREATE TABLE IF NOT EXISTS audit_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		level TEXT NOT NULL,
		event TEXT NOT NULL,
		component TEXT NOT NULL,
		original_output_file TEXT NOT NULL,
		file_path TEXT,
		old_value TEXT,
		new_value TEXT,
		process_id INTEGER NOT NULL,
		process_name TEXT NOT NULL,
		context TEXT,
		checksum TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("failed to create audit_events table: %w", err)
	}

	for _, indexSQL := range []string{
		"CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_audit_level ON audit_events(level)",
		"CREATE INDEX IF NOT EXISTS idx_audit_component ON audit_events(component)",
		"CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit_events(created_at)",
	} {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create basic index: %w", err)
		}
	}
	return nil
}

func migrateToV2(tx *sql.Tx) error {
	for _, indexSQL := range []string{
		"CREATE INDEX IF NOT EXISTS idx_audit_event_time ON audit_events(event, timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_audit_path_time ON audit_events(file_path, timestamp)",
	} {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create composite index: %w", err)
		}
	}
	return nil
}

// performMaintenance deletes events older than the retention period and
// checkpoints the WAL.
func (s *sqliteAuditBackend) performMaintenance() error {
	if _, err := s.db.Exec(`DELETE FROM audit_events WHERE created_at < datetime('now', '-' || ? || ' days')`,
		s.retentionDays); err != nil {
		return fmt.Errorf("failed to cleanup old audit events: %w", err)
	}

	for _, task := range []string{"PRAGMA optimize", "PRAGMA wal_checkpoint(FULL)"} {
		if _, err := s.db.Exec(task); err != nil {
			continue
		}
	}
	return nil
}

func (s *sqliteAuditBackend) prepareStatements() error {
	stmt, err := s.db.Prepare(`
	INSERT INTO audit_events (
		timestamp, level, event, component,
		original_output_file, process_id, process_name,
		file_path, old_value, new_value, context, checksum
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	s.insertStmt = stmt
	return nil
}

// AuditDatabaseStats represents statistics about stored audit events.
type AuditDatabaseStats struct {
	TotalEvents       int64            `json:"total_events"`
	EventsByLevel     map[string]int64 `json:"events_by_level"`
	EventsByComponent map[string]int64 `json:"events_by_component"`
	OldestEvent       *time.Time       `json:"oldest_event"`
	NewestEvent       *time.Time       `json:"newest_event"`
	DatabaseSize      int64            `json:"database_size_bytes"`
	SchemaVersion     int              `json:"schema_version"`
}

func (s *sqliteAuditBackend) GetStats() (*AuditDatabaseStats, error) {
	stats := &AuditDatabaseStats{
		EventsByLevel:     make(map[string]int64),
		EventsByComponent: make(map[string]int64),
	}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM audit_events").Scan(&stats.TotalEvents); err != nil {
		return nil, fmt.Errorf("failed to get total events count: %w", err)
	}
	if err := s.countBy("level", stats.EventsByLevel); err != nil {
		return nil, err
	}
	if err := s.countBy("component", stats.EventsByComponent); err != nil {
		return nil, err
	}

	var oldest, newest sql.NullString
	if err := s.db.QueryRow("SELECT MIN(timestamp), MAX(timestamp) FROM audit_events").Scan(&oldest, &newest); err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get event time range: %w", err)
	}
	if oldest.Valid {
		if t, err := time.Parse(time.RFC3339Nano, oldest.String); err == nil {
			stats.OldestEvent = &t
		}
	}
	if newest.Valid {
		if t, err := time.Parse(time.RFC3339Nano, newest.String); err == nil {
			stats.NewestEvent = &t
		}
	}

	if err := s.db.QueryRow("SELECT version FROM schema_info ORDER BY version DESC LIMIT 1").Scan(&stats.SchemaVersion); err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}
	if info, err := os.Stat(s.dbPath); err == nil {
		stats.DatabaseSize = info.Size()
	}
	return stats, nil
}

// countBy fills out with event counts grouped by column, which is one of
// the fixed names used by GetStats.
func (s *sqliteAuditBackend) countBy(column string, out map[string]int64) error {
	rows, err := s.db.Query("SELECT " + column + ", COUNT(*) FROM audit_events GROUP BY " + column) // #nosec G202 -- column is a constant
	if err != nil {
		return fmt.Errorf("failed to get events by %s: %w", column, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("failed to scan %s stats: %w", column, err)
		}
		out[key] = count
	}
	return rows.Err()
}

// Write persists a batch of events inside one transaction.
func (s *sqliteAuditBackend) Write(events []AuditEvent) (err error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return fmt.Errorf("cannot write to closed SQLite audit backend")
	}
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin audit transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				fmt.Fprintf(os.Stderr, "Failed to rollback audit transaction: %v\n", rollbackErr)
			}
		}
	}()

	txStmt := tx.Stmt(s.insertStmt)
	defer func() { _ = txStmt.Close() }()

	for _, event := range events {
		if err = s.insertEvent(txStmt, event); err != nil {
			return fmt.Errorf("failed to insert audit event: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit transaction: %w", err)
	}
	return nil
}

func (s *sqliteAuditBackend) insertEvent(stmt *sql.Stmt, event AuditEvent) error {
	oldValueJSON, err := marshalOptional(event.OldValue)
	if err != nil {
		return fmt.Errorf("failed to serialize old_value: %w", err)
	}
	newValueJSON, err := marshalOptional(event.NewValue)
	if err != nil {
		return fmt.Errorf("failed to serialize new_value: %w", err)
	}
	contextJSON := ""
	if event.Context != nil {
		data, err := json.Marshal(event.Context)
		if err != nil {
			return fmt.Errorf("failed to serialize context: %w", err)
		}
		contextJSON = string(data)
	}

	_, err = stmt.Exec(
		event.Timestamp.UTC().Format(time.RFC3339Nano),
		event.Level.String(),
		event.Event,
		event.Component,
		s.sourceFile,
		event.ProcessID,
		event.ProcessName,
		event.FilePath,
		oldValueJSON,
		newValueJSON,
		contextJSON,
		event.Checksum,
	)
	return err
}

func marshalOptional(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalOptional(s string) interface{} {
	if s == "" {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

// Query returns events matching q, oldest first.
func (s *sqliteAuditBackend) Query(q AuditQuery) ([]AuditEvent, error) {
	var (
		where []string
		args  []interface{}
	)
	if !q.Since.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, q.Since.UTC().Format(time.RFC3339Nano))
	}
	if q.Event != "" {
		where = append(where, "event = ?")
		args = append(args, q.Event)
	}
	if q.FilePath != "" {
		where = append(where, "file_path LIKE ?")
		args = append(args, "%"+q.FilePath+"%")
	}

	query := `SELECT timestamp, level, event, component, file_path, old_value, new_value,
		process_id, process_name, context, checksum FROM audit_events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id ASC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []AuditEvent
	for rows.Next() {
		var (
			ts, level, event, component string
			path, oldV, newV, ctxJSON   sql.NullString
			checksum                    sql.NullString
			pid                         int
			pname                       string
		)
		if err := rows.Scan(&ts, &level, &event, &component, &path, &oldV, &newV, &pid, &pname, &ctxJSON, &checksum); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		parsed, _ := time.Parse(time.RFC3339Nano, ts)
		ev := AuditEvent{
			Timestamp:   parsed,
			Level:       levelFromString(level),
			Event:       event,
			Component:   component,
			FilePath:    path.String,
			OldValue:    unmarshalOptional(oldV.String),
			NewValue:    unmarshalOptional(newV.String),
			ProcessID:   pid,
			ProcessName: pname,
			Checksum:    checksum.String,
		}
		if ctxJSON.String != "" {
			_ = json.Unmarshal([]byte(ctxJSON.String), &ev.Context)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func levelFromString(s string) AuditLevel {
	for _, l := range []AuditLevel{AuditInfo, AuditWarn, AuditCritical, AuditSecurity} {
		if l.String() == s {
			return l
		}
	}
	return AuditInfo
}

// Flush forces a WAL checkpoint.
func (s *sqliteAuditBackend) Flush() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to flush SQLite audit backend: %w", err)
	}
	return nil
}

func (s *sqliteAuditBackend) Maintenance() error {
	return s.performMaintenance()
}

// Close checkpoints and closes the database. Safe to call more than once.
func (s *sqliteAuditBackend) Close() error {
	if err := s.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to flush audit database: %v\n", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if s.insertStmt != nil {
		if err := s.insertStmt.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close insert statement: %w", err))
		}
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing SQLite audit backend: %v", errs)
	}
	return nil
}

// jsonlAuditBackend appends one JSON object per line.
type jsonlAuditBackend struct {
	file        *os.File
	path        string
	maxFileSize int64
	mu          sync.Mutex
	closed      bool
}

func newJSONLBackend(config AuditConfig) (*jsonlAuditBackend, error) {
	if config.OutputFile == "" {
		return nil, fmt.Errorf("JSONL backend requires OutputFile to be specified")
	}
	if err := os.MkdirAll(filepath.Dir(config.OutputFile), 0700); err != nil {
		return nil, fmt.Errorf("failed to create JSONL audit log directory: %w", err)
	}

	file, err := openJSONLFile(config.OutputFile)
	if err != nil {
		return nil, err
	}
	return &jsonlAuditBackend{
		file:        file,
		path:        config.OutputFile,
		maxFileSize: config.MaxFileSize,
	}, nil
}

func openJSONLFile(path string) (*os.File, error) {
	// Owner read/write only
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) // #nosec G304 -- audit path from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open JSONL audit log file: %w", err)
	}
	return file, nil
}

func (j *jsonlAuditBackend) Write(events []AuditEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return fmt.Errorf("cannot write to closed JSONL audit backend")
	}

	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to serialize audit event: %w", err)
		}
		data = append(data, '\n')
		if _, err := j.file.Write(data); err != nil {
			return fmt.Errorf("failed to write audit event to JSONL: %w", err)
		}
	}
	return nil
}

func (j *jsonlAuditBackend) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync JSONL audit file: %w", err)
	}
	return nil
}

// Maintenance rotates the active file once it exceeds maxFileSize. The
// rotated content is compressed with zstd next to the original as
// <name>.<timestamp>.zst and a fresh file is opened.
func (j *jsonlAuditBackend) Maintenance() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed || j.maxFileSize <= 0 {
		return nil
	}
	info, err := j.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat JSONL audit file: %w", err)
	}
	if info.Size() < j.maxFileSize {
		return nil
	}

	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync JSONL audit file: %w", err)
	}
	data, err := os.ReadFile(j.path)
	if err != nil {
		return fmt.Errorf("failed to read JSONL audit file for rotation: %w", err)
	}

	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	compressed := encoder.EncodeAll(data, make([]byte, 0, len(data)/4))
	_ = encoder.Close()

	archive := fmt.Sprintf("%s.%s.zst", j.path, time.Now().UTC().Format("20060102T150405.000000000"))
	if err := os.WriteFile(archive, compressed, 0600); err != nil {
		return fmt.Errorf("failed to write audit archive: %w", err)
	}

	if err := j.file.Close(); err != nil {
		return fmt.Errorf("failed to close rotated audit file: %w", err)
	}
	if err := os.Truncate(j.path, 0); err != nil {
		return fmt.Errorf("failed to truncate rotated audit file: %w", err)
	}
	file, err := openJSONLFile(j.path)
	if err != nil {
		j.closed = true
		return err
	}
	j.file = file
	return nil
}

// GetStats counts the events of the active file.
func (j *jsonlAuditBackend) GetStats() (*AuditDatabaseStats, error) {
	stats := &AuditDatabaseStats{
		EventsByLevel:     make(map[string]int64),
		EventsByComponent: make(map[string]int64),
		SchemaVersion:     1,
	}
	if info, err := os.Stat(j.path); err == nil {
		stats.DatabaseSize = info.Size()
	}

	events, err := j.Query(AuditQuery{})
	if err != nil {
		return nil, err
	}
	for i := range events {
		ev := &events[i]
		stats.TotalEvents++
		stats.EventsByLevel[ev.Level.String()]++
		stats.EventsByComponent[ev.Component]++
		if stats.OldestEvent == nil || ev.Timestamp.Before(*stats.OldestEvent) {
			t := ev.Timestamp
			stats.OldestEvent = &t
		}
		if stats.NewestEvent == nil || ev.Timestamp.After(*stats.NewestEvent) {
			t := ev.Timestamp
			stats.NewestEvent = &t
		}
	}
	return stats, nil
}

// Query scans the active file. Rotated archives are not searched.
func (j *jsonlAuditBackend) Query(q AuditQuery) ([]AuditEvent, error) {
	f, err := os.Open(j.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSONL audit file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var events []AuditEvent
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev AuditEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			continue // skip corrupted lines
		}
		if !q.Since.IsZero() && ev.Timestamp.Before(q.Since) {
			continue
		}
		if q.Event != "" && ev.Event != q.Event {
			continue
		}
		if q.FilePath != "" && !strings.Contains(ev.FilePath, q.FilePath) {
			continue
		}
		events = append(events, ev)
		if q.Limit > 0 && len(events) >= q.Limit {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read JSONL audit file: %w", err)
	}
	return events, nil
}

func (j *jsonlAuditBackend) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	return j.file.Close()
}
