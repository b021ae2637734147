// Command handlers for the Arcanum CLI
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/agilira/arcanum"
	"github.com/agilira/go-errors"
	"github.com/agilira/orpheus/pkg/orpheus"
	"github.com/sourcegraph/conc/pool"
)

// handleList prints every credential name, filtered by an optional query.
func (m *Manager) handleList(ctx *orpheus.Context) error {
	query := ctx.GetArg(0)
	idx, root, err := m.loadIndex(m.storeConfig(ctx))
	if err != nil {
		return err
	}

	m.auditLogger.LogStoreEvent("cli_list", root)

	entries := arcanum.Search(idx, query)
	if len(entries) == 0 {
		if query != "" {
			fmt.Fprintf(m.out, "No credentials match '%s'\n", query)
		} else {
			fmt.Fprintf(m.out, "No credentials in %s\n", root)
		}
		return nil
	}
	for _, e := range entries {
		fmt.Fprintln(m.out, e.Name)
	}
	return nil
}

// handleFind searches credential names by substring or fuzzy match.
func (m *Manager) handleFind(ctx *orpheus.Context) error {
	query := ctx.GetArg(0)
	if query == "" {
		return errors.New(arcanum.ErrCodeInvalidConfig, "find requires a query")
	}
	idx, root, err := m.loadIndex(m.storeConfig(ctx))
	if err != nil {
		return err
	}

	m.auditLogger.LogStoreEvent("cli_find", root)

	if ctx.GetFlagBool("fuzzy") {
		matches := arcanum.FuzzySearch(idx, query)
		for _, match := range matches {
			fmt.Fprintf(m.out, "%s\t%d\n", match.Entry.Name, match.Score)
		}
		if len(matches) == 0 {
			fmt.Fprintf(m.out, "No credentials match '%s'\n", query)
		}
		return nil
	}

	entries := arcanum.Search(idx, query)
	for _, e := range entries {
		fmt.Fprintln(m.out, e.Name)
	}
	if len(entries) == 0 {
		fmt.Fprintf(m.out, "No credentials match '%s'\n", query)
	}
	return nil
}

// handleShow decrypts the named credentials in parallel and prints or
// copies their passwords.
func (m *Manager) handleShow(ctx *orpheus.Context) error {
	names := args(ctx)
	if len(names) == 0 {
		return errors.New(arcanum.ErrCodeInvalidConfig, "show requires at least one credential name")
	}
	clip := ctx.GetFlagBool("clip")
	if clip && len(names) > 1 {
		return errors.New(arcanum.ErrCodeInvalidConfig, "--clip accepts a single credential")
	}

	idx, _, err := m.loadIndex(m.storeConfig(ctx))
	if err != nil {
		return err
	}

	entries := make([]arcanum.Entry, len(names))
	for i, name := range names {
		e, ok := idx.Lookup(name)
		if !ok {
			return errors.New(arcanum.ErrCodeInvalidEntry, fmt.Sprintf("credential '%s' not found", name))
		}
		entries[i] = e
	}

	secrets, err := m.decryptAll(entries, ctx.GetFlagInt("workers"))
	defer func() {
		for i := range secrets {
			secrets[i].Zero()
		}
	}()
	if err != nil {
		return err
	}

	if clip {
		if err := m.copy(string(secrets[0].Bytes())); err != nil {
			return errors.Wrap(err, arcanum.ErrCodeDecryptFailed, "cannot write to clipboard")
		}
		fmt.Fprintf(m.out, "Copied %s to clipboard\n", entries[0].Name)
		return nil
	}

	for i, e := range entries {
		if len(entries) == 1 {
			fmt.Fprintf(m.out, "%s\n", secrets[i].Bytes())
			continue
		}
		fmt.Fprintf(m.out, "%s: %s\n", e.Name, secrets[i].Bytes())
	}
	return nil
}

// decryptAll decrypts entries with at most workers concurrent decryptions.
// The first failure cancels the remaining ones.
func (m *Manager) decryptAll(entries []arcanum.Entry, workers int) ([]arcanum.Secret, error) {
	if workers <= 0 {
		workers = 1
	}
	secrets := make([]arcanum.Secret, len(entries))

	p := pool.New().
		WithMaxGoroutines(workers).
		WithContext(m.ctx).
		WithCancelOnError()
	for i, e := range entries {
		p.Go(func(ctx context.Context) error {
			secret, err := e.Password(ctx, m.decrypter)
			if err != nil {
				m.auditLogger.LogDecryptFailure(e, err)
				return errors.Wrap(err, arcanum.ErrCodeDecryptFailed, "cannot decrypt credential").
					WithContext("entry", e.Name)
			}
			m.auditLogger.Log(arcanum.AuditInfo, "cli_show", "cli", e.Location, nil, nil,
				map[string]interface{}{"entry": e.Name})
			secrets[i] = secret
			return nil
		})
	}
	return secrets, p.Wait()
}

// handleWatch follows the store until the context ends or the session fails.
func (m *Manager) handleWatch(ctx *orpheus.Context) error {
	config := m.storeConfig(ctx)
	config.TrackRemovals = config.TrackRemovals || ctx.GetFlagBool("track-removals")

	session, err := m.openSession(config)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	seen := make(map[string]string)
	for _, e := range session.Index().Snapshot() {
		seen[e.Location] = e.Name
	}
	fmt.Fprintf(m.out, "Watching %s (%d credentials)\n", session.Root(), len(seen))

	for {
		select {
		case <-m.ctx.Done():
			m.printWatchStats(ctx, session)
			return nil
		case err := <-session.Err():
			return err
		case _, ok := <-session.Signals():
			if !ok {
				select {
				case err := <-session.Err():
					return err
				default:
				}
				m.printWatchStats(ctx, session)
				return nil
			}
			m.printChanges(session.Index().Snapshot(), seen, config.TrackRemovals)
		}
	}
}

// printChanges reports entries that appeared, and disappeared when
// removals are tracked, since the previous call. seen maps locations to
// entry names.
func (m *Manager) printChanges(snapshot []arcanum.Entry, seen map[string]string, removals bool) {
	current := make(map[string]bool, len(snapshot))
	for _, e := range snapshot {
		current[e.Location] = true
		if _, ok := seen[e.Location]; !ok {
			fmt.Fprintf(m.out, "+ %s\n", e.Name)
			seen[e.Location] = e.Name
		}
	}
	if !removals {
		return
	}

	var gone []string
	for location := range seen {
		if !current[location] {
			gone = append(gone, location)
		}
	}
	sort.Strings(gone)
	for _, location := range gone {
		fmt.Fprintf(m.out, "- %s\n", seen[location])
		delete(seen, location)
	}
}

func (m *Manager) printWatchStats(ctx *orpheus.Context, session *arcanum.Session) {
	if !ctx.GetFlagBool("verbose") {
		return
	}
	stats := session.Stats()
	fmt.Fprintf(m.out, "Entries: %d, indexed: %d, removed: %d, signals: %d sent / %d dropped\n",
		stats.Entries, stats.Indexed, stats.Removed, stats.SignalsSent, stats.SignalsDropped)
}

// handlePick runs the interactive picker on a live session.
func (m *Manager) handlePick(ctx *orpheus.Context) error {
	session, err := m.openSession(m.storeConfig(ctx))
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	return m.runPicker(session, ctx.GetArg(0))
}

// handleGenerate prints or copies a random password.
func (m *Manager) handleGenerate(ctx *orpheus.Context) error {
	opts := arcanum.GeneratorOptions{
		Length:           ctx.GetFlagInt("length"),
		Lowercase:        !ctx.GetFlagBool("no-lower"),
		Uppercase:        !ctx.GetFlagBool("no-upper"),
		Digits:           !ctx.GetFlagBool("no-digits"),
		Symbols:          !ctx.GetFlagBool("no-symbols"),
		ExcludeAmbiguous: ctx.GetFlagBool("no-ambiguous"),
	}

	secret, err := arcanum.GeneratePassword(opts)
	if err != nil {
		return err
	}
	defer secret.Zero()

	if ctx.GetFlagBool("clip") {
		if err := m.copy(string(secret.Bytes())); err != nil {
			return errors.Wrap(err, arcanum.ErrCodeInvalidGenerator, "cannot write to clipboard")
		}
		fmt.Fprintf(m.out, "Copied %d-character password to clipboard\n", secret.Len())
		return nil
	}
	fmt.Fprintf(m.out, "%s\n", secret.Bytes())
	return nil
}

// handleAuditQuery queries the audit log with filtering options.
func (m *Manager) handleAuditQuery(ctx *orpheus.Context) error {
	if err := m.requireAudit(); err != nil {
		return err
	}

	q := arcanum.AuditQuery{
		Event:    ctx.GetFlagString("event"),
		FilePath: ctx.GetFlagString("file"),
		Limit:    ctx.GetFlagInt("limit"),
	}
	if since := ctx.GetFlagString("since"); since != "" {
		d, err := parseExtendedDuration(since)
		if err != nil {
			return errors.New(arcanum.ErrCodeInvalidConfig, fmt.Sprintf("invalid --since value: %v", err))
		}
		q.Since = timeNow().Add(-d)
	}

	events, err := m.auditLogger.Query(q)
	if err != nil {
		return errors.Wrap(err, arcanum.ErrCodeAuditUnavailable, "audit query failed")
	}
	if len(events) == 0 {
		fmt.Fprintln(m.out, "No audit events found")
		return nil
	}
	for _, ev := range events {
		fmt.Fprintf(m.out, "%s  %-8s  %-16s  %s\n",
			ev.Timestamp.Local().Format("2006-01-02 15:04:05"), ev.Level, ev.Event, ev.FilePath)
	}
	return nil
}

// handleAuditStats shows what the audit backend holds.
func (m *Manager) handleAuditStats(ctx *orpheus.Context) error {
	if err := m.requireAudit(); err != nil {
		return err
	}
	stats, err := m.auditLogger.Stats()
	if err != nil {
		return errors.Wrap(err, arcanum.ErrCodeAuditUnavailable, "audit statistics unavailable")
	}
	m.printAuditStats(stats)
	return nil
}

func (m *Manager) printAuditStats(stats *arcanum.AuditDatabaseStats) {
	fmt.Fprintf(m.out, "Total events: %d\n", stats.TotalEvents)
	fmt.Fprintf(m.out, "Storage size: %d bytes\n", stats.DatabaseSize)
	if stats.OldestEvent != nil && stats.NewestEvent != nil {
		fmt.Fprintf(m.out, "Range: %s .. %s\n",
			stats.OldestEvent.Local().Format("2006-01-02 15:04:05"),
			stats.NewestEvent.Local().Format("2006-01-02 15:04:05"))
	}

	levels := make([]string, 0, len(stats.EventsByLevel))
	for level := range stats.EventsByLevel {
		levels = append(levels, level)
	}
	sort.Strings(levels)
	for _, level := range levels {
		fmt.Fprintf(m.out, "  %-8s %d\n", level, stats.EventsByLevel[level])
	}
}

// handleAuditCleanup applies retention (SQLite) or rotation (JSONL).
func (m *Manager) handleAuditCleanup(ctx *orpheus.Context) error {
	if err := m.requireAudit(); err != nil {
		return err
	}
	if ctx.GetFlagBool("dry-run") {
		stats, err := m.auditLogger.Stats()
		if err != nil {
			return errors.Wrap(err, arcanum.ErrCodeAuditUnavailable, "audit statistics unavailable")
		}
		fmt.Fprintln(m.out, "Dry run, nothing changed")
		m.printAuditStats(stats)
		return nil
	}
	if err := m.auditLogger.Maintenance(); err != nil {
		return errors.Wrap(err, arcanum.ErrCodeAuditUnavailable, "audit maintenance failed")
	}
	fmt.Fprintln(m.out, "Audit maintenance completed")
	return nil
}

// handleInfo displays configuration and store diagnostics.
func (m *Manager) handleInfo(ctx *orpheus.Context) error {
	config := m.storeConfig(ctx)

	fmt.Fprintf(m.out, "Arcanum %s\n", Version)
	root, err := arcanum.ResolveStoreDir(config.StoreDir)
	if err != nil {
		fmt.Fprintf(m.out, "Store: unavailable (%s)\n", arcanum.GetValidationErrorCode(err))
	} else {
		fmt.Fprintf(m.out, "Store: %s\n", root)
	}
	fmt.Fprintf(m.out, "Suffix: %s\n", config.Suffix)
	fmt.Fprintf(m.out, "Debounce: %v\n", config.Debounce)
	fmt.Fprintf(m.out, "Track removals: %v\n", config.TrackRemovals)
	fmt.Fprintf(m.out, "Audit logging: %v\n", m.auditLogger.Enabled())

	if result := config.ValidateDetailed(); !result.Valid || len(result.Warnings) > 0 {
		fmt.Fprintln(m.out, result.String())
		for _, w := range result.Warnings {
			fmt.Fprintf(m.out, "  warning: %s\n", w)
		}
		for _, e := range result.Errors {
			fmt.Fprintf(m.out, "  error: %s\n", e)
		}
	}

	if ctx.GetFlagBool("verbose") && err == nil {
		entries, scanErr := arcanum.ScanDir(m.ctx, root, config.Suffix)
		if scanErr != nil {
			return scanErr
		}
		dirs := make(map[string]struct{})
		for _, e := range entries {
			if i := strings.LastIndexByte(e.Name, '/'); i > 0 {
				dirs[e.Name[:i]] = struct{}{}
			}
		}
		fmt.Fprintf(m.out, "Credentials: %d in %d folders\n", len(entries), len(dirs))
	}
	return nil
}

// handleCompletion generates shell completion scripts.
func (m *Manager) handleCompletion(ctx *orpheus.Context) error {
	const commands = "list find show pick watch generate audit info completion"

	switch shell := ctx.GetArg(0); shell {
	case "bash":
		fmt.Fprintf(m.out, "# Bash completion for arcanum\n")
		fmt.Fprintf(m.out, "# Add to ~/.bashrc: source <(arcanum completion bash)\n")
		fmt.Fprintf(m.out, "_arcanum_completion() {\n")
		fmt.Fprintf(m.out, "  COMPREPLY=($(compgen -W '%s' -- \"${COMP_WORDS[COMP_CWORD]}\"))\n", commands)
		fmt.Fprintf(m.out, "}\n")
		fmt.Fprintf(m.out, "complete -F _arcanum_completion arcanum\n")
	case "zsh":
		fmt.Fprintf(m.out, "#compdef arcanum\n")
		fmt.Fprintf(m.out, "_arcanum() {\n")
		fmt.Fprintf(m.out, "  _arguments '1: :(%s)'\n", commands)
		fmt.Fprintf(m.out, "}\n")
	case "fish":
		fmt.Fprintf(m.out, "complete -c arcanum -f -a '%s'\n", commands)
	default:
		return errors.New(arcanum.ErrCodeInvalidConfig, fmt.Sprintf("unsupported shell: %s", shell))
	}
	return nil
}
