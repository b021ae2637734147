// Package cli provides the command-line interface for Arcanum password stores.
//
// The CLI is built on the Orpheus framework with git-style subcommands:
// - list, find: search the store index
// - show, pick: decrypt a credential to stdout or the clipboard
// - watch: follow the store as new credentials appear
// - generate: create random passwords
// - audit, info: inspect the audit trail and the configuration
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"context"
	"io"
	"os"

	"github.com/agilira/arcanum"
	"github.com/agilira/orpheus/pkg/orpheus"
	"github.com/atotto/clipboard"
)

// Version of the arcanum command.
const Version = "1.0.0"

// Manager wires the Orpheus application to an Arcanum configuration.
type Manager struct {
	app         *orpheus.App
	ctx         context.Context
	out         io.Writer
	config      *arcanum.Config
	auditLogger *arcanum.AuditLogger // Optional audit integration
	decrypter   arcanum.Decrypter
	copy        func(string) error
}

// NewManager creates a CLI manager with every command registered. Output
// goes to stdout and credentials are decrypted with the gpg binary.
func NewManager() *Manager {
	app := orpheus.New("arcanum").
		SetDescription("Live index and search for encrypted password stores").
		SetVersion(Version)

	manager := &Manager{
		app:       app,
		ctx:       context.Background(),
		out:       os.Stdout,
		decrypter: arcanum.GPGDecrypter{},
		copy:      clipboard.WriteAll,
	}

	manager.setupStoreCommands()
	manager.setupSecretCommands()
	manager.setupUtilityCommands()

	return manager
}

// WithAudit enables audit logging for all CLI operations.
func (m *Manager) WithAudit(auditLogger *arcanum.AuditLogger) *Manager {
	m.auditLogger = auditLogger
	return m
}

// WithConfig sets the base configuration. Per-command flags override it.
func (m *Manager) WithConfig(config *arcanum.Config) *Manager {
	m.config = config
	return m
}

// WithDecrypter replaces the gpg binary decrypter.
func (m *Manager) WithDecrypter(d arcanum.Decrypter) *Manager {
	m.decrypter = d
	return m
}

// WithOutput redirects command output.
func (m *Manager) WithOutput(w io.Writer) *Manager {
	m.out = w
	return m
}

// WithContext sets the context long-running commands stop on.
func (m *Manager) WithContext(ctx context.Context) *Manager {
	m.ctx = ctx
	return m
}

// WithClipboard replaces the system clipboard writer.
func (m *Manager) WithClipboard(write func(string) error) *Manager {
	m.copy = write
	return m
}

// Run executes the CLI application with the provided arguments.
func (m *Manager) Run(args []string) error {
	return m.app.Run(args)
}

// Command Setup Methods

// setupStoreCommands registers the index commands: list, find and watch.
func (m *Manager) setupStoreCommands() {
	// list [query] [--store=]
	listCmd := orpheus.NewCommand("list", "List credentials, optionally filtered").
		AddFlag("store", "", "", "Password store directory").
		SetHandler(m.handleList)
	m.app.AddCommand(listCmd)

	// find <query> [--fuzzy] [--store=]
	findCmd := orpheus.NewCommand("find", "Search credential names").
		AddFlag("store", "", "", "Password store directory").
		AddBoolFlag("fuzzy", "z", false, "Rank by fuzzy match instead of substring").
		SetHandler(m.handleFind)
	m.app.AddCommand(findCmd)

	// watch [--store=] [--track-removals]
	watchCmd := orpheus.NewCommand("watch", "Follow the store and print new credentials").
		AddFlag("store", "", "", "Password store directory").
		AddBoolFlag("track-removals", "r", false, "Report deleted credentials").
		AddBoolFlag("verbose", "v", false, "Print session statistics on exit").
		SetHandler(m.handleWatch)
	m.app.AddCommand(watchCmd)
}

// setupSecretCommands registers show, pick and generate.
func (m *Manager) setupSecretCommands() {
	// show <name>... [--clip] [--workers=4]
	showCmd := orpheus.NewCommand("show", "Decrypt and print the password of credentials").
		AddFlag("store", "", "", "Password store directory").
		AddBoolFlag("clip", "c", false, "Copy the password to the clipboard instead of printing it").
		AddIntFlag("workers", "w", 4, "Parallel decryptions").
		SetHandler(m.handleShow)
	m.app.AddCommand(showCmd)

	// pick [query]
	pickCmd := orpheus.NewCommand("pick", "Interactive search, copies the chosen password").
		AddFlag("store", "", "", "Password store directory").
		SetHandler(m.handlePick)
	m.app.AddCommand(pickCmd)

	// generate [--length=20] [--no-symbols] ...
	generateCmd := orpheus.NewCommand("generate", "Generate a random password").
		AddIntFlag("length", "l", arcanum.DefaultGeneratorOptions().Length, "Password length").
		AddBoolFlag("no-lower", "", false, "Exclude lowercase letters").
		AddBoolFlag("no-upper", "", false, "Exclude uppercase letters").
		AddBoolFlag("no-digits", "", false, "Exclude digits").
		AddBoolFlag("no-symbols", "", false, "Exclude symbols").
		AddBoolFlag("no-ambiguous", "", false, "Exclude look-alike characters (0O1lI)").
		AddBoolFlag("clip", "c", false, "Copy to the clipboard instead of printing").
		SetHandler(m.handleGenerate)
	m.app.AddCommand(generateCmd)
}

// setupUtilityCommands registers audit, info and completion.
func (m *Manager) setupUtilityCommands() {
	auditCmd := orpheus.NewCommand("audit", "Audit log management")

	queryCmd := auditCmd.Subcommand("query", "Query audit logs", m.handleAuditQuery)
	queryCmd.AddFlag("since", "s", "24h", "Time range (e.g., 24h, 7d, 2w)")
	queryCmd.AddFlag("event", "e", "", "Event type filter")
	queryCmd.AddFlag("file", "f", "", "File path filter")
	queryCmd.AddIntFlag("limit", "l", 100, "Maximum results")

	auditCmd.Subcommand("stats", "Show audit storage statistics", m.handleAuditStats)

	cleanupCmd := auditCmd.Subcommand("cleanup", "Apply retention and rotation", m.handleAuditCleanup)
	cleanupCmd.AddBoolFlag("dry-run", "d", false, "Show statistics without changing anything")

	m.app.AddCommand(auditCmd)

	infoCmd := orpheus.NewCommand("info", "Configuration and store diagnostics")
	infoCmd.SetHandler(m.handleInfo)
	infoCmd.AddFlag("store", "", "", "Password store directory")
	infoCmd.AddBoolFlag("verbose", "v", false, "Scan the store and show statistics")
	m.app.AddCommand(infoCmd)

	completionCmd := orpheus.NewCommand("completion", "Generate shell completion scripts")
	completionCmd.SetHandler(m.handleCompletion)
	m.app.AddCommand(completionCmd)
}
