// Utility functions for the Arcanum CLI
//
// This file provides helpers shared by the command handlers: configuration
// resolution, one-shot index loading, session startup and duration parsing.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/agilira/arcanum"
	"github.com/agilira/go-errors"
	"github.com/agilira/orpheus/pkg/orpheus"
)

// maxArgs bounds the positional arguments read by multi-name commands.
const maxArgs = 256

var timeNow = time.Now

// storeConfig returns the effective configuration for a command carrying
// a --store flag.
func (m *Manager) storeConfig(ctx *orpheus.Context) arcanum.Config {
	var config arcanum.Config
	if m.config != nil {
		config = *m.config
	}
	if store := ctx.GetFlagString("store"); store != "" {
		config.StoreDir = store
	}
	if config.ErrorHandler == nil {
		config.ErrorHandler = func(err error, path string) {
			fmt.Fprintf(os.Stderr, "warning: %s: %v\n", path, err)
		}
	}
	return *config.WithDefaults()
}

// loadIndex scans the store once and returns a read-only index of it.
func (m *Manager) loadIndex(config arcanum.Config) (*arcanum.Index, string, error) {
	root, err := arcanum.ResolveStoreDir(config.StoreDir)
	if err != nil {
		return nil, "", err
	}
	entries, err := arcanum.ScanDir(m.ctx, root, config.Suffix)
	if err != nil {
		return nil, root, err
	}
	return arcanum.NewIndex(entries), root, nil
}

// openSession starts a live session and waits for its initial scan.
func (m *Manager) openSession(config arcanum.Config) (*arcanum.Session, error) {
	session, err := arcanum.Watch(m.ctx, config)
	if err != nil {
		return nil, err
	}

	select {
	case <-session.Ready():
		return session, nil
	case err := <-session.Err():
		_ = session.Close()
		return nil, err
	case <-m.ctx.Done():
		_ = session.Close()
		return nil, m.ctx.Err()
	}
}

// args collects the positional arguments of a command.
func args(ctx *orpheus.Context) []string {
	var out []string
	for i := 0; i < maxArgs; i++ {
		arg := ctx.GetArg(i)
		if arg == "" {
			break
		}
		out = append(out, arg)
	}
	return out
}

// requireAudit fails when no enabled audit logger is attached.
func (m *Manager) requireAudit() error {
	if !m.auditLogger.Enabled() {
		return errors.New(arcanum.ErrCodeAuditUnavailable, "audit logging not enabled")
	}
	return nil
}

// parseExtendedDuration parses duration strings with extended units (d, w).
// Supports all Go standard units (ns, us, ms, s, m, h) plus:
// - d: days (24 hours)
// - w: weeks (7 days)
//
// Examples: "30d", "2w", "7d", "24h", "5m", "30s"
func parseExtendedDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	matches := extendedDuration.FindStringSubmatch(s)
	if len(matches) != 3 {
		_, err := time.ParseDuration(s)
		return 0, err
	}

	value, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration value: %s", matches[1])
	}

	switch matches[2] {
	case "d":
		return time.Duration(value) * 24 * time.Hour, nil
	case "w":
		return time.Duration(value) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown unit: %s", matches[2])
	}
}

var extendedDuration = regexp.MustCompile(`^(\d+)(d|w)$`)
