// scanner.go: One-shot recursive discovery of credential files
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arcanum

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/agilira/go-errors"
)

// scanner walks the store once and reports every credential file it finds.
type scanner struct {
	root    string
	suffix  string
	onError ErrorHandler
	audit   *AuditLogger
}

// run walks root in lexical order and sends one entry per matching file,
// followed by a scan-complete marker. Unreadable subtrees and unusable
// names are reported and skipped. It returns ctx.Err() if cancelled while
// blocked on the intake.
func (s *scanner) run(ctx context.Context, intake chan<- intakeItem) error {
	found := 0
	walkErr := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			s.report(errors.Wrap(err, ErrCodeScanEntry, "cannot read path during scan").
				WithContext("path", path), path)
			if d != nil && d.IsDir() && path != s.root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), s.suffix) {
			return nil
		}

		entry, nameErr := NewEntry(s.root, path, s.suffix)
		if nameErr != nil {
			s.report(nameErr, path)
			return nil
		}

		select {
		case intake <- intakeItem{kind: itemEntry, entry: entry}:
			found++
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if walkErr != nil {
		return walkErr
	}

	s.audit.Log(AuditInfo, "scan_complete", "scanner", s.root, nil, nil,
		map[string]interface{}{"entries": found})

	select {
	case intake <- intakeItem{kind: itemScanDone}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *scanner) report(err error, path string) {
	s.audit.Log(AuditWarn, "scan_error", "scanner", path, nil, nil,
		map[string]interface{}{"error": err.Error()})
	if s.onError != nil {
		s.onError(err, path)
	}
}

// ScanDir performs a single scan of root without watching it and returns
// the entries in discovery order. Per-path problems are skipped.
func ScanDir(ctx context.Context, root, suffix string) ([]Entry, error) {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	if err := checkStoreDir(root); err != nil {
		return nil, err
	}

	intake := make(chan intakeItem, 64)
	s := &scanner{root: root, suffix: suffix}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.run(ctx, intake)
		close(intake)
	}()

	entries := make([]Entry, 0)
	for item := range intake {
		if item.kind == itemEntry {
			entries = append(entries, item.entry)
		}
	}
	if err := <-errCh; err != nil {
		return nil, errors.Wrap(err, ErrCodeScanEntry, "scan interrupted").
			WithContext("root", root)
	}
	return entries, nil
}
