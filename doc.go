// Package arcanum keeps a live, searchable index of the credentials held in
// a pass-style password store: a directory tree of individually encrypted
// files, one file per credential.
//
// # Architecture Overview
//
// A Session runs three background units connected by a bounded intake
// channel:
//  1. **Scanner**: one walk of the store at startup, in lexical order
//  2. **Watcher**: fsnotify subscription on every directory, with a
//     per-path debounce so an editor save yields one entry
//  3. **Aggregator**: the only writer of the Index; it publishes a new
//     immutable snapshot for every change and emits a coalescing Signal
//
// The watcher subscribes before the scanner starts, so a file created during
// startup is reported by at least one of them.
//
// Quick start:
//
//	session, err := arcanum.Watch(ctx, arcanum.Config{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer session.Close()
//
//	<-session.Ready()
//	for _, e := range session.Search("github") {
//		fmt.Println(e.Name)
//	}
//
// # Index and Search
//
// Readers never block the aggregator. Index.Snapshot returns a private copy,
// Search performs a case-insensitive substring match on the entry name, and
// FuzzySearch ranks entries by subsequence match:
//
//	for _, m := range arcanum.FuzzySearch(session.Index(), "gthb") {
//		fmt.Println(m.Entry.Name, m.Score)
//	}
//
// An index is append-only unless Config.TrackRemovals is set, in which case
// deleted or renamed files leave it and a SignalEntryRemoved is emitted.
//
// # Signals and Errors
//
// Session.Signals carries at most one pending notification. Signals that
// find the buffer full are dropped, so a consumer that re-reads the index
// after every receive sees every entry. Terminal failures of the session are
// delivered on Session.Err and move the session to StateFailed; they never
// terminate the process.
//
// # Decryption
//
// Decryption is lazy and per call:
//
//	secret, err := entry.Password(ctx, arcanum.GPGDecrypter{})
//	if err != nil {
//		return err // ARCANUM_DECRYPT_FAILED
//	}
//	defer secret.Zero()
//
// GPGDecrypter runs the gpg binary; KeyringDecrypter uses an in-process
// OpenPGP keyring. Secret redacts itself when printed or marshalled.
//
// # Configuration
//
// Config values come from defaults, a YAML file, ARCANUM_* environment
// variables and command-line flags, in increasing precedence:
//
//	config, err := arcanum.LoadConfigMultiSource("/etc/arcanum.yaml")
//
// # Audit Trail
//
// With Config.Audit.Enabled the session records scans, indexed and removed
// entries, watcher errors and failed decryptions in SQLite (default) or
// JSONL. Each event carries a SHA-256 checksum. No secret material is ever
// recorded.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package arcanum
