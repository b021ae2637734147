// manager_test.go: Test fixture and setup tests for the Arcanum CLI
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"bytes"
	"context"
	"crypto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agilira/arcanum"
	"golang.org/x/crypto/openpgp"        //nolint:staticcheck // matches the keyring decrypter
	"golang.org/x/crypto/openpgp/packet" //nolint:staticcheck // matches the keyring decrypter
)

// pgpConfig pins SHA-256 so openpgp never falls back to RIPEMD160, which is
// not linked in.
var pgpConfig = &packet.Config{DefaultHash: crypto.SHA256}

// syncBuffer lets long-running commands write while the test reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	b.buf.Reset()
	b.mu.Unlock()
}

// CLITestFixture holds a temporary password store encrypted to a throwaway
// key and a manager wired to it.
type CLITestFixture struct {
	t         *testing.T
	root      string
	entity    *openpgp.Entity
	out       *syncBuffer
	manager   *Manager
	decrypter *arcanum.KeyringDecrypter

	clipMu    sync.Mutex
	clipboard string
}

func NewCLITestFixture(t *testing.T, secrets map[string]string) *CLITestFixture {
	t.Helper()

	entity, err := openpgp.NewEntity("Arcanum CLI Test", "", "cli@example.com", pgpConfig)
	if err != nil {
		t.Fatalf("Failed to create test key: %v", err)
	}

	f := &CLITestFixture{
		t:         t,
		root:      filepath.Join(t.TempDir(), "store"),
		entity:    entity,
		out:       &syncBuffer{},
		decrypter: &arcanum.KeyringDecrypter{Keyring: openpgp.EntityList{entity}},
	}
	if err := os.MkdirAll(f.root, 0700); err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	for name, secret := range secrets {
		f.AddSecret(name, secret)
	}

	f.manager = NewManager().
		WithOutput(f.out).
		WithDecrypter(f.decrypter).
		WithClipboard(f.copy).
		WithConfig(&arcanum.Config{Debounce: 50 * time.Millisecond})
	return f
}

// AddSecret writes an encrypted credential below the store root.
func (f *CLITestFixture) AddSecret(name, content string) string {
	f.t.Helper()
	path := filepath.Join(f.root, filepath.FromSlash(name)+".gpg")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		f.t.Fatalf("Failed to create directory: %v", err)
	}

	var buf bytes.Buffer
	w, err := openpgp.Encrypt(&buf, []*openpgp.Entity{f.entity}, nil, nil, pgpConfig)
	if err != nil {
		f.t.Fatalf("Failed to start encryption: %v", err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		f.t.Fatalf("Failed to encrypt: %v", err)
	}
	if err := w.Close(); err != nil {
		f.t.Fatalf("Failed to finish encryption: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		f.t.Fatalf("Failed to write secret: %v", err)
	}
	return path
}

func (f *CLITestFixture) copy(s string) error {
	f.clipMu.Lock()
	f.clipboard = s
	f.clipMu.Unlock()
	return nil
}

func (f *CLITestFixture) Clipboard() string {
	f.clipMu.Lock()
	defer f.clipMu.Unlock()
	return f.clipboard
}

// RunCLI runs a command against the fixture store and returns its output.
func (f *CLITestFixture) RunCLI(args ...string) (string, error) {
	f.t.Helper()
	f.out.Reset()
	err := f.manager.Run(args)
	return f.out.String(), err
}

// RunStore runs a command with --store pointing at the fixture.
func (f *CLITestFixture) RunStore(args ...string) (string, error) {
	f.t.Helper()
	return f.RunCLI(append(args, "--store", f.root)...)
}

func (f *CLITestFixture) EnableAudit() *arcanum.AuditLogger {
	f.t.Helper()
	config := arcanum.DefaultAuditConfig()
	config.Enabled = true
	config.OutputFile = filepath.Join(f.t.TempDir(), "audit.jsonl")
	config.FlushInterval = 0

	logger, err := arcanum.NewAuditLogger(config)
	if err != nil {
		f.t.Fatalf("Failed to create audit logger: %v", err)
	}
	f.t.Cleanup(func() { _ = logger.Close() })
	f.manager.WithAudit(logger)
	return logger
}

func assertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if !strings.Contains(err.Error(), code) {
		t.Errorf("expected %s error, got %v", code, err)
	}
}

func TestNewManager_Defaults(t *testing.T) {
	m := NewManager()
	if m.app == nil || m.out != os.Stdout || m.copy == nil {
		t.Fatal("manager not fully initialized")
	}
	if _, ok := m.decrypter.(arcanum.GPGDecrypter); !ok {
		t.Errorf("default decrypter = %T, want GPGDecrypter", m.decrypter)
	}
	if m.auditLogger.Enabled() {
		t.Error("audit should be off until WithAudit")
	}
}

func TestManager_Builders(t *testing.T) {
	var out bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	config := &arcanum.Config{Suffix: ".age"}

	m := NewManager().WithOutput(&out).WithContext(ctx).WithConfig(config)
	if m.out != &out || m.ctx != ctx || m.config != config {
		t.Error("builder methods did not apply")
	}
}

func TestManager_HelpAndVersion(t *testing.T) {
	f := NewCLITestFixture(t, nil)
	if _, err := f.RunCLI("--help"); err != nil {
		t.Errorf("--help failed: %v", err)
	}
	if _, err := f.RunCLI("--version"); err != nil {
		t.Errorf("--version failed: %v", err)
	}
}
