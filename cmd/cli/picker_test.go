// picker_test.go: Tests for the interactive credential picker
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/agilira/arcanum"
	tea "github.com/charmbracelet/bubbletea"
)

func newTestPicker(t *testing.T, f *CLITestFixture, signals chan arcanum.Signal, query string) pickerModel {
	t.Helper()
	entries, err := arcanum.ScanDir(context.Background(), f.root, ".gpg")
	if err != nil {
		t.Fatalf("ScanDir failed: %v", err)
	}
	return newPickerModel(context.Background(), arcanum.NewIndex(entries), signals, f.decrypter, f.copy, query)
}

func typeRunes(m pickerModel, s string) pickerModel {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return next.(pickerModel)
}

func press(m pickerModel, k tea.KeyType) (pickerModel, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: k})
	return next.(pickerModel), cmd
}

func TestPicker_FiltersAsYouType(t *testing.T) {
	f := NewCLITestFixture(t, testSecrets())
	m := newTestPicker(t, f, make(chan arcanum.Signal), "")

	if len(m.matches) != 4 {
		t.Fatalf("empty query shows %d matches, want 4", len(m.matches))
	}

	m = typeRunes(m, "em")
	if m.input.Value() != "em" {
		t.Fatalf("input = %q", m.input.Value())
	}
	for _, match := range m.matches {
		if !strings.HasPrefix(match.Entry.Name, "email/") {
			t.Errorf("unexpected match %q for query em", match.Entry.Name)
		}
	}
	if len(m.matches) != 2 {
		t.Errorf("matches = %d, want 2", len(m.matches))
	}

	view := m.View()
	if !strings.Contains(view, "2/4") || !strings.Contains(view, "enter: copy") {
		t.Errorf("view = %q", view)
	}
}

func TestPicker_CursorStaysInRange(t *testing.T) {
	f := NewCLITestFixture(t, testSecrets())
	m := newTestPicker(t, f, make(chan arcanum.Signal), "")

	m, _ = press(m, tea.KeyUp)
	if m.cursor != 0 {
		t.Errorf("cursor = %d after up at the top", m.cursor)
	}
	for i := 0; i < 10; i++ {
		m, _ = press(m, tea.KeyDown)
	}
	if m.cursor != 3 {
		t.Errorf("cursor = %d, want 3", m.cursor)
	}

	m = typeRunes(m, "github")
	if m.cursor != 0 || len(m.matches) != 1 {
		t.Errorf("cursor = %d, matches = %d after narrowing", m.cursor, len(m.matches))
	}
}

func TestPicker_EnterCopiesPassword(t *testing.T) {
	f := NewCLITestFixture(t, testSecrets())
	m := newTestPicker(t, f, make(chan arcanum.Signal), "github")

	m, cmd := press(m, tea.KeyEnter)
	if cmd == nil || !m.busy {
		t.Fatal("enter should start copying")
	}

	msg := cmd()
	copied, ok := msg.(copiedMsg)
	if !ok || copied.err != nil || copied.name != "github" {
		t.Fatalf("copy result = %#v", msg)
	}
	if f.Clipboard() != "gh-token" {
		t.Errorf("clipboard = %q", f.Clipboard())
	}

	next, cmd := m.Update(copied)
	m = next.(pickerModel)
	if m.chosen != "github" || m.busy {
		t.Errorf("chosen = %q, busy = %v", m.chosen, m.busy)
	}
	if _, quit := cmd().(tea.QuitMsg); !quit {
		t.Error("picker should quit after copying")
	}
}

func TestPicker_DecryptFailureStaysOpen(t *testing.T) {
	f := NewCLITestFixture(t, testSecrets())
	m := newTestPicker(t, f, make(chan arcanum.Signal), "bank")

	m, cmd := press(m, tea.KeyEnter)
	msg := cmd()
	next, quitCmd := m.Update(msg)
	m = next.(pickerModel)

	if m.err == nil || quitCmd != nil {
		t.Fatalf("err = %v, cmd = %v", m.err, quitCmd)
	}
	if !strings.Contains(m.View(), arcanum.ErrCodeDecryptFailed) {
		t.Errorf("error not rendered: %q", m.View())
	}
	if f.Clipboard() != "" {
		t.Errorf("clipboard written on failure: %q", f.Clipboard())
	}
}

func TestPicker_EnterWithoutMatches(t *testing.T) {
	f := NewCLITestFixture(t, testSecrets())
	m := newTestPicker(t, f, make(chan arcanum.Signal), "zzzz")

	if len(m.matches) != 0 {
		t.Fatalf("matches = %d", len(m.matches))
	}
	if _, cmd := press(m, tea.KeyEnter); cmd != nil {
		t.Error("enter without matches must do nothing")
	}
}

func TestPicker_Signals(t *testing.T) {
	f := NewCLITestFixture(t, testSecrets())
	signals := make(chan arcanum.Signal, 1)
	m := newTestPicker(t, f, signals, "")

	signals <- arcanum.SignalNewEntry
	msg := waitForSignal(signals)()
	if msg.(signalMsg).closed {
		t.Fatal("open channel reported as closed")
	}
	next, cmd := m.Update(msg)
	if cmd == nil {
		t.Error("picker should keep listening after a signal")
	}
	m = next.(pickerModel)

	close(signals)
	next, cmd = m.Update(waitForSignal(signals)())
	m = next.(pickerModel)
	if cmd != nil || !strings.Contains(m.status, "stopped") {
		t.Errorf("status = %q, cmd = %v", m.status, cmd)
	}
}

func TestPicker_EscQuits(t *testing.T) {
	f := NewCLITestFixture(t, nil)
	m := newTestPicker(t, f, make(chan arcanum.Signal), "")
	_, cmd := press(m, tea.KeyEsc)
	if cmd == nil {
		t.Fatal("esc should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("esc did not produce a quit message")
	}
}

func TestHighlight(t *testing.T) {
	plain := highlight(arcanum.Match{Entry: arcanum.Entry{Name: "github"}})
	if plain != "github" {
		t.Errorf("highlight without indexes = %q", plain)
	}
	marked := highlight(arcanum.Match{Entry: arcanum.Entry{Name: "github"}, MatchedIndexes: []int{0, 3}})
	for _, r := range "github" {
		if !strings.ContainsRune(marked, r) {
			t.Errorf("highlight dropped %q: %q", r, marked)
		}
	}
}
