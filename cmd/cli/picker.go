// Interactive credential picker for the Arcanum CLI
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/agilira/arcanum"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// pickerRows is the number of matches rendered at once.
const pickerRows = 12

var (
	pickerTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	pickerCursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	pickerMatchStyle  = lipgloss.NewStyle().Underline(true)
	pickerStatusStyle = lipgloss.NewStyle().Faint(true)
	pickerErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// signalMsg reports a change of the live index.
type signalMsg struct {
	closed bool
}

// copiedMsg reports the outcome of decrypting and copying a credential.
type copiedMsg struct {
	name string
	err  error
}

// pickerModel filters the live index as the user types and copies the
// password of the selected entry.
type pickerModel struct {
	ctx       context.Context
	idx       *arcanum.Index
	signals   <-chan arcanum.Signal
	decrypter arcanum.Decrypter
	copy      func(string) error

	input   textinput.Model
	matches []arcanum.Match
	cursor  int
	busy    bool
	status  string
	err     error
	chosen  string
}

func newPickerModel(ctx context.Context, idx *arcanum.Index, signals <-chan arcanum.Signal,
	d arcanum.Decrypter, copyFn func(string) error, query string) pickerModel {
	input := textinput.New()
	input.Placeholder = "search credentials"
	input.Prompt = "> "
	input.SetValue(query)
	input.Focus()

	m := pickerModel{
		ctx:       ctx,
		idx:       idx,
		signals:   signals,
		decrypter: d,
		copy:      copyFn,
		input:     input,
	}
	m.refilter()
	return m
}

// waitForSignal blocks until the index changes or the session stops.
func waitForSignal(signals <-chan arcanum.Signal) tea.Cmd {
	return func() tea.Msg {
		_, ok := <-signals
		return signalMsg{closed: !ok}
	}
}

func (m pickerModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForSignal(m.signals))
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "ctrl+n":
			if m.cursor < len(m.matches)-1 {
				m.cursor++
			}
			return m, nil
		case "enter":
			if len(m.matches) == 0 || m.busy {
				return m, nil
			}
			m.busy = true
			m.status = "decrypting " + m.matches[m.cursor].Entry.Name
			return m, m.copySelected(m.matches[m.cursor].Entry)
		}

		var cmd tea.Cmd
		before := m.input.Value()
		m.input, cmd = m.input.Update(msg)
		if m.input.Value() != before {
			m.cursor = 0
			m.refilter()
		}
		return m, cmd

	case signalMsg:
		if msg.closed {
			m.status = "store watch stopped"
			return m, nil
		}
		m.refilter()
		return m, waitForSignal(m.signals)

	case copiedMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			m.status = ""
			return m, nil
		}
		m.chosen = msg.name
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// copySelected decrypts e off the UI goroutine and copies its password.
func (m pickerModel) copySelected(e arcanum.Entry) tea.Cmd {
	return func() tea.Msg {
		secret, err := e.Password(m.ctx, m.decrypter)
		if err != nil {
			return copiedMsg{name: e.Name, err: err}
		}
		defer secret.Zero()
		if err := m.copy(string(secret.Bytes())); err != nil {
			return copiedMsg{name: e.Name, err: err}
		}
		return copiedMsg{name: e.Name}
	}
}

// refilter recomputes the matches for the current query.
func (m *pickerModel) refilter() {
	m.matches = arcanum.FuzzySearch(m.idx, m.input.Value())
	if m.cursor >= len(m.matches) {
		m.cursor = len(m.matches) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m pickerModel) View() string {
	var b strings.Builder

	b.WriteString(pickerTitleStyle.Render(fmt.Sprintf("arcanum  %d/%d", len(m.matches), m.idx.Len())))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	start := 0
	if m.cursor >= pickerRows {
		start = m.cursor - pickerRows + 1
	}
	for i := start; i < len(m.matches) && i < start+pickerRows; i++ {
		line := highlight(m.matches[i])
		if i == m.cursor {
			b.WriteString(pickerCursorStyle.Render("> "))
		} else {
			b.WriteString("  ")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString("\n" + pickerErrorStyle.Render(m.err.Error()) + "\n")
	} else if m.status != "" {
		b.WriteString("\n" + pickerStatusStyle.Render(m.status) + "\n")
	}
	b.WriteString(pickerStatusStyle.Render("enter: copy  esc: quit"))
	return b.String()
}

// highlight underlines the matched characters of a fuzzy match.
func highlight(match arcanum.Match) string {
	if len(match.MatchedIndexes) == 0 {
		return match.Entry.Name
	}
	matched := make(map[int]bool, len(match.MatchedIndexes))
	for _, i := range match.MatchedIndexes {
		matched[i] = true
	}
	var b strings.Builder
	for i, r := range match.Entry.Name {
		if matched[i] {
			b.WriteString(pickerMatchStyle.Render(string(r)))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// runPicker runs the picker full screen until a credential is copied or
// the user quits.
func (m *Manager) runPicker(session *arcanum.Session, query string) error {
	model := newPickerModel(m.ctx, session.Index(), session.Signals(), m.decrypter, m.copy, query)

	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}

	result := final.(pickerModel)
	if result.err != nil {
		m.auditLogger.LogSecurityEvent("cli_pick_failed", result.err.Error(), nil)
		return result.err
	}
	if result.chosen != "" {
		m.auditLogger.LogStoreEvent("cli_pick", result.chosen)
		fmt.Fprintf(m.out, "Copied %s to clipboard\n", result.chosen)
	}
	return nil
}
