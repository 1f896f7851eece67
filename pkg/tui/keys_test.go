package tui

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

func TestCommonKeysBackMatchesEscOnly(t *testing.T) {
	keys := NewCommonKeys()
	esc := tea.KeyMsg{Type: tea.KeyEsc}
	if !key.Matches(esc, keys.Back) {
		t.Fatalf("expected Back to match esc")
	}
	h := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'h'}}
	if key.Matches(h, keys.Back) {
		t.Fatalf("expected Back to not match h")
	}
}

func TestCommonKeysNavigation(t *testing.T) {
	keys := NewCommonKeys()
	if !key.Matches(tea.KeyMsg{Type: tea.KeyHome}, keys.Top) {
		t.Fatalf("expected Top to match home")
	}
	if !key.Matches(tea.KeyMsg{Type: tea.KeyEnd}, keys.Bottom) {
		t.Fatalf("expected Bottom to match end")
	}
	if !key.Matches(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}}, keys.NavDown) {
		t.Fatalf("expected NavDown to match j")
	}
	if !key.Matches(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}}, keys.NavUp) {
		t.Fatalf("expected NavUp to match k")
	}
}

func TestHandleCommonQuitAndHelp(t *testing.T) {
	keys := NewCommonKeys()

	quitCmd := HandleCommon(tea.KeyMsg{Type: tea.KeyCtrlC}, keys)
	if quitCmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := quitCmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected QuitMsg")
	}

	if cmd := HandleCommon(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'z'}}, keys); cmd != nil {
		t.Fatalf("expected z to be unhandled")
	}

	helpCmd := HandleCommon(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}}, keys)
	if helpCmd == nil {
		t.Fatalf("expected help command")
	}
	if _, ok := helpCmd().(ToggleHelpMsg); !ok {
		t.Fatalf("expected ToggleHelpMsg")
	}
}
