package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mistakeknot/milgrim/internal/task"
)

func searchTasks() []task.Task {
	due := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	return []task.Task{
		{ID: "t1", Title: "pay rent", Deadline: due, Priority: task.PriorityHigh},
		{ID: "t2", Title: "write report", Deadline: due, Priority: task.PriorityMedium, Category: "work"},
		{ID: "t3", Title: "water plants", Deadline: due, Priority: task.PriorityLow, Category: "home"},
	}
}

func typeString(s *SearchOverlay, text string) *SearchOverlay {
	for _, r := range text {
		s, _ = s.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return s
}

func TestSearchFuzzyMatchesTitle(t *testing.T) {
	s := NewSearchOverlay()
	s.SetItems(searchTasks())
	s.Show()
	s = typeString(s, "rent")
	sel := s.Selected()
	if sel == nil || sel.ID != "t1" {
		t.Fatalf("selected = %+v", sel)
	}
}

func TestSearchMatchesCategory(t *testing.T) {
	s := NewSearchOverlay()
	s.SetItems(searchTasks())
	s.Show()
	s = typeString(s, "work")
	sel := s.Selected()
	if sel == nil || sel.ID != "t2" {
		t.Fatalf("selected = %+v", sel)
	}
}

func TestSearchEmptyQueryShowsAll(t *testing.T) {
	s := NewSearchOverlay()
	s.SetItems(searchTasks())
	s.Show()
	if len(s.results) != 3 {
		t.Fatalf("results = %d", len(s.results))
	}
}

func TestSearchNavigationAndDismiss(t *testing.T) {
	s := NewSearchOverlay()
	s.SetItems(searchTasks())
	s.Show()
	s, _ = s.Update(tea.KeyMsg{Type: tea.KeyDown})
	if s.cursor != 1 {
		t.Fatalf("cursor = %d", s.cursor)
	}
	s, _ = s.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if s.Visible() {
		t.Fatal("overlay still visible after esc")
	}
	if s.Selected() != nil {
		t.Fatalf("selection should clear on esc")
	}
}

func TestSearchEnterKeepsSelection(t *testing.T) {
	s := NewSearchOverlay()
	s.SetItems(searchTasks())
	s.Show()
	s = typeString(s, "plants")
	s, _ = s.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if s.Visible() {
		t.Fatal("overlay still visible after enter")
	}
	sel := s.Selected()
	if sel == nil || sel.ID != "t3" {
		t.Fatalf("selected = %+v", sel)
	}
}
