package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"github.com/mistakeknot/milgrim/internal/task"
	sharedtui "github.com/mistakeknot/milgrim/pkg/tui"
)

// SearchOverlay fuzzy-matches tasks by title and category.
type SearchOverlay struct {
	input   textinput.Model
	items   []task.Task
	results []task.Task
	cursor  int
	visible bool
}

type taskSource []task.Task

func (s taskSource) String(i int) string { return s[i].Title + " " + s[i].Category }
func (s taskSource) Len() int            { return len(s) }

func NewSearchOverlay() *SearchOverlay {
	ti := textinput.New()
	ti.Placeholder = "Search tasks..."
	ti.Focus()
	ti.CharLimit = 100
	ti.Width = 50
	return &SearchOverlay{input: ti}
}

func (s *SearchOverlay) SetItems(items []task.Task) {
	s.items = items
	s.updateResults()
}

func (s *SearchOverlay) Show() {
	s.visible = true
	s.input.SetValue("")
	s.input.Focus()
	s.updateResults()
}

func (s *SearchOverlay) Hide() {
	s.visible = false
	s.input.Blur()
}

func (s *SearchOverlay) Visible() bool { return s.visible }

func (s *SearchOverlay) Selected() *task.Task {
	if len(s.results) == 0 {
		return nil
	}
	if s.cursor >= len(s.results) {
		s.cursor = len(s.results) - 1
	}
	return &s.results[s.cursor]
}

func (s *SearchOverlay) Update(msg tea.Msg) (*SearchOverlay, tea.Cmd) {
	if !s.visible {
		return s, nil
	}
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			s.cursor = 0
			s.results = nil
			s.Hide()
			return s, nil
		case "enter":
			s.Hide()
			return s, nil
		case "up", "ctrl+k":
			if s.cursor > 0 {
				s.cursor--
			}
			return s, nil
		case "down", "ctrl+j":
			if s.cursor < len(s.results)-1 {
				s.cursor++
			}
			return s, nil
		default:
			var cmd tea.Cmd
			s.input, cmd = s.input.Update(msg)
			s.updateResults()
			return s, cmd
		}
	}
	return s, nil
}

func (s *SearchOverlay) updateResults() {
	needle := strings.TrimSpace(s.input.Value())
	if needle == "" {
		s.results = s.items
		s.cursor = 0
		return
	}
	matches := fuzzy.FindFrom(needle, taskSource(s.items))
	out := make([]task.Task, 0, len(matches))
	for _, m := range matches {
		out = append(out, s.items[m.Index])
	}
	s.results = out
	s.cursor = 0
}

func (s *SearchOverlay) View(width int) string {
	if !s.visible {
		return ""
	}
	var b strings.Builder
	b.WriteString(sharedtui.TitleStyle.Render("Search"))
	b.WriteString("\n")
	b.WriteString(s.input.View())
	limit := 8
	for i, t := range s.results {
		if i >= limit {
			break
		}
		b.WriteString("\n")
		row := t.Title
		if t.Category != "" {
			row += "  #" + t.Category
		}
		if i == s.cursor {
			b.WriteString(sharedtui.SelectedStyle.Render("> " + row))
		} else {
			b.WriteString("  " + row)
		}
	}
	boxStyle := sharedtui.PanelStyle.Padding(1, 2).BorderForeground(sharedtui.ColorPrimary)
	if width > 0 {
		boxStyle = boxStyle.Width(width)
	}
	return boxStyle.Render(b.String())
}
