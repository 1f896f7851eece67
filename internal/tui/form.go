package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mistakeknot/milgrim/internal/task"
	sharedtui "github.com/mistakeknot/milgrim/pkg/tui"
)

const (
	formFieldTitle = iota
	formFieldDeadline
	formFieldCategory
	formFieldDescription
	formFieldCount
)

var deadlineFormats = []string{
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC3339,
}

// Form is the add/edit input surface. An empty TaskID means create.
type Form struct {
	TaskID string

	title       textinput.Model
	deadline    textinput.Model
	category    textinput.Model
	description textarea.Model
	priority    task.Priority
	focus       int
	errMsg      string
}

func NewForm() *Form {
	title := textinput.New()
	title.Placeholder = "Title"
	title.CharLimit = 200
	title.Width = 50
	title.Focus()

	deadline := textinput.New()
	deadline.Placeholder = "Deadline (2006-01-02 or 2006-01-02 15:04)"
	deadline.CharLimit = 32
	deadline.Width = 50

	category := textinput.New()
	category.Placeholder = "Category (optional)"
	category.CharLimit = 64
	category.Width = 50

	description := textarea.New()
	description.Placeholder = "Description (markdown)"
	description.CharLimit = 4000
	description.SetWidth(50)
	description.SetHeight(6)

	return &Form{
		title:       title,
		deadline:    deadline,
		category:    category,
		description: description,
		priority:    task.PriorityMedium,
	}
}

// FormForTask pre-fills the form from an existing task.
func FormForTask(t task.Task) *Form {
	f := NewForm()
	f.TaskID = t.ID
	f.title.SetValue(t.Title)
	f.deadline.SetValue(t.Deadline.Format("2006-01-02 15:04"))
	f.category.SetValue(t.Category)
	f.description.SetValue(t.Description)
	f.priority = t.Priority
	return f
}

// CyclePriority advances low → medium → high → low.
func (f *Form) CyclePriority() {
	switch f.priority {
	case task.PriorityLow:
		f.priority = task.PriorityMedium
	case task.PriorityMedium:
		f.priority = task.PriorityHigh
	default:
		f.priority = task.PriorityLow
	}
}

// NextField moves focus forward, FocusPrev backward.
func (f *Form) NextField() { f.setFocus((f.focus + 1) % formFieldCount) }
func (f *Form) PrevField() { f.setFocus((f.focus + formFieldCount - 1) % formFieldCount) }

func (f *Form) setFocus(idx int) {
	f.focus = idx
	f.title.Blur()
	f.deadline.Blur()
	f.category.Blur()
	f.description.Blur()
	switch idx {
	case formFieldTitle:
		f.title.Focus()
	case formFieldDeadline:
		f.deadline.Focus()
	case formFieldCategory:
		f.category.Focus()
	case formFieldDescription:
		f.description.Focus()
	}
}

// Update forwards input to the focused field.
func (f *Form) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch f.focus {
	case formFieldTitle:
		f.title, cmd = f.title.Update(msg)
	case formFieldDeadline:
		f.deadline, cmd = f.deadline.Update(msg)
	case formFieldCategory:
		f.category, cmd = f.category.Update(msg)
	case formFieldDescription:
		f.description, cmd = f.description.Update(msg)
	}
	return cmd
}

// SetDescription replaces the description text, keeping cursor state.
func (f *Form) SetDescription(text string) {
	f.description.SetValue(text)
}

// Payload assembles and validates the form's input.
func (f *Form) Payload() (task.Payload, error) {
	deadline, err := parseDeadline(f.deadline.Value())
	if err != nil {
		f.errMsg = err.Error()
		return task.Payload{}, err
	}
	p := task.Payload{
		Title:       strings.TrimSpace(f.title.Value()),
		Description: f.description.Value(),
		Deadline:    deadline,
		Priority:    f.priority,
		Category:    strings.TrimSpace(f.category.Value()),
	}
	if err := p.Validate(); err != nil {
		f.errMsg = err.Error()
		return task.Payload{}, err
	}
	f.errMsg = ""
	return p, nil
}

func parseDeadline(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("deadline is required")
	}
	for _, format := range deadlineFormats {
		if t, err := time.ParseInLocation(format, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized deadline %q", s)
}

func (f *Form) View(width int) string {
	label := func(idx int, name string) string {
		if f.focus == idx {
			return sharedtui.TitleStyle.Render("> " + name)
		}
		return sharedtui.LabelStyle.Render("  " + name)
	}
	lines := []string{
		label(formFieldTitle, "Title"),
		f.title.View(),
		label(formFieldDeadline, "Deadline"),
		f.deadline.View(),
		label(formFieldCategory, "Category"),
		f.category.View(),
		sharedtui.LabelStyle.Render("  Priority (ctrl+p): ") + string(f.priority),
		label(formFieldDescription, "Description"),
		f.description.View(),
	}
	if f.errMsg != "" {
		lines = append(lines, sharedtui.StatusError.Render(f.errMsg))
	}
	return strings.Join(lines, "\n")
}
