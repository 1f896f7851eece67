package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/mistakeknot/milgrim/internal/task"
	"github.com/mistakeknot/milgrim/internal/view"
	sharedtui "github.com/mistakeknot/milgrim/pkg/tui"
)

func renderTaskList(tasks []task.Task, selected, viewOffset, height int, now time.Time) string {
	if len(tasks) == 0 {
		return "No tasks match."
	}
	if height < 1 {
		height = 1
	}
	end := viewOffset + height
	if end > len(tasks) {
		end = len(tasks)
	}
	lines := make([]string, 0, end-viewOffset)
	for i := viewOffset; i < end; i++ {
		lines = append(lines, renderTaskRow(tasks[i], i == selected, now))
	}
	return strings.Join(lines, "\n")
}

func renderTaskRow(t task.Task, selected bool, now time.Time) string {
	check := "[ ]"
	if t.Completed {
		check = "[x]"
	}
	row := fmt.Sprintf("%s %s %s  %s", check, priorityBadge(t.Priority), deadlineLabel(t, now), t.Title)
	if t.Category != "" {
		row += sharedtui.LabelStyle.Render(" #" + t.Category)
	}
	cursor := "  "
	if selected {
		cursor = "> "
		return cursor + sharedtui.SelectedStyle.Render(row)
	}
	return cursor + row
}

func priorityBadge(p task.Priority) string {
	switch p {
	case task.PriorityHigh:
		return sharedtui.StatusError.Render("!!")
	case task.PriorityMedium:
		return sharedtui.StatusWaiting.Render("! ")
	default:
		return sharedtui.StatusIdle.Render(". ")
	}
}

func deadlineLabel(t task.Task, now time.Time) string {
	label := t.Deadline.Format("Jan 02")
	if t.Overdue(now) {
		return sharedtui.StatusError.Render(label + " overdue")
	}
	return label
}

func renderStatsLine(s view.Stats) string {
	line := fmt.Sprintf("%d/%d done (%d%%)", s.Completed, s.Total, s.CompletionRatePercent)
	if s.OverdueCount > 0 {
		line += fmt.Sprintf(" · %d overdue", s.OverdueCount)
	}
	return line
}

func renderUpcoming(upcoming []task.Task) []string {
	if len(upcoming) == 0 {
		return nil
	}
	lines := []string{"Upcoming:"}
	for _, t := range upcoming {
		lines = append(lines, fmt.Sprintf("  %s  %s", t.Deadline.Format("Jan 02 15:04"), t.Title))
	}
	return lines
}

func renderFilterLine(f view.Filter, mode view.SortMode) string {
	return fmt.Sprintf("status:%s  category:%s  sort:%s", f.Status, f.Category, mode)
}
