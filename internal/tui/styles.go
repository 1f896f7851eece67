package tui

import (
	"strings"

	sharedtui "github.com/mistakeknot/milgrim/pkg/tui"
)

func renderHeader(title, focus string) string {
	label := "MILGRIM | " + title + " | [" + focus + "]"
	return sharedtui.TitleStyle.Render(label)
}

func renderFooter(keys, status string) string {
	if strings.TrimSpace(status) == "" {
		status = "ready"
	}
	label := "KEYS: " + keys + " | " + status
	return sharedtui.HelpDescStyle.Render(label)
}

func renderPanelTitle(title string, width int) string {
	line := strings.Repeat("─", max(0, width))
	return sharedtui.TitleStyle.Render(title) + "\n" + sharedtui.LabelStyle.Render(line)
}

func renderConfirmOverlay(message string) string {
	return sharedtui.TitleStyle.Render("CONFIRM") + "\n\n" + message
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
