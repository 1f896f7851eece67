package tui

import (
	"strings"

	sharedtui "github.com/mistakeknot/milgrim/pkg/tui"
)

const (
	layoutBreakpointSingle  = 50
	layoutBreakpointStacked = 80
)

const (
	LayoutModeSingle  = "single"
	LayoutModeStacked = "stacked"
	LayoutModeDual    = "dual"
)

func layoutMode(width int) string {
	switch {
	case width < layoutBreakpointSingle:
		return LayoutModeSingle
	case width < layoutBreakpointStacked:
		return LayoutModeStacked
	default:
		return LayoutModeDual
	}
}

func renderFrame(header, body, footer string) string {
	return strings.Join([]string{header, body, footer}, "\n")
}

func ensureExactHeight(content string, n int) string {
	if n <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[:n]
	} else {
		for len(lines) < n {
			lines = append(lines, "")
		}
	}
	return strings.Join(lines, "\n")
}

func renderDualColumnLayout(leftTitle, leftContent, rightTitle, rightContent string, width, height int, focus string) string {
	if height <= 0 {
		return ""
	}
	leftWidth := int(float64(width) * 0.4)
	rightWidth := width - leftWidth - 3
	if rightWidth < 1 {
		rightWidth = 1
	}
	panelContentHeight := height - 2
	if panelContentHeight < 1 {
		panelContentHeight = 1
	}

	leftPanel := renderPanelTitle(leftTitle, leftWidth) + "\n" + ensureExactHeight(leftContent, panelContentHeight)
	rightPanel := renderPanelTitle(rightTitle, rightWidth) + "\n" + ensureExactHeight(rightContent, panelContentHeight)
	leftPanel = stylePanel(leftPanel, leftWidth, height, focus == focusList)
	rightPanel = stylePanel(rightPanel, rightWidth, height, focus == focusDetail)

	leftPanel = ensureExactHeight(leftPanel, height)
	rightPanel = ensureExactHeight(rightPanel, height)

	return joinHorizontal(leftPanel, rightPanel, height)
}

func renderStackedLayout(listTitle, listContent, detailTitle, detailContent string, width, height int) string {
	if height <= 0 {
		return ""
	}
	listHeight := (height * 60) / 100
	detailHeight := height - listHeight - 1
	if listHeight < 3 {
		listHeight = 3
	}
	if detailHeight < 3 {
		detailHeight = 3
	}
	listPanel := renderPanelTitle(listTitle, width) + "\n" + ensureExactHeight(listContent, listHeight-2)
	detailPanel := renderPanelTitle(detailTitle, width) + "\n" + ensureExactHeight(detailContent, detailHeight-2)
	listPanel = stylePanel(listPanel, width, listHeight, true)
	detailPanel = stylePanel(detailPanel, width, detailHeight, false)
	return listPanel + "\n" + detailPanel
}

func renderSingleColumnLayout(listTitle, listContent string, width, height int) string {
	if height <= 0 {
		return ""
	}
	listPanel := renderPanelTitle(listTitle, width) + "\n" + ensureExactHeight(listContent, height-2)
	return stylePanel(listPanel, width, height, true)
}

func joinHorizontal(left, right string, height int) string {
	if height <= 0 {
		return ""
	}
	leftLines := strings.Split(left, "\n")
	rightLines := strings.Split(right, "\n")
	for len(leftLines) < height {
		leftLines = append(leftLines, "")
	}
	for len(rightLines) < height {
		rightLines = append(rightLines, "")
	}
	var b strings.Builder
	for i := 0; i < height; i++ {
		b.WriteString(leftLines[i])
		b.WriteString(" │ ")
		b.WriteString(rightLines[i])
		if i < height-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func stylePanel(content string, width, height int, focused bool) string {
	style := sharedtui.PanelStyle
	if focused {
		style = style.BorderForeground(sharedtui.ColorPrimary)
	}
	if width > 0 {
		style = style.Width(width)
	}
	if height > 0 {
		style = style.Height(height)
	}
	return style.Render(content)
}

func padBodyToHeight(body string, height int) string {
	if height <= 0 {
		return body
	}
	lines := []string{""}
	if strings.TrimSpace(body) != "" {
		lines = strings.Split(body, "\n")
	}
	if len(lines) >= height {
		return body
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func clampViewOffset(cursor, viewOffset, height, total int) int {
	if total <= 0 {
		return 0
	}
	if height < 1 {
		height = 1
	}
	if cursor < viewOffset {
		viewOffset = cursor
	}
	if cursor >= viewOffset+height {
		viewOffset = cursor - height + 1
	}
	if viewOffset < 0 {
		viewOffset = 0
	}
	maxOffset := total - height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if viewOffset > maxOffset {
		viewOffset = maxOffset
	}
	return viewOffset
}
