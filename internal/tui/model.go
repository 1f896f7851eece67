// Package tui renders the reconciled task view and feeds user mutations
// back into the session.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"github.com/mistakeknot/milgrim/internal/notify"
	"github.com/mistakeknot/milgrim/internal/reconcile"
	"github.com/mistakeknot/milgrim/internal/suggest"
	"github.com/mistakeknot/milgrim/internal/task"
	"github.com/mistakeknot/milgrim/internal/view"
	sharedtui "github.com/mistakeknot/milgrim/pkg/tui"
)

const (
	focusList   = "LIST"
	focusDetail = "DETAIL"
)

type changedMsg struct{}

type eventMsg notify.Event

type suggestMsg struct {
	task     task.Task
	subTasks []string
	err      error
}

type Model struct {
	session   *reconcile.Session
	suggester suggest.Suggester
	ctx       context.Context
	events    chan notify.Event

	view       view.View
	selected   int
	viewOffset int
	width      int
	height     int
	focus      string
	mode       string
	status     string

	form          *Form
	search        *SearchOverlay
	mdCache       *MarkdownCache
	keys          sharedtui.CommonKeys
	helpOverlay   sharedtui.HelpOverlay
	confirmID     string
	confirmTitle  string
	statusFilters []view.Status
}

// NewModel wires the TUI to a started session. The suggester may be nil.
func NewModel(session *reconcile.Session, suggester suggest.Suggester) Model {
	m := Model{
		session:       session,
		suggester:     suggester,
		ctx:           context.Background(),
		events:        make(chan notify.Event, 16),
		width:         120,
		height:        40,
		focus:         focusList,
		mode:          "list",
		search:        NewSearchOverlay(),
		mdCache:       NewMarkdownCache(),
		keys:          sharedtui.NewCommonKeys(),
		helpOverlay:   sharedtui.NewHelpOverlay(),
		statusFilters: []view.Status{view.StatusAll, view.StatusIncomplete, view.StatusCompleted},
	}
	events := m.events
	session.Notifier().On("*", func(ev notify.Event) {
		select {
		case events <- ev:
		default:
		}
	})
	m.view = session.View()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitChange(), m.waitEvent())
}

func (m Model) waitChange() tea.Cmd {
	ch := m.session.Changed()
	return func() tea.Msg {
		<-ch
		return changedMsg{}
	}
}

func (m Model) waitEvent() tea.Cmd {
	ch := m.events
	return func() tea.Msg {
		return eventMsg(<-ch)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case changedMsg:
		m.refresh()
		return m, m.waitChange()
	case eventMsg:
		m.status = formatEvent(notify.Event(msg))
		return m, m.waitEvent()
	case suggestMsg:
		m.applySuggestion(msg)
		return m, nil
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
		}
		if msg.Height > 0 {
			m.height = msg.Height
		}
		return m, nil
	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmID != "" {
		switch {
		case key.Matches(msg, m.keys.Select):
			id := m.confirmID
			m.confirmID = ""
			m.confirmTitle = ""
			if err := m.session.Delete(m.ctx, id); err != nil {
				m.status = "delete rejected: " + err.Error()
			}
		case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Quit):
			m.confirmID = ""
			m.confirmTitle = ""
		}
		return m, nil
	}
	if m.helpOverlay.Visible {
		switch {
		case key.Matches(msg, m.keys.Help), key.Matches(msg, m.keys.Back):
			m.helpOverlay.Toggle()
		}
		return m, nil
	}
	if m.search.Visible() {
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		if !m.search.Visible() && msg.String() == "enter" {
			if sel := m.search.Selected(); sel != nil {
				m.selectTask(sel.ID)
			}
		}
		return m, cmd
	}
	if m.mode == "form" {
		return m.updateFormKey(msg)
	}
	return m.updateListKey(msg)
}

func (m Model) updateFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = "list"
		m.form = nil
		return m, nil
	case "tab":
		m.form.NextField()
		return m, nil
	case "shift+tab":
		m.form.PrevField()
		return m, nil
	case "ctrl+p":
		m.form.CyclePriority()
		return m, nil
	case "ctrl+s":
		p, err := m.form.Payload()
		if err != nil {
			return m, nil
		}
		if m.form.TaskID == "" {
			if _, err := m.session.Create(m.ctx, p); err != nil {
				m.status = "create rejected: " + err.Error()
				return m, nil
			}
		} else {
			if err := m.session.Update(m.ctx, m.form.TaskID, p); err != nil {
				m.status = "update rejected: " + err.Error()
				return m, nil
			}
		}
		m.mode = "list"
		m.form = nil
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	return m, m.form.Update(msg)
}

func (m Model) updateListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keyStr := msg.String()
	switch {
	case key.Matches(msg, m.keys.Quit), keyStr == "q":
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.helpOverlay.Toggle()
	case key.Matches(msg, m.keys.Search):
		m.search.SetItems(m.view.Ordered)
		m.search.Show()
	case key.Matches(msg, m.keys.TabCycle):
		if m.focus == focusList {
			m.focus = focusDetail
		} else {
			m.focus = focusList
		}
	case key.Matches(msg, m.keys.NavDown):
		if m.selected < len(m.view.Ordered)-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.NavUp):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Top):
		m.selected = 0
	case key.Matches(msg, m.keys.Bottom):
		if len(m.view.Ordered) > 0 {
			m.selected = len(m.view.Ordered) - 1
		}
	case keyStr == "a":
		m.mode = "form"
		m.form = NewForm()
	case keyStr == "e":
		if sel := m.selectedTask(); sel != nil {
			m.mode = "form"
			m.form = FormForTask(*sel)
		}
	case keyStr == "d":
		if sel := m.selectedTask(); sel != nil {
			m.confirmID = sel.ID
			m.confirmTitle = sel.Title
		}
	case keyStr == " ", keyStr == "x":
		if sel := m.selectedTask(); sel != nil {
			if err := m.session.Toggle(m.ctx, sel.ID, !sel.Completed); err != nil {
				m.status = "toggle rejected: " + err.Error()
			}
		}
	case keyStr == "f":
		m.cycleStatus()
	case keyStr == "c":
		m.cycleCategory()
	case keyStr == "s":
		m.cycleSort()
	case keyStr == "b":
		if sel := m.selectedTask(); sel != nil && m.suggester != nil {
			m.status = "asking for a breakdown of " + sel.Title
			return m, m.suggestCmd(*sel)
		}
	}
	m.viewOffset = clampViewOffset(m.selected, m.viewOffset, m.listContentHeight(), len(m.view.Ordered))
	return m, nil
}

func (m *Model) refresh() {
	selectedID := ""
	if sel := m.selectedTask(); sel != nil {
		selectedID = sel.ID
	}
	m.view = m.session.View()
	if selectedID != "" {
		m.selectTask(selectedID)
	}
	if m.selected >= len(m.view.Ordered) {
		m.selected = max(0, len(m.view.Ordered)-1)
	}
	m.viewOffset = clampViewOffset(m.selected, m.viewOffset, m.listContentHeight(), len(m.view.Ordered))
}

func (m *Model) selectTask(id string) {
	for i, t := range m.view.Ordered {
		if t.ID == id {
			m.selected = i
			m.viewOffset = clampViewOffset(m.selected, m.viewOffset, m.listContentHeight(), len(m.view.Ordered))
			return
		}
	}
}

func (m Model) selectedTask() *task.Task {
	if m.selected < 0 || m.selected >= len(m.view.Ordered) {
		return nil
	}
	t := m.view.Ordered[m.selected]
	return &t
}

func (m *Model) cycleStatus() {
	current := m.session.Filter()
	for i, s := range m.statusFilters {
		if s == current.Status {
			current.Status = m.statusFilters[(i+1)%len(m.statusFilters)]
			m.session.SetFilter(current)
			return
		}
	}
	current.Status = view.StatusAll
	m.session.SetFilter(current)
}

func (m *Model) cycleCategory() {
	facets := m.view.Facets
	if len(facets) == 0 {
		return
	}
	current := m.session.Filter()
	next := facets[0]
	for i, facet := range facets {
		if facet == current.Category {
			next = facets[(i+1)%len(facets)]
			break
		}
	}
	current.Category = next
	m.session.SetFilter(current)
}

func (m *Model) cycleSort() {
	current := m.session.Sort()
	for i, mode := range view.SortModes {
		if mode == current {
			m.session.SetSort(view.SortModes[(i+1)%len(view.SortModes)])
			return
		}
	}
	m.session.SetSort(view.SortDeadline)
}

func (m Model) suggestCmd(t task.Task) tea.Cmd {
	ctx := m.ctx
	suggester := m.suggester
	return func() tea.Msg {
		subTasks, err := suggester.Breakdown(ctx, t.Title, t.Description)
		return suggestMsg{task: t, subTasks: subTasks, err: err}
	}
}

func (m *Model) applySuggestion(msg suggestMsg) {
	if msg.err != nil {
		m.status = "breakdown failed: " + msg.err.Error()
		return
	}
	if len(msg.subTasks) == 0 {
		m.status = "no sub-tasks suggested"
		return
	}
	p := task.PayloadOf(msg.task)
	p.Description = suggest.MergeIntoDescription(p.Description, msg.subTasks)
	if err := m.session.Update(m.ctx, msg.task.ID, p); err != nil {
		m.status = "breakdown rejected: " + err.Error()
		return
	}
	m.status = fmt.Sprintf("added %d sub-tasks to %s", len(msg.subTasks), msg.task.Title)
}

func formatEvent(ev notify.Event) string {
	if ev.Outcome == notify.OutcomeSuccess {
		return fmt.Sprintf("%s %q", ev.Kind, ev.Title)
	}
	label := fmt.Sprintf("%s %q failed: %s", ev.Kind, ev.Title, ev.Err)
	if ev.Transient {
		label += " (transient)"
	}
	return label
}

func (m Model) View() string {
	title := "TASKS"
	focus := m.focus
	status := m.status
	if err := m.session.Unavailable(); err != nil {
		status = "OFFLINE: " + err.Error()
	}
	if m.confirmID != "" {
		body := renderConfirmOverlay(fmt.Sprintf("Delete %q?", m.confirmTitle))
		header := renderHeader("CONFIRM", "CONFIRM")
		footer := renderFooter("enter confirm  esc cancel", status)
		return renderFrame(header, padBodyToHeight(body, m.height-2), footer)
	}
	if m.helpOverlay.Visible {
		body := m.helpOverlay.Render(m.keys, m.helpExtras(), m.width)
		header := renderHeader("HELP", focus)
		footer := renderFooter(defaultKeys(), status)
		return renderFrame(header, padBodyToHeight(body, m.height-2), footer)
	}
	if m.search.Visible() {
		body := m.search.View(min(m.width-4, 60))
		header := renderHeader("SEARCH", focus)
		footer := renderFooter("↑/↓ move  enter jump  esc cancel", status)
		return renderFrame(header, padBodyToHeight(body, m.height-2), footer)
	}
	if m.mode == "form" {
		title = "NEW TASK"
		if m.form.TaskID != "" {
			title = "EDIT TASK"
		}
		body := m.form.View(m.width)
		header := renderHeader(title, "FORM")
		footer := renderFooter("tab next field  ctrl+p priority  ctrl+s save  esc cancel", status)
		return renderFrame(header, padBodyToHeight(body, m.height-2), footer)
	}

	contentHeight := m.height - 2
	listContent := m.renderListContent()
	detailContent := strings.Join(m.renderDetail(), "\n")
	var body string
	switch layoutMode(m.width) {
	case LayoutModeSingle:
		body = renderSingleColumnLayout("TASKS", listContent, m.width, contentHeight)
	case LayoutModeStacked:
		body = renderStackedLayout("TASKS", listContent, "DETAIL", detailContent, m.width, contentHeight)
	default:
		body = renderDualColumnLayout("TASKS", listContent, "DETAIL", detailContent, m.width, contentHeight, m.focus)
	}
	header := renderHeader(title, focus)
	footer := renderFooter(defaultKeys(), status)
	return renderFrame(header, padBodyToHeight(body, m.height-2), footer)
}

func (m Model) renderListContent() string {
	filterLine := renderFilterLine(m.session.Filter(), m.session.Sort())
	list := renderTaskList(m.view.Ordered, m.selected, m.viewOffset, m.listContentHeight(), m.session.Now())
	return filterLine + "\n" + list
}

func (m Model) renderDetail() []string {
	lines := []string{renderStatsLine(m.view.Stats)}
	lines = append(lines, renderUpcoming(m.view.Stats.Upcoming)...)
	sel := m.selectedTask()
	if sel == nil {
		lines = append(lines, "", "No task selected.")
		return lines
	}
	lines = append(lines, "", sharedtui.TitleStyle.Render(sel.Title))
	meta := fmt.Sprintf("due %s · %s priority", sel.Deadline.Format("Mon Jan 02 15:04"), sel.Priority)
	if sel.Category != "" {
		meta += " · #" + sel.Category
	}
	lines = append(lines, wordwrap.String(meta, max(20, m.detailWidth())))
	if strings.TrimSpace(sel.Description) != "" {
		rendered, ok := m.mdCache.Get(sel.ID, sel.Description)
		if !ok {
			rendered = renderMarkdown(sel.Description, m.detailWidth())
			m.mdCache.Set(sel.ID, sel.Description, rendered)
		}
		trimmed := strings.TrimSpace(rendered)
		if trimmed != "" {
			lines = append(lines, "")
			lines = append(lines, strings.Split(trimmed, "\n")...)
		}
	}
	return lines
}

func (m Model) detailWidth() int {
	switch layoutMode(m.width) {
	case LayoutModeDual:
		return m.width - int(float64(m.width)*0.4) - 3
	default:
		return m.width
	}
}

func (m Model) listContentHeight() int {
	contentHeight := m.height - 2
	if contentHeight < 1 {
		contentHeight = 1
	}
	switch layoutMode(m.width) {
	case LayoutModeStacked:
		listHeight := (contentHeight * 60) / 100
		if listHeight < 3 {
			listHeight = 3
		}
		return max(1, listHeight-3)
	default:
		return max(1, contentHeight-3)
	}
}

func defaultKeys() string {
	return "↑/↓ move  space toggle  a add  e edit  d delete  f status  c category  s sort  / search  b breakdown  ? help  q quit"
}

func (m Model) helpExtras() []sharedtui.HelpBinding {
	return []sharedtui.HelpBinding{
		{Key: "a", Description: "add task"},
		{Key: "e", Description: "edit task"},
		{Key: "d", Description: "delete task"},
		{Key: "space", Description: "toggle complete"},
		{Key: "f", Description: "cycle status filter"},
		{Key: "c", Description: "cycle category"},
		{Key: "s", Description: "cycle sort"},
		{Key: "b", Description: "suggest breakdown"},
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
