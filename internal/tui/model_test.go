package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mistakeknot/milgrim/internal/reconcile"
	"github.com/mistakeknot/milgrim/internal/store"
	"github.com/mistakeknot/milgrim/internal/task"
	"github.com/mistakeknot/milgrim/internal/view"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func newTestModel(t *testing.T) (Model, *reconcile.Session) {
	t.Helper()
	ms := store.NewMemStore()
	session := reconcile.NewSession(ms, nil)
	if err := session.Start(context.Background(), store.Query{Owner: "u1"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(session.Close)

	p := task.Payload{
		Title:    "pay rent",
		Deadline: time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC),
		Priority: task.PriorityHigh,
		Category: "home",
	}
	if _, err := session.Create(context.Background(), p); err != nil {
		t.Fatalf("create: %v", err)
	}
	waitFor(t, func() bool {
		tasks := session.Tasks()
		return len(tasks) == 1 && !reconcile.IsPlaceholder(tasks[0].ID)
	})

	m := NewModel(session, nil)
	m.refresh()
	return m, session
}

func press(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, _ := m.Update(msg)
	next, ok := updated.(Model)
	if !ok {
		t.Fatalf("update returned %T", updated)
	}
	return next
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestModelViewRendersTasksAndStats(t *testing.T) {
	m, _ := newTestModel(t)
	out := m.View()
	if !strings.Contains(out, "pay rent") {
		t.Fatalf("task title missing from view:\n%s", out)
	}
	if !strings.Contains(out, "0/1 done") {
		t.Fatalf("stats missing from view:\n%s", out)
	}
}

func TestModelToggleComplete(t *testing.T) {
	m, session := newTestModel(t)
	press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	waitFor(t, func() bool {
		tasks := session.Tasks()
		return len(tasks) == 1 && tasks[0].Completed
	})
}

func TestModelStatusFilterCycle(t *testing.T) {
	m, session := newTestModel(t)
	m = press(t, m, runeKey('f'))
	if session.Filter().Status != view.StatusIncomplete {
		t.Fatalf("status = %s", session.Filter().Status)
	}
	m = press(t, m, runeKey('f'))
	if session.Filter().Status != view.StatusCompleted {
		t.Fatalf("status = %s", session.Filter().Status)
	}
	press(t, m, runeKey('f'))
	if session.Filter().Status != view.StatusAll {
		t.Fatalf("status = %s", session.Filter().Status)
	}
}

func TestModelCategoryFacetCycle(t *testing.T) {
	m, session := newTestModel(t)
	press(t, m, runeKey('c'))
	if session.Filter().Category != "home" {
		t.Fatalf("category = %q", session.Filter().Category)
	}
}

func TestModelSortCycle(t *testing.T) {
	m, session := newTestModel(t)
	press(t, m, runeKey('s'))
	if session.Sort() != view.SortPriority {
		t.Fatalf("sort = %s", session.Sort())
	}
}

func TestModelDeleteRequiresConfirm(t *testing.T) {
	m, session := newTestModel(t)
	m = press(t, m, runeKey('d'))
	if m.confirmID == "" {
		t.Fatal("no confirmation requested")
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.confirmID != "" {
		t.Fatal("esc did not cancel")
	}
	if len(session.Tasks()) != 1 {
		t.Fatal("task deleted without confirmation")
	}

	m = press(t, m, runeKey('d'))
	press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	waitFor(t, func() bool { return len(session.Tasks()) == 0 })
}

func TestModelFormCreateFlow(t *testing.T) {
	m, session := newTestModel(t)
	m = press(t, m, runeKey('a'))
	if m.mode != "form" || m.form == nil {
		t.Fatalf("mode = %s", m.mode)
	}
	m.form.title.SetValue("new thing")
	m.form.deadline.SetValue("2026-10-01")
	press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	waitFor(t, func() bool { return len(session.Tasks()) == 2 })
}

func TestModelFormRejectsInvalidInput(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, runeKey('a'))
	m.form.deadline.SetValue("2026-10-01")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if m.mode != "form" {
		t.Fatal("form closed despite validation error")
	}
}

func TestModelChangedMsgRefreshes(t *testing.T) {
	m, session := newTestModel(t)
	p := task.Payload{
		Title:    "second",
		Deadline: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Priority: task.PriorityLow,
	}
	if _, err := session.Create(context.Background(), p); err != nil {
		t.Fatalf("create: %v", err)
	}
	waitFor(t, func() bool { return len(session.Tasks()) == 2 })
	m = press(t, m, changedMsg{})
	if len(m.view.Ordered) != 2 {
		t.Fatalf("view not refreshed: %d tasks", len(m.view.Ordered))
	}
}

func TestModelSearchOpens(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, runeKey('/'))
	if !m.search.Visible() {
		t.Fatal("search overlay not shown")
	}
}

func TestModelOfflineStatus(t *testing.T) {
	ms := store.NewMemStore()
	session := reconcile.NewSession(ms, nil)
	if err := session.Start(context.Background(), store.Query{Owner: "u1"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(session.Close)
	m := NewModel(session, nil)

	ms.FailSubscriptions(store.Transient("stream", context.DeadlineExceeded))
	waitFor(t, func() bool { return session.Unavailable() != nil })
	if !strings.Contains(m.View(), "OFFLINE") {
		t.Fatal("offline banner missing")
	}
}
