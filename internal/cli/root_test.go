package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/mistakeknot/milgrim/internal/config"
	"github.com/mistakeknot/milgrim/internal/reconcile"
	"github.com/mistakeknot/milgrim/internal/store"
	"github.com/mistakeknot/milgrim/internal/suggest"
	"github.com/mistakeknot/milgrim/internal/view"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRoot()
	if cmd == nil || cmd.Use != "milgrim" {
		t.Fatalf("expected root command")
	}
	want := map[string]bool{"serve": false, "list": false, "add": false, "export": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("expected %s command", name)
		}
	}
}

func TestRootRunLaunchesTUI(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Setenv("MILGRIM_DB", filepath.Join(tmp, "tasks.db"))
	t.Setenv("MILGRIM_OWNER", "cli")
	t.Setenv("MILGRIM_URL", "")

	origRun := runTUI
	var got *reconcile.Session
	runTUI = func(session *reconcile.Session, suggester suggest.Suggester) error {
		got = session
		return nil
	}
	defer func() { runTUI = origRun }()

	cmd := NewRoot()
	cmd.SetArgs([]string{})
	cmd.SetOut(bytes.NewBuffer(nil))
	cmd.SetErr(bytes.NewBuffer(nil))
	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatalf("expected TUI run with a live session")
	}
	if v := got.View(); len(v.Ordered) != 0 {
		t.Fatalf("expected empty initial view, got %d tasks", len(v.Ordered))
	}
}

func TestApplyViewConfig(t *testing.T) {
	session := reconcile.NewSession(store.NewMemStore(), nil)
	applyViewConfig(session, config.ViewConfig{Sort: "priority", Status: "completed", Category: "home"})
	if f := session.Filter(); f.Status != view.StatusCompleted || f.Category != "home" {
		t.Fatalf("unexpected filter %+v", f)
	}
	if session.Sort() != view.SortPriority {
		t.Fatalf("unexpected sort %q", session.Sort())
	}

	applyViewConfig(session, config.ViewConfig{Sort: "alphabetical-ish", Status: "done"})
	if f := session.Filter(); f.Status != view.StatusAll {
		t.Fatalf("expected unknown status ignored, got %+v", f)
	}
	if session.Sort() != view.SortPriority {
		t.Fatalf("expected unknown sort ignored, got %q", session.Sort())
	}
}
