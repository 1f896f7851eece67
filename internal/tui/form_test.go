package tui

import (
	"errors"
	"testing"
	"time"

	"github.com/mistakeknot/milgrim/internal/task"
)

func TestFormPayloadValid(t *testing.T) {
	f := NewForm()
	f.title.SetValue("quarterly report")
	f.deadline.SetValue("2026-09-15 17:00")
	f.category.SetValue("work")
	f.CyclePriority() // medium -> high
	p, err := f.Payload()
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if p.Title != "quarterly report" || p.Category != "work" || p.Priority != task.PriorityHigh {
		t.Fatalf("payload = %+v", p)
	}
	want := time.Date(2026, 9, 15, 17, 0, 0, 0, time.Local)
	if !p.Deadline.Equal(want) {
		t.Fatalf("deadline = %v", p.Deadline)
	}
}

func TestFormPayloadDateOnlyDeadline(t *testing.T) {
	f := NewForm()
	f.title.SetValue("x")
	f.deadline.SetValue("2026-09-15")
	p, err := f.Payload()
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	want := time.Date(2026, 9, 15, 0, 0, 0, 0, time.Local)
	if !p.Deadline.Equal(want) {
		t.Fatalf("deadline = %v", p.Deadline)
	}
}

func TestFormPayloadRejectsBadDeadline(t *testing.T) {
	f := NewForm()
	f.title.SetValue("x")
	f.deadline.SetValue("next tuesday")
	if _, err := f.Payload(); err == nil {
		t.Fatal("expected deadline error")
	}
	if f.errMsg == "" {
		t.Fatal("error not surfaced on form")
	}
}

func TestFormPayloadRejectsEmptyTitle(t *testing.T) {
	f := NewForm()
	f.deadline.SetValue("2026-09-15")
	_, err := f.Payload()
	if !errors.Is(err, task.ErrEmptyTitle) {
		t.Fatalf("err = %v", err)
	}
}

func TestFormForTaskPrefills(t *testing.T) {
	orig := task.Task{
		ID:          "t1",
		Title:       "pay rent",
		Description: "wire transfer",
		Deadline:    time.Date(2026, 7, 1, 9, 0, 0, 0, time.Local),
		Priority:    task.PriorityLow,
		Category:    "home",
	}
	f := FormForTask(orig)
	p, err := f.Payload()
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if p.Title != orig.Title || p.Description != orig.Description || p.Category != orig.Category {
		t.Fatalf("payload = %+v", p)
	}
	if p.Priority != task.PriorityLow || !p.Deadline.Equal(orig.Deadline) {
		t.Fatalf("payload = %+v", p)
	}
	if f.TaskID != "t1" {
		t.Fatalf("task id = %q", f.TaskID)
	}
}

func TestFormPriorityCycle(t *testing.T) {
	f := NewForm()
	seen := []task.Priority{f.priority}
	for i := 0; i < 3; i++ {
		f.CyclePriority()
		seen = append(seen, f.priority)
	}
	want := []task.Priority{task.PriorityMedium, task.PriorityHigh, task.PriorityLow, task.PriorityMedium}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("cycle = %v", seen)
		}
	}
}

func TestFormFieldCycle(t *testing.T) {
	f := NewForm()
	if f.focus != formFieldTitle {
		t.Fatalf("initial focus = %d", f.focus)
	}
	for i := 0; i < formFieldCount; i++ {
		f.NextField()
	}
	if f.focus != formFieldTitle {
		t.Fatalf("focus after full cycle = %d", f.focus)
	}
	f.PrevField()
	if f.focus != formFieldDescription {
		t.Fatalf("focus after prev = %d", f.focus)
	}
}
