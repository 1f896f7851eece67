// Package task defines the task entity shared by the store, the
// reconciliation queue and the view layer.
package task

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Priority is the urgency level of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Rank returns the numeric ordering of a priority. Higher is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether p is one of the three known priorities.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

func (p Priority) String() string { return string(p) }

// ParsePriority converts user input into a Priority.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "l":
		return PriorityLow, nil
	case "medium", "med", "m", "":
		return PriorityMedium, nil
	case "high", "h":
		return PriorityHigh, nil
	default:
		return "", fmt.Errorf("unknown priority %q", s)
	}
}

// Task is one deadline-bound item. The ID and CreatedAt are assigned by
// the store on creation; before confirmation an optimistic task carries a
// placeholder ID.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Deadline    time.Time `json:"deadline"`
	Priority    Priority  `json:"priority"`
	Completed   bool      `json:"completed"`
	Category    string    `json:"category,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// Overdue reports whether the task is incomplete with a deadline strictly
// in the past.
func (t Task) Overdue(now time.Time) bool {
	return !t.Completed && t.Deadline.Before(now)
}

const (
	// MaxTitleLen bounds the title in runes.
	MaxTitleLen = 200
	// MaxDescriptionLen bounds the description in runes.
	MaxDescriptionLen = 4000
	// MaxCategoryLen bounds the category label in runes.
	MaxCategoryLen = 64
)

var (
	ErrEmptyTitle      = errors.New("task: title must not be empty")
	ErrTitleTooLong    = fmt.Errorf("task: title exceeds %d characters", MaxTitleLen)
	ErrDescTooLong     = fmt.Errorf("task: description exceeds %d characters", MaxDescriptionLen)
	ErrCategoryTooLong = fmt.Errorf("task: category exceeds %d characters", MaxCategoryLen)
	ErrNoDeadline      = errors.New("task: deadline is required")
	ErrBadPriority     = errors.New("task: priority must be low, medium or high")
)

// Payload is the user-supplied portion of a task, used for both create
// and update mutations.
type Payload struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Deadline    time.Time `json:"deadline"`
	Priority    Priority  `json:"priority"`
	Category    string    `json:"category,omitempty"`
}

// Validate rejects malformed payloads before they reach the store.
func (p Payload) Validate() error {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return ErrTitleTooLong
	}
	if utf8.RuneCountInString(p.Description) > MaxDescriptionLen {
		return ErrDescTooLong
	}
	if utf8.RuneCountInString(p.Category) > MaxCategoryLen {
		return ErrCategoryTooLong
	}
	if p.Deadline.IsZero() {
		return ErrNoDeadline
	}
	if !p.Priority.Valid() {
		return ErrBadPriority
	}
	return nil
}

// ApplyTo copies the payload fields onto an existing task, leaving
// identity fields (ID, CreatedAt, Completed) untouched.
func (p Payload) ApplyTo(t Task) Task {
	t.Title = strings.TrimSpace(p.Title)
	t.Description = p.Description
	t.Deadline = p.Deadline
	t.Priority = p.Priority
	t.Category = strings.TrimSpace(p.Category)
	return t
}

// New builds an unconfirmed task from a payload with the given
// placeholder id. The store assigns the real id and creation time.
func (p Payload) New(placeholderID string, now time.Time) Task {
	return Task{
		ID:          placeholderID,
		Title:       strings.TrimSpace(p.Title),
		Description: p.Description,
		Deadline:    p.Deadline,
		Priority:    p.Priority,
		Category:    strings.TrimSpace(p.Category),
		CreatedAt:   now,
	}
}

// PayloadOf extracts the mutable fields of a task back into a payload.
func PayloadOf(t Task) Payload {
	return Payload{
		Title:       t.Title,
		Description: t.Description,
		Deadline:    t.Deadline,
		Priority:    t.Priority,
		Category:    t.Category,
	}
}
