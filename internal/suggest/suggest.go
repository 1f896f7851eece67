// Package suggest asks an external agent command for task breakdowns.
// Suggestions are best effort: failures surface as notifications, never
// as mutation errors.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Suggester produces sub-task suggestions for a task.
type Suggester interface {
	Breakdown(ctx context.Context, title, description string) ([]string, error)
}

// ErrNotConfigured reports that no agent command is set.
var ErrNotConfigured = errors.New("suggest: agent command not configured")

type breakdownInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type breakdownOutput struct {
	SubTasks []string `json:"sub_tasks"`
}

// CommandSuggester shells out to a configured command, feeding the task
// as JSON on stdin and reading {"sub_tasks": [...]} from stdout.
type CommandSuggester struct {
	Command string
	Timeout time.Duration
}

// NewCommandSuggester creates a suggester for the given shell command.
func NewCommandSuggester(command string) *CommandSuggester {
	return &CommandSuggester{Command: command, Timeout: 30 * time.Second}
}

// Breakdown runs the agent command and returns its suggested sub-tasks.
func (s *CommandSuggester) Breakdown(ctx context.Context, title, description string) ([]string, error) {
	if strings.TrimSpace(s.Command) == "" {
		return nil, ErrNotConfigured
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", s.Command)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	go func() {
		_ = json.NewEncoder(stdin).Encode(breakdownInput{Title: title, Description: description})
		_ = stdin.Close()
	}()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("suggest: agent command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	var payload breakdownOutput
	if err := json.Unmarshal(stdout.Bytes(), &payload); err != nil {
		return nil, fmt.Errorf("suggest: agent output invalid: %w", err)
	}
	subTasks := make([]string, 0, len(payload.SubTasks))
	for _, st := range payload.SubTasks {
		if st = strings.TrimSpace(st); st != "" {
			subTasks = append(subTasks, st)
		}
	}
	return subTasks, nil
}

// MergeIntoDescription appends sub-tasks to a description as a markdown
// checklist. An empty suggestion list leaves the description untouched.
func MergeIntoDescription(description string, subTasks []string) string {
	if len(subTasks) == 0 {
		return description
	}
	var b strings.Builder
	b.WriteString(strings.TrimRight(description, "\n"))
	if b.Len() > 0 {
		b.WriteString("\n\n")
	}
	b.WriteString("## Sub-tasks\n")
	for _, st := range subTasks {
		fmt.Fprintf(&b, "- [ ] %s\n", st)
	}
	return b.String()
}
