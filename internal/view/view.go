// Package view derives the rendered task view from a reconciled task set.
// Everything here is pure: identical inputs always produce identical
// output, so callers may memoize on (set version, filter, sort).
package view

import (
	"sort"
	"strings"
	"time"

	"github.com/mistakeknot/milgrim/internal/task"
)

// Status selects tasks by completion state.
type Status string

const (
	StatusAll        Status = "all"
	StatusCompleted  Status = "completed"
	StatusIncomplete Status = "incomplete"
)

// Valid reports whether s is a known status filter.
func (s Status) Valid() bool {
	return s == StatusAll || s == StatusCompleted || s == StatusIncomplete
}

// FacetAll is the synthetic category facet matching every task.
const FacetAll = "all"

// Filter is the active selection predicate. Category "" or "all" matches
// every category. Both predicates compose with logical AND.
type Filter struct {
	Status   Status
	Category string
}

// DefaultFilter shows everything.
func DefaultFilter() Filter { return Filter{Status: StatusAll, Category: FacetAll} }

// Match reports whether t passes the filter.
func (f Filter) Match(t task.Task) bool {
	switch f.Status {
	case StatusCompleted:
		if !t.Completed {
			return false
		}
	case StatusIncomplete:
		if t.Completed {
			return false
		}
	}
	if f.Category != "" && f.Category != FacetAll && t.Category != f.Category {
		return false
	}
	return true
}

// SortMode selects the ordering of the task list.
type SortMode string

const (
	SortDeadline SortMode = "deadline"
	SortPriority SortMode = "priority"
	SortTitle    SortMode = "title"
	SortCategory SortMode = "category"
)

// Valid reports whether m is a known sort mode.
func (m SortMode) Valid() bool {
	return m == SortDeadline || m == SortPriority || m == SortTitle || m == SortCategory
}

// SortModes lists the cycle order used by the UI.
var SortModes = []SortMode{SortDeadline, SortPriority, SortTitle, SortCategory}

// UpcomingLimit caps the stats upcoming list.
const UpcomingLimit = 3

// Stats are aggregates over the unfiltered reconciled set.
type Stats struct {
	Total                 int
	Completed             int
	Incomplete            int
	CompletionRatePercent int
	OverdueCount          int
	Upcoming              []task.Task
}

// View is the derived, renderable state.
type View struct {
	Ordered []task.Task
	Facets  []string
	Stats   Stats
}

// Derive computes the view for the given reconciled set. The input slice
// is not modified. Aggregates and facets ignore the filter; only Ordered
// is filtered.
func Derive(tasks []task.Task, filter Filter, mode SortMode, now time.Time) View {
	ordered := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if filter.Match(t) {
			ordered = append(ordered, t)
		}
	}
	sortTasks(ordered, mode, filter.Status)

	return View{
		Ordered: ordered,
		Facets:  Facets(tasks),
		Stats:   Aggregate(tasks, now),
	}
}

// sortTasks orders in place. For every mode except title, when the
// status filter is "all" incomplete tasks come before completed ones and
// the mode's key applies within each group.
func sortTasks(tasks []task.Task, mode SortMode, status Status) {
	groupByCompletion := mode != SortTitle && status == StatusAll
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if groupByCompletion && a.Completed != b.Completed {
			return !a.Completed
		}
		return less(a, b, mode)
	})
}

func less(a, b task.Task, mode SortMode) bool {
	switch mode {
	case SortPriority:
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() > b.Priority.Rank()
		}
		return a.Deadline.Before(b.Deadline)
	case SortTitle:
		return titleLess(a.Title, b.Title)
	case SortCategory:
		// Empty category sorts first.
		if a.Category != b.Category {
			if a.Category == "" || b.Category == "" {
				return a.Category == ""
			}
			return titleLess(a.Category, b.Category)
		}
		return a.Deadline.Before(b.Deadline)
	default: // SortDeadline
		return a.Deadline.Before(b.Deadline)
	}
}

// titleLess compares case-insensitively, falling back to the original
// casing so the order stays total.
func titleLess(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return a < b
}

// Aggregate computes stats over the unfiltered set.
func Aggregate(tasks []task.Task, now time.Time) Stats {
	s := Stats{Total: len(tasks)}
	var upcoming []task.Task
	for _, t := range tasks {
		if t.Completed {
			s.Completed++
			continue
		}
		s.Incomplete++
		if t.Overdue(now) {
			s.OverdueCount++
		} else {
			upcoming = append(upcoming, t)
		}
	}
	if s.Total > 0 {
		// Round half up to an integer percentage.
		s.CompletionRatePercent = (s.Completed*100 + s.Total/2) / s.Total
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].Deadline.Before(upcoming[j].Deadline)
	})
	if len(upcoming) > UpcomingLimit {
		upcoming = upcoming[:UpcomingLimit]
	}
	s.Upcoming = upcoming
	return s
}

// Facets returns the distinct non-empty categories of the set, sorted,
// with the synthetic "all" entry prepended.
func Facets(tasks []task.Task) []string {
	seen := make(map[string]bool)
	for _, t := range tasks {
		if t.Category != "" {
			seen[t.Category] = true
		}
	}
	facets := make([]string, 0, len(seen)+1)
	facets = append(facets, FacetAll)
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return append(facets, names...)
}
