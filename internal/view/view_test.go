package view

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mistakeknot/milgrim/internal/task"
)

var now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func day(n int) time.Time { return now.AddDate(0, 0, n) }

func titles(tasks []task.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return out
}

func TestSortScenario(t *testing.T) {
	set := []task.Task{
		{ID: "1", Title: "B", Priority: task.PriorityHigh, Deadline: day(2)},
		{ID: "2", Title: "A", Priority: task.PriorityLow, Deadline: day(1)},
	}
	cases := []struct {
		mode SortMode
		want []string
	}{
		{SortTitle, []string{"A", "B"}},
		{SortPriority, []string{"B", "A"}},
		{SortDeadline, []string{"A", "B"}},
	}
	for _, tc := range cases {
		v := Derive(set, DefaultFilter(), tc.mode, now)
		if diff := cmp.Diff(tc.want, titles(v.Ordered)); diff != "" {
			t.Fatalf("sort %s mismatch (-want +got):\n%s", tc.mode, diff)
		}
	}
}

func TestDeriveDeterministicAndPure(t *testing.T) {
	set := []task.Task{
		{ID: "1", Title: "c", Deadline: day(3), Priority: task.PriorityLow},
		{ID: "2", Title: "a", Deadline: day(1), Priority: task.PriorityHigh, Completed: true},
		{ID: "3", Title: "b", Deadline: day(2), Priority: task.PriorityMedium, Category: "work"},
	}
	orig := titles(set)
	first := Derive(set, DefaultFilter(), SortPriority, now)
	second := Derive(set, DefaultFilter(), SortPriority, now)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("derive not deterministic:\n%s", diff)
	}
	if diff := cmp.Diff(orig, titles(set)); diff != "" {
		t.Fatalf("derive mutated its input:\n%s", diff)
	}
	// Deriving from an already ordered slice is idempotent.
	again := Derive(first.Ordered, DefaultFilter(), SortPriority, now)
	if diff := cmp.Diff(titles(first.Ordered), titles(again.Ordered)); diff != "" {
		t.Fatalf("derive not idempotent:\n%s", diff)
	}
}

func TestIncompleteBeforeCompletedUnderAll(t *testing.T) {
	set := []task.Task{
		{ID: "1", Title: "done early", Deadline: day(1), Completed: true, Priority: task.PriorityHigh},
		{ID: "2", Title: "open late", Deadline: day(5), Priority: task.PriorityLow},
	}
	v := Derive(set, DefaultFilter(), SortDeadline, now)
	if got := titles(v.Ordered); got[0] != "open late" {
		t.Fatalf("incomplete task should sort first under status=all: %v", got)
	}
	// Title mode ignores the completion grouping.
	v = Derive(set, DefaultFilter(), SortTitle, now)
	if got := titles(v.Ordered); got[0] != "done early" {
		t.Fatalf("title sort must not group by completion: %v", got)
	}
	// Outside status=all the grouping is moot but ordering stays keyed.
	v = Derive(set, Filter{Status: StatusCompleted, Category: FacetAll}, SortDeadline, now)
	if len(v.Ordered) != 1 || v.Ordered[0].ID != "1" {
		t.Fatalf("completed filter selected %v", titles(v.Ordered))
	}
}

func TestCategorySortEmptyFirst(t *testing.T) {
	set := []task.Task{
		{ID: "1", Title: "w", Category: "work", Deadline: day(1)},
		{ID: "2", Title: "n", Category: "", Deadline: day(2)},
		{ID: "3", Title: "h", Category: "home", Deadline: day(1)},
		{ID: "4", Title: "h2", Category: "home", Deadline: day(0)},
	}
	v := Derive(set, DefaultFilter(), SortCategory, now)
	want := []string{"n", "h2", "h", "w"}
	if diff := cmp.Diff(want, titles(v.Ordered)); diff != "" {
		t.Fatalf("category order (-want +got):\n%s", diff)
	}
}

func TestPriorityTieBrokenByDeadline(t *testing.T) {
	set := []task.Task{
		{ID: "1", Title: "later", Priority: task.PriorityHigh, Deadline: day(4)},
		{ID: "2", Title: "sooner", Priority: task.PriorityHigh, Deadline: day(1)},
	}
	v := Derive(set, DefaultFilter(), SortPriority, now)
	if got := titles(v.Ordered); got[0] != "sooner" {
		t.Fatalf("priority tie should break by deadline: %v", got)
	}
}

func TestFilterComposition(t *testing.T) {
	set := []task.Task{
		{ID: "1", Title: "a", Category: "work", Deadline: day(1)},
		{ID: "2", Title: "b", Category: "work", Deadline: day(1), Completed: true},
		{ID: "3", Title: "c", Category: "home", Deadline: day(1)},
	}
	v := Derive(set, Filter{Status: StatusIncomplete, Category: "work"}, SortDeadline, now)
	if len(v.Ordered) != 1 || v.Ordered[0].ID != "1" {
		t.Fatalf("AND of predicates selected %v", titles(v.Ordered))
	}
	// Aggregates are computed over the unfiltered set.
	if v.Stats.Total != 3 || v.Stats.Completed != 1 {
		t.Fatalf("stats should ignore filter: %+v", v.Stats)
	}
}

func TestToggleWithIncompleteFilter(t *testing.T) {
	set := []task.Task{
		{ID: "1", Title: "a", Deadline: day(1)},
		{ID: "2", Title: "b", Deadline: day(2)},
	}
	filter := Filter{Status: StatusIncomplete, Category: FacetAll}
	before := Derive(set, filter, SortDeadline, now)
	set[0].Completed = true
	after := Derive(set, filter, SortDeadline, now)
	if len(after.Ordered) != len(before.Ordered)-1 {
		t.Fatalf("toggled task should leave the filtered list")
	}
	if after.Stats.Total != before.Stats.Total {
		t.Fatalf("total changed on toggle: %d -> %d", before.Stats.Total, after.Stats.Total)
	}
	if after.Stats.Completed != before.Stats.Completed+1 {
		t.Fatalf("completed count should increment: %+v", after.Stats)
	}
}

func TestAggregates(t *testing.T) {
	if got := Aggregate(nil, now); got.CompletionRatePercent != 0 || got.Total != 0 {
		t.Fatalf("empty set stats: %+v", got)
	}
	set := []task.Task{
		{ID: "1", Deadline: day(-1)},                  // overdue
		{ID: "2", Deadline: day(1)},                   // upcoming
		{ID: "3", Deadline: day(2)},                   // upcoming
		{ID: "4", Deadline: day(3)},                   // upcoming
		{ID: "5", Deadline: day(4)},                   // beyond the limit
		{ID: "6", Deadline: day(-2), Completed: true}, // completed, never overdue
	}
	s := Aggregate(set, now)
	if s.Total != 6 || s.Completed != 1 || s.Incomplete != 5 {
		t.Fatalf("counts: %+v", s)
	}
	if s.OverdueCount != 1 {
		t.Fatalf("overdue: %+v", s)
	}
	if s.CompletionRatePercent != 17 { // 1/6 = 16.67 -> 17
		t.Fatalf("completion rate: %d", s.CompletionRatePercent)
	}
	if len(s.Upcoming) != UpcomingLimit {
		t.Fatalf("upcoming should truncate to %d: %d", UpcomingLimit, len(s.Upcoming))
	}
	if s.Upcoming[0].ID != "2" || s.Upcoming[2].ID != "4" {
		t.Fatalf("upcoming order: %v", titles(s.Upcoming))
	}
	// Deadline exactly now counts as upcoming, not overdue.
	edge := Aggregate([]task.Task{{ID: "7", Deadline: now}}, now)
	if edge.OverdueCount != 0 || len(edge.Upcoming) != 1 {
		t.Fatalf("deadline == now misclassified: %+v", edge)
	}
}

func TestCompletionRateBounds(t *testing.T) {
	for total := 0; total <= 10; total++ {
		for completed := 0; completed <= total; completed++ {
			set := make([]task.Task, total)
			for i := range set {
				set[i] = task.Task{ID: string(rune('a' + i)), Deadline: day(1), Completed: i < completed}
			}
			rate := Aggregate(set, now).CompletionRatePercent
			if rate < 0 || rate > 100 {
				t.Fatalf("rate out of range for %d/%d: %d", completed, total, rate)
			}
		}
	}
}

func TestFacets(t *testing.T) {
	set := []task.Task{
		{ID: "1", Category: "work"},
		{ID: "2", Category: "home"},
		{ID: "3", Category: "work"},
		{ID: "4"},
	}
	want := []string{"all", "home", "work"}
	if diff := cmp.Diff(want, Facets(set)); diff != "" {
		t.Fatalf("facets (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"all"}, Facets(nil)); diff != "" {
		t.Fatalf("empty facets (-want +got):\n%s", diff)
	}
}
