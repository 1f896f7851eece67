package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mistakeknot/milgrim/internal/task"
)

// Queue is the single point of truth for the reconciled task set: the
// last known remote snapshot with all still-pending mutations overlaid
// in submission order. It is not safe for concurrent use; the owning
// session serializes access.
type Queue struct {
	snapshot   []task.Task // last known-good remote snapshot
	records    []*Record   // submission order
	reconciled []task.Task
	version    uint64
	now        func() time.Time
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{now: time.Now}
}

// SetClock overrides the timestamp source for optimistic creates.
func (q *Queue) SetClock(now func() time.Time) { q.now = now }

// Version increments on every change to the reconciled set. Derivation
// layers memoize on it.
func (q *Queue) Version() uint64 { return q.version }

// Tasks returns a copy of the reconciled set.
func (q *Queue) Tasks() []task.Task {
	out := make([]task.Task, len(q.reconciled))
	copy(out, q.reconciled)
	return out
}

// Pending returns the still-pending records, oldest first.
func (q *Queue) Pending() []*Record {
	out := make([]*Record, 0, len(q.records))
	for _, r := range q.records {
		if r.State == StatePending {
			out = append(out, r)
		}
	}
	return out
}

func (q *Queue) find(id string) (task.Task, bool) {
	for _, t := range q.reconciled {
		if t.ID == id {
			return t, true
		}
	}
	return task.Task{}, false
}

func (q *Queue) recompute() {
	q.reconciled = Merge(q.snapshot, q.records)
	q.version++
}

// Create validates the payload, applies it optimistically under a
// placeholder id and returns the pending record for the caller to
// dispatch.
func (q *Queue) Create(p task.Payload) (*Record, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	optimistic := p.New(newPlaceholderID(), q.now().UTC())
	r := &Record{
		ID:         uuid.NewString(),
		Kind:       KindCreate,
		TaskID:     optimistic.ID,
		State:      StatePending,
		Payload:    p,
		Optimistic: optimistic,
	}
	q.records = append(q.records, r)
	q.recompute()
	return r, nil
}

// Update validates the payload and optimistically rewrites the target
// task's fields.
func (q *Queue) Update(id string, p task.Payload) (*Record, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	prev, ok := q.find(id)
	if !ok {
		return nil, fmt.Errorf("reconcile: update unknown task %s", id)
	}
	r := &Record{
		ID:         uuid.NewString(),
		Kind:       KindUpdate,
		TaskID:     id,
		State:      StatePending,
		Payload:    p,
		Optimistic: p.ApplyTo(prev),
		Prev:       &prev,
	}
	q.records = append(q.records, r)
	q.recompute()
	return r, nil
}

// Toggle optimistically sets the target task's completion flag.
func (q *Queue) Toggle(id string, completed bool) (*Record, error) {
	prev, ok := q.find(id)
	if !ok {
		return nil, fmt.Errorf("reconcile: toggle unknown task %s", id)
	}
	optimistic := prev
	optimistic.Completed = completed
	r := &Record{
		ID:         uuid.NewString(),
		Kind:       KindToggle,
		TaskID:     id,
		State:      StatePending,
		Completed:  completed,
		Optimistic: optimistic,
		Prev:       &prev,
	}
	q.records = append(q.records, r)
	q.recompute()
	return r, nil
}

// Delete optimistically removes the target task.
func (q *Queue) Delete(id string) (*Record, error) {
	prev, ok := q.find(id)
	if !ok {
		return nil, fmt.Errorf("reconcile: delete unknown task %s", id)
	}
	r := &Record{
		ID:     uuid.NewString(),
		Kind:   KindDelete,
		TaskID: id,
		State:  StatePending,
		Prev:   &prev,
	}
	q.records = append(q.records, r)
	q.recompute()
	return r, nil
}

// Confirm marks the record confirmed. The optimistic effect stays in the
// reconciled set until the next snapshot supersedes it, preventing
// flicker between optimistic and confirmed state. For creates, the
// store-assigned id replaces the placeholder everywhere, including in
// later pending records that targeted the placeholder.
func (q *Queue) Confirm(recordID, assignedID string) {
	r := q.record(recordID)
	if r == nil || r.State != StatePending {
		return
	}
	r.State = StateConfirmed
	if r.Kind == KindCreate && assignedID != "" && assignedID != r.TaskID {
		old := r.TaskID
		r.TaskID = assignedID
		r.Optimistic.ID = assignedID
		for _, other := range q.records {
			if other.TaskID == old {
				other.TaskID = assignedID
				other.Optimistic.ID = assignedID
			}
		}
		for i := range q.reconciled {
			if q.reconciled[i].ID == old {
				q.reconciled[i].ID = assignedID
			}
		}
		q.version++
	}
}

// Fail marks the record failed and rolls its optimistic effect back by
// recomputing the overlay without it.
func (q *Queue) Fail(recordID string) {
	r := q.record(recordID)
	if r == nil || r.State != StatePending {
		return
	}
	r.State = StateFailed
	q.drop(recordID)
	q.recompute()
}

// ApplySnapshot installs a fresh remote snapshot and re-applies all
// still-pending records on top. Confirmed and failed records are now
// superseded and removed.
func (q *Queue) ApplySnapshot(snapshot []task.Task) {
	prev := q.snapshot
	q.snapshot = make([]task.Task, len(snapshot))
	copy(q.snapshot, snapshot)
	kept := q.records[:0]
	for _, r := range q.records {
		if r.State == StatePending {
			kept = append(kept, r)
		}
	}
	q.records = kept
	q.adoptCreates(prev)
	q.recompute()
}

// adoptCreates matches rows that newly appeared in the snapshot against
// pending creates. A snapshot can reflect a create before its direct
// acknowledgment arrives; adopting the server id keeps the optimistic
// row and the confirmed row from showing up twice.
func (q *Queue) adoptCreates(prev []task.Task) {
	known := make(map[string]bool, len(prev))
	for _, t := range prev {
		known[t.ID] = true
	}
	for _, r := range q.records {
		known[r.TaskID] = true
	}
	for _, t := range q.snapshot {
		if known[t.ID] {
			continue
		}
		for _, r := range q.records {
			if r.Kind != KindCreate || !IsPlaceholder(r.TaskID) {
				continue
			}
			p := r.Payload
			if strings.TrimSpace(p.Title) == t.Title && p.Deadline.Equal(t.Deadline) &&
				p.Priority == t.Priority && strings.TrimSpace(p.Category) == t.Category {
				old := r.TaskID
				r.TaskID = t.ID
				r.Optimistic = t
				for _, other := range q.records {
					if other.TaskID == old {
						other.TaskID = t.ID
						other.Optimistic.ID = t.ID
					}
				}
				break
			}
		}
	}
}

func (q *Queue) record(id string) *Record {
	for _, r := range q.records {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (q *Queue) drop(id string) {
	for i, r := range q.records {
		if r.ID == id {
			q.records = append(q.records[:i], q.records[i+1:]...)
			return
		}
	}
}
