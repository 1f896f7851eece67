// Package reconcile keeps a locally rendered task set consistent with a
// remote snapshot stream while user mutations are in flight. Pending
// mutations are applied optimistically and re-overlaid on every incoming
// snapshot, so a task the user just added or deleted never blinks back.
package reconcile

import (
	"strings"

	"github.com/google/uuid"

	"github.com/mistakeknot/milgrim/internal/task"
)

// Kind is the mutation type.
type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindToggle Kind = "toggle"
	KindDelete Kind = "delete"
)

// State is the lifecycle state of a mutation record.
type State string

const (
	StatePending   State = "pending"
	StateConfirmed State = "confirmed"
	StateFailed    State = "failed"
)

// placeholderPrefix marks optimistic ids for unconfirmed creates. Server
// ids are bare uuids, so the prefix can never collide.
const placeholderPrefix = "pending-"

func newPlaceholderID() string { return placeholderPrefix + uuid.NewString() }

// IsPlaceholder reports whether id belongs to an unconfirmed create.
func IsPlaceholder(id string) bool { return strings.HasPrefix(id, placeholderPrefix) }

// Record is one in-flight user mutation and the optimistic effect it
// produced.
type Record struct {
	ID     string
	Kind   Kind
	TaskID string
	State  State

	// Payload is set for create and update mutations.
	Payload task.Payload
	// Completed is the target value for toggle mutations.
	Completed bool
	// Optimistic is the task as the mutation leaves it (unset for delete).
	Optimistic task.Task
	// Prev holds the pre-mutation task for update, toggle and delete so a
	// failure can restore it.
	Prev *task.Task
}

// overlay applies the record's effect to the given set, in place where
// possible. Used both for the initial optimistic apply and for
// re-applying pending records on top of a fresh snapshot.
func (r *Record) overlay(set []task.Task) []task.Task {
	switch r.Kind {
	case KindCreate:
		for i := range set {
			if set[i].ID == r.TaskID {
				// The snapshot already contains the confirmed row.
				return set
			}
		}
		return append(set, r.Optimistic)
	case KindUpdate:
		for i := range set {
			if set[i].ID == r.TaskID {
				set[i] = r.Payload.ApplyTo(set[i])
			}
		}
		return set
	case KindToggle:
		for i := range set {
			if set[i].ID == r.TaskID {
				set[i].Completed = r.Completed
			}
		}
		return set
	case KindDelete:
		out := set[:0]
		for _, t := range set {
			if t.ID != r.TaskID {
				out = append(out, t)
			}
		}
		return out
	default:
		return set
	}
}

// Merge recomputes the reconciled set: the snapshot with every held
// record's effect re-applied in submission order. A pending create not
// yet present in the snapshot stays visible; a pending delete of a task
// still present stays hidden; later records win over earlier ones for
// the same task id. Confirmed records keep overlaying too: their effect
// is retained until the next snapshot supersedes them, so the view never
// flickers between optimistic and confirmed state.
func Merge(snapshot []task.Task, records []*Record) []task.Task {
	set := make([]task.Task, len(snapshot))
	copy(set, snapshot)
	for _, r := range records {
		if r.State == StateFailed {
			continue
		}
		set = r.overlay(set)
	}
	return set
}
