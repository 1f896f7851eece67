// Package store defines the remote store boundary: a live snapshot
// subscription plus asynchronous mutation primitives. Ordering and
// filtering for display are not the store's concern.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mistakeknot/milgrim/internal/task"
)

// Query describes which task collection a subscription watches.
type Query struct {
	// Owner scopes the collection to one user key.
	Owner string
}

// Snapshot is the full current listing of tasks matching a query. It is
// never a diff; every change re-delivers the whole set.
type Snapshot []task.Task

// Subscription delivers snapshots until closed. Snapshots preserves
// delivery order; a value on Errs means the stream itself failed and no
// further snapshots will arrive.
type Subscription struct {
	Snapshots <-chan Snapshot
	Errs      <-chan error
	cancel    func()
}

// NewSubscription wraps the channels with a teardown func. Implementations
// must stop delivering after cancel runs.
func NewSubscription(snaps <-chan Snapshot, errs <-chan error, cancel func()) *Subscription {
	return &Subscription{Snapshots: snaps, Errs: errs, cancel: cancel}
}

// Close tears the subscription down. Safe to call more than once.
func (s *Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Store is the remote store adapter. Mutations either succeed (Create
// returning the assigned id) or fail with a transient-vs-fatal
// classification. Retry policy belongs to the caller, not the store.
type Store interface {
	Subscribe(ctx context.Context, q Query) (*Subscription, error)
	Create(ctx context.Context, q Query, p task.Payload) (string, error)
	Update(ctx context.Context, q Query, id string, p task.Payload) error
	ToggleComplete(ctx context.Context, q Query, id string, completed bool) error
	Delete(ctx context.Context, q Query, id string) error
}

// ErrNotFound reports a mutation against an id the store does not hold.
var ErrNotFound = errors.New("store: task not found")

// Error classifies a store failure. Retryable errors are transient
// (network, overload); the rest are fatal for that mutation.
type Error struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient wraps err as a retryable store error.
func Transient(op string, err error) error {
	return &Error{Op: op, Retryable: true, Err: err}
}

// Fatal wraps err as a non-retryable store error.
func Fatal(op string, err error) error {
	return &Error{Op: op, Retryable: false, Err: err}
}

// IsTransient reports whether err is a retryable store failure.
func IsTransient(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Retryable
}
