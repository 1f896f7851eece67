package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mistakeknot/milgrim/internal/notify"
	"github.com/mistakeknot/milgrim/internal/store"
	"github.com/mistakeknot/milgrim/internal/task"
	"github.com/mistakeknot/milgrim/internal/view"
)

// ErrUnavailable is reported by Unavailable when the snapshot stream has
// failed and the reconciled set may be stale.
var ErrUnavailable = errors.New("reconcile: view unavailable, subscription failed")

// Session owns the queue, the active subscription and the view
// configuration. All state transitions (snapshot delivery, mutation
// dispatch, mutation resolution, filter and sort changes) are serialized
// onto one mutex so readers never observe a partially reconciled state.
type Session struct {
	st       store.Store
	notifier *notify.Dispatcher
	now      func() time.Time

	mu        sync.Mutex
	queue     *Queue
	query     store.Query
	sub       *store.Subscription
	subDone   chan struct{}
	filter    view.Filter
	sort      view.SortMode
	streamErr error
	changed   chan struct{}

	// memoized derivation
	memo        view.View
	memoVersion uint64
	memoFilter  view.Filter
	memoSort    view.SortMode
	memoValid   bool
}

// NewSession wires a store and a notifier. The notifier may be nil.
func NewSession(st store.Store, notifier *notify.Dispatcher) *Session {
	if notifier == nil {
		notifier = notify.NewDispatcher()
	}
	return &Session{
		st:       st,
		notifier: notifier,
		now:      time.Now,
		queue:    NewQueue(),
		filter:   view.DefaultFilter(),
		sort:     view.SortDeadline,
		changed:  make(chan struct{}, 1),
	}
}

// SetClock overrides the time source for optimistic creates and overdue
// evaluation.
func (s *Session) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	s.queue.SetClock(now)
}

// Notifier exposes the session's notification dispatcher.
func (s *Session) Notifier() *notify.Dispatcher { return s.notifier }

// Changed signals after every reconciled-state or configuration change.
// At most one signal is buffered; consumers re-read View after each.
func (s *Session) Changed() <-chan struct{} { return s.changed }

func (s *Session) signal() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// Start subscribes to the given query, tearing down any previous
// subscription first so a query change can never double-deliver.
func (s *Session) Start(ctx context.Context, q store.Query) error {
	s.mu.Lock()
	if s.sub != nil {
		s.sub.Close()
		done := s.subDone
		s.mu.Unlock()
		if done != nil {
			<-done
		}
		s.mu.Lock()
		s.sub = nil
		s.subDone = nil
	}
	s.query = q
	s.streamErr = nil
	s.mu.Unlock()

	sub, err := s.st.Subscribe(ctx, q)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.sub = sub
	s.subDone = done
	s.mu.Unlock()

	go s.pump(sub, done)
	return nil
}

// pump serializes snapshot delivery into the queue.
func (s *Session) pump(sub *store.Subscription, done chan struct{}) {
	defer close(done)
	for {
		select {
		case snap, ok := <-sub.Snapshots:
			if !ok {
				// The stream shut down. A failure may still be buffered on
				// Errs; a closed snapshot channel must not swallow it.
				s.drainErr(sub)
				return
			}
			s.mu.Lock()
			if s.sub != sub {
				// A newer subscription replaced this one mid-delivery.
				s.mu.Unlock()
				return
			}
			// Stream errors are terminal for this subscription; a snapshot
			// arriving after one is just a late buffered delivery and must
			// not clear the failure. Start resets streamErr on re-subscribe.
			s.queue.ApplySnapshot(snap)
			s.mu.Unlock()
			s.signal()
		case err, ok := <-sub.Errs:
			if !ok {
				return
			}
			if err == nil {
				continue
			}
			s.mu.Lock()
			if s.sub == sub {
				s.streamErr = err
			}
			s.mu.Unlock()
			s.signal()
		}
	}
}

// drainErr picks up a stream error that was buffered before the
// snapshot channel closed.
func (s *Session) drainErr(sub *store.Subscription) {
	select {
	case err, ok := <-sub.Errs:
		if !ok || err == nil {
			return
		}
		s.mu.Lock()
		if s.sub == sub {
			s.streamErr = err
		}
		s.mu.Unlock()
		s.signal()
	default:
	}
}

// Close tears down the active subscription. Pending records are kept;
// they continue to overlay whatever snapshot was last known.
func (s *Session) Close() {
	s.mu.Lock()
	sub := s.sub
	done := s.subDone
	s.sub = nil
	s.subDone = nil
	s.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
	if done != nil {
		<-done
	}
}

// SetFilter replaces the filter configuration.
func (s *Session) SetFilter(f view.Filter) {
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
	s.signal()
}

// SetSort replaces the sort configuration.
func (s *Session) SetSort(m view.SortMode) {
	s.mu.Lock()
	s.sort = m
	s.mu.Unlock()
	s.signal()
}

// Filter returns the active filter configuration.
func (s *Session) Filter() view.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Sort returns the active sort configuration.
func (s *Session) Sort() view.SortMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sort
}

// Unavailable reports a failed subscription as ErrUnavailable, wrapping
// the underlying stream error.
func (s *Session) Unavailable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamErr == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, s.streamErr)
}

// View derives the current view, memoized on (set version, filter,
// sort). The returned value shares no state with the queue.
func (s *Session) View() view.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	version := s.queue.Version()
	if s.memoValid && s.memoVersion == version && s.memoFilter == s.filter && s.memoSort == s.sort {
		return s.memo
	}
	v := view.Derive(s.queue.Tasks(), s.filter, s.sort, s.now())
	s.memo = v
	s.memoVersion = version
	s.memoFilter = s.filter
	s.memoSort = s.sort
	s.memoValid = true
	return v
}

// Now returns the session's current time.
func (s *Session) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now()
}

// Tasks returns a copy of the reconciled set.
func (s *Session) Tasks() []task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Tasks()
}

// Task looks up one task in the reconciled set.
func (s *Session) Task(id string) (task.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.queue.Tasks() {
		if t.ID == id {
			return t, true
		}
	}
	return task.Task{}, false
}

// Create applies the mutation optimistically and dispatches it to the
// store. The returned id is the optimistic placeholder; the confirmed id
// arrives with resolution.
func (s *Session) Create(ctx context.Context, p task.Payload) (string, error) {
	s.mu.Lock()
	r, err := s.queue.Create(p)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	q := s.query
	title := r.Optimistic.Title
	s.mu.Unlock()
	s.signal()

	go func() {
		assigned, err := s.st.Create(ctx, q, p)
		s.resolve(r.ID, assigned, notify.KindCreated, r.TaskID, title, err)
	}()
	return r.TaskID, nil
}

// Update applies the mutation optimistically and dispatches it.
func (s *Session) Update(ctx context.Context, id string, p task.Payload) error {
	s.mu.Lock()
	r, err := s.queue.Update(id, p)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	q := s.query
	title := r.Optimistic.Title
	s.mu.Unlock()
	s.signal()

	go func() {
		err := s.st.Update(ctx, q, id, p)
		s.resolve(r.ID, "", notify.KindUpdated, id, title, err)
	}()
	return nil
}

// Toggle applies the mutation optimistically and dispatches it.
func (s *Session) Toggle(ctx context.Context, id string, completed bool) error {
	s.mu.Lock()
	r, err := s.queue.Toggle(id, completed)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	q := s.query
	title := r.Optimistic.Title
	s.mu.Unlock()
	s.signal()

	go func() {
		err := s.st.ToggleComplete(ctx, q, id, completed)
		s.resolve(r.ID, "", notify.KindToggled, id, title, err)
	}()
	return nil
}

// Delete applies the mutation optimistically and dispatches it.
func (s *Session) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	r, err := s.queue.Delete(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	q := s.query
	title := ""
	if r.Prev != nil {
		title = r.Prev.Title
	}
	s.mu.Unlock()
	s.signal()

	go func() {
		err := s.st.Delete(ctx, q, id)
		s.resolve(r.ID, "", notify.KindDeleted, id, title, err)
	}()
	return nil
}

// resolve records the adapter's verdict for one mutation. Errors never
// cross this boundary: they become a failed record plus a notification.
func (s *Session) resolve(recordID, assignedID string, kind notify.Kind, taskID, title string, err error) {
	s.mu.Lock()
	if err != nil {
		s.queue.Fail(recordID)
	} else {
		s.queue.Confirm(recordID, assignedID)
	}
	now := s.now
	s.mu.Unlock()
	s.signal()

	ev := notify.Event{
		Kind:   kind,
		TaskID: taskID,
		Title:  title,
		At:     now(),
	}
	if err != nil {
		ev.Outcome = notify.OutcomeFailure
		ev.Err = err.Error()
		ev.Transient = store.IsTransient(err)
	} else {
		ev.Outcome = notify.OutcomeSuccess
		if assignedID != "" {
			ev.TaskID = assignedID
		}
	}
	s.notifier.Emit(ev)
}
