package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mistakeknot/milgrim/internal/task"
)

// MemStore is an in-process Store used by tests and demo mode. Every
// mutation broadcasts a fresh snapshot to all live subscriptions.
// Failures can be injected per operation with FailNext.
type MemStore struct {
	mu       sync.Mutex
	tasks    map[string]map[string]task.Task // owner -> id -> task
	subs     map[string]*memSub
	failures map[string]error
	now      func() time.Time

	// Paused suppresses snapshot broadcast until Resume, letting tests
	// control when confirmation snapshots arrive.
	paused  bool
	pending map[string]bool // owners with withheld snapshots
}

type memSub struct {
	owner  string
	snaps  chan Snapshot
	errs   chan error
	closed bool
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		tasks:    make(map[string]map[string]task.Task),
		subs:     make(map[string]*memSub),
		failures: make(map[string]error),
		now:      time.Now,
		pending:  make(map[string]bool),
	}
}

// SetClock overrides the creation timestamp source.
func (m *MemStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// FailNext makes the next mutation of the given op ("create", "update",
// "toggle", "delete") fail with err.
func (m *MemStore) FailNext(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = err
}

// Pause withholds snapshot broadcasts until Resume.
func (m *MemStore) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
}

// Resume re-enables broadcasts and flushes any withheld snapshot.
func (m *MemStore) Resume() {
	m.mu.Lock()
	m.paused = false
	owners := make([]string, 0, len(m.pending))
	for owner := range m.pending {
		owners = append(owners, owner)
	}
	m.pending = make(map[string]bool)
	m.mu.Unlock()
	for _, owner := range owners {
		m.broadcast(owner)
	}
}

// Subscribe delivers the current snapshot immediately, then one snapshot
// per change until ctx is done or the subscription is closed.
func (m *MemStore) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	sub := &memSub{
		owner: q.Owner,
		snaps: make(chan Snapshot, 16),
		errs:  make(chan error, 1),
	}
	id := uuid.NewString()

	m.mu.Lock()
	m.subs[id] = sub
	sub.snaps <- m.snapshotLocked(q.Owner)
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if s, ok := m.subs[id]; ok && !s.closed {
			s.closed = true
			close(s.snaps)
			close(s.errs)
			delete(m.subs, id)
		}
	}
	if ctx != nil && ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			cancel()
		}()
	}
	return NewSubscription(sub.snaps, sub.errs, cancel), nil
}

// FailSubscriptions reports a stream failure to every live subscription.
func (m *MemStore) FailSubscriptions(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.subs {
		if sub.closed {
			continue
		}
		select {
		case sub.errs <- err:
		default:
		}
	}
}

func (m *MemStore) Create(ctx context.Context, q Query, p task.Payload) (string, error) {
	if err := m.takeFailure("create"); err != nil {
		return "", err
	}
	m.mu.Lock()
	id := uuid.NewString()
	t := p.New(id, m.now().UTC())
	if m.tasks[q.Owner] == nil {
		m.tasks[q.Owner] = make(map[string]task.Task)
	}
	m.tasks[q.Owner][id] = t
	m.mu.Unlock()
	m.broadcast(q.Owner)
	return id, nil
}

func (m *MemStore) Update(ctx context.Context, q Query, id string, p task.Payload) error {
	if err := m.takeFailure("update"); err != nil {
		return err
	}
	m.mu.Lock()
	t, ok := m.tasks[q.Owner][id]
	if !ok {
		m.mu.Unlock()
		return Fatal("update", ErrNotFound)
	}
	m.tasks[q.Owner][id] = p.ApplyTo(t)
	m.mu.Unlock()
	m.broadcast(q.Owner)
	return nil
}

func (m *MemStore) ToggleComplete(ctx context.Context, q Query, id string, completed bool) error {
	if err := m.takeFailure("toggle"); err != nil {
		return err
	}
	m.mu.Lock()
	t, ok := m.tasks[q.Owner][id]
	if !ok {
		m.mu.Unlock()
		return Fatal("toggle", ErrNotFound)
	}
	t.Completed = completed
	m.tasks[q.Owner][id] = t
	m.mu.Unlock()
	m.broadcast(q.Owner)
	return nil
}

func (m *MemStore) Delete(ctx context.Context, q Query, id string) error {
	if err := m.takeFailure("delete"); err != nil {
		return err
	}
	m.mu.Lock()
	if _, ok := m.tasks[q.Owner][id]; !ok {
		m.mu.Unlock()
		return Fatal("delete", ErrNotFound)
	}
	delete(m.tasks[q.Owner], id)
	m.mu.Unlock()
	m.broadcast(q.Owner)
	return nil
}

func (m *MemStore) takeFailure(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[op]; err != nil {
		delete(m.failures, op)
		return err
	}
	return nil
}

// snapshotLocked lists the owner's tasks ordered by creation time. The
// caller holds m.mu.
func (m *MemStore) snapshotLocked(owner string) Snapshot {
	snap := make(Snapshot, 0, len(m.tasks[owner]))
	for _, t := range m.tasks[owner] {
		snap = append(snap, t)
	}
	sort.SliceStable(snap, func(i, j int) bool {
		if !snap[i].CreatedAt.Equal(snap[j].CreatedAt) {
			return snap[i].CreatedAt.Before(snap[j].CreatedAt)
		}
		return snap[i].ID < snap[j].ID
	})
	return snap
}

func (m *MemStore) broadcast(owner string) {
	m.mu.Lock()
	if m.paused {
		m.pending[owner] = true
		m.mu.Unlock()
		return
	}
	snap := m.snapshotLocked(owner)
	for _, sub := range m.subs {
		if sub.closed || sub.owner != owner {
			continue
		}
		select {
		case sub.snaps <- snap:
		default:
			// Subscriber not keeping up, skip this delivery.
		}
	}
	m.mu.Unlock()
}
