package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/mistakeknot/milgrim/internal/task"
	"github.com/mistakeknot/milgrim/internal/taskdb"
)

// LocalStore is a Store over a local SQLite file. Its own mutations
// broadcast directly; a filesystem watcher picks up writes from other
// processes sharing the same database.
type LocalStore struct {
	db      *taskdb.DB
	path    string
	watcher *fsnotify.Watcher

	mu   sync.Mutex
	subs map[string]*localSub
	now  func() time.Time
}

type localSub struct {
	owner  string
	snaps  chan Snapshot
	errs   chan error
	closed bool
}

// NewLocalStore opens (creating if needed) the task database at path and
// starts watching its directory for external writes.
func NewLocalStore(path string) (*LocalStore, error) {
	db, err := taskdb.Open(path)
	if err != nil {
		return nil, err
	}
	s := &LocalStore{
		db:   db,
		path: path,
		subs: make(map[string]*localSub),
		now:  time.Now,
	}
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if addErr := watcher.Add(filepath.Dir(path)); addErr != nil {
			watcher.Close()
		} else {
			s.watcher = watcher
			go s.watch()
		}
	}
	return s, nil
}

// SetClock overrides the creation timestamp source.
func (s *LocalStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Close stops the watcher and closes the database.
func (s *LocalStore) Close() error {
	if s.watcher != nil {
		s.watcher.Close()
	}
	s.mu.Lock()
	for id, sub := range s.subs {
		if !sub.closed {
			sub.closed = true
			close(sub.snaps)
			close(sub.errs)
		}
		delete(s.subs, id)
	}
	s.mu.Unlock()
	return s.db.Close()
}

// watch re-broadcasts when the database file changes on disk. SQLite
// touches the base file plus -wal and -journal siblings.
func (s *LocalStore) watch() {
	base := filepath.Base(s.path)
	for {
		select {
		case evt, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !strings.HasPrefix(filepath.Base(evt.Name), base) {
				continue
			}
			s.broadcastAll()
		case _, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Subscribe delivers the current snapshot immediately, then one snapshot
// per observed change until ctx is done or the subscription is closed.
func (s *LocalStore) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	snap, err := s.db.List(q.Owner)
	if err != nil {
		return nil, Transient("subscribe", err)
	}
	sub := &localSub{
		owner: q.Owner,
		snaps: make(chan Snapshot, 16),
		errs:  make(chan error, 1),
	}
	id := uuid.NewString()

	s.mu.Lock()
	s.subs[id] = sub
	sub.snaps <- Snapshot(snap)
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok && !sub.closed {
			sub.closed = true
			close(sub.snaps)
			close(sub.errs)
			delete(s.subs, id)
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

func (s *LocalStore) Create(ctx context.Context, q Query, p task.Payload) (string, error) {
	s.mu.Lock()
	now := s.now
	s.mu.Unlock()
	id := uuid.NewString()
	t := p.New(id, now().UTC())
	if err := s.db.Insert(q.Owner, t); err != nil {
		return "", classify("create", err)
	}
	s.broadcast(q.Owner)
	return id, nil
}

func (s *LocalStore) Update(ctx context.Context, q Query, id string, p task.Payload) error {
	if err := s.db.Update(q.Owner, id, p); err != nil {
		return classify("update", err)
	}
	s.broadcast(q.Owner)
	return nil
}

func (s *LocalStore) ToggleComplete(ctx context.Context, q Query, id string, completed bool) error {
	if err := s.db.SetCompleted(q.Owner, id, completed); err != nil {
		return classify("toggle", err)
	}
	s.broadcast(q.Owner)
	return nil
}

func (s *LocalStore) Delete(ctx context.Context, q Query, id string) error {
	if err := s.db.Delete(q.Owner, id); err != nil {
		return classify("delete", err)
	}
	s.broadcast(q.Owner)
	return nil
}

// classify maps database failures onto the store error model. A missing
// row is fatal for that mutation; anything else (locked file, disk) is
// worth retrying.
func classify(op string, err error) error {
	if errors.Is(err, taskdb.ErrNotFound) {
		return Fatal(op, ErrNotFound)
	}
	return Transient(op, err)
}

func (s *LocalStore) broadcast(owner string) {
	snap, err := s.db.List(owner)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.closed || sub.owner != owner {
			continue
		}
		select {
		case sub.snaps <- Snapshot(snap):
		default:
		}
	}
}

// broadcastAll refreshes every subscribed owner after an external write.
func (s *LocalStore) broadcastAll() {
	s.mu.Lock()
	owners := make(map[string]bool)
	for _, sub := range s.subs {
		if !sub.closed {
			owners[sub.owner] = true
		}
	}
	s.mu.Unlock()
	for owner := range owners {
		s.broadcast(owner)
	}
}
