package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mistakeknot/milgrim/internal/store"
)

func newLocalStore(t *testing.T) *store.LocalStore {
	t.Helper()
	s, err := store.NewLocalStore(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLocalStoreMutationsBroadcast(t *testing.T) {
	s := newLocalStore(t)
	q := store.Query{Owner: "u1"}
	ctx := context.Background()

	sub, err := s.Subscribe(ctx, q)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	snap := recvSnapshot(t, sub)
	if len(snap) != 0 {
		t.Fatalf("initial snapshot = %+v", snap)
	}

	id, err := s.Create(ctx, q, payload("local task"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	snap = recvSnapshot(t, sub)
	if len(snap) != 1 || snap[0].ID != id {
		t.Fatalf("snapshot after create = %+v", snap)
	}

	if err := s.ToggleComplete(ctx, q, id, true); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	snap = recvSnapshot(t, sub)
	if !snap[0].Completed {
		t.Fatalf("snapshot after toggle = %+v", snap)
	}

	if err := s.Delete(ctx, q, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	snap = recvSnapshot(t, sub)
	if len(snap) != 0 {
		t.Fatalf("snapshot after delete = %+v", snap)
	}
}

func TestLocalStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.db")
	s, err := store.NewLocalStore(path)
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	q := store.Query{Owner: "u1"}
	id, err := s.Create(context.Background(), q, payload("persisted"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	s.Close()

	s2, err := store.NewLocalStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	sub, err := s2.Subscribe(context.Background(), q)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()
	snap := recvSnapshot(t, sub)
	if len(snap) != 1 || snap[0].ID != id {
		t.Fatalf("reopened snapshot = %+v", snap)
	}
}

func TestLocalStoreMissingTaskIsNotFound(t *testing.T) {
	s := newLocalStore(t)
	q := store.Query{Owner: "u1"}
	err := s.Update(context.Background(), q, "nope", payload("x"))
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("update missing: %v", err)
	}
	if store.IsTransient(err) {
		t.Fatalf("not-found marked transient: %v", err)
	}
}

func TestLocalStoreScopesByOwner(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()
	if _, err := s.Create(ctx, store.Query{Owner: "u1"}, payload("mine")); err != nil {
		t.Fatalf("create: %v", err)
	}
	sub, err := s.Subscribe(ctx, store.Query{Owner: "u2"})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()
	if snap := recvSnapshot(t, sub); len(snap) != 0 {
		t.Fatalf("owner scoping leaked: %+v", snap)
	}
}
