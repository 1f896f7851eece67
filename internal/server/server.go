// Package server implements the milgrim sync server: the remote source
// of truth for task collections. Mutations go through REST endpoints;
// every change re-broadcasts a full snapshot to the owner's SSE
// subscribers.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mistakeknot/milgrim/internal/task"
	"github.com/mistakeknot/milgrim/internal/taskdb"
)

// Server is the HTTP sync server.
type Server struct {
	db  *taskdb.DB
	log *slog.Logger
	now func() time.Time
	srv *http.Server

	mu   sync.Mutex
	subs map[string]map[string]chan []task.Task // owner -> sub id -> channel
}

// New creates a server over the given database.
func New(db *taskdb.DB, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		db:   db,
		log:  log,
		now:  time.Now,
		subs: make(map[string]map[string]chan []task.Task),
	}
}

// SetClock overrides the creation timestamp source.
func (s *Server) SetClock(now func() time.Time) { s.now = now }

// Handler returns the route table, usable directly with httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/tasks", s.handleTasks)
	mux.HandleFunc("/api/tasks/", s.handleTaskByID)
	mux.HandleFunc("/api/events", s.handleEvents)
	return mux
}

// ListenAndServe starts the server on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.srv = &http.Server{Addr: addr, Handler: s.Handler()}
	s.log.Info("sync server listening", "addr", addr)
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, map[string]string{"status": "ok"})
}

func owner(r *http.Request) string {
	o := strings.TrimSpace(r.URL.Query().Get("owner"))
	if o == "" {
		o = "default"
	}
	return o
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		tasks, err := s.db.List(owner(r))
		if err != nil {
			s.internal(w, "list", err)
			return
		}
		writeOK(w, http.StatusOK, tasks)
	case http.MethodPost:
		var p task.Payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "malformed payload", false)
			return
		}
		if err := p.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error(), false)
			return
		}
		t := p.New(uuid.NewString(), s.now().UTC())
		o := owner(r)
		if err := s.db.Insert(o, t); err != nil {
			s.internal(w, "insert", err)
			return
		}
		s.broadcast(o)
		writeOK(w, http.StatusCreated, t)
	default:
		writeError(w, http.StatusMethodNotAllowed, codeInvalidRequest, "method not allowed", false)
	}
}

func (s *Server) handleTaskByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "missing task id", false)
		return
	}
	o := owner(r)

	var err error
	switch {
	case r.Method == http.MethodPut && action == "":
		var p task.Payload
		if decodeErr := json.NewDecoder(r.Body).Decode(&p); decodeErr != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "malformed payload", false)
			return
		}
		if validateErr := p.Validate(); validateErr != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, validateErr.Error(), false)
			return
		}
		err = s.db.Update(o, id, p)
	case r.Method == http.MethodPatch && action == "complete":
		var body struct {
			Completed bool `json:"completed"`
		}
		if decodeErr := json.NewDecoder(r.Body).Decode(&body); decodeErr != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "malformed payload", false)
			return
		}
		err = s.db.SetCompleted(o, id, body.Completed)
	case r.Method == http.MethodDelete && action == "":
		err = s.db.Delete(o, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, codeInvalidRequest, "method not allowed", false)
		return
	}

	if errors.Is(err, taskdb.ErrNotFound) {
		writeError(w, http.StatusNotFound, codeNotFound, fmt.Sprintf("task %s not found", id), false)
		return
	}
	if err != nil {
		s.internal(w, r.Method, err)
		return
	}
	s.broadcast(o)
	writeOK(w, http.StatusOK, map[string]string{"id": id})
}

// handleEvents streams snapshots over SSE: one on connect, then one per
// change to the owner's collection.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, codeInternal, "streaming unsupported", false)
		return
	}
	o := owner(r)
	ch := make(chan []task.Task, 8)
	id := uuid.NewString()

	s.mu.Lock()
	if s.subs[o] == nil {
		s.subs[o] = make(map[string]chan []task.Task)
	}
	s.subs[o][id] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.subs[o], id)
		s.mu.Unlock()
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	tasks, err := s.db.List(o)
	if err != nil {
		s.log.Error("snapshot query failed", "owner", o, "err", err)
		return
	}
	if err := writeSnapshot(w, flusher, tasks); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case snap := <-ch:
			if err := writeSnapshot(w, flusher, snap); err != nil {
				return
			}
		}
	}
}

func writeSnapshot(w http.ResponseWriter, flusher http.Flusher, tasks []task.Task) error {
	data, err := json.Marshal(tasks)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

// broadcast queues the owner's current snapshot to every subscriber.
// Slow subscribers skip intermediate snapshots; each delivery is full
// state, so only the latest matters.
func (s *Server) broadcast(o string) {
	tasks, err := s.db.List(o)
	if err != nil {
		s.log.Error("broadcast query failed", "owner", o, "err", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs[o] {
		select {
		case ch <- tasks:
		default:
		}
	}
}

func (s *Server) internal(w http.ResponseWriter, op string, err error) {
	s.log.Error("request failed", "op", op, "err", err)
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error", true)
}
