package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mistakeknot/milgrim/internal/task"
)

// HTTPOption configures an HTTPStore.
type HTTPOption func(*HTTPStore)

// WithTimeout sets the per-request timeout for REST calls. The snapshot
// stream is not subject to it.
func WithTimeout(d time.Duration) HTTPOption {
	return func(s *HTTPStore) { s.timeout = d }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPStore) { s.client = c }
}

// HTTPStore talks to a milgrim sync server over REST, with snapshots
// delivered via its SSE event stream.
type HTTPStore struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

// NewHTTPStore creates a store client for the server at baseURL. An
// empty baseURL falls back to the MILGRIM_URL environment variable.
func NewHTTPStore(baseURL string, opts ...HTTPOption) (*HTTPStore, error) {
	if baseURL == "" {
		baseURL = strings.TrimSpace(os.Getenv("MILGRIM_URL"))
	}
	if baseURL == "" {
		return nil, fmt.Errorf("store: no server URL configured (set MILGRIM_URL)")
	}
	s := &HTTPStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// apiError mirrors the server's error payload.
type apiError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *apiError       `json:"error"`
}

func (s *HTTPStore) url(path string, q Query) string {
	u := s.baseURL + path
	if q.Owner != "" {
		u += "?owner=" + q.Owner
	}
	return u
}

// do runs one REST call and decodes the envelope, classifying failures
// as transient or fatal. Network errors and retryable server errors are
// transient; everything else is fatal for that mutation.
func (s *HTTPStore) do(ctx context.Context, op, method, url string, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return Fatal(op, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return Fatal(op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Transient(op, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 500 {
			return Transient(op, fmt.Errorf("status %d", resp.StatusCode))
		}
		return Fatal(op, fmt.Errorf("status %d: %w", resp.StatusCode, err))
	}
	if !env.OK {
		msg := "unknown error"
		retryable := resp.StatusCode >= 500
		if env.Error != nil {
			msg = env.Error.Message
			retryable = env.Error.Retryable
			if env.Error.Code == "not_found" {
				return Fatal(op, fmt.Errorf("%s: %w", msg, ErrNotFound))
			}
		}
		if retryable {
			return Transient(op, fmt.Errorf("%s", msg))
		}
		return Fatal(op, fmt.Errorf("%s", msg))
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return Fatal(op, fmt.Errorf("decode response: %w", err))
		}
	}
	return nil
}

// Create posts a new task and returns the server-assigned id.
func (s *HTTPStore) Create(ctx context.Context, q Query, p task.Payload) (string, error) {
	var created task.Task
	if err := s.do(ctx, "create", http.MethodPost, s.url("/api/tasks", q), p, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// Update rewrites an existing task's payload.
func (s *HTTPStore) Update(ctx context.Context, q Query, id string, p task.Payload) error {
	return s.do(ctx, "update", http.MethodPut, s.url("/api/tasks/"+id, q), p, nil)
}

// ToggleComplete sets the completion flag.
func (s *HTTPStore) ToggleComplete(ctx context.Context, q Query, id string, completed bool) error {
	body := map[string]bool{"completed": completed}
	return s.do(ctx, "toggle", http.MethodPatch, s.url("/api/tasks/"+id+"/complete", q), body, nil)
}

// Delete removes a task.
func (s *HTTPStore) Delete(ctx context.Context, q Query, id string) error {
	return s.do(ctx, "delete", http.MethodDelete, s.url("/api/tasks/"+id, q), nil, nil)
}

// Subscribe opens the server's SSE stream and delivers every snapshot
// until the subscription is closed or the stream fails.
func (s *HTTPStore) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url("/api/events", q), nil)
	if err != nil {
		cancel()
		return nil, Fatal("subscribe", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		cancel()
		return nil, Transient("subscribe", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		if resp.StatusCode >= 500 {
			return nil, Transient("subscribe", fmt.Errorf("status %d", resp.StatusCode))
		}
		return nil, Fatal("subscribe", fmt.Errorf("status %d", resp.StatusCode))
	}

	snaps := make(chan Snapshot, 8)
	errs := make(chan error, 1)
	go func() {
		defer resp.Body.Close()
		defer close(snaps)
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var snap Snapshot
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &snap); err != nil {
				errs <- Transient("stream", fmt.Errorf("malformed snapshot: %w", err))
				return
			}
			select {
			case snaps <- snap:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			errs <- Transient("stream", err)
		} else if ctx.Err() == nil {
			errs <- Transient("stream", io.EOF)
		}
	}()

	return NewSubscription(snaps, errs, cancel), nil
}
