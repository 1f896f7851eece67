// Package taskdb is the SQLite persistence layer shared by the sync
// server and the local file store.
package taskdb

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mistakeknot/milgrim/internal/task"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	owner       TEXT NOT NULL,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	deadline    TEXT NOT NULL,
	priority    TEXT NOT NULL,
	completed   INTEGER NOT NULL DEFAULT 0,
	category    TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner);
`

// ErrNotFound reports a row that does not exist.
var ErrNotFound = errors.New("taskdb: task not found")

// DB wraps a SQLite task database.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the task database at path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("taskdb: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("taskdb: ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("taskdb: schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// List returns the owner's tasks ordered by creation time then id.
func (d *DB) List(owner string) ([]task.Task, error) {
	rows, err := d.db.Query(`
		SELECT id, title, description, deadline, priority, completed, category, created_at
		FROM tasks WHERE owner = ?
		ORDER BY created_at, id
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("taskdb: list: %w", err)
	}
	defer rows.Close()

	tasks := make([]task.Task, 0)
	for rows.Next() {
		var t task.Task
		var deadline, createdAt string
		var completed int
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &deadline, &t.Priority, &completed, &t.Category, &createdAt); err != nil {
			return nil, fmt.Errorf("taskdb: scan: %w", err)
		}
		t.Completed = completed != 0
		t.Deadline, _ = time.Parse(time.RFC3339Nano, deadline)
		t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Insert stores a new task row.
func (d *DB) Insert(owner string, t task.Task) error {
	completed := 0
	if t.Completed {
		completed = 1
	}
	_, err := d.db.Exec(`
		INSERT INTO tasks (id, owner, title, description, deadline, priority, completed, category, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, owner, t.Title, t.Description,
		t.Deadline.UTC().Format(time.RFC3339Nano), string(t.Priority),
		completed, t.Category, t.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("taskdb: insert: %w", err)
	}
	return nil
}

// Update rewrites the payload fields of an existing row.
func (d *DB) Update(owner, id string, p task.Payload) error {
	res, err := d.db.Exec(`
		UPDATE tasks SET title = ?, description = ?, deadline = ?, priority = ?, category = ?
		WHERE owner = ? AND id = ?
	`, p.Title, p.Description, p.Deadline.UTC().Format(time.RFC3339Nano),
		string(p.Priority), p.Category, owner, id)
	if err != nil {
		return fmt.Errorf("taskdb: update: %w", err)
	}
	return affected(res)
}

// SetCompleted flips the completion flag of an existing row.
func (d *DB) SetCompleted(owner, id string, completed bool) error {
	v := 0
	if completed {
		v = 1
	}
	res, err := d.db.Exec(`UPDATE tasks SET completed = ? WHERE owner = ? AND id = ?`, v, owner, id)
	if err != nil {
		return fmt.Errorf("taskdb: set completed: %w", err)
	}
	return affected(res)
}

// Delete removes a row.
func (d *DB) Delete(owner, id string) error {
	res, err := d.db.Exec(`DELETE FROM tasks WHERE owner = ? AND id = ?`, owner, id)
	if err != nil {
		return fmt.Errorf("taskdb: delete: %w", err)
	}
	return affected(res)
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
