package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/valter-silva-au/ptrack/pkg/models"
)

var (
	// ErrNotFound is returned when a project or task row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when inserting a row whose ID already exists.
	ErrConflict = errors.New("already exists")
)

// ProjectSummary is a project row with its task counts.
type ProjectSummary struct {
	ID        string
	Name      string
	CreatedAt time.Time
	TaskCount int
	DoneCount int
}

// SQLStore is the relational project/task store behind the remote CRUD
// server. It runs on SQLite or PostgreSQL with the same text-column schema.
type SQLStore struct {
	db     *sql.DB
	driver string
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'todo',
		created_at TEXT NOT NULL,
		active_start TEXT,
		elapsed_ms BIGINT NOT NULL DEFAULT 0,
		completed_at TEXT,
		due_at TEXT,
		tags TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id)`,
}

// OpenSQLStore opens a database with the given driver ("sqlite3" or
// "postgres") and creates the schema if needed.
func OpenSQLStore(driver, dsn string) (*SQLStore, error) {
	if driver == "sqlite3" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil {
			return nil, fmt.Errorf("opening %s store: creating directory: %w", driver, err)
		}
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", driver, err)
	}
	store, err := NewSQLStore(db, driver)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore wraps an open database and migrates the schema.
func NewSQLStore(db *sql.DB, driver string) (*SQLStore, error) {
	s := &SQLStore{db: db, driver: driver}
	if driver == "sqlite3" {
		// Foreign keys are a per-connection pragma in SQLite.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
			return nil, fmt.Errorf("enabling foreign keys: %w", err)
		}
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("migrating schema: %w", err)
		}
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rebind rewrites ? placeholders as $1, $2, ... for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ListProjects returns every project with task counts, newest first.
func (s *SQLStore) ListProjects(ctx context.Context) ([]ProjectSummary, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT p.id, p.name, p.created_at,
			COUNT(t.id),
			COALESCE(SUM(CASE WHEN t.status = 'done' THEN 1 ELSE 0 END), 0)
		FROM projects p
		LEFT JOIN tasks t ON t.project_id = p.id
		GROUP BY p.id, p.name, p.created_at
		ORDER BY p.created_at DESC`))
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	out := []ProjectSummary{}
	for rows.Next() {
		var ps ProjectSummary
		var created string
		if err := rows.Scan(&ps.ID, &ps.Name, &created, &ps.TaskCount, &ps.DoneCount); err != nil {
			return nil, fmt.Errorf("listing projects: scanning row: %w", err)
		}
		ps.CreatedAt = parseTime(created)
		out = append(out, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return out, nil
}

// CreateProject inserts a project row.
func (s *SQLStore) CreateProject(ctx context.Context, id, name string, createdAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("creating project: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	exists, err := s.projectExists(ctx, tx, id)
	if err != nil {
		return fmt.Errorf("creating project: %w", err)
	}
	if exists {
		return fmt.Errorf("creating project %q: %w", id, ErrConflict)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(
		`INSERT INTO projects (id, name, created_at) VALUES (?, ?, ?)`),
		id, name, FormatTime(createdAt),
	); err != nil {
		return fmt.Errorf("creating project: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("creating project: committing: %w", err)
	}
	return nil
}

// DeleteProject removes a project; its tasks are removed by the cascade.
func (s *SQLStore) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM projects WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	return affectedOne(res, "project", id)
}

// ProjectTasks returns a project's tasks, newest first.
func (s *SQLStore) ProjectTasks(ctx context.Context, projectID string) ([]models.Task, error) {
	exists, err := s.projectExists(ctx, s.db, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("listing tasks: project %q: %w", projectID, ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+taskColumns+`
		FROM tasks WHERE project_id = ?
		ORDER BY created_at DESC, id`), projectID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("listing tasks: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return tasks, nil
}

// AddTask inserts a task row under projectID.
func (s *SQLStore) AddTask(ctx context.Context, projectID string, t models.Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("adding task: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	exists, err := s.projectExists(ctx, tx, projectID)
	if err != nil {
		return fmt.Errorf("adding task: %w", err)
	}
	if !exists {
		return fmt.Errorf("adding task: project %q: %w", projectID, ErrNotFound)
	}
	if _, err := s.getTask(ctx, tx, t.ID); err == nil {
		return fmt.Errorf("adding task %q: %w", t.ID, ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("adding task: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.rebind(`
		INSERT INTO tasks (`+taskColumns+`, project_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		append(taskArgs(t), projectID)...,
	); err != nil {
		return fmt.Errorf("adding task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("adding task: committing: %w", err)
	}
	return nil
}

// UpdateTask loads a task, applies fn and writes the result back inside one
// transaction. When fn reports no change nothing is written.
func (s *SQLStore) UpdateTask(ctx context.Context, id string, fn func(*models.Task) bool) (models.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Task{}, fmt.Errorf("updating task: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	t, err := s.getTask(ctx, tx, id)
	if err != nil {
		return models.Task{}, fmt.Errorf("updating task: %w", err)
	}
	if !fn(&t) {
		return t, nil
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`
		UPDATE tasks SET title = ?, description = ?, status = ?, created_at = ?,
			active_start = ?, elapsed_ms = ?, completed_at = ?, due_at = ?, tags = ?
		WHERE id = ?`),
		append(taskArgs(t)[1:], t.ID)...,
	); err != nil {
		return models.Task{}, fmt.Errorf("updating task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Task{}, fmt.Errorf("updating task: committing: %w", err)
	}
	return t, nil
}

// DeleteTask removes a task row.
func (s *SQLStore) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM tasks WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return affectedOne(res, "task", id)
}

const taskColumns = `id, title, description, status, created_at, active_start, elapsed_ms, completed_at, due_at, tags`

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLStore) projectExists(ctx context.Context, q queryer, id string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM projects WHERE id = ?`), id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking project %q: %w", id, err)
	}
	return n > 0, nil
}

func (s *SQLStore) getTask(ctx context.Context, q queryer, id string) (models.Task, error) {
	row := q.QueryRowContext(ctx, s.rebind(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`), id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, fmt.Errorf("task %q: %w", id, ErrNotFound)
	}
	return t, err
}

func scanTask(r rowScanner) (models.Task, error) {
	var (
		t                      models.Task
		status, created, tags  string
		active, completed, due sql.NullString
		elapsedMs              int64
	)
	if err := r.Scan(&t.ID, &t.Title, &t.Description, &status, &created,
		&active, &elapsedMs, &completed, &due, &tags); err != nil {
		return models.Task{}, err
	}
	t.Status = models.TaskStatus(status)
	t.CreatedAt = parseTime(created)
	t.ActiveStart = parseNullTime(active)
	t.Elapsed = time.Duration(elapsedMs) * time.Millisecond
	t.CompletedAt = parseNullTime(completed)
	t.DueAt = parseNullTime(due)
	t.Tags = models.SplitTags(tags)
	return t, nil
}

func taskArgs(t models.Task) []any {
	return []any{
		t.ID,
		t.Title,
		t.Description,
		string(t.Status),
		FormatTime(t.CreatedAt),
		nullTime(t.ActiveStart),
		t.Elapsed.Round(time.Millisecond).Milliseconds(),
		nullTime(t.CompletedAt),
		nullTime(t.DueAt),
		JoinTags(t.Tags),
	}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: FormatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	return parseTimePtr(&ns.String)
}

func affectedOne(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting %s: %w", kind, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}
	return nil
}
