package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanschultz/todo/internal/app"
	"github.com/evanschultz/todo/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// savedAtKey marks that the list has been written at least once.
const savedAtKey = "saved_at"

// Repository stores the task list in a sqlite database, one row per task.
type Repository struct {
	db *sql.DB
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// Each pooled connection would otherwise see its own empty database.
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS todos (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			text TEXT NOT NULL,
			completed INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT '',
			completed_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS todo_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_todos_position ON todos(position);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// Load returns every row ordered by position.
func (r *Repository) Load(ctx context.Context) ([]domain.Task, error) {
	var savedAt string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM todo_meta WHERE key = ?`, savedAtKey).Scan(&savedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("sqlite todo list never saved: %w", fs.ErrNotExist)
	case err != nil:
		return nil, fmt.Errorf("read sqlite meta: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, text, completed, created_at, completed_at
		FROM todos
		ORDER BY position ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sqlite todos: %w", err)
	}
	defer rows.Close()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sqlite todos: %w", err)
	}
	return tasks, nil
}

// Save replaces all rows inside one transaction.
func (r *Repository) Save(ctx context.Context, tasks []domain.Task) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin sqlite tx: %w", app.ErrStorageIO, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM todos`); err != nil {
		return fmt.Errorf("%w: clear sqlite todos: %w", app.ErrStorageIO, err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO todos(id, position, text, completed, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: prepare sqlite insert: %w", app.ErrStorageIO, err)
	}
	defer stmt.Close()
	for idx, task := range tasks {
		if _, err = stmt.ExecContext(ctx, task.ID, idx, task.Text, boolToInt(task.Done), ts(task.CreatedAt), nullableTS(task.CompletedAt)); err != nil {
			return fmt.Errorf("%w: insert sqlite todo %q: %w", app.ErrStorageIO, task.ID, err)
		}
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO todo_meta(key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, savedAtKey, ts(time.Now())); err != nil {
		return fmt.Errorf("%w: update sqlite meta: %w", app.ErrStorageIO, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit sqlite tx: %w", app.ErrStorageIO, err)
	}
	return nil
}

// scanner represents scanner data used by this package.
type scanner interface {
	Scan(dest ...any) error
}

// scanTask decodes one row, reporting undecodable rows as corrupt storage.
func scanTask(s scanner) (domain.Task, error) {
	var (
		id          string
		text        string
		completed   int
		createdRaw  string
		completedAt sql.NullString
	)
	if err := s.Scan(&id, &text, &completed, &createdRaw, &completedAt); err != nil {
		return domain.Task{}, fmt.Errorf("%w: scan sqlite todo: %w", app.ErrCorruptStorage, err)
	}
	task, err := domain.RestoreTask(domain.TaskInput{
		ID:          id,
		Text:        text,
		Done:        completed != 0,
		CreatedAt:   parseTS(createdRaw),
		CompletedAt: parseNullTS(completedAt),
	})
	if err != nil {
		return domain.Task{}, fmt.Errorf("%w: sqlite todo %q: %w", app.ErrCorruptStorage, id, err)
	}
	return task, nil
}

// ts formats timestamps for storage.
func ts(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// nullableTS handles nullable ts.
func nullableTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// parseNullTS parses input into a normalized form.
func parseNullTS(v sql.NullString) *time.Time {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	ts := parseTS(v.String)
	return &ts
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
