package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanschultz/todo/internal/app"
	"github.com/evanschultz/todo/internal/domain"
	"github.com/google/uuid"
)

// DefaultFileName is the todo file created in the working directory.
const DefaultFileName = "todos.json"

// corruptSuffix names the copy kept of undecodable content before it is replaced.
const corruptSuffix = ".corrupt"

// Repository stores the task list as a JSON array in a single file.
type Repository struct {
	path  string
	idGen app.IDGenerator

	// corrupt is set when Load could not decode the file; the original bytes
	// are copied aside before the first save replaces them.
	corrupt bool
}

// record is the on-disk shape of one task. Files written before ids existed
// carry only text and completed.
type record struct {
	ID          string     `json:"id,omitempty"`
	Text        string     `json:"text"`
	Completed   bool       `json:"completed"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Open returns a repository bound to path. The file is not touched until Load or Save.
func Open(path string, idGen app.IDGenerator) (*Repository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("todo file path is required")
	}
	if idGen == nil {
		idGen = uuid.NewString
	}
	return &Repository{path: filepath.Clean(path), idGen: idGen}, nil
}

// Path returns the backing file path.
func (r *Repository) Path() string {
	return r.path
}

// CorruptPath returns where the first undecodable copy is preserved. Later
// incidents get a timestamped sibling so earlier copies are never replaced.
func (r *Repository) CorruptPath() string {
	return r.path + corruptSuffix
}

// nextCorruptPath returns the first preservation path not yet taken.
func (r *Repository) nextCorruptPath(now time.Time) (string, error) {
	candidates := []string{r.CorruptPath()}
	stamped := r.CorruptPath() + "." + now.UTC().Format("20060102T150405Z")
	candidates = append(candidates, stamped)
	for n := 2; n <= 100; n++ {
		candidates = append(candidates, fmt.Sprintf("%s-%d", stamped, n))
	}
	for _, candidate := range candidates {
		_, err := os.Lstat(candidate)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return candidate, nil
		case err != nil:
			return "", err
		}
	}
	return "", fmt.Errorf("no free corrupt copy name next to %q", r.path)
}

// Load reads and decodes the todo file.
func (r *Repository) Load(ctx context.Context) ([]domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read todo file %q: %w", r.path, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("read todo file %q: %w", r.path, err)
	}
	r.corrupt = false
	if len(bytes.TrimSpace(content)) == 0 {
		return []domain.Task{}, nil
	}

	var records []record
	if err := json.Unmarshal(content, &records); err != nil {
		r.corrupt = true
		return nil, fmt.Errorf("%w: decode %q: %w", app.ErrCorruptStorage, r.path, err)
	}

	tasks := make([]domain.Task, 0, len(records))
	for idx, rec := range records {
		task, err := r.toDomain(rec)
		if err != nil {
			r.corrupt = true
			return nil, fmt.Errorf("%w: %q record %d: %w", app.ErrCorruptStorage, r.path, idx, err)
		}
		tasks = append(tasks, task)
	}
	if err := domain.ValidateList(tasks); err != nil {
		r.corrupt = true
		return nil, fmt.Errorf("%w: %q: %w", app.ErrCorruptStorage, r.path, err)
	}
	return tasks, nil
}

// Save atomically replaces the todo file with the encoded list.
func (r *Repository) Save(ctx context.Context, tasks []domain.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	records := make([]record, 0, len(tasks))
	for _, task := range tasks {
		records = append(records, fromDomain(task))
	}
	encoded, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode todo list: %w", err)
	}
	encoded = append(encoded, '\n')

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create todo dir: %w", app.ErrStorageIO, err)
	}
	if r.corrupt {
		if err := r.preserveCorrupt(); err != nil {
			return err
		}
	}
	if err := writeFileAtomic(r.path, encoded, 0o644); err != nil {
		return fmt.Errorf("%w: %w", app.ErrStorageIO, err)
	}
	return nil
}

// preserveCorrupt copies the undecodable file aside so replacing it loses nothing.
func (r *Repository) preserveCorrupt() error {
	content, err := os.ReadFile(r.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		r.corrupt = false
		return nil
	case err != nil:
		return fmt.Errorf("%w: read corrupt todo file: %w", app.ErrStorageIO, err)
	}
	target, err := r.nextCorruptPath(time.Now())
	if err != nil {
		return fmt.Errorf("%w: pick corrupt copy path: %w", app.ErrStorageIO, err)
	}
	if err := writeFileAtomic(target, content, 0o644); err != nil {
		return fmt.Errorf("%w: preserve corrupt todo file: %w", app.ErrStorageIO, err)
	}
	r.corrupt = false
	return nil
}

// writeFileAtomic writes to a sibling temp file, syncs it, and renames it over path.
func writeFileAtomic(path string, content []byte, perm os.FileMode) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// toDomain validates one record, assigning an id to legacy entries.
func (r *Repository) toDomain(rec record) (domain.Task, error) {
	in := domain.TaskInput{
		ID:          rec.ID,
		Text:        rec.Text,
		Done:        rec.Completed,
		CompletedAt: rec.CompletedAt,
	}
	if strings.TrimSpace(in.ID) == "" {
		in.ID = r.idGen()
	}
	if rec.CreatedAt != nil {
		in.CreatedAt = *rec.CreatedAt
	}
	return domain.RestoreTask(in)
}

func fromDomain(task domain.Task) record {
	rec := record{
		ID:          task.ID,
		Text:        task.Text,
		Completed:   task.Done,
		CompletedAt: task.CompletedAt,
	}
	if !task.CreatedAt.IsZero() {
		created := task.CreatedAt
		rec.CreatedAt = &created
	}
	return rec
}
