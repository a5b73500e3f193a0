package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/evanschultz/todo/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "todo.snapshot.v1"

// Snapshot represents snapshot data used by this package.
type Snapshot struct {
	Version    string         `json:"version"`
	ExportedAt time.Time      `json:"exported_at"`
	Tasks      []SnapshotTask `json:"tasks"`
}

// SnapshotTask represents snapshot task data used by this package.
type SnapshotTask struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ExportSnapshot captures the current list in display order.
func (s *Service) ExportSnapshot() Snapshot {
	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.clock().UTC(),
		Tasks:      make([]SnapshotTask, 0, len(s.tasks)),
	}
	for _, task := range s.tasks {
		snap.Tasks = append(snap.Tasks, SnapshotTaskFromDomain(task))
	}
	return snap
}

// ImportSnapshot upserts snapshot tasks by id and flushes the merged list.
// Tasks already present keep their position; new ones are appended in snapshot order.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	merged := s.Tasks()
	for _, st := range snap.Tasks {
		task, err := st.toDomain()
		if err != nil {
			return err
		}
		if idx := indexByID(merged, task.ID); idx >= 0 {
			merged[idx] = task
			continue
		}
		merged = append(merged, task)
	}
	if err := domain.ValidateList(merged); err != nil {
		return fmt.Errorf("merge snapshot: %w", err)
	}
	s.tasks = merged
	return s.Flush(ctx)
}

// Validate validates the requested operation.
func (s *Snapshot) Validate() error {
	if s.Version != "" && s.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version: %q", s.Version)
	}
	seen := map[string]struct{}{}
	for i, task := range s.Tasks {
		id := strings.TrimSpace(task.ID)
		if id == "" {
			return fmt.Errorf("tasks[%d].id is required", i)
		}
		if strings.TrimSpace(task.Text) == "" {
			return fmt.Errorf("tasks[%d].text is required", i)
		}
		if _, exists := seen[id]; exists {
			return fmt.Errorf("duplicate task id: %q", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// SnapshotTaskFromDomain converts one task to its snapshot form.
func SnapshotTaskFromDomain(t domain.Task) SnapshotTask {
	return SnapshotTask{
		ID:          t.ID,
		Text:        t.Text,
		Completed:   t.Done,
		CreatedAt:   t.CreatedAt,
		CompletedAt: copyTimePtr(t.CompletedAt),
	}
}

func (t SnapshotTask) toDomain() (domain.Task, error) {
	task, err := domain.RestoreTask(domain.TaskInput{
		ID:          t.ID,
		Text:        t.Text,
		Done:        t.Completed,
		CreatedAt:   t.CreatedAt,
		CompletedAt: t.CompletedAt,
	})
	if err != nil {
		return domain.Task{}, fmt.Errorf("snapshot task %q: %w", t.ID, err)
	}
	return task, nil
}

func indexByID(tasks []domain.Task, id string) int {
	for idx, task := range tasks {
		if task.ID == id {
			return idx
		}
	}
	return -1
}

func copyTimePtr(in *time.Time) *time.Time {
	if in == nil {
		return nil
	}
	ts := *in
	return &ts
}
