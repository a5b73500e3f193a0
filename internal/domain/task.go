package domain

import (
	"fmt"
	"strings"
	"time"
)

type Task struct {
	ID          string
	Text        string
	Done        bool
	CreatedAt   time.Time
	CompletedAt *time.Time
}

type TaskInput struct {
	ID          string
	Text        string
	Done        bool
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// NewTask builds a pending task stamped with now.
func NewTask(id, text string, now time.Time) (Task, error) {
	return RestoreTask(TaskInput{
		ID:        id,
		Text:      text,
		CreatedAt: now,
	})
}

// RestoreTask rebuilds a task from persisted values, applying the same
// validation as NewTask.
func RestoreTask(in TaskInput) (Task, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Text = strings.TrimSpace(in.Text)
	if in.ID == "" {
		return Task{}, ErrInvalidID
	}
	if in.Text == "" {
		return Task{}, ErrInvalidText
	}

	task := Task{
		ID:        in.ID,
		Text:      in.Text,
		Done:      in.Done,
		CreatedAt: normalizeTime(in.CreatedAt),
	}
	if in.Done {
		completed := task.CreatedAt
		if in.CompletedAt != nil {
			completed = normalizeTime(*in.CompletedAt)
		}
		if !completed.IsZero() {
			task.CompletedAt = &completed
		}
	}
	return task, nil
}

func (t *Task) Toggle(now time.Time) {
	t.Done = !t.Done
	if !t.Done {
		t.CompletedAt = nil
		return
	}
	ts := normalizeTime(now)
	t.CompletedAt = &ts
}

// ValidateList enforces the list invariants: every task valid, no repeated ids.
func ValidateList(tasks []Task) error {
	seen := make(map[string]struct{}, len(tasks))
	for idx, task := range tasks {
		if strings.TrimSpace(task.ID) == "" {
			return fmt.Errorf("task[%d]: %w", idx, ErrInvalidID)
		}
		if strings.TrimSpace(task.Text) == "" {
			return fmt.Errorf("task[%d]: %w", idx, ErrInvalidText)
		}
		if _, ok := seen[task.ID]; ok {
			return fmt.Errorf("task[%d] %q: %w", idx, task.ID, ErrDuplicateID)
		}
		seen[task.ID] = struct{}{}
	}
	return nil
}

func normalizeTime(ts time.Time) time.Time {
	if ts.IsZero() {
		return time.Time{}
	}
	return ts.UTC().Truncate(time.Second)
}
