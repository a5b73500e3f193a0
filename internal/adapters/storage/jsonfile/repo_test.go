package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/evanschultz/todo/internal/app"
	"github.com/evanschultz/todo/internal/domain"
)

func openTemp(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), DefaultFileName), nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return repo
}

func sampleTasks(t *testing.T) []domain.Task {
	t.Helper()
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	a, err := domain.NewTask("a", "Buy milk", now)
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	b, err := domain.NewTask("b", "Ünïcode ✓ task", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	b.Toggle(now.Add(time.Hour))
	c, err := domain.NewTask("c", "Third", now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	return []domain.Task{a, b, c}
}

func assertSameTasks(t *testing.T, got, want []domain.Task) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("task count mismatch got=%d want=%d", len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.ID != w.ID || g.Text != w.Text || g.Done != w.Done || !g.CreatedAt.Equal(w.CreatedAt) {
			t.Fatalf("task[%d] mismatch got=%#v want=%#v", i, g, w)
		}
		if (g.CompletedAt == nil) != (w.CompletedAt == nil) {
			t.Fatalf("task[%d] completed_at presence mismatch got=%v want=%v", i, g.CompletedAt, w.CompletedAt)
		}
		if g.CompletedAt != nil && !g.CompletedAt.Equal(*w.CompletedAt) {
			t.Fatalf("task[%d] completed_at mismatch got=%v want=%v", i, g.CompletedAt, w.CompletedAt)
		}
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := openTemp(t)
	want := sampleTasks(t)
	if err := repo.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	assertSameTasks(t, got, want)

	if err := repo.Save(ctx, nil); err != nil {
		t.Fatalf("Save(empty) error = %v", err)
	}
	got, err = repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load(empty) error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty list, got %#v", got)
	}
}

func TestRepositoryLoadMissingFile(t *testing.T) {
	repo := openTemp(t)
	_, err := repo.Load(context.Background())
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestRepositoryLoadEmptyFile(t *testing.T) {
	repo := openTemp(t)
	if err := os.WriteFile(repo.Path(), []byte("  \n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	tasks, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected no tasks, got %#v", tasks)
	}
}

func TestRepositoryLoadCorruptContent(t *testing.T) {
	cases := map[string]string{
		"truncated":    `[{"id":"a","text":"x"`,
		"wrong shape":  `{"tasks":[]}`,
		"empty text":   `[{"id":"a","text":"  ","completed":false}]`,
		"duplicate id": `[{"id":"a","text":"x"},{"id":"a","text":"y"}]`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			repo := openTemp(t)
			if err := os.WriteFile(repo.Path(), []byte(content), 0o644); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			_, err := repo.Load(context.Background())
			if !errors.Is(err, app.ErrCorruptStorage) {
				t.Fatalf("expected app.ErrCorruptStorage, got %v", err)
			}
		})
	}
}

func TestRepositoryPreservesCorruptFileOnFirstSave(t *testing.T) {
	ctx := context.Background()
	repo := openTemp(t)
	corrupt := []byte("not json at all")
	if err := os.WriteFile(repo.Path(), corrupt, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := repo.Load(ctx); !errors.Is(err, app.ErrCorruptStorage) {
		t.Fatalf("expected corrupt load, got %v", err)
	}
	content, err := os.ReadFile(repo.Path())
	if err != nil || string(content) != string(corrupt) {
		t.Fatalf("expected corrupt file untouched after load, got %q err=%v", content, err)
	}

	if err := repo.Save(ctx, sampleTasks(t)[:1]); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	preserved, err := os.ReadFile(repo.CorruptPath())
	if err != nil {
		t.Fatalf("ReadFile(corrupt copy) error = %v", err)
	}
	if string(preserved) != string(corrupt) {
		t.Fatalf("unexpected preserved content %q", preserved)
	}
	tasks, err := repo.Load(ctx)
	if err != nil || len(tasks) != 1 {
		t.Fatalf("expected new content readable, got %#v err=%v", tasks, err)
	}
}

func TestRepositoryKeepsEveryCorruptCopy(t *testing.T) {
	ctx := context.Background()
	repo := openTemp(t)
	incidents := []string{"first garbage", "second garbage", "third garbage"}
	for _, garbage := range incidents {
		if err := os.WriteFile(repo.Path(), []byte(garbage), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		if _, err := repo.Load(ctx); !errors.Is(err, app.ErrCorruptStorage) {
			t.Fatalf("expected corrupt load, got %v", err)
		}
		if err := repo.Save(ctx, sampleTasks(t)[:1]); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	first, err := os.ReadFile(repo.CorruptPath())
	if err != nil {
		t.Fatalf("ReadFile(corrupt copy) error = %v", err)
	}
	if string(first) != incidents[0] {
		t.Fatalf("expected first incident kept at %s, got %q", repo.CorruptPath(), first)
	}

	copies, err := filepath.Glob(repo.CorruptPath() + "*")
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}
	found := map[string]bool{}
	for _, path := range copies {
		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile(%q) error = %v", path, err)
		}
		found[string(content)] = true
	}
	for _, garbage := range incidents {
		if !found[garbage] {
			t.Fatalf("expected %q preserved among %v", garbage, copies)
		}
	}
}

func TestRepositoryLoadLegacyRecordsAssignsIDs(t *testing.T) {
	n := 0
	repo, err := Open(filepath.Join(t.TempDir(), DefaultFileName), func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	legacy := `[
  {"text": "Press 'a' to add a todo", "completed": false},
  {"text": "Old done item", "completed": true}
]`
	if err := os.WriteFile(repo.Path(), []byte(legacy), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	tasks, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != "gen-1" || tasks[1].ID != "gen-2" {
		t.Fatalf("unexpected legacy ids %#v", tasks)
	}
	if !tasks[1].Done || tasks[0].Done {
		t.Fatalf("unexpected completion flags %#v", tasks)
	}
}

func TestRepositorySaveWritesNoTempLeftovers(t *testing.T) {
	ctx := context.Background()
	repo := openTemp(t)
	for i := 0; i < 3; i++ {
		if err := repo.Save(ctx, sampleTasks(t)); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
	entries, err := os.ReadDir(filepath.Dir(repo.Path()))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Fatalf("unexpected temp file left behind: %s", entry.Name())
		}
	}
}

func TestRepositorySaveFailureIsStorageIO(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	repo, err := Open(filepath.Join(blocker, DefaultFileName), nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := repo.Save(context.Background(), sampleTasks(t)); !errors.Is(err, app.ErrStorageIO) {
		t.Fatalf("expected app.ErrStorageIO, got %v", err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  ", nil); err == nil {
		t.Fatal("expected error for blank path")
	}
}
