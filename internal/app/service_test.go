package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"testing"
	"time"

	"github.com/evanschultz/todo/internal/domain"
)

type fakeRepo struct {
	stored  []domain.Task
	loadErr error
	saveErr error
	saves   int
}

func (f *fakeRepo) Load(context.Context) ([]domain.Task, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return slices.Clone(f.stored), nil
}

func (f *fakeRepo) Save(_ context.Context, tasks []domain.Task) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.stored = slices.Clone(tasks)
	return nil
}

func sequentialIDs() IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("t%d", n)
	}
}

func fixedClock() Clock {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return now }
}

func newTestService(repo *fakeRepo) *Service {
	return NewService(repo, sequentialIDs(), fixedClock(), ServiceConfig{})
}

func TestServiceLoadMissingStoreIsEmpty(t *testing.T) {
	repo := &fakeRepo{loadErr: fmt.Errorf("open todos.json: %w", fs.ErrNotExist)}
	svc := newTestService(repo)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if svc.Len() != 0 {
		t.Fatalf("expected empty list, got %d", svc.Len())
	}
}

func TestServiceLoadSeedsTutorialOnlyWhenMissing(t *testing.T) {
	repo := &fakeRepo{loadErr: fs.ErrNotExist}
	svc := NewService(repo, sequentialIDs(), fixedClock(), ServiceConfig{SeedTutorial: true})
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if svc.Len() != len(tutorialTasks) {
		t.Fatalf("expected %d tutorial tasks, got %d", len(tutorialTasks), svc.Len())
	}
	if repo.saves != 0 {
		t.Fatalf("expected tutorial seed to stay in memory, got %d saves", repo.saves)
	}

	repo = &fakeRepo{}
	svc = NewService(repo, sequentialIDs(), fixedClock(), ServiceConfig{SeedTutorial: true})
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if svc.Len() != 0 {
		t.Fatalf("expected saved empty list to stay empty, got %d", svc.Len())
	}
}

func TestServiceLoadCorruptFallsBackToEmpty(t *testing.T) {
	repo := &fakeRepo{loadErr: fmt.Errorf("decode todos.json: %w", ErrCorruptStorage)}
	svc := newTestService(repo)
	err := svc.Load(context.Background())
	if !errors.Is(err, ErrCorruptStorage) {
		t.Fatalf("expected ErrCorruptStorage, got %v", err)
	}
	if svc.Len() != 0 {
		t.Fatalf("expected empty list after corrupt load, got %d", svc.Len())
	}
	if repo.saves != 0 {
		t.Fatalf("expected corrupt store untouched, got %d saves", repo.saves)
	}
}

func TestServiceLoadRejectsDuplicateIDs(t *testing.T) {
	now := time.Now()
	a, _ := domain.NewTask("a", "A", now)
	repo := &fakeRepo{stored: []domain.Task{a, a}}
	svc := newTestService(repo)
	err := svc.Load(context.Background())
	if !errors.Is(err, ErrCorruptStorage) || !errors.Is(err, domain.ErrDuplicateID) {
		t.Fatalf("expected corrupt duplicate error, got %v", err)
	}
	if svc.Len() != 0 {
		t.Fatalf("expected empty list, got %d", svc.Len())
	}
}

func TestServiceLoadPropagatesReadErrors(t *testing.T) {
	boom := errors.New("permission denied")
	svc := newTestService(&fakeRepo{loadErr: boom})
	if err := svc.Load(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestServiceAddPersists(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo)
	task, err := svc.Add(context.Background(), "  write docs ")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if task.ID != "t1" || task.Text != "write docs" || task.Done {
		t.Fatalf("unexpected task %#v", task)
	}
	if repo.saves != 1 || len(repo.stored) != 1 || repo.stored[0].ID != "t1" {
		t.Fatalf("expected one persisted task, got saves=%d stored=%#v", repo.saves, repo.stored)
	}
}

func TestServiceAddRejectsBlankText(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo)
	for _, text := range []string{"", "  ", "\t\n"} {
		if _, err := svc.Add(context.Background(), text); !errors.Is(err, ErrEmptyInput) {
			t.Fatalf("Add(%q) expected ErrEmptyInput, got %v", text, err)
		}
	}
	if svc.Len() != 0 || repo.saves != 0 {
		t.Fatalf("expected no mutation, len=%d saves=%d", svc.Len(), repo.saves)
	}
}

func TestServiceToggleAffectsOnlyTarget(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{}
	svc := newTestService(repo)
	a, _ := svc.Add(ctx, "A")
	b, _ := svc.Add(ctx, "B")

	toggled, err := svc.Toggle(ctx, a.ID)
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if !toggled.Done {
		t.Fatal("expected toggled task done")
	}
	tasks := svc.Tasks()
	if !tasks[0].Done || tasks[1].Done || tasks[1].ID != b.ID {
		t.Fatalf("unexpected tasks after toggle %#v", tasks)
	}
	if !repo.stored[0].Done {
		t.Fatal("expected toggle persisted")
	}
}

func TestServiceToggleAndRemoveNotFound(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{}
	svc := newTestService(repo)
	if _, err := svc.Add(ctx, "A"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	saves := repo.saves
	if _, err := svc.Toggle(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Toggle, got %v", err)
	}
	if err := svc.Remove(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Remove, got %v", err)
	}
	if repo.saves != saves {
		t.Fatalf("expected no saves for stale ids, got %d", repo.saves-saves)
	}
}

func TestServiceRemoveKeepsOtherIdentities(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{}
	svc := newTestService(repo)
	a, _ := svc.Add(ctx, "A")
	b, _ := svc.Add(ctx, "B")
	c, _ := svc.Add(ctx, "C")

	if err := svc.Remove(ctx, b.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	tasks := svc.Tasks()
	if len(tasks) != 2 || tasks[0].ID != a.ID || tasks[1].ID != c.ID {
		t.Fatalf("unexpected tasks after remove %#v", tasks)
	}
	if len(repo.stored) != 2 {
		t.Fatalf("expected removal persisted, got %#v", repo.stored)
	}
}

func TestServiceSaveFailureKeepsMemoryAndMarksDirty(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{saveErr: errors.New("disk full")}
	svc := newTestService(repo)

	task, err := svc.Add(ctx, "A")
	if !errors.Is(err, ErrStorageIO) {
		t.Fatalf("expected ErrStorageIO, got %v", err)
	}
	if task.Text != "A" || svc.Len() != 1 {
		t.Fatalf("expected in-memory add to survive, got %#v len=%d", task, svc.Len())
	}
	if !svc.Dirty() {
		t.Fatal("expected dirty after failed save")
	}

	repo.saveErr = nil
	if err := svc.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if svc.Dirty() || len(repo.stored) != 1 {
		t.Fatalf("expected clean flush, dirty=%t stored=%#v", svc.Dirty(), repo.stored)
	}
}

func TestServiceTasksReturnsCopy(t *testing.T) {
	svc := newTestService(&fakeRepo{})
	if _, err := svc.Add(context.Background(), "A"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	tasks := svc.Tasks()
	tasks[0].Text = "mutated"
	if svc.Tasks()[0].Text != "A" {
		t.Fatal("expected Tasks() to return a defensive copy")
	}
}

func TestServiceNilIDGeneratorUsesUUIDs(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{}
	svc := NewService(repo, nil, fixedClock(), ServiceConfig{})
	first, err := svc.Add(ctx, "first")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	second, err := svc.Add(ctx, "second")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if first.ID == "" || first.ID == second.ID {
		t.Fatalf("expected distinct generated ids, got %q and %q", first.ID, second.ID)
	}
	if len(repo.stored) != 2 {
		t.Fatalf("expected both tasks persisted, got %#v", repo.stored)
	}
}
