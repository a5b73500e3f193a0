package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/evanschultz/todo/internal/domain"
	"github.com/google/uuid"
)

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	SeedTutorial bool
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// tutorialTasks seeds a first run when tutorial seeding is enabled.
var tutorialTasks = []string{
	"Press 'a' to add a todo",
	"Press 'Space' to toggle completion",
	"Press 'd' to delete a todo",
	"Press 'q' to quit",
}

// Service owns the in-memory task list and flushes it after every mutation.
type Service struct {
	repo         Repository
	idGen        IDGenerator
	clock        Clock
	seedTutorial bool

	tasks []domain.Task
	dirty bool
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = uuid.NewString
	}
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		repo:         repo,
		idGen:        idGen,
		clock:        clock,
		seedTutorial: cfg.SeedTutorial,
	}
}

// Load replaces the in-memory list with persisted content.
//
// A missing store yields an empty list. Corrupt content also yields an empty
// list, and the returned error wraps ErrCorruptStorage so callers can warn and
// keep going. Any other error leaves the list empty and should stop startup.
func (s *Service) Load(ctx context.Context) error {
	s.tasks = nil
	s.dirty = false

	tasks, err := s.repo.Load(ctx)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		if s.seedTutorial {
			s.seed()
		}
		return nil
	default:
		return err
	}

	if err := domain.ValidateList(tasks); err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptStorage, err)
	}
	s.tasks = slices.Clone(tasks)
	return nil
}

// seed fills an empty list with tutorial tasks without persisting them.
func (s *Service) seed() {
	now := s.clock()
	for _, text := range tutorialTasks {
		task, err := domain.NewTask(s.idGen(), text, now)
		if err != nil {
			continue
		}
		s.tasks = append(s.tasks, task)
	}
}

// Tasks returns a copy of the current list in display order.
func (s *Service) Tasks() []domain.Task {
	return slices.Clone(s.tasks)
}

// Len returns the number of tasks.
func (s *Service) Len() int {
	return len(s.tasks)
}

// Dirty reports whether the last flush failed and memory is ahead of storage.
func (s *Service) Dirty() bool {
	return s.dirty
}

// Add appends a pending task built from text and flushes the list.
func (s *Service) Add(ctx context.Context, text string) (domain.Task, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Task{}, ErrEmptyInput
	}
	task, err := domain.NewTask(s.idGen(), text, s.clock())
	if err != nil {
		return domain.Task{}, err
	}
	s.tasks = append(s.tasks, task)
	return task, s.Flush(ctx)
}

// Toggle flips the completion flag of one task and flushes the list.
func (s *Service) Toggle(ctx context.Context, id string) (domain.Task, error) {
	idx := s.indexOf(id)
	if idx < 0 {
		return domain.Task{}, ErrNotFound
	}
	s.tasks[idx].Toggle(s.clock())
	return s.tasks[idx], s.Flush(ctx)
}

// Remove deletes one task and flushes the list.
func (s *Service) Remove(ctx context.Context, id string) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return ErrNotFound
	}
	s.tasks = slices.Delete(s.tasks, idx, idx+1)
	return s.Flush(ctx)
}

// Flush writes the full list through the repository.
// A failed flush keeps the in-memory list and marks the service dirty.
func (s *Service) Flush(ctx context.Context) error {
	if err := s.repo.Save(ctx, slices.Clone(s.tasks)); err != nil {
		s.dirty = true
		if !errors.Is(err, ErrStorageIO) {
			err = fmt.Errorf("%w: %w", ErrStorageIO, err)
		}
		return err
	}
	s.dirty = false
	return nil
}

// indexOf returns the list position of id, or -1.
func (s *Service) indexOf(id string) int {
	id = strings.TrimSpace(id)
	if id == "" {
		return -1
	}
	return slices.IndexFunc(s.tasks, func(t domain.Task) bool {
		return t.ID == id
	})
}
