package app

import (
	"context"

	"github.com/evanschultz/todo/internal/domain"
)

// Repository persists the whole task list as one unit.
//
// Load returns an error wrapping os.ErrNotExist when nothing has been saved yet
// and one wrapping ErrCorruptStorage when stored content cannot be decoded.
// Save must replace the stored list atomically and wrap failures with ErrStorageIO.
type Repository interface {
	Load(context.Context) ([]domain.Task, error)
	Save(context.Context, []domain.Task) error
}
