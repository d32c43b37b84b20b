package departments

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("department not found")
	ErrConflict     = errors.New("department name already exists")
	ErrInvalidInput = errors.New("invalid input")
)

// Repo persists departments.
type Repo interface {
	Create(ctx context.Context, d Department) error
	GetByID(ctx context.Context, companyID, id string) (Department, error)
	List(ctx context.Context, companyID string) ([]Department, error)
	Update(ctx context.Context, d Department) error
	Delete(ctx context.Context, companyID, id string) error
	// Names maps the ids that belong to companyID to their department names.
	Names(ctx context.Context, companyID string, ids []string) (map[string]string, error)
}
