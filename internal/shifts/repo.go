package shifts

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("shift not found")
	ErrConflict     = errors.New("shift name already exists")
	ErrInvalidInput = errors.New("invalid input")
	ErrTimeOrder    = errors.New("shift end time must be after start time")
)

type Repo interface {
	Create(ctx context.Context, s Shift) error
	GetByID(ctx context.Context, companyID, id string) (Shift, error)
	List(ctx context.Context, companyID string) ([]Shift, error)
	Update(ctx context.Context, s Shift) error
	Delete(ctx context.Context, companyID, id string) error
	Names(ctx context.Context, companyID string, ids []string) (map[string]string, error)
}
