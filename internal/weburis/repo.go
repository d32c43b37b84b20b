package weburis

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("web uri resource not found")
	ErrConflict     = errors.New("this URI already exists for the company")
	ErrInvalidInput = errors.New("invalid input")
)

type Repo interface {
	Create(ctx context.Context, r Resource) error
	GetByID(ctx context.Context, companyID, id string) (Resource, error)
	// List returns newest first. A nil status matches every resource.
	List(ctx context.Context, companyID string, status *Status) ([]Resource, error)
	Update(ctx context.Context, r Resource) error
	// SetStatus updates the listed ids of the company and returns how many changed.
	SetStatus(ctx context.Context, companyID string, ids []string, status Status) (int, error)
	Delete(ctx context.Context, companyID, id string) error
}
