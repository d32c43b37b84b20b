package socialconnections

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("social connection not found")
	ErrConflict     = errors.New("social connection already exists")
	ErrInvalidInput = errors.New("invalid input")
)

type Repo interface {
	Create(ctx context.Context, c Connection) error
	// Upsert inserts or refreshes the row with c.ID. A row owned by another
	// company is left untouched and reported as ErrConflict.
	Upsert(ctx context.Context, c Connection) error
	GetByID(ctx context.Context, companyID, id string) (Connection, error)
	// List returns newest first. An empty types slice matches every type.
	List(ctx context.Context, companyID string, types []string) ([]Connection, error)
	TypeExists(ctx context.Context, companyID, platformType string) (bool, error)
	CountByType(ctx context.Context, companyID string) ([]TypeCount, error)
	Delete(ctx context.Context, companyID, id string) error
}
