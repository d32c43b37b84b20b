package aiagents

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("ai agent not found")
	ErrConflict     = errors.New("an agent with this name already exists")
	ErrInvalidInput = errors.New("invalid input")
)

type Repo interface {
	Create(ctx context.Context, a Agent) error
	GetByID(ctx context.Context, companyID, id string) (Agent, error)
	List(ctx context.Context, companyID string) ([]Agent, error)
	Update(ctx context.Context, a Agent) error
	Delete(ctx context.Context, companyID, id string) error
}
