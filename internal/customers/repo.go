package customers

import (
	"context"
	"errors"
)

var (
	ErrNotFound           = errors.New("customer not found")
	ErrConflict           = errors.New("customer already exists for this contact and source")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCompanyNotFound    = errors.New("company not found")
)

type Repo interface {
	Create(ctx context.Context, c Customer) error
	GetByID(ctx context.Context, id string) (Customer, error)
	GetByContact(ctx context.Context, companyID, contact string, source Source) (Customer, error)
	ListByCompany(ctx context.Context, companyID string) ([]Customer, error)
	Update(ctx context.Context, c Customer) error
	Delete(ctx context.Context, companyID, id string) error
	// IncrementConversationCount bumps the counter when the customer belongs to companyID.
	IncrementConversationCount(ctx context.Context, companyID, id string) error
}
