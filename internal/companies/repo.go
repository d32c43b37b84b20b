package companies

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("company not found")
	ErrConflict       = errors.New("company conflict")
	ErrNameTaken      = fmt.Errorf("%w: company name already exists", ErrConflict)
	ErrSubdomainTaken = fmt.Errorf("%w: subdomain already exists", ErrConflict)
	ErrInvalidInput   = errors.New("invalid input")
)

// Repo persists companies.
type Repo interface {
	Create(ctx context.Context, company Company) error
	GetByID(ctx context.Context, id string) (Company, error)
	Update(ctx context.Context, company Company) error
	Delete(ctx context.Context, id string) error
	SubdomainExists(ctx context.Context, subdomain string) (bool, error)
	NameExists(ctx context.Context, name string) (bool, error)
}
