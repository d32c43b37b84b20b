package companies

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Company
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Company)}
}

func (r *MemoryRepo) Create(ctx context.Context, company Company) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.conflictLocked(company); err != nil {
		return err
	}
	if company.UpdatedAt.IsZero() {
		company.UpdatedAt = company.CreatedAt
	}
	r.data[company.ID] = company
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Company, error) {
	if err := ctx.Err(); err != nil {
		return Company{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.data[id]
	if !ok {
		return Company{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) Update(ctx context.Context, company Company) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.data[company.ID]
	if !ok {
		return ErrNotFound
	}
	if err := r.conflictLocked(company); err != nil {
		return err
	}
	company.Status = existing.Status
	company.CreatedAt = existing.CreatedAt
	company.UpdatedAt = time.Now().UTC()
	r.data[company.ID] = company
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

func (r *MemoryRepo) SubdomainExists(ctx context.Context, subdomain string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.data {
		if c.Subdomain == subdomain {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepo) NameExists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.data {
		if c.CompanyName == name {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepo) conflictLocked(company Company) error {
	for id, c := range r.data {
		if id == company.ID {
			continue
		}
		if c.CompanyName == company.CompanyName {
			return ErrNameTaken
		}
		if strings.EqualFold(c.Subdomain, company.Subdomain) {
			return ErrSubdomainTaken
		}
	}
	return nil
}
