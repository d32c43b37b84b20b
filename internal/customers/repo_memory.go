package customers

import (
	"context"
	"sort"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Customer
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Customer)}
}

func (r *MemoryRepo) Create(ctx context.Context, c Customer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.data {
		if other.CompanyID == c.CompanyID && other.Contact == c.Contact && other.Source == c.Source {
			return ErrConflict
		}
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	r.data[c.ID] = c
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Customer, error) {
	if err := ctx.Err(); err != nil {
		return Customer{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.data[id]
	if !ok {
		return Customer{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) GetByContact(ctx context.Context, companyID, contact string, source Source) (Customer, error) {
	if err := ctx.Err(); err != nil {
		return Customer{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.data {
		if c.CompanyID == companyID && c.Contact == contact && c.Source == source {
			return c, nil
		}
	}
	return Customer{}, ErrNotFound
}

func (r *MemoryRepo) ListByCompany(ctx context.Context, companyID string) ([]Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Customer
	for _, c := range r.data {
		if c.CompanyID == companyID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, c Customer) error {
	return r.mutate(ctx, c.CompanyID, c.ID, func(existing *Customer) {
		existing.Name = c.Name
		existing.ProfileURI = c.ProfileURI
		existing.PasswordHash = c.PasswordHash
	})
}

func (r *MemoryRepo) Delete(ctx context.Context, companyID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.data[id]
	if !ok || c.CompanyID != companyID {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

func (r *MemoryRepo) IncrementConversationCount(ctx context.Context, companyID, id string) error {
	return r.mutate(ctx, companyID, id, func(c *Customer) { c.ConversationCount++ })
}

func (r *MemoryRepo) mutate(ctx context.Context, companyID, id string, fn func(c *Customer)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.data[id]
	if !ok || c.CompanyID != companyID {
		return ErrNotFound
	}
	fn(&c)
	c.UpdatedAt = time.Now().UTC()
	r.data[id] = c
	return nil
}

// PurgeCompany drops every row owned by companyID.
func (r *MemoryRepo) PurgeCompany(ctx context.Context, companyID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, row := range r.data {
		if row.CompanyID == companyID {
			delete(r.data, id)
		}
	}
	return nil
}
