package socialconnections

import (
	"context"
	"sort"
	"sync"
)

type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Connection
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Connection)}
}

func (r *MemoryRepo) Create(ctx context.Context, c Connection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[c.ID]; ok {
		return ErrConflict
	}
	c.UpdatedAt = c.CreatedAt
	r.data[c.ID] = c
	return nil
}

func (r *MemoryRepo) Upsert(ctx context.Context, c Connection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.data[c.ID]
	if ok {
		if current.CompanyID != c.CompanyID {
			return ErrConflict
		}
		c.CreatedAt = current.CreatedAt
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	r.data[c.ID] = c
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, companyID, id string) (Connection, error) {
	if err := ctx.Err(); err != nil {
		return Connection{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.data[id]
	if !ok || c.CompanyID != companyID {
		return Connection{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) List(ctx context.Context, companyID string, types []string) ([]Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Connection
	for _, c := range r.data {
		if c.CompanyID != companyID || (len(wanted) > 0 && !wanted[c.PlatformType]) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) TypeExists(ctx context.Context, companyID, platformType string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.data {
		if c.CompanyID == companyID && c.PlatformType == platformType {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepo) CountByType(ctx context.Context, companyID string) ([]TypeCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	counts := make(map[string]int)
	for _, c := range r.data {
		if c.CompanyID == companyID {
			counts[c.PlatformType]++
		}
	}
	r.mu.RUnlock()
	out := make([]TypeCount, 0, len(counts))
	for t, n := range counts {
		out = append(out, TypeCount{PlatformType: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlatformType < out[j].PlatformType })
	return out, nil
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
