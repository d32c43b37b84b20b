package departments

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Department
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Department)}
}

func (r *MemoryRepo) Create(ctx context.Context, d Department) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.nameTakenLocked(d) {
		return ErrConflict
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = d.CreatedAt
	}
	r.data[d.ID] = d
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, companyID, id string) (Department, error) {
	if err := ctx.Err(); err != nil {
		return Department{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.data[id]
	if !ok || d.CompanyID != companyID {
		return Department{}, ErrNotFound
	}
	return d, nil
}

func (r *MemoryRepo) List(ctx context.Context, companyID string) ([]Department, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Department
	for _, d := range r.data {
		if d.CompanyID == companyID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, d Department) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.data[d.ID]
	if !ok || existing.CompanyID != d.CompanyID {
		return ErrNotFound
	}
	if r.nameTakenLocked(d) {
		return ErrConflict
	}
	d.CreatedAt = existing.CreatedAt
	d.UpdatedAt = time.Now().UTC()
	r.data[d.ID] = d
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, companyID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.data[id]
	if !ok || d.CompanyID != companyID {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

func (r *MemoryRepo) Names(ctx context.Context, companyID string, ids []string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if d, ok := r.data[id]; ok && d.CompanyID == companyID {
			out[id] = d.Name
		}
	}
	return out, nil
}

func (r *MemoryRepo) nameTakenLocked(d Department) bool {
	for id, other := range r.data {
		if id != d.ID && other.CompanyID == d.CompanyID && other.Name == d.Name {
			return true
		}
	}
	return false
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
