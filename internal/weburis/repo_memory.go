package weburis

import (
	"context"
	"sort"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Resource
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Resource)}
}

func (r *MemoryRepo) Create(ctx context.Context, res Resource) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.uriTakenLocked(res) {
		return ErrConflict
	}
	if res.UpdatedAt.IsZero() {
		res.UpdatedAt = res.CreatedAt
	}
	r.data[res.ID] = res
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, companyID, id string) (Resource, error) {
	if err := ctx.Err(); err != nil {
		return Resource{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.data[id]
	if !ok || res.CompanyID != companyID {
		return Resource{}, ErrNotFound
	}
	return res, nil
}

func (r *MemoryRepo) List(ctx context.Context, companyID string, status *Status) ([]Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Resource
	for _, res := range r.data {
		if res.CompanyID != companyID || (status != nil && res.Status != *status) {
			continue
		}
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, res Resource) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.data[res.ID]
	if !ok || current.CompanyID != res.CompanyID {
		return ErrNotFound
	}
	if r.uriTakenLocked(res) {
		return ErrConflict
	}
	res.CreatedAt = current.CreatedAt
	res.UpdatedAt = time.Now().UTC()
	r.data[res.ID] = res
	return nil
}

func (r *MemoryRepo) SetStatus(ctx context.Context, companyID string, ids []string, status Status) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	updated := 0
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		res, ok := r.data[id]
		if !ok || res.CompanyID != companyID || seen[id] {
			continue
		}
		seen[id] = true
		res.Status = status
		res.UpdatedAt = time.Now().UTC()
		r.data[id] = res
		updated++
	}
	return updated, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, companyID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.data[id]
	if !ok || res.CompanyID != companyID {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

func (r *MemoryRepo) uriTakenLocked(res Resource) bool {
	for _, other := range r.data {
		if other.ID != res.ID && other.CompanyID == res.CompanyID && other.URI == res.URI {
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
