package aiagents

import (
	"context"
	"sort"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Agent
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Agent)}
}

func (r *MemoryRepo) Create(ctx context.Context, a Agent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.nameTakenLocked(a) {
		return ErrConflict
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
	r.data[a.ID] = a
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, companyID, id string) (Agent, error) {
	if err := ctx.Err(); err != nil {
		return Agent{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.data[id]
	if !ok || a.CompanyID != companyID {
		return Agent{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) List(ctx context.Context, companyID string) ([]Agent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Agent
	for _, a := range r.data {
		if a.CompanyID == companyID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, a Agent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.data[a.ID]
	if !ok || current.CompanyID != a.CompanyID {
		return ErrNotFound
	}
	if r.nameTakenLocked(a) {
		return ErrConflict
	}
	a.CreatedAt = current.CreatedAt
	a.UpdatedAt = time.Now().UTC()
	r.data[a.ID] = a
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, companyID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.data[id]
	if !ok || a.CompanyID != companyID {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

func (r *MemoryRepo) nameTakenLocked(a Agent) bool {
	for _, other := range r.data {
		if other.ID != a.ID && other.CompanyID == a.CompanyID && other.Name == a.Name {
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
