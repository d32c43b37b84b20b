package shifts

import (
	"context"
	"sort"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Shift
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Shift)}
}

func (r *MemoryRepo) Create(ctx context.Context, s Shift) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.nameTakenLocked(s) {
		return ErrConflict
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}
	r.data[s.ID] = s
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, companyID, id string) (Shift, error) {
	if err := ctx.Err(); err != nil {
		return Shift{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.data[id]
	if !ok || s.CompanyID != companyID {
		return Shift{}, ErrNotFound
	}
	return s, nil
}

func (r *MemoryRepo) List(ctx context.Context, companyID string) ([]Shift, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Shift
	for _, s := range r.data {
		if s.CompanyID == companyID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, s Shift) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.data[s.ID]
	if !ok || existing.CompanyID != s.CompanyID {
		return ErrNotFound
	}
	if r.nameTakenLocked(s) {
		return ErrConflict
	}
	s.CreatedAt = existing.CreatedAt
	s.UpdatedAt = time.Now().UTC()
	r.data[s.ID] = s
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, companyID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok || s.CompanyID != companyID {
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
		if s, ok := r.data[id]; ok && s.CompanyID == companyID {
			out[id] = s.Name
		}
	}
	return out, nil
}

func (r *MemoryRepo) nameTakenLocked(s Shift) bool {
	for id, other := range r.data {
		if id != s.ID && other.CompanyID == s.CompanyID && other.Name == s.Name {
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
