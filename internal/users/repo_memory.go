package users

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu              sync.RWMutex
	users           map[string]User
	pending         map[string]PendingUser
	userDepartments map[string]map[string]time.Time // userID -> departmentID -> assigned_at
	userShifts      map[string]map[string]time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		users:           make(map[string]User),
		pending:         make(map[string]PendingUser),
		userDepartments: make(map[string]map[string]time.Time),
		userShifts:      make(map[string]map[string]time.Time),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, user User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emailRegisteredLocked(user.Email) {
		return ErrEmailTaken
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}
	r.users[user.ID] = user
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *MemoryRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *MemoryRepo) ListByCompany(ctx context.Context, companyID string) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []User
	for _, u := range r.users {
		if u.CompanyID == companyID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, user User) error {
	return r.mutate(ctx, user.ID, func(u *User) {
		u.UserName = user.UserName
		u.Bio = user.Bio
		u.ProfileURI = user.ProfileURI
		u.Role = user.Role
		u.Status = user.Status
	})
}

func (r *MemoryRepo) SetPassword(ctx context.Context, id, hash string) error {
	return r.mutate(ctx, id, func(u *User) { u.PasswordHash = hash })
}

func (r *MemoryRepo) SetRefreshToken(ctx context.Context, id, hash string) error {
	return r.mutate(ctx, id, func(u *User) { u.RefreshTokenHash = hash })
}

func (r *MemoryRepo) mutate(ctx context.Context, id string, fn func(u *User)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}

func (r *MemoryRepo) CountByRole(ctx context.Context, companyID, role string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, u := range r.users {
		if u.CompanyID == companyID && u.Role == role {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) EmailInUse(ctx context.Context, email string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.emailRegisteredLocked(email) {
		return true, nil
	}
	for _, p := range r.pending {
		if strings.EqualFold(p.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepo) emailRegisteredLocked(email string) bool {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (r *MemoryRepo) CreatePending(ctx context.Context, pending PendingUser) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.pending {
		if p.CompanyID == pending.CompanyID && strings.EqualFold(p.Email, pending.Email) {
			return ErrEmailTaken
		}
	}
	pending.DepartmentIDs = append([]string(nil), pending.DepartmentIDs...)
	pending.ShiftIDs = append([]string(nil), pending.ShiftIDs...)
	r.pending[pending.ID] = pending
	return nil
}

func (r *MemoryRepo) GetPending(ctx context.Context, id string) (PendingUser, error) {
	if err := ctx.Err(); err != nil {
		return PendingUser{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pending[id]
	if !ok {
		return PendingUser{}, ErrPendingNotFound
	}
	return p, nil
}

func (r *MemoryRepo) ListPending(ctx context.Context, companyID string) ([]PendingUser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []PendingUser
	for _, p := range r.pending {
		if p.CompanyID == companyID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) DeletePending(ctx context.Context, companyID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pending[id]
	if !ok || p.CompanyID != companyID {
		return ErrPendingNotFound
	}
	delete(r.pending, id)
	return nil
}

func (r *MemoryRepo) TouchPending(ctx context.Context, companyID, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pending[id]
	if !ok || p.CompanyID != companyID {
		return ErrPendingNotFound
	}
	p.UpdatedAt = at
	r.pending[id] = p
	return nil
}

func (r *MemoryRepo) CompleteRegistration(ctx context.Context, pendingID string, user User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pending[pendingID]
	if !ok {
		return ErrPendingNotFound
	}
	if r.emailRegisteredLocked(user.Email) {
		return ErrEmailTaken
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}
	r.users[user.ID] = user
	for _, id := range p.DepartmentIDs {
		assign(r.userDepartments, user.ID, id, user.CreatedAt)
	}
	for _, id := range p.ShiftIDs {
		assign(r.userShifts, user.ID, id, user.CreatedAt)
	}
	delete(r.pending, pendingID)
	return nil
}

func (r *MemoryRepo) DepartmentIDs(ctx context.Context, userIDs []string) (map[string][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]string, len(userIDs))
	for _, userID := range userIDs {
		depts := r.userDepartments[userID]
		if len(depts) == 0 {
			continue
		}
		ids := make([]string, 0, len(depts))
		for id := range depts {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return depts[ids[i]].Before(depts[ids[j]]) })
		out[userID] = ids
	}
	return out, nil
}

func (r *MemoryRepo) DepartmentMembers(ctx context.Context, companyID string, departmentIDs []string, limit int) (map[string]MemberPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	type assigned struct {
		user User
		at   time.Time
	}
	byDept := make(map[string][]assigned, len(departmentIDs))
	wanted := make(map[string]bool, len(departmentIDs))
	for _, id := range departmentIDs {
		wanted[id] = true
	}
	for userID, depts := range r.userDepartments {
		u, ok := r.users[userID]
		if !ok || u.CompanyID != companyID {
			continue
		}
		for deptID, at := range depts {
			if wanted[deptID] {
				byDept[deptID] = append(byDept[deptID], assigned{user: u, at: at})
			}
		}
	}

	out := make(map[string]MemberPage, len(byDept))
	for deptID, list := range byDept {
		sort.Slice(list, func(i, j int) bool { return list[i].at.After(list[j].at) })
		page := MemberPage{Count: len(list)}
		for i, a := range list {
			if limit > 0 && i >= limit {
				break
			}
			page.Members = append(page.Members, toMember(a.user))
		}
		out[deptID] = page
	}
	return out, nil
}

func (r *MemoryRepo) ReplaceDepartmentMembers(ctx context.Context, companyID, departmentID string, userIDs []string) error {
	return r.replaceMembers(ctx, r.userDepartments, companyID, departmentID, userIDs)
}

func (r *MemoryRepo) ReplaceShiftMembers(ctx context.Context, companyID, shiftID string, userIDs []string) error {
	return r.replaceMembers(ctx, r.userShifts, companyID, shiftID, userIDs)
}

func (r *MemoryRepo) replaceMembers(ctx context.Context, table map[string]map[string]time.Time, companyID, groupID string, userIDs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for userID, groups := range table {
		if u, ok := r.users[userID]; ok && u.CompanyID == companyID {
			delete(groups, groupID)
		}
	}
	now := time.Now().UTC()
	for _, userID := range userIDs {
		if u, ok := r.users[userID]; ok && u.CompanyID == companyID {
			assign(table, userID, groupID, now)
		}
	}
	return nil
}

func (r *MemoryRepo) UnknownUsers(ctx context.Context, companyID string, ids []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var unknown []string
	for _, id := range ids {
		if u, ok := r.users[id]; !ok || u.CompanyID != companyID {
			unknown = append(unknown, id)
		}
	}
	return unknown, nil
}

func assign(table map[string]map[string]time.Time, userID, groupID string, at time.Time) {
	groups, ok := table[userID]
	if !ok {
		groups = make(map[string]time.Time)
		table[userID] = groups
	}
	if _, exists := groups[groupID]; !exists {
		groups[groupID] = at
	}
}

func toMember(u User) Member {
	return Member{ID: u.ID, UserName: u.UserName, Email: u.Email, ProfileURI: u.ProfileURI}
}

// PurgeCompany drops the company's users, invitations and their
// department and shift assignments.
func (r *MemoryRepo) PurgeCompany(ctx context.Context, companyID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, u := range r.users {
		if u.CompanyID == companyID {
			delete(r.users, id)
			delete(r.userDepartments, id)
			delete(r.userShifts, id)
		}
	}
	for id, p := range r.pending {
		if p.CompanyID == companyID {
			delete(r.pending, id)
		}
	}
	return nil
}
