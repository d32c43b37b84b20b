package departments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/telemetry"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/users"
)

// MembersPreview is how many members each department embeds.
const MembersPreview = 10

// MemberStore owns the user_departments membership. users.Repo satisfies it.
type MemberStore interface {
	DepartmentMembers(ctx context.Context, companyID string, departmentIDs []string, limit int) (map[string]users.MemberPage, error)
	ReplaceDepartmentMembers(ctx context.Context, companyID, departmentID string, userIDs []string) error
	UnknownUsers(ctx context.Context, companyID string, ids []string) ([]string, error)
}

// UnknownUsersError lists user ids that are not staff of the company.
type UnknownUsersError struct {
	UserIDs []string `json:"invalid_user_ids"`
}

func (e *UnknownUsersError) Error() string {
	return "some users do not belong to this company"
}

func (e *UnknownUsersError) Unwrap() error { return ErrInvalidInput }

type Service struct {
	Repo    Repo
	Members MemberStore
	Now     func() time.Time
}

func NewService(repo Repo, members MemberStore) *Service {
	return &Service{Repo: repo, Members: members, Now: time.Now}
}

func (s *Service) Create(ctx context.Context, companyID string, in Input) (Detail, error) {
	if s == nil || s.Repo == nil {
		return Detail{}, errors.New("departments service not configured")
	}
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	d := Department{
		ID:          uuid.NewString(),
		CompanyID:   companyID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		ProfileURI:  strings.TrimSpace(in.ProfileURI),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := validate(d); err != nil {
		return Detail{}, err
	}
	if err := s.Repo.Create(ctx, d); err != nil {
		return Detail{}, err
	}
	telemetry.Info("departments.create.ok", map[string]any{"company_id": companyID, "department_id": d.ID})
	return Detail{Department: d, Users: []users.Member{}}, nil
}

func (s *Service) List(ctx context.Context, companyID string) ([]Detail, error) {
	list, err := s.Repo.List(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return s.withMembers(ctx, companyID, list)
}

func (s *Service) Get(ctx context.Context, companyID, id string) (Detail, error) {
	d, err := s.Repo.GetByID(ctx, companyID, id)
	if err != nil {
		return Detail{}, err
	}
	details, err := s.withMembers(ctx, companyID, []Department{d})
	if err != nil {
		return Detail{}, err
	}
	return details[0], nil
}

func (s *Service) Update(ctx context.Context, companyID, id string, patch Patch) (Detail, error) {
	d, err := s.Repo.GetByID(ctx, companyID, id)
	if err != nil {
		return Detail{}, err
	}
	if patch.Name != nil {
		d.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		d.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.ProfileURI != nil {
		d.ProfileURI = strings.TrimSpace(*patch.ProfileURI)
	}
	if err := validate(d); err != nil {
		return Detail{}, err
	}
	if err := s.Repo.Update(ctx, d); err != nil {
		return Detail{}, err
	}
	return s.Get(ctx, companyID, id)
}

func (s *Service) Delete(ctx context.Context, companyID, id string) error {
	if err := s.Repo.Delete(ctx, companyID, id); err != nil {
		return err
	}
	telemetry.Info("departments.delete.ok", map[string]any{"company_id": companyID, "department_id": id})
	return nil
}

// ReplaceMembers sets the department's members to exactly userIDs.
func (s *Service) ReplaceMembers(ctx context.Context, companyID, id string, userIDs []string) (Detail, error) {
	if _, err := s.Repo.GetByID(ctx, companyID, id); err != nil {
		return Detail{}, err
	}
	if s.Members == nil {
		return Detail{}, errors.New("department membership not configured")
	}
	ids := dedupe(userIDs)
	unknown, err := s.Members.UnknownUsers(ctx, companyID, ids)
	if err != nil {
		return Detail{}, err
	}
	if len(unknown) > 0 {
		return Detail{}, &UnknownUsersError{UserIDs: unknown}
	}
	if err := s.Members.ReplaceDepartmentMembers(ctx, companyID, id, ids); err != nil {
		return Detail{}, err
	}
	telemetry.Info("departments.members.replaced", map[string]any{"company_id": companyID, "department_id": id, "count": len(ids)})
	return s.Get(ctx, companyID, id)
}

func (s *Service) withMembers(ctx context.Context, companyID string, list []Department) ([]Detail, error) {
	out := make([]Detail, 0, len(list))
	pages := map[string]users.MemberPage{}
	if s.Members != nil && len(list) > 0 {
		ids := make([]string, len(list))
		for i, d := range list {
			ids[i] = d.ID
		}
		var err error
		pages, err = s.Members.DepartmentMembers(ctx, companyID, ids, MembersPreview)
		if err != nil {
			return nil, err
		}
	}
	for _, d := range list {
		page := pages[d.ID]
		members := page.Members
		if members == nil {
			members = []users.Member{}
		}
		out = append(out, Detail{Department: d, EmployeeCount: page.Count, Users: members})
	}
	return out, nil
}

func validate(d Department) error {
	if d.Name == "" || utf8.RuneCountInString(d.Name) > 150 {
		return fmt.Errorf("%w: department_name must be 1-150 characters", ErrInvalidInput)
	}
	if utf8.RuneCountInString(d.ProfileURI) > 500 {
		return fmt.Errorf("%w: department_profile_uri must be at most 500 characters", ErrInvalidInput)
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
