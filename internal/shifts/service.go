package shifts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/server/validate"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/telemetry"
)

// MemberStore owns the user_shifts membership. users.Repo satisfies it.
type MemberStore interface {
	ReplaceShiftMembers(ctx context.Context, companyID, shiftID string, userIDs []string) error
	UnknownUsers(ctx context.Context, companyID string, ids []string) ([]string, error)
}

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

func (s *Service) Create(ctx context.Context, companyID string, in Input) (Shift, error) {
	if s == nil || s.Repo == nil {
		return Shift{}, errors.New("shifts service not configured")
	}
	start, err := normalizeTime(in.StartTime)
	if err != nil {
		return Shift{}, err
	}
	end, err := normalizeTime(in.EndTime)
	if err != nil {
		return Shift{}, err
	}
	now := s.now()
	shift := Shift{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		Name:      strings.TrimSpace(in.Name),
		StartTime: start,
		EndTime:   end,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := check(shift); err != nil {
		return Shift{}, err
	}
	if err := s.Repo.Create(ctx, shift); err != nil {
		return Shift{}, err
	}
	telemetry.Info("shifts.create.ok", map[string]any{"company_id": companyID, "shift_id": shift.ID})
	return shift, nil
}

func (s *Service) List(ctx context.Context, companyID string) ([]Shift, error) {
	return s.Repo.List(ctx, companyID)
}

func (s *Service) Get(ctx context.Context, companyID, id string) (Shift, error) {
	return s.Repo.GetByID(ctx, companyID, id)
}

// Update applies patch over the stored shift and checks the resulting window.
func (s *Service) Update(ctx context.Context, companyID, id string, patch Patch) (Shift, error) {
	shift, err := s.Repo.GetByID(ctx, companyID, id)
	if err != nil {
		return Shift{}, err
	}
	if patch.Name != nil {
		shift.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.StartTime != nil {
		if shift.StartTime, err = normalizeTime(*patch.StartTime); err != nil {
			return Shift{}, err
		}
	}
	if patch.EndTime != nil {
		if shift.EndTime, err = normalizeTime(*patch.EndTime); err != nil {
			return Shift{}, err
		}
	}
	if err := check(shift); err != nil {
		return Shift{}, err
	}
	if err := s.Repo.Update(ctx, shift); err != nil {
		return Shift{}, err
	}
	return s.Repo.GetByID(ctx, companyID, id)
}

func (s *Service) Delete(ctx context.Context, companyID, id string) error {
	if err := s.Repo.Delete(ctx, companyID, id); err != nil {
		return err
	}
	telemetry.Info("shifts.delete.ok", map[string]any{"company_id": companyID, "shift_id": id})
	return nil
}

// ReplaceMembers sets the shift's members to exactly userIDs and returns the ids kept.
func (s *Service) ReplaceMembers(ctx context.Context, companyID, id string, userIDs []string) (Shift, []string, error) {
	shift, err := s.Repo.GetByID(ctx, companyID, id)
	if err != nil {
		return Shift{}, nil, err
	}
	if s.Members == nil {
		return Shift{}, nil, errors.New("shift membership not configured")
	}
	ids := make([]string, 0, len(userIDs))
	seen := map[string]bool{}
	for _, uid := range userIDs {
		uid = strings.TrimSpace(uid)
		if uid != "" && !seen[uid] {
			seen[uid] = true
			ids = append(ids, uid)
		}
	}
	unknown, err := s.Members.UnknownUsers(ctx, companyID, ids)
	if err != nil {
		return Shift{}, nil, err
	}
	if len(unknown) > 0 {
		return Shift{}, nil, &UnknownUsersError{UserIDs: unknown}
	}
	if err := s.Members.ReplaceShiftMembers(ctx, companyID, id, ids); err != nil {
		return Shift{}, nil, err
	}
	telemetry.Info("shifts.members.replaced", map[string]any{"company_id": companyID, "shift_id": id, "count": len(ids)})
	return shift, ids, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// normalizeTime accepts HH:mm input (or an already stored HH:mm:ss) and returns HH:mm:00.
func normalizeTime(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) == 8 && raw[5] == ':' {
		raw = raw[:5]
	}
	if !validate.IsHHMM(raw) {
		return "", fmt.Errorf("%w: time must be in HH:mm format", ErrInvalidInput)
	}
	return raw + ":00", nil
}

func check(s Shift) error {
	if s.Name == "" || utf8.RuneCountInString(s.Name) > 100 {
		return fmt.Errorf("%w: shift_name must be 1-100 characters", ErrInvalidInput)
	}
	// zero-padded clock strings order lexically
	if s.EndTime <= s.StartTime {
		return ErrTimeOrder
	}
	return nil
}
