package aiagents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/telemetry"
)

type Service struct {
	Repo Repo
	Now  func() time.Time
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

func (s *Service) Create(ctx context.Context, companyID string, in Input) (Agent, error) {
	if s == nil || s.Repo == nil {
		return Agent{}, errors.New("ai agents service not configured")
	}
	now := s.now()
	a := Agent{
		ID:                           uuid.NewString(),
		CompanyID:                    companyID,
		Name:                         strings.TrimSpace(in.Name),
		Personality:                  in.Personality,
		GeneralInstructions:          in.GeneralInstructions,
		Avatar:                       strings.TrimSpace(in.Avatar),
		ChoiceWhenUnable:             strings.TrimSpace(in.ChoiceWhenUnable),
		ConversationPassInstructions: in.ConversationPassInstructions,
		AutoTransfer:                 strings.TrimSpace(in.AutoTransfer),
		TransferConnectingMessage:    in.TransferConnectingMessage,
		CreatedAt:                    now,
		UpdatedAt:                    now,
	}
	if err := check(a); err != nil {
		return Agent{}, err
	}
	if err := s.Repo.Create(ctx, a); err != nil {
		return Agent{}, err
	}
	telemetry.Info("aiagents.create.ok", map[string]any{"company_id": companyID, "agent_id": a.ID})
	return a, nil
}

func (s *Service) List(ctx context.Context, companyID string) ([]Agent, error) {
	return s.Repo.List(ctx, companyID)
}

func (s *Service) Get(ctx context.Context, companyID, id string) (Agent, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Agent{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, companyID, id)
}

// Update applies a patch. A name clash with another agent of the company is a conflict.
func (s *Service) Update(ctx context.Context, companyID, id string, patch Patch) (Agent, error) {
	a, err := s.Get(ctx, companyID, id)
	if err != nil {
		return Agent{}, err
	}
	if patch.Name != nil {
		a.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Personality != nil {
		a.Personality = *patch.Personality
	}
	if patch.GeneralInstructions != nil {
		a.GeneralInstructions = *patch.GeneralInstructions
	}
	if patch.Avatar != nil {
		a.Avatar = strings.TrimSpace(*patch.Avatar)
	}
	if patch.ChoiceWhenUnable != nil {
		a.ChoiceWhenUnable = strings.TrimSpace(*patch.ChoiceWhenUnable)
	}
	if patch.ConversationPassInstructions != nil {
		a.ConversationPassInstructions = *patch.ConversationPassInstructions
	}
	if patch.AutoTransfer != nil {
		a.AutoTransfer = strings.TrimSpace(*patch.AutoTransfer)
	}
	if patch.TransferConnectingMessage != nil {
		a.TransferConnectingMessage = *patch.TransferConnectingMessage
	}
	if err := check(a); err != nil {
		return Agent{}, err
	}
	a.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, a); err != nil {
		return Agent{}, err
	}
	return a, nil
}

func (s *Service) Delete(ctx context.Context, companyID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	return s.Repo.Delete(ctx, companyID, id)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func check(a Agent) error {
	limits := []struct {
		field string
		value string
		max   int
	}{
		{"avatar", a.Avatar, 500},
		{"choice_when_unable", a.ChoiceWhenUnable, 255},
		{"auto_transfer", a.AutoTransfer, 50},
	}
	if n := utf8.RuneCountInString(a.Name); n == 0 || n > 255 {
		return fmt.Errorf("%w: agent_name must be 1-255 characters", ErrInvalidInput)
	}
	for _, l := range limits {
		if utf8.RuneCountInString(l.value) > l.max {
			return fmt.Errorf("%w: %s must be at most %d characters", ErrInvalidInput, l.field, l.max)
		}
	}
	return nil
}
