package socialconnections

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

// TokenVerifier checks a platform token against the provider.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (bool, string, error)
}

type Service struct {
	Repo Repo
	// Verifier is nil when Meta is not configured.
	Verifier TokenVerifier
	Now      func() time.Time
}

func NewService(repo Repo, verifier TokenVerifier) *Service {
	return &Service{Repo: repo, Verifier: verifier}
}

// Create stores a connection. User and page rows are upserted by id; every
// other type is unique per company.
func (s *Service) Create(ctx context.Context, companyID string, in Input) (Connection, error) {
	if s == nil || s.Repo == nil {
		return Connection{}, errors.New("social connections service not configured")
	}
	platformType, ok := ParsePlatformType(in.PlatformType)
	if !ok {
		return Connection{}, fmt.Errorf("%w: unsupported platform_type %q", ErrInvalidInput, in.PlatformType)
	}
	now := s.now()
	c := Connection{
		ID:           strings.TrimSpace(in.ID),
		CompanyID:    companyID,
		PlatformName: strings.TrimSpace(in.PlatformName),
		PlatformType: platformType,
		Token:        strings.TrimSpace(in.Token),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if n := utf8.RuneCountInString(c.PlatformName); n == 0 || n > 100 {
		return Connection{}, fmt.Errorf("%w: platform_name must be 1-100 characters", ErrInvalidInput)
	}
	if c.Token == "" {
		return Connection{}, fmt.Errorf("%w: platform_token is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(c.ID) > 255 {
		return Connection{}, fmt.Errorf("%w: id must be at most 255 characters", ErrInvalidInput)
	}

	if IsMetaType(platformType) && c.ID != "" {
		if err := s.Repo.Upsert(ctx, c); err != nil {
			return Connection{}, err
		}
		return s.Repo.GetByID(ctx, companyID, c.ID)
	}

	exists, err := s.Repo.TypeExists(ctx, companyID, platformType)
	if err != nil {
		return Connection{}, err
	}
	if exists {
		return Connection{}, fmt.Errorf("%w: a %s connection already exists for this company", ErrConflict, platformType)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := s.Repo.Create(ctx, c); err != nil {
		return Connection{}, err
	}
	telemetry.Info("socialconnections.create.ok", map[string]any{
		"company_id":    companyID,
		"platform_type": platformType,
	})
	return c, nil
}

// Upsert stores a Meta user or page connection keyed by its Meta id.
func (s *Service) Upsert(ctx context.Context, companyID string, in Input) (Connection, error) {
	if !IsMetaType(in.PlatformType) || strings.TrimSpace(in.ID) == "" {
		return Connection{}, fmt.Errorf("%w: upsert needs a user or page id", ErrInvalidInput)
	}
	return s.Create(ctx, companyID, in)
}

func (s *Service) List(ctx context.Context, companyID string) ([]Connection, error) {
	return s.Repo.List(ctx, companyID, nil)
}

// MetaConnections lists the user and page rows written by the OAuth flow.
func (s *Service) MetaConnections(ctx context.Context, companyID string) ([]Connection, error) {
	return s.Repo.List(ctx, companyID, []string{TypeUser, TypePage})
}

func (s *Service) Get(ctx context.Context, companyID, id string) (Connection, error) {
	c, err := s.Repo.GetByID(ctx, companyID, id)
	if errors.Is(err, ErrNotFound) {
		return Connection{}, &NotFoundError{ID: id}
	}
	return c, err
}

func (s *Service) Stats(ctx context.Context, companyID string) (Stats, error) {
	counts, err := s.Repo.CountByType(ctx, companyID)
	if err != nil {
		return Stats{}, err
	}
	out := Stats{ByPlatform: counts}
	for _, tc := range counts {
		out.Total += tc.Count
	}
	if out.ByPlatform == nil {
		out.ByPlatform = []TypeCount{}
	}
	return out, nil
}

// Verify checks the stored token with the provider when one is configured,
// otherwise only that a token is present.
func (s *Service) Verify(ctx context.Context, companyID, id string) (bool, string, error) {
	c, err := s.Get(ctx, companyID, id)
	if err != nil {
		return false, "", err
	}
	if c.Token == "" {
		return false, "Token is missing", nil
	}
	if s.Verifier == nil {
		return true, "Token is present", nil
	}
	valid, message, err := s.Verifier.VerifyToken(ctx, c.Token)
	if err != nil {
		telemetry.Warn("socialconnections.verify.failed", map[string]any{
			"company_id": companyID,
			"id":         id,
			"error":      err,
		})
		return false, "Token verification failed", nil
	}
	return valid, message, nil
}

func (s *Service) Delete(ctx context.Context, companyID, id string) error {
	err := s.Repo.Delete(ctx, companyID, id)
	if errors.Is(err, ErrNotFound) {
		return &NotFoundError{ID: id}
	}
	return err
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// NotFoundError carries the id for the 404 message.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Social connection with ID %s not found or access denied", e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }
