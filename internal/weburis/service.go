package weburis

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/queue"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/telemetry"
)

const maxURILength = 500

type Service struct {
	Repo   Repo
	Events queue.Publisher
	Now    func() time.Time
}

func NewService(repo Repo, events queue.Publisher) *Service {
	return &Service{Repo: repo, Events: events}
}

// syncRequest is the payload of weburi.sync.requested.
type syncRequest struct {
	ResourceID string `json:"resourceId"`
	CompanyID  string `json:"companyId"`
	URI        string `json:"uri"`
}

func (s *Service) Create(ctx context.Context, companyID, rawURI string) (Resource, error) {
	if s == nil || s.Repo == nil {
		return Resource{}, errors.New("weburis service not configured")
	}
	uri, err := normalizeURI(rawURI)
	if err != nil {
		return Resource{}, err
	}
	now := s.now()
	res := Resource{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		URI:       uri,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Create(ctx, res); err != nil {
		return Resource{}, err
	}
	s.requestSync(ctx, res)
	telemetry.Info("weburis.create.ok", map[string]any{"company_id": companyID, "resource_id": res.ID})
	return res, nil
}

func (s *Service) List(ctx context.Context, companyID string, status *Status) ([]Resource, error) {
	return s.Repo.List(ctx, companyID, status)
}

func (s *Service) Get(ctx context.Context, companyID, id string) (Resource, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Resource{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, companyID, id)
}

// Update applies a patch. A new URI without an explicit status is queued for sync again.
func (s *Service) Update(ctx context.Context, companyID, id string, patch Patch) (Resource, error) {
	res, err := s.Get(ctx, companyID, id)
	if err != nil {
		return Resource{}, err
	}
	resync := false
	if patch.URI != nil {
		uri, err := normalizeURI(*patch.URI)
		if err != nil {
			return Resource{}, err
		}
		if uri != res.URI {
			res.URI = uri
			resync = patch.Status == nil
			if resync {
				res.Status = StatusQueued
			}
		}
	}
	if patch.Status != nil {
		res.Status = *patch.Status
	}
	res.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, res); err != nil {
		return Resource{}, err
	}
	if resync {
		s.requestSync(ctx, res)
	}
	return res, nil
}

func (s *Service) SetStatus(ctx context.Context, companyID, id string, status Status) (Resource, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Resource{}, ErrNotFound
	}
	n, err := s.Repo.SetStatus(ctx, companyID, []string{id}, status)
	if err != nil {
		return Resource{}, err
	}
	if n == 0 {
		return Resource{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, companyID, id)
}

// BulkSetStatus updates every listed resource the company owns. Unknown ids are skipped.
func (s *Service) BulkSetStatus(ctx context.Context, companyID string, ids []string, status Status) (int, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: ids must not be empty", ErrInvalidInput)
	}
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return 0, fmt.Errorf("%w: %q is not a valid id", ErrInvalidInput, id)
		}
	}
	n, err := s.Repo.SetStatus(ctx, companyID, ids, status)
	if err != nil {
		return 0, err
	}
	telemetry.Info("weburis.bulk_status.ok", map[string]any{
		"company_id": companyID,
		"status":     string(status),
		"updated":    n,
	})
	return n, nil
}

func (s *Service) Delete(ctx context.Context, companyID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	return s.Repo.Delete(ctx, companyID, id)
}

func (s *Service) requestSync(ctx context.Context, res Resource) {
	_ = queue.PublishEvent(ctx, s.Events, queue.SubjectWebURISyncRequested, res.CompanyID, telemetry.RequestID(ctx), syncRequest{
		ResourceID: res.ID,
		CompanyID:  res.CompanyID,
		URI:        res.URI,
	})
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func normalizeURI(raw string) (string, error) {
	uri := strings.TrimSpace(raw)
	if uri == "" || utf8.RuneCountInString(uri) > maxURILength {
		return "", fmt.Errorf("%w: uri must be 1-%d characters", ErrInvalidInput, maxURILength)
	}
	u, err := url.ParseRequestURI(uri)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: uri must be a valid http(s) URL", ErrInvalidInput)
	}
	return uri, nil
}
