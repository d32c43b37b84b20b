package companies

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

// TenantPurger removes rows a company owns from a store that has no foreign
// key cascade.
type TenantPurger interface {
	PurgeCompany(ctx context.Context, companyID string) error
}

// Service contains company business logic.
type Service struct {
	Repo    Repo
	Now     func() time.Time
	Purgers []TenantPurger
}

// NewService constructs a Service.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo, Now: time.Now}
}

// New builds a pending company from signup input. It does not persist it.
func New(name, subdomain string, profile Patch, now time.Time) (Company, error) {
	c := profile.Apply(Company{
		ID:          uuid.NewString(),
		CompanyName: name,
		Subdomain:   subdomain,
		Status:      StatusPending,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	})
	c = normalize(c)
	if err := Validate(c); err != nil {
		return Company{}, err
	}
	return c, nil
}

// Validate enforces column limits and the subdomain format.
func Validate(c Company) error {
	if c.CompanyName == "" {
		return fmt.Errorf("%w: company_name is required", ErrInvalidInput)
	}
	if !validate.IsSubdomain(c.Subdomain) {
		return fmt.Errorf("%w: subdomain must be 3-50 lowercase letters, digits or hyphens", ErrInvalidInput)
	}
	limits := []struct {
		field string
		value string
		max   int
	}{
		{"company_name", c.CompanyName, 255},
		{"logo", c.Logo, 255},
		{"banner", c.Banner, 255},
		{"bio", c.Bio, 255},
		{"company_category", c.CompanyCategory, 100},
		{"country", c.Country, 100},
		{"language", c.Language, 10},
		{"timezone", c.Timezone, 50},
	}
	for _, l := range limits {
		if utf8.RuneCountInString(l.value) > l.max {
			return fmt.Errorf("%w: %s must be at most %d characters", ErrInvalidInput, l.field, l.max)
		}
	}
	return nil
}

// Profile returns the caller's company.
func (s *Service) Profile(ctx context.Context, companyID string) (Company, error) {
	if s == nil || s.Repo == nil {
		return Company{}, errors.New("company service not configured")
	}
	if strings.TrimSpace(companyID) == "" {
		return Company{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, companyID)
}

// Update applies a partial profile update. Status is not writable here.
func (s *Service) Update(ctx context.Context, companyID string, patch Patch) (Company, error) {
	current, err := s.Profile(ctx, companyID)
	if err != nil {
		return Company{}, err
	}
	next := normalize(patch.Apply(current))
	if err := Validate(next); err != nil {
		return Company{}, err
	}
	if err := s.Repo.Update(ctx, next); err != nil {
		return Company{}, err
	}
	updated, err := s.Repo.GetByID(ctx, companyID)
	if err != nil {
		return Company{}, err
	}
	telemetry.Info("companies.update.ok", map[string]any{"company_id": companyID})
	return updated, nil
}

// Delete removes the company and every row it owns. Postgres cascades on the
// foreign keys; the in-memory stores are cleared through Purgers.
func (s *Service) Delete(ctx context.Context, companyID string) error {
	if _, err := s.Profile(ctx, companyID); err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, companyID); err != nil {
		return err
	}
	for _, p := range s.Purgers {
		if err := p.PurgeCompany(ctx, companyID); err != nil {
			return fmt.Errorf("purge tenant rows: %w", err)
		}
	}
	telemetry.Info("companies.delete.ok", map[string]any{"company_id": companyID})
	return nil
}

// SubdomainAvailable normalizes raw and reports whether no company uses it.
func (s *Service) SubdomainAvailable(ctx context.Context, raw string) (string, bool, error) {
	subdomain := strings.ToLower(strings.TrimSpace(raw))
	if !validate.IsSubdomain(subdomain) {
		return subdomain, false, fmt.Errorf("%w: subdomain must be 3-50 lowercase letters, digits or hyphens", ErrInvalidInput)
	}
	exists, err := s.Repo.SubdomainExists(ctx, subdomain)
	if err != nil {
		return subdomain, false, err
	}
	return subdomain, !exists, nil
}

func normalize(c Company) Company {
	c.CompanyName = strings.TrimSpace(c.CompanyName)
	c.Subdomain = strings.ToLower(strings.TrimSpace(c.Subdomain))
	c.CompanyCategory = strings.TrimSpace(c.CompanyCategory)
	c.Country = strings.TrimSpace(c.Country)
	c.Language = strings.TrimSpace(c.Language)
	c.Timezone = strings.TrimSpace(c.Timezone)
	return c
}
