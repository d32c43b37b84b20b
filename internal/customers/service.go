package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/companies"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/auth"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/server/middleware"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/telemetry"
)

// CompanyChecker confirms the tenant a customer registers with.
type CompanyChecker interface {
	GetByID(ctx context.Context, id string) (companies.Company, error)
}

type TokenIssuer interface {
	Sign(typ auth.TokenType, subject string, claims auth.Claims) (string, time.Time, error)
}

// Session is a signed customer token.
type Session struct {
	AccessToken string
	ExpiresAt   time.Time
}

type Service struct {
	Repo      Repo
	Companies CompanyChecker
	Tokens    TokenIssuer
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Register creates a customer for an existing company and opens a session.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Customer, Session, error) {
	if s == nil || s.Repo == nil {
		return Customer{}, Session{}, errors.New("customers service not configured")
	}
	source, ok := ParseSource(in.Source)
	if !ok {
		return Customer{}, Session{}, fmt.Errorf("%w: unsupported source %q", ErrInvalidInput, in.Source)
	}
	c := Customer{
		ID:         uuid.NewString(),
		CompanyID:  strings.TrimSpace(in.CompanyID),
		Name:       strings.TrimSpace(in.Name),
		ProfileURI: strings.TrimSpace(in.ProfileURI),
		Contact:    strings.TrimSpace(in.Contact),
		Source:     source,
		CreatedAt:  s.now(),
	}
	c.UpdatedAt = c.CreatedAt
	if err := checkFields(c.Name, c.ProfileURI); err != nil {
		return Customer{}, Session{}, err
	}
	if c.Contact == "" || utf8.RuneCountInString(c.Contact) > 255 {
		return Customer{}, Session{}, fmt.Errorf("%w: contact must be 1-255 characters", ErrInvalidInput)
	}
	if len(in.Password) < 8 {
		return Customer{}, Session{}, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	if s.Companies != nil {
		if _, err := s.Companies.GetByID(ctx, c.CompanyID); err != nil {
			if errors.Is(err, companies.ErrNotFound) {
				return Customer{}, Session{}, ErrCompanyNotFound
			}
			return Customer{}, Session{}, err
		}
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Customer{}, Session{}, err
	}
	c.PasswordHash = hash
	if err := s.Repo.Create(ctx, c); err != nil {
		return Customer{}, Session{}, err
	}
	session, err := s.sign(c)
	if err != nil {
		return Customer{}, Session{}, err
	}
	telemetry.Info("customers.register.ok", map[string]any{"company_id": c.CompanyID, "customer_id": c.ID, "source": string(c.Source)})
	return c, session, nil
}

// Login checks credentials. Every mismatch is reported as ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, in LoginInput) (Customer, Session, error) {
	source, ok := ParseSource(in.Source)
	if !ok {
		return Customer{}, Session{}, ErrInvalidCredentials
	}
	c, err := s.Repo.GetByContact(ctx, strings.TrimSpace(in.CompanyID), strings.TrimSpace(in.Contact), source)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Customer{}, Session{}, ErrInvalidCredentials
		}
		return Customer{}, Session{}, err
	}
	if !auth.CheckPassword(c.PasswordHash, in.Password) {
		return Customer{}, Session{}, ErrInvalidCredentials
	}
	session, err := s.sign(c)
	if err != nil {
		return Customer{}, Session{}, err
	}
	return c, session, nil
}

// Lookup adapts the repo for middleware.CustomerAuth.
func (s *Service) Lookup(ctx context.Context, id string) (middleware.CustomerIdentity, error) {
	c, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return middleware.CustomerIdentity{}, err
	}
	return middleware.CustomerIdentity{ID: c.ID, CompanyID: c.CompanyID, Source: string(c.Source)}, nil
}

func (s *Service) Profile(ctx context.Context, companyID, id string) (Customer, error) {
	c, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Customer{}, err
	}
	if c.CompanyID != companyID {
		return Customer{}, ErrNotFound
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, companyID, id string, patch Patch) (Customer, error) {
	c, err := s.Profile(ctx, companyID, id)
	if err != nil {
		return Customer{}, err
	}
	if patch.Name != nil {
		c.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.ProfileURI != nil {
		c.ProfileURI = strings.TrimSpace(*patch.ProfileURI)
	}
	if err := checkFields(c.Name, c.ProfileURI); err != nil {
		return Customer{}, err
	}
	if patch.Password != nil {
		if len(*patch.Password) < 8 {
			return Customer{}, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
		}
		if c.PasswordHash, err = auth.HashPassword(*patch.Password); err != nil {
			return Customer{}, err
		}
	}
	if err := s.Repo.Update(ctx, c); err != nil {
		return Customer{}, err
	}
	return s.Profile(ctx, companyID, id)
}

func (s *Service) Delete(ctx context.Context, companyID, id string) error {
	if err := s.Repo.Delete(ctx, companyID, id); err != nil {
		return err
	}
	telemetry.Info("customers.delete.ok", map[string]any{"company_id": companyID, "customer_id": id})
	return nil
}

func (s *Service) List(ctx context.Context, companyID string) ([]Customer, error) {
	return s.Repo.ListByCompany(ctx, companyID)
}

// IncrementConversationCount is a no-op for customers outside companyID.
func (s *Service) IncrementConversationCount(ctx context.Context, companyID, id string) error {
	err := s.Repo.IncrementConversationCount(ctx, companyID, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

func (s *Service) sign(c Customer) (Session, error) {
	if s.Tokens == nil {
		return Session{}, errors.New("customer tokens not configured")
	}
	token, exp, err := s.Tokens.Sign(auth.TokenCustomer, c.ID, auth.Claims{
		CompanyID: c.CompanyID,
		Source:    string(c.Source),
		Contact:   c.Contact,
	})
	if err != nil {
		return Session{}, err
	}
	return Session{AccessToken: token, ExpiresAt: exp}, nil
}

func checkFields(name, profileURI string) error {
	if n := utf8.RuneCountInString(name); n < 2 || n > 255 {
		return fmt.Errorf("%w: name must be 2-255 characters", ErrInvalidInput)
	}
	if utf8.RuneCountInString(profileURI) > 500 {
		return fmt.Errorf("%w: profile_uri must be at most 500 characters", ErrInvalidInput)
	}
	return nil
}
