package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/companies"
	mailer "github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/mail"
	sharedauth "github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/auth"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/telemetry"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/util"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/users"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is retired")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidInput       = errors.New("invalid input")
)

const defaultResetTTL = time.Hour

// TokenVerifier checks refresh tokens.
type TokenVerifier interface {
	Verify(typ sharedauth.TokenType, token string) (sharedauth.Claims, error)
}

// SignupInput creates a company and its owner.
type SignupInput struct {
	CompanyName     string
	Subdomain       string
	Email           string
	UserName        string
	Password        string
	CompanyCategory string
	Country         string
	Language        string
	Timezone        string
}

type Service struct {
	Registrar Registrar
	Users     users.Repo
	Sessions  *users.Service
	Tokens    TokenVerifier
	Resets    ResetStore
	Mailer    mailer.Sender
	ResetURL  string
	ResetTTL  time.Duration
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Signup registers a pending company with an OWNER and opens a session.
func (s *Service) Signup(ctx context.Context, in SignupInput) (companies.Company, users.User, users.Session, error) {
	var (
		company companies.Company
		owner   users.User
		session users.Session
	)
	if s == nil || s.Registrar == nil || s.Sessions == nil {
		return company, owner, session, errors.New("auth service not configured")
	}
	now := s.now()
	company, err := companies.New(in.CompanyName, in.Subdomain, companies.Patch{
		CompanyCategory: optional(in.CompanyCategory),
		Country:         optional(in.Country),
		Language:        optional(in.Language),
		Timezone:        optional(in.Timezone),
	}, now)
	if err != nil {
		return company, owner, session, err
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return company, owner, session, fmt.Errorf("%w: email is invalid", ErrInvalidInput)
	}
	name := strings.TrimSpace(in.UserName)
	if name == "" || utf8.RuneCountInString(name) > 50 {
		return company, owner, session, fmt.Errorf("%w: user_name must be 1-50 characters", ErrInvalidInput)
	}
	if !sharedauth.IsStrongPassword(in.Password) {
		return company, owner, session, fmt.Errorf("%w: %v", ErrInvalidInput, sharedauth.ErrWeakPassword)
	}
	hash, err := sharedauth.HashPassword(in.Password)
	if err != nil {
		return company, owner, session, err
	}
	owner = users.User{
		ID:           uuid.NewString(),
		CompanyID:    company.ID,
		UserName:     name,
		Email:        email,
		PasswordHash: hash,
		Role:         sharedauth.RoleOwner,
		Status:       users.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Registrar.Register(ctx, company, owner); err != nil {
		return companies.Company{}, users.User{}, session, err
	}
	session, err = s.Sessions.IssueSession(ctx, owner)
	if err != nil {
		return company, owner, session, err
	}
	telemetry.Info("auth.signup.ok", map[string]any{"company_id": company.ID, "user_id": owner.ID})
	return company, owner, session, nil
}

// Login checks staff credentials.
func (s *Service) Login(ctx context.Context, email, password string) (users.User, users.Session, error) {
	user, err := s.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return users.User{}, users.Session{}, ErrInvalidCredentials
		}
		return users.User{}, users.Session{}, err
	}
	if !sharedauth.CheckPassword(user.PasswordHash, password) {
		return users.User{}, users.Session{}, ErrInvalidCredentials
	}
	if user.Status == users.StatusRetired {
		return users.User{}, users.Session{}, ErrAccountDisabled
	}
	session, err := s.Sessions.IssueSession(ctx, user)
	if err != nil {
		return users.User{}, users.Session{}, err
	}
	telemetry.Info("auth.login.ok", map[string]any{"company_id": user.CompanyID, "user_id": user.ID})
	return user, session, nil
}

// Refresh rotates the session when token matches the stored refresh hash.
func (s *Service) Refresh(ctx context.Context, token string) (users.User, users.Session, error) {
	claims, err := s.Tokens.Verify(sharedauth.TokenRefresh, token)
	if err != nil {
		return users.User{}, users.Session{}, ErrInvalidToken
	}
	user, err := s.Users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return users.User{}, users.Session{}, ErrInvalidToken
		}
		return users.User{}, users.Session{}, err
	}
	if !users.CheckRefreshToken(user.RefreshTokenHash, token) {
		return users.User{}, users.Session{}, ErrInvalidToken
	}
	if user.Status == users.StatusRetired {
		return users.User{}, users.Session{}, ErrAccountDisabled
	}
	session, err := s.Sessions.IssueSession(ctx, user)
	if err != nil {
		return users.User{}, users.Session{}, err
	}
	return user, session, nil
}

func (s *Service) Logout(ctx context.Context, userID string) error {
	err := s.Users.SetRefreshToken(ctx, userID, "")
	if errors.Is(err, users.ErrNotFound) {
		return nil
	}
	return err
}

// ForgotPassword mails a single-use reset link when email belongs to a user.
// Unknown emails succeed silently.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			telemetry.Info("auth.password.forgot.unknown", nil)
			return nil
		}
		return err
	}
	token := util.RandomHex(32)
	now := s.now()
	ttl := s.resetTTL()
	if err := s.Resets.Create(ctx, ResetToken{
		TokenHash: util.SHA256Hex(token),
		UserID:    user.ID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}); err != nil {
		return err
	}
	msg, err := mailer.PasswordReset(mailer.PasswordResetData{
		To:       user.Email,
		UserName: user.UserName,
		BaseURL:  s.ResetURL,
		Token:    token,
		TTL:      ttl,
	})
	if err != nil {
		return err
	}
	if err := mailer.Deliver(ctx, s.Mailer, msg); err != nil {
		return err
	}
	telemetry.Info("auth.password.forgot.sent", map[string]any{"user_id": user.ID})
	return nil
}

// ResetPassword consumes token and sets a new password, ending all sessions.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if !sharedauth.IsStrongPassword(newPassword) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, sharedauth.ErrWeakPassword)
	}
	hashKey := util.SHA256Hex(strings.TrimSpace(token))
	stored, err := s.Resets.Get(ctx, hashKey)
	if err != nil {
		if errors.Is(err, ErrResetNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	now := s.now()
	if stored.UsedAt != nil || !now.Before(stored.ExpiresAt) {
		return ErrInvalidToken
	}
	hash, err := sharedauth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	// The token is spent only once the new password is stored.
	if err := s.Users.SetPassword(ctx, stored.UserID, hash); err != nil {
		return err
	}
	if err := s.Resets.MarkUsed(ctx, hashKey, now); err != nil {
		if errors.Is(err, ErrResetNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	if err := s.Users.SetRefreshToken(ctx, stored.UserID, ""); err != nil {
		return err
	}
	telemetry.Info("auth.password.reset.ok", map[string]any{"user_id": stored.UserID})
	return nil
}

func (s *Service) resetTTL() time.Duration {
	if s.ResetTTL > 0 {
		return s.ResetTTL
	}
	return defaultResetTTL
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
