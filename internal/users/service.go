package users

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/companies"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/mail"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/auth"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/telemetry"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/util"
)

// Directory resolves ids of company-owned groups (departments, shifts) to names.
// Ids that are unknown or belong to another company are absent from the result.
type Directory interface {
	Names(ctx context.Context, companyID string, ids []string) (map[string]string, error)
}

// CompanyReader loads the company an invitation is sent for.
type CompanyReader interface {
	GetByID(ctx context.Context, id string) (companies.Company, error)
}

// TokenIssuer signs session and invitation tokens.
type TokenIssuer interface {
	Sign(typ auth.TokenType, subject string, claims auth.Claims) (string, time.Time, error)
	TTL(typ auth.TokenType) time.Duration
}

// Actor is the authenticated caller.
type Actor struct {
	UserID    string
	CompanyID string
	Role      string
}

// InvalidIDsError lists referenced groups that do not belong to the caller's company.
type InvalidIDsError struct {
	DepartmentIDs []string `json:"invalid_department_ids,omitempty"`
	ShiftIDs      []string `json:"invalid_shift_ids,omitempty"`
}

func (e *InvalidIDsError) Error() string {
	return "some departments or shifts do not belong to this company"
}

func (e *InvalidIDsError) Unwrap() error { return ErrInvalidInput }

// InviteInput is the payload of an invitation.
type InviteInput struct {
	Email         string
	Role          string
	DepartmentIDs []string
	ShiftIDs      []string
}

// Invitation is a stored pending user plus its signed registration token.
type Invitation struct {
	Pending   PendingUser
	Token     string
	ExpiresAt time.Time
}

// RegistrationInput completes an invitation.
type RegistrationInput struct {
	UserName   string
	Password   string
	ProfileURI string
	Bio        string
}

// Listed is a user row with resolved department names.
type Listed struct {
	User        User
	Departments []DepartmentRef
}

// DepartmentRef names a department a user belongs to.
type DepartmentRef struct {
	ID   string
	Name string
}

// Service contains user, invitation and session logic.
type Service struct {
	Repo        Repo
	Departments Directory
	Shifts      Directory
	Companies   CompanyReader
	Tokens      TokenIssuer
	Mailer      mail.Sender
	InviteURL   string
	Now         func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) ready() error {
	if s == nil || s.Repo == nil {
		return errors.New("users service not configured")
	}
	return nil
}

// Invite records a pending user and mails the registration link.
func (s *Service) Invite(ctx context.Context, actor Actor, in InviteInput) (Invitation, error) {
	if err := s.ready(); err != nil {
		return Invitation{}, err
	}
	email := normalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") || len(email) > 50 {
		return Invitation{}, fmt.Errorf("%w: a valid email of at most 50 characters is required", ErrInvalidInput)
	}
	role := auth.RoleEmployee
	if strings.TrimSpace(in.Role) != "" {
		r, ok := auth.NormalizeRole(in.Role)
		if !ok {
			return Invitation{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
		}
		role = r
	}
	if role == auth.RoleOwner {
		return Invitation{}, fmt.Errorf("%w: owners cannot be invited", ErrInvalidInput)
	}

	inUse, err := s.Repo.EmailInUse(ctx, email)
	if err != nil {
		return Invitation{}, err
	}
	if inUse {
		return Invitation{}, ErrEmailTaken
	}

	deptIDs := dedupe(in.DepartmentIDs)
	shiftIDs := dedupe(in.ShiftIDs)
	if err := s.checkGroups(ctx, actor.CompanyID, deptIDs, shiftIDs); err != nil {
		return Invitation{}, err
	}

	now := s.now()
	pending := PendingUser{
		ID:            uuid.NewString(),
		CompanyID:     actor.CompanyID,
		Email:         email,
		Role:          role,
		InvitedBy:     actor.UserID,
		DepartmentIDs: deptIDs,
		ShiftIDs:      shiftIDs,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Repo.CreatePending(ctx, pending); err != nil {
		return Invitation{}, err
	}

	inv, err := s.sendInvitation(ctx, pending)
	if err != nil {
		if delErr := s.Repo.DeletePending(ctx, pending.CompanyID, pending.ID); delErr != nil {
			telemetry.Warn("users.invite.cleanup_failed", map[string]any{"pending_user_id": pending.ID, "error": delErr.Error()})
		}
		return Invitation{}, err
	}
	telemetry.Info("users.invite.sent", map[string]any{
		"company_id":      actor.CompanyID,
		"pending_user_id": pending.ID,
		"role":            role,
	})
	return inv, nil
}

// ResendInvitation signs a fresh token for a pending user and mails it again.
func (s *Service) ResendInvitation(ctx context.Context, actor Actor, pendingID string) (Invitation, error) {
	if err := s.ready(); err != nil {
		return Invitation{}, err
	}
	pending, err := s.pendingInCompany(ctx, actor.CompanyID, pendingID)
	if err != nil {
		return Invitation{}, err
	}
	now := s.now()
	if err := s.Repo.TouchPending(ctx, actor.CompanyID, pending.ID, now); err != nil {
		return Invitation{}, err
	}
	pending.UpdatedAt = now
	inv, err := s.sendInvitation(ctx, pending)
	if err != nil {
		return Invitation{}, err
	}
	telemetry.Info("users.invite.resent", map[string]any{"company_id": actor.CompanyID, "pending_user_id": pending.ID})
	return inv, nil
}

// ListPending returns the company's open invitations, newest first.
func (s *Service) ListPending(ctx context.Context, companyID string) ([]PendingUser, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.Repo.ListPending(ctx, companyID)
}

// RevokePending deletes an invitation.
func (s *Service) RevokePending(ctx context.Context, companyID, pendingID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.Repo.DeletePending(ctx, companyID, pendingID); err != nil {
		return err
	}
	telemetry.Info("users.invite.revoked", map[string]any{"company_id": companyID, "pending_user_id": pendingID})
	return nil
}

// Register turns the invitation identified by claims into a user and opens a session.
func (s *Service) Register(ctx context.Context, claims auth.Claims, in RegistrationInput) (User, Session, error) {
	if err := s.ready(); err != nil {
		return User{}, Session{}, err
	}
	if claims.Type != auth.TokenInvite || claims.Subject == "" {
		return User{}, Session{}, ErrInvalidToken
	}
	name := strings.TrimSpace(in.UserName)
	if name == "" || utf8.RuneCountInString(name) > 50 {
		return User{}, Session{}, fmt.Errorf("%w: user_name must be 1-50 characters", ErrInvalidInput)
	}
	if !auth.IsStrongPassword(in.Password) {
		return User{}, Session{}, fmt.Errorf("%w: %v", ErrInvalidInput, auth.ErrWeakPassword)
	}

	pending, err := s.Repo.GetPending(ctx, claims.Subject)
	if err != nil {
		return User{}, Session{}, err
	}
	if pending.CompanyID != claims.CompanyID || !strings.EqualFold(pending.Email, claims.Email) {
		return User{}, Session{}, ErrInvalidToken
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return User{}, Session{}, err
	}
	now := s.now()
	user := User{
		ID:           uuid.NewString(),
		CompanyID:    pending.CompanyID,
		UserName:     name,
		Email:        pending.Email,
		PasswordHash: hash,
		ProfileURI:   strings.TrimSpace(in.ProfileURI),
		Bio:          strings.TrimSpace(in.Bio),
		Role:         pending.Role,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.CompleteRegistration(ctx, pending.ID, user); err != nil {
		return User{}, Session{}, err
	}
	session, err := s.IssueSession(ctx, user)
	if err != nil {
		return User{}, Session{}, err
	}
	telemetry.Info("users.registration.ok", map[string]any{"company_id": user.CompanyID, "user_id": user.ID})
	return user, session, nil
}

// IssueSession signs an access/refresh pair and stores the refresh token hash.
func (s *Service) IssueSession(ctx context.Context, user User) (Session, error) {
	if err := s.ready(); err != nil {
		return Session{}, err
	}
	if s.Tokens == nil {
		return Session{}, errors.New("token issuer not configured")
	}
	access, accessExp, err := s.Tokens.Sign(auth.TokenAccess, user.ID, auth.Claims{
		CompanyID: user.CompanyID,
		Role:      user.Role,
		Email:     user.Email,
	})
	if err != nil {
		return Session{}, err
	}
	refresh, refreshExp, err := s.Tokens.Sign(auth.TokenRefresh, user.ID, auth.Claims{CompanyID: user.CompanyID})
	if err != nil {
		return Session{}, err
	}
	hash, err := HashRefreshToken(refresh)
	if err != nil {
		return Session{}, err
	}
	if err := s.Repo.SetRefreshToken(ctx, user.ID, hash); err != nil {
		return Session{}, err
	}
	return Session{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// HashRefreshToken returns the bcrypt hash stored for a refresh token. Tokens
// are pre-hashed with SHA-256 because bcrypt only reads 72 bytes.
func HashRefreshToken(token string) (string, error) {
	return auth.HashPassword(util.SHA256Hex(token))
}

// CheckRefreshToken compares a presented refresh token with the stored hash.
func CheckRefreshToken(hash, token string) bool {
	return auth.CheckPassword(hash, util.SHA256Hex(token))
}

// List returns the company's users, newest first, with their departments.
func (s *Service) List(ctx context.Context, companyID string) ([]Listed, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	list, err := s.Repo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(list))
	for i, u := range list {
		ids[i] = u.ID
	}
	deptsByUser, err := s.Repo.DepartmentIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	var allDepts []string
	for _, d := range deptsByUser {
		allDepts = append(allDepts, d...)
	}
	names := map[string]string{}
	if s.Departments != nil && len(allDepts) > 0 {
		names, err = s.Departments.Names(ctx, companyID, dedupe(allDepts))
		if err != nil {
			return nil, err
		}
	}

	out := make([]Listed, 0, len(list))
	for _, u := range list {
		item := Listed{User: u, Departments: []DepartmentRef{}}
		for _, id := range deptsByUser[u.ID] {
			if name, ok := names[id]; ok {
				item.Departments = append(item.Departments, DepartmentRef{ID: id, Name: name})
			}
		}
		out = append(out, item)
	}
	return out, nil
}

// Profile returns a user of the caller's company.
func (s *Service) Profile(ctx context.Context, companyID, userID string) (User, error) {
	if err := s.ready(); err != nil {
		return User{}, err
	}
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if u.CompanyID != companyID {
		return User{}, ErrNotFound
	}
	return u, nil
}

// Essential returns the ids a realtime socket needs to join its rooms.
func (s *Service) Essential(ctx context.Context, companyID, userID string) (User, []string, error) {
	u, err := s.Profile(ctx, companyID, userID)
	if err != nil {
		return User{}, nil, err
	}
	depts, err := s.Repo.DepartmentIDs(ctx, []string{u.ID})
	if err != nil {
		return User{}, nil, err
	}
	ids := depts[u.ID]
	if ids == nil {
		ids = []string{}
	}
	return u, ids, nil
}

// UpdateProfile applies a self-service update. Role changes need a manager and
// never leave the company without an owner.
func (s *Service) UpdateProfile(ctx context.Context, actor Actor, patch ProfilePatch) (User, error) {
	u, err := s.Profile(ctx, actor.CompanyID, actor.UserID)
	if err != nil {
		return User{}, err
	}
	if patch.UserName != nil {
		name := strings.TrimSpace(*patch.UserName)
		if name == "" || utf8.RuneCountInString(name) > 50 {
			return User{}, fmt.Errorf("%w: user_name must be 1-50 characters", ErrInvalidInput)
		}
		u.UserName = name
	}
	if patch.Bio != nil {
		u.Bio = strings.TrimSpace(*patch.Bio)
	}
	if patch.ProfileURI != nil {
		u.ProfileURI = strings.TrimSpace(*patch.ProfileURI)
	}
	if patch.Status != nil {
		status, ok := ParseStatus(*patch.Status)
		if !ok {
			return User{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *patch.Status)
		}
		u.Status = status
	}
	if patch.Role != nil {
		role, ok := auth.NormalizeRole(*patch.Role)
		if !ok {
			return User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, *patch.Role)
		}
		if role != u.Role {
			if err := s.checkRoleChange(ctx, actor, u, role); err != nil {
				return User{}, err
			}
			u.Role = role
		}
	}
	if err := s.Repo.Update(ctx, u); err != nil {
		return User{}, err
	}
	return s.Repo.GetByID(ctx, u.ID)
}

func (s *Service) checkRoleChange(ctx context.Context, actor Actor, target User, role string) error {
	if !auth.IsManager(actor.Role) {
		return fmt.Errorf("%w: only owners and admins can change roles", ErrForbidden)
	}
	if role == auth.RoleOwner && !strings.EqualFold(actor.Role, auth.RoleOwner) {
		return fmt.Errorf("%w: only owners can grant the owner role", ErrForbidden)
	}
	if target.Role == auth.RoleOwner {
		owners, err := s.Repo.CountByRole(ctx, target.CompanyID, auth.RoleOwner)
		if err != nil {
			return err
		}
		if owners <= 1 {
			return ErrLastOwner
		}
	}
	return nil
}

// ChangePassword verifies the old password before storing the new one.
func (s *Service) ChangePassword(ctx context.Context, actor Actor, oldPassword, newPassword string) error {
	u, err := s.Profile(ctx, actor.CompanyID, actor.UserID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}
	if !auth.IsStrongPassword(newPassword) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, auth.ErrWeakPassword)
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Repo.SetPassword(ctx, u.ID, hash); err != nil {
		return err
	}
	telemetry.Info("users.password.changed", map[string]any{"company_id": u.CompanyID, "user_id": u.ID})
	return nil
}

func (s *Service) pendingInCompany(ctx context.Context, companyID, pendingID string) (PendingUser, error) {
	p, err := s.Repo.GetPending(ctx, pendingID)
	if err != nil {
		return PendingUser{}, err
	}
	if p.CompanyID != companyID {
		return PendingUser{}, ErrPendingNotFound
	}
	return p, nil
}

func (s *Service) checkGroups(ctx context.Context, companyID string, deptIDs, shiftIDs []string) error {
	invalid := &InvalidIDsError{}
	var err error
	if invalid.DepartmentIDs, err = unknownIDs(ctx, s.Departments, companyID, deptIDs); err != nil {
		return err
	}
	if invalid.ShiftIDs, err = unknownIDs(ctx, s.Shifts, companyID, shiftIDs); err != nil {
		return err
	}
	if len(invalid.DepartmentIDs) > 0 || len(invalid.ShiftIDs) > 0 {
		return invalid
	}
	return nil
}

func unknownIDs(ctx context.Context, dir Directory, companyID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if dir == nil {
		return ids, nil
	}
	names, err := dir.Names(ctx, companyID, ids)
	if err != nil {
		return nil, err
	}
	var unknown []string
	for _, id := range ids {
		if _, ok := names[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	return unknown, nil
}

func (s *Service) sendInvitation(ctx context.Context, pending PendingUser) (Invitation, error) {
	if s.Tokens == nil {
		return Invitation{}, errors.New("token issuer not configured")
	}
	token, exp, err := s.Tokens.Sign(auth.TokenInvite, pending.ID, auth.Claims{
		CompanyID: pending.CompanyID,
		Email:     pending.Email,
		Role:      pending.Role,
	})
	if err != nil {
		return Invitation{}, err
	}

	companyName := "your company"
	if s.Companies != nil {
		if c, err := s.Companies.GetByID(ctx, pending.CompanyID); err == nil {
			companyName = c.CompanyName
		}
	}
	msg, err := mail.Invitation(mail.InvitationData{
		To:          pending.Email,
		CompanyName: companyName,
		Role:        pending.Role,
		BaseURL:     s.InviteURL,
		Token:       token,
		TTL:         s.Tokens.TTL(auth.TokenInvite),
	})
	if err != nil {
		return Invitation{}, err
	}
	if err := mail.Deliver(ctx, s.Mailer, msg); err != nil {
		return Invitation{}, fmt.Errorf("send invitation: %w", err)
	}
	return Invitation{Pending: pending, Token: token, ExpiresAt: exp}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
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
	sort.Strings(out)
	return out
}
