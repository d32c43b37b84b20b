package users

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/companies"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/mail"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/auth"
)

type fakeDirectory map[string]map[string]string // companyID -> id -> name

func (d fakeDirectory) Names(ctx context.Context, companyID string, ids []string) (map[string]string, error) {
	out := map[string]string{}
	for _, id := range ids {
		if name, ok := d[companyID][id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

type fixture struct {
	svc     *Service
	repo    *MemoryRepo
	mailer  *mail.LogSender
	issuer  *auth.Issuer
	owner   User
	company companies.Company
}

const (
	deptSales   = "11111111-1111-1111-1111-111111111111"
	deptSupport = "22222222-2222-2222-2222-222222222222"
	shiftDay    = "33333333-3333-3333-3333-333333333333"
)

func newFixture(t *testing.T) fixture {
	t.Helper()
	issuer, err := auth.NewIssuer(auth.IssuerConfig{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	companyRepo := companies.NewMemoryRepo()
	company, err := companies.New("Butter Co", "butter", companies.Patch{}, time.Now())
	if err != nil {
		t.Fatalf("companies.New: %v", err)
	}
	if err := companyRepo.Create(context.Background(), company); err != nil {
		t.Fatalf("create company: %v", err)
	}

	repo := NewMemoryRepo()
	hash, _ := auth.HashPassword("Owner@123")
	owner := User{
		ID:           "owner-1",
		CompanyID:    company.ID,
		UserName:     "Owner",
		Email:        "owner@butter.test",
		PasswordHash: hash,
		Role:         auth.RoleOwner,
		Status:       StatusActive,
		CreatedAt:    time.Now().UTC().Add(-time.Hour),
	}
	if err := repo.Create(context.Background(), owner); err != nil {
		t.Fatalf("create owner: %v", err)
	}

	mailer := mail.NewLogSender()
	svc := &Service{
		Repo:        repo,
		Departments: fakeDirectory{company.ID: {deptSales: "Sales", deptSupport: "Support"}},
		Shifts:      fakeDirectory{company.ID: {shiftDay: "Day"}},
		Companies:   companyRepo,
		Tokens:      issuer,
		Mailer:      mailer,
		InviteURL:   "https://app.butter.test/invite",
	}
	return fixture{svc: svc, repo: repo, mailer: mailer, issuer: issuer, owner: owner, company: company}
}

func (f fixture) actor() Actor {
	return Actor{UserID: f.owner.ID, CompanyID: f.owner.CompanyID, Role: f.owner.Role}
}

func TestInviteValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Invite(ctx, f.actor(), InviteInput{Email: "boss@butter.test", Role: "owner"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected owner invite to be rejected, got %v", err)
	}
	if _, err := f.svc.Invite(ctx, f.actor(), InviteInput{Email: "OWNER@butter.test"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected existing email conflict, got %v", err)
	}

	_, err := f.svc.Invite(ctx, f.actor(), InviteInput{
		Email:         "new@butter.test",
		DepartmentIDs: []string{deptSales, "99999999-9999-9999-9999-999999999999"},
		ShiftIDs:      []string{"88888888-8888-8888-8888-888888888888"},
	})
	var invalid *InvalidIDsError
	if !errors.As(err, &invalid) || !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected InvalidIDsError, got %v", err)
	}
	if len(invalid.DepartmentIDs) != 1 || invalid.DepartmentIDs[0] != "99999999-9999-9999-9999-999999999999" || len(invalid.ShiftIDs) != 1 {
		t.Fatalf("unexpected invalid ids: %+v", invalid)
	}
	if pending, _ := f.repo.ListPending(ctx, f.company.ID); len(pending) != 0 {
		t.Fatalf("expected no pending users after failed invites, got %d", len(pending))
	}
}

func TestInviteAndRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.svc.Invite(ctx, f.actor(), InviteInput{
		Email:         " New.Hire@Butter.test ",
		Role:          "admin",
		DepartmentIDs: []string{deptSales},
		ShiftIDs:      []string{shiftDay},
	})
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if inv.Pending.Email != "new.hire@butter.test" || inv.Pending.Role != auth.RoleAdmin || inv.Pending.InvitedBy != f.owner.ID {
		t.Fatalf("unexpected pending user: %+v", inv.Pending)
	}

	msg, ok := f.mailer.Last("new.hire@butter.test")
	if !ok {
		t.Fatalf("expected invitation mail")
	}
	if msg.Subject != "Welcome to Butter Co - Account Created" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.Text, "https://app.butter.test/invite?token="+inv.Token) {
		t.Fatalf("expected link with token in mail body: %s", msg.Text)
	}

	if _, err := f.svc.Invite(ctx, f.actor(), InviteInput{Email: "new.hire@butter.test"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected pending email conflict, got %v", err)
	}

	claims, err := f.issuer.Verify(auth.TokenInvite, inv.Token)
	if err != nil {
		t.Fatalf("Verify invite: %v", err)
	}
	if _, _, err := f.svc.Register(ctx, claims, RegistrationInput{UserName: "Hire", Password: "weak"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected weak password rejection, got %v", err)
	}

	user, session, err := f.svc.Register(ctx, claims, RegistrationInput{UserName: "Hire", Password: "Hire@1234"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Role != auth.RoleAdmin || user.Status != StatusActive || user.CompanyID != f.company.ID {
		t.Fatalf("unexpected user: %+v", user)
	}
	access, err := f.issuer.Verify(auth.TokenAccess, session.AccessToken)
	if err != nil || access.Subject != user.ID || access.CompanyID != f.company.ID || access.Role != auth.RoleAdmin {
		t.Fatalf("unexpected access claims %+v: %v", access, err)
	}
	stored, _ := f.repo.GetByID(ctx, user.ID)
	if !CheckRefreshToken(stored.RefreshTokenHash, session.RefreshToken) {
		t.Fatalf("expected refresh token hash to be stored")
	}

	_, depts, err := f.svc.Essential(ctx, f.company.ID, user.ID)
	if err != nil || len(depts) != 1 || depts[0] != deptSales {
		t.Fatalf("expected copied department membership, got %v %v", depts, err)
	}
	if _, _, err := f.svc.Register(ctx, claims, RegistrationInput{UserName: "Hire", Password: "Hire@1234"}); !errors.Is(err, ErrPendingNotFound) {
		t.Fatalf("expected second registration to fail with ErrPendingNotFound, got %v", err)
	}
}

func TestRegisterRejectsForeignClaims(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, err := f.svc.Invite(ctx, f.actor(), InviteInput{Email: "x@butter.test"})
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	claims, _ := f.issuer.Verify(auth.TokenInvite, inv.Token)
	claims.CompanyID = "another-company"
	if _, _, err := f.svc.Register(ctx, claims, RegistrationInput{UserName: "X", Password: "Xx@12345"}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestResendAndRevokeAreCompanyScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, err := f.svc.Invite(ctx, f.actor(), InviteInput{Email: "y@butter.test"})
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	stranger := Actor{UserID: "u-2", CompanyID: "other", Role: auth.RoleOwner}
	if _, err := f.svc.ResendInvitation(ctx, stranger, inv.Pending.ID); !errors.Is(err, ErrPendingNotFound) {
		t.Fatalf("expected cross-tenant resend to be not found, got %v", err)
	}
	if err := f.svc.RevokePending(ctx, "other", inv.Pending.ID); !errors.Is(err, ErrPendingNotFound) {
		t.Fatalf("expected cross-tenant revoke to be not found, got %v", err)
	}
	resent, err := f.svc.ResendInvitation(ctx, f.actor(), inv.Pending.ID)
	if err != nil {
		t.Fatalf("ResendInvitation: %v", err)
	}
	if resent.Token == "" || len(f.mailer.Sent()) != 2 {
		t.Fatalf("expected a second invitation mail")
	}
	if err := f.svc.RevokePending(ctx, f.company.ID, inv.Pending.ID); err != nil {
		t.Fatalf("RevokePending: %v", err)
	}
}

func TestUpdateProfileRoleRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.UpdateProfile(ctx, f.actor(), ProfilePatch{Role: strPtr("ADMIN")}); !errors.Is(err, ErrLastOwner) {
		t.Fatalf("expected last owner protection, got %v", err)
	}

	employee := User{ID: "emp-1", CompanyID: f.company.ID, UserName: "Emp", Email: "emp@butter.test", Role: auth.RoleEmployee, Status: StatusActive, CreatedAt: time.Now().UTC()}
	if err := f.repo.Create(ctx, employee); err != nil {
		t.Fatalf("create employee: %v", err)
	}
	empActor := Actor{UserID: employee.ID, CompanyID: f.company.ID, Role: auth.RoleEmployee}
	if _, err := f.svc.UpdateProfile(ctx, empActor, ProfilePatch{Role: strPtr("ADMIN")}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected employee role change to be forbidden, got %v", err)
	}

	updated, err := f.svc.UpdateProfile(ctx, empActor, ProfilePatch{UserName: strPtr(" Emp Two "), Status: strPtr("onleave")})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.UserName != "Emp Two" || updated.Status != StatusOnLeave || updated.Role != auth.RoleEmployee {
		t.Fatalf("unexpected update: %+v", updated)
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.ChangePassword(ctx, f.actor(), "wrong", "Newpass@1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := f.svc.ChangePassword(ctx, f.actor(), "Owner@123", "short"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected weak password rejection, got %v", err)
	}
	if err := f.svc.ChangePassword(ctx, f.actor(), "Owner@123", "Newpass@1"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	stored, _ := f.repo.GetByID(ctx, f.owner.ID)
	if !auth.CheckPassword(stored.PasswordHash, "Newpass@1") {
		t.Fatalf("expected new password to be stored")
	}
}

func TestListResolvesDepartmentNames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.repo.ReplaceDepartmentMembers(ctx, f.company.ID, deptSupport, []string{f.owner.ID}); err != nil {
		t.Fatalf("ReplaceDepartmentMembers: %v", err)
	}

	list, err := f.svc.List(ctx, f.company.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || len(list[0].Departments) != 1 || list[0].Departments[0].Name != "Support" {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func strPtr(s string) *string { return &s }
