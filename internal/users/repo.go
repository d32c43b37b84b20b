package users

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "user not found" }

var (
	ErrPendingNotFound    = errors.New("pending user not found")
	ErrConflict           = errors.New("conflict")
	ErrEmailTaken         = fmt.Errorf("%w: email already registered or invited", ErrConflict)
	ErrLastOwner          = fmt.Errorf("%w: company must keep at least one owner", ErrConflict)
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidToken       = errors.New("invalid or expired invitation")
)

// Repo persists users, invitations and group membership.
type Repo interface {
	Create(ctx context.Context, user User) error
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	ListByCompany(ctx context.Context, companyID string) ([]User, error)
	Update(ctx context.Context, user User) error
	SetPassword(ctx context.Context, id, hash string) error
	SetRefreshToken(ctx context.Context, id, hash string) error
	CountByRole(ctx context.Context, companyID, role string) (int, error)
	EmailInUse(ctx context.Context, email string) (bool, error)

	CreatePending(ctx context.Context, pending PendingUser) error
	GetPending(ctx context.Context, id string) (PendingUser, error)
	ListPending(ctx context.Context, companyID string) ([]PendingUser, error)
	DeletePending(ctx context.Context, companyID, id string) error
	TouchPending(ctx context.Context, companyID, id string, at time.Time) error
	// CompleteRegistration creates user from the invitation, copies its
	// department and shift assignments and removes the invitation atomically.
	CompleteRegistration(ctx context.Context, pendingID string, user User) error

	DepartmentIDs(ctx context.Context, userIDs []string) (map[string][]string, error)
	DepartmentMembers(ctx context.Context, companyID string, departmentIDs []string, limit int) (map[string]MemberPage, error)
	ReplaceDepartmentMembers(ctx context.Context, companyID, departmentID string, userIDs []string) error
	ReplaceShiftMembers(ctx context.Context, companyID, shiftID string, userIDs []string) error
	UnknownUsers(ctx context.Context, companyID string, ids []string) ([]string, error)
}
