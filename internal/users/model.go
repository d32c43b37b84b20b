package users

import (
	"strings"
	"time"
)

// Status is the employment state of a staff user.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusOnLeave Status = "ONLEAVE"
	StatusRetired Status = "RETIRED"
)

// ParseStatus validates a status string, ignoring case.
func ParseStatus(raw string) (Status, bool) {
	switch s := Status(strings.ToUpper(strings.TrimSpace(raw))); s {
	case StatusActive, StatusOnLeave, StatusRetired:
		return s, true
	default:
		return s, false
	}
}

// User is a registered staff member of a company.
type User struct {
	ID               string
	CompanyID        string
	UserName         string
	Email            string
	PasswordHash     string
	ProfileURI       string
	Bio              string
	Role             string
	Status           Status
	RefreshTokenHash string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PendingUser is an invitation that has not been accepted yet.
type PendingUser struct {
	ID            string
	CompanyID     string
	Email         string
	Role          string
	InvitedBy     string
	DepartmentIDs []string
	ShiftIDs      []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Member is the short user view embedded in department listings.
type Member struct {
	ID         string
	UserName   string
	Email      string
	ProfileURI string
}

// MemberPage is the member count of a group plus its most recently assigned members.
type MemberPage struct {
	Count   int
	Members []Member
}

// ProfilePatch holds the self-service profile fields. Nil fields are unchanged.
type ProfilePatch struct {
	UserName   *string
	Bio        *string
	ProfileURI *string
	Role       *string
	Status     *string
}

// Session is a freshly issued token pair.
type Session struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
