package departments

import (
	"time"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/users"
)

// Department groups staff inside a company.
type Department struct {
	ID          string
	CompanyID   string
	Name        string
	Description string
	ProfileURI  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Detail is a department with its member count and most recently assigned members.
type Detail struct {
	Department
	EmployeeCount int
	Users         []users.Member
}

// Input is the create payload.
type Input struct {
	Name        string
	Description string
	ProfileURI  string
}

// Patch holds optional updates.
type Patch struct {
	Name        *string
	Description *string
	ProfileURI  *string
}
