package companies

import "time"

// Status is the onboarding state of a tenant.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusPending  Status = "PENDING"
	StatusRejected Status = "REJECTED"
)

// Company is a tenant. Every tenant-owned row references its ID.
type Company struct {
	ID              string
	CompanyName     string
	Subdomain       string
	Logo            string
	Banner          string
	Bio             string
	CompanyCategory string
	Country         string
	Language        string
	Timezone        string
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Patch carries the mutable profile fields. Nil fields are left untouched.
type Patch struct {
	CompanyName     *string
	Subdomain       *string
	Logo            *string
	Banner          *string
	Bio             *string
	CompanyCategory *string
	Country         *string
	Language        *string
	Timezone        *string
}

// Apply copies the non-nil fields of p onto c.
func (p Patch) Apply(c Company) Company {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&c.CompanyName, p.CompanyName)
	set(&c.Subdomain, p.Subdomain)
	set(&c.Logo, p.Logo)
	set(&c.Banner, p.Banner)
	set(&c.Bio, p.Bio)
	set(&c.CompanyCategory, p.CompanyCategory)
	set(&c.Country, p.Country)
	set(&c.Language, p.Language)
	set(&c.Timezone, p.Timezone)
	return c
}
