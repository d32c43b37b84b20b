package companies

import "time"

// Response is the outward-facing representation of a company.
type Response struct {
	ID              string    `json:"id"`
	CompanyName     string    `json:"company_name"`
	Subdomain       string    `json:"subdomain"`
	Logo            string    `json:"logo,omitempty"`
	Banner          string    `json:"banner,omitempty"`
	Bio             string    `json:"bio,omitempty"`
	CompanyCategory string    `json:"company_category,omitempty"`
	Country         string    `json:"country,omitempty"`
	Language        string    `json:"language,omitempty"`
	Timezone        string    `json:"timezone,omitempty"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ToResponse maps a Company for JSON output.
func ToResponse(c Company) Response {
	return Response{
		ID:              c.ID,
		CompanyName:     c.CompanyName,
		Subdomain:       c.Subdomain,
		Logo:            c.Logo,
		Banner:          c.Banner,
		Bio:             c.Bio,
		CompanyCategory: c.CompanyCategory,
		Country:         c.Country,
		Language:        c.Language,
		Timezone:        c.Timezone,
		Status:          c.Status,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

type updateRequest struct {
	CompanyName     *string `json:"company_name" binding:"omitempty,min=1,max=255"`
	Subdomain       *string `json:"subdomain" binding:"omitempty,subdomain"`
	Logo            *string `json:"logo" binding:"omitempty,max=255"`
	Banner          *string `json:"banner" binding:"omitempty,max=255"`
	Bio             *string `json:"bio" binding:"omitempty,max=255"`
	CompanyCategory *string `json:"company_category" binding:"omitempty,max=100"`
	Country         *string `json:"country" binding:"omitempty,max=100"`
	Language        *string `json:"language" binding:"omitempty,max=10"`
	Timezone        *string `json:"timezone" binding:"omitempty,max=50"`
}

func (r updateRequest) patch() Patch {
	return Patch{
		CompanyName:     r.CompanyName,
		Subdomain:       r.Subdomain,
		Logo:            r.Logo,
		Banner:          r.Banner,
		Bio:             r.Bio,
		CompanyCategory: r.CompanyCategory,
		Country:         r.Country,
		Language:        r.Language,
		Timezone:        r.Timezone,
	}
}
