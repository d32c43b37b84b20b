package customers

import "time"

// Response never carries the password hash.
type Response struct {
	ID                string    `json:"id"`
	CompanyID         string    `json:"company_id"`
	Name              string    `json:"name"`
	ProfileURI        string    `json:"profile_uri,omitempty"`
	Contact           string    `json:"contact"`
	Source            Source    `json:"source"`
	ConversationCount int       `json:"conversation_count"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func ToResponse(c Customer) Response {
	return Response{
		ID:                c.ID,
		CompanyID:         c.CompanyID,
		Name:              c.Name,
		ProfileURI:        c.ProfileURI,
		Contact:           c.Contact,
		Source:            c.Source,
		ConversationCount: c.ConversationCount,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

type sessionResponse struct {
	AccessToken string   `json:"access_token"`
	ExpiresIn   int64    `json:"expires_in"`
	Customer    Response `json:"customer"`
}

func toSessionResponse(c Customer, s Session, now time.Time) sessionResponse {
	exp := int64(s.ExpiresAt.Sub(now).Seconds())
	if exp < 0 {
		exp = 0
	}
	return sessionResponse{AccessToken: s.AccessToken, ExpiresIn: exp, Customer: ToResponse(c)}
}

type registerRequest struct {
	Name       string `json:"name" binding:"required,min=2,max=255"`
	Contact    string `json:"contact" binding:"required,max=255"`
	Password   string `json:"password" binding:"required,min=8"`
	Source     string `json:"source" binding:"omitempty,oneof=WEB FACEBOOK WHATSAPP INSTAGRAM TWITTER TELEGRAM OTHER"`
	ProfileURI string `json:"profile_uri" binding:"omitempty,max=500"`
	CompanyID  string `json:"company_id" binding:"required,uuid"`
}

type loginRequest struct {
	Contact   string `json:"contact" binding:"required"`
	Password  string `json:"password" binding:"required"`
	Source    string `json:"source"`
	CompanyID string `json:"company_id" binding:"required"`
}

type updateRequest struct {
	Name       *string `json:"name" binding:"omitempty,min=2,max=255"`
	ProfileURI *string `json:"profile_uri" binding:"omitempty,max=500"`
	Password   *string `json:"password" binding:"omitempty,min=8"`
}
