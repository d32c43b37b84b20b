package socialconnections

import (
	"time"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/util"
)

// Response is a connection with its token masked.
type Response struct {
	ID            string    `json:"id"`
	CompanyID     string    `json:"company_id"`
	PlatformName  string    `json:"platform_name"`
	PlatformType  string    `json:"platform_type"`
	PlatformToken string    `json:"platform_token"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func ToResponse(c Connection) Response {
	return Response{
		ID:            c.ID,
		CompanyID:     c.CompanyID,
		PlatformName:  c.PlatformName,
		PlatformType:  c.PlatformType,
		PlatformToken: util.MaskSecret(c.Token),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func ToResponses(list []Connection) []Response {
	out := make([]Response, 0, len(list))
	for _, c := range list {
		out = append(out, ToResponse(c))
	}
	return out
}

type platformCount struct {
	PlatformType string `json:"platformType"`
	Count        int    `json:"count"`
}

type statsResponse struct {
	Total      int             `json:"total"`
	ByPlatform []platformCount `json:"byPlatform"`
}

type createRequest struct {
	ID            string `json:"id" binding:"omitempty,max=255"`
	PlatformName  string `json:"platform_name" binding:"required,max=100"`
	PlatformType  string `json:"platform_type" binding:"required,max=100"`
	PlatformToken string `json:"platform_token" binding:"required"`
}
