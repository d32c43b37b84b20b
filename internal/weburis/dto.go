package weburis

import "time"

type resourceResponse struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	URI       string    `json:"uri"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toResponse(r Resource) resourceResponse {
	return resourceResponse{
		ID:        r.ID,
		CompanyID: r.CompanyID,
		URI:       r.URI,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type createRequest struct {
	URI string `json:"uri" binding:"required,url,max=500"`
}

type updateRequest struct {
	URI    *string `json:"uri" binding:"omitempty,url,max=500"`
	Status *string `json:"status" binding:"omitempty,oneof=SYNCED QUEUED FAILED"`
}

type bulkStatusRequest struct {
	IDs    []string `json:"ids" binding:"required,min=1,dive,uuid"`
	Status string   `json:"status" binding:"required,oneof=SYNCED QUEUED FAILED"`
}
