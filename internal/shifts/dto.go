package shifts

import "time"

type shiftResponse struct {
	ID             string    `json:"id"`
	CompanyID      string    `json:"company_id"`
	ShiftName      string    `json:"shift_name"`
	ShiftStartTime string    `json:"shift_start_time"`
	ShiftEndTime   string    `json:"shift_end_time"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type membersResponse struct {
	shiftResponse
	UserIDs []string `json:"user_ids"`
}

func toResponse(s Shift) shiftResponse {
	return shiftResponse{
		ID:             s.ID,
		CompanyID:      s.CompanyID,
		ShiftName:      s.Name,
		ShiftStartTime: s.StartTime,
		ShiftEndTime:   s.EndTime,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

type createRequest struct {
	ShiftName      string `json:"shift_name" binding:"required,max=100"`
	ShiftStartTime string `json:"shift_start_time" binding:"required,hhmm"`
	ShiftEndTime   string `json:"shift_end_time" binding:"required,hhmm"`
}

type updateRequest struct {
	ShiftName      *string `json:"shift_name" binding:"omitempty,min=1,max=100"`
	ShiftStartTime *string `json:"shift_start_time" binding:"omitempty,hhmm"`
	ShiftEndTime   *string `json:"shift_end_time" binding:"omitempty,hhmm"`
}

type membersRequest struct {
	UserIDs []string `json:"user_ids" binding:"required,dive,uuid"`
}
