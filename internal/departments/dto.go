package departments

import "time"

type memberResponse struct {
	ID         string `json:"id"`
	UserName   string `json:"user_name"`
	Email      string `json:"email"`
	ProfileURI string `json:"profile_uri"`
}

type departmentResponse struct {
	ID                   string           `json:"id"`
	CompanyID            string           `json:"company_id"`
	DepartmentName       string           `json:"department_name"`
	Description          string           `json:"description"`
	DepartmentProfileURI string           `json:"department_profile_uri"`
	EmployeeCount        int              `json:"employee_count"`
	Users                []memberResponse `json:"users"`
	CreatedAt            time.Time        `json:"createdAt"`
	UpdatedAt            time.Time        `json:"updatedAt"`
}

func toResponse(d Detail) departmentResponse {
	members := make([]memberResponse, 0, len(d.Users))
	for _, m := range d.Users {
		members = append(members, memberResponse{ID: m.ID, UserName: m.UserName, Email: m.Email, ProfileURI: m.ProfileURI})
	}
	return departmentResponse{
		ID:                   d.ID,
		CompanyID:            d.CompanyID,
		DepartmentName:       d.Name,
		Description:          d.Description,
		DepartmentProfileURI: d.ProfileURI,
		EmployeeCount:        d.EmployeeCount,
		Users:                members,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}
}

type createRequest struct {
	DepartmentName       string `json:"department_name" binding:"required,max=150"`
	Description          string `json:"description"`
	DepartmentProfileURI string `json:"department_profile_uri" binding:"omitempty,max=500"`
}

type updateRequest struct {
	DepartmentName       *string `json:"department_name" binding:"omitempty,min=1,max=150"`
	Description          *string `json:"description"`
	DepartmentProfileURI *string `json:"department_profile_uri" binding:"omitempty,max=500"`
}

type membersRequest struct {
	UserIDs []string `json:"user_ids" binding:"required,dive,uuid"`
}
