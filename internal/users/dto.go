package users

import "time"

// UserResponse is the outward-facing user. Password and refresh token hashes are never exposed.
type UserResponse struct {
	ID         string    `json:"id"`
	CompanyID  string    `json:"company_id"`
	UserName   string    `json:"user_name"`
	Email      string    `json:"email"`
	ProfileURI string    `json:"profile_uri,omitempty"`
	Bio        string    `json:"bio,omitempty"`
	Role       string    `json:"role"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ToUserResponse maps a User for JSON output.
func ToUserResponse(u User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		CompanyID:  u.CompanyID,
		UserName:   u.UserName,
		Email:      u.Email,
		ProfileURI: u.ProfileURI,
		Bio:        u.Bio,
		Role:       u.Role,
		Status:     u.Status,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// AuthResponse is returned whenever a session is opened.
type AuthResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    int64         `json:"expires_in"`
	User         *UserResponse `json:"user,omitempty"`
}

// ToAuthResponse maps a session, optionally embedding the user.
func ToAuthResponse(session Session, user *User, now time.Time) AuthResponse {
	resp := AuthResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    int64(session.AccessExpiresAt.Sub(now).Seconds()),
	}
	if resp.ExpiresIn < 0 {
		resp.ExpiresIn = 0
	}
	if user != nil {
		u := ToUserResponse(*user)
		resp.User = &u
	}
	return resp
}

type departmentRefResponse struct {
	ID             string `json:"id"`
	DepartmentName string `json:"department_name"`
}

type listedResponse struct {
	ID          string                  `json:"id"`
	UserName    string                  `json:"user_name"`
	Email       string                  `json:"email"`
	Avatar      string                  `json:"avatar"`
	Role        string                  `json:"role"`
	Status      Status                  `json:"status"`
	Departments []departmentRefResponse `json:"departments"`
}

func toListedResponse(l Listed) listedResponse {
	depts := make([]departmentRefResponse, 0, len(l.Departments))
	for _, d := range l.Departments {
		depts = append(depts, departmentRefResponse{ID: d.ID, DepartmentName: d.Name})
	}
	return listedResponse{
		ID:          l.User.ID,
		UserName:    l.User.UserName,
		Email:       l.User.Email,
		Avatar:      l.User.ProfileURI,
		Role:        l.User.Role,
		Status:      l.User.Status,
		Departments: depts,
	}
}

type pendingResponse struct {
	ID            string     `json:"id"`
	CompanyID     string     `json:"company_id"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	InvitedBy     string     `json:"invited_by,omitempty"`
	DepartmentIDs []string   `json:"department_ids"`
	ShiftIDs      []string   `json:"shift_ids"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	InviteToken   string     `json:"invite_token,omitempty"`
	ExpiresAt     *time.Time `json:"invite_expires_at,omitempty"`
}

func toPendingResponse(p PendingUser) pendingResponse {
	depts := p.DepartmentIDs
	if depts == nil {
		depts = []string{}
	}
	shifts := p.ShiftIDs
	if shifts == nil {
		shifts = []string{}
	}
	return pendingResponse{
		ID:            p.ID,
		CompanyID:     p.CompanyID,
		Email:         p.Email,
		Role:          p.Role,
		InvitedBy:     p.InvitedBy,
		DepartmentIDs: depts,
		ShiftIDs:      shifts,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func toInvitationResponse(inv Invitation, exposeToken bool) pendingResponse {
	resp := toPendingResponse(inv.Pending)
	exp := inv.ExpiresAt
	resp.ExpiresAt = &exp
	if exposeToken {
		resp.InviteToken = inv.Token
	}
	return resp
}

type inviteRequest struct {
	Email         string   `json:"email" binding:"required,email,max=50"`
	Role          string   `json:"role" binding:"omitempty,max=20"`
	DepartmentIDs []string `json:"department_ids" binding:"omitempty,dive,uuid"`
	ShiftIDs      []string `json:"shift_ids" binding:"omitempty,dive,uuid"`
}

type registrationRequest struct {
	UserName   string `json:"user_name" binding:"required,max=50"`
	Password   string `json:"password" binding:"required,strongpassword"`
	ProfileURI string `json:"profile_uri" binding:"omitempty,max=255"`
	Bio        string `json:"bio" binding:"omitempty,max=255"`
}

type profileRequest struct {
	UserName   *string `json:"user_name" binding:"omitempty,min=1,max=50"`
	Bio        *string `json:"bio" binding:"omitempty,max=255"`
	ProfileURI *string `json:"profile_uri" binding:"omitempty,max=255"`
	Role       *string `json:"role" binding:"omitempty,max=20"`
	Status     *string `json:"status" binding:"omitempty,max=20"`
}

type passwordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,strongpassword"`
}
