package auth

import (
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/companies"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/users"
)

type signupResponse struct {
	users.AuthResponse
	Company companies.Response `json:"company"`
}

type signupRequest struct {
	CompanyName     string `json:"company_name" binding:"required,max=255"`
	Subdomain       string `json:"subdomain" binding:"required,subdomain"`
	Email           string `json:"email" binding:"required,email"`
	UserName        string `json:"user_name" binding:"required,max=50"`
	Password        string `json:"password" binding:"required,strongpassword"`
	CompanyCategory string `json:"company_category" binding:"omitempty,max=100"`
	Country         string `json:"country" binding:"omitempty,max=100"`
	Language        string `json:"language" binding:"omitempty,max=10"`
	Timezone        string `json:"timezone" binding:"omitempty,max=50"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type forgotRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,strongpassword"`
}
