package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/companies"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/server/middleware"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/server/respond"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/users"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterPublicRoutes attaches signup, login and password recovery.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/auth")
	g.POST("/register", h.signup)
	g.POST("/login", h.login)
	g.POST("/refresh", h.refresh)
	g.POST("/password/forgot", h.forgot)
	g.POST("/password/reset", h.reset)
}

// RegisterRoutes attaches routes that need a staff token.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/logout", h.logout)
}

func (h *Handler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	company, owner, session, err := h.Svc.Signup(c.Request.Context(), SignupInput{
		CompanyName:     req.CompanyName,
		Subdomain:       req.Subdomain,
		Email:           req.Email,
		UserName:        req.UserName,
		Password:        req.Password,
		CompanyCategory: req.CompanyCategory,
		Country:         req.Country,
		Language:        req.Language,
		Timezone:        req.Timezone,
	})
	if err != nil {
		writeError(c, err, "failed to register company")
		return
	}
	respond.Success(c, http.StatusCreated, "Company registered successfully", signupResponse{
		AuthResponse: users.ToAuthResponse(session, &owner, time.Now()),
		Company:      companies.ToResponse(company),
	})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	user, session, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err, "failed to log in")
		return
	}
	respond.Success(c, http.StatusOK, "Login successful", users.ToAuthResponse(session, &user, time.Now()))
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	user, session, err := h.Svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, err, "failed to refresh session")
		return
	}
	respond.Success(c, http.StatusOK, "Token refreshed successfully", users.ToAuthResponse(session, &user, time.Now()))
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.Svc.Logout(c.Request.Context(), middleware.UserIDFromContext(c)); err != nil {
		writeError(c, err, "failed to log out")
		return
	}
	respond.Success(c, http.StatusOK, "Logged out successfully", nil)
}

func (h *Handler) forgot(c *gin.Context) {
	var req forgotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	if err := h.Svc.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		writeError(c, err, "failed to start password reset")
		return
	}
	respond.Success(c, http.StatusOK, "If the email exists, a reset link has been sent", nil)
}

func (h *Handler) reset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	if err := h.Svc.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		writeError(c, err, "failed to reset password")
		return
	}
	respond.Success(c, http.StatusOK, "Password reset successfully", nil)
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Invalid credentials", nil)
	case errors.Is(err, ErrInvalidToken):
		respond.Error(c, http.StatusUnauthorized, "unauthorized", err.Error(), nil)
	case errors.Is(err, ErrAccountDisabled):
		respond.Error(c, http.StatusForbidden, "forbidden", err.Error(), nil)
	case errors.Is(err, companies.ErrConflict), errors.Is(err, users.ErrConflict):
		respond.Error(c, http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput), errors.Is(err, companies.ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
