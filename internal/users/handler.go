package users

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/export"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/auth"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/server/middleware"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/server/respond"
)

type Handler struct {
	Svc    *Service
	Tokens middleware.TokenVerifier
	// ExposeInviteToken returns the raw invitation token in API responses (dev only).
	ExposeInviteToken bool
}

func NewHandler(svc *Service, tokens middleware.TokenVerifier, exposeInviteToken bool) *Handler {
	return &Handler{Svc: svc, Tokens: tokens, ExposeInviteToken: exposeInviteToken}
}

// RegisterRoutes attaches the staff routes. rg must carry middleware.Auth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	manager := middleware.RequireRole(auth.RoleOwner, auth.RoleAdmin)

	g := rg.Group("/users")
	g.GET("", h.list)
	g.GET("/export", h.export)
	g.GET("/socket/essential", h.essential)
	g.GET("/profile", h.profile)
	g.PATCH("/profile", h.updateProfile)
	g.PATCH("/profile/password", h.changePassword)
	g.POST("/invite", manager, h.invite)
	g.POST("/invite/resend/:id", manager, h.resend)
	g.GET("/pending", manager, h.listPending)
	g.DELETE("/pending/:id", manager, h.revokePending)
}

// RegisterPublicRoutes attaches the invitation-token registration route.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/users/registration", middleware.InviteAuth(h.Tokens), h.register)
}

func actorFrom(c *gin.Context) Actor {
	return Actor{
		UserID:    middleware.UserIDFromContext(c),
		CompanyID: middleware.CompanyIDFromContext(c),
		Role:      middleware.RoleFromContext(c),
	}
}

func (h *Handler) invite(c *gin.Context) {
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	inv, err := h.Svc.Invite(c.Request.Context(), actorFrom(c), InviteInput{
		Email:         req.Email,
		Role:          req.Role,
		DepartmentIDs: req.DepartmentIDs,
		ShiftIDs:      req.ShiftIDs,
	})
	if err != nil {
		writeError(c, err, "failed to invite user")
		return
	}
	respond.Success(c, http.StatusCreated, "Invitation sent successfully", toInvitationResponse(inv, h.ExposeInviteToken))
}

func (h *Handler) resend(c *gin.Context) {
	inv, err := h.Svc.ResendInvitation(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to resend invitation")
		return
	}
	respond.Success(c, http.StatusOK, "Invitation resent successfully", toInvitationResponse(inv, h.ExposeInviteToken))
}

func (h *Handler) listPending(c *gin.Context) {
	list, err := h.Svc.ListPending(c.Request.Context(), middleware.CompanyIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to list pending users")
		return
	}
	out := make([]pendingResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toPendingResponse(p))
	}
	respond.Success(c, http.StatusOK, "Pending users fetched successfully", out)
}

func (h *Handler) revokePending(c *gin.Context) {
	id := c.Param("id")
	if err := h.Svc.RevokePending(c.Request.Context(), middleware.CompanyIDFromContext(c), id); err != nil {
		writeError(c, err, "failed to revoke invitation")
		return
	}
	respond.Success(c, http.StatusOK, "Invitation revoked successfully", gin.H{"id": id, "deleted": true})
}

func (h *Handler) register(c *gin.Context) {
	claims, ok := middleware.InviteClaimsFromContext(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid invitation token", nil)
		return
	}
	var req registrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	user, session, err := h.Svc.Register(c.Request.Context(), claims, RegistrationInput{
		UserName:   req.UserName,
		Password:   req.Password,
		ProfileURI: req.ProfileURI,
		Bio:        req.Bio,
	})
	if err != nil {
		writeError(c, err, "failed to complete registration")
		return
	}
	respond.Success(c, http.StatusCreated, "Registration completed successfully", ToAuthResponse(session, &user, time.Now()))
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.Svc.List(c.Request.Context(), middleware.CompanyIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to list users")
		return
	}
	out := make([]listedResponse, 0, len(list))
	for _, l := range list {
		out = append(out, toListedResponse(l))
	}
	respond.Success(c, http.StatusOK, "Users fetched successfully", out)
}

func (h *Handler) export(c *gin.Context) {
	list, err := h.Svc.List(c.Request.Context(), middleware.CompanyIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to export users")
		return
	}
	table := export.Table{
		Sheet:   "Users",
		Headers: []string{"ID", "User Name", "Email", "Role", "Status", "Departments", "Created At"},
	}
	for _, l := range list {
		names := ""
		for i, d := range l.Departments {
			if i > 0 {
				names += ", "
			}
			names += d.Name
		}
		table.Rows = append(table.Rows, []any{
			l.User.ID, l.User.UserName, l.User.Email, l.User.Role, string(l.User.Status), names,
			l.User.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	filename := fmt.Sprintf("users-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Type", export.ContentTypeXLSX)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)
	if err := export.WriteXLSX(c.Writer, table); err != nil {
		_ = c.Error(err)
	}
}

func (h *Handler) essential(c *gin.Context) {
	user, depts, err := h.Svc.Essential(c.Request.Context(), middleware.CompanyIDFromContext(c), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to load user")
		return
	}
	respond.Success(c, http.StatusOK, "Socket essentials fetched successfully", gin.H{
		"userId":      user.ID,
		"companyId":   user.CompanyID,
		"departments": depts,
	})
}

func (h *Handler) profile(c *gin.Context) {
	user, err := h.Svc.Profile(c.Request.Context(), middleware.CompanyIDFromContext(c), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to load user")
		return
	}
	respond.Success(c, http.StatusOK, "User profile fetched successfully", ToUserResponse(user))
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	user, err := h.Svc.UpdateProfile(c.Request.Context(), actorFrom(c), ProfilePatch{
		UserName:   req.UserName,
		Bio:        req.Bio,
		ProfileURI: req.ProfileURI,
		Role:       req.Role,
		Status:     req.Status,
	})
	if err != nil {
		writeError(c, err, "failed to update profile")
		return
	}
	respond.Success(c, http.StatusOK, "User profile updated successfully", ToUserResponse(user))
}

func (h *Handler) changePassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	if err := h.Svc.ChangePassword(c.Request.Context(), actorFrom(c), req.OldPassword, req.NewPassword); err != nil {
		writeError(c, err, "failed to change password")
		return
	}
	respond.Success(c, http.StatusOK, "Password changed successfully", nil)
}

func writeError(c *gin.Context, err error, fallback string) {
	var invalidIDs *InvalidIDsError
	switch {
	case errors.As(err, &invalidIDs):
		respond.Error(c, http.StatusBadRequest, "validation_error", invalidIDs.Error(), invalidIDs)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
	case errors.Is(err, ErrPendingNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "pending user not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrConflict):
		respond.Error(c, http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, ErrInvalidCredentials):
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "current password is incorrect", nil)
	case errors.Is(err, ErrInvalidToken):
		respond.Error(c, http.StatusUnauthorized, "unauthorized", err.Error(), nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
