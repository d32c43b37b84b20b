package companies

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/auth"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/server/middleware"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the authenticated company routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/company")
	g.GET("/profile", h.profile)
	g.PATCH("/update", middleware.RequireRole(auth.RoleOwner, auth.RoleAdmin), h.update)
	g.DELETE("/delete", middleware.RequireRole(auth.RoleOwner), h.delete)
}

// RegisterPublicRoutes attaches routes that need no token.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/company/subdomain-availability", h.subdomainAvailability)
}

func (h *Handler) profile(c *gin.Context) {
	company, err := h.Svc.Profile(c.Request.Context(), middleware.CompanyIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to fetch company")
		return
	}
	respond.Success(c, http.StatusOK, "Company profile fetched successfully", ToResponse(company))
}

func (h *Handler) update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	company, err := h.Svc.Update(c.Request.Context(), middleware.CompanyIDFromContext(c), req.patch())
	if err != nil {
		writeError(c, err, "failed to update company")
		return
	}
	respond.Success(c, http.StatusOK, "Company updated successfully", ToResponse(company))
}

func (h *Handler) delete(c *gin.Context) {
	companyID := middleware.CompanyIDFromContext(c)
	if err := h.Svc.Delete(c.Request.Context(), companyID); err != nil {
		writeError(c, err, "failed to delete company")
		return
	}
	respond.Success(c, http.StatusOK, "Company deleted successfully", gin.H{"id": companyID, "deleted": true})
}

func (h *Handler) subdomainAvailability(c *gin.Context) {
	subdomain, available, err := h.Svc.SubdomainAvailable(c.Request.Context(), c.Query("subdomain"))
	if err != nil {
		writeError(c, err, "failed to check subdomain")
		return
	}
	respond.Success(c, http.StatusOK, "Subdomain availability checked", gin.H{"subdomain": subdomain, "available": available})
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "company not found", nil)
	case errors.Is(err, ErrConflict):
		respond.Error(c, http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
