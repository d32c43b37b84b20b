package departments

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/auth"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/server/middleware"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/department")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.PUT("/:id/users", middleware.RequireRole(auth.RoleOwner, auth.RoleAdmin), h.replaceMembers)
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	d, err := h.Svc.Create(c.Request.Context(), middleware.CompanyIDFromContext(c), Input{
		Name:        req.DepartmentName,
		Description: req.Description,
		ProfileURI:  req.DepartmentProfileURI,
	})
	if err != nil {
		writeError(c, err, "failed to create department")
		return
	}
	respond.Success(c, http.StatusCreated, "Department created successfully", toResponse(d))
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.Svc.List(c.Request.Context(), middleware.CompanyIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to list departments")
		return
	}
	out := make([]departmentResponse, 0, len(list))
	for _, d := range list {
		out = append(out, toResponse(d))
	}
	respond.Success(c, http.StatusOK, "Departments fetched successfully", out)
}

func (h *Handler) get(c *gin.Context) {
	d, err := h.Svc.Get(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to fetch department")
		return
	}
	respond.Success(c, http.StatusOK, "Department fetched successfully", toResponse(d))
}

func (h *Handler) update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	d, err := h.Svc.Update(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("id"), Patch{
		Name:        req.DepartmentName,
		Description: req.Description,
		ProfileURI:  req.DepartmentProfileURI,
	})
	if err != nil {
		writeError(c, err, "failed to update department")
		return
	}
	respond.Success(c, http.StatusOK, "Department updated successfully", toResponse(d))
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.Svc.Delete(c.Request.Context(), middleware.CompanyIDFromContext(c), id); err != nil {
		writeError(c, err, "failed to delete department")
		return
	}
	respond.Success(c, http.StatusOK, "Department deleted successfully", gin.H{"id": id, "deleted": true})
}

func (h *Handler) replaceMembers(c *gin.Context) {
	var req membersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	d, err := h.Svc.ReplaceMembers(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("id"), req.UserIDs)
	if err != nil {
		writeError(c, err, "failed to update department members")
		return
	}
	respond.Success(c, http.StatusOK, "Department members updated successfully", toResponse(d))
}

func writeError(c *gin.Context, err error, fallback string) {
	var unknown *UnknownUsersError
	switch {
	case errors.As(err, &unknown):
		respond.Error(c, http.StatusBadRequest, "validation_error", unknown.Error(), unknown)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "department not found", nil)
	case errors.Is(err, ErrConflict):
		respond.Error(c, http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
