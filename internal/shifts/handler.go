package shifts

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
	g := rg.Group("/shift")
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
	s, err := h.Svc.Create(c.Request.Context(), middleware.CompanyIDFromContext(c), Input{
		Name:      req.ShiftName,
		StartTime: req.ShiftStartTime,
		EndTime:   req.ShiftEndTime,
	})
	if err != nil {
		writeError(c, err, "failed to create shift")
		return
	}
	respond.Success(c, http.StatusCreated, "Shift created successfully", toResponse(s))
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.Svc.List(c.Request.Context(), middleware.CompanyIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to list shifts")
		return
	}
	out := make([]shiftResponse, 0, len(list))
	for _, s := range list {
		out = append(out, toResponse(s))
	}
	respond.Success(c, http.StatusOK, "Shifts fetched successfully", out)
}

func (h *Handler) get(c *gin.Context) {
	s, err := h.Svc.Get(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to fetch shift")
		return
	}
	respond.Success(c, http.StatusOK, "Shift fetched successfully", toResponse(s))
}

func (h *Handler) update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	s, err := h.Svc.Update(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("id"), Patch{
		Name:      req.ShiftName,
		StartTime: req.ShiftStartTime,
		EndTime:   req.ShiftEndTime,
	})
	if err != nil {
		writeError(c, err, "failed to update shift")
		return
	}
	respond.Success(c, http.StatusOK, "Shift updated successfully", toResponse(s))
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.Svc.Delete(c.Request.Context(), middleware.CompanyIDFromContext(c), id); err != nil {
		writeError(c, err, "failed to delete shift")
		return
	}
	respond.Success(c, http.StatusOK, "Shift deleted successfully", gin.H{"id": id, "deleted": true})
}

func (h *Handler) replaceMembers(c *gin.Context) {
	var req membersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	s, ids, err := h.Svc.ReplaceMembers(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("id"), req.UserIDs)
	if err != nil {
		writeError(c, err, "failed to update shift members")
		return
	}
	respond.Success(c, http.StatusOK, "Shift members updated successfully", membersResponse{shiftResponse: toResponse(s), UserIDs: ids})
}

func writeError(c *gin.Context, err error, fallback string) {
	var unknown *UnknownUsersError
	switch {
	case errors.As(err, &unknown):
		respond.Error(c, http.StatusBadRequest, "validation_error", unknown.Error(), unknown)
	case errors.Is(err, ErrTimeOrder):
		respond.Error(c, http.StatusBadRequest, "validation_error", "Shift end time must be after start time", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "shift not found", nil)
	case errors.Is(err, ErrConflict):
		respond.Error(c, http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
