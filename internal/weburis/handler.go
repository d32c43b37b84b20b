package weburis

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

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
	g := rg.Group("/weburi-resources")
	g.POST("", h.create)
	g.GET("", h.list)
	g.PATCH("/bulk/status", h.bulkStatus)
	g.GET("/:id", h.get)
	g.PATCH("/:id", h.update)
	g.PATCH("/:id/status/:status", h.setStatus)
	g.DELETE("/:id", h.delete)
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	res, err := h.Svc.Create(c.Request.Context(), middleware.CompanyIDFromContext(c), req.URI)
	if err != nil {
		writeError(c, err, "failed to create web uri resource")
		return
	}
	respond.Success(c, http.StatusCreated, "Web URI resource created successfully", toResponse(res))
}

func (h *Handler) list(c *gin.Context) {
	var status *Status
	if raw := c.Query("status"); raw != "" {
		st, ok := ParseStatus(raw)
		if !ok {
			respond.Error(c, http.StatusBadRequest, "validation_error", "status must be one of SYNCED, QUEUED, FAILED", nil)
			return
		}
		status = &st
	}
	list, err := h.Svc.List(c.Request.Context(), middleware.CompanyIDFromContext(c), status)
	if err != nil {
		writeError(c, err, "failed to list web uri resources")
		return
	}
	out := make([]resourceResponse, 0, len(list))
	for _, r := range list {
		out = append(out, toResponse(r))
	}
	respond.Success(c, http.StatusOK, "Web URI resources fetched successfully", out)
}

func (h *Handler) get(c *gin.Context) {
	res, err := h.Svc.Get(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to fetch web uri resource")
		return
	}
	respond.Success(c, http.StatusOK, "Web URI resource fetched successfully", toResponse(res))
}

func (h *Handler) update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	patch := Patch{URI: req.URI}
	if req.Status != nil {
		st := Status(*req.Status)
		patch.Status = &st
	}
	res, err := h.Svc.Update(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("id"), patch)
	if err != nil {
		writeError(c, err, "failed to update web uri resource")
		return
	}
	respond.Success(c, http.StatusOK, "Web URI resource updated successfully", toResponse(res))
}

func (h *Handler) setStatus(c *gin.Context) {
	status, ok := ParseStatus(c.Param("status"))
	if !ok {
		respond.Error(c, http.StatusBadRequest, "validation_error", "status must be one of synced, queued, failed", nil)
		return
	}
	res, err := h.Svc.SetStatus(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("id"), status)
	if err != nil {
		writeError(c, err, "failed to update web uri status")
		return
	}
	respond.Success(c, http.StatusOK, "Web URI status updated successfully", toResponse(res))
}

func (h *Handler) bulkStatus(c *gin.Context) {
	var req bulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	n, err := h.Svc.BulkSetStatus(c.Request.Context(), middleware.CompanyIDFromContext(c), req.IDs, Status(req.Status))
	if err != nil {
		writeError(c, err, "failed to update web uri statuses")
		return
	}
	respond.Success(c, http.StatusOK, "Web URI statuses updated successfully", gin.H{"updated": n})
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.Svc.Delete(c.Request.Context(), middleware.CompanyIDFromContext(c), id); err != nil {
		writeError(c, err, "failed to delete web uri resource")
		return
	}
	respond.Success(c, http.StatusOK, "Web URI resource deleted successfully", gin.H{"id": id, "deleted": true})
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Web URI resource not found", nil)
	case errors.Is(err, ErrConflict):
		respond.Error(c, http.StatusConflict, "conflict", "This URI already exists for the company", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
