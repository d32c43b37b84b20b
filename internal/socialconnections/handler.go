package socialconnections

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
	g := rg.Group("/social-connections")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/stats/overview", h.stats)
	g.GET("/:id", h.get)
	g.GET("/:id/verify", h.verify)
	g.DELETE("/:id", h.delete)
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	conn, err := h.Svc.Create(c.Request.Context(), middleware.CompanyIDFromContext(c), Input{
		ID:           req.ID,
		PlatformName: req.PlatformName,
		PlatformType: req.PlatformType,
		Token:        req.PlatformToken,
	})
	if err != nil {
		writeError(c, err, "failed to create social connection")
		return
	}
	respond.Success(c, http.StatusCreated, "Social connection created successfully", ToResponse(conn))
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.Svc.List(c.Request.Context(), middleware.CompanyIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to list social connections")
		return
	}
	respond.Success(c, http.StatusOK, "Social connections fetched successfully", ToResponses(list))
}

func (h *Handler) stats(c *gin.Context) {
	st, err := h.Svc.Stats(c.Request.Context(), middleware.CompanyIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to load social connection stats")
		return
	}
	out := statsResponse{Total: st.Total, ByPlatform: make([]platformCount, 0, len(st.ByPlatform))}
	for _, tc := range st.ByPlatform {
		out.ByPlatform = append(out.ByPlatform, platformCount{PlatformType: tc.PlatformType, Count: tc.Count})
	}
	respond.Success(c, http.StatusOK, "Social connection stats fetched successfully", out)
}

func (h *Handler) get(c *gin.Context) {
	conn, err := h.Svc.Get(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to fetch social connection")
		return
	}
	respond.Success(c, http.StatusOK, "Social connection fetched successfully", ToResponse(conn))
}

func (h *Handler) verify(c *gin.Context) {
	valid, message, err := h.Svc.Verify(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to verify social connection")
		return
	}
	respond.Success(c, http.StatusOK, "Social connection verified", gin.H{"valid": valid, "message": message})
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.Svc.Delete(c.Request.Context(), middleware.CompanyIDFromContext(c), id); err != nil {
		writeError(c, err, "failed to delete social connection")
		return
	}
	respond.Success(c, http.StatusOK, "Social connection deleted successfully", gin.H{"id": id})
}

func writeError(c *gin.Context, err error, fallback string) {
	var missing *NotFoundError
	switch {
	case errors.As(err, &missing):
		respond.Error(c, http.StatusNotFound, "not_found", missing.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Social connection not found", nil)
	case errors.Is(err, ErrConflict):
		respond.Error(c, http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
