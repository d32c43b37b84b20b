package aiagents

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
	g := rg.Group("/ai-agents")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	a, err := h.Svc.Create(c.Request.Context(), middleware.CompanyIDFromContext(c), Input{
		Name:                         req.AgentName,
		Personality:                  req.Personality,
		GeneralInstructions:          req.GeneralInstructions,
		Avatar:                       req.Avatar,
		ChoiceWhenUnable:             req.ChoiceWhenUnable,
		ConversationPassInstructions: req.ConversationPassInstructions,
		AutoTransfer:                 req.AutoTransfer,
		TransferConnectingMessage:    req.TransferConnectingMessage,
	})
	if err != nil {
		writeError(c, err, "failed to create ai agent")
		return
	}
	respond.Success(c, http.StatusCreated, "AI agent created successfully", toResponse(a))
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.Svc.List(c.Request.Context(), middleware.CompanyIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to list ai agents")
		return
	}
	out := make([]agentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toResponse(a))
	}
	respond.Success(c, http.StatusOK, "AI agents fetched successfully", out)
}

func (h *Handler) get(c *gin.Context) {
	a, err := h.Svc.Get(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to fetch ai agent")
		return
	}
	respond.Success(c, http.StatusOK, "AI agent fetched successfully", toResponse(a))
}

func (h *Handler) update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	a, err := h.Svc.Update(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("id"), Patch{
		Name:                         req.AgentName,
		Personality:                  req.Personality,
		GeneralInstructions:          req.GeneralInstructions,
		Avatar:                       req.Avatar,
		ChoiceWhenUnable:             req.ChoiceWhenUnable,
		ConversationPassInstructions: req.ConversationPassInstructions,
		AutoTransfer:                 req.AutoTransfer,
		TransferConnectingMessage:    req.TransferConnectingMessage,
	})
	if err != nil {
		writeError(c, err, "failed to update ai agent")
		return
	}
	respond.Success(c, http.StatusOK, "AI agent updated successfully", toResponse(a))
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.Svc.Delete(c.Request.Context(), middleware.CompanyIDFromContext(c), id); err != nil {
		writeError(c, err, "failed to delete ai agent")
		return
	}
	respond.Success(c, http.StatusOK, "AI agent deleted successfully", gin.H{"id": id, "deleted": true})
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "AI agent not found", nil)
	case errors.Is(err, ErrConflict):
		respond.Error(c, http.StatusConflict, "conflict", "An agent with this name already exists", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
