package messenger

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/export"
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
	g := rg.Group("/messenger-factory")
	g.POST("/conversations", h.createConversation)
	g.GET("/conversations", h.list)
	g.GET("/conversations/export", h.export)
	g.GET("/conversations/customer/:id", h.byCustomer)
	g.GET("/conversations/employee/:id", h.byEmployee)
	g.GET("/conversations/inbox/:id", h.inbox)
	g.GET("/conversations/inbox/:id/recent", h.recent)
	g.GET("/conversations/inbox/:id/orders", h.related("order"))
	g.GET("/conversations/inbox/:id/products", h.related("product"))
	g.PATCH("/conversations/:id", h.updateConversation)
	g.POST("/conversations/:id/tags", h.addTag)
	g.POST("/conversations/:id/summaries", h.addSummary)
	g.DELETE("/tags/:tagId", h.deleteTag)
	g.POST("/messages", h.createMessage)
	g.PATCH("/messages/:id", h.updateMessage)
}

func (h *Handler) createConversation(c *gin.Context) {
	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	conv, err := h.Svc.CreateConversation(c.Request.Context(), middleware.CompanyIDFromContext(c), ConversationInput{
		CustomerID:   req.CustomerID,
		CustomerName: req.CustomerName,
		Source:       req.ConversationSource,
		AssignedTo:   req.AssignedTo,
		GroupID:      req.GroupID,
		EndingTime:   req.EndingTime,
	})
	if err != nil {
		writeError(c, err, "failed to create conversation")
		return
	}
	respond.Success(c, http.StatusCreated, "Conversation created successfully", toConversationResponse(conv))
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.Svc.List(c.Request.Context(), middleware.CompanyIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to list conversations")
		return
	}
	respond.Success(c, http.StatusOK, "Conversations fetched successfully", toThreadResponses(list))
}

func (h *Handler) byCustomer(c *gin.Context) {
	list, err := h.Svc.ByCustomer(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to list conversations")
		return
	}
	respond.Success(c, http.StatusOK, "Customer conversations fetched successfully", toThreadResponses(list))
}

func (h *Handler) byEmployee(c *gin.Context) {
	list, err := h.Svc.ByEmployee(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to list conversations")
		return
	}
	respond.Success(c, http.StatusOK, "Employee conversations fetched successfully", toThreadResponses(list))
}

func (h *Handler) inbox(c *gin.Context) {
	t, err := h.Svc.Inbox(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to load conversation")
		return
	}
	messages, tags, sums := children(t)
	respond.Success(c, http.StatusOK, "Conversation fetched successfully", inboxResponse{
		Conversation: toConversationResponse(t.Conversation),
		Messages:     messages,
		Tags:         tags,
		Summaries:    sums,
	})
}

func (h *Handler) recent(c *gin.Context) {
	list, err := h.Svc.Recent(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to load recent conversations")
		return
	}
	out := make([]recentResponse, 0, len(list))
	for _, r := range list {
		out = append(out, recentResponse{
			ConversationID:     r.ConversationID,
			CustomerName:       r.CustomerName,
			StartingTime:       r.StartingTime,
			ConversationStatus: r.Status,
			Summary:            r.Summary,
		})
	}
	respond.Success(c, http.StatusOK, "Recent conversations fetched successfully", out)
}

// related serves the order and product views of an inbox.
func (h *Handler) related(keyword string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		list, err := h.Svc.Related(c.Request.Context(), middleware.CompanyIDFromContext(c), id, keyword)
		if err != nil {
			writeError(c, err, fmt.Sprintf("failed to load %s messages", keyword))
			return
		}
		data := gin.H{"conversation_id": id, "count": len(list)}
		data[keyword+"_related_messages"] = toMessageResponses(list)
		title := strings.ToUpper(keyword[:1]) + keyword[1:]
		respond.Success(c, http.StatusOK, title+" related messages fetched successfully", data)
	}
}

func (h *Handler) updateConversation(c *gin.Context) {
	var req updateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	conv, err := h.Svc.UpdateConversation(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("id"), ConversationPatch{
		CustomerName:   req.CustomerName,
		Source:         req.ConversationSource,
		Status:         req.ConversationStatus,
		AssignedStatus: req.AssignedStatus,
		AssignedTo:     req.AssignedTo,
		GroupID:        req.GroupID,
		EndingTime:     req.EndingTime,
	})
	if err != nil {
		writeError(c, err, "failed to update conversation")
		return
	}
	respond.Success(c, http.StatusOK, "Conversation updated successfully", toConversationResponse(conv))
}

func (h *Handler) createMessage(c *gin.Context) {
	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	m, err := h.Svc.CreateMessage(c.Request.Context(), middleware.CompanyIDFromContext(c), MessageInput{
		ConversationID: req.ConversationID,
		Sender:         req.Sender,
		SenderType:     req.SenderType,
		Text:           req.Message,
		Type:           req.MessageType,
		ReplyTo:        req.ReplyToMessageID,
		Intend:         req.MessageIntend,
		Time:           req.Time,
	})
	if err != nil {
		writeError(c, err, "failed to create message")
		return
	}
	respond.Success(c, http.StatusCreated, "Message created successfully", toMessageResponse(m))
}

func (h *Handler) updateMessage(c *gin.Context) {
	var req updateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	m, err := h.Svc.UpdateMessage(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("id"), MessagePatch{
		Text:   req.Message,
		Type:   req.MessageType,
		Intend: req.MessageIntend,
	})
	if err != nil {
		writeError(c, err, "failed to update message")
		return
	}
	respond.Success(c, http.StatusOK, "Message updated successfully", toMessageResponse(m))
}

func (h *Handler) addTag(c *gin.Context) {
	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	t, err := h.Svc.AddTag(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("id"), TagInput{
		Name:        req.TagName,
		Color:       req.TagColor,
		Description: req.TagDescription,
		CreatedBy:   middleware.UserIDFromContext(c),
	})
	if err != nil {
		writeError(c, err, "failed to add tag")
		return
	}
	respond.Success(c, http.StatusCreated, "Tag added successfully", toTagResponse(t))
}

func (h *Handler) deleteTag(c *gin.Context) {
	id := c.Param("tagId")
	if err := h.Svc.DeleteTag(c.Request.Context(), middleware.CompanyIDFromContext(c), id); err != nil {
		writeError(c, err, "failed to delete tag")
		return
	}
	respond.Success(c, http.StatusOK, "Tag deleted successfully", gin.H{"tag_id": id, "deleted": true})
}

func (h *Handler) addSummary(c *gin.Context) {
	var req summaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	s, err := h.Svc.AddSummary(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("id"), SummaryInput{
		Text:        req.SummaryText,
		Type:        req.SummaryType,
		GeneratedBy: req.GeneratedBy,
	})
	if err != nil {
		writeError(c, err, "failed to add summary")
		return
	}
	respond.Success(c, http.StatusCreated, "Summary added successfully", toSummaryResponse(s))
}

func (h *Handler) export(c *gin.Context) {
	list, err := h.Svc.List(c.Request.Context(), middleware.CompanyIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to export conversations")
		return
	}
	conversations := export.Table{
		Sheet:   "Conversations",
		Headers: []string{"ID", "Customer ID", "Customer Name", "Source", "Status", "Assigned To", "Messages", "Tags", "Started At"},
	}
	messages := export.Table{
		Sheet:   "Messages",
		Headers: []string{"Conversation ID", "Message ID", "Sender", "Sender Type", "Message", "Intent", "Time"},
	}
	for _, t := range list {
		conv := t.Conversation
		names := make([]string, 0, len(t.Tags))
		for _, tag := range t.Tags {
			names = append(names, tag.Name)
		}
		conversations.Rows = append(conversations.Rows, []any{
			conv.ID, conv.CustomerID, conv.CustomerName, conv.Source, conv.Status, conv.AssignedTo,
			len(t.Messages), strings.Join(names, ", "), conv.StartingTime.UTC().Format(time.RFC3339),
		})
		for _, m := range t.Messages {
			messages.Rows = append(messages.Rows, []any{
				conv.ID, m.ID, m.Sender, m.SenderType, m.Text, m.Intend, m.Time.UTC().Format(time.RFC3339),
			})
		}
	}
	filename := fmt.Sprintf("conversations-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Type", export.ContentTypeXLSX)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)
	if err := export.WriteXLSX(c.Writer, conversations, messages); err != nil {
		_ = c.Error(err)
	}
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", strings.TrimPrefix(err.Error(), ErrNotFound.Error()+": "), nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
