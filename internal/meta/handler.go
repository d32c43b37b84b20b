package meta

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/resilience"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/server/middleware"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/server/respond"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/telemetry"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/socialconnections"
)

const maxWebhookBody = 1 << 20

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the staff-only Meta routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/auth/meta")
	g.GET("/login", h.login)
	g.GET("/connections", h.connections)
	g.GET("/pages", h.pages)
	g.POST("/token/refresh", h.refreshToken)
	g.GET("/page/posts", h.pagePosts)
	g.POST("/page/post", h.publishPost)
	g.POST("/page/post/delete", h.deletePost)
	g.POST("/page/comment/reply", h.replyComment)
	g.POST("/message/send", h.sendMessage)
	g.GET("/page/conversations", h.pageConversations)
	g.GET("/conversation/messages", h.conversationMessages)
	g.GET("/debug/token", h.debugToken)
	g.POST("/page/subscribe", h.subscribePage)
	g.GET("/user/info", h.userInfo)
	g.GET("/page/insights", h.pageInsights)
	g.GET("/verify/setup", h.verifySetup)
}

// RegisterPublicRoutes attaches the OAuth callback and the webhook, which Meta calls directly.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/auth/meta")
	g.GET("/callback", h.callback)
	g.GET("/webhook", h.verifyWebhook)
	g.POST("/webhook", h.receiveWebhook)
}

func (h *Handler) login(c *gin.Context) {
	u, err := h.Svc.LoginURL(c.Request.Context(), middleware.CompanyIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to start Meta login")
		return
	}
	respond.Success(c, http.StatusOK, "Meta login URL generated", gin.H{"url": u})
}

func (h *Handler) callback(c *gin.Context) {
	if e := c.Query("error"); e != "" {
		desc := c.Query("error_description")
		if desc == "" {
			desc = "Access denied"
		}
		telemetry.Warn("meta.callback.denied", map[string]any{
			"error":  e,
			"reason": c.Query("error_reason"),
		})
		h.onboardingRedirect(c, "error", desc)
		return
	}
	code, state := c.Query("code"), c.Query("state")
	if code == "" || state == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Authorization code and state are required", nil)
		return
	}

	_, err := h.Svc.Callback(c.Request.Context(), code, state)
	switch {
	case err == nil:
		h.onboardingRedirect(c, "success", "true")
	case errors.Is(err, ErrStateExpired), errors.Is(err, ErrInvalidState), errors.Is(err, ErrCompanyMissing):
		h.onboardingRedirect(c, "error", err.Error())
	default:
		telemetry.Error("meta.callback.failed", map[string]any{"error": err})
		h.onboardingRedirect(c, "error", "oauth_failed")
	}
}

func (h *Handler) onboardingRedirect(c *gin.Context, key, value string) {
	u, err := url.Parse(h.Svc.Cfg.OnboardingURL)
	if err != nil || h.Svc.Cfg.OnboardingURL == "" {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "onboarding url not configured", nil)
		return
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	c.Redirect(http.StatusFound, u.String())
}

func (h *Handler) connections(c *gin.Context) {
	list, err := h.Svc.StoredConnections(c.Request.Context(), middleware.CompanyIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to list social connections")
		return
	}
	respond.Success(c, http.StatusOK, "Social connections retrieved successfully", socialconnections.ToResponses(list))
}

func (h *Handler) pages(c *gin.Context) {
	pages, err := h.Svc.Pages(c.Request.Context(), c.Query("user_token"))
	if err != nil {
		writeError(c, err, "Failed to fetch pages")
		return
	}
	respond.Success(c, http.StatusOK, "Pages fetched successfully", toPages(pages))
}

func (h *Handler) refreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	tok, err := h.Svc.RefreshToken(c.Request.Context(), req.UserToken)
	if err != nil {
		writeError(c, err, "Failed to refresh token")
		return
	}
	respond.Success(c, http.StatusOK, "Token refreshed successfully", refreshResponse{
		AccessToken: tok.AccessToken,
		ExpiresIn:   tok.ExpiresIn,
		ExpiresAt:   tok.ExpiresAt,
	})
}

func (h *Handler) pagePosts(c *gin.Context) {
	posts, err := h.Svc.PagePosts(c.Request.Context(), c.Query("page_id"), c.Query("page_token"))
	if err != nil {
		writeError(c, err, "Failed to fetch posts")
		return
	}
	respond.Success(c, http.StatusOK, "Posts fetched successfully", postsResponse{
		Count:  len(posts.Data),
		Posts:  nonNil(posts.Data),
		Paging: posts.Paging,
	})
}

func (h *Handler) publishPost(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	data, err := h.Svc.PublishPost(c.Request.Context(), PostInput{
		PageID:    req.PageID,
		PageToken: req.PageToken,
		Message:   req.Message,
		Link:      req.Link,
		Published: req.Published,
	})
	if err != nil {
		writeError(c, err, "Failed to create post")
		return
	}
	respond.Success(c, http.StatusCreated, "Post created successfully", gin.H{"postId": data["id"], "data": data})
}

func (h *Handler) deletePost(c *gin.Context) {
	var req deletePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	data, err := h.Svc.DeletePost(c.Request.Context(), req.PostID, req.PageToken)
	if err != nil {
		writeError(c, err, "Failed to delete post")
		return
	}
	respond.Success(c, http.StatusOK, "Post deleted successfully", gin.H{"data": data})
}

func (h *Handler) replyComment(c *gin.Context) {
	var req replyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	id, err := h.Svc.ReplyComment(c.Request.Context(), req.CommentID, req.PageToken, req.Message)
	if err != nil {
		writeError(c, err, "Failed to reply to comment")
		return
	}
	respond.Success(c, http.StatusCreated, "Reply posted successfully", gin.H{"commentId": id})
}

func (h *Handler) sendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	res, err := h.Svc.SendMessage(c.Request.Context(), req.PageID, req.PageToken, req.RecipientID, req.Text)
	if err != nil {
		writeError(c, err, "Failed to send message")
		return
	}
	respond.Success(c, http.StatusOK, "Message sent successfully", gin.H{
		"messageId":   res.MessageID,
		"recipientId": res.RecipientID,
	})
}

func (h *Handler) pageConversations(c *gin.Context) {
	col, err := h.Svc.PageConversations(c.Request.Context(), c.Query("page_id"), c.Query("page_token"))
	if err != nil {
		writeError(c, err, "Failed to fetch conversations")
		return
	}
	respond.Success(c, http.StatusOK, "Conversations fetched successfully", gin.H{
		"conversations": nonNil(col.Data),
		"paging":        col.Paging,
	})
}

func (h *Handler) conversationMessages(c *gin.Context) {
	col, err := h.Svc.ConversationMessages(c.Request.Context(), c.Query("conversation_id"), c.Query("page_token"))
	if err != nil {
		writeError(c, err, "Failed to fetch messages")
		return
	}
	respond.Success(c, http.StatusOK, "Messages fetched successfully", gin.H{
		"messages": nonNil(col.Data),
		"paging":   col.Paging,
	})
}

func (h *Handler) debugToken(c *gin.Context) {
	info, err := h.Svc.DebugToken(c.Request.Context(), c.Query("token"))
	if err != nil {
		writeError(c, err, "Failed to debug token")
		return
	}
	respond.Success(c, http.StatusOK, "Token inspected", gin.H{"data": info})
}

func (h *Handler) subscribePage(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	sub, err := h.Svc.SubscribePage(c.Request.Context(), req.PageID, req.PageToken)
	if err != nil {
		writeError(c, err, "Failed to subscribe page")
		return
	}
	respond.Success(c, http.StatusOK, "Page subscribed to webhooks", gin.H{"subscription": sub})
}

func (h *Handler) userInfo(c *gin.Context) {
	token := c.Query("user_token")
	if token == "" {
		token = c.Query("user_access_token")
	}
	user, err := h.Svc.UserInfo(c.Request.Context(), token)
	if err != nil {
		writeError(c, err, "Failed to fetch user info")
		return
	}
	respond.Success(c, http.StatusOK, "User info fetched successfully", gin.H{"user": user})
}

func (h *Handler) pageInsights(c *gin.Context) {
	metric := c.Query("metrics")
	if metric == "" {
		metric = c.Query("metric")
	}
	col, err := h.Svc.PageInsights(c.Request.Context(), c.Query("page_id"), c.Query("page_token"), metric, c.Query("period"))
	if err != nil {
		writeError(c, err, "Failed to fetch insights")
		return
	}
	respond.Success(c, http.StatusOK, "Insights fetched successfully", gin.H{"insights": nonNil(col.Data)})
}

func (h *Handler) verifySetup(c *gin.Context) {
	st := h.Svc.Setup()
	redirect := st.RedirectURI
	if redirect == "" {
		redirect = presence(false)
	}
	respond.Success(c, http.StatusOK, "Meta setup status", setupResponse{
		Config: setupConfig{
			AppID:        presence(st.AppID),
			AppSecret:    presence(st.AppSecret),
			RedirectURI:  redirect,
			WebhookToken: presence(st.WebhookToken),
		},
		Endpoints: map[string]string{
			"login":         "/api/v1/auth/meta/login",
			"callback":      "/api/v1/auth/meta/callback",
			"webhook":       "/api/v1/auth/meta/webhook",
			"pages":         "/api/v1/auth/meta/pages",
			"posts":         "/api/v1/auth/meta/page/posts",
			"createPost":    "/api/v1/auth/meta/page/post",
			"sendMessage":   "/api/v1/auth/meta/message/send",
			"conversations": "/api/v1/auth/meta/page/conversations",
		},
	})
}

func (h *Handler) verifyWebhook(c *gin.Context) {
	challenge, ok := h.Svc.VerifySubscription(c.Query("hub.mode"), c.Query("hub.verify_token"), c.Query("hub.challenge"))
	if !ok {
		respond.Error(c, http.StatusForbidden, "forbidden", "Webhook verification failed", nil)
		return
	}
	c.String(http.StatusOK, challenge)
}

func (h *Handler) receiveWebhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "webhook body too large", nil)
		return
	}
	if _, err := h.Svc.ReceiveWebhook(c.Request.Context(), body, c.GetHeader("X-Hub-Signature-256")); err != nil {
		switch {
		case errors.Is(err, ErrBadSignature):
			respond.Error(c, http.StatusForbidden, "forbidden", "Invalid signature", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to accept webhook", nil)
		}
		return
	}
	c.String(http.StatusOK, "EVENT_RECEIVED")
}

func writeError(c *gin.Context, err error, fallback string) {
	var ge *GraphError
	switch {
	case IsTokenExpired(err):
		respond.Error(c, http.StatusForbidden, "token_expired", "Token expired. Please re-authenticate.", nil)
	case errors.Is(err, ErrNotConfigured):
		respond.Error(c, http.StatusBadRequest, "meta_not_configured", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", trimPrefix(err), nil)
	case resilience.IsCircuitOpen(err):
		respond.Error(c, http.StatusServiceUnavailable, "upstream_unavailable", "Meta is temporarily unavailable", nil)
	case errors.As(err, &ge) && ge.Message != "":
		respond.Error(c, http.StatusBadRequest, "graph_error", ge.Message, nil)
	case errors.As(err, &ge):
		respond.Error(c, http.StatusBadRequest, "graph_error", fallback, nil)
	default:
		respond.Error(c, http.StatusBadGateway, "upstream_error", fallback, nil)
	}
}

func trimPrefix(err error) string {
	return strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": ")
}

func nonNil(in []map[string]any) []map[string]any {
	if in == nil {
		return []map[string]any{}
	}
	return in
}
