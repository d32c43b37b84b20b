package meta

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/metrics"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/resilience"
)

// codeTokenExpired is the Graph error code for an invalid or expired OAuth token.
const codeTokenExpired = 190

// GraphError is a Graph API error payload returned with a non-2xx status.
type GraphError struct {
	Code    int
	Type    string
	Message string
	status  *resilience.HTTPStatusError
}

func (e *GraphError) Error() string {
	if e.Message == "" && e.status != nil {
		return e.status.Error()
	}
	return fmt.Sprintf("graph error %d: %s", e.Code, e.Message)
}

func (e *GraphError) Unwrap() error {
	if e.status == nil {
		return nil
	}
	return e.status
}

// IsTokenExpired reports whether err carries Graph error code 190.
func IsTokenExpired(err error) bool {
	var ge *GraphError
	return errors.As(err, &ge) && ge.Code == codeTokenExpired
}

// Client calls the versioned Graph API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	exec       *resilience.Executor
}

// NewClient builds a client for base (e.g. https://graph.facebook.com) and version.
func NewClient(base, version string, httpClient *http.Client, exec *resilience.Executor) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	if exec == nil {
		exec = resilience.NewExecutor(resilience.DefaultConfig())
	}
	u := strings.TrimRight(base, "/")
	if v := strings.Trim(version, "/"); v != "" {
		u += "/" + v
	}
	return &Client{baseURL: u, httpClient: httpClient, exec: exec}
}

// BaseURL is the versioned API root.
func (c *Client) BaseURL() string { return c.baseURL }

// HTTPClient is the transport shared with the OAuth code exchange.
func (c *Client) HTTPClient() *http.Client { return c.httpClient }

type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type User struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Email   string          `json:"email,omitempty"`
	Picture json.RawMessage `json:"picture,omitempty"`
}

type Page struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
}

// Collection is a paged Graph edge.
type Collection struct {
	Data   []map[string]any `json:"data"`
	Paging json.RawMessage  `json:"paging,omitempty"`
}

type TokenInfo struct {
	AppID     string   `json:"app_id"`
	Type      string   `json:"type"`
	IsValid   bool     `json:"is_valid"`
	ExpiresAt int64    `json:"expires_at"`
	Scopes    []string `json:"scopes"`
	UserID    string   `json:"user_id"`
	Error     *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type SendResult struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
}

// ExchangeLongLived swaps a short-lived user token for a long-lived one.
func (c *Client) ExchangeLongLived(ctx context.Context, appID, appSecret, token string) (AccessToken, error) {
	var out AccessToken
	err := c.call(ctx, "oauth_exchange", http.MethodGet, "/oauth/access_token", url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {appID},
		"client_secret":     {appSecret},
		"fb_exchange_token": {token},
	}, nil, &out)
	return out, err
}

func (c *Client) Me(ctx context.Context, token string) (User, error) {
	var out User
	err := c.call(ctx, "me", http.MethodGet, "/me", url.Values{
		"access_token": {token},
		"fields":       {"id,name,email,picture"},
	}, nil, &out)
	return out, err
}

func (c *Client) Accounts(ctx context.Context, token string) ([]Page, error) {
	var out struct {
		Data []Page `json:"data"`
	}
	err := c.call(ctx, "accounts", http.MethodGet, "/me/accounts", url.Values{
		"access_token": {token},
		"fields":       {"id,name,access_token"},
	}, nil, &out)
	return out.Data, err
}

func (c *Client) Posts(ctx context.Context, pageID, token string, limit int) (Collection, error) {
	var out Collection
	err := c.call(ctx, "page_posts", http.MethodGet, "/"+url.PathEscape(pageID)+"/posts", url.Values{
		"access_token": {token},
		"fields":       {"id,message,full_picture,created_time,permalink_url,likes.summary(true),comments.summary(true),shares"},
		"limit":        {strconv.Itoa(limit)},
	}, nil, &out)
	return out, err
}

func (c *Client) Comments(ctx context.Context, objectID, token string, limit int) (Collection, error) {
	var out Collection
	err := c.call(ctx, "comments", http.MethodGet, "/"+url.PathEscape(objectID)+"/comments", url.Values{
		"access_token": {token},
		"fields":       {"id,from{name,id},message,created_time,like_count"},
		"limit":        {strconv.Itoa(limit)},
	}, nil, &out)
	return out, err
}

func (c *Client) PublishPost(ctx context.Context, pageID, token, message, link string, published bool) (map[string]any, error) {
	params := url.Values{
		"access_token": {token},
		"message":      {message},
		"published":    {strconv.FormatBool(published)},
	}
	if link != "" {
		params.Set("link", link)
	}
	var out map[string]any
	err := c.call(ctx, "page_post", http.MethodPost, "/"+url.PathEscape(pageID)+"/feed", params, nil, &out)
	return out, err
}

func (c *Client) DeleteObject(ctx context.Context, id, token string) (map[string]any, error) {
	var out map[string]any
	err := c.call(ctx, "delete_object", http.MethodDelete, "/"+url.PathEscape(id), url.Values{
		"access_token": {token},
	}, nil, &out)
	return out, err
}

func (c *Client) ReplyComment(ctx context.Context, commentID, token, message string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	err := c.call(ctx, "comment_reply", http.MethodPost, "/"+url.PathEscape(commentID)+"/comments", url.Values{
		"access_token": {token},
		"message":      {message},
	}, nil, &out)
	return out.ID, err
}

func (c *Client) SendMessage(ctx context.Context, pageID, token, recipientID, text string) (SendResult, error) {
	body := map[string]any{
		"recipient":      map[string]string{"id": recipientID},
		"message":        map[string]string{"text": text},
		"messaging_type": "RESPONSE",
	}
	var out SendResult
	err := c.call(ctx, "send_message", http.MethodPost, "/"+url.PathEscape(pageID)+"/messages", url.Values{
		"access_token": {token},
	}, body, &out)
	return out, err
}

func (c *Client) Conversations(ctx context.Context, pageID, token string, limit int) (Collection, error) {
	var out Collection
	err := c.call(ctx, "page_conversations", http.MethodGet, "/"+url.PathEscape(pageID)+"/conversations", url.Values{
		"access_token": {token},
		"fields":       {"id,senders,updated_time,message_count,unread_count"},
		"limit":        {strconv.Itoa(limit)},
	}, nil, &out)
	return out, err
}

func (c *Client) ConversationMessages(ctx context.Context, conversationID, token string, limit int) (Collection, error) {
	var out Collection
	err := c.call(ctx, "conversation_messages", http.MethodGet, "/"+url.PathEscape(conversationID)+"/messages", url.Values{
		"access_token": {token},
		"fields":       {"id,message,from,created_time,attachments"},
		"limit":        {strconv.Itoa(limit)},
	}, nil, &out)
	return out, err
}

// DebugToken inspects input using an app token.
func (c *Client) DebugToken(ctx context.Context, appToken, input string) (TokenInfo, error) {
	var out struct {
		Data TokenInfo `json:"data"`
	}
	err := c.call(ctx, "debug_token", http.MethodGet, "/debug_token", url.Values{
		"input_token":  {input},
		"access_token": {appToken},
	}, nil, &out)
	return out.Data, err
}

func (c *Client) SubscribeApp(ctx context.Context, pageID, token string, fields []string) (map[string]any, error) {
	var out map[string]any
	err := c.call(ctx, "subscribe_app", http.MethodPost, "/"+url.PathEscape(pageID)+"/subscribed_apps", url.Values{
		"access_token":      {token},
		"subscribed_fields": {strings.Join(fields, ",")},
	}, nil, &out)
	return out, err
}

func (c *Client) Insights(ctx context.Context, pageID, token, metric, period string) (Collection, error) {
	var out Collection
	err := c.call(ctx, "page_insights", http.MethodGet, "/"+url.PathEscape(pageID)+"/insights", url.Values{
		"access_token": {token},
		"metric":       {metric},
		"period":       {period},
	}, nil, &out)
	return out, err
}

func (c *Client) call(ctx context.Context, op, method, path string, params url.Values, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
	}
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	err := c.exec.Execute(ctx, "graph."+op, func(ctx context.Context) error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return parseGraphError(op, resp, raw)
		}
		if out == nil || len(bytes.TrimSpace(raw)) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("graph %s response parse: %w", op, err)
		}
		return nil
	}, resilience.ClassifyHTTP)

	metrics.IncGraphCall(op, err)
	return err
}

func parseGraphError(op string, resp *http.Response, raw []byte) error {
	ge := &GraphError{status: &resilience.HTTPStatusError{
		Operation:  "graph." + op,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       truncate(string(raw), 512),
	}}
	var parsed struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &parsed) == nil {
		ge.Code = parsed.Error.Code
		ge.Type = parsed.Error.Type
		ge.Message = parsed.Error.Message
	}
	return ge
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
