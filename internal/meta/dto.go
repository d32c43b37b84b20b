package meta

import (
	"encoding/json"
	"time"
)

type pageResponse struct {
	PageID    string `json:"pageId"`
	PageName  string `json:"pageName"`
	PageToken string `json:"pageToken"`
}

type pagesResponse struct {
	Count int            `json:"count"`
	Pages []pageResponse `json:"pages"`
}

func toPages(pages []Page) pagesResponse {
	out := pagesResponse{Count: len(pages), Pages: make([]pageResponse, 0, len(pages))}
	for _, p := range pages {
		out.Pages = append(out.Pages, pageResponse{PageID: p.ID, PageName: p.Name, PageToken: p.AccessToken})
	}
	return out
}

type refreshResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresIn   int64     `json:"expiresIn"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type postsResponse struct {
	Count  int              `json:"count"`
	Posts  []map[string]any `json:"posts"`
	Paging json.RawMessage  `json:"paging,omitempty"`
}

type setupResponse struct {
	Config    setupConfig       `json:"config"`
	Endpoints map[string]string `json:"endpoints"`
}

type setupConfig struct {
	AppID        string `json:"appId"`
	AppSecret    string `json:"appSecret"`
	RedirectURI  string `json:"redirectUri"`
	WebhookToken string `json:"webhookToken"`
}

func presence(ok bool) string {
	if ok {
		return "set"
	}
	return "missing"
}

type refreshRequest struct {
	UserToken string `json:"user_token" binding:"required"`
}

type postRequest struct {
	PageID    string `json:"page_id" binding:"required"`
	PageToken string `json:"page_token" binding:"required"`
	Message   string `json:"message" binding:"required"`
	Link      string `json:"link" binding:"omitempty,url"`
	Published *bool  `json:"published"`
}

type deletePostRequest struct {
	PostID    string `json:"post_id" binding:"required"`
	PageToken string `json:"page_token" binding:"required"`
}

type replyRequest struct {
	CommentID string `json:"comment_id" binding:"required"`
	PageToken string `json:"page_token" binding:"required"`
	Message   string `json:"message" binding:"required"`
}

type sendMessageRequest struct {
	PageID      string `json:"page_id" binding:"required"`
	PageToken   string `json:"page_token" binding:"required"`
	RecipientID string `json:"recipient_id" binding:"required"`
	Text        string `json:"text" binding:"required"`
}

type subscribeRequest struct {
	PageID    string `json:"page_id" binding:"required"`
	PageToken string `json:"page_token" binding:"required"`
}
