package meta

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/queue"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/auth"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/config"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/telemetry"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/util"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/socialconnections"
)

var (
	ErrNotConfigured  = errors.New("META credentials not configured")
	ErrInvalidInput   = errors.New("invalid input")
	ErrInvalidState   = errors.New("invalid_state")
	ErrStateExpired   = errors.New("state_expired")
	ErrCompanyMissing = errors.New("company_id_missing")
)

// Scopes requested on the consent dialog.
var Scopes = []string{
	"pages_show_list",
	"pages_read_engagement",
	"pages_manage_posts",
	"pages_manage_engagement",
	"pages_messaging",
	"pages_manage_metadata",
	"public_profile",
	"email",
}

var webhookFields = []string{
	"messages",
	"messaging_postbacks",
	"messaging_optins",
	"message_deliveries",
	"message_reads",
	"feed",
	"mention",
}

var defaultInsightMetrics = []string{
	"page_impressions",
	"page_impressions_unique",
	"page_engaged_users",
	"page_post_engagements",
	"page_fans",
	"page_fan_adds",
	"page_fan_removes",
}

const (
	postsLimit         = 25
	postCommentsLimit  = 10
	conversationsLimit = 50
	messagesLimit      = 100
)

// Service runs the page onboarding flow and proxies Graph calls.
type Service struct {
	Cfg         config.MetaConfig
	Graph       *Client
	Tokens      *auth.Issuer
	Connections *socialconnections.Service
	Events      queue.Publisher
	Now         func() time.Time

	oauth *oauth2.Config
}

func NewService(cfg config.MetaConfig, graph *Client, tokens *auth.Issuer, conns *socialconnections.Service, events queue.Publisher) *Service {
	dialog := fmt.Sprintf("https://www.facebook.com/%s/dialog/oauth", strings.Trim(cfg.DialogVersion, "/"))
	return &Service{
		Cfg:         cfg,
		Graph:       graph,
		Tokens:      tokens,
		Connections: conns,
		Events:      events,
		oauth: &oauth2.Config{
			ClientID:     cfg.AppID,
			ClientSecret: cfg.AppSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   dialog,
				TokenURL:  graph.BaseURL() + "/oauth/access_token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

// LoginURL builds the consent dialog URL. The state is a signed token that
// carries the company id back to the callback.
func (s *Service) LoginURL(ctx context.Context, companyID string) (string, error) {
	if !s.Cfg.Configured() {
		return "", fmt.Errorf("%w: META_APP_ID and META_REDIRECT_URI must be configured", ErrNotConfigured)
	}
	if strings.TrimSpace(companyID) == "" {
		return "", fmt.Errorf("%w: Company ID not found in request", ErrInvalidInput)
	}
	state, _, err := s.Tokens.Sign(auth.TokenMetaState, companyID, auth.Claims{
		CompanyID: companyID,
		Nonce:     util.RandomHex(16),
	})
	if err != nil {
		return "", err
	}
	telemetry.Info("meta.login.started", map[string]any{"company_id": companyID})
	return s.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("scope", strings.Join(Scopes, ",")),
		oauth2.SetAuthURLParam("auth_type", "rerequest"),
	), nil
}

// CallbackResult summarizes a completed onboarding.
type CallbackResult struct {
	CompanyID string
	User      User
	Pages     []Page
	ExpiresAt time.Time
}

// CompanyFromState validates the state token and returns its company.
func (s *Service) CompanyFromState(state string) (string, error) {
	claims, err := s.Tokens.Verify(auth.TokenMetaState, state)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return "", ErrStateExpired
		}
		return "", ErrInvalidState
	}
	if strings.TrimSpace(claims.CompanyID) == "" {
		return "", ErrCompanyMissing
	}
	return claims.CompanyID, nil
}

// Callback exchanges the code, upgrades the token and stores the user and
// page connections for the company in state.
func (s *Service) Callback(ctx context.Context, code, state string) (CallbackResult, error) {
	companyID, err := s.CompanyFromState(state)
	if err != nil {
		return CallbackResult{}, err
	}
	if !s.Cfg.Configured() {
		return CallbackResult{}, ErrNotConfigured
	}

	short, err := s.oauth.Exchange(context.WithValue(ctx, oauth2.HTTPClient, s.Graph.HTTPClient()), code)
	if err != nil {
		return CallbackResult{}, fmt.Errorf("exchange code: %w", err)
	}
	long, err := s.Graph.ExchangeLongLived(ctx, s.Cfg.AppID, s.Cfg.AppSecret, short.AccessToken)
	if err != nil {
		return CallbackResult{}, fmt.Errorf("long-lived token: %w", err)
	}
	user, err := s.Graph.Me(ctx, long.AccessToken)
	if err != nil {
		return CallbackResult{}, fmt.Errorf("fetch user: %w", err)
	}
	pages, err := s.Graph.Accounts(ctx, long.AccessToken)
	if err != nil {
		return CallbackResult{}, fmt.Errorf("fetch pages: %w", err)
	}
	if len(pages) == 0 {
		telemetry.Warn("meta.callback.no_pages", map[string]any{"company_id": companyID, "meta_user_id": user.ID})
	}

	if _, err := s.Connections.Upsert(ctx, companyID, socialconnections.Input{
		ID:           user.ID,
		PlatformName: "Facebook",
		PlatformType: socialconnections.TypeUser,
		Token:        long.AccessToken,
	}); err != nil {
		return CallbackResult{}, fmt.Errorf("save user connection: %w", err)
	}
	for _, p := range pages {
		if _, err := s.Connections.Upsert(ctx, companyID, socialconnections.Input{
			ID:           p.ID,
			PlatformName: p.Name,
			PlatformType: socialconnections.TypePage,
			Token:        p.AccessToken,
		}); err != nil {
			return CallbackResult{}, fmt.Errorf("save page %s: %w", p.ID, err)
		}
	}

	telemetry.Info("meta.callback.ok", map[string]any{
		"company_id":   companyID,
		"meta_user_id": user.ID,
		"pages":        len(pages),
	})
	return CallbackResult{
		CompanyID: companyID,
		User:      user,
		Pages:     pages,
		ExpiresAt: s.now().Add(time.Duration(long.ExpiresIn) * time.Second),
	}, nil
}

// StoredConnections lists the company's Meta user and page rows.
func (s *Service) StoredConnections(ctx context.Context, companyID string) ([]socialconnections.Connection, error) {
	return s.Connections.MetaConnections(ctx, companyID)
}

func (s *Service) Pages(ctx context.Context, userToken string) ([]Page, error) {
	if err := required("User token required", userToken); err != nil {
		return nil, err
	}
	return s.Graph.Accounts(ctx, userToken)
}

// RefreshedToken is a re-exchanged long-lived token.
type RefreshedToken struct {
	AccessToken string
	ExpiresIn   int64
	ExpiresAt   time.Time
}

func (s *Service) RefreshToken(ctx context.Context, userToken string) (RefreshedToken, error) {
	if err := required("User token required", userToken); err != nil {
		return RefreshedToken{}, err
	}
	if s.Cfg.AppID == "" || s.Cfg.AppSecret == "" {
		return RefreshedToken{}, ErrNotConfigured
	}
	tok, err := s.Graph.ExchangeLongLived(ctx, s.Cfg.AppID, s.Cfg.AppSecret, userToken)
	if err != nil {
		return RefreshedToken{}, err
	}
	return RefreshedToken{
		AccessToken: tok.AccessToken,
		ExpiresIn:   tok.ExpiresIn,
		ExpiresAt:   s.now().Add(time.Duration(tok.ExpiresIn) * time.Second),
	}, nil
}

// PagePosts returns the latest posts with up to ten comments attached to
// each post that has any.
func (s *Service) PagePosts(ctx context.Context, pageID, pageToken string) (Collection, error) {
	if err := required("Page ID and Page token required", pageID, pageToken); err != nil {
		return Collection{}, err
	}
	posts, err := s.Graph.Posts(ctx, pageID, pageToken, postsLimit)
	if err != nil {
		return Collection{}, err
	}
	for _, post := range posts.Data {
		if commentCount(post) == 0 {
			continue
		}
		id, _ := post["id"].(string)
		comments, err := s.Graph.Comments(ctx, id, pageToken, postCommentsLimit)
		if err != nil {
			return Collection{}, err
		}
		post["commentsList"] = comments.Data
	}
	return posts, nil
}

// PostInput is a page feed post.
type PostInput struct {
	PageID    string
	PageToken string
	Message   string
	Link      string
	Published *bool
}

func (s *Service) PublishPost(ctx context.Context, in PostInput) (map[string]any, error) {
	if err := required("Page ID, Page token, and message are required", in.PageID, in.PageToken, in.Message); err != nil {
		return nil, err
	}
	published := in.Published == nil || *in.Published
	return s.Graph.PublishPost(ctx, in.PageID, in.PageToken, in.Message, strings.TrimSpace(in.Link), published)
}

func (s *Service) DeletePost(ctx context.Context, postID, pageToken string) (map[string]any, error) {
	if err := required("Post ID and Page token required", postID, pageToken); err != nil {
		return nil, err
	}
	return s.Graph.DeleteObject(ctx, postID, pageToken)
}

func (s *Service) ReplyComment(ctx context.Context, commentID, pageToken, message string) (string, error) {
	if err := required("Comment ID, Page token, and message required", commentID, pageToken, message); err != nil {
		return "", err
	}
	return s.Graph.ReplyComment(ctx, commentID, pageToken, message)
}

func (s *Service) SendMessage(ctx context.Context, pageID, pageToken, recipientID, text string) (SendResult, error) {
	if err := required("Page ID, Page token, recipient ID, and text required", pageID, pageToken, recipientID, text); err != nil {
		return SendResult{}, err
	}
	return s.Graph.SendMessage(ctx, pageID, pageToken, recipientID, text)
}

func (s *Service) PageConversations(ctx context.Context, pageID, pageToken string) (Collection, error) {
	if err := required("Page ID and Page token required", pageID, pageToken); err != nil {
		return Collection{}, err
	}
	return s.Graph.Conversations(ctx, pageID, pageToken, conversationsLimit)
}

func (s *Service) ConversationMessages(ctx context.Context, conversationID, pageToken string) (Collection, error) {
	if err := required("Conversation ID and Page token required", conversationID, pageToken); err != nil {
		return Collection{}, err
	}
	return s.Graph.ConversationMessages(ctx, conversationID, pageToken, messagesLimit)
}

func (s *Service) DebugToken(ctx context.Context, token string) (TokenInfo, error) {
	if err := required("Token required", token); err != nil {
		return TokenInfo{}, err
	}
	if s.Cfg.AppID == "" || s.Cfg.AppSecret == "" {
		return TokenInfo{}, ErrNotConfigured
	}
	return s.Graph.DebugToken(ctx, s.appToken(), token)
}

// VerifyToken reports whether a stored platform token is still usable.
func (s *Service) VerifyToken(ctx context.Context, token string) (bool, string, error) {
	info, err := s.DebugToken(ctx, token)
	if err != nil {
		if IsTokenExpired(err) {
			return false, "Token expired", nil
		}
		return false, "", err
	}
	if !info.IsValid {
		if info.Error != nil && info.Error.Message != "" {
			return false, info.Error.Message, nil
		}
		return false, "Token is invalid", nil
	}
	return true, "Token is valid", nil
}

func (s *Service) SubscribePage(ctx context.Context, pageID, pageToken string) (map[string]any, error) {
	if err := required("Page ID and Page token required", pageID, pageToken); err != nil {
		return nil, err
	}
	return s.Graph.SubscribeApp(ctx, pageID, pageToken, webhookFields)
}

func (s *Service) UserInfo(ctx context.Context, userToken string) (User, error) {
	if err := required("User access token required", userToken); err != nil {
		return User{}, err
	}
	return s.Graph.Me(ctx, userToken)
}

func (s *Service) PageInsights(ctx context.Context, pageID, pageToken, metric, period string) (Collection, error) {
	if err := required("Page ID and Page token required", pageID, pageToken); err != nil {
		return Collection{}, err
	}
	if strings.TrimSpace(metric) == "" {
		metric = strings.Join(defaultInsightMetrics, ",")
	}
	if strings.TrimSpace(period) == "" {
		period = "day"
	}
	return s.Graph.Insights(ctx, pageID, pageToken, metric, period)
}

// Setup reports which Meta settings are present.
type Setup struct {
	AppID        bool
	AppSecret    bool
	RedirectURI  string
	WebhookToken bool
}

func (s *Service) Setup() Setup {
	return Setup{
		AppID:        s.Cfg.AppID != "",
		AppSecret:    s.Cfg.AppSecret != "",
		RedirectURI:  s.Cfg.RedirectURI,
		WebhookToken: s.Cfg.WebhookVerifyToken != "",
	}
}

func (s *Service) appToken() string {
	return s.Cfg.AppID + "|" + s.Cfg.AppSecret
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// required fails with message when any value is blank.
func required(message string, values ...string) error {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s", ErrInvalidInput, message)
		}
	}
	return nil
}

func commentCount(post map[string]any) float64 {
	comments, _ := post["comments"].(map[string]any)
	summary, _ := comments["summary"].(map[string]any)
	n, _ := summary["total_count"].(float64)
	return n
}

var _ socialconnections.TokenVerifier = (*Service)(nil)

