package meta

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/auth"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/server/middleware"
)

func newTestRouter(f fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(f.svc)
	api := r.Group("/api/v1")
	h.RegisterPublicRoutes(api)
	protected := api.Group("")
	protected.Use(middleware.Auth(f.tokens))
	h.RegisterRoutes(protected)
	return r
}

func accessToken(t *testing.T, f fixture, companyID string) string {
	t.Helper()
	tok, _, err := f.tokens.Sign(auth.TokenAccess, "user-1", auth.Claims{CompanyID: companyID, Role: "OWNER"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestLoginRequiresStaffToken(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(f)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth/meta/login", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/meta/login", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken(t, f, "company-1"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(body.Data.URL, "https://www.facebook.com/v24.0/dialog/oauth?") {
		t.Fatalf("unexpected url %q", body.Data.URL)
	}
}

func TestCallbackRedirects(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(f)
	state, _, _ := f.tokens.Sign(auth.TokenMetaState, "company-1", auth.Claims{CompanyID: "company-1"})

	cases := []struct {
		name  string
		query string
		key   string
		want  string
	}{
		{"success", "code=good-code&state=" + url.QueryEscape(state), "success", "true"},
		{"denied", "error=access_denied&error_description=Permissions+error", "error", "Permissions error"},
		{"denied without description", "error=access_denied", "error", "Access denied"},
		{"bad state", "code=good-code&state=nope", "error", "invalid_state"},
		{"exchange failure", "code=bad-code&state=" + url.QueryEscape(state), "error", "oauth_failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth/meta/callback?"+tc.query, nil))
			if w.Code != http.StatusFound {
				t.Fatalf("expected 302, got %d: %s", w.Code, w.Body.String())
			}
			loc, err := url.Parse(w.Header().Get("Location"))
			if err != nil {
				t.Fatalf("parse location: %v", err)
			}
			if loc.Host != "app.example.com" || loc.Path != "/onboarding" {
				t.Fatalf("unexpected redirect %s", loc)
			}
			if got := loc.Query().Get(tc.key); got != tc.want {
				t.Fatalf("%s = %q, want %q", tc.key, got, tc.want)
			}
		})
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth/meta/callback?state=x", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing code: expected 400, got %d", w.Code)
	}
}

func TestExpiredGraphTokenIs403(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(f)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/meta/user/info?user_token=expired", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken(t, f, "company-1"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Token expired. Please re-authenticate.") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/meta/pages", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken(t, f, "company-1"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "User token required") {
		t.Fatalf("expected 400 for missing token, got %d: %s", w.Code, w.Body.String())
	}
}

func TestWebhookEndpoints(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(f)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/api/v1/auth/meta/webhook?hub.mode=subscribe&hub.verify_token=hook-token&hub.challenge=987", nil))
	if w.Code != http.StatusOK || w.Body.String() != "987" {
		t.Fatalf("verify: %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/api/v1/auth/meta/webhook?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=987", nil))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	body := []byte(`{"object":"page","entry":[{"id":"p-1","time":1}]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/meta/webhook", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", Signature("secret", body))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "EVENT_RECEIVED" {
		t.Fatalf("receive: %d %q", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/meta/webhook", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", Signature("other", body))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for bad signature, got %d", w.Code)
	}
}
