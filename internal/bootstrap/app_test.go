package bootstrap

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/queue"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/config"
)

const ownerPassword = "Sup3r$ecret"

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type apiClient struct {
	t   *testing.T
	app *App
}

func newTestApp(t *testing.T) apiClient {
	t.Helper()
	gin.SetMode(gin.TestMode)
	app, err := Build(config.Config{
		Env:           "dev",
		JWTSecret:     "test-secret",
		LocalStoreDir: t.TempDir(),
		PublicDir:     t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	return apiClient{t: t, app: app}
}

func (c apiClient) send(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	c.app.Router.ServeHTTP(w, req)
	return w
}

func (c apiClient) do(method, path, token string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return c.send(req, token)
}

// expect asserts the status and decodes the envelope's data into out.
func (c apiClient) expect(w *httptest.ResponseRecorder, status int, out any) envelope {
	c.t.Helper()
	if w.Code != status {
		c.t.Fatalf("status = %d, want %d: %s", w.Code, status, w.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		c.t.Fatalf("decode envelope: %v (%s)", err, w.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			c.t.Fatalf("decode data: %v (%s)", err, env.Data)
		}
	}
	return env
}

type session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID        string `json:"id"`
		CompanyID string `json:"company_id"`
		Role      string `json:"role"`
	} `json:"user"`
}

func (c apiClient) signup(subdomain, email string) session {
	c.t.Helper()
	var out session
	c.expect(c.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"company_name": "Acme " + subdomain,
		"subdomain":    subdomain,
		"email":        email,
		"user_name":    "Owner",
		"password":     ownerPassword,
	}), http.StatusCreated, &out)
	if out.AccessToken == "" || out.User.Role != "OWNER" {
		c.t.Fatalf("unexpected signup session %+v", out)
	}
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	c := newTestApp(t)

	var status struct {
		OK       bool   `json:"ok"`
		Database string `json:"database"`
	}
	w := c.do(http.MethodGet, "/api/v1/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health: %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil || !status.OK || status.Database != "memory" {
		t.Fatalf("unexpected health %s", w.Body.String())
	}

	w = c.do(http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Fatalf("metrics: %d", w.Code)
	}

	c.expect(c.do(http.MethodGet, "/api/v1/nope", "", nil), http.StatusNotFound, nil)
	c.expect(c.do(http.MethodGet, "/api/v1/company/profile", "", nil), http.StatusUnauthorized, nil)
}

func TestStaffOnboardingFlow(t *testing.T) {
	c := newTestApp(t)
	owner := c.signup("acme", "owner@acme.io")

	c.expect(c.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"company_name": "Other", "subdomain": "acme", "email": "x@acme.io", "user_name": "X", "password": ownerPassword,
	}), http.StatusConflict, nil)

	var login session
	c.expect(c.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "OWNER@acme.io", "password": ownerPassword,
	}), http.StatusOK, &login)
	c.expect(c.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "owner@acme.io", "password": "wrong",
	}), http.StatusUnauthorized, nil)

	var refreshed session
	c.expect(c.do(http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": login.RefreshToken,
	}), http.StatusOK, &refreshed)

	var company struct {
		ID        string `json:"id"`
		Subdomain string `json:"subdomain"`
	}
	c.expect(c.do(http.MethodGet, "/api/v1/company/profile", owner.AccessToken, nil), http.StatusOK, &company)
	if company.ID != owner.User.CompanyID || company.Subdomain != "acme" {
		t.Fatalf("unexpected company %+v", company)
	}

	var dept struct {
		ID string `json:"id"`
	}
	c.expect(c.do(http.MethodPost, "/api/v1/department", owner.AccessToken, map[string]string{
		"department_name": "Support",
	}), http.StatusCreated, &dept)

	var shift struct {
		ID string `json:"id"`
	}
	c.expect(c.do(http.MethodPost, "/api/v1/shift", owner.AccessToken, map[string]string{
		"shift_name": "Morning", "shift_start_time": "09:00", "shift_end_time": "17:00",
	}), http.StatusCreated, &shift)
	c.expect(c.do(http.MethodPost, "/api/v1/shift", owner.AccessToken, map[string]string{
		"shift_name": "Bad", "shift_start_time": "25:00", "shift_end_time": "17:00",
	}), http.StatusBadRequest, nil)

	var invitation struct {
		ID            string   `json:"id"`
		InviteToken   string   `json:"invite_token"`
		DepartmentIDs []string `json:"department_ids"`
	}
	c.expect(c.do(http.MethodPost, "/api/v1/users/invite", owner.AccessToken, map[string]any{
		"email":          "agent@acme.io",
		"department_ids": []string{dept.ID},
		"shift_ids":      []string{shift.ID},
	}), http.StatusCreated, &invitation)
	if invitation.InviteToken == "" || len(invitation.DepartmentIDs) != 1 {
		t.Fatalf("unexpected invitation %+v", invitation)
	}

	var agent session
	c.expect(c.do(http.MethodPost, "/api/v1/users/registration", invitation.InviteToken, map[string]string{
		"user_name": "Agent", "password": "Ag3nt!pass",
	}), http.StatusCreated, &agent)
	if agent.User.CompanyID != owner.User.CompanyID {
		t.Fatalf("agent joined the wrong company: %+v", agent.User)
	}
	c.expect(c.do(http.MethodPost, "/api/v1/users/registration", invitation.InviteToken, map[string]string{
		"user_name": "Agent", "password": "Ag3nt!pass",
	}), http.StatusNotFound, nil)

	c.expect(c.do(http.MethodPost, "/api/v1/users/invite", agent.AccessToken, map[string]string{
		"email": "someone@acme.io",
	}), http.StatusForbidden, nil)

	var members []struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	c.expect(c.do(http.MethodGet, "/api/v1/users", owner.AccessToken, nil), http.StatusOK, &members)
	if len(members) != 2 {
		t.Fatalf("expected 2 staff, got %+v", members)
	}

	var detail struct {
		EmployeeCount int `json:"employee_count"`
	}
	c.expect(c.do(http.MethodGet, "/api/v1/department/"+dept.ID, owner.AccessToken, nil), http.StatusOK, &detail)
	if detail.EmployeeCount != 1 {
		t.Fatalf("expected invited agent in department, got %+v", detail)
	}

	w := c.do(http.MethodGet, "/api/v1/users/export", owner.AccessToken, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Header().Get("Content-Type"), "spreadsheetml") {
		t.Fatalf("export: %d %s", w.Code, w.Header().Get("Content-Type"))
	}

	c.expect(c.do(http.MethodPost, "/api/v1/auth/logout", owner.AccessToken, nil), http.StatusOK, nil)
	c.expect(c.do(http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": refreshed.RefreshToken,
	}), http.StatusUnauthorized, nil)
}

func TestTenantIsolation(t *testing.T) {
	c := newTestApp(t)
	acme := c.signup("acme", "owner@acme.io")
	globex := c.signup("globex", "owner@globex.io")

	var agent struct {
		ID string `json:"id"`
	}
	c.expect(c.do(http.MethodPost, "/api/v1/ai-agents", acme.AccessToken, map[string]string{
		"agent_name": "Helper",
	}), http.StatusCreated, &agent)

	c.expect(c.do(http.MethodGet, "/api/v1/ai-agents/"+agent.ID, globex.AccessToken, nil), http.StatusNotFound, nil)
	c.expect(c.do(http.MethodDelete, "/api/v1/ai-agents/"+agent.ID, globex.AccessToken, nil), http.StatusNotFound, nil)

	var list []struct {
		ID string `json:"id"`
	}
	c.expect(c.do(http.MethodGet, "/api/v1/ai-agents", globex.AccessToken, nil), http.StatusOK, &list)
	if len(list) != 0 {
		t.Fatalf("globex must not see acme agents: %+v", list)
	}
}

func TestCompanyDeleteRemovesTenantRows(t *testing.T) {
	c := newTestApp(t)
	owner := c.signup("acme", "owner@acme.io")
	other := c.signup("globex", "owner@globex.io")

	var customer struct {
		AccessToken string `json:"access_token"`
	}
	c.expect(c.do(http.MethodPost, "/api/v1/customer/register", "", map[string]string{
		"name": "Jane", "contact": "jane@example.com", "password": "password1", "company_id": owner.User.CompanyID,
	}), http.StatusCreated, &customer)
	c.expect(c.do(http.MethodPost, "/api/v1/ai-agents", owner.AccessToken, map[string]string{
		"agent_name": "Helper",
	}), http.StatusCreated, nil)

	c.expect(c.do(http.MethodDelete, "/api/v1/company/delete", owner.AccessToken, nil), http.StatusOK, nil)

	c.expect(c.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "owner@acme.io", "password": ownerPassword,
	}), http.StatusUnauthorized, nil)
	c.expect(c.do(http.MethodGet, "/api/v1/company/profile", owner.AccessToken, nil), http.StatusNotFound, nil)
	c.expect(c.do(http.MethodGet, "/api/v1/customer/profile", customer.AccessToken, nil), http.StatusUnauthorized, nil)

	again := c.signup("acme", "owner@acme.io")
	var agents []struct {
		ID string `json:"id"`
	}
	c.expect(c.do(http.MethodGet, "/api/v1/ai-agents", again.AccessToken, nil), http.StatusOK, &agents)
	if len(agents) != 0 {
		t.Fatalf("agents of the deleted company leaked: %+v", agents)
	}

	c.expect(c.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "owner@globex.io", "password": ownerPassword,
	}), http.StatusOK, nil)
	c.expect(c.do(http.MethodGet, "/api/v1/company/profile", other.AccessToken, nil), http.StatusOK, nil)
}

func TestCustomerConversationFlow(t *testing.T) {
	c := newTestApp(t)
	owner := c.signup("acme", "owner@acme.io")

	var customer struct {
		AccessToken string `json:"access_token"`
		Customer    struct {
			ID string `json:"id"`
		} `json:"customer"`
	}
	c.expect(c.do(http.MethodPost, "/api/v1/customer/register", "", map[string]string{
		"name": "Jane", "contact": "jane@example.com", "password": "password1", "company_id": owner.User.CompanyID,
	}), http.StatusCreated, &customer)

	var profile struct {
		ID string `json:"id"`
	}
	c.expect(c.do(http.MethodGet, "/api/v1/customer/profile", customer.AccessToken, nil), http.StatusOK, &profile)
	if profile.ID != customer.Customer.ID {
		t.Fatalf("unexpected profile %+v", profile)
	}
	c.expect(c.do(http.MethodGet, "/api/v1/customer/profile", owner.AccessToken, nil), http.StatusUnauthorized, nil)

	var conv struct {
		ConversationID string `json:"conversation_id"`
	}
	c.expect(c.do(http.MethodPost, "/api/v1/messenger-factory/conversations", owner.AccessToken, map[string]string{
		"customer_id": customer.Customer.ID, "customer_name": "Jane", "conversation_source": "WEB",
	}), http.StatusCreated, &conv)

	c.expect(c.do(http.MethodPost, "/api/v1/messenger-factory/messages", owner.AccessToken, map[string]string{
		"conversation_id": conv.ConversationID, "sender": "Jane", "message": "Where is my order?",
	}), http.StatusCreated, nil)

	var related struct {
		Count    int `json:"count"`
		Messages []struct {
			Message string `json:"message"`
		} `json:"order_related_messages"`
	}
	c.expect(c.do(http.MethodGet, "/api/v1/messenger-factory/conversations/inbox/"+conv.ConversationID+"/orders", owner.AccessToken, nil), http.StatusOK, &related)
	if related.Count != 1 || len(related.Messages) != 1 {
		t.Fatalf("expected one order message, got %+v", related)
	}

	var customers []struct {
		ConversationCount int `json:"conversation_count"`
	}
	c.expect(c.do(http.MethodGet, "/api/v1/customers", owner.AccessToken, nil), http.StatusOK, &customers)
	if len(customers) != 1 || customers[0].ConversationCount != 1 {
		t.Fatalf("unexpected customers %+v", customers)
	}

	pub := c.app.Publisher.(*queue.LogPublisher)
	if len(pub.Events(queue.SubjectMessengerEvents)) < 2 {
		t.Fatalf("expected messenger events to be published")
	}
}

func TestDocumentUploadAndStatus(t *testing.T) {
	c := newTestApp(t)
	owner := c.signup("acme", "owner@acme.io")
	other := c.signup("globex", "owner@globex.io")

	body, contentType := multipartFile(t, "document", "faq.txt", "text/plain", "refunds take 5 days")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	var uploaded struct {
		Filename string `json:"filename"`
		Status   string `json:"status"`
		URL      string `json:"url"`
	}
	c.expect(c.send(req, owner.AccessToken), http.StatusCreated, &uploaded)
	if uploaded.Status != "QUEUED" || !strings.HasPrefix(uploaded.URL, "/api/v1/documents/"+owner.User.CompanyID+"/") {
		t.Fatalf("unexpected upload %+v", uploaded)
	}

	w := c.do(http.MethodGet, uploaded.URL+"/text", owner.AccessToken, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "refunds take 5 days") {
		t.Fatalf("text: %d %s", w.Code, w.Body.String())
	}
	c.expect(c.do(http.MethodGet, uploaded.URL, other.AccessToken, nil), http.StatusForbidden, nil)

	c.expect(c.do(http.MethodPatch, uploaded.URL+"/status/synced", owner.AccessToken, nil), http.StatusOK, nil)
	var listed struct {
		Total int `json:"total"`
	}
	c.expect(c.do(http.MethodGet, "/api/v1/documents?status=SYNCED", owner.AccessToken, nil), http.StatusOK, &listed)
	if listed.Total != 1 {
		t.Fatalf("expected one synced document, got %d", listed.Total)
	}

	body, contentType = multipartFile(t, "document", "run.exe", "application/x-msdownload", "MZ")
	req = httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	c.expect(c.send(req, owner.AccessToken), http.StatusBadRequest, nil)

	body, contentType = multipartFile(t, "avatar", "me.png", "image/png", "\x89PNG\r\n")
	req = httptest.NewRequest(http.MethodPost, "/api/v1/file-handle/image/avatar", body)
	req.Header.Set("Content-Type", contentType)
	var avatar struct {
		URL string `json:"url"`
	}
	c.expect(c.send(req, ""), http.StatusCreated, &avatar)
	if !strings.HasPrefix(avatar.URL, "/public/avatars/") {
		t.Fatalf("unexpected avatar url %q", avatar.URL)
	}
	if w := c.do(http.MethodGet, avatar.URL, "", nil); w.Code != http.StatusOK {
		t.Fatalf("avatar not served: %d", w.Code)
	}
}

func TestWebURIAndSocialConnections(t *testing.T) {
	c := newTestApp(t)
	owner := c.signup("acme", "owner@acme.io")

	var res struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	c.expect(c.do(http.MethodPost, "/api/v1/weburi-resources", owner.AccessToken, map[string]string{
		"uri": "https://acme.io/pricing",
	}), http.StatusCreated, &res)
	if res.Status != "QUEUED" {
		t.Fatalf("unexpected resource %+v", res)
	}
	c.expect(c.do(http.MethodPost, "/api/v1/weburi-resources", owner.AccessToken, map[string]string{
		"uri": "not a url",
	}), http.StatusBadRequest, nil)

	var updated struct {
		Updated int `json:"updated"`
	}
	c.expect(c.do(http.MethodPatch, "/api/v1/weburi-resources/bulk/status", owner.AccessToken, map[string]any{
		"ids": []string{res.ID}, "status": "SYNCED",
	}), http.StatusOK, &updated)
	if updated.Updated != 1 {
		t.Fatalf("expected one update, got %d", updated.Updated)
	}

	var conn struct {
		ID            string `json:"id"`
		PlatformToken string `json:"platform_token"`
	}
	c.expect(c.do(http.MethodPost, "/api/v1/social-connections", owner.AccessToken, map[string]string{
		"platform_name": "Support line", "platform_type": "whatsapp", "platform_token": "wa-secret-token-123",
	}), http.StatusCreated, &conn)
	if strings.Contains(conn.PlatformToken, "secret") {
		t.Fatalf("token must be masked, got %q", conn.PlatformToken)
	}

	var stats struct {
		Total int `json:"total"`
	}
	c.expect(c.do(http.MethodGet, "/api/v1/social-connections/stats/overview", owner.AccessToken, nil), http.StatusOK, &stats)
	if stats.Total != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	c.expect(c.do(http.MethodGet, "/api/v1/auth/meta/login", owner.AccessToken, nil), http.StatusBadRequest, nil)
}

func multipartFile(t *testing.T, field, name, mimeType, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+name+`"`)
	h.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}
