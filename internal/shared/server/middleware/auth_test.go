package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/auth"
)

func newTestIssuer(t *testing.T) *auth.Issuer {
	t.Helper()
	issuer, err := auth.NewIssuer(auth.IssuerConfig{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	return issuer
}

func signToken(t *testing.T, issuer *auth.Issuer, typ auth.TokenType, subject string, claims auth.Claims) string {
	t.Helper()
	token, _, err := issuer.Sign(typ, subject, claims)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(newTestIssuer(t)))
	router.OPTIONS("/api/v1/users", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/users", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestAuthSetsIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer := newTestIssuer(t)
	router := gin.New()
	router.Use(Auth(issuer))
	router.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user":    UserIDFromContext(c),
			"company": CompanyIDFromContext(c),
			"role":    RoleFromContext(c),
		})
	})

	token := signToken(t, issuer, auth.TokenAccess, "user-1", auth.Claims{CompanyID: "company-1", Role: "OWNER"})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	want := `{"company":"company-1","role":"OWNER","user":"user-1"}`
	if resp.Body.String() != want {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestAuthRejects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer := newTestIssuer(t)

	cases := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "garbage token", header: "Bearer not-a-jwt"},
		{name: "refresh token", header: "Bearer " + signToken(t, issuer, auth.TokenRefresh, "user-1", auth.Claims{CompanyID: "c"})},
		{name: "customer token", header: "Bearer " + signToken(t, issuer, auth.TokenCustomer, "cust-1", auth.Claims{CompanyID: "c"})},
		{name: "no company", header: "Bearer " + signToken(t, issuer, auth.TokenAccess, "user-1", auth.Claims{})},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			router.Use(Auth(issuer))
			router.GET("/me", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			if resp.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", resp.Code)
			}
		})
	}
}

func TestAuthReportsExpiredToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	past := time.Now().Add(-2 * time.Hour)
	old := newTestIssuer(t).WithClock(func() time.Time { return past })
	token := signToken(t, old, auth.TokenAccess, "user-1", auth.Claims{CompanyID: "c"})

	router := gin.New()
	router.Use(Auth(newTestIssuer(t)))
	router.GET("/me", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if body := resp.Body.String(); !strings.Contains(body, "token expired") {
		t.Fatalf("expected expiry message, got %s", body)
	}
}

func TestCustomerAuthChecksStoredCustomer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer := newTestIssuer(t)
	lookup := func(_ context.Context, id string) (CustomerIdentity, error) {
		switch id {
		case "cust-1":
			return CustomerIdentity{ID: "cust-1", CompanyID: "company-1", Source: "WEB"}, nil
		case "cust-moved":
			return CustomerIdentity{ID: "cust-moved", CompanyID: "company-2", Source: "WEB"}, nil
		}
		return CustomerIdentity{}, errors.New("not found")
	}

	cases := []struct {
		name    string
		subject string
		claims  auth.Claims
		want    int
	}{
		{name: "valid", subject: "cust-1", claims: auth.Claims{CompanyID: "company-1", Source: "web"}, want: http.StatusOK},
		{name: "source mismatch", subject: "cust-1", claims: auth.Claims{CompanyID: "company-1", Source: "WHATSAPP"}, want: http.StatusUnauthorized},
		{name: "company mismatch", subject: "cust-moved", claims: auth.Claims{CompanyID: "company-1", Source: "WEB"}, want: http.StatusUnauthorized},
		{name: "unknown customer", subject: "ghost", claims: auth.Claims{CompanyID: "company-1", Source: "WEB"}, want: http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			router.Use(CustomerAuth(issuer, lookup))
			router.GET("/customer/me", func(c *gin.Context) {
				c.String(http.StatusOK, CustomerIDFromContext(c)+"@"+CompanyIDFromContext(c))
			})

			token := signToken(t, issuer, auth.TokenCustomer, tc.subject, tc.claims)
			req := httptest.NewRequest(http.MethodGet, "/customer/me", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			if resp.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, resp.Code, resp.Body.String())
			}
			if tc.want == http.StatusOK && resp.Body.String() != "cust-1@company-1" {
				t.Fatalf("unexpected identity %s", resp.Body.String())
			}
		})
	}
}

func TestInviteAuthAcceptsQueryToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer := newTestIssuer(t)
	router := gin.New()
	router.Use(InviteAuth(issuer))
	router.GET("/invite", func(c *gin.Context) {
		claims, ok := InviteClaimsFromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, claims.Email)
	})

	token := signToken(t, issuer, auth.TokenInvite, "pending-1", auth.Claims{CompanyID: "company-1", Email: "new@example.com"})
	req := httptest.NewRequest(http.MethodGet, "/invite?token="+token, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || resp.Body.String() != "new@example.com" {
		t.Fatalf("unexpected response %d %s", resp.Code, resp.Body.String())
	}

	access := signToken(t, issuer, auth.TokenAccess, "user-1", auth.Claims{CompanyID: "company-1"})
	req = httptest.NewRequest(http.MethodGet, "/invite?token="+access, nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected access token to be rejected, got %d", resp.Code)
	}
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		role string
		want int
	}{
		{role: "OWNER", want: http.StatusOK},
		{role: "admin", want: http.StatusOK},
		{role: "EMPLOYEE", want: http.StatusForbidden},
		{role: "", want: http.StatusForbidden},
	}
	for _, tc := range cases {
		router := gin.New()
		router.Use(func(c *gin.Context) {
			c.Set("role", tc.role)
			c.Next()
		}, RequireRole("OWNER", "ADMIN"))
		router.GET("/admin", func(c *gin.Context) { c.Status(http.StatusOK) })

		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/admin", nil))
		if resp.Code != tc.want {
			t.Fatalf("role %q: expected %d, got %d", tc.role, tc.want, resp.Code)
		}
	}
}

