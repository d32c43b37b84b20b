package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/auth"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/server/respond"
)

const (
	userIDKey         = "userId"
	companyIDKey      = "companyId"
	roleKey           = "role"
	userEmailKey      = "userEmail"
	customerIDKey     = "customerId"
	customerSourceKey = "customerSource"
	inviteClaimsKey   = "inviteClaims"
)

// TokenVerifier validates a token of a given family.
type TokenVerifier interface {
	Verify(typ auth.TokenType, token string) (auth.Claims, error)
}

// CustomerIdentity is the persisted view of a customer used by CustomerAuth.
type CustomerIdentity struct {
	ID        string
	CompanyID string
	Source    string
}

// CustomerLookup loads a customer by id. It returns an error when the customer is gone.
type CustomerLookup func(ctx context.Context, customerID string) (CustomerIdentity, error)

// Auth requires a staff access token and stores identity in context.
func Auth(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		token, ok := BearerToken(c)
		if !ok {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}
		claims, err := tokens.Verify(auth.TokenAccess, token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", tokenMessage(err), nil)
			return
		}
		if claims.CompanyID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "token is not bound to a company", nil)
			return
		}

		c.Set(userIDKey, claims.Subject)
		c.Set(companyIDKey, claims.CompanyID)
		c.Set(roleKey, claims.Role)
		if claims.Email != "" {
			c.Set(userEmailKey, claims.Email)
		}
		c.Next()
	}
}

// CustomerAuth requires a customer token whose tenant and source still match the stored customer.
func CustomerAuth(tokens TokenVerifier, lookup CustomerLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}
		claims, err := tokens.Verify(auth.TokenCustomer, token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", tokenMessage(err), nil)
			return
		}
		customer, err := lookup(c.Request.Context(), claims.Subject)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "customer not found", nil)
			return
		}
		if customer.CompanyID != claims.CompanyID || !strings.EqualFold(customer.Source, claims.Source) {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "token does not match customer", nil)
			return
		}

		c.Set(customerIDKey, customer.ID)
		c.Set(companyIDKey, customer.CompanyID)
		c.Set(customerSourceKey, customer.Source)
		c.Next()
	}
}

// InviteAuth accepts an invitation token from the Authorization header or the token query parameter.
func InviteAuth(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			token = strings.TrimSpace(c.Query("token"))
		}
		if token == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "invitation token is required", nil)
			return
		}
		claims, err := tokens.Verify(auth.TokenInvite, token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", tokenMessage(err), nil)
			return
		}
		c.Set(inviteClaimsKey, claims)
		c.Set(companyIDKey, claims.CompanyID)
		c.Next()
	}
}

// RequireRole allows the request only when the staff role is one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[strings.ToUpper(r)] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := allowed[strings.ToUpper(RoleFromContext(c))]; !ok {
			respond.Error(c, http.StatusForbidden, "forbidden", "insufficient role", nil)
			return
		}
		c.Next()
	}
}

// BearerToken extracts the token from an Authorization: Bearer header.
func BearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

func tokenMessage(err error) string {
	if errors.Is(err, auth.ErrTokenExpired) {
		return "token expired"
	}
	return "missing or invalid token"
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	return stringFromContext(c, userIDKey)
}

// CompanyIDFromContext fetches the tenant of the authenticated principal.
func CompanyIDFromContext(c *gin.Context) string {
	return stringFromContext(c, companyIDKey)
}

// RoleFromContext fetches the staff role.
func RoleFromContext(c *gin.Context) string {
	return stringFromContext(c, roleKey)
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	return stringFromContext(c, userEmailKey)
}

// CustomerIDFromContext fetches the customer set by CustomerAuth.
func CustomerIDFromContext(c *gin.Context) string {
	return stringFromContext(c, customerIDKey)
}

// InviteClaimsFromContext returns the invitation claims set by InviteAuth.
func InviteClaimsFromContext(c *gin.Context) (auth.Claims, bool) {
	if c == nil {
		return auth.Claims{}, false
	}
	val, ok := c.Get(inviteClaimsKey)
	if !ok {
		return auth.Claims{}, false
	}
	claims, ok := val.(auth.Claims)
	return claims, ok
}

func stringFromContext(c *gin.Context, key string) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(key)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
