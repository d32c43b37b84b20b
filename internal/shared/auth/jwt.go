package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType separates the token families signed by the service.
type TokenType string

const (
	TokenAccess    TokenType = "access"
	TokenRefresh   TokenType = "refresh"
	TokenCustomer  TokenType = "customer"
	TokenInvite    TokenType = "invite"
	TokenMetaState TokenType = "meta_state"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the payload shared by all token families. Unused fields are omitted.
type Claims struct {
	Type      TokenType `json:"typ"`
	CompanyID string    `json:"companyId,omitempty"`
	Role      string    `json:"role,omitempty"`
	Email     string    `json:"email,omitempty"`
	Source    string    `json:"source,omitempty"`
	Contact   string    `json:"contact,omitempty"`
	Nonce     string    `json:"nonce,omitempty"`
	jwt.RegisteredClaims
}

// IssuerConfig carries the secrets and lifetimes for each token family.
type IssuerConfig struct {
	Secret         string
	CustomerSecret string
	InviteSecret   string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	CustomerTTL    time.Duration
	InviteTTL      time.Duration
	StateTTL       time.Duration
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secrets map[TokenType][]byte
	ttls    map[TokenType]time.Duration
	now     func() time.Time
}

// NewIssuer validates the configuration and builds an Issuer.
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	customer := cfg.CustomerSecret
	if customer == "" {
		customer = cfg.Secret
	}
	invite := cfg.InviteSecret
	if invite == "" {
		invite = cfg.Secret + ":invite"
	}
	return &Issuer{
		secrets: map[TokenType][]byte{
			TokenAccess:    []byte(cfg.Secret),
			TokenRefresh:   []byte(cfg.Secret + ":refresh"),
			TokenCustomer:  []byte(customer),
			TokenInvite:    []byte(invite),
			TokenMetaState: []byte(cfg.Secret + ":meta"),
		},
		ttls: map[TokenType]time.Duration{
			TokenAccess:    orDefault(cfg.AccessTTL, 15*time.Minute),
			TokenRefresh:   orDefault(cfg.RefreshTTL, 7*24*time.Hour),
			TokenCustomer:  orDefault(cfg.CustomerTTL, 30*24*time.Hour),
			TokenInvite:    orDefault(cfg.InviteTTL, 30*time.Minute),
			TokenMetaState: orDefault(cfg.StateTTL, 10*time.Minute),
		},
		now: time.Now,
	}, nil
}

// WithClock overrides the time source, for tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// TTL returns the lifetime configured for a token family.
func (i *Issuer) TTL(typ TokenType) time.Duration {
	return i.ttls[typ]
}

// Sign issues a token of the given family for subject. The claims' type and
// registered fields are filled in by the issuer.
func (i *Issuer) Sign(typ TokenType, subject string, claims Claims) (string, time.Time, error) {
	secret, ok := i.secrets[typ]
	if !ok {
		return "", time.Time{}, fmt.Errorf("unknown token type %q", typ)
	}
	if strings.TrimSpace(subject) == "" {
		return "", time.Time{}, errors.New("token subject is required")
	}
	now := i.now().UTC()
	exp := now.Add(i.ttls[typ])
	claims.Type = typ
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, exp, nil
}

// Verify parses token, checks signature, expiry and family.
func (i *Issuer) Verify(typ TokenType, token string) (Claims, error) {
	secret, ok := i.secrets[typ]
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(token), &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrInvalidToken
	}
	if claims.Type != typ || claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

func orDefault(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
