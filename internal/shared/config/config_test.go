package config

import (
	"testing"
	"time"
)

func TestLoadAppliesDevDefaults(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("CUSTOMER_JWT_SECRET", "")
	t.Setenv("JWT_SECRET_INVITED_USER_REG", "")
	t.Setenv("OBJECT_STORE", "")
	t.Setenv("QUEUE_BACKEND", "")

	cfg := Load()

	if cfg.Env != "dev" {
		t.Fatalf("expected env dev, got %q", cfg.Env)
	}
	if cfg.JWTSecret != devJWTSecret {
		t.Fatalf("expected dev secret, got %q", cfg.JWTSecret)
	}
	if cfg.CustomerJWTSecret != cfg.JWTSecret {
		t.Fatalf("expected customer secret to fall back to JWT_SECRET")
	}
	if cfg.InviteJWTSecret == "" || cfg.InviteJWTSecret == cfg.JWTSecret {
		t.Fatalf("expected a distinct invite secret, got %q", cfg.InviteJWTSecret)
	}
	if cfg.InviteTTL != 30*time.Minute {
		t.Fatalf("expected invite ttl 30m, got %s", cfg.InviteTTL)
	}
	if cfg.CustomerTokenTTL != 30*24*time.Hour {
		t.Fatalf("expected customer ttl 30d, got %s", cfg.CustomerTokenTTL)
	}
	if cfg.ObjectStoreType != "local" || cfg.QueueBackend != "none" {
		t.Fatalf("unexpected backends store=%s queue=%s", cfg.ObjectStoreType, cfg.QueueBackend)
	}
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_URL", "postgres://localhost/db")
	t.Setenv("JWT_ACCESS_TTL", "5m")
	t.Setenv("QUEUE_BACKEND", "NATS")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("MAIL_PORT", "2525")

	cfg := Load()

	if cfg.Env != "production" {
		t.Fatalf("expected production, got %q", cfg.Env)
	}
	if cfg.AccessTokenTTL != 5*time.Minute {
		t.Fatalf("expected 5m access ttl, got %s", cfg.AccessTokenTTL)
	}
	if cfg.QueueBackend != "nats" {
		t.Fatalf("expected nats queue, got %q", cfg.QueueBackend)
	}
	if len(cfg.CORSAllowOrigin) != 2 {
		t.Fatalf("expected two origins, got %v", cfg.CORSAllowOrigin)
	}
	if cfg.Mail.Port != 2525 {
		t.Fatalf("expected mail port 2525, got %d", cfg.Mail.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid production config, got %v", err)
	}
}

func TestValidateRequiresSecretsInProduction(t *testing.T) {
	t.Parallel()

	cfg := Config{Env: "production", QueueBackend: "sqs"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
	if err := (Config{Env: "dev"}).Validate(); err != nil {
		t.Fatalf("dev config should not require secrets: %v", err)
	}
}

func TestAddr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		port string
		want string
	}{
		{port: "", want: ":8080"},
		{port: "9000", want: ":9000"},
		{port: ":7000", want: ":7000"},
	}
	for _, tt := range tests {
		if got := (Config{Port: tt.port}).Addr(); got != tt.want {
			t.Fatalf("Addr(%q) = %q, want %q", tt.port, got, tt.want)
		}
	}
}
