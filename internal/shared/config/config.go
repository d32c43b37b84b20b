package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	devJWTSecret = "dev-secret"

	defaultGraphBaseURL  = "https://graph.facebook.com"
	defaultGraphVersion  = "v21.0"
	defaultDialogVersion = "v24.0"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	CORSAllowOrigin []string
	PublicBaseURL   string

	DatabaseURL   string
	RunMigrations bool

	ObjectStoreType string
	LocalStoreDir   string
	PublicDir       string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	JWTSecret         string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	CustomerJWTSecret string
	CustomerTokenTTL  time.Duration
	InviteJWTSecret   string
	InviteTTL         time.Duration
	PasswordResetTTL  time.Duration

	InviteURL        string
	PasswordResetURL string

	Mail MailConfig
	Meta MetaConfig

	QueueBackend      string
	NATSURL           string
	SQSQueueURL       string
	WorkerConcurrency int
	ShutdownTimeout   time.Duration
}

// MailConfig configures outbound SMTP.
type MailConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	FromName    string
	FromAddress string
}

// MetaConfig configures the Facebook app used for page onboarding.
type MetaConfig struct {
	AppID              string
	AppSecret          string
	RedirectURI        string
	WebhookVerifyToken string
	OnboardingURL      string
	GraphBaseURL       string
	GraphVersion       string
	DialogVersion      string
}

// Configured reports whether the app credentials needed for OAuth are present.
func (m MetaConfig) Configured() bool {
	return m.AppID != "" && m.AppSecret != "" && m.RedirectURI != ""
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	jwtSecret := os.Getenv("JWT_SECRET")

	cfg := Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		PublicBaseURL:   strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),

		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RunMigrations: getEnvBool("RUN_MIGRATIONS", false),

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("UPLOAD_DIR", "./uploads"),
		PublicDir:       getEnv("PUBLIC_DIR", "./public"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),

		JWTSecret:         jwtSecret,
		AccessTokenTTL:    getEnvDuration("JWT_ACCESS_TTL", 0),
		RefreshTokenTTL:   getEnvDuration("JWT_REFRESH_TTL", 0),
		CustomerJWTSecret: getEnv("CUSTOMER_JWT_SECRET", ""),
		CustomerTokenTTL:  getEnvDuration("CUSTOMER_JWT_TTL", 0),
		InviteJWTSecret:   getEnv("JWT_SECRET_INVITED_USER_REG", ""),
		InviteTTL:         getEnvDuration("INVITE_TTL", 0),
		PasswordResetTTL:  getEnvDuration("PASSWORD_RESET_TTL", 0),

		InviteURL:        getEnv("FRONTEND_EMPLOYEE_INVITE_URL", "http://localhost:5173/invite"),
		PasswordResetURL: getEnv("FRONTEND_PASSWORD_RESET_URL", "http://localhost:5173/reset-password"),

		Mail: MailConfig{
			Host:        getEnv("MAIL_HOST", ""),
			Port:        getEnvInt("MAIL_PORT", 587),
			User:        getEnv("MAIL_USER", ""),
			Password:    getEnv("MAIL_PASSWORD", ""),
			FromName:    getEnv("MAIL_FROM_NAME", "Butter Chat"),
			FromAddress: getEnv("MAIL_FROM_ADDRESS", "no-reply@localhost"),
		},
		Meta: MetaConfig{
			AppID:              getEnv("META_APP_ID", ""),
			AppSecret:          getEnv("META_APP_SECRET", ""),
			RedirectURI:        getEnv("META_REDIRECT_URI", ""),
			WebhookVerifyToken: getEnv("META_WEB_HOOK_VERIFY_TOKEN", ""),
			OnboardingURL:      getEnv("META_ONBOARDING_URL", "http://localhost:5173/onboarding"),
			GraphBaseURL:       getEnv("META_GRAPH_BASE_URL", defaultGraphBaseURL),
			GraphVersion:       getEnv("META_GRAPH_VERSION", defaultGraphVersion),
			DialogVersion:      getEnv("META_DIALOG_VERSION", defaultDialogVersion),
		},

		QueueBackend:      normalizeQueueType(getEnv("QUEUE_BACKEND", "none")),
		NATSURL:           getEnv("NATS_URL", "nats://127.0.0.1:4222"),
		SQSQueueURL:       getEnv("SQS_QUEUE_URL", ""),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),
		ShutdownTimeout:   getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		log.Printf("config: %v", err)
	}
	return cfg.WithDefaults()
}

// Validate reports settings that must be present outside development.
func (c Config) Validate() error {
	if c.Env != "production" {
		return nil
	}
	var errs []error
	if strings.TrimSpace(c.DatabaseURL) == "" {
		errs = append(errs, errors.New("DATABASE_URL is required in production"))
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required in production"))
	}
	if c.ObjectStoreType == "s3" && strings.TrimSpace(c.S3Bucket) == "" {
		errs = append(errs, errors.New("OBJECT_STORE=s3 requires S3_BUCKET"))
	}
	if c.QueueBackend == "sqs" && strings.TrimSpace(c.SQSQueueURL) == "" {
		errs = append(errs, errors.New("QUEUE_BACKEND=sqs requires SQS_QUEUE_URL"))
	}
	return errors.Join(errs...)
}

// WithDefaults fills zero values so partially populated configs (tests, tools) behave like Load.
func (c Config) WithDefaults() Config {
	if strings.TrimSpace(c.Env) == "" {
		c.Env = "dev"
	}
	if c.ObjectStoreType == "" {
		c.ObjectStoreType = "local"
	}
	if c.QueueBackend == "" {
		c.QueueBackend = "none"
	}
	if c.LocalStoreDir == "" {
		c.LocalStoreDir = "./uploads"
	}
	if c.PublicDir == "" {
		c.PublicDir = "./public"
	}
	if c.JWTSecret == "" && c.Env != "production" {
		c.JWTSecret = devJWTSecret
	}
	if c.CustomerJWTSecret == "" {
		c.CustomerJWTSecret = c.JWTSecret
	}
	if c.InviteJWTSecret == "" && c.JWTSecret != "" {
		c.InviteJWTSecret = c.JWTSecret + ":invite"
	}
	if c.AccessTokenTTL <= 0 {
		c.AccessTokenTTL = 15 * time.Minute
	}
	if c.RefreshTokenTTL <= 0 {
		c.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if c.CustomerTokenTTL <= 0 {
		c.CustomerTokenTTL = 30 * 24 * time.Hour
	}
	if c.InviteTTL <= 0 {
		c.InviteTTL = 30 * time.Minute
	}
	if c.PasswordResetTTL <= 0 {
		c.PasswordResetTTL = time.Hour
	}
	if c.Meta.GraphBaseURL == "" {
		c.Meta.GraphBaseURL = defaultGraphBaseURL
	}
	if c.Meta.GraphVersion == "" {
		c.Meta.GraphVersion = defaultGraphVersion
	}
	if c.Meta.DialogVersion == "" {
		c.Meta.DialogVersion = defaultDialogVersion
	}
	if c.WorkerConcurrency <= 0 {
		c.WorkerConcurrency = 4
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	return c
}

// IsDevLike reports whether the environment allows development fallbacks.
func (c Config) IsDevLike() bool {
	switch c.Env {
	case "dev", "local":
		return true
	default:
		return false
	}
}

// Addr normalizes the listen address.
func (c Config) Addr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		return ":8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config: %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("config: %s invalid bool %q, using %t", key, raw, def)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config: %s invalid duration %q, using %s", key, raw, def)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeQueueType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "nats":
		return "nats"
	case "sqs":
		return "sqs"
	default:
		return "none"
	}
}

func (c Config) String() string {
	return fmt.Sprintf("env=%s port=%s store=%s queue=%s db=%t", c.Env, c.Port, c.ObjectStoreType, c.QueueBackend, c.DatabaseURL != "")
}
