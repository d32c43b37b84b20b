package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/aiagents"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/auth"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/companies"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/customers"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/departments"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/documents"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/messenger"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/meta"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/services/health"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/config"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/metrics"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/server/middleware"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/server/respond"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/server/validate"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shifts"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/socialconnections"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/users"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/weburis"
)

const publicRateGroup = "PUBLIC"

// publicRule throttles unauthenticated signup, login and upload routes per client IP.
var publicRule = middleware.RateLimitRule{Rate: 1, Burst: 30}

// RouterDeps carries the handlers mounted by NewRouter.
type RouterDeps struct {
	Config         config.Config
	Tokens         middleware.TokenVerifier
	Health         *health.Service
	CustomerLookup middleware.CustomerLookup
	RateLimiter    *middleware.RateLimiter

	Auth              *auth.Handler
	Companies         *companies.Handler
	Users             *users.Handler
	Departments       *departments.Handler
	Shifts            *shifts.Handler
	Customers         *customers.Handler
	Messenger         *messenger.Handler
	Documents         *documents.Handler
	WebURIs           *weburis.Handler
	SocialConnections *socialconnections.Handler
	Meta              *meta.Handler
	AIAgents          *aiagents.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	validate.Register()

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		metrics.Middleware(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())
	if deps.Config.PublicDir != "" {
		r.Static("/public", deps.Config.PublicDir)
	}

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		status := deps.Health.Status(c.Request.Context())
		code := http.StatusOK
		if !status.OK {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, status)
	})

	// Meta calls the callback and webhook directly, so they sit outside the limiter.
	deps.Meta.RegisterPublicRoutes(api)

	public := api.Group("")
	public.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Rules:        map[string]middleware.RateLimitRule{publicRateGroup: publicRule},
		DefaultGroup: publicRateGroup,
		Limiter:      deps.RateLimiter,
	}))
	deps.Auth.RegisterPublicRoutes(public)
	deps.Companies.RegisterPublicRoutes(public)
	deps.Users.RegisterPublicRoutes(public)
	deps.Customers.RegisterPublicRoutes(public)
	deps.Documents.RegisterPublicRoutes(public)

	customer := api.Group("")
	customer.Use(middleware.CustomerAuth(deps.Tokens, deps.CustomerLookup))
	deps.Customers.RegisterCustomerRoutes(customer)

	staff := api.Group("")
	staff.Use(middleware.Auth(deps.Tokens))
	deps.Auth.RegisterRoutes(staff)
	deps.Companies.RegisterRoutes(staff)
	deps.Users.RegisterRoutes(staff)
	deps.Departments.RegisterRoutes(staff)
	deps.Shifts.RegisterRoutes(staff)
	deps.Customers.RegisterRoutes(staff)
	deps.Messenger.RegisterRoutes(staff)
	deps.Documents.RegisterRoutes(staff)
	deps.WebURIs.RegisterRoutes(staff)
	deps.SocialConnections.RegisterRoutes(staff)
	deps.Meta.RegisterRoutes(staff)
	deps.AIAgents.RegisterRoutes(staff)

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "route not found", nil)
	})
	return r
}
