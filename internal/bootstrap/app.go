package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/aiagents"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/auth"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/companies"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/customers"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/departments"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/documents"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/mail"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/messenger"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/meta"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/queue"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/services/health"
	sharedauth "github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/auth"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/config"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/resilience"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/server"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/storage/db"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/storage/object"
	localstore "github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/storage/object/local"
	s3store "github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/storage/object/s3"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/telemetry"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shifts"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/socialconnections"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/users"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/weburis"
)

// App holds the wired services. The API and the worker share it.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	DB        *sql.DB
	Store     object.Store
	Publisher queue.Publisher
	Tokens    *sharedauth.Issuer
	Mailer    mail.Sender

	Companies         *companies.Service
	Users             *users.Service
	Auth              *auth.Service
	Departments       *departments.Service
	Shifts            *shifts.Service
	Customers         *customers.Service
	Messenger         *messenger.Service
	Documents         *documents.Service
	WebURIs           *weburis.Service
	SocialConnections *socialconnections.Service
	Meta              *meta.Service
	AIAgents          *aiagents.Service
	Health            *health.Service
}

// repos groups one storage backend per module.
type repos struct {
	companies   companies.Repo
	users       users.Repo
	departments departments.Repo
	shifts      shifts.Repo
	customers   customers.Repo
	messenger   messenger.Repo
	weburis     weburis.Repo
	connections socialconnections.Repo
	aiagents    aiagents.Repo
	registrar   auth.Registrar
	resets      auth.ResetStore
	purgers     []companies.TenantPurger
}

// Build wires every module from cfg. An empty DATABASE_URL selects in-memory repositories.
func Build(cfg config.Config) (*App, error) {
	return build(cfg, db.DefaultServerOptions())
}

// BuildWorker is Build with a database pool sized for the worker's concurrency.
func BuildWorker(cfg config.Config) (*App, error) {
	cfg = cfg.WithDefaults()
	return build(cfg, db.DefaultWorkerOptions(cfg.WorkerConcurrency))
}

func build(cfg config.Config, pool db.Options) (*App, error) {
	cfg = cfg.WithDefaults()
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg, pool)
	if err != nil {
		return nil, err
	}
	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	publisher, err := buildPublisher(ctx, cfg)
	if err != nil {
		return nil, err
	}
	tokens, err := sharedauth.NewIssuer(sharedauth.IssuerConfig{
		Secret:         cfg.JWTSecret,
		CustomerSecret: cfg.CustomerJWTSecret,
		InviteSecret:   cfg.InviteJWTSecret,
		AccessTTL:      cfg.AccessTokenTTL,
		RefreshTTL:     cfg.RefreshTokenTTL,
		CustomerTTL:    cfg.CustomerTokenTTL,
		InviteTTL:      cfg.InviteTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("token issuer: %w", err)
	}

	app := &App{
		Config:    cfg,
		DB:        sqlDB,
		Store:     store,
		Publisher: publisher,
		Tokens:    tokens,
		Mailer:    mail.New(cfg.Mail),
		Health:    health.NewService(sqlDB),
	}
	buildServices(app, buildRepos(sqlDB))

	app.Router = server.NewRouter(server.RouterDeps{
		Config:            cfg,
		Tokens:            tokens,
		Health:            app.Health,
		CustomerLookup:    app.Customers.Lookup,
		Auth:              auth.NewHandler(app.Auth),
		Companies:         companies.NewHandler(app.Companies),
		Users:             users.NewHandler(app.Users, tokens, cfg.IsDevLike()),
		Departments:       departments.NewHandler(app.Departments),
		Shifts:            shifts.NewHandler(app.Shifts),
		Customers:         customers.NewHandler(app.Customers),
		Messenger:         messenger.NewHandler(app.Messenger),
		Documents:         documents.NewHandler(app.Documents),
		WebURIs:           weburis.NewHandler(app.WebURIs),
		SocialConnections: socialconnections.NewHandler(app.SocialConnections),
		Meta:              meta.NewHandler(app.Meta),
		AIAgents:          aiagents.NewHandler(app.AIAgents),
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":            cfg.Env,
		"database":       sqlDB != nil,
		"object_store":   cfg.ObjectStoreType,
		"queue":          cfg.QueueBackend,
		"meta_connected": cfg.Meta.Configured(),
	})
	return app, nil
}

// Close releases the queue connection and the database pool.
func (a *App) Close() error {
	var errs []error
	if a.Publisher != nil {
		errs = append(errs, a.Publisher.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config, pool db.Options) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.db.memory", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, errors.New("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(pool))
	if err != nil {
		return nil, err
	}
	if cfg.RunMigrations {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, errors.New("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildPublisher(ctx context.Context, cfg config.Config) (queue.Publisher, error) {
	switch cfg.QueueBackend {
	case "nats":
		return queue.NewNATS(cfg.NATSURL, queue.NATSOptions{Name: "butter-chat-api", ShutdownTimeout: cfg.ShutdownTimeout})
	case "sqs":
		q, err := queue.NewSQS(ctx, cfg.AWSRegion, cfg.SQSQueueURL)
		if err != nil {
			return nil, err
		}
		q.Concurrency = cfg.WorkerConcurrency
		q.ShutdownTimeout = cfg.ShutdownTimeout
		return q, nil
	default:
		return queue.NewLogPublisher(), nil
	}
}

func buildRepos(sqlDB *sql.DB) repos {
	if sqlDB != nil {
		return repos{
			companies:   &companies.PGRepo{DB: sqlDB},
			users:       &users.PGRepo{DB: sqlDB},
			departments: &departments.PGRepo{DB: sqlDB},
			shifts:      &shifts.PGRepo{DB: sqlDB},
			customers:   &customers.PGRepo{DB: sqlDB},
			messenger:   &messenger.PGRepo{DB: sqlDB},
			weburis:     &weburis.PGRepo{DB: sqlDB},
			connections: &socialconnections.PGRepo{DB: sqlDB},
			aiagents:    &aiagents.PGRepo{DB: sqlDB},
			registrar:   &auth.PGRegistrar{DB: sqlDB},
			resets:      &auth.PGResetStore{DB: sqlDB},
		}
	}
	userRepo := users.NewMemoryRepo()
	departmentRepo := departments.NewMemoryRepo()
	shiftRepo := shifts.NewMemoryRepo()
	customerRepo := customers.NewMemoryRepo()
	messengerRepo := messenger.NewMemoryRepo()
	webURIRepo := weburis.NewMemoryRepo()
	connectionRepo := socialconnections.NewMemoryRepo()
	agentRepo := aiagents.NewMemoryRepo()
	r := repos{
		companies:   companies.NewMemoryRepo(),
		users:       userRepo,
		departments: departmentRepo,
		shifts:      shiftRepo,
		customers:   customerRepo,
		messenger:   messengerRepo,
		weburis:     webURIRepo,
		connections: connectionRepo,
		aiagents:    agentRepo,
		resets:      auth.NewMemoryResetStore(),
		purgers: []companies.TenantPurger{
			userRepo, departmentRepo, shiftRepo, customerRepo,
			messengerRepo, webURIRepo, connectionRepo, agentRepo,
		},
	}
	r.registrar = &auth.MemoryRegistrar{Companies: r.companies, Users: r.users}
	return r
}

func buildServices(app *App, r repos) {
	cfg := app.Config

	app.Companies = companies.NewService(r.companies)
	app.Companies.Purgers = r.purgers
	app.Users = &users.Service{
		Repo:        r.users,
		Departments: r.departments,
		Shifts:      r.shifts,
		Companies:   r.companies,
		Tokens:      app.Tokens,
		Mailer:      app.Mailer,
		InviteURL:   cfg.InviteURL,
	}
	app.Auth = &auth.Service{
		Registrar: r.registrar,
		Users:     r.users,
		Sessions:  app.Users,
		Tokens:    app.Tokens,
		Resets:    r.resets,
		Mailer:    app.Mailer,
		ResetURL:  cfg.PasswordResetURL,
		ResetTTL:  cfg.PasswordResetTTL,
	}
	app.Departments = departments.NewService(r.departments, r.users)
	app.Shifts = shifts.NewService(r.shifts, r.users)
	app.Customers = &customers.Service{
		Repo:      r.customers,
		Companies: r.companies,
		Tokens:    app.Tokens,
	}
	app.Messenger = messenger.NewService(r.messenger, app.Customers, app.Publisher)
	app.Documents = &documents.Service{
		Store:   app.Store,
		Avatars: localstore.New(cfg.PublicDir),
		Events:  app.Publisher,
	}
	app.WebURIs = weburis.NewService(r.weburis, app.Publisher)
	app.AIAgents = aiagents.NewService(r.aiagents)

	app.SocialConnections = socialconnections.NewService(r.connections, nil)
	graph := meta.NewClient(cfg.Meta.GraphBaseURL, cfg.Meta.GraphVersion, nil, resilience.NewExecutor(resilience.DefaultConfig()))
	app.Meta = meta.NewService(cfg.Meta, graph, app.Tokens, app.SocialConnections, app.Publisher)
	if cfg.Meta.Configured() {
		app.SocialConnections.Verifier = app.Meta
	}
}
