// Package main is the entrypoint for the Plixa API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/plixa/plixa/internal/audit"
	"github.com/plixa/plixa/internal/auth"
	"github.com/plixa/plixa/internal/cache"
	"github.com/plixa/plixa/internal/config"
	"github.com/plixa/plixa/internal/handler"
	"github.com/plixa/plixa/internal/mail"
	"github.com/plixa/plixa/internal/metrics"
	"github.com/plixa/plixa/internal/middleware"
	"github.com/plixa/plixa/internal/model"
	"github.com/plixa/plixa/internal/provider"
	"github.com/plixa/plixa/internal/repository"
	"github.com/plixa/plixa/internal/server"
	"github.com/plixa/plixa/internal/service"
)

func main() {
	// Initialize context
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	if err := repo.Migrate(); err != nil {
		logger.Error("failed to run migrations", "error", sanitizeError(err, cfg.DatabaseURL))
		os.Exit(1)
	}

	// Initialize cache and event stream
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	metricsRecorder := metrics.NewInMemory()

	// Mail dispatch
	transport := mail.NewSMTPTransport(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		Security: cfg.SMTPSecurity,
	})
	dispatcher := mail.NewDispatcher(transport, logger, metricsRecorder)
	notifier := mail.NewNotifier(dispatcher, cfg.MailFrom)

	// Token issuance and scope evaluation
	tokens := auth.NewTokenIssuer(cfg.JWTSecretKey, cfg.JWTExpiresDelta())
	evaluator := auth.NewEvaluator(auth.DefaultScopeTable())

	// Audit event pipeline
	publisher := audit.NewPublisher(cacheClient.Client(), logger, metricsRecorder)
	worker := audit.NewWorker(cacheClient.Client(), repo, logger, audit.NewConsumerID(), metricsRecorder)

	workerCtx, stopWorker := context.WithCancel(ctx)
	go func() {
		if err := worker.Run(workerCtx); err != nil {
			logger.Error("audit worker stopped", "error", err)
		}
	}()

	// Initialize services
	paymentService := service.NewPaymentService(repo, publisher, notifier, logger, metricsRecorder)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	authHandler := handler.NewAuthHandler(repo, tokens, evaluator, notifier, publisher, logger, cfg.JWTExpiresDelta())
	userHandler := handler.NewUserHandler(repo, logger)
	orgHandler := handler.NewOrganizationHandler(repo, logger)
	clusterHandler := handler.NewClusterHandler(repo, orgHandler, paymentService, publisher, logger)

	var verifier handler.ProviderVerifier
	if cfg.ProviderBaseURL != "" {
		verifier = provider.NewClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey)
	}
	txHandler := handler.NewTransactionHandler(paymentService, clusterHandler, verifier, logger)
	withdrawalHandler := handler.NewWithdrawalHandler(paymentService, orgHandler, logger)
	webhookHandler := handler.NewWebhookHandler(paymentService, cfg.ProviderWebhookSecret, logger)
	metricsHandler := handler.NewMetricsHandler(metricsRecorder)

	// Setup router
	r := setupRouter(routerDeps{
		health:      healthHandler,
		auth:        authHandler,
		users:       userHandler,
		orgs:        orgHandler,
		clusters:    clusterHandler,
		txns:        txHandler,
		withdrawals: withdrawalHandler,
		webhooks:    webhookHandler,
		metricsPage: metricsHandler,
		repo:        repo,
		cache:       cacheClient,
		tokens:      tokens,
		metrics:     metricsRecorder,
		cfg:         cfg,
		logger:      logger,
	})

	// Create and run server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	srv.OnShutdown("audit worker", func(ctx context.Context) error {
		stopWorker()
		return worker.Shutdown(ctx)
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type routerDeps struct {
	health      *handler.HealthHandler
	auth        *handler.AuthHandler
	users       *handler.UserHandler
	orgs        *handler.OrganizationHandler
	clusters    *handler.ClusterHandler
	txns        *handler.TransactionHandler
	withdrawals *handler.WithdrawalHandler
	webhooks    *handler.WebhookHandler
	metricsPage *handler.MetricsHandler
	repo        *repository.Repository
	cache       *cache.Cache
	tokens      *auth.TokenIssuer
	metrics     metrics.Recorder
	cfg         *config.Config
	logger      *slog.Logger
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(deps routerDeps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.logger))
	r.Use(middleware.Recoverer(deps.logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment:      deps.cfg.IsDevelopment(),
		AllowedOrigins:     deps.cfg.GetCORSAllowedOrigins(),
		MaxRequestBodySize: deps.cfg.MaxRequestBodySize,
	}))
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = deps.cfg.GetCORSAllowedOrigins()
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(deps.cfg.MaxRequestBodySize))

	// Health endpoints (no auth required)
	r.Get("/healthz", deps.health.Healthz)
	r.Get("/readyz", deps.health.Readyz)

	// Root info endpoint
	r.Get("/", handler.Hello)

	// Auth middleware configuration
	authCfg := middleware.AuthConfig{
		Logger:     deps.logger,
		Repository: deps.repo,
		Cache:      deps.cache,
		Tokens:     deps.tokens,
		Metrics:    deps.metrics,
	}

	// Rate limit middleware configuration
	rateLimitCfg := middleware.RateLimitConfig{
		Logger:       deps.logger,
		Cache:        deps.cache,
		APIEnabled:   deps.cfg.RateLimitAPIEnabled,
		APIPerMinute: deps.cfg.RateLimitAPIPerMinute,
		APIBurst:     deps.cfg.RateLimitAPIBurst,
		PayEnabled:   deps.cfg.RateLimitPayEnabled,
		PayRPS:       deps.cfg.RateLimitPayRPS,
		PayBurst:     deps.cfg.RateLimitPayBurst,
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Account creation and token issuance (no auth required; signup
		// honors a bearer token so superusers can create staff accounts)
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthOptional(authCfg)).Post("/users", deps.auth.CreateUser)
			r.Post("/token", deps.auth.AccessToken)
			r.Post("/password-reset/request", deps.auth.RequestPasswordReset)
			r.Post("/password-reset/confirm", deps.auth.ResetPassword)
		})

		// Payer-facing payment initiation and polling (no auth, IP rate-limited)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitIP(rateLimitCfg))
			r.Post("/pay/{clusterID}", deps.txns.Initiate)
			r.Get("/pay/verify/{reference}", deps.txns.Verify)
		})

		// Provider callback, verified by signature instead of a bearer token
		r.Post("/payments/webhook", deps.webhooks.ProviderCallback)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authCfg))
			r.Use(middleware.RateLimitAPI(rateLimitCfg))

			r.With(middleware.RequireScope(model.ScopeAll)).Get("/metrics", deps.metricsPage.Metrics)

			r.Route("/users", func(r chi.Router) {
				r.Get("/me", deps.users.Me)
				r.Patch("/me", deps.users.UpdateMe)
				r.With(middleware.RequireScope(model.ScopeAll)).Get("/", deps.users.List)
				r.With(middleware.RequireScope(model.ScopeAll)).Patch("/{id}", deps.users.Update)
				r.With(middleware.RequireScope(model.ScopeAll)).Delete("/{id}", deps.users.Delete)
				r.With(middleware.RequireScope(model.ScopeAll)).Post("/{id}/disable", deps.users.Disable)
				r.With(middleware.RequireScope(model.ScopeAll)).Post("/{id}/enable", deps.users.Enable)
			})

			r.Route("/organizations", func(r chi.Router) {
				r.With(middleware.RequireOrganizationRead()).Get("/", deps.orgs.List)
				r.With(middleware.RequireOrganizationWrite()).Post("/", deps.orgs.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.With(middleware.RequireOrganizationRead()).Get("/", deps.orgs.Get)
					r.With(middleware.RequireOrganizationWrite()).Patch("/", deps.orgs.Update)
					r.With(middleware.RequireScope(model.ScopeAll)).Delete("/", deps.orgs.Delete)
					r.With(middleware.RequireOrganizationWrite()).Post("/add-users", deps.orgs.AddUsers)
					r.With(middleware.RequireOrganizationWrite()).Post("/remove-users", deps.orgs.RemoveUsers)

					r.With(middleware.RequirePaymentsAdmin()).Get("/audit-events", deps.orgs.AuditTrail)
					r.With(middleware.RequirePaymentsAdmin()).Get("/balance", deps.withdrawals.Balance)
					r.With(middleware.RequireOrganizationRead()).Get("/withdrawals", deps.withdrawals.List)
					r.With(middleware.RequireOrganizationRead()).Get("/withdrawals/{withdrawalID}", deps.withdrawals.Get)
					r.With(middleware.RequirePaymentsAdmin()).Post("/withdrawals", deps.withdrawals.Create)

					r.Route("/clusters", func(r chi.Router) {
						r.With(middleware.RequireOrganizationRead()).Get("/", deps.clusters.List)
						r.With(middleware.RequireOrganizationWrite()).Post("/", deps.clusters.Create)

						r.Route("/{clusterID}", func(r chi.Router) {
							r.With(middleware.RequireOrganizationRead()).Get("/", deps.clusters.Get)
							r.With(middleware.RequireOrganizationWrite()).Patch("/", deps.clusters.Update)
							r.With(middleware.RequireOrganizationWrite()).Delete("/", deps.clusters.Delete)
							r.With(middleware.RequireOrganizationWrite()).Post("/deploy", deps.clusters.Deploy)
							r.With(middleware.RequireOrganizationWrite()).Post("/teardown", deps.clusters.Teardown)
							r.With(middleware.RequirePaymentsAdmin()).Get("/balance", deps.clusters.Balance)
							r.With(middleware.RequireOrganizationRead()).Get("/transactions", deps.txns.List)
						})
					})
				})
			})
		})
	})

	// 404 and 405 handlers
	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
