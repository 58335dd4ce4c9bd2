package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	billingapp "github.com/commerce/backend/internal/application/billing"
	voucherapp "github.com/commerce/backend/internal/application/voucher"
	walletapp "github.com/commerce/backend/internal/application/wallet"
	webhookapp "github.com/commerce/backend/internal/application/webhook"
	"github.com/commerce/backend/internal/infrastructure/auth"
	"github.com/commerce/backend/internal/infrastructure/cache"
	"github.com/commerce/backend/internal/infrastructure/config"
	"github.com/commerce/backend/internal/infrastructure/dispatch"
	"github.com/commerce/backend/internal/infrastructure/logger"
	"github.com/commerce/backend/internal/infrastructure/persistence"
	"github.com/commerce/backend/internal/infrastructure/scheduler"
	"github.com/commerce/backend/internal/infrastructure/telemetry"
	"github.com/commerce/backend/internal/interfaces/http/handler"
	"github.com/commerce/backend/internal/interfaces/http/middleware"
	"github.com/commerce/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	_ "github.com/commerce/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			Commerce Billing API
//	@version		1.0
//	@description	Wallet ledger and payment reconciliation backend for the commerce platform

//	@contact.name	API Support
//	@contact.url	https://github.com/commerce/backend

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting commerce backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize database connection
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Telemetry bootstrap. Traces, metrics and logs export over OTLP;
	// profiles stream to Pyroscope. Disabled providers are no-ops.
	telemetryCtx := context.Background()
	tracerProvider, err := telemetry.NewTracerProvider(telemetryCtx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer shutdownWithTimeout("tracer provider", tracerProvider.Shutdown, log)

	meterProvider, err := telemetry.NewMeterProvider(telemetryCtx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer shutdownWithTimeout("meter provider", meterProvider.Shutdown, log)

	logsProvider, err := telemetry.NewLoggerProvider(telemetryCtx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logs provider", zap.Error(err))
	}
	defer shutdownWithTimeout("logs provider", logsProvider.Shutdown, log)

	if logsProvider.IsEnabled() {
		otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			LoggerProvider: logsProvider,
		})
		log = telemetry.NewBridgedLogger(log.Core(), otelCore, zap.AddCaller())
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Profiling.Enabled,
		ServerAddress:     cfg.Profiling.ServerAddress,
		ApplicationName:   cfg.Profiling.ApplicationName,
		BasicAuthUser:     cfg.Profiling.BasicAuthUser,
		BasicAuthPassword: cfg.Profiling.BasicAuthPassword,
		ProfileCPU:        true,
		ProfileAllocSpace: true,
		ProfileInuseSpace: true,
		ProfileGoroutines: true,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	if cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:          true,
			LogFullSQL:       cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh:  cfg.Telemetry.DBSlowQueryThresh,
			WithoutVariables: !cfg.Telemetry.DBLogFullSQL,
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}

	dbMetrics, err := telemetry.NewDBMetrics(meterProvider.Meter("commerce/db"), telemetry.DBMetricsConfig{
		Enabled:            meterProvider.IsEnabled(),
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	if err != nil {
		log.Fatal("Failed to create database metrics", zap.Error(err))
	}
	if err := db.DB.Use(telemetry.NewDBMetricsPlugin(dbMetrics, log)); err != nil {
		log.Warn("Failed to register database metrics plugin", zap.Error(err))
	}

	// Business counters plus the periodic dispatch-backlog sweep
	businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:            meterProvider.Meter("commerce/business"),
		Logger:           log,
		DispatchProvider: telemetry.NewGormDispatchMetricsProvider(db.DB),
	})
	if err != nil {
		log.Fatal("Failed to create business metrics", zap.Error(err))
	}
	if meterProvider.IsEnabled() {
		businessMetrics.StartPeriodicCollection(telemetryCtx, telemetry.NewGormTenantProvider(db.DB), 0)
		defer businessMetrics.Stop()
	}

	// Initialize repositories
	walletRepo := persistence.NewGormWalletRepository(db.DB)
	walletTxRepo := persistence.NewGormWalletTransactionRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	subscriptionRepo := persistence.NewGormSubscriptionRepository(db.DB)
	voucherRepo := persistence.NewGormVoucherRepository(db.DB)
	mandateRepo := persistence.NewGormTopUpMandateRepository(db.DB)
	referralRepo := persistence.NewGormReferralRepository(db.DB)
	webhookEventRepo := persistence.NewGormWebhookEventRepository(db.DB)
	webhookEndpointRepo := persistence.NewGormWebhookEndpointRepository(db.DB)
	webhookDeliveryRepo := persistence.NewGormWebhookDeliveryRepository(db.DB)
	txScope := persistence.NewGormWalletTransactionScope(db.DB)

	// Idempotency store for provider event dedup, Redis with in-memory fallback
	idemStoreFactory := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log))
	idemStore, err := idemStoreFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Initialize application services
	ledgerService := walletapp.NewLedgerService(walletapp.LedgerServiceConfig{
		Scope:   txScope,
		Logger:  log,
		Metrics: businessMetrics,
	})
	voucherService := voucherapp.NewService(voucherapp.ServiceConfig{
		Scope:   txScope,
		Logger:  log,
		Metrics: businessMetrics,
	})
	voucherImportService := voucherapp.NewImportService(voucherRepo, log)
	dispatchService := webhookapp.NewDispatchService(webhookapp.DispatchServiceConfig{
		EndpointRepo: webhookEndpointRepo,
		DeliveryRepo: webhookDeliveryRepo,
		Logger:       log,
	})

	// Inbound provider event ingestion with reconciliation handlers
	ingestService := webhookapp.NewIngestService(webhookapp.IngestServiceConfig{
		Secret:     cfg.Provider.WebhookSecret,
		SkewWindow: cfg.Provider.SkewWindow,
		EventRepo:  webhookEventRepo,
		IdemStore:  idemStore,
		Logger:     log,
		Metrics:    businessMetrics,
	})
	ingestService.Register(webhookapp.NewDepositCompletedHandler(ledgerService, dispatchService, log))
	ingestService.Register(webhookapp.NewChargeRefundedHandler(ledgerService, dispatchService, log))
	ingestService.Register(webhookapp.NewPaymentFailedHandler(dispatchService, log))
	ingestService.Register(webhookapp.NewInvoicePaidHandler(txScope, dispatchService, log))

	// Per-tenant billing job orchestrator
	orchestratorFactory := func(tenantID uuid.UUID) *billingapp.Orchestrator {
		return billingapp.NewOrchestrator(billingapp.OrchestratorConfig{
			TenantID:     tenantID,
			Ledger:       ledgerService,
			WalletRepo:   walletRepo,
			SubRepo:      subscriptionRepo,
			InvoiceRepo:  invoiceRepo,
			VoucherRepo:  voucherRepo,
			MandateRepo:  mandateRepo,
			ReferralRepo: referralRepo,
			EventRepo:    webhookEventRepo,
			Reporter:     walletTxRepo,
			Notifier:     dispatchService,
			PromoTTL:     cfg.Billing.PromoTTL,
			GraceWindow:  cfg.Billing.GraceWindow,
			Logger:       log,
		})
	}

	// In-process scheduler sweeps the billing jobs for configured tenants
	if cfg.Scheduler.Enabled {
		tenants := make([]uuid.UUID, 0, len(cfg.Scheduler.Tenants))
		for _, raw := range cfg.Scheduler.Tenants {
			tenantID, err := uuid.Parse(raw)
			if err != nil {
				log.Fatal("Invalid scheduler tenant ID", zap.String("tenant_id", raw), zap.Error(err))
			}
			tenants = append(tenants, tenantID)
		}
		jobScheduler := scheduler.NewScheduler(orchestratorFactory, scheduler.Config{
			Interval:   cfg.Scheduler.Interval,
			JobTimeout: cfg.Scheduler.JobTimeout,
			Tenants:    tenants,
		}, log)
		if err := jobScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start job scheduler", zap.Error(err))
		}
		defer func() {
			if err := jobScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping job scheduler", zap.Error(err))
			}
		}()
		log.Info("Job scheduler started",
			zap.Duration("interval", cfg.Scheduler.Interval),
			zap.Duration("job_timeout", cfg.Scheduler.JobTimeout),
			zap.Int("tenants", len(tenants)),
		)
	}

	// Outbound delivery worker drains the webhook delivery queue
	if cfg.Outbound.WorkerEnabled {
		deliveryWorker := dispatch.NewDeliveryWorker(webhookDeliveryRepo, webhookEndpointRepo, dispatch.DeliveryWorkerConfig{
			BatchSize:      cfg.Outbound.BatchSize,
			PollInterval:   cfg.Outbound.PollInterval,
			RequestTimeout: cfg.Outbound.RequestTimeout,
		}, log)
		if err := deliveryWorker.Start(context.Background()); err != nil {
			log.Fatal("Failed to start delivery worker", zap.Error(err))
		}
		defer func() {
			if err := deliveryWorker.Stop(context.Background()); err != nil {
				log.Error("Error stopping delivery worker", zap.Error(err))
			}
		}()
		log.Info("Delivery worker started",
			zap.Int("batch_size", cfg.Outbound.BatchSize),
			zap.Duration("poll_interval", cfg.Outbound.PollInterval),
		)
	}

	// JWT service validates identity-provider tokens
	jwtService := auth.NewJWTService(cfg.JWT)

	// Token blacklist backs revocation checks on authenticated routes.
	// Redis failures degrade to an in-memory blacklist.
	var tokenBlacklist auth.TokenBlacklist
	redisBlacklist, err := auth.NewRedisTokenBlacklist(auth.RedisTokenBlacklistConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis token blacklist unavailable, using in-memory fallback", zap.Error(err))
		tokenBlacklist = auth.NewInMemoryTokenBlacklist()
	} else {
		tokenBlacklist = redisBlacklist
		defer func() {
			if err := redisBlacklist.Close(); err != nil {
				log.Error("Error closing token blacklist", zap.Error(err))
			}
		}()
	}

	// Initialize HTTP handlers
	walletHandler := handler.NewWalletHandler(ledgerService)
	voucherHandler := handler.NewVoucherHandler(voucherService, voucherImportService, voucherRepo)
	invoiceHandler := handler.NewInvoiceHandler(invoiceRepo)
	providerWebhookHandler := handler.NewProviderWebhookHandler(ingestService)
	cronHandler := handler.NewCronHandler(orchestratorFactory)
	endpointHandler := handler.NewWebhookEndpointHandler(webhookEndpointRepo)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		ServiceName:   cfg.Telemetry.ServiceName,
		Enabled:       cfg.Telemetry.Enabled,
	}))
	if cfg.Profiling.Enabled {
		engine.Use(middleware.Profiling())
	}
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Swagger documentation endpoint, gated per environment policy
	var swaggerAuth gin.HandlerFunc
	if cfg.Swagger.RequireAuth {
		swaggerAuth = middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			JWTService:     jwtService,
			TokenBlacklist: tokenBlacklist,
			Logger:         log,
		})
	}
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		}, swaggerAuth),
		ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Provider event endpoint (HMAC signature verified, no JWT)
	// Called directly by the payment provider
	engine.POST("/api/v1/webhooks/provider", providerWebhookHandler.Receive)

	// Cron trigger endpoints (shared-secret auth, no JWT)
	// Called by the external cron runner
	cronGroup := engine.Group("/api/v1/cron")
	cronGroup.Use(middleware.CronAuthMiddleware(cfg.Cron.Secret))
	cronGroup.POST("/run", cronHandler.Run)
	cronGroup.GET("/jobs", cronHandler.Jobs)

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes
	// Configure skip paths for public endpoints
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: tokenBlacklist,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		SkipPathPrefixes: []string{
			"/api/v1/webhooks",
			"/api/v1/cron",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Register domain route groups

	// Wallet domain (balances, ledger history, admin credits)
	walletRoutes := router.NewDomainGroup("wallet", "")
	walletRoutes.GET("/wallet", walletHandler.GetWallet)
	walletRoutes.GET("/wallet/transactions", walletHandler.ListTransactions)
	walletRoutes.POST("/wallets/:id/credit", walletHandler.Credit)

	// Voucher domain
	voucherRoutes := router.NewDomainGroup("voucher", "/vouchers")
	voucherRoutes.POST("", voucherHandler.Create)
	voucherRoutes.POST("/validate", voucherHandler.Validate)
	voucherRoutes.POST("/redeem", voucherHandler.Redeem)
	voucherRoutes.POST("/import", voucherHandler.Import)

	// Invoice domain
	invoiceRoutes := router.NewDomainGroup("invoice", "/invoices")
	invoiceRoutes.GET("", invoiceHandler.List)

	// Merchant webhook endpoint management
	endpointRoutes := router.NewDomainGroup("webhook-endpoint", "/webhook-endpoints")
	endpointRoutes.POST("", endpointHandler.Create)
	endpointRoutes.GET("", endpointHandler.List)
	endpointRoutes.DELETE("/:id", endpointHandler.Deactivate)

	// System routes
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	r.Register(walletRoutes).
		Register(voucherRoutes).
		Register(invoiceRoutes).
		Register(endpointRoutes).
		Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// shutdownWithTimeout flushes one telemetry provider on exit
func shutdownWithTimeout(name string, shutdown func(context.Context) error, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Error("Error shutting down "+name, zap.Error(err))
	}
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
