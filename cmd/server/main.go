package main

//go:generate swag init -g cmd/server/main.go -d ../../ -o ../../docs --v3.1

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/saas/backoffice/docs"
	auditapp "github.com/saas/backoffice/internal/application/audit"
	billingapp "github.com/saas/backoffice/internal/application/billing"
	identityapp "github.com/saas/backoffice/internal/application/identity"
	partnerapp "github.com/saas/backoffice/internal/application/partner"
	reportapp "github.com/saas/backoffice/internal/application/report"
	"github.com/saas/backoffice/internal/domain/report"
	"github.com/saas/backoffice/internal/infrastructure/auth"
	"github.com/saas/backoffice/internal/infrastructure/cache"
	"github.com/saas/backoffice/internal/infrastructure/config"
	"github.com/saas/backoffice/internal/infrastructure/event"
	"github.com/saas/backoffice/internal/infrastructure/logger"
	"github.com/saas/backoffice/internal/infrastructure/persistence"
	"github.com/saas/backoffice/internal/infrastructure/telemetry"
	"github.com/saas/backoffice/internal/interfaces/http/handler"
	"github.com/saas/backoffice/internal/interfaces/http/middleware"
	"github.com/saas/backoffice/internal/interfaces/http/router"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Version is set at build time with -ldflags "-X main.Version=..."
var Version = "dev"

//	@title			SaaS Back-office API
//	@version		1.0
//	@description	Plan catalog, subscription ledger, invoices and financial reporting for a multi-tenant SaaS platform.

//	@contact.name	Platform Team
//	@contact.url	https://github.com/saas/backoffice

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	telemetry.ServiceVersion = Version
	ctx := context.Background()

	// OTLP log export tees a second core into the logger
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	if logProvider.IsEnabled() {
		if log, err = logger.New(logCfg, logProvider.Core(logger.ParseLevel(cfg.Log.Level))); err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting back-office API",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", Version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	var meter metric.Meter
	if meterProvider.IsEnabled() {
		meter = meterProvider.Meter(cfg.Telemetry.ServiceName)
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.PyroscopeEndpoint,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && tracerProvider.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}
	defer func() {
		shutdownCtx := context.Background()
		_ = profiler.Stop()
		_ = meterProvider.Shutdown(shutdownCtx)
		_ = tracerProvider.Shutdown(shutdownCtx)
		_ = logProvider.Shutdown(shutdownCtx)
	}()

	// Database
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(
		logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh),
	))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBInstrumentation(db.DB, telemetry.DBInstrumentationConfig{
		TracingEnabled:  cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		MetricsEnabled:  meter != nil,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, meter, log); err != nil {
		log.Fatal("Failed to instrument database", zap.Error(err))
	}
	if meter != nil {
		if err := telemetry.RegisterDBPoolMetrics(meter, db.Stats); err != nil {
			log.Fatal("Failed to register pool metrics", zap.Error(err))
		}
	}
	log.Info("Database connected")

	// Stats cache
	statsBackend, err := cache.NewStatsCacheFactory(cfg.Cache, cfg.Redis,
		cache.WithLogger(log),
		cache.WithTTL(cfg.Report.CacheTTL),
	).Create(ctx)
	if err != nil {
		log.Fatal("Failed to create stats cache", zap.Error(err))
	}
	defer func() { _ = statsBackend.Close() }()
	instrumentedCache, err := telemetry.InstrumentStatsCache(statsBackend, meter)
	if err != nil {
		log.Fatal("Failed to instrument stats cache", zap.Error(err))
	}
	stats := report.NewCachedStats(instrumentedCache,
		report.WithStatsTTL(cfg.Report.CacheTTL),
		report.WithStatsLogger(log),
	)

	// Repositories
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	providerRepo := persistence.NewGormProviderRepository(db.DB)
	planRepo := persistence.NewGormPlanRepository(db.DB)
	subscriptionRepo := persistence.NewGormSubscriptionRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	auditRepo := persistence.NewGormAuditLogRepository(db.DB)
	reportRepo := persistence.NewGormFinancialReportRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Event bus: the audit recorder persists every ledger event
	eventBus := event.NewInMemoryEventBus(log)
	recorder := auditapp.NewRecorder(auditRepo, log)
	eventBus.Subscribe(recorder, recorder.EventTypes()...)
	log.Info("Event handlers registered", zap.Strings("audit_events", recorder.EventTypes()))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Application services
	tenantService := identityapp.NewTenantService(tenantRepo, log)
	tenantService.SetEventPublisher(eventBus)
	providerService := partnerapp.NewProviderService(providerRepo, log)
	providerService.SetStatsInvalidator(stats)
	planService := billingapp.NewPlanService(planRepo, subscriptionRepo, log)
	planService.SetEventPublisher(eventBus)
	planService.SetStatsInvalidator(stats)
	subscriptionService := billingapp.NewSubscriptionService(subscriptionRepo, planRepo, tenantRepo, txScope, log)
	subscriptionService.SetEventPublisher(eventBus)
	subscriptionService.SetStatsInvalidator(stats)
	invoiceService := billingapp.NewInvoiceService(invoiceRepo, providerRepo, txScope, log)
	invoiceService.SetEventPublisher(eventBus)
	invoiceService.SetStatsInvalidator(stats)
	if meter != nil {
		businessMetrics, err := telemetry.NewBusinessMetrics(meter)
		if err != nil {
			log.Fatal("Failed to create business metrics", zap.Error(err))
		}
		subscriptionService.SetMetrics(businessMetrics)
		invoiceService.SetMetrics(businessMetrics)
	}
	aggregator := reportapp.NewAggregationService(reportRepo, stats,
		reportapp.WithSystemQueryTimeout(cfg.Report.SystemQueryTimeout),
		reportapp.WithAggregationLogger(log),
	)
	reportService := reportapp.NewReportService(aggregator, reportRepo, planRepo, stats, log)
	trailService := auditapp.NewTrailService(auditRepo, log)

	// HTTP
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	var scope gin.HandlerFunc
	if cfg.JWT.Enabled {
		scope = middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			JWTService:       auth.NewJWTService(cfg.JWT),
			SkipPaths:        []string{"/health", "/api/v1/system/info"},
			SkipPathPrefixes: []string{"/swagger"},
			Logger:           log,
		})
	} else {
		log.Warn("JWT verification disabled, trusting X-Tenant-ID and X-Admin headers")
		scope = middleware.DevScopeMiddleware(middleware.DevScopeConfig{
			SkipPaths: []string{"/health"},
			Logger:    log,
		})
	}

	httpMetrics, err := middleware.HTTPMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create HTTP metrics", zap.Error(err))
	}

	// Order matters: the request id and the span exist before anything logs,
	// and the scope is resolved before it is copied onto the span.
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfigFrom(cfg.HTTP)))
	engine.Use(middleware.SecureWithConfig(middleware.DefaultSecurityConfig()))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodyBytes))
	engine.Use(middleware.Timeout(cfg.HTTP.RequestTimeout))
	engine.Use(scope)
	engine.Use(middleware.TracingAttributeInjector())

	var rateLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitRPM > 0 {
		rateLimiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRPM)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled", zap.Int("requests_per_minute", cfg.HTTP.RateLimitRPM))
	}
	engine.Use(middleware.Profiling(profiler.IsEnabled()))
	engine.Use(httpMetrics)

	systemHandler := handler.NewSystemHandler(Version, healthChecks(db, statsBackend))
	engine.GET("/health", systemHandler.Health)
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(cfg.Swagger, scope),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(router.APIGroups(router.Handlers{
			Tenant:       handler.NewTenantHandler(tenantService),
			Plan:         handler.NewPlanHandler(planService, reportService),
			Provider:     handler.NewProviderHandler(providerService),
			Subscription: handler.NewSubscriptionHandler(subscriptionService),
			Invoice:      handler.NewInvoiceHandler(invoiceService),
			Report:       handler.NewReportHandler(aggregator, reportService, cfg.Report),
			Audit:        handler.NewAuditHandler(trailService),
			System:       systemHandler,
		})...).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if rateLimiter != nil {
		rateLimiter.Stop()
	}
	log.Info("Server exited gracefully")
}

// healthChecks lists the dependencies /health probes. The in-memory cache
// has nothing to probe.
func healthChecks(db *persistence.Database, statsCache cache.StatsCache) map[string]handler.Pinger {
	checks := map[string]handler.Pinger{"database": db}
	if p, ok := statsCache.(handler.Pinger); ok {
		checks["cache"] = p
	}
	return checks
}