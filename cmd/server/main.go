package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	auditapp "github.com/foodaudit/backend/internal/application/audit"
	reportapp "github.com/foodaudit/backend/internal/application/report"
	"github.com/foodaudit/backend/internal/application/threshold"
	"github.com/foodaudit/backend/internal/domain/audit"
	"github.com/foodaudit/backend/internal/domain/shared"
	"github.com/foodaudit/backend/internal/infrastructure/cache"
	"github.com/foodaudit/backend/internal/infrastructure/config"
	"github.com/foodaudit/backend/internal/infrastructure/logger"
	"github.com/foodaudit/backend/internal/infrastructure/persistence"
	"github.com/foodaudit/backend/internal/infrastructure/retry"
	"github.com/foodaudit/backend/internal/infrastructure/storage"
	"github.com/foodaudit/backend/internal/infrastructure/telemetry"
	"github.com/foodaudit/backend/internal/interfaces/http/handler"
	"github.com/foodaudit/backend/internal/interfaces/http/middleware"
	"github.com/foodaudit/backend/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

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
		_ = log.Sync()
	}()

	log.Info("Starting audit backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", cfg.App.Version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	var (
		meter         metric.Meter
		reportMetrics *telemetry.ReportMetrics
	)
	if mp.IsEnabled() {
		meter = mp.Meter(cfg.Telemetry.ServiceName)
		if reportMetrics, err = telemetry.NewReportMetrics(meter, log); err != nil {
			log.Warn("Report metrics disabled", zap.Error(err))
		}
	}

	// Database
	dbOpts := []persistence.Option{
		persistence.WithLogger(logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
			logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))),
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbOpts = append(dbOpts, persistence.WithPlugin(telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log)))
	}
	db, err := persistence.NewDatabase(&cfg.Database, dbOpts...)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	auditRepo := persistence.NewGormAuditRepository(db.DB)
	schemaRepo := persistence.NewGormSchemaRepository(db.DB)
	evidenceRepo := persistence.NewGormEvidenceRepository(db.DB, log)

	// Threshold cache: process-local L1, Redis L2 and pub/sub invalidation when Redis is configured
	var (
		redisClient *redis.Client
		invalidator *cache.RedisThresholdInvalidator
	)
	l1 := cache.NewInMemoryCache[audit.Thresholds](
		cache.WithName("thresholds"),
		cache.WithDefaultTTL(cfg.Scoring.ThresholdCacheTTL),
		cache.WithInMemoryLogger(log),
	)
	var thresholdCache shared.Cache[audit.Thresholds] = l1
	if cfg.Redis.Enabled() {
		redisClient, err = cache.NewRedisClient(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		l2 := cache.NewRedisCache[audit.Thresholds](redisClient, "thresholds",
			cache.WithRedisTTL(cfg.Scoring.ThresholdCacheTTL),
			cache.WithRedisLogger(log),
		)
		thresholdCache = cache.NewTieredCache[audit.Thresholds](l1, l2, cfg.Scoring.ThresholdCacheTTL, log)
		invalidator = cache.NewRedisThresholdInvalidator(redisClient, cache.WithInvalidatorLogger(log))
		log.Info("Redis threshold cache enabled", zap.String("addr", cfg.Redis.Addr()))
	}

	fetchRetry := retry.Config{
		MaxRetries:   cfg.Scoring.FetchRetries,
		InitialDelay: cfg.Scoring.RetryDelay,
		MaxDelay:     cfg.Scoring.RetryMaxDelay,
	}
	defaults := audit.Thresholds{
		Overall:  decimal.NewFromFloat(cfg.Scoring.DefaultOverall),
		Section:  decimal.NewFromFloat(cfg.Scoring.DefaultSection),
		Category: decimal.NewFromFloat(cfg.Scoring.DefaultCategory),
	}
	providerOpts := []threshold.Option{
		threshold.WithTTL(cfg.Scoring.ThresholdCacheTTL),
		threshold.WithDefaults(defaults),
		threshold.WithRetry(fetchRetry),
		threshold.WithLogger(log),
	}
	if invalidator != nil {
		providerOpts = append(providerOpts, threshold.WithInvalidator(invalidator))
	}
	thresholds := threshold.NewProvider(schemaRepo, thresholdCache, providerOpts...)
	go func() {
		if err := thresholds.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Threshold invalidation listener stopped", zap.Error(err))
		}
	}()

	// Evidence storage
	objects, err := storage.NewObjectStore(ctx, &cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize object store", zap.Error(err))
	}
	evidence := reportapp.NewEvidenceResolver(evidenceRepo, objects,
		reportapp.WithConcurrency(cfg.Scoring.EvidenceConcurrency),
		reportapp.WithFetchTimeout(cfg.Scoring.EvidenceTimeout),
		reportapp.WithEvidenceRetry(fetchRetry),
		reportapp.WithEvidenceLogger(log),
	)

	// Services
	auditService := auditapp.NewAuditService(auditRepo, schemaRepo, thresholds,
		auditapp.WithEvidenceIndex(evidenceRepo),
		auditapp.WithLogger(log),
	)
	schemaService := auditapp.NewSchemaService(schemaRepo, thresholds, log,
		auditapp.WithDefaultStrategy(audit.Strategy(cfg.Scoring.DefaultStrategy)),
		auditapp.WithDefaultThresholds(defaults),
	)
	reportService := reportapp.NewReportService(auditRepo, schemaRepo, thresholds,
		reportapp.WithEvidenceResolver(evidence),
		reportapp.WithHistoryRetry(fetchRetry),
		reportapp.WithTrendCycles(cfg.Scoring.TrendCycles),
		reportapp.WithMetrics(reportMetrics),
		reportapp.WithServiceLogger(log),
	)

	// HTTP
	middleware.SetupValidator()
	engine, err := router.NewEngine(router.EngineConfig{
		ServiceName:      cfg.Telemetry.ServiceName,
		TracingEnabled:   cfg.Telemetry.Enabled,
		Meter:            meter,
		MaxBodySize:      cfg.HTTP.MaxBodySize,
		CORSAllowOrigins: cfg.HTTP.CORSAllowOrigins,
		TrustedProxies:   cfg.HTTP.TrustedProxies,
	}, log)
	if err != nil {
		log.Fatal("Failed to create HTTP engine", zap.Error(err))
	}

	checks := map[string]handler.HealthCheck{
		"database": db.Ping,
		"storage":  objects.Ping,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	health := handler.NewHealthHandler(cfg.App.Version, 2*time.Second, checks)

	router.NewRouter(engine, router.WithHealth(health.Health)).
		Register(handler.NewSchemaHandler(schemaService)).
		Register(handler.NewAuditHandler(auditService)).
		Register(handler.NewReportHandler(reportService)).
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

	<-ctx.Done()
	stop()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if invalidator != nil {
		if err := invalidator.Close(); err != nil {
			log.Warn("Error closing threshold invalidator", zap.Error(err))
		}
	}
	if err := l1.Close(); err != nil {
		log.Warn("Error closing threshold cache", zap.Error(err))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Warn("Error closing Redis client", zap.Error(err))
		}
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := mp.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down meter provider", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down tracer provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
