package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/farmtrack/backend/docs"
	placementapp "github.com/farmtrack/backend/internal/application/placement"
	"github.com/farmtrack/backend/internal/domain/placement"
	"github.com/farmtrack/backend/internal/infrastructure/cache"
	"github.com/farmtrack/backend/internal/infrastructure/config"
	"github.com/farmtrack/backend/internal/infrastructure/event"
	"github.com/farmtrack/backend/internal/infrastructure/logger"
	"github.com/farmtrack/backend/internal/infrastructure/migration"
	"github.com/farmtrack/backend/internal/infrastructure/persistence"
	"github.com/farmtrack/backend/internal/infrastructure/scheduler"
	"github.com/farmtrack/backend/internal/infrastructure/telemetry"
	"github.com/farmtrack/backend/internal/interfaces/http/handler"
	"github.com/farmtrack/backend/internal/interfaces/http/router"
	"github.com/farmtrack/backend/migrations"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Farmtrack Placement API
//	@version		1.0
//	@description	Placement consistency audit, reconciliation and history reconstruction
//	@BasePath		/api/v1

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := logger.ForEnvironment(cfg.App.Env, logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	providers, err := telemetry.Setup(ctx, telemetryConfig(cfg), bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			bootLog.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Profiling.Enabled,
		ServerAddress:     cfg.Profiling.ServerAddress,
		ApplicationName:   cfg.Profiling.ApplicationName,
		BasicAuthUser:     cfg.Profiling.BasicAuthUser,
		BasicAuthPassword: cfg.Profiling.BasicAuthPassword,
		ProfileTypes:      cfg.Profiling.ProfileTypes,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			bootLog.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() && cfg.Profiling.SpanProfiles {
		providers.Tracer.EnableSpanProfiles()
	}

	// Once log export is up, every entry is also shipped over OTLP
	log := bootLog
	if providers.Logs.IsEnabled() {
		level, _ := logger.ParseLevel(cfg.Log.Level)
		if log, err = logger.New(logCfg, providers.Logs.Core(cfg.Telemetry.ServiceName, level)); err != nil {
			bootLog.Fatal("Failed to attach log exporter", zap.Error(err))
		}
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting placement service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", db.Dialect()))

	if err := prepareSchema(db, cfg, log); err != nil {
		log.Fatal("Failed to prepare schema", zap.Error(err))
	}

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:            cfg.Telemetry.Enabled,
		DBSystem:           dbSystem(cfg.Database.Driver),
		SlowQueryThreshold: 200 * time.Millisecond,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	service, err := newPlacementService(cfg, db, log)
	if err != nil {
		log.Fatal("Failed to build placement service", zap.Error(err))
	}

	auditCache, closeCache, err := cache.NewAuditCache(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize audit cache", zap.Error(err))
	}
	defer func() {
		if err := closeCache(); err != nil {
			log.Error("Error closing audit cache", zap.Error(err))
		}
	}()
	service.SetAuditCache(auditCache)

	if providers.Meter.IsEnabled() {
		metrics, err := telemetry.NewPlacementMetrics(providers.Meter.Meter(telemetry.MeterName))
		if err != nil {
			log.Fatal("Failed to register placement metrics", zap.Error(err))
		}
		service.SetMetrics(metrics)
	}

	eventBus := event.NewInMemoryEventBus(log)
	eventLogger := event.NewPlacementEventLogger(log)
	eventBus.Subscribe(eventLogger)
	eventBus.Subscribe(event.NewAuditCacheInvalidator(auditCache))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()
	service.SetEventPublisher(eventBus)
	log.Info("Event handlers registered", zap.Strings("placement_events", eventLogger.EventTypes()))

	if cfg.Placement.AuditInterval > 0 {
		refresher, err := scheduler.NewAuditRefresher(scheduler.AuditRefresherConfig{
			Interval:   cfg.Placement.AuditInterval,
			RunOnStart: true,
		}, service, log.Named("audit-refresher"))
		if err != nil {
			log.Fatal("Failed to create audit refresher", zap.Error(err))
		}
		if err := refresher.Start(ctx); err != nil {
			log.Fatal("Failed to start audit refresher", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := refresher.Stop(stopCtx); err != nil {
				log.Error("Error stopping audit refresher", zap.Error(err))
			}
		}()
	}

	engine := router.NewEngine(router.EngineOptions{
		Config:         cfg,
		Logger:         log,
		MeterProvider:  providers.Meter,
		TracingEnabled: providers.Tracer.IsEnabled(),
	})

	checks := map[string]handler.PingerFunc{}
	if p, ok := auditCache.(interface{ Ping(context.Context) error }); ok {
		checks["cache"] = p.Ping
	}
	engine.GET("/health", handler.NewHealthHandler(db, checks).Health)
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(handler.NewPlacementHandler(service)).
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
	log.Info("Server exited gracefully")
}

func telemetryConfig(cfg *config.Config) telemetry.Config {
	return telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
		MetricsEnabled:    cfg.Telemetry.MetricsEnabled,
		ExportInterval:    cfg.Telemetry.ExportInterval,
	}
}

func dbSystem(driver string) string {
	if driver == config.DriverSQLite {
		return "sqlite"
	}
	return "postgresql"
}

// prepareSchema applies the embedded versioned migrations on postgres and
// auto-migrates the models on sqlite, which golang-migrate's postgres driver
// cannot target. Migrations run on their own connection because closing the
// migrator closes its database handle.
func prepareSchema(db *persistence.Database, cfg *config.Config, log *zap.Logger) error {
	if cfg.Database.Driver == config.DriverSQLite {
		return persistence.AutoMigrate(db.DB)
	}
	sqlDB, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	m, err := migration.NewEmbedded(sqlDB, migrations.FS, log)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Error closing migrator", zap.Error(err))
		}
	}()
	return m.Up()
}

func newPlacementService(cfg *config.Config, db *persistence.Database, log *zap.Logger) (*placementapp.PlacementService, error) {
	stale, err := placement.ParseStalePolicy(cfg.Placement.PregnancyStalePolicy)
	if err != nil {
		return nil, err
	}
	opts := placementapp.DefaultOptions()
	opts.ActiveOnly = cfg.Placement.ActiveOnly
	opts.ReconcileConcurrency = cfg.Placement.ReconcileConcurrency
	opts.ColocatedPreviewLimit = cfg.Placement.ColocatedPreviewLimit
	opts.StalePolicy = stale

	repos := placementapp.Repositories{
		Entities:   persistence.NewGormTrackedEntityRepository(db.DB),
		Zones:      persistence.NewGormZoneRepository(db.DB),
		Periods:    persistence.NewGormPlacementPeriodRepository(db.DB),
		Audit:      persistence.NewGormPlacementAuditSource(db.DB),
		Legacy:     persistence.NewGormLegacyLogRepository(db.DB),
		Enrichment: persistence.NewGormEnrichmentRepository(db.DB),
	}
	return placementapp.NewPlacementService(repos, persistence.NewGormPlacementTransactionScope(db.DB), opts, log.Named("placement")), nil
}
