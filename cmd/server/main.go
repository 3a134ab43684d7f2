package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"github.com/lumix-energy/dmrv-engine/internal/adapter/cache"
	"github.com/lumix-energy/dmrv-engine/internal/adapter/external/nasapower"
	"github.com/lumix-energy/dmrv-engine/internal/adapter/http/fiber/handlers"
	"github.com/lumix-energy/dmrv-engine/internal/adapter/http/fiber/middleware"
	"github.com/lumix-energy/dmrv-engine/internal/adapter/queue"
	"github.com/lumix-energy/dmrv-engine/internal/adapter/storage/postgres"
	"github.com/lumix-energy/dmrv-engine/internal/infrastructure/circuitbreaker"
	"github.com/lumix-energy/dmrv-engine/internal/infrastructure/keylock"
	"github.com/lumix-energy/dmrv-engine/internal/observability/telemetry"
	"github.com/lumix-energy/dmrv-engine/internal/ports"
	"github.com/lumix-energy/dmrv-engine/internal/service/audit"
	"github.com/lumix-energy/dmrv-engine/internal/service/carbon"
	"github.com/lumix-energy/dmrv-engine/internal/service/environmental"
	"github.com/lumix-energy/dmrv-engine/internal/service/ingestion"
	"github.com/lumix-energy/dmrv-engine/internal/service/verification"
	"github.com/lumix-energy/dmrv-engine/pkg/config"
)

const (
	serviceName    = "dmrv-engine"
	serviceVersion = "v1.0.0"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	logger.Info("Starting dMRV engine",
		zap.String("service", serviceName),
		zap.String("version", serviceVersion),
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	tracerProvider, err := telemetry.InitTracer(serviceName, serviceVersion)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	db, err := postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("Failed to get underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if cfg.Database.AutoMigrate {
		if err := postgres.RunMigrations(db); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	// Redis is an accelerator, not a dependency: degrade to the in-process
	// cache when it is unreachable.
	var appCache ports.Cache
	appCache, err = cache.NewRedisCache(cfg.Redis.URL, cfg.Redis.DialTimeout, logger)
	if err != nil {
		logger.Warn("Redis unavailable, using local cache", zap.Error(err))
		appCache = cache.NewLocalCache(logger)
	}
	defer appCache.Close()

	var messageQueue queue.MessageQueue
	messageQueue, err = queue.NewNATSQueue(cfg.NATS.URL, logger,
		nats.MaxReconnects(cfg.NATS.MaxReconnects),
		nats.ReconnectWait(cfg.NATS.ReconnectWait),
	)
	if err != nil {
		logger.Warn("NATS unavailable, credit events disabled", zap.Error(err))
		messageQueue = nil
	} else {
		defer messageQueue.Close()
	}

	inverterRepo := postgres.NewInverterRepository(db, logger)
	readingRepo := postgres.NewReadingRepository(db, logger)
	satelliteRepo := postgres.NewSatelliteRepository(db, logger)
	creditRepo := postgres.NewCreditRepository(db, logger)
	auditRepo := postgres.NewAuditRepository(db, logger)

	nasaHTTP := circuitbreaker.NewHTTPClient("nasa-power",
		&http.Client{Timeout: cfg.NASAPower.Timeout}, cfg.CircuitBreaker, logger)
	provider := nasapower.NewClient(nasaHTTP, cfg.NASAPower, logger)

	locks := keylock.New()
	recorder := audit.NewService(auditRepo, logger)
	ingestionService := ingestion.NewService(inverterRepo, readingRepo, recorder, cfg.Ingestion.BatchSize, logger)
	envService := environmental.NewService(satelliteRepo, provider, appCache, cfg.Redis.SatelliteTTL, cfg.Verification, logger)
	carbonService := carbon.NewService(inverterRepo, readingRepo, creditRepo, locks, messageQueue, cfg.Verification, logger)
	verificationService := verification.NewService(inverterRepo, readingRepo, creditRepo, envService, recorder, locks, messageQueue, cfg.Verification, logger)

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		ServerHeader:          serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		IdleTimeout:           cfg.HTTP.IdleTimeout,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(middleware.NewCORS(cfg.HTTP))

	healthHandler := handlers.NewHealthHandler(db, appCache, serviceVersion)
	app.Get("/health/live", healthHandler.Live)
	app.Get("/health/ready", healthHandler.Ready)

	app.Get("/metrics", func(c *fiber.Ctx) error {
		handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
		handler(c.Context())
		return nil
	})

	v1 := app.Group("/api/v1")

	inverterHandler := handlers.NewInverterHandler(ingestionService, inverterRepo, readingRepo, logger)
	v1.Post("/inverters", inverterHandler.Create)
	v1.Get("/inverters", inverterHandler.List)
	v1.Get("/inverters/:id", inverterHandler.Get)
	v1.Get("/inverters/:id/readings", inverterHandler.Readings)

	ingestionHandler := handlers.NewIngestionHandler(ingestionService, logger)
	v1.Post("/readings", ingestionHandler.Ingest)

	creditHandler := handlers.NewCreditHandler(carbonService, verificationService, creditRepo, logger)
	v1.Post("/inverters/:id/credits/:date/calculate", creditHandler.Calculate)
	v1.Post("/inverters/:id/credits/:date/verify", creditHandler.Verify)
	v1.Get("/inverters/:id/credits/:date", creditHandler.Get)
	v1.Get("/inverters/:id/credits", creditHandler.List)
	v1.Put("/inverters/:id/credits/:date/status", creditHandler.OverrideStatus)

	reportHandler := handlers.NewReportHandler(creditRepo, recorder, logger)
	v1.Get("/reports/summary", reportHandler.Summary)
	v1.Get("/audit/:entityType/:id", reportHandler.AuditTrail)

	go func() {
		logger.Info("Starting HTTP Server", zap.Int("port", cfg.HTTP.Port))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil {
			logger.Fatal("HTTP Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited gracefully")
}
