package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/placement-service/internal/bank"
	"github.com/SAP-F-2025/placement-service/internal/cache"
	"github.com/SAP-F-2025/placement-service/internal/config"
	"github.com/SAP-F-2025/placement-service/internal/events"
	"github.com/SAP-F-2025/placement-service/internal/handlers"
	"github.com/SAP-F-2025/placement-service/internal/modules"
	"github.com/SAP-F-2025/placement-service/internal/reporting"
	"github.com/SAP-F-2025/placement-service/internal/services"
	"github.com/SAP-F-2025/placement-service/internal/validator"
	"github.com/SAP-F-2025/placement-service/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	// Initialize database (if configured)
	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = pkg.InitDatabase(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
	}

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Failed to initialize Redis, launches will not persist", "error", err)
		}
	}
	caches := cache.NewCacheManager(redisClient)

	// LMS backend, chosen once for every launch
	var connectors services.ConnectorFactory
	switch cfg.LMSBackend {
	case config.BackendRedis:
		connectors = services.NewRedisConnectors(caches.Runtime, logger)
	case config.BackendPostgres:
		connectors = services.NewGormConnectors(db, logger)
	case config.BackendMemory:
		connectors = services.NewMemoryConnectors()
	default:
		connectors = services.NewNoConnectors()
	}

	// Result events
	bus, err := events.NewBus(cfg.KafkaBrokers, logger)
	if err != nil {
		log.Fatalf("Failed to initialize event bus: %v", err)
	}
	eventsCtx, stopEvents := context.WithCancel(context.Background())
	if err := bus.LogResults(eventsCtx, cfg.ResultsTopic, logger); err != nil {
		logger.Warn("Failed to subscribe to results", "error", err)
	}

	// Result sinks
	sinks := []reporting.Sink{reporting.NewEventSink(bus.Publisher, cfg.ResultsTopic)}
	if cfg.ReportURL != "" {
		sinks = append(sinks, reporting.NewHTTPSink(cfg.ReportURL, &http.Client{Timeout: cfg.ReportTimeout}, logger))
	}
	if cfg.ReportXLSXPath != "" {
		sinks = append(sinks, reporting.NewSpreadsheetSink(cfg.ReportXLSXPath))
	}
	dispatcher := reporting.NewDispatcher(logger, cfg.ReportTimeout, sinks...)

	// Initialize validator
	validator := validator.New()

	// Question banks
	catalog := bank.NewCatalog(cfg.QuestionBankDir, validator)
	for _, def := range modules.All() {
		if err := catalog.Preload(def.Key); err != nil {
			logger.Warn("Question bank not loaded", "module", def.Key, "error", err)
		}
	}

	// Initialize services
	sessionManager := services.NewSessionManager(catalog, connectors, dispatcher, caches.Launch, logger, validator,
		services.SessionManagerConfig{
			IdleTTL:      cfg.SessionIdleTTL,
			SuspendLimit: cfg.SuspendDataLimit,
		})
	if err := sessionManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Initialize handlers
	handlerManager := handlers.NewHandlerManager(sessionManager, validator, logger)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Setup middleware
	handlers.SetupMiddleware(router, logger)

	// Setup routes
	handlerManager.SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"lms_backend", connectors.Backend(),
			"sinks", dispatcher.Sinks())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Shutdown services; unloading commits every live launch
	if err := sessionManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}

	// Let in-flight result deliveries finish before closing the bus
	dispatcher.Wait()
	stopEvents()
	if err := bus.Close(); err != nil {
		logger.Error("Failed to close event bus", "error", err)
	}

	// Close database connection
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if redisClient != nil {
		redisClient.Close()
	}

	logger.Info("Server exited")
}
