package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/shenikar/incident_reporting_system/internal/config"
	"github.com/shenikar/incident_reporting_system/internal/corroboration"
	v1 "github.com/shenikar/incident_reporting_system/internal/handler/http/v1"
	"github.com/shenikar/incident_reporting_system/internal/observability"
	"github.com/shenikar/incident_reporting_system/internal/repository"
	"github.com/shenikar/incident_reporting_system/internal/service"
	"github.com/shenikar/incident_reporting_system/internal/webhook"
	"github.com/shenikar/incident_reporting_system/pkg/logger"
	"github.com/shenikar/incident_reporting_system/pkg/postgres"
	redisclient "github.com/shenikar/incident_reporting_system/pkg/redis"
	"github.com/sirupsen/logrus"

	_ "github.com/shenikar/incident_reporting_system/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Incident Reporting System API
// @version 1.0
// @description Incident report ingestion and threat corroboration API.
// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func runMigrations(cfg *config.Config, log *logrus.Logger) error {
	log.Info("Running database migrations...")

	migrationURL := cfg.DatabaseURL
	if !strings.HasPrefix(migrationURL, "pgx5://") {
		migrationURL = strings.Replace(migrationURL, "postgres://", "pgx5://", 1)
	}

	m, err := migrate.New(
		"file://migrations",
		migrationURL,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Database migrations applied successfully")
	return nil
}

func main() {
	// Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := logger.New(cfg.LogLevel)
	metrics := observability.NewMetrics()

	// Контекст для graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		reportRepo   service.ReportRepository
		locationRepo service.LocationRepository
		publisher    webhook.Publisher = webhook.NopPublisher{}
	)

	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		log.Warn("Using in-memory storage, data will be lost on restart")
		store := repository.NewMemoryStore()
		reportRepo, locationRepo = store, store

	case config.StorageDriverPostgres:
		if err := runMigrations(cfg, log); err != nil {
			log.Fatalf("Failed to run database migrations: %v", err)
		}

		dbpool, err := postgres.NewPostgresDB(ctx, cfg.DatabaseURL, int32(cfg.DBMaxConns))
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		defer dbpool.Close()
		log.Info("Successfully connected to PostgreSQL")

		redisClient, err := redisclient.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Info("Successfully connected to Redis")

		reportRepo = repository.NewReportRepository(dbpool, redisClient)
		locationRepo = repository.NewLocationRepository(dbpool)
		publisher = startWebhooks(ctx, cfg, redisClient, log, metrics)
	}

	engine := corroboration.NewEngine(reportRepo, nil, corroboration.Settings{
		Window:    cfg.ThreatWindow,
		Threshold: cfg.ThreatThreshold,
		HalfLat:   cfg.ThreatBoxHalfLat,
		HalfLon:   cfg.ThreatBoxHalfLon,
	})

	reportService := service.NewReportService(reportRepo, locationRepo, engine, publisher, log, cfg,
		service.WithMetrics(metrics))

	handler := v1.NewHandler(reportService, log, cfg)

	// Настройка Gin роутера
	router := gin.Default()
	api := router.Group("/api")
	handler.RegisterRoutes(api)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Error starting HTTP server: %v", err)
		}
	}()
	log.Infof("HTTP server started on port %s", cfg.HTTPPort)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Received shutdown signal, shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
		return
	}

	log.Info("Server gracefully stopped")
}

// startWebhooks запускает воркер доставки, если задан WEBHOOK_URL
func startWebhooks(ctx context.Context, cfg *config.Config, redisClient *goredis.Client, log *logrus.Logger, metrics *observability.Metrics) webhook.Publisher {
	if cfg.WebhookURL == "" {
		log.Info("WEBHOOK_URL is not set, report webhooks disabled")
		return webhook.NopPublisher{}
	}

	worker := webhook.NewWorker(redisClient, log, cfg, metrics)
	worker.Start(ctx)
	return webhook.NewRedisPublisher(redisClient)
}
