package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"go.uber.org/zap"

	"github.com/frontdesk-hq/frontdesk-engine/pkg/config"
	"github.com/frontdesk-hq/frontdesk-engine/pkg/database"
	"github.com/frontdesk-hq/frontdesk-engine/pkg/handlers"
	"github.com/frontdesk-hq/frontdesk-engine/pkg/logging"
	"github.com/frontdesk-hq/frontdesk-engine/pkg/middleware"
	"github.com/frontdesk-hq/frontdesk-engine/pkg/mirror"
	"github.com/frontdesk-hq/frontdesk-engine/pkg/notify"
	"github.com/frontdesk-hq/frontdesk-engine/pkg/repositories"
	"github.com/frontdesk-hq/frontdesk-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("database", cfg.Database.Database),
		zap.String("agent_endpoint", cfg.Agent.Endpoint),
		zap.String("mirror_path", cfg.Mirror.Path),
		zap.Duration("sweep_window", cfg.Sweep.TimeoutWindow()),
		zap.Duration("sweep_interval", cfg.Sweep.Interval()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Database connection failed", zap.Error(err))
	}
	defer db.Close()

	sqlDB, err := sql.Open("pgx", cfg.Database.URL())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, cfg.MigrationsDir, logger); err != nil {
		sqlDB.Close()
		logger.Fatal("Migrations failed", zap.Error(err))
	}
	sqlDB.Close()

	helpRepo := repositories.NewHelpRequestRepository(db)
	knowledgeRepo := repositories.NewKnowledgeRepository(db)

	mirrorWriter := mirror.NewWriter(cfg.Mirror.Path)
	dispatcher := notify.NewWebSocketDispatcher(cfg.Agent.Endpoint, cfg.Agent.DialTimeout(), logger)

	knowledgeService := services.NewKnowledgeService(knowledgeRepo, helpRepo, mirrorWriter, logger)
	sweepService := services.NewSweepService(helpRepo, cfg.Sweep.TimeoutWindow(), logger)
	resolutionService := services.NewResolutionService(helpRepo, knowledgeService, dispatcher, sweepService, logger)

	// Heal a missing or stale snapshot at boot; the table is authoritative.
	if err := knowledgeService.SyncMirror(ctx); err != nil {
		logger.Warn("Initial knowledge snapshot sync failed", zap.Error(err))
	}

	sweepService.RunScheduler(ctx, cfg.Sweep.Interval())

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewHelpRequestHandler(resolutionService, logger).RegisterRoutes(mux)
	handlers.NewKnowledgeHandler(knowledgeService, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("Starting frontdesk-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down")
	cancel() // stops the sweep scheduler

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
