// cmd/service/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"pr-review-service/internal/api"
	"pr-review-service/internal/config"
	"pr-review-service/internal/connection"
	"pr-review-service/internal/database"
	"pr-review-service/internal/engine"
	"pr-review-service/internal/github"
	"pr-review-service/internal/jobs"
	"pr-review-service/internal/quota"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Application startup error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Initialize structured logger
	logLevel := new(slog.LevelVar)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// 2. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setLogLevel(cfg.LogLevel, logLevel)
	logger.Info("Configuration loaded successfully")

	// 3. Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 4. Initialize database connection and run migrations
	dbpool, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbpool.Close()
	logger.Info("Database connection established")

	if err := runMigrations(cfg.DBURL); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info("Database migrations applied successfully")

	// 5. Initialize application components
	store := database.New(dbpool)
	ghClient := github.NewClient(cfg.WebhookCallbackURL, logger)
	engineClient := engine.NewClient(cfg.EngineURL, logger)
	guard := quota.NewGuard(store, cfg.FreeTierRepoLimit)
	dispatcher := jobs.NewChannelDispatcher(cfg.JobQueueSize)
	manager := connection.NewManager(store, ghClient, guard, dispatcher, logger, cfg.FreeTierRepoLimit)

	indexJob := jobs.NewIndexJob(store, ghClient, engineClient)
	worker := jobs.NewWorker(dispatcher.Events(), indexJob, logger, cfg.JobMaxAttempts, cfg.JobRetryBackoff)

	router := api.NewRouter(api.Options{
		DB:            store,
		Manager:       manager,
		Repos:         ghClient,
		Reviewer:      engineClient,
		Logger:        logger,
		ReviewTimeout: cfg.ReviewTimeout,
		BillingSecret: cfg.BillingSecret,
	})

	// 6. Start the worker and the HTTP server
	go worker.Start(ctx)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.ListenAddr)
		serverErr <- server.ListenAndServe()
	}()

	// 7. Wait for shutdown signal or server failure
	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received. Exiting.")
	}

	// Allow in-flight requests and background jobs to finish
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	return nil
}

func runMigrations(dbURL string) error {
	m, err := migrate.New("file://migrations", dbURL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
