package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/evchart/evchart/internal/config"
	"github.com/evchart/evchart/internal/db"
	"github.com/evchart/evchart/internal/ingestion"
	"github.com/evchart/evchart/internal/middleware"
	"github.com/evchart/evchart/internal/repository"
	"github.com/evchart/evchart/internal/schema"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(".")
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// Module definitions are fatal at startup: the service must not accept
	// ingestion events until they resolve.
	registry, err := schema.LoadDefault()
	if err != nil {
		logger.Fatal("failed to load module definitions", zap.Error(err))
	}

	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer conn.Close()

	if err := db.RunMigrations(cfg.Database.URL(), cfg.MigrationsPath); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	uploadRepo := repository.NewUploadRepository(conn.Pool)
	dataRepo := repository.NewModuleDataRepository(conn.Pool)
	reportRepo := repository.NewErrorReportRepository(conn.Pool)
	stationRepo := repository.NewStationRepository(conn.Pool)

	service := ingestion.NewService(registry, uploadRepo, dataRepo, reportRepo, stationRepo, logger)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowCredentials: true,
		AllowedMethods:   []string{"POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	mux := http.NewServeMux()
	mux.Handle("/ingest", corsHandler.Handler(ingestion.NewHTTPHandler(service)))

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      middleware.Logging(logger)(mux),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting ingestion server", zap.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
