package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"autoblog/internal/app"
	"autoblog/internal/config"
	"autoblog/internal/database"
	"autoblog/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	runWorkers := flag.Bool("workers", true, "run the task queue workers and the cadence scheduler in this process")
	flag.Parse()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := database.Connect(database.LoadConfig(), logger); err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if err := database.Migrate(logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	a := app.New(cfg, database.DB, logger, app.Options{})
	if *runWorkers {
		if err := a.Workers.Start(); err != nil {
			logger.Fatal("failed to start background workers", zap.Error(err))
		}
	}

	if cfg.Server.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	waitForShutdown(logger, server, a)
}

func waitForShutdown(logger *zap.Logger, server *http.Server, a *app.App) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Info("received shutdown signal, gracefully shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	a.Workers.Stop()
	logger.Info("shutdown complete")
}
