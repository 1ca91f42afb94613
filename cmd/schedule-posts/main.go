// Command schedule-posts runs one cadence scheduler pass. It is meant to be
// triggered by cron; the submissions it schedules are run by the workers.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"autoblog/internal/app"
	"autoblog/internal/config"
	"autoblog/internal/database"
	"autoblog/internal/logging"
	"autoblog/internal/scheduler"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report due projects without claiming or enqueuing anything")
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg, database.DB, logger, app.Options{})

	var summary scheduler.Summary
	if *dryRun {
		summary, err = a.Scheduler.DryRun(ctx)
	} else {
		summary, err = a.Scheduler.CheckAndScheduleBlogPosts(ctx)
	}
	if err != nil {
		logger.Fatal("scheduler run failed", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		logger.Fatal("failed to write summary", zap.Error(err))
	}
}
