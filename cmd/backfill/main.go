// Command backfill re-queues pipeline stages for existing projects.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"autoblog/internal/app"
	"autoblog/internal/config"
	"autoblog/internal/database"
	"autoblog/internal/logging"
	"autoblog/internal/pipeline"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	stage := flag.String("stage", "", "stage to backfill: analysis, pages, competitors, markdown or keywords")
	force := flag.Bool("force", false, "queue every matching project, not only those missing the stage's output")
	projectIDs := flag.String("project-ids", "", "comma separated project ids to limit the backfill to")
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

	ids, err := parseIDs(*projectIDs)
	if err != nil {
		logger.Fatal("invalid -project-ids", zap.Error(err))
	}

	if err := database.Connect(database.LoadConfig(), logger); err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg, database.DB, logger, app.Options{})
	queued, err := a.Pipeline.Backfill(ctx, pipeline.BackfillStage(*stage), pipeline.BackfillOptions{
		Force:      *force,
		ProjectIDs: ids,
	})
	if err != nil {
		logger.Fatal("backfill failed", zap.String("stage", *stage), zap.Error(err))
	}
	logger.Info("backfill queued", zap.String("stage", *stage), zap.Int("projects", queued))
}

func parseIDs(raw string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
