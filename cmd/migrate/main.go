package main

import (
	"log"

	"autoblog/internal/database"
	"autoblog/internal/logging"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logger, err := logging.New("info")
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	dbConfig := database.LoadConfig()
	if err := database.Connect(dbConfig, logger); err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	logger.Info("running database migrations")
	if err := database.Migrate(logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
}
