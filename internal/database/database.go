package database

import (
	"fmt"
	"os"

	"autoblog/internal/models"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB holds the database connection
var DB *gorm.DB

// Config holds database configuration
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	LogSQL   bool
}

// LoadConfig loads database configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		DBName:   getEnv("DB_NAME", "autoblog"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
		LogSQL:   getEnv("DB_LOG_SQL", "") == "true",
	}
}

// DSN builds the postgres connection string, leaving out an empty password
func (c *Config) DSN() string {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.DBName, c.SSLMode,
	)
	if c.Password != "" {
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
		)
	}
	return dsn
}

// Connect establishes a connection to the PostgreSQL database
func Connect(config *Config, log *zap.Logger) error {
	level := logger.Warn
	if config.LogSQL {
		level = logger.Info
	}

	var err error
	DB, err = gorm.Open(postgres.Open(config.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return eris.Wrap(err, "failed to connect to database")
	}

	log.Info("connected to database", zap.String("host", config.Host), zap.String("db", config.DBName))
	return nil
}

// Migrate runs database migrations
func Migrate(log *zap.Logger) error {
	if DB == nil {
		return eris.New("database connection not established")
	}

	if err := models.AutoMigrate(DB); err != nil {
		return eris.Wrap(err, "failed to run migrations")
	}

	log.Info("database migrations completed")
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
