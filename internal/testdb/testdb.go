// Package testdb opens migrated in-memory SQLite databases for tests.
package testdb

import (
	"fmt"
	"testing"

	"autoblog/internal/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New returns a fresh database with every model migrated. Each call gets its
// own shared-cache memory database so goroutines in one test see the same data.
func New(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// CreateProfile inserts a profile in the given state
func CreateProfile(t *testing.T, db *gorm.DB, state models.ProfileState) *models.Profile {
	t.Helper()

	profile := &models.Profile{
		Email: uuid.NewString() + "@example.com",
		State: state,
	}
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("Failed to create test profile: %v", err)
	}
	return profile
}

// CreateProject inserts an analyzed project for the profile
func CreateProject(t *testing.T, db *gorm.DB, profile *models.Profile) *models.Project {
	t.Helper()

	project := &models.Project{
		ProfileID: profile.ID,
		URL:       "https://" + uuid.NewString()[:8] + ".example.com",
		Stage:     models.StageAnalyzed,
		Name:      "Test Project",
		Summary:   "A project used in tests",
		Language:  "English",
	}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("Failed to create test project: %v", err)
	}
	return project
}
