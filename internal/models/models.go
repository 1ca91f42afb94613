// Package models contains all data models for the autoblog application
package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AllModels returns a slice of all model types for database migrations
func AllModels() []interface{} {
	return []interface{}{
		&Profile{},
		&ProfileStateTransition{},
		&Project{},
		&ProjectPage{},
		&Competitor{},
		&Keyword{},
		&ProjectKeyword{},
		&BlogPostTitleSuggestion{},
		&GeneratedBlogPost{},
		&AutoSubmissionSetting{},
		&Job{},
	}
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}

// ensureID assigns a fresh UUID when the caller left the primary key empty.
// IDs are generated in Go so SQLite and Postgres behave the same.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
