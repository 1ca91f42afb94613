package services

import (
	"testing"

	"autoblog/internal/models"
	"autoblog/internal/testdb"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func addSuggestions(t *testing.T, db *gorm.DB, project *models.Project, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		s := &models.BlogPostTitleSuggestion{ProjectID: project.ID, Title: "Title " + uuid.NewString()}
		if err := db.Create(s).Error; err != nil {
			t.Fatalf("Failed to create suggestion: %v", err)
		}
	}
}

func addPosts(t *testing.T, db *gorm.DB, project *models.Project, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		p := &models.GeneratedBlogPost{ProjectID: project.ID, Slug: "post-" + uuid.NewString()[:8], Content: "body"}
		if err := db.Create(p).Error; err != nil {
			t.Fatalf("Failed to create post: %v", err)
		}
	}
}

func newProfileWithProject(t *testing.T, db *gorm.DB) (*models.Profile, *models.Project) {
	t.Helper()
	profile := testdb.CreateProfile(t, db, models.StateStranger)
	return profile, testdb.CreateProject(t, db, profile)
}
