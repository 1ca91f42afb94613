package submission

import (
	"strings"
	"testing"

	"autoblog/internal/models"
	"autoblog/internal/testdb"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var validContent = strings.Repeat("Rockets are loud and we love them. ", 8)

type fixture struct {
	db         *gorm.DB
	profile    *models.Profile
	project    *models.Project
	suggestion *models.BlogPostTitleSuggestion
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.New(t)
	profile := testdb.CreateProfile(t, db, models.StateSubscribed)
	project := testdb.CreateProject(t, db, profile)
	suggestion := &models.BlogPostTitleSuggestion{
		ProjectID:   project.ID,
		Title:       "How We Built A Rocket",
		ContentType: models.ContentTypeSEO,
		Category:    models.CategoryIndustry,
	}
	if err := db.Create(suggestion).Error; err != nil {
		t.Fatalf("Failed to create suggestion: %v", err)
	}
	return &fixture{db: db, profile: profile, project: project, suggestion: suggestion}
}

func (f *fixture) post(t *testing.T, content string) *models.GeneratedBlogPost {
	t.Helper()
	id := f.suggestion.ID
	post := &models.GeneratedBlogPost{
		ProjectID:         f.project.ID,
		TitleSuggestionID: &id,
		Description:       "Our first rocket",
		Slug:              "how-we-built-a-rocket-" + uuid.NewString()[:4],
		Tags:              "rockets,engineering",
		Content:           content,
	}
	if err := f.db.Create(post).Error; err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}
	return post
}

func (f *fixture) setting(t *testing.T, endpoint, header, body string) *models.AutoSubmissionSetting {
	t.Helper()
	s := &models.AutoSubmissionSetting{
		ProjectID:     f.project.ID,
		EndpointURL:   endpoint,
		Header:        datatypes.JSON(header),
		Body:          datatypes.JSON(body),
		PostsPerMonth: 4,
	}
	if err := f.db.Create(s).Error; err != nil {
		t.Fatalf("Failed to create setting: %v", err)
	}
	return s
}
