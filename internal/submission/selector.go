package submission

import (
	"context"
	"errors"

	"autoblog/internal/models"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Generator produces titles and content for the selector
type Generator interface {
	GenerateTitleSuggestions(ctx context.Context, project *models.Project, contentType models.ContentType, n int, userPrompt string) ([]models.BlogPostTitleSuggestion, error)
	GenerateContent(ctx context.Context, suggestion *models.BlogPostTitleSuggestion) (*models.GeneratedBlogPost, error)
	PickContentType() models.ContentType
}

// Selector picks the post to publish next for a project
type Selector struct {
	db  *gorm.DB
	gen Generator
	log *zap.Logger
}

// NewSelector creates a selector
func NewSelector(db *gorm.DB, gen Generator, log *zap.Logger) *Selector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Selector{db: db, gen: gen, log: log}
}

// SelectOrGenerate returns the oldest unposted post of the project. Without
// one it writes content for a suggestion that has no post yet, and without
// such a suggestion it generates a new title first.
func (s *Selector) SelectOrGenerate(ctx context.Context, project *models.Project) (*models.GeneratedBlogPost, error) {
	log := s.log.With(zap.String("project_id", project.ID.String()))

	var post models.GeneratedBlogPost
	err := s.db.WithContext(ctx).
		Preload("TitleSuggestion").
		Where("project_id = ? AND posted = ?", project.ID, false).
		Order("created_at ASC").
		First(&post).Error
	if err == nil {
		log.Info("reusing unposted post", zap.String("post_id", post.ID.String()))
		return &post, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, eris.Wrap(err, "failed to look up unposted posts")
	}

	suggestion, err := s.unusedSuggestion(ctx, project)
	if err != nil {
		return nil, err
	}
	if suggestion != nil {
		log.Info("generating content for existing suggestion", zap.String("suggestion_id", suggestion.ID.String()))
		suggestion.Project = project
		return s.gen.GenerateContent(ctx, suggestion)
	}

	contentType := s.gen.PickContentType()
	log.Info("generating a new suggestion", zap.String("content_type", string(contentType)))
	suggestions, err := s.gen.GenerateTitleSuggestions(ctx, project, contentType, 1, "")
	if err != nil {
		return nil, err
	}
	if len(suggestions) == 0 {
		return nil, eris.New("no suggestion was generated")
	}
	fresh := suggestions[0]
	fresh.Project = project
	return s.gen.GenerateContent(ctx, &fresh)
}

// unusedSuggestion returns a suggestion without a post. Every such suggestion
// qualifies; active titles go before archived ones, then liked before neutral
// before disliked, oldest first.
func (s *Selector) unusedSuggestion(ctx context.Context, project *models.Project) (*models.BlogPostTitleSuggestion, error) {
	used := s.db.Model(&models.GeneratedBlogPost{}).
		Select("title_suggestion_id").
		Where("title_suggestion_id IS NOT NULL")

	var suggestion models.BlogPostTitleSuggestion
	err := s.db.WithContext(ctx).
		Where("project_id = ?", project.ID).
		Where("id NOT IN (?)", used).
		Order("archived ASC, user_score DESC, created_at ASC").
		First(&suggestion).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "failed to look up unused suggestions")
	}
	return &suggestion, nil
}
