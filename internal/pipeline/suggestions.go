package pipeline

import (
	"context"
	"regexp"
	"strings"

	"autoblog/internal/llm"
	"autoblog/internal/models"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// GenerateTitleSuggestions asks the model for n new titles of one content
// type and stores them. Earlier feedback on the project's titles is passed
// along so liked styles are repeated and disliked ones avoided.
func (p *Pipeline) GenerateTitleSuggestions(ctx context.Context, project *models.Project, contentType models.ContentType, n int, userPrompt string) ([]models.BlogPostTitleSuggestion, error) {
	if !contentType.Valid() {
		return nil, ErrInvalidContentType
	}
	if n <= 0 {
		return nil, nil
	}

	var saved []models.BlogPostTitleSuggestion
	err := p.exec.Run(ctx, StageSuggest, project.ID, project.ID, func(ctx context.Context) error {
		if !project.IsAnalyzed() {
			return ErrNotAnalyzed
		}
		if err := p.checkTitleQuota(ctx, project, n); err != nil {
			return err
		}

		in := llm.TitleContext{
			Project:     project,
			ContentType: contentType,
			Count:       n,
			UserPrompt:  userPrompt,
			Now:         p.now(),
		}
		if err := p.loadFeedback(ctx, project, contentType, &in); err != nil {
			return err
		}

		var answer llm.TitleSuggestions
		if err := llm.SuggestTitles(ctx, p.agent, in, &answer); err != nil {
			return eris.Wrap(err, "failed to generate title suggestions")
		}

		for _, t := range answer.Titles {
			if len(saved) == n {
				break
			}
			title := strings.TrimSpace(t.Title)
			if title == "" {
				continue
			}
			category := t.Category
			if category == "" {
				category = models.CategoryGeneralAudience
			}
			saved = append(saved, models.BlogPostTitleSuggestion{
				ProjectID:                project.ID,
				Title:                    title,
				ContentType:              contentType,
				Category:                 category,
				Description:              t.Description,
				Prompt:                   userPrompt,
				TargetKeywords:           t.TargetKeywords,
				SuggestedMetaDescription: t.SuggestedMetaDescription,
			})
		}
		if len(saved) == 0 {
			return ErrEmptyGeneration
		}

		if err := p.db.WithContext(ctx).Create(&saved).Error; err != nil {
			saved = nil
			return eris.Wrap(err, "failed to save title suggestions")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// loadFeedback sorts the project's earlier titles by user score
func (p *Pipeline) loadFeedback(ctx context.Context, project *models.Project, contentType models.ContentType, in *llm.TitleContext) error {
	var previous []models.BlogPostTitleSuggestion
	err := p.db.WithContext(ctx).
		Where("project_id = ? AND content_type = ?", project.ID, contentType).
		Order("created_at ASC").
		Find(&previous).Error
	if err != nil {
		return eris.Wrap(err, "failed to load previous title suggestions")
	}

	for _, s := range previous {
		switch s.UserScore {
		case models.ScoreLiked:
			in.Liked = append(in.Liked, s.Title)
		case models.ScoreDisliked:
			in.Disliked = append(in.Disliked, s.Title)
		default:
			in.Neutral = append(in.Neutral, s.Title)
		}
	}
	return nil
}

// GenerateContent writes the article for a title suggestion. Every call
// creates a new post; the suggestion itself is never modified.
func (p *Pipeline) GenerateContent(ctx context.Context, suggestion *models.BlogPostTitleSuggestion) (*models.GeneratedBlogPost, error) {
	var post *models.GeneratedBlogPost
	err := p.exec.Run(ctx, StageGenerate, suggestion.ProjectID, suggestion.ID, func(ctx context.Context) error {
		project := suggestion.Project
		if project == nil {
			project = &models.Project{}
			if err := p.db.WithContext(ctx).First(project, "id = ?", suggestion.ProjectID).Error; err != nil {
				return eris.Wrap(err, "failed to load project")
			}
		}
		if err := p.checkContentQuota(ctx, project); err != nil {
			return err
		}

		in := llm.ContentContext{Project: project, Suggestion: suggestion, Now: p.now()}
		if err := p.db.WithContext(ctx).
			Where("project_id = ? AND summary <> ''", project.ID).
			Order("created_at ASC").
			Find(&in.Pages).Error; err != nil {
			return eris.Wrap(err, "failed to load project pages")
		}
		keywords, err := p.usedKeywords(ctx, project)
		if err != nil {
			return err
		}
		in.Keywords = keywords

		var answer llm.BlogPostContent
		if err := llm.GenerateContent(ctx, p.agent, in, &answer); err != nil {
			return eris.Wrap(err, "failed to generate content")
		}
		if strings.TrimSpace(answer.Content) == "" {
			return ErrEmptyGeneration
		}

		slug := Slugify(answer.Slug)
		if slug == "" {
			slug = Slugify(suggestion.Title)
		}
		suggestionID := suggestion.ID
		post = &models.GeneratedBlogPost{
			ProjectID:         project.ID,
			TitleSuggestionID: &suggestionID,
			Description:       answer.Description,
			Slug:              slug,
			Tags:              answer.Tags,
			Content:           strings.TrimSpace(answer.Content),
		}
		if err := p.db.WithContext(ctx).Create(post).Error; err != nil {
			post = nil
			return eris.Wrap(err, "failed to save generated post")
		}
		post.TitleSuggestion = suggestion
		return nil
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (p *Pipeline) usedKeywords(ctx context.Context, project *models.Project) ([]string, error) {
	var links []models.ProjectKeyword
	err := p.db.WithContext(ctx).
		Preload("Keyword").
		Where("project_id = ? AND use = ?", project.ID, true).
		Find(&links).Error
	if err != nil {
		return nil, eris.Wrap(err, "failed to load project keywords")
	}

	keywords := make([]string, 0, len(links))
	for _, l := range links {
		if l.Keyword != nil {
			keywords = append(keywords, l.Keyword.KeywordText)
		}
	}
	return keywords, nil
}

func (p *Pipeline) checkTitleQuota(ctx context.Context, project *models.Project, n int) error {
	if p.quota == nil {
		return nil
	}
	profile, err := p.profileOf(ctx, project)
	if err != nil {
		return err
	}
	ok, err := p.quota.MayGenerateTitles(ctx, profile, n)
	if err != nil {
		return err
	}
	if !ok {
		return ErrQuotaExceeded
	}
	return nil
}

func (p *Pipeline) checkContentQuota(ctx context.Context, project *models.Project) error {
	if p.quota == nil {
		return nil
	}
	profile, err := p.profileOf(ctx, project)
	if err != nil {
		return err
	}
	ok, err := p.quota.MayGenerateContent(ctx, profile)
	if err != nil {
		return err
	}
	if !ok {
		return ErrQuotaExceeded
	}
	return nil
}

func (p *Pipeline) profileOf(ctx context.Context, project *models.Project) (*models.Profile, error) {
	if project.Profile != nil {
		return project.Profile, nil
	}
	var profile models.Profile
	if err := p.db.WithContext(ctx).First(&profile, "id = ?", project.ProfileID).Error; err != nil {
		return nil, eris.Wrap(err, "failed to load profile")
	}
	return &profile, nil
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and joins its alphanumeric runs with dashes
func Slugify(s string) string {
	return strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// logSkip logs a stage that was skipped rather than failed
func (p *Pipeline) logSkip(msg string, fields ...zap.Field) {
	p.log.Info(msg, fields...)
}
