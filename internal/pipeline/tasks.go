package pipeline

import (
	"context"
	"errors"

	"autoblog/internal/models"
	"autoblog/internal/queue"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RegisterHandlers binds every pipeline task to the runner
func (p *Pipeline) RegisterHandlers(r queue.Registrar) {
	r.Register(TaskGenerateSuggestions, p.projectTask(p.handleInitialSuggestions))
	r.Register(TaskProcessKeywords, p.projectTask(func(ctx context.Context, project *models.Project) error {
		_, err := p.ProcessKeywords(ctx, project)
		return err
	}))
	r.Register(TaskSchedulePageAnalysis, p.projectTask(func(ctx context.Context, project *models.Project) error {
		_, err := p.SchedulePageAnalysis(ctx, project)
		return err
	}))
	r.Register(TaskScheduleCompetitors, p.projectTask(func(ctx context.Context, project *models.Project) error {
		_, err := p.ScheduleCompetitorAnalysis(ctx, project)
		return err
	}))
	r.Register(TaskAnalyzeProject, p.projectTask(func(ctx context.Context, project *models.Project) error {
		return p.AnalyzeProject(ctx, project, "")
	}))
	r.Register(TaskRefreshMarkdown, p.projectTask(func(ctx context.Context, project *models.Project) error {
		_, err := p.ScrapeProject(ctx, project)
		return err
	}))
	r.Register(TaskGenerateTitles, p.handleGenerateTitles)
	r.Register(TaskGenerateContent, p.handleGenerateContent)
	r.Register(TaskAnalyzePage, p.handleAnalyzePage)
	r.Register(TaskAnalyzeCompetitor, p.handleAnalyzeCompetitor)
}

// projectTask decodes a ProjectPayload and loads the project. Jobs for
// deleted projects are dropped.
func (p *Pipeline) projectTask(fn func(ctx context.Context, project *models.Project) error) queue.Handler {
	return func(ctx context.Context, payload []byte) error {
		var in ProjectPayload
		if err := queue.Decode(payload, &in); err != nil {
			return err
		}
		project, err := p.loadProject(ctx, in.ProjectID)
		if err != nil || project == nil {
			return err
		}
		return fn(ctx, project)
	}
}

func (p *Pipeline) loadProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := p.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p.logSkip("project no longer exists", zap.String("project_id", id.String()))
			return nil, nil
		}
		return nil, eris.Wrap(err, "failed to load project")
	}
	return &project, nil
}

// handleInitialSuggestions generates the first titles of every content type
func (p *Pipeline) handleInitialSuggestions(ctx context.Context, project *models.Project) error {
	for _, contentType := range models.ContentTypes {
		_, err := p.GenerateTitleSuggestions(ctx, project, contentType, initialSuggestionsPerType, "")
		if errors.Is(err, ErrQuotaExceeded) {
			p.logSkip("title quota reached", zap.String("project_id", project.ID.String()))
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) handleGenerateTitles(ctx context.Context, payload []byte) error {
	var in TitlesPayload
	if err := queue.Decode(payload, &in); err != nil {
		return err
	}
	project, err := p.loadProject(ctx, in.ProjectID)
	if err != nil || project == nil {
		return err
	}
	_, err = p.GenerateTitleSuggestions(ctx, project, in.ContentType, in.Count, in.UserPrompt)
	if errors.Is(err, ErrQuotaExceeded) {
		p.logSkip("title quota reached", zap.String("project_id", project.ID.String()))
		return nil
	}
	return err
}

func (p *Pipeline) handleGenerateContent(ctx context.Context, payload []byte) error {
	var in SuggestionPayload
	if err := queue.Decode(payload, &in); err != nil {
		return err
	}
	var suggestion models.BlogPostTitleSuggestion
	if err := p.db.WithContext(ctx).Preload("Project").First(&suggestion, "id = ?", in.SuggestionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p.logSkip("suggestion no longer exists", zap.String("suggestion_id", in.SuggestionID.String()))
			return nil
		}
		return eris.Wrap(err, "failed to load suggestion")
	}
	_, err := p.GenerateContent(ctx, &suggestion)
	if errors.Is(err, ErrQuotaExceeded) {
		p.logSkip("content quota reached", zap.String("suggestion_id", suggestion.ID.String()))
		return nil
	}
	return err
}

func (p *Pipeline) handleAnalyzePage(ctx context.Context, payload []byte) error {
	var in PagePayload
	if err := queue.Decode(payload, &in); err != nil {
		return err
	}
	return p.AnalyzePage(ctx, in.ProjectID, in.URL)
}

func (p *Pipeline) handleAnalyzeCompetitor(ctx context.Context, payload []byte) error {
	var in CompetitorPayload
	if err := queue.Decode(payload, &in); err != nil {
		return err
	}
	return p.AnalyzeCompetitor(ctx, in.CompetitorID)
}
