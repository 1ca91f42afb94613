package pipeline

import (
	"context"
	"errors"
	"strings"

	"autoblog/internal/llm"
	"autoblog/internal/models"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrCompetitorExists is returned when the project already tracks the URL
var ErrCompetitorExists = errors.New("competitor already exists")

// ScheduleCompetitorAnalysis asks the search model for competitors, stores
// the free-text answer on the project, structures it into competitor rows
// and enqueues one analysis job per new competitor.
func (p *Pipeline) ScheduleCompetitorAnalysis(ctx context.Context, project *models.Project) (int, error) {
	text, err := llm.FindCompetitors(ctx, p.search, project)
	if err != nil {
		return 0, eris.Wrap(err, "failed to find competitors")
	}
	text = strings.TrimSpace(text)
	if err := p.db.WithContext(ctx).Model(project).Update("competitors_list", text).Error; err != nil {
		return 0, eris.Wrap(err, "failed to save competitors list")
	}
	project.CompetitorsList = text
	if text == "" {
		p.logSkip("no competitors found", zap.String("project_id", project.ID.String()))
		return 0, nil
	}

	var list llm.CompetitorList
	if err := llm.StructureCompetitors(ctx, p.agent, text, &list); err != nil {
		return 0, eris.Wrap(err, "failed to structure competitors")
	}

	scheduled := 0
	for _, details := range list.Competitors {
		competitor, err := p.createCompetitor(ctx, project, details)
		if err != nil {
			if !errors.Is(err, ErrCompetitorExists) && !errors.Is(err, ErrInvalidURL) {
				p.log.Error("failed to save competitor",
					zap.String("project_id", project.ID.String()),
					zap.String("url", details.URL),
					zap.Error(err))
			}
			continue
		}
		if err := p.enqueueCompetitor(ctx, competitor); err != nil {
			continue
		}
		scheduled++
	}

	p.log.Info("scheduled competitor analysis",
		zap.String("project_id", project.ID.String()), zap.Int("competitors", scheduled))
	return scheduled, nil
}

// AddCompetitor tracks a competitor given by the user and enqueues its analysis
func (p *Pipeline) AddCompetitor(ctx context.Context, project *models.Project, rawURL, name string) (*models.Competitor, error) {
	competitor, err := p.createCompetitor(ctx, project, llm.CompetitorDetails{Name: name, URL: rawURL})
	if err != nil {
		return nil, err
	}
	if err := p.enqueueCompetitor(ctx, competitor); err != nil {
		return nil, err
	}
	return competitor, nil
}

func (p *Pipeline) createCompetitor(ctx context.Context, project *models.Project, details llm.CompetitorDetails) (*models.Competitor, error) {
	competitorURL, err := NormalizeURL(details.URL)
	if err != nil {
		return nil, err
	}

	var count int64
	err = p.db.WithContext(ctx).Model(&models.Competitor{}).
		Where("project_id = ? AND url = ?", project.ID, competitorURL).
		Count(&count).Error
	if err != nil {
		return nil, eris.Wrap(err, "failed to look up competitor")
	}
	if count > 0 {
		return nil, ErrCompetitorExists
	}

	competitor := &models.Competitor{
		ProjectID:   project.ID,
		Name:        strings.TrimSpace(details.Name),
		URL:         competitorURL,
		Description: details.Description,
	}
	if err := p.db.WithContext(ctx).Create(competitor).Error; err != nil {
		return nil, eris.Wrap(err, "failed to create competitor")
	}
	return competitor, nil
}

func (p *Pipeline) enqueueCompetitor(ctx context.Context, competitor *models.Competitor) error {
	_, err := p.queue.Enqueue(ctx, TaskAnalyzeCompetitor, CompetitorPayload{CompetitorID: competitor.ID})
	if err != nil {
		p.log.Error("failed to enqueue competitor analysis",
			zap.String("competitor_id", competitor.ID.String()), zap.Error(err))
		return eris.Wrap(err, "failed to enqueue competitor analysis")
	}
	return nil
}

// AnalyzeCompetitor scrapes a competitor homepage and, when it has content,
// compares it with the owning project
func (p *Pipeline) AnalyzeCompetitor(ctx context.Context, competitorID uuid.UUID) error {
	var competitor models.Competitor
	if err := p.db.WithContext(ctx).First(&competitor, "id = ?", competitorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p.logSkip("competitor no longer exists", zap.String("competitor_id", competitorID.String()))
			return nil
		}
		return eris.Wrap(err, "failed to load competitor")
	}
	var project models.Project
	if err := p.db.WithContext(ctx).First(&project, "id = ?", competitor.ProjectID).Error; err != nil {
		return eris.Wrap(err, "failed to load project")
	}

	return p.exec.Run(ctx, StageAnalyzeCompetitor, project.ID, competitor.ID, func(ctx context.Context) error {
		fetched, err := p.scraper.Fetch(ctx, competitor.URL)
		if err != nil {
			return eris.Wrapf(err, "failed to scrape competitor %s", competitor.URL)
		}
		now := p.now()
		err = p.db.WithContext(ctx).Model(&competitor).Updates(map[string]interface{}{
			"homepage_title":   fetched.Title,
			"markdown_content": fetched.Markdown,
			"date_scraped":     now,
		}).Error
		if err != nil {
			return eris.Wrap(err, "failed to save competitor scrape")
		}
		competitor.HomepageTitle = fetched.Title
		competitor.MarkdownContent = fetched.Markdown
		competitor.DateScraped = &now

		if strings.TrimSpace(fetched.Markdown) == "" {
			p.logSkip("competitor homepage has no content", zap.String("competitor_id", competitor.ID.String()))
			return nil
		}

		var a llm.CompetitorAnalysis
		if err := llm.AnalyzeCompetitor(ctx, p.agent, &project, &competitor, p.now(), &a); err != nil {
			return eris.Wrap(err, "failed to analyze competitor")
		}
		err = p.db.WithContext(ctx).Model(&competitor).Updates(map[string]interface{}{
			"summary":             a.Summary,
			"competitor_analysis": a.CompetitorAnalysis,
			"key_differences":     a.KeyDifferences,
			"strengths":           a.Strengths,
			"weaknesses":          a.Weaknesses,
			"opportunities":       a.Opportunities,
			"threats":             a.Threats,
			"key_features":        a.KeyFeatures,
			"key_benefits":        a.KeyBenefits,
			"key_drawbacks":       a.KeyDrawbacks,
			"links":               a.Links,
			"date_analyzed":       p.now(),
		}).Error
		if err != nil {
			return eris.Wrap(err, "failed to save competitor analysis")
		}
		return nil
	})
}
