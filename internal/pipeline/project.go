package pipeline

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"autoblog/internal/llm"
	"autoblog/internal/models"
	"autoblog/internal/scraper"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrInvalidURL is returned for URLs that are not absolute http(s) URLs
var ErrInvalidURL = errors.New("invalid project url")

// NormalizeURL validates a project URL and drops fragments and a trailing slash
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", ErrInvalidURL
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", ErrInvalidURL
	}
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String(), nil
}

// ScanProject returns the profile's project for the URL, creating, scraping
// and analyzing it when it does not exist yet. A project that fails either
// stage is deleted so the URL can be scanned again.
func (p *Pipeline) ScanProject(ctx context.Context, profile *models.Profile, rawURL string) (*models.Project, error) {
	projectURL, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	var existing models.Project
	err = p.db.WithContext(ctx).Where("url = ?", projectURL).First(&existing).Error
	switch {
	case err == nil:
		if existing.ProfileID != profile.ID {
			return nil, ErrProjectExists
		}
		return &existing, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, eris.Wrap(err, "failed to look up project")
	}

	project := &models.Project{ProfileID: profile.ID, URL: projectURL}
	if err := p.db.WithContext(ctx).Create(project).Error; err != nil {
		return nil, eris.Wrap(err, "failed to create project")
	}

	page, err := p.ScrapeProject(ctx, project)
	if err == nil {
		err = p.AnalyzeProject(ctx, project, page.HTML)
	}
	if err != nil {
		if delErr := p.db.WithContext(ctx).Delete(&models.Project{}, "id = ?", project.ID).Error; delErr != nil {
			p.log.Error("failed to delete project after failed scan",
				zap.String("project_id", project.ID.String()), zap.Error(delErr))
		}
		return nil, err
	}

	return project, nil
}

// ScrapeProject fetches the project homepage and stores its markdown
func (p *Pipeline) ScrapeProject(ctx context.Context, project *models.Project) (*scraper.Page, error) {
	var page *scraper.Page
	err := p.exec.Run(ctx, StageScrape, project.ID, project.ID, func(ctx context.Context) error {
		fetched, err := p.scraper.Fetch(ctx, project.URL)
		if err != nil {
			if errors.Is(err, scraper.ErrEmptyContent) {
				return ErrEmptyScrape
			}
			return eris.Wrapf(err, "failed to scrape %s", project.URL)
		}
		if strings.TrimSpace(fetched.Markdown) == "" {
			return ErrEmptyScrape
		}

		now := p.now()
		stage := project.Stage
		if stage != models.StageAnalyzed {
			stage = models.StageScraped
		}
		updates := map[string]interface{}{
			"title":            fetched.Title,
			"description":      fetched.Description,
			"markdown_content": fetched.Markdown,
			"date_scraped":     now,
			"stage":            stage,
			"failure_reason":   "",
		}
		if err := p.db.WithContext(ctx).Model(project).Updates(updates).Error; err != nil {
			return eris.Wrap(err, "failed to save scrape")
		}

		project.Title = fetched.Title
		project.Description = fetched.Description
		project.MarkdownContent = fetched.Markdown
		project.DateScraped = &now
		project.Stage = stage
		project.FailureReason = ""
		page = fetched
		return nil
	})
	if err != nil {
		p.markFailed(ctx, project, err)
		return nil, err
	}
	return page, nil
}

// AnalyzeProject runs the homepage analysis and schedules the follow-on jobs.
// rawHTML is optional and only helps the model find links.
func (p *Pipeline) AnalyzeProject(ctx context.Context, project *models.Project, rawHTML string) error {
	err := p.exec.Run(ctx, StageAnalyze, project.ID, project.ID, func(ctx context.Context) error {
		if strings.TrimSpace(project.MarkdownContent) == "" {
			return ErrNotScraped
		}

		var analysis llm.ProjectAnalysis
		page := llm.WebPage{
			Title:       project.Title,
			Description: project.Description,
			Markdown:    project.MarkdownContent,
			HTML:        rawHTML,
		}
		if err := llm.AnalyzeProject(ctx, p.agent, page, &analysis); err != nil {
			return eris.Wrap(err, "failed to analyze project")
		}
		if strings.TrimSpace(analysis.Name) == "" {
			return ErrEmptyAnalysis
		}

		now := p.now()
		updates := map[string]interface{}{
			"name":                    analysis.Name,
			"type":                    analysis.Type,
			"summary":                 analysis.Summary,
			"blog_theme":              analysis.BlogTheme,
			"founders":                analysis.Founders,
			"key_features":            analysis.KeyFeatures,
			"target_audience_summary": analysis.TargetAudienceSummary,
			"pain_points":             analysis.PainPoints,
			"product_usage":           analysis.ProductUsage,
			"links":                   analysis.Links,
			"language":                analysis.Language,
			"proposed_keywords":       analysis.ProposedKeywords,
			"location":                analysis.Location,
			"date_analyzed":           now,
			"stage":                   models.StageAnalyzed,
			"failure_reason":          "",
		}
		if err := p.db.WithContext(ctx).Model(project).Updates(updates).Error; err != nil {
			return eris.Wrap(err, "failed to save analysis")
		}

		applyAnalysis(project, &analysis)
		project.DateAnalyzed = &now
		project.Stage = models.StageAnalyzed
		project.FailureReason = ""
		return nil
	})
	if err != nil {
		p.markFailed(ctx, project, err)
		return err
	}

	p.enqueueFollowOns(ctx, project)
	return nil
}

func applyAnalysis(project *models.Project, a *llm.ProjectAnalysis) {
	project.Name = a.Name
	project.Type = a.Type
	project.Summary = a.Summary
	project.BlogTheme = a.BlogTheme
	project.Founders = a.Founders
	project.KeyFeatures = a.KeyFeatures
	project.TargetAudienceSummary = a.TargetAudienceSummary
	project.PainPoints = a.PainPoints
	project.ProductUsage = a.ProductUsage
	project.Links = a.Links
	project.Language = a.Language
	project.ProposedKeywords = a.ProposedKeywords
	project.Location = a.Location
}

// enqueueFollowOns schedules the jobs that run once a project is analyzed.
// A failed enqueue is logged and does not undo the analysis.
func (p *Pipeline) enqueueFollowOns(ctx context.Context, project *models.Project) {
	payload := ProjectPayload{ProjectID: project.ID}
	for _, task := range []string{
		TaskGenerateSuggestions,
		TaskProcessKeywords,
		TaskSchedulePageAnalysis,
		TaskScheduleCompetitors,
	} {
		if _, err := p.queue.Enqueue(ctx, task, payload); err != nil {
			p.log.Error("failed to enqueue follow-on job",
				zap.String("task", task),
				zap.String("project_id", project.ID.String()),
				zap.Error(err))
		}
	}
}

// markFailed records a stage failure. Analyzed projects keep their stage so
// a failed rescrape does not hide a usable analysis.
func (p *Pipeline) markFailed(ctx context.Context, project *models.Project, cause error) {
	if project.Stage == models.StageAnalyzed {
		return
	}
	reason := cause.Error()
	err := p.db.WithContext(ctx).Model(project).Updates(map[string]interface{}{
		"stage":          models.StageFailed,
		"failure_reason": reason,
	}).Error
	if err != nil {
		p.log.Error("failed to mark project failed", zap.String("project_id", project.ID.String()), zap.Error(err))
		return
	}
	project.Stage = models.StageFailed
	project.FailureReason = reason
}
