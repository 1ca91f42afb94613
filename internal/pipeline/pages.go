package pipeline

import (
	"context"
	"strings"

	"autoblog/internal/llm"
	"autoblog/internal/models"
	"autoblog/internal/scraper"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// SchedulePageAnalysis picks the project's sub-pages worth analyzing and
// enqueues one page job per link. When the model returns nothing usable the
// links are read from the homepage HTML instead.
func (p *Pipeline) SchedulePageAnalysis(ctx context.Context, project *models.Project) (int, error) {
	var list llm.LinkList
	if err := llm.ExtractLinks(ctx, p.agent, project, &list); err != nil {
		p.log.Warn("link extraction failed, falling back to homepage links",
			zap.String("project_id", project.ID.String()), zap.Error(err))
	}

	links := filterLinks(project.URL, list.Links)
	if len(links) == 0 {
		page, err := p.scraper.Fetch(ctx, project.URL)
		if err != nil {
			return 0, eris.Wrap(err, "failed to fetch homepage for links")
		}
		found, err := scraper.SameSiteLinks(project.URL, page.HTML)
		if err != nil {
			return 0, eris.Wrap(err, "failed to read homepage links")
		}
		links = filterLinks(project.URL, found)
	}

	scheduled := 0
	for _, link := range links {
		payload := PagePayload{ProjectID: project.ID, URL: link}
		if _, err := p.queue.Enqueue(ctx, TaskAnalyzePage, payload); err != nil {
			p.log.Error("failed to enqueue page analysis",
				zap.String("project_id", project.ID.String()),
				zap.String("url", link),
				zap.Error(err))
			continue
		}
		scheduled++
	}

	p.log.Info("scheduled page analysis",
		zap.String("project_id", project.ID.String()), zap.Int("pages", scheduled))
	return scheduled, nil
}

// filterLinks keeps valid, distinct URLs other than the project homepage
func filterLinks(projectURL string, links []string) []string {
	home, _ := NormalizeURL(projectURL)
	seen := map[string]bool{home: true}
	var out []string
	for _, link := range links {
		normalized, err := NormalizeURL(link)
		if err != nil || seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	return out
}

// AnalyzePage scrapes and analyzes one sub-page. A page that already exists
// for the project is left untouched.
func (p *Pipeline) AnalyzePage(ctx context.Context, projectID uuid.UUID, link string) error {
	page := models.ProjectPage{ProjectID: projectID, URL: link}
	result := p.db.WithContext(ctx).
		Where("project_id = ? AND url = ?", projectID, link).
		FirstOrCreate(&page)
	if result.Error != nil {
		return eris.Wrap(result.Error, "failed to get or create project page")
	}
	if result.RowsAffected == 0 {
		p.logSkip("page already analyzed", zap.String("project_id", projectID.String()), zap.String("url", link))
		return nil
	}

	return p.exec.Run(ctx, StageAnalyzePage, projectID, page.ID, func(ctx context.Context) error {
		fetched, err := p.scraper.Fetch(ctx, link)
		if err != nil {
			return eris.Wrapf(err, "failed to scrape page %s", link)
		}
		now := p.now()
		err = p.db.WithContext(ctx).Model(&page).Updates(map[string]interface{}{
			"title":            fetched.Title,
			"description":      fetched.Description,
			"markdown_content": fetched.Markdown,
			"date_scraped":     now,
		}).Error
		if err != nil {
			return eris.Wrap(err, "failed to save page scrape")
		}
		if strings.TrimSpace(fetched.Markdown) == "" {
			return ErrEmptyScrape
		}

		var details llm.PageDetails
		webPage := llm.WebPage{Title: fetched.Title, Description: fetched.Description, Markdown: fetched.Markdown}
		if err := llm.AnalyzePage(ctx, p.agent, webPage, &details); err != nil {
			return eris.Wrap(err, "failed to analyze page")
		}
		err = p.db.WithContext(ctx).Model(&page).Updates(map[string]interface{}{
			"type":          strings.ToUpper(strings.TrimSpace(details.Type)),
			"type_ai_guess": details.TypeAIGuess,
			"summary":       details.Summary,
			"date_analyzed": p.now(),
		}).Error
		if err != nil {
			return eris.Wrap(err, "failed to save page analysis")
		}
		return nil
	})
}
