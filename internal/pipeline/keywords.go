package pipeline

import (
	"context"
	"strings"

	"autoblog/internal/models"

	"go.uber.org/zap"
)

// KeywordResult counts the outcome of keyword processing
type KeywordResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// SplitKeywords splits a comma separated list and drops blank entries
func SplitKeywords(raw string) []string {
	var out []string
	for _, kw := range strings.Split(raw, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// ProcessKeywords links the project's proposed keywords to shared keyword
// rows. New links start unused. A keyword that fails is counted and skipped.
func (p *Pipeline) ProcessKeywords(ctx context.Context, project *models.Project) (KeywordResult, error) {
	var result KeywordResult
	err := p.exec.Run(ctx, StageKeywords, project.ID, project.ID, func(ctx context.Context) error {
		for _, text := range SplitKeywords(project.ProposedKeywords) {
			if err := p.linkKeyword(ctx, project, text); err != nil {
				result.Failed++
				p.log.Warn("failed to process keyword",
					zap.String("project_id", project.ID.String()),
					zap.String("keyword", text),
					zap.Error(err))
				continue
			}
			result.Processed++
		}
		return nil
	})

	p.log.Info("processed project keywords",
		zap.String("project_id", project.ID.String()),
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed))
	return result, err
}

func (p *Pipeline) linkKeyword(ctx context.Context, project *models.Project, text string) error {
	keyword := models.Keyword{KeywordText: text}
	if err := p.db.WithContext(ctx).
		Where("keyword_text = ? AND country = ?", text, "").
		FirstOrCreate(&keyword).Error; err != nil {
		return err
	}

	link := models.ProjectKeyword{ProjectID: project.ID, KeywordID: keyword.ID}
	return p.db.WithContext(ctx).
		Where("project_id = ? AND keyword_id = ?", project.ID, keyword.ID).
		FirstOrCreate(&link).Error
}
