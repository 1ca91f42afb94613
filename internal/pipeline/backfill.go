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

// BackfillStage names a stage that can be re-run over existing projects
type BackfillStage string

const (
	BackfillAnalysis    BackfillStage = "analysis"
	BackfillPages       BackfillStage = "pages"
	BackfillCompetitors BackfillStage = "competitors"
	BackfillMarkdown    BackfillStage = "markdown"
	BackfillKeywords    BackfillStage = "keywords"
)

// ErrUnknownBackfill is returned for stages that cannot be backfilled
var ErrUnknownBackfill = errors.New("unknown backfill stage")

// BackfillOptions narrow the projects a backfill touches. Without Force and
// ProjectIDs only projects missing the stage output are selected.
type BackfillOptions struct {
	Force      bool
	ProjectIDs []uuid.UUID
}

type backfillPlan struct {
	task  string
	group string
	// missing selects projects without the stage output
	missing func(tx *gorm.DB) *gorm.DB
}

var backfillPlans = map[BackfillStage]backfillPlan{
	BackfillAnalysis: {
		task:  TaskAnalyzeProject,
		group: "backfill_project_analysis",
		missing: func(tx *gorm.DB) *gorm.DB {
			return tx.Where("date_analyzed IS NULL")
		},
	},
	BackfillMarkdown: {
		task:  TaskRefreshMarkdown,
		group: "backfill_project_markdown_content",
		missing: func(tx *gorm.DB) *gorm.DB {
			return tx.Where("date_scraped IS NULL")
		},
	},
	BackfillPages: {
		task:  TaskSchedulePageAnalysis,
		group: "backfill_project_pages",
		missing: func(tx *gorm.DB) *gorm.DB {
			return tx.Where("id NOT IN (?)", tx.Session(&gorm.Session{NewDB: true}).Model(&models.ProjectPage{}).Select("project_id"))
		},
	},
	BackfillCompetitors: {
		task:  TaskScheduleCompetitors,
		group: "backfill_project_competitors",
		missing: func(tx *gorm.DB) *gorm.DB {
			return tx.Where("COALESCE(competitors_list, '') = ''")
		},
	},
	BackfillKeywords: {
		task:  TaskProcessKeywords,
		group: "backfill_project_keywords",
		missing: func(tx *gorm.DB) *gorm.DB {
			return tx.Where("id NOT IN (?)", tx.Session(&gorm.Session{NewDB: true}).Model(&models.ProjectKeyword{}).Select("project_id"))
		},
	},
}

// Backfill enqueues the stage's task for every selected project and returns
// how many jobs were enqueued
func (p *Pipeline) Backfill(ctx context.Context, stage BackfillStage, opts BackfillOptions) (int, error) {
	plan, ok := backfillPlans[stage]
	if !ok {
		return 0, ErrUnknownBackfill
	}

	tx := p.db.WithContext(ctx).Model(&models.Project{})
	switch {
	case len(opts.ProjectIDs) > 0:
		tx = tx.Where("id IN ?", opts.ProjectIDs)
	case !opts.Force:
		tx = plan.missing(tx)
	}
	switch stage {
	case BackfillMarkdown:
	case BackfillAnalysis:
		tx = tx.Where("markdown_content <> ''")
	default:
		tx = tx.Where("stage = ?", models.StageAnalyzed)
	}

	var ids []uuid.UUID
	if err := tx.Order("created_at ASC").Pluck("id", &ids).Error; err != nil {
		return 0, eris.Wrap(err, "failed to select projects")
	}

	enqueued := 0
	for _, id := range ids {
		if _, err := p.queue.Enqueue(ctx, plan.task, ProjectPayload{ProjectID: id}, queue.Group(plan.group)); err != nil {
			return enqueued, eris.Wrapf(err, "failed to enqueue %s", plan.task)
		}
		enqueued++
	}

	p.log.Info("backfill enqueued",
		zap.String("stage", string(stage)),
		zap.Bool("force", opts.Force),
		zap.Int("projects", enqueued))
	return enqueued, nil
}
