package pipeline

import (
	"context"
	"time"

	"autoblog/internal/metrics"
	"autoblog/internal/progress"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Stage names reported to logs, metrics and progress subscribers
const (
	StageScrape            = "scrape"
	StageAnalyze           = "analyze"
	StageSuggest           = "suggest"
	StageGenerate          = "generate"
	StageSubmit            = "submit"
	StageAnalyzePage       = "analyze_page"
	StageAnalyzeCompetitor = "analyze_competitor"
	StageKeywords          = "keywords"
)

// Executor runs one stage against one entity and records the outcome. It
// never retries; retries belong to the model client and the job queue.
type Executor struct {
	publisher progress.Publisher
	log       *zap.Logger
	now       func() time.Time
}

// NewExecutor creates an executor
func NewExecutor(publisher progress.Publisher, log *zap.Logger) *Executor {
	if publisher == nil {
		publisher = progress.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{publisher: publisher, log: log, now: time.Now}
}

// Run executes fn as the given stage. projectID scopes the progress event,
// entityID names the row the stage works on and may equal projectID.
func (e *Executor) Run(ctx context.Context, stage string, projectID, entityID uuid.UUID, fn func(ctx context.Context) error) error {
	start := e.now()
	log := e.log.With(
		zap.String("stage", stage),
		zap.String("project_id", projectID.String()),
		zap.String("entity_id", entityID.String()),
	)

	err := fn(ctx)
	elapsed := e.now().Sub(start)
	metrics.ObserveStage(stage, err == nil, elapsed)

	event := progress.Event{ProjectID: projectID, Stage: stage, OK: err == nil, At: e.now()}
	if err != nil {
		event.Error = err.Error()
		log.Warn("stage failed", zap.Duration("elapsed", elapsed), zap.Error(err))
	} else {
		log.Info("stage completed", zap.Duration("elapsed", elapsed))
	}
	e.publisher.Publish(event)

	return err
}
