package handlers

import (
	"context"
	"net/http"

	"autoblog/internal/queue"
	"autoblog/internal/scheduler"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DryRunner previews a cadence run
type DryRunner interface {
	DryRun(ctx context.Context) (scheduler.Summary, error)
}

// ScheduleHandler triggers the cadence scheduler
type ScheduleHandler struct {
	scheduler DryRunner
	queue     queue.Enqueuer
	log       *zap.Logger
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(s DryRunner, q queue.Enqueuer, log *zap.Logger) *ScheduleHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ScheduleHandler{scheduler: s, queue: q, log: log}
}

// Run handles POST /api/schedule/run. With ?dry_run=true it answers with the
// projects that are due; otherwise it queues a scheduler run.
func (h *ScheduleHandler) Run(c *gin.Context) {
	ctx := c.Request.Context()

	if c.Query("dry_run") == "true" {
		summary, err := h.scheduler.DryRun(ctx)
		if err != nil {
			h.log.Error("dry run failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Dry run failed", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"summary": summary})
		return
	}

	jobID, err := h.queue.Enqueue(ctx, scheduler.TaskCheckAndSchedule, struct{}{})
	if err != nil {
		h.log.Error("failed to enqueue scheduler run", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue scheduler run"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID, "status": "queued"})
}
