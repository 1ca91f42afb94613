package scheduler

import (
	"context"
	"sync"
	"time"

	"autoblog/internal/queue"

	"go.uber.org/zap"
)

// TaskCheckAndSchedule runs one scheduler pass as a background job
const TaskCheckAndSchedule = "check_and_schedule_blog_posts"

// RegisterHandlers binds the scheduler task to the runner
func (s *Scheduler) RegisterHandlers(r queue.Registrar) {
	r.Register(TaskCheckAndSchedule, func(ctx context.Context, _ []byte) error {
		_, err := s.CheckAndScheduleBlogPosts(ctx)
		return err
	})
}

// Worker runs the scheduler on a ticker
type Worker struct {
	scheduler *Scheduler
	interval  time.Duration
	log       *zap.Logger

	mu      sync.RWMutex
	last    *Summary
	lastRun time.Time
}

// NewWorker creates a ticker worker for s
func NewWorker(s *Scheduler, interval time.Duration, log *zap.Logger) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{
		scheduler: s,
		interval:  interval,
		log:       log,
	}
}

// Run performs one pass right away and then one per interval. It blocks
// until ctx is done, so a caller can track it and run it again later.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("starting cadence scheduler", zap.Duration("interval", w.interval))
	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("cadence scheduler stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	summary, err := w.scheduler.CheckAndScheduleBlogPosts(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error("cadence run failed", zap.Error(err))
		}
		return
	}
	w.mu.Lock()
	w.last = &summary
	w.lastRun = time.Now()
	w.mu.Unlock()
}

// LastSummary returns the summary of the latest completed run
func (w *Worker) LastSummary() *Summary {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last
}

// LastRun returns when the latest run completed, zero before the first one
func (w *Worker) LastRun() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastRun
}
