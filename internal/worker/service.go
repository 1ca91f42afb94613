// Package worker runs the background side of the service: the task queue
// workers, the cadence scheduler ticker and periodic maintenance.
package worker

import (
	"context"
	"sync"
	"time"

	"autoblog/internal/metrics"
	"autoblog/internal/queue"
	"autoblog/internal/scheduler"

	"go.uber.org/zap"
)

const metricsInterval = time.Minute

// WorkerService manages background workers for the application
type WorkerService struct {
	queue   *queue.Queue
	runner  *queue.Runner
	cadence *scheduler.Worker
	log     *zap.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   bool
	startedAt time.Time
	mu        sync.RWMutex
}

// NewWorkerService creates a worker service. cadence may be nil to run only
// the queue workers.
func NewWorkerService(q *queue.Queue, runner *queue.Runner, cadence *scheduler.Worker, log *zap.Logger) *WorkerService {
	if log == nil {
		log = zap.NewNop()
	}
	return &WorkerService{
		queue:   q,
		runner:  runner,
		cadence: cadence,
		log:     log,
	}
}

// Start starts all background workers
func (ws *WorkerService) Start() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.running {
		return nil
	}

	ws.log.Info("starting background workers", zap.Strings("tasks", ws.runner.Tasks()))
	ws.ctx, ws.cancel = context.WithCancel(context.Background())

	ws.wg.Add(1)
	go func() {
		defer ws.wg.Done()
		if err := ws.runner.Run(ws.ctx); err != nil && ws.ctx.Err() == nil {
			ws.log.Error("queue workers stopped", zap.Error(err))
		}
	}()

	if ws.cadence != nil {
		ws.wg.Add(1)
		go func() {
			defer ws.wg.Done()
			ws.cadence.Run(ws.ctx)
		}()
	}

	ws.wg.Add(1)
	go func() {
		defer ws.wg.Done()
		ws.runPeriodicTasks()
	}()

	ws.running = true
	ws.startedAt = time.Now()
	ws.log.Info("background workers started")
	return nil
}

// Stop stops all background workers and waits for running jobs to return
func (ws *WorkerService) Stop() {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if !ws.running {
		return
	}

	ws.log.Info("stopping background workers")
	ws.cancel()
	ws.wg.Wait()

	ws.running = false
	ws.log.Info("background workers stopped")
}

// IsRunning returns whether the worker service is currently running
func (ws *WorkerService) IsRunning() bool {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.running
}

func (ws *WorkerService) runPeriodicTasks() {
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	ws.updateMetrics()
	for {
		select {
		case <-ws.ctx.Done():
			return
		case <-ticker.C:
			ws.updateMetrics()
		}
	}
}

func (ws *WorkerService) updateMetrics() {
	pending, err := ws.queue.Pending(ws.ctx, "")
	if err != nil {
		if ws.ctx.Err() == nil {
			ws.log.Warn("failed to count pending jobs", zap.Error(err))
		}
		return
	}
	metrics.JobsPending.Set(float64(pending))
}

// GetStatus returns the current status of the worker service
func (ws *WorkerService) GetStatus() map[string]interface{} {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	status := map[string]interface{}{
		"running": ws.running,
		"tasks":   ws.runner.Tasks(),
	}
	if ws.running {
		status["uptime"] = time.Since(ws.startedAt).Round(time.Second).String()
	}

	ctx := ws.ctx
	if ctx == nil || ctx.Err() != nil {
		ctx = context.Background()
	}
	if pending, err := ws.queue.Pending(ctx, ""); err == nil {
		status["pending_jobs"] = pending
	}

	if ws.cadence != nil {
		status["scheduler_enabled"] = true
		if last := ws.cadence.LastSummary(); last != nil {
			status["scheduler_last_run"] = last
			status["scheduler_last_run_at"] = ws.cadence.LastRun()
		}
	}
	return status
}
