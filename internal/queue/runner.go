package queue

import (
	"context"
	"sync"
	"time"

	"autoblog/internal/metrics"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Handler runs one job. The payload is the JSON given to Enqueue.
type Handler func(ctx context.Context, payload []byte) error

// Registrar binds handlers to task names
type Registrar interface {
	Register(task string, h Handler)
}

// RunnerConfig configures the worker pool
type RunnerConfig struct {
	Workers      int
	PollInterval time.Duration
	Visibility   time.Duration
}

// DefaultRunnerConfig returns the default worker pool settings
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Workers:      4,
		PollInterval: 2 * time.Second,
		Visibility:   10 * time.Minute,
	}
}

// Runner polls the queue and dispatches jobs to registered handlers
type Runner struct {
	queue    *Queue
	config   RunnerConfig
	log      *zap.Logger
	mu       sync.RWMutex
	handlers map[string]Handler
}

var _ Registrar = (*Runner)(nil)

// NewRunner creates a runner over q
func NewRunner(q *Queue, config RunnerConfig, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		queue:    q,
		config:   config,
		log:      log,
		handlers: make(map[string]Handler),
	}
}

// Register binds a handler to a task name. Registering twice replaces the
// previous handler.
func (r *Runner) Register(task string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[task] = h
}

// Tasks lists registered task names
func (r *Runner) Tasks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// Run starts the configured number of workers and blocks until ctx is done
func (r *Runner) Run(ctx context.Context) error {
	workers := r.config.Workers
	if workers <= 0 {
		workers = 1
	}

	r.log.Info("starting queue workers", zap.Int("workers", workers))

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		worker := i
		g.Go(func() error {
			r.work(ctx, worker)
			return nil
		})
	}
	return g.Wait()
}

func (r *Runner) work(ctx context.Context, worker int) {
	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	for {
		// Drain everything due before sleeping again.
		for {
			if ctx.Err() != nil {
				return
			}
			processed, err := r.RunOnce(ctx)
			if err != nil {
				r.log.Error("queue poll failed", zap.Int("worker", worker), zap.Error(err))
				break
			}
			if !processed {
				break
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce claims and runs at most one job. It reports whether a job was run.
// Handler errors are recorded on the job, not returned.
func (r *Runner) RunOnce(ctx context.Context) (bool, error) {
	job, err := r.queue.Claim(ctx, r.config.Visibility)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	log := r.log.With(zap.String("task", job.Name), zap.String("job_id", job.ID.String()))

	r.mu.RLock()
	handler, ok := r.handlers[job.Name]
	r.mu.RUnlock()

	if !ok {
		log.Error("no handler registered")
		metrics.ObserveJob(job.Name, false)
		return true, r.queue.Fail(ctx, job.ID, eris.Wrap(ErrUnknownTask, job.Name))
	}

	runErr := r.safeRun(ctx, handler, job.Payload)
	if runErr != nil {
		log.Warn("job failed", zap.Error(runErr), zap.Int("attempts", job.Attempts))
		metrics.ObserveJob(job.Name, false)
		return true, r.queue.Fail(ctx, job.ID, runErr)
	}

	metrics.ObserveJob(job.Name, true)
	log.Debug("job done")
	return true, r.queue.Complete(ctx, job.ID)
}

// Drain runs jobs until none are due
func (r *Runner) Drain(ctx context.Context) (int, error) {
	count := 0
	for {
		processed, err := r.RunOnce(ctx)
		if err != nil {
			return count, err
		}
		if !processed {
			return count, nil
		}
		count++
	}
}

func (r *Runner) safeRun(ctx context.Context, h Handler, payload []byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = eris.Errorf("handler panic: %v", rec)
		}
	}()
	return h(ctx, payload)
}
