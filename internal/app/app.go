// Package app wires the components of the service together. Every command
// builds the same graph so a job enqueued by one process can be handled by
// any worker.
package app

import (
	"autoblog/internal/auth"
	"autoblog/internal/config"
	"autoblog/internal/handlers"
	"autoblog/internal/llm"
	"autoblog/internal/logging"
	"autoblog/internal/pipeline"
	"autoblog/internal/progress"
	"autoblog/internal/queue"
	"autoblog/internal/scheduler"
	"autoblog/internal/scraper"
	"autoblog/internal/services"
	"autoblog/internal/submission"
	"autoblog/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds the wired components
type App struct {
	Config    config.Config
	DB        *gorm.DB
	Log       *zap.Logger
	Queue     *queue.Queue
	Runner    *queue.Runner
	States    *services.ProfileStateService
	Quota     *services.QuotaGate
	Hub       *progress.Hub
	Pipeline  *pipeline.Pipeline
	Submitter *submission.Submitter
	Selector  *submission.Selector
	Scheduler *scheduler.Scheduler
	Cadence   *scheduler.Worker
	Issuer    *auth.Issuer
	Workers   *worker.WorkerService
}

// Options replaces collaborators, mostly for tests
type Options struct {
	Agent   llm.Agent
	Search  llm.Agent
	Scraper scraper.Fetcher
}

// New builds the component graph and registers every task handler
func New(cfg config.Config, db *gorm.DB, log *zap.Logger, opts Options) *App {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{Config: cfg, DB: db, Log: log}

	a.Queue = queue.New(db, logging.Component(log, "queue"))
	a.Runner = queue.NewRunner(a.Queue, queue.RunnerConfig{
		Workers:      cfg.Queue.Workers,
		PollInterval: cfg.Queue.PollInterval,
		Visibility:   cfg.Queue.Visibility,
	}, logging.Component(log, "runner"))

	a.States = services.NewProfileStateService(db, a.Queue, logging.Component(log, "profile_states"))
	a.Quota = services.NewQuotaGate(db, a.States)
	a.Hub = progress.NewHub(logging.Component(log, "progress"))

	if opts.Agent == nil {
		opts.Agent = llm.NewClient(llmConfig(cfg.LLM), logging.Component(log, "llm"))
	}
	if opts.Search == nil && cfg.Search.Endpoint != "" {
		opts.Search = llm.NewClient(llmConfig(cfg.Search), logging.Component(log, "llm_search"))
	}
	if opts.Scraper == nil {
		opts.Scraper = scraper.New(scraper.Config{UserAgent: cfg.Scraper.UserAgent, Timeout: cfg.Scraper.Timeout})
	}

	a.Pipeline = pipeline.New(pipeline.Deps{
		DB:        db,
		Scraper:   opts.Scraper,
		Agent:     opts.Agent,
		Search:    opts.Search,
		Queue:     a.Queue,
		Quota:     a.Quota,
		Publisher: a.Hub,
		Log:       logging.Component(log, "pipeline"),
	})
	a.Submitter = submission.NewSubmitter(db, nil, logging.Component(log, "submitter"))
	a.Selector = submission.NewSelector(db, a.Pipeline, logging.Component(log, "selector"))
	a.Scheduler = scheduler.New(db, a.Selector, a.Queue, cfg.Scheduler.SubmissionLockTTL, logging.Component(log, "scheduler"))
	a.Cadence = scheduler.NewWorker(a.Scheduler, cfg.Scheduler.Interval, logging.Component(log, "cadence"))
	a.Issuer = auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	a.Pipeline.RegisterHandlers(a.Runner)
	a.Submitter.RegisterHandlers(a.Runner)
	a.Scheduler.RegisterHandlers(a.Runner)
	a.Runner.Register(services.TaskTrackStateChange, a.States.HandleTrackStateChange)

	a.Workers = worker.NewWorkerService(a.Queue, a.Runner, a.Cadence, logging.Component(log, "workers"))
	return a
}

// Router builds the HTTP API over the wired components
func (a *App) Router() *gin.Engine {
	return handlers.NewRouter(handlers.RouterConfig{
		DB:        a.DB,
		Pipeline:  a.Pipeline,
		Quota:     a.Quota,
		Queue:     a.Queue,
		Scheduler: a.Scheduler,
		Hub:       a.Hub,
		Issuer:    a.Issuer,
		Workers:   a.Workers,
		Log:       logging.Component(a.Log, "api"),
	})
}

func llmConfig(c config.LLMConfig) llm.Config {
	return llm.Config{
		Endpoint: c.Endpoint,
		APIKey:   c.APIKey,
		Model:    c.Model,
		Retries:  c.Retries,
		Timeout:  c.Timeout,
	}
}
