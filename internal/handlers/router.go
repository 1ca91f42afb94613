package handlers

import (
	"autoblog/internal/auth"
	"autoblog/internal/progress"
	"autoblog/internal/queue"
	"autoblog/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RouterConfig carries everything the API routes need
type RouterConfig struct {
	DB        *gorm.DB
	Pipeline  ProjectPipeline
	Quota     *services.QuotaGate
	Queue     queue.Enqueuer
	Scheduler DryRunner
	Hub       *progress.Hub
	Issuer    *auth.Issuer
	Workers   StatusReporter
	Log       *zap.Logger
}

// NewRouter builds the gin engine with every route mounted
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger(log), httpMetrics(), cors())

	authn := auth.NewMiddleware(cfg.DB, cfg.Issuer, log)
	healthHandler := NewHealthHandler(cfg.DB, cfg.Workers)
	projectHandler := NewProjectHandler(cfg.DB, cfg.Pipeline, cfg.Quota, cfg.Queue, log)
	suggestionHandler := NewSuggestionHandler(cfg.DB, cfg.Quota, cfg.Queue, log)
	postHandler := NewPostHandler(cfg.DB)
	scheduleHandler := NewScheduleHandler(cfg.Scheduler, cfg.Queue, log)
	tokenHandler := NewTokenHandler(cfg.Issuer)

	r.GET("/health", healthHandler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.Hub != nil {
		progressHandler := NewProgressHandler(cfg.DB, cfg.Hub, log)
		r.GET("/ws/progress", authn.RequireProfile(), progressHandler.Stream)
	}

	api := r.Group("/api", authn.RequireProfile())
	{
		api.POST("/token", tokenHandler.Issue)
		api.POST("/scan", projectHandler.Scan)

		projects := api.Group("/projects")
		{
			projects.GET("/:id", projectHandler.GetProject)
			projects.PATCH("/:id", projectHandler.UpdateProject)
			projects.POST("/:id/title-suggestions", projectHandler.GenerateTitleSuggestions)
			projects.POST("/:id/competitors", projectHandler.AddCompetitor)
			projects.POST("/:id/auto-submission", projectHandler.SaveAutoSubmission)
		}

		suggestions := api.Group("/suggestions")
		{
			suggestions.POST("/:id/generate", suggestionHandler.GenerateContent)
			suggestions.POST("/:id/score", suggestionHandler.Score)
		}

		posts := api.Group("/posts")
		{
			posts.GET("/:id/preview", postHandler.Preview)
			posts.GET("/:id/html", postHandler.ServeHTML)
		}

		admin := api.Group("", authn.RequireSuperuser())
		{
			admin.POST("/schedule/run", scheduleHandler.Run)
			admin.GET("/worker/status", healthHandler.WorkerStatus)
		}
	}

	return r
}
