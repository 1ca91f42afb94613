package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"autoblog/internal/config"
	"autoblog/internal/llm"
	"autoblog/internal/pipeline"
	"autoblog/internal/scheduler"
	"autoblog/internal/scraper"
	"autoblog/internal/services"
	"autoblog/internal/submission"
	"autoblog/internal/testdb"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type noFetch struct{}

func (noFetch) Fetch(context.Context, string) (*scraper.Page, error) {
	return nil, scraper.ErrEmptyContent
}

func TestNew_RegistersEveryTask(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a := New(config.Default(), testdb.New(t), nil, Options{Agent: llm.NewFake(), Scraper: noFetch{}})

	tasks := a.Runner.Tasks()
	for _, task := range []string{
		pipeline.TaskGenerateSuggestions,
		pipeline.TaskGenerateTitles,
		pipeline.TaskGenerateContent,
		pipeline.TaskProcessKeywords,
		pipeline.TaskSchedulePageAnalysis,
		pipeline.TaskAnalyzePage,
		pipeline.TaskScheduleCompetitors,
		pipeline.TaskAnalyzeCompetitor,
		pipeline.TaskAnalyzeProject,
		pipeline.TaskRefreshMarkdown,
		submission.TaskSubmitBlogPost,
		scheduler.TaskCheckAndSchedule,
		services.TaskTrackStateChange,
	} {
		assert.Contains(t, tasks, task)
	}

	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
