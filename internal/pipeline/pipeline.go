// Package pipeline sequences the content stages of a project: scrape,
// analyze, title suggestions, content generation, sub-page analysis,
// competitor analysis and keyword processing.
package pipeline

import (
	"errors"
	"math/rand/v2"
	"time"

	"autoblog/internal/llm"
	"autoblog/internal/models"
	"autoblog/internal/progress"
	"autoblog/internal/queue"
	"autoblog/internal/scraper"
	"autoblog/internal/services"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Task names of the background jobs run by the pipeline
const (
	TaskGenerateSuggestions  = "generate_blog_post_suggestions"
	TaskGenerateTitles       = "generate_title_suggestions"
	TaskGenerateContent      = "generate_blog_post_content"
	TaskProcessKeywords      = "process_project_keywords"
	TaskSchedulePageAnalysis = "schedule_project_page_analysis"
	TaskAnalyzePage          = "analyze_project_page"
	TaskScheduleCompetitors  = "schedule_project_competitor_analysis"
	TaskAnalyzeCompetitor    = "analyze_project_competitor"
	TaskAnalyzeProject       = "analyze_project"
	TaskRefreshMarkdown      = "refresh_project_markdown"
)

// Suggestions generated per content type right after analysis
const initialSuggestionsPerType = 3

var (
	// ErrProjectExists is returned when another profile already owns the URL
	ErrProjectExists = errors.New("project already exists")
	// ErrEmptyScrape is returned when the scraper produced no content
	ErrEmptyScrape = errors.New("scrape produced no content")
	// ErrNotScraped is returned when analysis runs before a successful scrape
	ErrNotScraped = errors.New("project has not been scraped")
	// ErrEmptyAnalysis is returned when the model answer lacks required fields
	ErrEmptyAnalysis = errors.New("analysis produced no result")
	// ErrEmptyGeneration is returned when the model produced no titles or no content
	ErrEmptyGeneration = errors.New("generation produced no result")
	// ErrNotAnalyzed is returned when a stage needs an analyzed project
	ErrNotAnalyzed = errors.New("project has not been analyzed")
	// ErrInvalidContentType is returned for unknown content types
	ErrInvalidContentType = errors.New("invalid content type")
	// ErrQuotaExceeded is returned when the profile hit a free ceiling
	ErrQuotaExceeded = errors.New("quota exceeded")
)

// ProjectPayload is the job payload of project level tasks
type ProjectPayload struct {
	ProjectID uuid.UUID `json:"project_id"`
}

// PagePayload is the job payload of TaskAnalyzePage
type PagePayload struct {
	ProjectID uuid.UUID `json:"project_id"`
	URL       string    `json:"url"`
}

// CompetitorPayload is the job payload of TaskAnalyzeCompetitor
type CompetitorPayload struct {
	CompetitorID uuid.UUID `json:"competitor_id"`
}

// TitlesPayload is the job payload of TaskGenerateTitles
type TitlesPayload struct {
	ProjectID   uuid.UUID          `json:"project_id"`
	ContentType models.ContentType `json:"content_type"`
	Count       int                `json:"count"`
	UserPrompt  string             `json:"user_prompt,omitempty"`
}

// SuggestionPayload is the job payload of TaskGenerateContent
type SuggestionPayload struct {
	SuggestionID uuid.UUID `json:"suggestion_id"`
}

// Deps are the collaborators of the pipeline
type Deps struct {
	DB      *gorm.DB
	Scraper scraper.Fetcher
	// Agent runs analysis and generation prompts
	Agent llm.Agent
	// Search answers the free-text competitor question; defaults to Agent
	Search    llm.Agent
	Queue     queue.Enqueuer
	Quota     *services.QuotaGate
	Publisher progress.Publisher
	Log       *zap.Logger
	Now       func() time.Time
	// PickContentType chooses the content type of fresh suggestions
	PickContentType func() models.ContentType
}

// Pipeline runs the stages of projects
type Pipeline struct {
	db              *gorm.DB
	scraper         scraper.Fetcher
	agent           llm.Agent
	search          llm.Agent
	queue           queue.Enqueuer
	quota           *services.QuotaGate
	exec            *Executor
	log             *zap.Logger
	now             func() time.Time
	pickContentType func() models.ContentType
}

// New creates a pipeline
func New(deps Deps) *Pipeline {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Search == nil {
		deps.Search = deps.Agent
	}
	if deps.Publisher == nil {
		deps.Publisher = progress.Nop{}
	}
	if deps.PickContentType == nil {
		deps.PickContentType = func() models.ContentType {
			return models.ContentTypes[rand.IntN(len(models.ContentTypes))]
		}
	}
	return &Pipeline{
		db:              deps.DB,
		scraper:         deps.Scraper,
		agent:           deps.Agent,
		search:          deps.Search,
		queue:           deps.Queue,
		quota:           deps.Quota,
		exec:            NewExecutor(deps.Publisher, deps.Log),
		log:             deps.Log,
		now:             deps.Now,
		pickContentType: deps.PickContentType,
	}
}

// PickContentType returns a content type for a fresh suggestion
func (p *Pipeline) PickContentType() models.ContentType {
	return p.pickContentType()
}
