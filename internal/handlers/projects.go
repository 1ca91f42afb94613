package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"autoblog/internal/auth"
	"autoblog/internal/models"
	"autoblog/internal/pipeline"
	"autoblog/internal/queue"
	"autoblog/internal/services"
	"autoblog/internal/submission"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxTitlesPerRequest caps one title generation request
const MaxTitlesPerRequest = 10

// ProjectPipeline is the part of the pipeline the API runs synchronously
type ProjectPipeline interface {
	ScanProject(ctx context.Context, profile *models.Profile, rawURL string) (*models.Project, error)
	AddCompetitor(ctx context.Context, project *models.Project, rawURL, name string) (*models.Competitor, error)
}

// ProjectHandler serves project scans, settings and generation requests
type ProjectHandler struct {
	db       *gorm.DB
	pipeline ProjectPipeline
	quota    *services.QuotaGate
	queue    queue.Enqueuer
	log      *zap.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(db *gorm.DB, p ProjectPipeline, quota *services.QuotaGate, q queue.Enqueuer, log *zap.Logger) *ProjectHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProjectHandler{db: db, pipeline: p, quota: quota, queue: q, log: log}
}

type scanRequest struct {
	URL string `json:"url"`
}

// Scan handles POST /api/scan
func (h *ProjectHandler) Scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := validation.ValidateStruct(&req,
		validation.Field(&req.URL, validation.Required, is.URL),
	); err != nil {
		validationError(c, err)
		return
	}

	project, err := h.pipeline.ScanProject(c.Request.Context(), auth.CurrentProfile(c), req.URL)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"project": project})
	case errors.Is(err, pipeline.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid URL"})
	case errors.Is(err, pipeline.ErrProjectExists):
		c.JSON(http.StatusConflict, gin.H{"error": "This URL is already tracked by another account"})
	case errors.Is(err, pipeline.ErrEmptyScrape), errors.Is(err, pipeline.ErrEmptyAnalysis):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Could not read the site", "details": err.Error()})
	default:
		h.log.Error("scan failed", zap.String("url", req.URL), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to scan the site", "details": err.Error()})
	}
}

// GetProject handles GET /api/projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	project, ok := loadProject(c, h.db, id)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	db := h.db.WithContext(ctx)
	if err := db.Where("project_id = ?", project.ID).Order("url ASC").Find(&project.Pages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load pages", "details": err.Error()})
		return
	}
	if err := db.Where("project_id = ?", project.ID).Order("created_at ASC").Find(&project.Competitors).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load competitors", "details": err.Error()})
		return
	}

	var suggestions []models.BlogPostTitleSuggestion
	if err := db.Where("project_id = ? AND archived = ?", project.ID, false).
		Order("created_at DESC").Find(&suggestions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load title suggestions", "details": err.Error()})
		return
	}

	var posts []models.GeneratedBlogPost
	if err := db.Where("project_id = ?", project.ID).Order("created_at DESC").Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load generated posts", "details": err.Error()})
		return
	}

	response := gin.H{
		"project":           project,
		"title_suggestions": suggestions,
		"generated_posts":   posts,
	}
	setting, err := submission.LatestSetting(ctx, h.db, project.ID)
	switch {
	case err == nil:
		response["auto_submission_setting"] = setting
	case !errors.Is(err, submission.ErrNoSetting):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load auto-submission setting", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, response)
}

type updateProjectRequest struct {
	EnableAutomaticPostGeneration *bool `json:"enable_automatic_post_generation"`
	EnableAutomaticPostSubmission *bool `json:"enable_automatic_post_submission"`
}

// UpdateProject handles PATCH /api/projects/:id
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	project, ok := loadProject(c, h.db, id)
	if !ok {
		return
	}

	var req updateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.EnableAutomaticPostGeneration != nil {
		updates["enable_automatic_post_generation"] = *req.EnableAutomaticPostGeneration
	}
	if req.EnableAutomaticPostSubmission != nil {
		updates["enable_automatic_post_submission"] = *req.EnableAutomaticPostSubmission
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Model(project).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update project", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": project})
}

type titleSuggestionsRequest struct {
	ContentType models.ContentType `json:"content_type"`
	Count       int                `json:"count"`
	UserPrompt  string             `json:"user_prompt"`
}

// GenerateTitleSuggestions handles POST /api/projects/:id/title-suggestions.
// Generation runs in the background; the quota is checked up front so the
// caller learns about a denial right away.
func (h *ProjectHandler) GenerateTitleSuggestions(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	project, ok := loadProject(c, h.db, id)
	if !ok {
		return
	}

	req := titleSuggestionsRequest{ContentType: models.ContentTypeSharing, Count: 5}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := validation.ValidateStruct(&req,
		validation.Field(&req.ContentType, validation.In(models.ContentTypeSharing, models.ContentTypeSEO)),
		validation.Field(&req.Count, validation.Min(1), validation.Max(MaxTitlesPerRequest)),
		validation.Field(&req.UserPrompt, validation.Length(0, 2000)),
	); err != nil {
		validationError(c, err)
		return
	}
	if !project.IsAnalyzed() {
		c.JSON(http.StatusConflict, gin.H{"error": "Project has not been analyzed yet"})
		return
	}

	ctx := c.Request.Context()
	owner, err := ownerOf(c, h.db, project)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile", "details": err.Error()})
		return
	}
	allowed, err := h.quota.MayGenerateTitles(ctx, owner, req.Count)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check quota", "details": err.Error()})
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": services.Reason(services.QuotaTitles)})
		return
	}

	jobID, err := h.queue.Enqueue(ctx, pipeline.TaskGenerateTitles, pipeline.TitlesPayload{
		ProjectID:   project.ID,
		ContentType: req.ContentType,
		Count:       req.Count,
		UserPrompt:  req.UserPrompt,
	})
	if err != nil {
		h.log.Error("failed to enqueue title generation", zap.String("project_id", project.ID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start title generation"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID, "status": "queued"})
}

type competitorRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// AddCompetitor handles POST /api/projects/:id/competitors
func (h *ProjectHandler) AddCompetitor(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	project, ok := loadProject(c, h.db, id)
	if !ok {
		return
	}

	var req competitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := validation.ValidateStruct(&req,
		validation.Field(&req.URL, validation.Required, is.URL),
		validation.Field(&req.Name, validation.Length(0, 200)),
	); err != nil {
		validationError(c, err)
		return
	}

	competitor, err := h.pipeline.AddCompetitor(c.Request.Context(), project, req.URL, req.Name)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"competitor": competitor})
	case errors.Is(err, pipeline.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid URL"})
	case errors.Is(err, pipeline.ErrCompetitorExists):
		c.JSON(http.StatusConflict, gin.H{"error": "Competitor already tracked"})
	default:
		h.log.Error("failed to add competitor", zap.String("project_id", project.ID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add competitor", "details": err.Error()})
	}
}

type autoSubmissionRequest struct {
	EndpointURL       string          `json:"endpoint_url"`
	Header            json.RawMessage `json:"header"`
	Body              json.RawMessage `json:"body"`
	PostsPerMonth     int             `json:"posts_per_month"`
	PreferredTimezone *string         `json:"preferred_timezone"`
	PreferredTime     *string         `json:"preferred_time"`
	Enable            *bool           `json:"enable"`
}

// SaveAutoSubmission handles POST /api/projects/:id/auto-submission. Every
// save appends a new setting; the latest one is authoritative.
func (h *ProjectHandler) SaveAutoSubmission(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	project, ok := loadProject(c, h.db, id)
	if !ok {
		return
	}

	req := autoSubmissionRequest{PostsPerMonth: 1}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	setting := &models.AutoSubmissionSetting{
		ProjectID:         project.ID,
		EndpointURL:       req.EndpointURL,
		Header:            jsonOrNil(req.Header),
		Body:              jsonOrNil(req.Body),
		PostsPerMonth:     req.PostsPerMonth,
		PreferredTimezone: req.PreferredTimezone,
		PreferredTime:     req.PreferredTime,
	}
	if err := submission.ValidateSetting(setting); err != nil {
		validationError(c, err)
		return
	}
	// Render against an empty post so malformed templates fail now rather
	// than at submission time.
	if _, _, err := submission.BuildPreview(setting, submission.NewPostView(&models.GeneratedBlogPost{})); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid header or body template", "details": err.Error()})
		return
	}

	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(setting).Error; err != nil {
			return err
		}
		if req.Enable != nil {
			return tx.Model(project).Update("enable_automatic_post_submission", *req.Enable).Error
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save auto-submission setting", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"setting": setting, "project": project})
}

func jsonOrNil(raw json.RawMessage) []byte {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}
