package handlers

import (
	"net/http"

	"autoblog/internal/models"
	"autoblog/internal/pipeline"
	"autoblog/internal/queue"
	"autoblog/internal/services"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SuggestionHandler serves title suggestion feedback and content generation
type SuggestionHandler struct {
	db    *gorm.DB
	quota *services.QuotaGate
	queue queue.Enqueuer
	log   *zap.Logger
}

// NewSuggestionHandler creates a new suggestion handler
func NewSuggestionHandler(db *gorm.DB, quota *services.QuotaGate, q queue.Enqueuer, log *zap.Logger) *SuggestionHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SuggestionHandler{db: db, quota: quota, queue: q, log: log}
}

// GenerateContent handles POST /api/suggestions/:id/generate
func (h *SuggestionHandler) GenerateContent(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	suggestion, ok := loadSuggestion(c, h.db, id)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	owner, err := ownerOf(c, h.db, suggestion.Project)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile", "details": err.Error()})
		return
	}
	allowed, err := h.quota.MayGenerateContent(ctx, owner)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check quota", "details": err.Error()})
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": services.Reason(services.QuotaContent)})
		return
	}

	jobID, err := h.queue.Enqueue(ctx, pipeline.TaskGenerateContent, pipeline.SuggestionPayload{SuggestionID: suggestion.ID})
	if err != nil {
		h.log.Error("failed to enqueue content generation", zap.String("suggestion_id", suggestion.ID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start content generation"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID, "status": "queued"})
}

type scoreRequest struct {
	Score    *int  `json:"score"`
	Archived *bool `json:"archived"`
}

// Score handles POST /api/suggestions/:id/score. Disliked and archived
// suggestions are never picked for automatic posts.
func (h *SuggestionHandler) Score(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	suggestion, ok := loadSuggestion(c, h.db, id)
	if !ok {
		return
	}

	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := validation.ValidateStruct(&req,
		validation.Field(&req.Score, validation.NotNil, validation.In(-1, 0, 1).Error("score must be -1, 0 or 1")),
	); err != nil {
		validationError(c, err)
		return
	}

	updates := map[string]interface{}{"user_score": models.UserScore(*req.Score)}
	if req.Archived != nil {
		updates["archived"] = *req.Archived
	}
	if err := h.db.WithContext(c.Request.Context()).Model(suggestion).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save score", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestion": suggestion})
}
