package handlers

import (
	"net/http"

	"autoblog/internal/progress"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProgressHandler streams pipeline progress over a websocket
type ProgressHandler struct {
	db  *gorm.DB
	hub *progress.Hub
	log *zap.Logger
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(db *gorm.DB, hub *progress.Hub, log *zap.Logger) *ProgressHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProgressHandler{db: db, hub: hub, log: log}
}

// Stream handles GET /ws/progress?project_id=...
func (h *ProgressHandler) Stream(c *gin.Context) {
	id, err := uuid.Parse(c.Query("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project_id"})
		return
	}
	if _, ok := loadProject(c, h.db, id); !ok {
		return
	}

	if err := h.hub.Serve(c.Writer, c.Request, id); err != nil {
		h.log.Debug("progress stream closed", zap.String("project_id", id.String()), zap.Error(err))
	}
}
