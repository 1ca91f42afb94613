package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler answers liveness and worker status probes
type HealthHandler struct {
	db      *gorm.DB
	workers StatusReporter
}

// NewHealthHandler creates a new health handler. workers may be nil when
// the API runs without background workers.
func NewHealthHandler(db *gorm.DB, workers StatusReporter) *HealthHandler {
	return &HealthHandler{db: db, workers: workers}
}

// HealthCheck handles GET /health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "autoblog",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "autoblog",
	})
}

// WorkerStatus handles GET /api/worker/status
func (h *HealthHandler) WorkerStatus(c *gin.Context) {
	if h.workers == nil {
		c.JSON(http.StatusOK, gin.H{"worker_status": gin.H{"running": false}})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"worker_status": h.workers.GetStatus(),
	})
}
