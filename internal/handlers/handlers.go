// Package handlers implements the HTTP API.
package handlers

import (
	"errors"
	"net/http"

	"autoblog/internal/auth"
	"autoblog/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusReporter reports the background workers' state
type StatusReporter interface {
	GetStatus() map[string]interface{}
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + param})
		return uuid.Nil, false
	}
	return id, true
}

// canAccess reports whether the current profile may act on projects owned
// by ownerID
func canAccess(c *gin.Context, ownerID uuid.UUID) bool {
	profile := auth.CurrentProfile(c)
	return profile != nil && (profile.ID == ownerID || profile.IsSuperuser)
}

// loadProject loads a project the caller may access. It writes the error
// response and returns false otherwise.
func loadProject(c *gin.Context, db *gorm.DB, id uuid.UUID) (*models.Project, bool) {
	var project models.Project
	err := db.WithContext(c.Request.Context()).First(&project, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !canAccess(c, project.ProfileID)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load project", "details": err.Error()})
		return nil, false
	}
	return &project, true
}

// loadSuggestion loads a title suggestion together with its project
func loadSuggestion(c *gin.Context, db *gorm.DB, id uuid.UUID) (*models.BlogPostTitleSuggestion, bool) {
	var suggestion models.BlogPostTitleSuggestion
	err := db.WithContext(c.Request.Context()).Preload("Project").First(&suggestion, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) ||
		(err == nil && (suggestion.Project == nil || !canAccess(c, suggestion.Project.ProfileID))) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Title suggestion not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load title suggestion", "details": err.Error()})
		return nil, false
	}
	return &suggestion, true
}

// ownerOf returns the profile that owns project, which is the caller
// unless a superuser acts on someone else's project
func ownerOf(c *gin.Context, db *gorm.DB, project *models.Project) (*models.Profile, error) {
	if profile := auth.CurrentProfile(c); profile != nil && profile.ID == project.ProfileID {
		return profile, nil
	}
	var owner models.Profile
	if err := db.WithContext(c.Request.Context()).First(&owner, "id = ?", project.ProfileID).Error; err != nil {
		return nil, err
	}
	return &owner, nil
}

// validationError answers 400 with the per-field messages
func validationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err})
}
