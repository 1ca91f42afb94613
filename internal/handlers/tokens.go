package handlers

import (
	"errors"
	"net/http"

	"autoblog/internal/auth"

	"github.com/gin-gonic/gin"
)

// TokenHandler exchanges an authenticated request for a fresh JWT
type TokenHandler struct {
	issuer *auth.Issuer
}

// NewTokenHandler creates a new token handler
func NewTokenHandler(issuer *auth.Issuer) *TokenHandler {
	return &TokenHandler{issuer: issuer}
}

// Issue handles POST /api/token
func (h *TokenHandler) Issue(c *gin.Context) {
	profile := auth.CurrentProfile(c)
	token, err := h.issuer.Issue(profile.ID)
	if errors.Is(err, auth.ErrNoSecret) {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Token signing is not configured"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "profile_id": profile.ID})
}
