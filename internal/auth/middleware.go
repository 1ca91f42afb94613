package auth

import (
	"errors"
	"net/http"
	"strings"

	"autoblog/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const profileContextKey = "profile"

// Middleware resolves the request's profile from a bearer JWT or a profile
// key and stores it on the gin context
type Middleware struct {
	db     *gorm.DB
	issuer *Issuer
	log    *zap.Logger
}

// NewMiddleware creates the auth middleware
func NewMiddleware(db *gorm.DB, issuer *Issuer, log *zap.Logger) *Middleware {
	if log == nil {
		log = zap.NewNop()
	}
	return &Middleware{db: db, issuer: issuer, log: log}
}

// RequireProfile rejects requests without a valid token
func (m *Middleware) RequireProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("token")
		}
		profile, err := m.Resolve(c, token)
		if err != nil {
			m.log.Debug("rejected request", zap.String("path", c.FullPath()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Set(profileContextKey, profile)
		c.Next()
	}
}

// RequireSuperuser must run after RequireProfile
func (m *Middleware) RequireSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		profile := CurrentProfile(c)
		if profile == nil || !profile.IsSuperuser {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Superuser access required"})
			return
		}
		c.Next()
	}
}

// Resolve loads the profile a token belongs to
func (m *Middleware) Resolve(c *gin.Context, token string) (*models.Profile, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	var profile models.Profile
	query := m.db.WithContext(c.Request.Context())
	if LooksLikeJWT(token) {
		id, err := m.issuer.ProfileIDFromToken(token)
		if err != nil {
			return nil, err
		}
		query = query.Where("id = ?", id)
	} else {
		query = query.Where("key = ?", token)
	}

	if err := query.First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if profile.State == models.StateAccountDeleted {
		return nil, ErrInvalidToken
	}
	return &profile, nil
}

// CurrentProfile returns the authenticated profile, or nil
func CurrentProfile(c *gin.Context) *models.Profile {
	v, ok := c.Get(profileContextKey)
	if !ok {
		return nil
	}
	profile, _ := v.(*models.Profile)
	return profile
}

// BearerToken strips the Bearer scheme from an Authorization header
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
