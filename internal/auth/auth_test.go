package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"autoblog/internal/models"
	"autoblog/internal/testdb"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestIssuer_RoundTrip(t *testing.T) {
	issuer := NewIssuer("s3cret", time.Hour)
	id := uuid.New()

	token, err := issuer.Issue(id)
	require.NoError(t, err)
	assert.True(t, LooksLikeJWT(token))

	got, err := issuer.ProfileIDFromToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestIssuer_Rejects(t *testing.T) {
	issuer := NewIssuer("s3cret", time.Hour)
	id := uuid.New()

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewIssuer("other", time.Hour).Issue(id)
		require.NoError(t, err)
		_, err = issuer.ProfileIDFromToken(token)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("expired", func(t *testing.T) {
		old := NewIssuer("s3cret", time.Minute)
		old.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, err := old.Issue(id)
		require.NoError(t, err)
		_, err = issuer.ProfileIDFromToken(token)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("none algorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			Issuer: "autoblog", Subject: id.String(),
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = issuer.ProfileIDFromToken(token)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("subject is not a uuid", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Issuer: "autoblog", Subject: "did:plc:someone",
		}).SignedString([]byte("s3cret"))
		require.NoError(t, err)
		_, err = issuer.ProfileIDFromToken(token)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("no secret configured", func(t *testing.T) {
		_, err := NewIssuer("", 0).Issue(id)
		assert.ErrorIs(t, err, ErrNoSecret)
	})
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken(""))
}

func newRouter(db *gorm.DB, issuer *Issuer) *gin.Engine {
	m := NewMiddleware(db, issuer, nil)
	r := gin.New()
	api := r.Group("/api", m.RequireProfile())
	api.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": CurrentProfile(c).ID})
	})
	api.GET("/admin", m.RequireSuperuser(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func get(r http.Handler, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddleware(t *testing.T) {
	db := testdb.New(t)
	issuer := NewIssuer("s3cret", time.Hour)
	r := newRouter(db, issuer)

	profile := testdb.CreateProfile(t, db, models.StateSignedUp)
	admin := testdb.CreateProfile(t, db, models.StateSignedUp)
	require.NoError(t, db.Model(admin).Update("is_superuser", true).Error)
	deleted := testdb.CreateProfile(t, db, models.StateAccountDeleted)

	token, err := issuer.Issue(profile.ID)
	require.NoError(t, err)

	t.Run("jwt", func(t *testing.T) {
		w := get(r, "/api/me", "Bearer "+token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), profile.ID.String())
	})

	t.Run("profile key", func(t *testing.T) {
		w := get(r, "/api/me", "Bearer "+profile.Key)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("query token", func(t *testing.T) {
		w := get(r, "/api/me?token="+token, "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(r, "/api/me", "").Code)
	})

	t.Run("unknown key", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(r, "/api/me", "Bearer nosuchkey0").Code)
	})

	t.Run("deleted account", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(r, "/api/me", "Bearer "+deleted.Key).Code)
	})

	t.Run("token for a missing profile", func(t *testing.T) {
		stray, err := issuer.Issue(uuid.New())
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, get(r, "/api/me", "Bearer "+stray).Code)
	})

	t.Run("superuser only", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, get(r, "/api/admin", "Bearer "+profile.Key).Code)
		assert.Equal(t, http.StatusNoContent, get(r, "/api/admin", "Bearer "+admin.Key).Code)
	})
}
