package handlers

import (
	"errors"
	"html"
	"net/http"

	"autoblog/internal/models"
	"autoblog/internal/submission"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PostHandler serves generated posts
type PostHandler struct {
	db *gorm.DB
}

// NewPostHandler creates a new post handler
func NewPostHandler(db *gorm.DB) *PostHandler {
	return &PostHandler{db: db}
}

func (h *PostHandler) loadPost(c *gin.Context) (*models.GeneratedBlogPost, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}

	var post models.GeneratedBlogPost
	err := h.db.WithContext(c.Request.Context()).Preload("Project").Preload("TitleSuggestion").First(&post, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && (post.Project == nil || !canAccess(c, post.Project.ProfileID))) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load post", "details": err.Error()})
		return nil, false
	}
	return &post, true
}

// ServeHTML handles GET /api/posts/:id/html and renders the post's Markdown
// the way it is sent as content_html
func (h *PostHandler) ServeHTML(c *gin.Context) {
	post, ok := h.loadPost(c)
	if !ok {
		return
	}
	view := submission.NewPostView(post)
	body, _ := view.Lookup("content_html")
	title := html.EscapeString(post.PostTitle())

	page := `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>` + title + `</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 760px; margin: 2rem auto; padding: 0 1rem; }
        pre, code { background: #f3f4f6; border-radius: 4px; }
        pre { padding: 1rem; overflow-x: auto; }
    </style>
</head>
<body>
    <h1>` + title + `</h1>
    <article>` + body + `</article>
</body>
</html>`
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, page)
}

// Preview handles GET /api/posts/:id/preview. It renders the request the
// submitter would send without sending it.
func (h *PostHandler) Preview(c *gin.Context) {
	post, ok := h.loadPost(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	valid, reason := submission.CheckBlogPostBeforeSending(post)
	response := gin.H{
		"post_id": post.ID,
		"valid":   valid,
		"reason":  reason,
	}

	setting, err := submission.LatestSetting(ctx, h.db, post.ProjectID)
	if errors.Is(err, submission.ErrNoSetting) {
		response["error"] = "Project has no auto-submission setting"
		c.JSON(http.StatusOK, response)
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load auto-submission setting", "details": err.Error()})
		return
	}

	headers, body, err := submission.BuildPreview(setting, submission.NewPostView(post))
	if err != nil {
		response["error"] = err.Error()
		c.JSON(http.StatusUnprocessableEntity, response)
		return
	}
	response["endpoint_url"] = setting.EndpointURL
	response["headers"] = headers
	response["body"] = body
	c.JSON(http.StatusOK, response)
}
