// Package submission publishes generated posts to external endpoints: it
// picks the post to publish, validates it, renders the endpoint templates
// and sends the request.
package submission

import (
	"time"

	"autoblog/internal/models"

	"github.com/russross/blackfriday/v2"
)

// PostView is the read-only projection of a post that templates can reach.
// Paths are resolved by a fixed switch so templates cannot touch anything
// else on the post or its relations.
type PostView struct {
	post *models.GeneratedBlogPost
}

// NewPostView wraps a post. TitleSuggestion and Project should be loaded;
// paths into a missing relation stay unresolved.
func NewPostView(post *models.GeneratedBlogPost) PostView {
	return PostView{post: post}
}

// Paths lists every path Lookup resolves
var Paths = []string{
	"id", "project_id", "slug", "description", "tags", "content", "content_html", "date_posted",
	"title", "title.title", "title.description", "title.category", "title.content_type",
	"title.suggested_meta_description", "project.name", "project.url", "project.summary",
}

// Lookup resolves a dotted path. ok is false for unknown paths and for
// paths into a relation the post does not have.
func (v PostView) Lookup(path string) (string, bool) {
	p := v.post
	switch path {
	case "id":
		return p.ID.String(), true
	case "project_id":
		return p.ProjectID.String(), true
	case "slug":
		return p.Slug, true
	case "description":
		return p.Description, true
	case "tags":
		return p.Tags, true
	case "content":
		return p.Content, true
	case "content_html":
		return renderHTML(p.Content), true
	case "date_posted":
		if p.DatePosted == nil {
			return "", true
		}
		return p.DatePosted.UTC().Format(time.RFC3339), true
	case "title":
		return p.PostTitle(), true
	}

	if s := p.TitleSuggestion; s != nil {
		switch path {
		case "title.title":
			return s.Title, true
		case "title.description":
			return s.Description, true
		case "title.category":
			return s.Category, true
		case "title.content_type":
			return string(s.ContentType), true
		case "title.suggested_meta_description":
			return s.SuggestedMetaDescription, true
		}
	}

	if pr := p.Project; pr != nil {
		switch path {
		case "project.name":
			return pr.Name, true
		case "project.url":
			return pr.URL, true
		case "project.summary":
			return pr.Summary, true
		}
	}

	return "", false
}

func renderHTML(markdown string) string {
	extensions := blackfriday.CommonExtensions | blackfriday.AutoHeadingIDs
	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.CommonHTMLFlags,
	})
	return string(blackfriday.Run([]byte(markdown), blackfriday.WithRenderer(renderer), blackfriday.WithExtensions(extensions)))
}
