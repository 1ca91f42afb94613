package submission

import (
	"encoding/json"
	"testing"
	"time"

	"autoblog/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapResolver map[string]string

func (m mapResolver) Lookup(path string) (string, bool) {
	v, ok := m[path]
	return v, ok
}

func TestRenderString(t *testing.T) {
	r := mapResolver{"title.title": "Hello", "slug": "hello"}

	assert.Equal(t, "Hello", RenderString("{{ title.title }}", r))
	assert.Equal(t, "Hello", RenderString("{{title.title}}", r))
	assert.Equal(t, "/blog/hello: Hello", RenderString("/blog/{{ slug }}: {{  title.title }}", r))
	assert.Equal(t, "{{ nope }}", RenderString("{{ nope }}", r))
	assert.Equal(t, "no tokens", RenderString("no tokens", r))
}

func TestRenderJSON(t *testing.T) {
	r := mapResolver{"title.title": "Hello", "tags": "a,b"}
	raw := []byte(`{
		"post": {"title": "{{ title.title }}", "draft": false, "order": 12345678901234},
		"tags": ["{{ tags }}", "fixed", 3],
		"missing": "{{ nope }}",
		"{{ title.title }}": "key stays"
	}`)

	rendered, err := RenderJSON(raw, r)
	require.NoError(t, err)

	out, err := json.Marshal(rendered)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"post": {"title": "Hello", "draft": false, "order": 12345678901234},
		"tags": ["a,b", "fixed", 3],
		"missing": "{{ nope }}",
		"{{ title.title }}": "key stays"
	}`, string(out))

	t.Run("empty template", func(t *testing.T) {
		rendered, err := RenderJSON(nil, r)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{}, rendered)
	})

	t.Run("invalid template", func(t *testing.T) {
		_, err := RenderJSON([]byte(`{"a":`), r)
		assert.Error(t, err)
	})

	t.Run("string template", func(t *testing.T) {
		rendered, err := RenderJSON([]byte(`"{{ title.title }}"`), r)
		require.NoError(t, err)
		assert.Equal(t, "Hello", rendered)
	})
}

func TestRenderHeaders(t *testing.T) {
	r := mapResolver{"project.name": "Acme"}

	headers, err := RenderHeaders([]byte(`{"Authorization": "Bearer token", "X-Project": "{{ project.name }}", "X-Retry": 3}`), r)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"Authorization": "Bearer token",
		"X-Project":     "Acme",
		"X-Retry":       "3",
	}, headers)

	_, err = RenderHeaders([]byte(`["not", "an", "object"]`), r)
	assert.Error(t, err)
}

func TestPostView_Lookup(t *testing.T) {
	posted := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	suggestion := &models.BlogPostTitleSuggestion{
		Title:                    "The Title",
		Description:              "What it covers",
		Category:                 models.CategoryNicheAudience,
		ContentType:              models.ContentTypeSharing,
		SuggestedMetaDescription: "Meta",
	}
	post := &models.GeneratedBlogPost{
		ID:              uuid.New(),
		ProjectID:       uuid.New(),
		Slug:            "the-title",
		Description:     "Desc",
		Tags:            "x,y",
		Content:         "Intro\n\n## Section\n\nBody",
		DatePosted:      &posted,
		TitleSuggestion: suggestion,
		Project:         &models.Project{Name: "Acme", URL: "https://acme.example.com", Summary: "Rockets"},
	}
	view := NewPostView(post)

	want := map[string]string{
		"id":                               post.ID.String(),
		"project_id":                       post.ProjectID.String(),
		"slug":                             "the-title",
		"description":                      "Desc",
		"tags":                             "x,y",
		"content":                          post.Content,
		"date_posted":                      "2025-01-02T03:04:05Z",
		"title":                            "The Title",
		"title.title":                      "The Title",
		"title.description":                "What it covers",
		"title.category":                   models.CategoryNicheAudience,
		"title.content_type":               "SHARING",
		"title.suggested_meta_description": "Meta",
		"project.name":                     "Acme",
		"project.url":                      "https://acme.example.com",
		"project.summary":                  "Rockets",
	}
	for path, expected := range want {
		got, ok := view.Lookup(path)
		assert.True(t, ok, path)
		assert.Equal(t, expected, got, path)
	}

	html, ok := view.Lookup("content_html")
	require.True(t, ok)
	assert.Contains(t, html, "<h2")
	assert.Contains(t, html, "<p>Intro</p>")

	for _, path := range Paths {
		_, ok := view.Lookup(path)
		assert.True(t, ok, path)
	}

	_, ok = view.Lookup("project.profile.email")
	assert.False(t, ok)

	t.Run("missing relations stay unresolved", func(t *testing.T) {
		bare := NewPostView(&models.GeneratedBlogPost{Slug: "bare"})
		_, ok := bare.Lookup("title.title")
		assert.False(t, ok)
		_, ok = bare.Lookup("project.name")
		assert.False(t, ok)

		title, ok := bare.Lookup("title")
		assert.True(t, ok)
		assert.Equal(t, "bare", title)

		assert.Equal(t, "{{ title.title }}", RenderString("{{ title.title }}", bare))
	})
}
