package pipeline

import (
	"context"
	"strings"
	"testing"

	"autoblog/internal/llm"
	"autoblog/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func titles(names ...string) llm.TitleSuggestions {
	var out llm.TitleSuggestions
	for _, n := range names {
		out.Titles = append(out.Titles, llm.TitleSuggestion{Title: n, TargetKeywords: []string{"rockets"}})
	}
	return out
}

func TestGenerateTitleSuggestions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, project := h.project(t)

	addSuggestion(t, h.db, project, "Why rockets are loud", models.ScoreLiked)
	addSuggestion(t, h.db, project, "Ten boring facts", models.ScoreDisliked)

	h.agent.On("generate_title_suggestions", titles("One", "Two", " ", "Three", "Four"))

	saved, err := h.pipeline.GenerateTitleSuggestions(ctx, project, models.ContentTypeSharing, 3, "focus on launches")
	require.NoError(t, err)
	require.Len(t, saved, 3)

	for _, s := range saved {
		assert.Equal(t, models.ContentTypeSharing, s.ContentType)
		assert.Equal(t, models.CategoryGeneralAudience, s.Category)
		assert.Equal(t, "focus on launches", s.Prompt)
		assert.Equal(t, models.ScoreNeutral, s.UserScore)
		assert.Equal(t, []string{"rockets"}, []string(s.TargetKeywords))
	}
	assert.Equal(t, "Three", saved[2].Title)

	require.Len(t, h.agent.Calls, 1)
	system := strings.Join(h.agent.Calls[0].System, "\n")
	assert.Contains(t, system, "Why rockets are loud")
	assert.Contains(t, system, "Ten boring facts")
	assert.Contains(t, system, "focus on launches")

	var count int64
	h.db.Model(&models.BlogPostTitleSuggestion{}).Where("project_id = ?", project.ID).Count(&count)
	assert.Equal(t, int64(5), count)
}

func TestGenerateTitleSuggestions_Guards(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid content type", func(t *testing.T) {
		h := newHarness(t)
		_, project := h.project(t)
		_, err := h.pipeline.GenerateTitleSuggestions(ctx, project, "NEWS", 3, "")
		assert.ErrorIs(t, err, ErrInvalidContentType)
	})

	t.Run("unanalyzed project", func(t *testing.T) {
		h := newHarness(t)
		_, project := h.project(t)
		project.Stage = models.StageScraped
		_, err := h.pipeline.GenerateTitleSuggestions(ctx, project, models.ContentTypeSEO, 3, "")
		assert.ErrorIs(t, err, ErrNotAnalyzed)
	})

	t.Run("free ceiling denies before the model runs", func(t *testing.T) {
		h := newHarness(t)
		_, project := h.project(t)
		for i := 0; i < 17; i++ {
			addSuggestion(t, h.db, project, "Existing", models.ScoreNeutral)
		}
		_, err := h.pipeline.GenerateTitleSuggestions(ctx, project, models.ContentTypeSEO, 3, "")
		assert.ErrorIs(t, err, ErrQuotaExceeded)
		assert.Empty(t, h.agent.Calls)
	})

	t.Run("subscribed profile passes the ceiling", func(t *testing.T) {
		h := newHarness(t)
		profile, project := h.project(t)
		h.subscribe(t, profile)
		for i := 0; i < 20; i++ {
			addSuggestion(t, h.db, project, "Existing", models.ScoreNeutral)
		}
		h.agent.On("generate_title_suggestions", titles("New"))
		saved, err := h.pipeline.GenerateTitleSuggestions(ctx, project, models.ContentTypeSEO, 1, "")
		require.NoError(t, err)
		assert.Len(t, saved, 1)
	})

	t.Run("empty answer", func(t *testing.T) {
		h := newHarness(t)
		_, project := h.project(t)
		h.agent.On("generate_title_suggestions", llm.TitleSuggestions{})
		_, err := h.pipeline.GenerateTitleSuggestions(ctx, project, models.ContentTypeSEO, 3, "")
		assert.ErrorIs(t, err, ErrEmptyGeneration)
	})
}

func TestGenerateContent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, project := h.project(t)
	suggestion := addSuggestion(t, h.db, project, "How We Built A Rocket", models.ScoreLiked)

	used := &models.Keyword{KeywordText: "rocket engines"}
	unused := &models.Keyword{KeywordText: "space tourism"}
	require.NoError(t, h.db.Create(used).Error)
	require.NoError(t, h.db.Create(unused).Error)
	require.NoError(t, h.db.Create(&models.ProjectKeyword{ProjectID: project.ID, KeywordID: used.ID, Use: true}).Error)
	require.NoError(t, h.db.Create(&models.ProjectKeyword{ProjectID: project.ID, KeywordID: unused.ID}).Error)
	require.NoError(t, h.db.Create(&models.ProjectPage{
		ProjectID: project.ID, URL: project.URL + "/pricing", Title: "Pricing", Summary: "Plans and prices",
	}).Error)

	h.agent.On("generate_content", llm.BlogPostContent{
		Description: "The story of our first rocket",
		Tags:        "rockets,engineering",
		Content:     "  We started in a garage.\n\n## The engine\n\nIt was loud.  ",
	})

	post, err := h.pipeline.GenerateContent(ctx, suggestion)
	require.NoError(t, err)

	assert.Equal(t, "how-we-built-a-rocket", post.Slug)
	assert.Equal(t, "We started in a garage.\n\n## The engine\n\nIt was loud.", post.Content)
	require.NotNil(t, post.TitleSuggestionID)
	assert.Equal(t, suggestion.ID, *post.TitleSuggestionID)
	assert.False(t, post.Posted)
	assert.Nil(t, post.DatePosted)

	system := strings.Join(h.agent.Calls[0].System, "\n")
	assert.Contains(t, system, "rocket engines")
	assert.NotContains(t, system, "space tourism")
	assert.Contains(t, system, "Plans and prices")

	var stored models.BlogPostTitleSuggestion
	require.NoError(t, h.db.First(&stored, "id = ?", suggestion.ID).Error)
	assert.Equal(t, suggestion.Title, stored.Title)
	assert.Equal(t, models.ScoreLiked, stored.UserScore)
}

func TestGenerateContent_QuotaAndEmptyAnswer(t *testing.T) {
	ctx := context.Background()

	t.Run("free ceiling", func(t *testing.T) {
		h := newHarness(t)
		_, project := h.project(t)
		for i := 0; i < 5; i++ {
			addPost(t, h.db, project)
		}
		suggestion := addSuggestion(t, h.db, project, "Title", models.ScoreNeutral)

		_, err := h.pipeline.GenerateContent(ctx, suggestion)
		assert.ErrorIs(t, err, ErrQuotaExceeded)
		assert.Empty(t, h.agent.Calls)
	})

	t.Run("empty content is not saved", func(t *testing.T) {
		h := newHarness(t)
		_, project := h.project(t)
		suggestion := addSuggestion(t, h.db, project, "Title", models.ScoreNeutral)
		h.agent.On("generate_content", llm.BlogPostContent{Slug: "title"})

		_, err := h.pipeline.GenerateContent(ctx, suggestion)
		assert.ErrorIs(t, err, ErrEmptyGeneration)

		var count int64
		h.db.Model(&models.GeneratedBlogPost{}).Count(&count)
		assert.Zero(t, count)
	})
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "hello-world", Slugify("Hello, World!"))
	assert.Equal(t, "already-a-slug", Slugify("already-a-slug"))
	assert.Equal(t, "", Slugify("!!!"))
}
