package submission

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"autoblog/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   [][]byte
}

func (c *captured) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func endpoint(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.requests = append(c.requests, r)
		c.bodies = append(c.bodies, body)
		c.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func TestSubmit_Success(t *testing.T) {
	f := newFixture(t)
	srv, got := endpoint(t, http.StatusCreated)
	f.setting(t, srv.URL,
		`{"Authorization": "Bearer secret", "X-Slug": "{{ slug }}"}`,
		`{"title": "{{ title.title }}", "content": "{{ content }}", "meta": {"tags": ["{{ tags }}"]}, "unknown": "{{ nope }}"}`)
	post := f.post(t, validContent)

	s := NewSubmitter(f.db, nil, nil)
	require.True(t, s.Submit(context.Background(), post))

	require.Equal(t, 1, got.count())
	req := got.requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "Bearer secret", req.Header.Get("Authorization"))
	assert.Equal(t, post.Slug, req.Header.Get("X-Slug"))
	assert.Empty(t, req.Header.Get("Cookie"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(got.bodies[0], &body))
	assert.Equal(t, "How We Built A Rocket", body["title"])
	assert.Equal(t, validContent, body["content"])
	assert.Equal(t, "{{ nope }}", body["unknown"])
	assert.Equal(t, []any{"rockets,engineering"}, body["meta"].(map[string]any)["tags"])

	var stored models.GeneratedBlogPost
	require.NoError(t, f.db.First(&stored, "id = ?", post.ID).Error)
	assert.False(t, stored.Posted, "Submit leaves marking to the caller")
}

func TestSubmit_KeepsTemplateContentType(t *testing.T) {
	f := newFixture(t)
	srv, got := endpoint(t, http.StatusOK)
	f.setting(t, srv.URL, `{"content-type": "application/vnd.blog+json"}`, `{"slug": "{{ slug }}"}`)

	s := NewSubmitter(f.db, nil, nil)
	require.True(t, s.Submit(context.Background(), f.post(t, validContent)))
	assert.Equal(t, "application/vnd.blog+json", got.requests[0].Header.Get("Content-Type"))
}

func TestSubmit_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("non 2xx", func(t *testing.T) {
		f := newFixture(t)
		srv, got := endpoint(t, http.StatusInternalServerError)
		f.setting(t, srv.URL, `{}`, `{}`)

		assert.False(t, NewSubmitter(f.db, nil, nil).Submit(ctx, f.post(t, validContent)))
		assert.Equal(t, 1, got.count())
	})

	t.Run("redirect is not followed into success", func(t *testing.T) {
		f := newFixture(t)
		var landed atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("/posts", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/login", http.StatusFound)
		})
		mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
			landed.Add(1)
			w.WriteHeader(http.StatusOK)
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()
		f.setting(t, srv.URL+"/posts", `{}`, `{}`)

		assert.False(t, NewSubmitter(f.db, nil, nil).Submit(ctx, f.post(t, validContent)))
		assert.Zero(t, landed.Load(), "redirect target is never requested")
	})

	t.Run("not modified", func(t *testing.T) {
		f := newFixture(t)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotModified)
		}))
		defer srv.Close()
		f.setting(t, srv.URL, `{}`, `{}`)

		assert.False(t, NewSubmitter(f.db, nil, nil).Submit(ctx, f.post(t, validContent)))
	})

	t.Run("no setting", func(t *testing.T) {
		f := newFixture(t)
		assert.False(t, NewSubmitter(f.db, nil, nil).Submit(ctx, f.post(t, validContent)))
	})

	t.Run("empty endpoint", func(t *testing.T) {
		f := newFixture(t)
		f.setting(t, "", `{}`, `{}`)
		assert.False(t, NewSubmitter(f.db, nil, nil).Submit(ctx, f.post(t, validContent)))
	})

	t.Run("broken template", func(t *testing.T) {
		f := newFixture(t)
		srv, got := endpoint(t, http.StatusOK)
		f.setting(t, srv.URL, `["x"]`, `{}`)
		assert.False(t, NewSubmitter(f.db, nil, nil).Submit(ctx, f.post(t, validContent)))
		assert.Zero(t, got.count())
	})

	t.Run("unreachable endpoint", func(t *testing.T) {
		f := newFixture(t)
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		f.setting(t, url, `{}`, `{}`)
		assert.False(t, NewSubmitter(f.db, nil, nil).Submit(ctx, f.post(t, validContent)))
	})
}

func TestSubmit_UsesLatestSetting(t *testing.T) {
	f := newFixture(t)
	oldSrv, oldGot := endpoint(t, http.StatusOK)
	newSrv, newGot := endpoint(t, http.StatusOK)

	old := f.setting(t, oldSrv.URL, `{}`, `{}`)
	require.NoError(t, f.db.Model(old).Update("created_at", time.Now().Add(-time.Hour)).Error)
	f.setting(t, newSrv.URL, `{}`, `{}`)

	require.True(t, NewSubmitter(f.db, nil, nil).Submit(context.Background(), f.post(t, validContent)))
	assert.Zero(t, oldGot.count())
	assert.Equal(t, 1, newGot.count())
}

func TestHandleSubmitJob(t *testing.T) {
	ctx := context.Background()
	posted := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	payloadFor := func(post *models.GeneratedBlogPost) []byte {
		raw, err := json.Marshal(SubmitPayload{PostID: post.ID, ProjectID: post.ProjectID})
		require.NoError(t, err)
		return raw
	}

	t.Run("success marks the post and releases the claim", func(t *testing.T) {
		f := newFixture(t)
		srv, _ := endpoint(t, http.StatusOK)
		f.setting(t, srv.URL, `{}`, `{"slug": "{{ slug }}"}`)
		post := f.post(t, validContent)

		claimed, err := ClaimProject(ctx, f.db, f.project.ID, time.Now(), time.Hour)
		require.NoError(t, err)
		require.True(t, claimed)

		s := NewSubmitter(f.db, nil, nil)
		s.now = func() time.Time { return posted }
		require.NoError(t, s.HandleSubmitJob(ctx, payloadFor(post)))

		var stored models.GeneratedBlogPost
		require.NoError(t, f.db.First(&stored, "id = ?", post.ID).Error)
		assert.True(t, stored.Posted)
		require.NotNil(t, stored.DatePosted)
		assert.True(t, posted.Equal(*stored.DatePosted))

		var project models.Project
		require.NoError(t, f.db.First(&project, "id = ?", f.project.ID).Error)
		assert.Nil(t, project.SubmissionLockedUntil)
	})

	t.Run("validator rejection leaves the post unposted with no request", func(t *testing.T) {
		f := newFixture(t)
		srv, got := endpoint(t, http.StatusOK)
		f.setting(t, srv.URL, `{}`, `{}`)
		post := f.post(t, "# Starts with a heading\n\n"+validContent)

		claimed, err := ClaimProject(ctx, f.db, f.project.ID, time.Now(), time.Hour)
		require.NoError(t, err)
		require.True(t, claimed)

		require.NoError(t, NewSubmitter(f.db, nil, nil).HandleSubmitJob(ctx, payloadFor(post)))

		assert.Zero(t, got.count())
		var stored models.GeneratedBlogPost
		require.NoError(t, f.db.First(&stored, "id = ?", post.ID).Error)
		assert.False(t, stored.Posted)
		assert.Nil(t, stored.DatePosted)

		var project models.Project
		require.NoError(t, f.db.First(&project, "id = ?", f.project.ID).Error)
		assert.Nil(t, project.SubmissionLockedUntil)
	})

	t.Run("already posted is skipped", func(t *testing.T) {
		f := newFixture(t)
		srv, got := endpoint(t, http.StatusOK)
		f.setting(t, srv.URL, `{}`, `{}`)
		post := f.post(t, validContent)
		require.NoError(t, f.db.Model(post).Update("posted", true).Error)

		require.NoError(t, NewSubmitter(f.db, nil, nil).HandleSubmitJob(ctx, payloadFor(post)))
		assert.Zero(t, got.count())
	})

	t.Run("custom validator", func(t *testing.T) {
		f := newFixture(t)
		srv, got := endpoint(t, http.StatusOK)
		f.setting(t, srv.URL, `{}`, `{}`)
		post := f.post(t, validContent)

		reject := func(*models.GeneratedBlogPost) (bool, string) { return false, "nope" }
		require.NoError(t, NewSubmitter(f.db, reject, nil).HandleSubmitJob(ctx, payloadFor(post)))
		assert.Zero(t, got.count())
	})
}

func TestClaimProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()

	ok, err := ClaimProject(ctx, f.db, f.project.ID, now, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ClaimProject(ctx, f.db, f.project.ID, now.Add(time.Minute), time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "a live claim blocks a second one")

	ok, err = ClaimProject(ctx, f.db, f.project.ID, now.Add(2*time.Hour), time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "an expired claim can be taken over")

	require.NoError(t, ReleaseProject(ctx, f.db, f.project.ID))
	ok, err = ClaimProject(ctx, f.db, f.project.ID, now, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}
