package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"autoblog/internal/llm"
	"autoblog/internal/models"
	"autoblog/internal/progress"
	"autoblog/internal/queue"
	"autoblog/internal/scraper"
	"autoblog/internal/services"
	"autoblog/internal/testdb"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]*scraper.Page
	errs  map[string]error
	calls []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: map[string]*scraper.Page{}, errs: map[string]error{}}
}

func (f *fakeFetcher) add(url, title, markdown string) {
	f.pages[url] = &scraper.Page{URL: url, Title: title, Description: title + " description", Markdown: markdown}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*scraper.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	page, ok := f.pages[url]
	if !ok {
		return nil, scraper.ErrEmptyContent
	}
	copied := *page
	return &copied, nil
}

func (f *fakeFetcher) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == url {
			n++
		}
	}
	return n
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []progress.Event
}

func (r *recordingPublisher) Publish(e progress.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

type harness struct {
	db        *gorm.DB
	agent     *llm.Fake
	search    *llm.Fake
	fetcher   *fakeFetcher
	queue     *queue.Recorder
	states    *services.ProfileStateService
	publisher *recordingPublisher
	pipeline  *Pipeline
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testdb.New(t)
	h := &harness{
		db:        db,
		agent:     llm.NewFake(),
		search:    llm.NewFake(),
		fetcher:   newFakeFetcher(),
		queue:     &queue.Recorder{},
		publisher: &recordingPublisher{},
	}
	h.states = services.NewProfileStateService(db, h.queue, nil)
	h.pipeline = New(Deps{
		DB:              db,
		Scraper:         h.fetcher,
		Agent:           h.agent,
		Search:          h.search,
		Queue:           h.queue,
		Quota:           services.NewQuotaGate(db, h.states),
		Publisher:       h.publisher,
		Now:             func() time.Time { return fixedNow },
		PickContentType: func() models.ContentType { return models.ContentTypeSEO },
	})
	return h
}

func (h *harness) project(t *testing.T) (*models.Profile, *models.Project) {
	t.Helper()
	profile := testdb.CreateProfile(t, h.db, models.StateSignedUp)
	return profile, testdb.CreateProject(t, h.db, profile)
}

func (h *harness) subscribe(t *testing.T, profile *models.Profile) {
	t.Helper()
	if _, err := h.states.Transition(context.Background(), profile.ID, models.StateSubscribed, nil); err != nil {
		t.Fatalf("Failed to subscribe profile: %v", err)
	}
}

func addSuggestion(t *testing.T, db *gorm.DB, project *models.Project, title string, score models.UserScore) *models.BlogPostTitleSuggestion {
	t.Helper()
	s := &models.BlogPostTitleSuggestion{
		ProjectID:   project.ID,
		Title:       title,
		ContentType: models.ContentTypeSharing,
		UserScore:   score,
	}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("Failed to create suggestion: %v", err)
	}
	return s
}

func addPost(t *testing.T, db *gorm.DB, project *models.Project) *models.GeneratedBlogPost {
	t.Helper()
	p := &models.GeneratedBlogPost{ProjectID: project.ID, Slug: "post-" + uuid.NewString()[:8], Content: "body"}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}
	return p
}
