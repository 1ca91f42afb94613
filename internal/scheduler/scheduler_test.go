package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"autoblog/internal/config"
	"autoblog/internal/models"
	"autoblog/internal/pipeline"
	"autoblog/internal/queue"
	"autoblog/internal/submission"
	"autoblog/internal/testdb"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var now = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

// fakeSelector returns the project's oldest unposted post
type fakeSelector struct {
	db    *gorm.DB
	mu    sync.Mutex
	calls []uuid.UUID
	errs  map[uuid.UUID]error
}

func (f *fakeSelector) SelectOrGenerate(_ context.Context, project *models.Project) (*models.GeneratedBlogPost, error) {
	f.mu.Lock()
	f.calls = append(f.calls, project.ID)
	err := f.errs[project.ID]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var post models.GeneratedBlogPost
	if err := f.db.Where("project_id = ? AND posted = ?", project.ID, false).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

type env struct {
	db        *gorm.DB
	queue     *queue.Recorder
	selector  *fakeSelector
	scheduler *Scheduler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testdb.New(t)
	e := &env{db: db, queue: &queue.Recorder{}}
	e.selector = &fakeSelector{db: db, errs: map[uuid.UUID]error{}}
	e.scheduler = New(db, e.selector, e.queue, time.Hour, nil)
	e.scheduler.now = func() time.Time { return now }
	return e
}

type projectOpts struct {
	enabled    bool
	setting    *models.AutoSubmissionSetting
	lastPosted *time.Time
	unposted   int
}

func (e *env) project(t *testing.T, opts projectOpts) *models.Project {
	t.Helper()
	profile := testdb.CreateProfile(t, e.db, models.StateSubscribed)
	project := testdb.CreateProject(t, e.db, profile)
	require.NoError(t, e.db.Model(project).Update("enable_automatic_post_submission", opts.enabled).Error)

	if opts.setting != nil {
		opts.setting.ProjectID = project.ID
		if opts.setting.EndpointURL == "" {
			opts.setting.EndpointURL = "https://blog.example.com/api/posts"
		}
		require.NoError(t, e.db.Create(opts.setting).Error)
	}
	if opts.lastPosted != nil {
		post := &models.GeneratedBlogPost{ProjectID: project.ID, Slug: "sent", Content: "body"}
		require.NoError(t, e.db.Create(post).Error)
		require.NoError(t, e.db.Model(post).Updates(map[string]interface{}{"posted": true, "date_posted": *opts.lastPosted}).Error)
	}
	for i := 0; i < opts.unposted; i++ {
		post := &models.GeneratedBlogPost{ProjectID: project.ID, Slug: fmt.Sprintf("draft-%d", i), Content: "body"}
		require.NoError(t, e.db.Create(post).Error)
	}
	return project
}

func daysAgo(n int) *time.Time {
	t := now.AddDate(0, 0, -n)
	return &t
}

func (e *env) lockedUntil(t *testing.T, project *models.Project) *time.Time {
	t.Helper()
	var stored models.Project
	require.NoError(t, e.db.First(&stored, "id = ?", project.ID).Error)
	return stored.SubmissionLockedUntil
}

func TestCheckAndSchedule_DueProjectIsScheduled(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	project := e.project(t, projectOpts{
		enabled:    true,
		setting:    &models.AutoSubmissionSetting{PostsPerMonth: 2},
		lastPosted: daysAgo(20),
		unposted:   1,
	})

	summary, err := e.scheduler.CheckAndScheduleBlogPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Checked)
	assert.Equal(t, 1, summary.Due)
	assert.Equal(t, 1, summary.Scheduled)
	assert.Zero(t, summary.Errors)

	calls := e.queue.Find(submission.TaskSubmitBlogPost)
	require.Len(t, calls, 1)
	assert.Equal(t, submission.GroupSubmitBlogPost, calls[0].Group)
	require.NotNil(t, calls[0].RunAt)
	assert.True(t, calls[0].RunAt.Equal(daysAgo(20).Add(15*24*time.Hour)), "runs at next_time, not now")

	payload := calls[0].Payload.(submission.SubmitPayload)
	assert.Equal(t, project.ID, payload.ProjectID)
	assert.Equal(t, *summary.Projects[0].PostID, payload.PostID)

	assert.NotNil(t, e.lockedUntil(t, project), "project stays claimed until the job runs")

	t.Run("a second tick does not schedule twice", func(t *testing.T) {
		summary, err := e.scheduler.CheckAndScheduleBlogPosts(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Skipped)
		assert.Equal(t, OutcomeInFlight, summary.Projects[0].Outcome)
		assert.Len(t, e.queue.Find(submission.TaskSubmitBlogPost), 1)
	})
}

func TestCheckAndSchedule_FirstPost(t *testing.T) {
	ctx := context.Background()
	nine := "09:00"

	tests := []struct {
		name      string
		preferred *string
		runAt     time.Time
	}{
		{name: "without a preferred time", runAt: now.Add(FirstPostDelay)},
		{name: "preferred time already passed today", preferred: &nine, runAt: time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.scheduler.now = func() time.Time { return now.Add(123 * time.Nanosecond) }
			project := e.project(t, projectOpts{
				enabled:  true,
				setting:  &models.AutoSubmissionSetting{PostsPerMonth: 4, PreferredTime: tt.preferred},
				unposted: 1,
			})

			summary, err := e.scheduler.CheckAndScheduleBlogPosts(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, summary.Due)
			assert.Equal(t, 1, summary.Scheduled)
			assert.Equal(t, OutcomeScheduled, summary.Projects[0].Outcome)

			calls := e.queue.Find(submission.TaskSubmitBlogPost)
			require.Len(t, calls, 1)
			require.NotNil(t, calls[0].RunAt)
			assert.WithinDuration(t, tt.runAt, *calls[0].RunAt, time.Second, "first post waits for next_time")

			locked := e.lockedUntil(t, project)
			require.NotNil(t, locked)
			assert.True(t, locked.After(*calls[0].RunAt), "claim outlasts the delayed run")

			e.scheduler.now = func() time.Time { return now.Add(30 * time.Minute) }
			summary, err = e.scheduler.CheckAndScheduleBlogPosts(ctx)
			require.NoError(t, err)
			assert.Equal(t, OutcomeInFlight, summary.Projects[0].Outcome)
			assert.Len(t, e.queue.Find(submission.TaskSubmitBlogPost), 1)
		})
	}
}

func TestDefaultLockTTLMatchesConfig(t *testing.T) {
	assert.Equal(t, config.Default().Scheduler.SubmissionLockTTL, DefaultLockTTL)
}

func TestCheckAndSchedule_Filters(t *testing.T) {
	e := newEnv(t)

	e.project(t, projectOpts{enabled: false, setting: &models.AutoSubmissionSetting{}, unposted: 1})
	e.project(t, projectOpts{enabled: true, unposted: 1})
	noPosts := e.project(t, projectOpts{enabled: true, setting: &models.AutoSubmissionSetting{}})
	notDue := e.project(t, projectOpts{
		enabled:    true,
		setting:    &models.AutoSubmissionSetting{PostsPerMonth: 1},
		lastPosted: daysAgo(3),
		unposted:   1,
	})

	summary, err := e.scheduler.CheckAndScheduleBlogPosts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Checked)
	assert.Zero(t, summary.Due)
	assert.Equal(t, 1, summary.Skipped)
	assert.Empty(t, e.queue.Calls)
	assert.Empty(t, e.selector.calls)

	outcomes := map[uuid.UUID]string{}
	for _, p := range summary.Projects {
		outcomes[p.ProjectID] = p.Outcome
	}
	assert.Equal(t, OutcomeNoPosts, outcomes[noPosts.ID])
	assert.Equal(t, OutcomeNotDue, outcomes[notDue.ID])
}

func TestCheckAndSchedule_LatestSettingWins(t *testing.T) {
	e := newEnv(t)
	project := e.project(t, projectOpts{
		enabled:    true,
		setting:    &models.AutoSubmissionSetting{PostsPerMonth: 30},
		lastPosted: daysAgo(5),
		unposted:   1,
	})
	var old models.AutoSubmissionSetting
	require.NoError(t, e.db.First(&old, "project_id = ?", project.ID).Error)
	require.NoError(t, e.db.Model(&old).Update("created_at", now.Add(-time.Hour)).Error)
	require.NoError(t, e.db.Create(&models.AutoSubmissionSetting{
		ProjectID: project.ID, EndpointURL: "https://blog.example.com", PostsPerMonth: 1,
	}).Error)

	summary, err := e.scheduler.CheckAndScheduleBlogPosts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotDue, summary.Projects[0].Outcome)
}

func TestCheckAndSchedule_ErrorsAreContained(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	dueOpts := func() projectOpts {
		return projectOpts{
			enabled:    true,
			setting:    &models.AutoSubmissionSetting{PostsPerMonth: 1},
			lastPosted: daysAgo(40),
			unposted:   1,
		}
	}
	broken := e.project(t, dueOpts())
	quota := e.project(t, dueOpts())
	healthy := e.project(t, dueOpts())
	e.selector.errs[broken.ID] = errors.New("model down")
	e.selector.errs[quota.ID] = pipeline.ErrQuotaExceeded

	summary, err := e.scheduler.CheckAndScheduleBlogPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Checked)
	assert.Equal(t, 2, summary.Due)
	assert.Equal(t, 1, summary.Scheduled)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Errors)

	calls := e.queue.Find(submission.TaskSubmitBlogPost)
	require.Len(t, calls, 1)
	assert.Equal(t, healthy.ID, calls[0].Payload.(submission.SubmitPayload).ProjectID)

	assert.Nil(t, e.lockedUntil(t, broken), "claim is released after a failure")
	assert.Nil(t, e.lockedUntil(t, quota))
	assert.NotNil(t, e.lockedUntil(t, healthy))

	t.Run("enqueue failures release the claim", func(t *testing.T) {
		e := newEnv(t)
		project := e.project(t, dueOpts())
		e.queue.Err = errors.New("queue down")

		summary, err := e.scheduler.CheckAndScheduleBlogPosts(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Errors)
		assert.Nil(t, e.lockedUntil(t, project))
	})
}

func TestCheckAndSchedule_BadTimezoneFallsBackToUTC(t *testing.T) {
	e := newEnv(t)
	tz := "Mars/Olympus_Mons"
	at := "09:00"
	e.project(t, projectOpts{
		enabled:    true,
		setting:    &models.AutoSubmissionSetting{PostsPerMonth: 1, PreferredTimezone: &tz, PreferredTime: &at},
		lastPosted: daysAgo(31),
		unposted:   1,
	})

	summary, err := e.scheduler.CheckAndScheduleBlogPosts(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Scheduled)
	want := time.Date(now.AddDate(0, 0, -1).Year(), now.AddDate(0, 0, -1).Month(), now.AddDate(0, 0, -1).Day(), 9, 0, 0, 0, time.UTC)
	assert.True(t, summary.Projects[0].NextTime.Equal(want), summary.Projects[0].NextTime)
}

func TestDryRun(t *testing.T) {
	e := newEnv(t)
	project := e.project(t, projectOpts{
		enabled:    true,
		setting:    &models.AutoSubmissionSetting{PostsPerMonth: 1},
		lastPosted: daysAgo(40),
		unposted:   1,
	})

	summary, err := e.scheduler.DryRun(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.DryRun)
	assert.Equal(t, 1, summary.Due)
	assert.Zero(t, summary.Scheduled)
	assert.Equal(t, OutcomeDue, summary.Projects[0].Outcome)
	assert.Empty(t, e.queue.Calls)
	assert.Empty(t, e.selector.calls)
	assert.Nil(t, e.lockedUntil(t, project))
}

func TestRegisterHandlers(t *testing.T) {
	e := newEnv(t)
	handlers := map[string]queue.Handler{}
	e.scheduler.RegisterHandlers(registrarFunc(func(task string, h queue.Handler) { handlers[task] = h }))

	require.Contains(t, handlers, TaskCheckAndSchedule)
	assert.NoError(t, handlers[TaskCheckAndSchedule](context.Background(), nil))
}

type registrarFunc func(task string, h queue.Handler)

func (f registrarFunc) Register(task string, h queue.Handler) { f(task, h) }

func TestWorker_RunsImmediately(t *testing.T) {
	e := newEnv(t)
	w := NewWorker(e.scheduler, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()

	require.Eventually(t, func() bool { return w.LastSummary() != nil }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, w.LastSummary().Checked)
	assert.False(t, w.LastRun().IsZero())

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not return after cancellation")
	}
}
