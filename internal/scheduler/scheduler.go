package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autoblog/internal/metrics"
	"autoblog/internal/models"
	"autoblog/internal/pipeline"
	"autoblog/internal/queue"
	"autoblog/internal/submission"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultLockTTL bounds how long a claimed project stays in flight after its
// submission job was due and never finished
const DefaultLockTTL = 24 * time.Hour

// Outcomes of one project in one run
const (
	OutcomeNotDue    = "not_due"
	OutcomeNoPosts   = "no_posts"
	OutcomeInFlight  = "in_flight"
	OutcomeQuota     = "quota_exceeded"
	OutcomeScheduled = "scheduled"
	OutcomeDue       = "due"
	OutcomeError     = "error"
)

// Selector picks the post a due project publishes
type Selector interface {
	SelectOrGenerate(ctx context.Context, project *models.Project) (*models.GeneratedBlogPost, error)
}

// ProjectResult is what happened to one project
type ProjectResult struct {
	ProjectID uuid.UUID  `json:"project_id"`
	Name      string     `json:"name"`
	NextTime  *time.Time `json:"next_time,omitempty"`
	PostID    *uuid.UUID `json:"post_id,omitempty"`
	Outcome   string     `json:"outcome"`
	Error     string     `json:"error,omitempty"`
}

// Summary reports one scheduler run
type Summary struct {
	Checked   int             `json:"checked"`
	Due       int             `json:"due"`
	Scheduled int             `json:"scheduled"`
	Skipped   int             `json:"skipped"`
	Errors    int             `json:"errors"`
	DryRun    bool            `json:"dry_run"`
	Projects  []ProjectResult `json:"projects"`
}

func (s *Summary) add(r ProjectResult) {
	s.Projects = append(s.Projects, r)
	metrics.SchedulerProjectsTotal.WithLabelValues(r.Outcome).Inc()
	switch r.Outcome {
	case OutcomeScheduled:
		s.Due++
		s.Scheduled++
	case OutcomeDue:
		s.Due++
	case OutcomeInFlight, OutcomeQuota:
		s.Due++
		s.Skipped++
	case OutcomeNoPosts:
		s.Skipped++
	case OutcomeError:
		s.Errors++
	}
}

// Scheduler finds auto-submitting projects that are due and schedules their
// next submission
type Scheduler struct {
	db       *gorm.DB
	selector Selector
	queue    queue.Enqueuer
	log      *zap.Logger
	now      func() time.Time
	lockTTL  time.Duration
}

// New creates a scheduler
func New(db *gorm.DB, selector Selector, q queue.Enqueuer, lockTTL time.Duration, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	return &Scheduler{db: db, selector: selector, queue: q, log: log, now: time.Now, lockTTL: lockTTL}
}

// CheckAndScheduleBlogPosts evaluates every auto-submitting project once.
// A failing project is recorded in the summary and never stops the run.
func (s *Scheduler) CheckAndScheduleBlogPosts(ctx context.Context) (Summary, error) {
	return s.run(ctx, false)
}

// DryRun reports which projects are due without claiming or enqueuing
func (s *Scheduler) DryRun(ctx context.Context) (Summary, error) {
	return s.run(ctx, true)
}

func (s *Scheduler) run(ctx context.Context, dryRun bool) (Summary, error) {
	summary := Summary{DryRun: dryRun, Projects: []ProjectResult{}}
	metrics.SchedulerTicksTotal.Inc()

	var projects []models.Project
	err := s.db.WithContext(ctx).
		Where("enable_automatic_post_submission = ?", true).
		Where("EXISTS (SELECT 1 FROM auto_submission_settings s WHERE s.project_id = projects.id)").
		Order("created_at ASC").
		Find(&projects).Error
	if err != nil {
		return summary, eris.Wrap(err, "failed to load auto-submitting projects")
	}

	now := s.now()
	for i := range projects {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		summary.Checked++
		summary.add(s.evaluate(ctx, &projects[i], now, dryRun))
	}

	s.log.Info("cadence run finished",
		zap.Bool("dry_run", dryRun),
		zap.Int("checked", summary.Checked),
		zap.Int("due", summary.Due),
		zap.Int("scheduled", summary.Scheduled),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errors", summary.Errors))
	return summary, nil
}

func (s *Scheduler) evaluate(ctx context.Context, project *models.Project, now time.Time, dryRun bool) (result ProjectResult) {
	result = ProjectResult{ProjectID: project.ID, Name: project.Name}
	log := s.log.With(zap.String("project_id", project.ID.String()))
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while scheduling project", zap.Any("panic", r))
			result.Outcome = OutcomeError
			result.Error = fmt.Sprintf("panic: %v", r)
		}
	}()
	fail := func(err error) ProjectResult {
		log.Error("failed to schedule project", zap.Error(err))
		result.Outcome = OutcomeError
		result.Error = err.Error()
		return result
	}

	var posts int64
	if err := s.db.WithContext(ctx).Model(&models.GeneratedBlogPost{}).Where("project_id = ?", project.ID).Count(&posts).Error; err != nil {
		return fail(eris.Wrap(err, "failed to count posts"))
	}
	if posts == 0 {
		result.Outcome = OutcomeNoPosts
		return result
	}

	setting, err := submission.LatestSetting(ctx, s.db, project.ID)
	if err != nil {
		return fail(err)
	}
	lastPosted, err := s.lastPosted(ctx, project.ID)
	if err != nil {
		return fail(err)
	}

	loc, ok := ResolveLocation(setting.PreferredTimezone)
	if !ok {
		log.Warn("invalid preferred time zone, using UTC", zap.String("timezone", *setting.PreferredTimezone))
	}
	var preferred *TimeOfDay
	if setting.PreferredTime != nil && *setting.PreferredTime != "" {
		tod, err := ParseTimeOfDay(*setting.PreferredTime)
		if err != nil {
			log.Warn("invalid preferred time, ignoring it", zap.String("preferred_time", *setting.PreferredTime))
		} else {
			preferred = &tod
		}
	}

	// A project that never posted is due right away; its first submission
	// still waits for next_time through the job's run time.
	next := NextPostTime(now, lastPosted, setting.PostsPerMonth, loc, preferred)
	result.NextTime = &next
	if lastPosted != nil && now.Before(next) {
		result.Outcome = OutcomeNotDue
		return result
	}
	if dryRun {
		result.Outcome = OutcomeDue
		return result
	}

	ttl := s.lockTTL
	if next.After(now) {
		ttl += next.Sub(now)
	}
	claimed, err := submission.ClaimProject(ctx, s.db, project.ID, now, ttl)
	if err != nil {
		return fail(err)
	}
	if !claimed {
		log.Info("submission already in flight")
		result.Outcome = OutcomeInFlight
		return result
	}
	release := func() {
		if err := submission.ReleaseProject(context.WithoutCancel(ctx), s.db, project.ID); err != nil {
			log.Error("failed to release submission claim", zap.Error(err))
		}
	}

	post, err := s.selector.SelectOrGenerate(ctx, project)
	if err != nil {
		release()
		if errors.Is(err, pipeline.ErrQuotaExceeded) {
			log.Info("content quota reached, not scheduling")
			result.Outcome = OutcomeQuota
			return result
		}
		return fail(eris.Wrap(err, "failed to select post"))
	}

	payload := submission.SubmitPayload{PostID: post.ID, ProjectID: project.ID}
	_, err = s.queue.Enqueue(ctx, submission.TaskSubmitBlogPost, payload,
		queue.RunAt(next), queue.Group(submission.GroupSubmitBlogPost))
	if err != nil {
		release()
		return fail(eris.Wrap(err, "failed to enqueue submission"))
	}

	log.Info("submission scheduled", zap.String("post_id", post.ID.String()), zap.Time("run_at", next))
	result.PostID = &post.ID
	result.Outcome = OutcomeScheduled
	return result
}

func (s *Scheduler) lastPosted(ctx context.Context, projectID uuid.UUID) (*time.Time, error) {
	var post models.GeneratedBlogPost
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND posted = ? AND date_posted IS NOT NULL", projectID, true).
		Order("date_posted DESC").
		First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "failed to load last posted date")
	}
	return post.DatePosted, nil
}
