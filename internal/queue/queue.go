// Package queue is a small persisted task queue on top of gorm. Jobs are rows
// in the jobs table; workers claim due rows with a conditional UPDATE and keep
// them invisible to other workers until the claim expires.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"autoblog/internal/metrics"
	"autoblog/internal/models"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrUnknownTask is returned when a job names a task with no registered handler
var ErrUnknownTask = errors.New("unknown task")

// Enqueuer schedules background work. Request handlers and the scheduler only
// ever depend on this interface.
type Enqueuer interface {
	Enqueue(ctx context.Context, task string, payload any, opts ...Option) (uuid.UUID, error)
}

type enqueueOptions struct {
	runAt *time.Time
	group string
}

// Option customizes a single Enqueue call
type Option func(*enqueueOptions)

// RunAt delays the job until t
func RunAt(t time.Time) Option {
	return func(o *enqueueOptions) { o.runAt = &t }
}

// Group tags the job with a group name for inspection
func Group(name string) Option {
	return func(o *enqueueOptions) { o.group = name }
}

// Queue stores jobs in the database
type Queue struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

var _ Enqueuer = (*Queue)(nil)

// New creates a queue backed by db
func New(db *gorm.DB, log *zap.Logger) *Queue {
	if log == nil {
		log = zap.NewNop()
	}
	return &Queue{db: db, log: log, now: time.Now}
}

// Enqueue persists a job. The payload is stored as JSON.
func (q *Queue) Enqueue(ctx context.Context, task string, payload any, opts ...Option) (uuid.UUID, error) {
	o := enqueueOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, eris.Wrapf(err, "marshal payload for %s", task)
	}

	runAt := q.now().UTC()
	if o.runAt != nil {
		runAt = o.runAt.UTC()
	}

	job := &models.Job{
		Name:    task,
		Group:   o.group,
		Payload: datatypes.JSON(raw),
		Status:  models.JobPending,
		RunAt:   runAt,
	}
	if err := q.db.WithContext(ctx).Create(job).Error; err != nil {
		return uuid.Nil, eris.Wrapf(err, "enqueue %s", task)
	}

	metrics.JobsEnqueuedTotal.WithLabelValues(task).Inc()
	q.log.Debug("job enqueued",
		zap.String("task", task),
		zap.String("job_id", job.ID.String()),
		zap.Time("run_at", runAt),
	)
	return job.ID, nil
}

// Claim picks the oldest due job and hides it for visibility. It returns
// nil, nil when nothing is due.
func (q *Queue) Claim(ctx context.Context, visibility time.Duration) (*models.Job, error) {
	db := q.db.WithContext(ctx)

	// Another worker may win the UPDATE race, so try a few candidates.
	for attempt := 0; attempt < 3; attempt++ {
		now := q.now().UTC()

		var candidate models.Job
		err := db.
			Where("(status = ? AND run_at <= ?) OR (status = ? AND locked_until < ?)",
				models.JobPending, now, models.JobRunning, now).
			Order("run_at ASC").
			Limit(1).
			Take(&candidate).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "find due job")
		}

		lockedUntil := now.Add(visibility)
		res := db.Model(&models.Job{}).
			Where("id = ? AND ((status = ? AND run_at <= ?) OR (status = ? AND locked_until < ?))",
				candidate.ID, models.JobPending, now, models.JobRunning, now).
			Updates(map[string]any{
				"status":       models.JobRunning,
				"locked_until": lockedUntil,
				"attempts":     gorm.Expr("attempts + 1"),
			})
		if res.Error != nil {
			return nil, eris.Wrap(res.Error, "claim job")
		}
		if res.RowsAffected == 1 {
			candidate.Status = models.JobRunning
			candidate.LockedUntil = &lockedUntil
			candidate.Attempts++
			return &candidate, nil
		}
	}
	return nil, nil
}

// Complete marks a claimed job as done
func (q *Queue) Complete(ctx context.Context, id uuid.UUID) error {
	err := q.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": models.JobDone, "locked_until": nil}).Error
	if err != nil {
		return eris.Wrap(err, "complete job")
	}
	return nil
}

// Fail marks a claimed job as failed. Failed jobs are not retried; the
// backfill commands re-run the stage instead.
func (q *Queue) Fail(ctx context.Context, id uuid.UUID, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	err := q.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": models.JobFailed, "locked_until": nil, "last_error": msg}).Error
	if err != nil {
		return eris.Wrap(err, "fail job")
	}
	return nil
}

// Pending counts jobs that have not run yet, optionally for one task
func (q *Queue) Pending(ctx context.Context, task string) (int64, error) {
	var count int64
	db := q.db.WithContext(ctx).Model(&models.Job{}).Where("status = ?", models.JobPending)
	if task != "" {
		db = db.Where("name = ?", task)
	}
	if err := db.Count(&count).Error; err != nil {
		return 0, eris.Wrap(err, "count pending jobs")
	}
	return count, nil
}

// Decode unmarshals a job payload into v
func Decode(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return eris.Wrap(err, "decode job payload")
	}
	return nil
}
