package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JobStatus is the lifecycle of a queued task
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Job is a persisted background task. Workers pick pending jobs whose RunAt
// has passed and hide them until LockedUntil while they run.
type Job struct {
	ID          uuid.UUID      `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	Name        string         `json:"name" db:"name" gorm:"size:128;not null;index"`
	Group       string         `json:"group" db:"group" gorm:"column:task_group;size:128;index"`
	Payload     datatypes.JSON `json:"payload" db:"payload"`
	Status      JobStatus      `json:"status" db:"status" gorm:"size:16;not null;default:pending;index:idx_jobs_status_run_at,priority:1"`
	RunAt       time.Time      `json:"run_at" db:"run_at" gorm:"not null;index:idx_jobs_status_run_at,priority:2"`
	LockedUntil *time.Time     `json:"locked_until" db:"locked_until"`
	Attempts    int            `json:"attempts" db:"attempts" gorm:"default:0"`
	LastError   string         `json:"last_error" db:"last_error" gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for the Job model
func (Job) TableName() string {
	return "jobs"
}

// BeforeCreate fills the primary key
func (j *Job) BeforeCreate(tx *gorm.DB) error {
	ensureID(&j.ID)
	if j.Status == "" {
		j.Status = JobPending
	}
	return nil
}
