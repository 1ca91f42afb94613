package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AutoSubmissionSetting describes where and how often generated posts of a
// project are published. The most recently created row is authoritative.
type AutoSubmissionSetting struct {
	ID          uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	ProjectID   uuid.UUID `json:"project_id" db:"project_id" gorm:"type:uuid;not null;index:idx_submission_settings_project_created,priority:1"`
	EndpointURL string    `json:"endpoint_url" db:"endpoint_url" gorm:"size:500"`
	// Header is a JSON object of header name to template string
	Header datatypes.JSON `json:"header" db:"header"`
	// Body is any JSON value; string leaves are templates
	Body              datatypes.JSON `json:"body" db:"body"`
	PostsPerMonth     int            `json:"posts_per_month" db:"posts_per_month" gorm:"not null;default:1"`
	PreferredTimezone *string        `json:"preferred_timezone" db:"preferred_timezone" gorm:"size:64"`
	// HH:MM or HH:MM:SS in the preferred time zone
	PreferredTime *string   `json:"preferred_time" db:"preferred_time" gorm:"size:8"`
	CreatedAt     time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime;index:idx_submission_settings_project_created,priority:2"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for the AutoSubmissionSetting model
func (AutoSubmissionSetting) TableName() string {
	return "auto_submission_settings"
}

// BeforeCreate fills the primary key
func (s *AutoSubmissionSetting) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	if s.PostsPerMonth <= 0 {
		s.PostsPerMonth = 1
	}
	return nil
}
