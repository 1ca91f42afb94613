package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProfileState is a step in the subscription lifecycle of a profile
type ProfileState string

const (
	StateStranger       ProfileState = "stranger"
	StateSignedUp       ProfileState = "signed_up"
	StateSubscribed     ProfileState = "subscribed"
	StateCancelled      ProfileState = "cancelled"
	StateChurned        ProfileState = "churned"
	StateAccountDeleted ProfileState = "account_deleted"
)

// Valid reports whether s is one of the known lifecycle states
func (s ProfileState) Valid() bool {
	switch s {
	case StateStranger, StateSignedUp, StateSubscribed, StateCancelled, StateChurned, StateAccountDeleted:
		return true
	}
	return false
}

// Entitled reports whether the state unlocks the paid ceilings.
// Cancelled keeps the entitlement until a churned transition is recorded.
func (s ProfileState) Entitled() bool {
	return s == StateSubscribed || s == StateCancelled
}

// Profile owns projects and carries the cached lifecycle state
type Profile struct {
	ID                   uuid.UUID    `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	Key                  string       `json:"key" db:"key" gorm:"uniqueIndex;size:10"`
	Email                string       `json:"email" db:"email" gorm:"index"`
	IsSuperuser          bool         `json:"is_superuser" db:"is_superuser" gorm:"default:false"`
	ExperimentalFeatures bool         `json:"experimental_features" db:"experimental_features" gorm:"default:false"`
	State                ProfileState `json:"state" db:"state" gorm:"size:32;default:stranger"`
	CreatedAt            time.Time    `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt            time.Time    `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Projects    []Project                `json:"projects,omitempty" gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE"`
	Transitions []ProfileStateTransition `json:"-" gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE"`
}

// TableName sets the table name for the Profile model
func (Profile) TableName() string {
	return "profiles"
}

// BeforeCreate fills the primary key and the public key
func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	if p.Key == "" {
		p.Key = randomKey(10)
	}
	if p.State == "" {
		p.State = StateStranger
	}
	return nil
}

// ProfileStateTransition is one append-only entry of a profile's lifecycle log
type ProfileStateTransition struct {
	ID        uuid.UUID      `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	ProfileID uuid.UUID      `json:"profile_id" db:"profile_id" gorm:"type:uuid;not null;index:idx_transitions_profile_created,priority:1;uniqueIndex:idx_transitions_profile_seq,priority:1"`
	Seq       int64          `json:"seq" db:"seq" gorm:"not null;default:0;uniqueIndex:idx_transitions_profile_seq,priority:2"`
	FromState ProfileState   `json:"from_state" db:"from_state" gorm:"size:32"`
	ToState   ProfileState   `json:"to_state" db:"to_state" gorm:"size:32;not null"`
	Metadata  datatypes.JSON `json:"metadata" db:"metadata"`
	CreatedAt time.Time      `json:"created_at" db:"created_at" gorm:"autoCreateTime;index:idx_transitions_profile_created,priority:2"`
}

// TableName sets the table name for the ProfileStateTransition model
func (ProfileStateTransition) TableName() string {
	return "profile_state_transitions"
}

// BeforeCreate fills the primary key
func (t *ProfileStateTransition) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
