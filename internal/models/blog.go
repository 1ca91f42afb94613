package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ContentType selects the prompt family used for titles and posts
type ContentType string

const (
	ContentTypeSharing ContentType = "SHARING"
	ContentTypeSEO     ContentType = "SEO"
)

// ContentTypes lists every content type in a stable order
var ContentTypes = []ContentType{ContentTypeSharing, ContentTypeSEO}

// Valid reports whether c is a known content type
func (c ContentType) Valid() bool {
	return c == ContentTypeSharing || c == ContentTypeSEO
}

// Title categories the suggestion model may pick from
const (
	CategoryGeneralAudience = "General Audience"
	CategoryNicheAudience   = "Niche Audience"
	CategoryIndustry        = "Industry/Company"
)

// UserScore is the ternary feedback a user leaves on a title suggestion
type UserScore int

const (
	ScoreDisliked UserScore = -1
	ScoreNeutral  UserScore = 0
	ScoreLiked    UserScore = 1
)

// Valid reports whether s is one of the three feedback values
func (s UserScore) Valid() bool {
	return s >= ScoreDisliked && s <= ScoreLiked
}

// BlogPostTitleSuggestion is a candidate title generated for a project
type BlogPostTitleSuggestion struct {
	ID                       uuid.UUID      `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	ProjectID                uuid.UUID      `json:"project_id" db:"project_id" gorm:"type:uuid;not null;index"`
	Title                    string         `json:"title" db:"title" gorm:"not null"`
	ContentType              ContentType    `json:"content_type" db:"content_type" gorm:"size:16;not null;default:SHARING"`
	Category                 string         `json:"category" db:"category" gorm:"size:64"`
	Description              string         `json:"description" db:"description" gorm:"type:text"`
	Prompt                   string         `json:"prompt" db:"prompt" gorm:"type:text"`
	TargetKeywords           pq.StringArray `json:"target_keywords" db:"target_keywords" gorm:"type:text[]"`
	SuggestedMetaDescription string         `json:"suggested_meta_description" db:"suggested_meta_description" gorm:"type:text"`
	UserScore                UserScore      `json:"user_score" db:"user_score" gorm:"default:0"`
	Archived                 bool           `json:"archived" db:"archived" gorm:"default:false"`
	CreatedAt                time.Time      `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt                time.Time      `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Project        *Project            `json:"-" gorm:"foreignKey:ProjectID"`
	GeneratedPosts []GeneratedBlogPost `json:"-" gorm:"foreignKey:TitleSuggestionID"`
}

// TableName sets the table name for the BlogPostTitleSuggestion model
func (BlogPostTitleSuggestion) TableName() string {
	return "blog_post_title_suggestions"
}

// BeforeCreate fills the primary key
func (s *BlogPostTitleSuggestion) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	if s.ContentType == "" {
		s.ContentType = ContentTypeSharing
	}
	return nil
}

// GeneratedBlogPost is a full article produced for a project. Only Posted and
// DatePosted change after creation.
type GeneratedBlogPost struct {
	ID                uuid.UUID  `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	ProjectID         uuid.UUID  `json:"project_id" db:"project_id" gorm:"type:uuid;not null;index:idx_generated_posts_project_posted,priority:1"`
	TitleSuggestionID *uuid.UUID `json:"title_suggestion_id" db:"title_suggestion_id" gorm:"type:uuid;index"`
	Description       string     `json:"description" db:"description" gorm:"type:text"`
	Slug              string     `json:"slug" db:"slug"`
	Tags              string     `json:"tags" db:"tags"`
	Content           string     `json:"content" db:"content" gorm:"type:text"`
	Posted            bool       `json:"posted" db:"posted" gorm:"default:false;index:idx_generated_posts_project_posted,priority:2"`
	DatePosted        *time.Time `json:"date_posted" db:"date_posted"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Project         *Project                 `json:"-" gorm:"foreignKey:ProjectID"`
	TitleSuggestion *BlogPostTitleSuggestion `json:"title,omitempty" gorm:"foreignKey:TitleSuggestionID;constraint:OnDelete:SET NULL"`
}

// TableName sets the table name for the GeneratedBlogPost model
func (GeneratedBlogPost) TableName() string {
	return "generated_blog_posts"
}

// BeforeCreate fills the primary key
func (p *GeneratedBlogPost) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// PostTitle returns the fulfilled suggestion's title, or the slug when the
// post was generated without one
func (p *GeneratedBlogPost) PostTitle() string {
	if p.TitleSuggestion != nil {
		return p.TitleSuggestion.Title
	}
	return p.Slug
}
